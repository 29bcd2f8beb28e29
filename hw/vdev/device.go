package vdev

import (
	"slices"
	"strings"

	"fusionx/hw/hwio"
	"fusionx/hw/mode"
)

// Env is what devices see of the controller.
type Env struct {
	Pool  *hwio.Pool
	Board mode.Board

	// Table returns the page table of the active mode.
	Table func() *hwio.PageTable
	// Select switches memory mode from the bus path and returns the mode
	// active afterwards, the previous one if id was refused.
	Select func(mode.ID) mode.ID

	// Service answers requests made on the service port, optional.
	Service Service

	RFS RFSFiles
}

// RFSFiles are the images used by the RFS board.
type RFSFiles struct {
	MROM   string `toml:"rfs_mrom"`
	UROM   string `toml:"rfs_urom"`
	SDCard string `toml:"rfs_sd"`
}

// Service is the external file transfer service.
type Service interface {
	// ServiceRequest processes cmd and returns the service status byte.
	ServiceRequest(cmd uint8) (status uint8)
}

// A Device is a piece of hardware emulated locally. Devices are consulted
// before the local pool for every access served locally. ok reports whether
// the device claimed the access.
type Device interface {
	Name() string
	Reset()

	// MapMemory installs the device windows into the mode 0 table.
	MapMemory(t *hwio.PageTable)
	// MapIO routes the device ports to local handlers.
	MapIO(io *hwio.IOPageTable)

	Read(addr uint16, io bool) (val uint8, ok bool)
	Write(addr uint16, val uint8, io bool) (ok bool)
}

// A Decoder device takes over the board bank switch decoding. It returns
// true when it handled the access.
type Decoder interface {
	Decode(addr uint16, data uint8, io, read bool) bool
}

// A Loader device loads its images into the local pool.
type Loader interface {
	Load() error
}

type DeviceDesc struct {
	Name   string
	New    func(*Env) Device
	Boards []mode.Board // empty means any board
}

func (d DeviceDesc) supports(b mode.Board) bool {
	return len(d.Boards) == 0 || slices.Contains(d.Boards, b)
}

var All = map[string]DeviceDesc{
	"RFS":    RFS,
	"TZPU":   TZPU,
	"MZ1R18": MZ1R18,
}

// Lookup returns the descriptor of the named device, ignoring case.
func Lookup(name string) (DeviceDesc, bool) {
	d, ok := All[strings.ToUpper(strings.TrimSpace(name))]
	return d, ok
}
