package vdev

import (
	"fusionx/emu/log"
	"fusionx/hw/hwio"
	"fusionx/hw/mode"
)

var TZPU = DeviceDesc{
	Name: "TZPU",
	New:  func(env *Env) Device { return &tzpu{env: env} },
}

// tranZPUter ports.
const (
	PortSetXMHz  = 0x62 // switch to the alternate CPU clock
	PortSet2MHz  = 0x64 // switch to the system clock
	PortClkSelRd = 0x66 // which clock drives the CPU
)

// Status returned on the service port when no service is attached.
const svcUnavailable = 0xFE

// tzpu emulates the tranZPUter control ports: the control latch selecting
// the memory mode, the clock selection and the service and system requests.
type tzpu struct {
	env *Env

	latch     uint8
	altClock  bool
	svcStatus uint8
	sysReq    uint8
}

func (d *tzpu) Name() string { return "TZPU" }

func (d *tzpu) Reset() {
	d.latch = uint8(mode.ModeOrig)
	d.altClock = false
	d.svcStatus = svcUnavailable
	d.sysReq = 0
}

func (d *tzpu) MapMemory(*hwio.PageTable) {}

func (d *tzpu) MapIO(io *hwio.IOPageTable) {
	for _, port := range []uint8{mode.PortCtrlLatch, PortSetXMHz, PortSet2MHz, PortClkSelRd, mode.PortSvcReq, mode.PortSysReq} {
		io.RouteLocal(port)
	}
}

func (d *tzpu) Read(port uint16, io bool) (uint8, bool) {
	if !io {
		return 0, false
	}
	switch uint8(port) {
	case mode.PortCtrlLatch:
		return d.latch, true
	case PortClkSelRd:
		if d.altClock {
			return 1, true
		}
		return 0, true
	case mode.PortSvcReq:
		return d.svcStatus, true
	case mode.PortSysReq:
		return d.sysReq, true
	}
	return 0, false
}

func (d *tzpu) Write(port uint16, val uint8, io bool) bool {
	if !io {
		return false
	}
	switch uint8(port) {
	case mode.PortCtrlLatch:
		d.latch = uint8(d.env.Select(mode.ID(val)))
	case PortSetXMHz:
		d.altClock = true
	case PortSet2MHz:
		d.altClock = false
	case mode.PortSvcReq:
		d.svcStatus = svcUnavailable
		if d.env.Service != nil {
			d.svcStatus = d.env.Service.ServiceRequest(val)
		}
		log.ModDev.DebugZ("service request").Hex8("cmd", val).Hex8("status", d.svcStatus).End()
	case mode.PortSysReq:
		d.sysReq = val
		log.ModDev.DebugZ("system request").Hex8("req", val).End()
	default:
		return false
	}
	return true
}
