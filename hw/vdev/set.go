package vdev

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"fusionx/emu/log"
	"fusionx/hw/hwio"
)

const MaxDevices = 5

var (
	ErrSetFull       = errors.New("device set full")
	ErrDuplicate     = errors.New("device already installed")
	ErrNotInstalled  = errors.New("device not installed")
	ErrUnknownDevice = errors.New("unknown device")
	ErrBoard         = errors.New("device not supported on this board")
)

// Set is the set of installed virtual devices, at most MaxDevices, each at
// most once. A Set must only be mutated while the execution goroutine is
// quiesced.
type Set struct {
	env  *Env
	devs []Device
}

func NewSet(env *Env) *Set {
	return &Set{env: env}
}

// Add installs the named device.
func (s *Set) Add(name string) error {
	desc, ok := Lookup(name)
	if !ok {
		return fmt.Errorf("add %q: %w", name, ErrUnknownDevice)
	}
	if !desc.supports(s.env.Board) {
		return fmt.Errorf("add %s on %s: %w", desc.Name, s.env.Board, ErrBoard)
	}
	if s.Has(desc.Name) {
		return fmt.Errorf("add %s: %w", desc.Name, ErrDuplicate)
	}
	if len(s.devs) >= MaxDevices {
		return fmt.Errorf("add %s: %w", desc.Name, ErrSetFull)
	}

	dev := desc.New(s.env)
	if l, ok := dev.(Loader); ok {
		if err := l.Load(); err != nil {
			return fmt.Errorf("add %s: %w", desc.Name, err)
		}
	}
	dev.Reset()
	s.devs = append(s.devs, dev)

	log.ModDev.InfoZ("device added").String("name", desc.Name).Int("count", len(s.devs)).End()
	return nil
}

// Remove uninstalls the named device.
func (s *Set) Remove(name string) error {
	desc, ok := Lookup(name)
	if !ok {
		return fmt.Errorf("remove %q: %w", name, ErrUnknownDevice)
	}
	i := s.index(desc.Name)
	if i < 0 {
		return fmt.Errorf("remove %s: %w", desc.Name, ErrNotInstalled)
	}
	s.devs = slices.Delete(s.devs, i, i+1)

	log.ModDev.InfoZ("device removed").String("name", desc.Name).Int("count", len(s.devs)).End()
	return nil
}

func (s *Set) index(name string) int {
	return slices.IndexFunc(s.devs, func(d Device) bool {
		return strings.EqualFold(d.Name(), name)
	})
}

func (s *Set) Has(name string) bool { return s.index(name) >= 0 }
func (s *Set) Len() int             { return len(s.devs) }

// Names returns the installed device names, in installation order.
func (s *Set) Names() []string {
	names := make([]string, len(s.devs))
	for i, d := range s.devs {
		names[i] = d.Name()
	}
	return names
}

// Reset brings every device back to its power-on state.
func (s *Set) Reset() {
	for _, d := range s.devs {
		d.Reset()
	}
}

// MapMemory applies the device windows over a mode 0 table.
func (s *Set) MapMemory(t *hwio.PageTable) {
	for _, d := range s.devs {
		d.MapMemory(t)
	}
}

func (s *Set) MapIO(io *hwio.IOPageTable) {
	for _, d := range s.devs {
		d.MapIO(io)
	}
}

// Read gives each device, in order, a chance to claim a read.
func (s *Set) Read(addr uint16, io bool) (uint8, bool) {
	for _, d := range s.devs {
		if val, ok := d.Read(addr, io); ok {
			return val, true
		}
	}
	return 0, false
}

// Write gives each device, in order, a chance to claim a write.
func (s *Set) Write(addr uint16, val uint8, io bool) bool {
	for _, d := range s.devs {
		if d.Write(addr, val, io) {
			return true
		}
	}
	return false
}

// Decode reports whether an installed device handled the bank switch
// decoding of this access.
func (s *Set) Decode(addr uint16, data uint8, io, read bool) bool {
	for _, d := range s.devs {
		if dec, ok := d.(Decoder); ok && dec.Decode(addr, data, io, read) {
			return true
		}
	}
	return false
}
