package mode

import (
	"errors"
	"fmt"

	"fusionx/emu/log"
	"fusionx/hw/hwio"
)

var (
	ErrOutOfMemory     = errors.New("out of memory")
	ErrUnsupportedMode = errors.New("unsupported memory mode")
)

// OutOfMemoryError is returned by Select when a new mode cannot be
// materialized. The previous mode stays active.
type OutOfMemoryError struct {
	Mode ID  // requested mode
	Live int // number of materialized modes
}

func (e *OutOfMemoryError) Error() string {
	return fmt.Sprintf("select mode %s: %d modes live: %v", e.Mode, e.Live, ErrOutOfMemory)
}

func (e *OutOfMemoryError) Unwrap() error { return ErrOutOfMemory }

// A Matrix gives the mapping rows of a mode id, ok is false for ids it does
// not define.
type Matrix func(ID) (rows Rows, ok bool)

// Bank is the arena of memory modes. Mode 0 always exists, other modes are
// materialized from the matrix the first time they are selected, and live
// until the next Reset.
//
// A Bank is not safe for concurrent use. It must only be mutated while the
// execution goroutine is quiesced, or by the execution goroutine itself.
type Bank struct {
	matrix Matrix
	limit  int

	tables [NumModes]*hwio.PageTable
	live   int
	active ID

	base    Rows
	overlay func(*hwio.PageTable)
}

// NewBank returns a bank allowing at most limit live modes, mode 0 included.
// A nil matrix only provides mode 0.
func NewBank(limit int, matrix Matrix) *Bank {
	limit = max(1, min(limit, NumModes))
	b := &Bank{matrix: matrix, limit: limit}
	b.Reset(nil, nil)
	return b
}

// Reset drops every materialized mode and rebuilds mode 0 from base, then
// applies overlay to it. Mode 0 becomes active.
func (b *Bank) Reset(base Rows, overlay func(*hwio.PageTable)) {
	b.tables = [NumModes]*hwio.PageTable{}
	b.base, b.overlay = base, overlay
	b.tables[0] = hwio.NewPageTable(tableName(0))
	b.live = 1
	b.active = 0
	b.populate(0)

	log.ModMode.DebugZ("bank reset").Int("rows", len(base)).End()
}

// SetMatrix replaces the matrix used for modes not yet materialized.
func (b *Bank) SetMatrix(m Matrix) { b.matrix = m }

// Select makes id the active mode. fresh reports whether the mode table has
// just been materialized. On error the previously active mode stays active.
func (b *Bank) Select(id ID) (fresh bool, err error) {
	if id == b.active {
		return false, nil
	}
	if id >= NumModes {
		return false, fmt.Errorf("select %02X: %w", uint8(id), ErrUnsupportedMode)
	}

	if b.tables[id] == nil {
		if _, ok := b.rows(id); !ok {
			return false, fmt.Errorf("select %s: %w", id, ErrUnsupportedMode)
		}
		if b.live >= b.limit {
			return false, &OutOfMemoryError{Mode: id, Live: b.live}
		}
		b.tables[id] = hwio.NewPageTable(tableName(id))
		b.live++
		b.populate(id)
		fresh = true
	}

	log.ModMode.DebugZ("select mode").
		Stringer("from", b.active).
		Stringer("to", id).
		Bool("fresh", fresh).
		End()

	b.active = id
	return fresh, nil
}

// Rebuild repopulates the active mode from its rows, for instance after the
// device set changed. Cached modes the current matrix no longer defines are
// dropped. If the active mode is one of them, Rebuild returns
// ErrUnsupportedMode and leaves mode 0 active.
func (b *Bank) Rebuild() error {
	for id := ID(1); id < NumModes; id++ {
		if b.tables[id] == nil {
			continue
		}
		if _, ok := b.rows(id); !ok {
			b.tables[id] = nil
			b.live--
		}
	}

	if b.tables[b.active] == nil {
		log.ModMode.WarnZ("active mode dropped").Stringer("mode", b.active).End()
		prev := b.active
		b.active = 0
		return fmt.Errorf("rebuild %s: %w", prev, ErrUnsupportedMode)
	}
	b.tables[b.active].Reset()
	b.populate(b.active)
	return nil
}

// Active returns the table of the active mode.
func (b *Bank) Active() *hwio.PageTable { return b.tables[b.active] }

// ActiveID returns the active mode id.
func (b *Bank) ActiveID() ID { return b.active }

// Table returns the table of mode id, nil if not materialized.
func (b *Bank) Table(id ID) *hwio.PageTable {
	if id >= NumModes {
		return nil
	}
	return b.tables[id]
}

// Live returns the number of materialized modes.
func (b *Bank) Live() int { return b.live }

func (b *Bank) rows(id ID) (Rows, bool) {
	if id == 0 {
		return b.base, true
	}
	if b.matrix == nil {
		return nil, false
	}
	return b.matrix(id)
}

func (b *Bank) populate(id ID) {
	t := b.tables[id]
	rows, _ := b.rows(id)
	rows.Populate(t)
	if id == 0 && b.overlay != nil {
		b.overlay(t)
	}
}

func tableName(id ID) string {
	return fmt.Sprintf("mode-%02X", uint8(id))
}
