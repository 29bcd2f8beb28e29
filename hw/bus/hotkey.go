package bus

import (
	"fmt"

	"fusionx/hw/mode"
)

// HotKey is a CTRL + key combination caught on the host keyboard, used to
// bring up the controller menu.
type HotKey uint8

const (
	HotKeyNone     HotKey = 0x00
	HotKeyOriginal HotKey = 0xE0
	HotKeyRFS80    HotKey = 0xE1
	HotKeyRFS40    HotKey = 0xE2
	HotKeyTZFS     HotKey = 0xE3
	HotKeyLinux    HotKey = 0xE4
)

func (k HotKey) String() string {
	switch k {
	case HotKeyNone:
		return "none"
	case HotKeyOriginal:
		return "original"
	case HotKeyRFS80:
		return "rfs80"
	case HotKeyRFS40:
		return "rfs40"
	case HotKeyTZFS:
		return "tzfs"
	case HotKeyLinux:
		return "linux"
	}
	return fmt.Sprintf("HOTKEY_%02X", uint8(k))
}

// keyboard snoops the keyboard PPI: the strobe selects the matrix row and
// the data read back gives the keys pressed on it, active low.
type keyboard struct {
	board  mode.Board
	strobe uint8
	ctrl   bool
	hot    HotKey
}

func (kb *keyboard) reset() {
	kb.strobe, kb.ctrl, kb.hot = 0, false, HotKeyNone
}

func (kb *keyboard) setStrobe(val uint8) { kb.strobe = val }

func (kb *keyboard) data(val uint8) {
	row := kb.strobe & 0x0F
	var hot HotKey

	switch kb.board {
	case mode.MZ80A:
		switch {
		case row == 0:
			kb.ctrl = val&0x80 == 0
			return
		case !kb.ctrl:
			return
		case row == 8 && val&0x1D != 0x1D:
			hot = pick(val, []keyBit{{0x01, HotKeyOriginal}, {0x04, HotKeyRFS40}, {0x08, HotKeyRFS80}, {0x10, HotKeyLinux}})
		case kb.strobe&0x09 == 0x09 && val&0x04 == 0:
			hot = HotKeyTZFS
		}

	case mode.MZ700, mode.MZ2000:
		switch {
		case row == 8:
			kb.ctrl = val&0x40 == 0
			return
		case !kb.ctrl:
			return
		case row == 5 && val&0xF0 != 0xF0:
			hot = pick(val, []keyBit{{0x80, HotKeyOriginal}, {0x40, HotKeyRFS40}, {0x20, HotKeyTZFS}, {0x10, HotKeyLinux}})
		}
	}

	if hot != HotKeyNone {
		kb.hot = hot
	}
}

type keyBit struct {
	mask uint8
	key  HotKey
}

// pick returns the key of the first pressed (zero) bit.
func pick(val uint8, bits []keyBit) HotKey {
	for _, b := range bits {
		if val&b.mask == 0 {
			return b.key
		}
	}
	return HotKeyNone
}
