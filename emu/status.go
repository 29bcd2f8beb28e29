package emu

import (
	"fmt"

	"github.com/go-faster/jx"

	"fusionx/hw/bus"
	"fusionx/hw/mode"
	"fusionx/hw/runstate"
)

// Status is a snapshot of the controller state.
type Status struct {
	State      runstate.State
	Mode       mode.ID
	Board      mode.Board
	Profile    mode.Profile
	Devices    []string
	Multiplier int
	PC         uint16
	Fault      string // last bus fault, empty if none
	HotKey     bus.HotKey
}

func (s Status) MarshalJSON() ([]byte, error) {
	var e jx.Encoder
	s.Encode(&e)
	return e.Bytes(), nil
}

func (s Status) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("state")
	e.Str(s.State.String())
	e.FieldStart("mode")
	e.Int(int(s.Mode))
	e.FieldStart("mode_name")
	e.Str(s.Mode.String())
	e.FieldStart("board")
	e.Str(s.Board.String())
	e.FieldStart("profile")
	e.Str(s.Profile.String())
	e.FieldStart("devices")
	e.ArrStart()
	for _, d := range s.Devices {
		e.Str(d)
	}
	e.ArrEnd()
	e.FieldStart("multiplier")
	e.Int(s.Multiplier)
	e.FieldStart("pc")
	e.Int(int(s.PC))
	e.FieldStart("fault")
	e.Str(s.Fault)
	e.FieldStart("hotkey")
	e.Int(int(s.HotKey))
	e.ObjEnd()
}

func (s *Status) UnmarshalJSON(buf []byte) error {
	return s.Decode(jx.DecodeBytes(buf))
}

func (s *Status) Decode(d *jx.Decoder) error {
	*s = Status{}
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "state":
			str, err := d.Str()
			if err != nil {
				return err
			}
			s.State, err = parseState(str)
			return err
		case "mode":
			v, err := d.Int()
			s.Mode = mode.ID(v)
			return err
		case "board":
			str, err := d.Str()
			if err != nil {
				return err
			}
			s.Board, err = mode.ParseBoard(str)
			return err
		case "profile":
			str, err := d.Str()
			if err != nil {
				return err
			}
			s.Profile, err = mode.ParseProfile(str)
			return err
		case "devices":
			s.Devices = []string{}
			return d.Arr(func(d *jx.Decoder) error {
				str, err := d.Str()
				s.Devices = append(s.Devices, str)
				return err
			})
		case "multiplier":
			v, err := d.Int()
			s.Multiplier = v
			return err
		case "pc":
			v, err := d.Int()
			s.PC = uint16(v)
			return err
		case "fault":
			str, err := d.Str()
			s.Fault = str
			return err
		case "hotkey":
			v, err := d.Int()
			s.HotKey = bus.HotKey(v)
			return err
		}
		return d.Skip()
	})
}

func parseState(str string) (runstate.State, error) {
	for s := runstate.Stop; s <= runstate.Running; s++ {
		if s.String() == str {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown run state %q", str)
}
