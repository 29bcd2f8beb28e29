package log

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeContext struct{}

func (fakeContext) AddLogContext(z *EntryZ) { z.String("state", "Running") }

func TestModuleEnabled(t *testing.T) {
	mod := NewModule("test-enabled")
	if mod.Enabled(DebugLevel) {
		t.Fatalf("debug enabled without mask")
	}
	if !mod.Enabled(WarnLevel) {
		t.Fatalf("warn must always be enabled")
	}
	if mod.DebugZ("nope") != nil {
		t.Fatalf("DebugZ should return nil for a disabled module")
	}

	EnableDebugModules(mod.Mask())
	defer DisableDebugModules(mod.Mask())
	if !mod.Enabled(DebugLevel) {
		t.Fatalf("debug disabled after EnableDebugModules")
	}
}

func TestModuleByName(t *testing.T) {
	mod, ok := ModuleByName("bus")
	if !ok || mod != ModBus {
		t.Fatalf("ModuleByName(bus) = %v, %t, want %v, true", mod, ok, ModBus)
	}
	if _, ok := ModuleByName("<error>"); ok {
		t.Fatalf("ModuleByName(<error>) should fail")
	}
}

func TestEntryZFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nopWriter{})

	ctx := fakeContext{}
	AddContext(ctx)
	defer RemoveContext(ctx)

	ModBus.ErrorZ("bus fault").
		Hex16("addr", 0xE00C).
		Hex8("tag", 0x20).
		Error("err", errors.New("timeout")).
		End()

	out := buf.String()
	for _, want := range []string{"bus fault", "addr=E00C", "tag=20", "err=timeout", "_mod=bus", "state=Running"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q does not contain %q", out, want)
		}
	}
}

func TestFieldValue(t *testing.T) {
	tests := []struct {
		f    ZField
		want string
	}{
		{ZField{Type: FieldTypeBool, Bits: 1}, "true"},
		{ZField{Type: FieldTypeHex8, Bits: 0xC7}, "C7"},
		{ZField{Type: FieldTypeHex16, Bits: 0xE8}, "00E8"},
		{ZField{Type: FieldTypeHex32, Bits: 0xE8005A18}, "E8005A18"},
		{ZField{Type: FieldTypeInt, Bits: uint64(1<<64 - 3)}, "-3"},
		{ZField{Type: FieldTypeDuration, Bits: uint64(50 * time.Millisecond)}, "50ms"},
		{ZField{Type: FieldTypeStringer}, "<nil>"},
		{ZField{Type: FieldTypeBlob, Blob: []byte{0x3E, 0x02, 0xD3, 0x60}}, "3E 02 D3 60"},
	}
	for _, tt := range tests {
		if got := tt.f.Value(); got != tt.want {
			t.Errorf("Value(%v) = %q, want %q", tt.f.Type, got, tt.want)
		}
	}
}

// Nil entries must be usable.
func TestEntryZNil(t *testing.T) {
	var z *EntryZ
	z.Hex16("addr", 1).String("s", "s").Bool("b", true).End()
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
