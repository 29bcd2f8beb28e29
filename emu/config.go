package emu

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"fusionx/emu/log"
	"fusionx/hw/bus"
	"fusionx/hw/mode"
	"fusionx/hw/runstate"
	"fusionx/hw/vdev"
)

type Config struct {
	Board   mode.Board    `toml:"board"`
	Memory  MemoryConfig  `toml:"memory"`
	Bus     BusConfig     `toml:"bus"`
	CPU     CPUConfig     `toml:"cpu"`
	Devices DevicesConfig `toml:"devices"`
	Control ControlConfig `toml:"control"`
}

type MemoryConfig struct {
	Profile  mode.Profile `toml:"profile"`
	MaxModes int          `toml:"max_modes"`
	Fill     uint8        `toml:"fill"`
	Images   []vdev.Image `toml:"image"`
}

type BusConfig struct {
	Timeout time.Duration `toml:"timeout"`
}

type CPUConfig struct {
	Multiplier  int `toml:"multiplier"`
	ScreenWidth int `toml:"screen_width"`
}

type DevicesConfig struct {
	Installed []string `toml:"installed"`
	vdev.RFSFiles
}

type ControlConfig struct {
	Port       int           `toml:"port"`
	AckTimeout time.Duration `toml:"ack_timeout"`
}

const DefaultFileMode = os.FileMode(0755)

var ConfigDir = sync.OnceValue(func() string {
	cfgdir, err := os.UserConfigDir()
	if err != nil {
		log.ModEmu.Fatalf("failed to get user config directory: %v", err)
	}

	dir := filepath.Join(cfgdir, "fusionx")
	if err := os.MkdirAll(dir, DefaultFileMode); err != nil {
		log.ModEmu.Fatalf("failed to create directory %s: %v", dir, err)
	}
	return dir
})

const cfgFilename = "config.toml"

func DefaultConfig() Config {
	return Config{
		Board: mode.MZ80A,
		Memory: MemoryConfig{
			Profile:  mode.Virtual,
			MaxModes: mode.NumModes,
			Fill:     bus.DefaultFill,
		},
		Bus: BusConfig{Timeout: bus.DefaultTimeout},
		CPU: CPUConfig{
			Multiplier:  1,
			ScreenWidth: 132,
		},
		Devices: DevicesConfig{Installed: []string{"TZPU"}},
		Control: ControlConfig{AckTimeout: runstate.DefaultAckTimeout},
	}
}

// ConfigPath returns path, or the default config file if path is empty.
func ConfigPath(path string) string {
	if path != "" {
		return path
	}
	return filepath.Join(ConfigDir(), cfgFilename)
}

// LoadConfig loads the configuration at path, over the defaults. A missing
// file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	path = ConfigPath(path)

	md, err := toml.DecodeFile(path, &cfg)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.ModEmu.InfoZ("no config file, using defaults").String("path", path).End()
		return DefaultConfig(), nil
	case err != nil:
		return Config{}, err
	}
	for _, key := range md.Undecoded() {
		log.ModEmu.WarnZ("unknown config key").String("path", path).String("key", key.String()).End()
	}
	return cfg, nil
}

// SaveConfig writes cfg at path, or in the config directory if path is empty.
func SaveConfig(path string, cfg Config) error {
	buf, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(ConfigPath(path), buf, 0644)
}
