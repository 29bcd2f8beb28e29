package vdev

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"fusionx/emu/log"
	"fusionx/hw/hwio"
)

// Image is a file loaded into the local pool at start.
type Image struct {
	Path   string `toml:"path"`
	Addr   uint32 `toml:"addr"`
	Target string `toml:"target"` // rom or ram
}

func (img Image) mem(pool *hwio.Pool) (*hwio.Mem, error) {
	switch strings.ToLower(img.Target) {
	case "rom", "":
		return pool.ROM, nil
	case "ram":
		return pool.RAM, nil
	}
	return nil, fmt.Errorf("image %s: unknown target %q", img.Path, img.Target)
}

// LoadImages reads all images concurrently then copies them into the pool,
// in order, so that later images override earlier ones.
func LoadImages(ctx context.Context, pool *hwio.Pool, images []Image) error {
	for _, img := range images {
		if _, err := img.mem(pool); err != nil {
			return err
		}
	}

	bufs := make([][]byte, len(images))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, img := range images {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			buf, err := os.ReadFile(img.Path)
			if err != nil {
				return fmt.Errorf("image %s: %w", img.Path, err)
			}
			bufs[i] = buf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, img := range images {
		mem, _ := img.mem(pool)
		if len(bufs[i]) > len(mem.Data) {
			return fmt.Errorf("image %s: %d bytes do not fit in %s", img.Path, len(bufs[i]), mem.Name)
		}
		mem.Load(img.Addr, bufs[i])
		log.ModDev.InfoZ("image loaded").
			String("path", img.Path).
			String("mem", mem.Name).
			Hex32("addr", img.Addr).
			Int("size", len(bufs[i])).
			End()
	}
	return nil
}
