// Package image provides a deterministic in-memory plugin.ImageGen
// implementation: no real image-generation backend is in scope (§1),
// so this stub renders a solid-color PNG sized from the requested
// options, enough to exercise imageGeneration's artifact-persistence
// path without a network dependency.
package image

import (
	"bytes"
	"context"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"

	"github.com/flowloom/rivulet/plugin"
)

type Stub struct{}

func New() Stub { return Stub{} }

func (Stub) Generate(ctx context.Context, prompt string, opts plugin.ImageOptions) ([]byte, string, error) {
	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = 256
	}
	if height <= 0 {
		height = 256
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(prompt))
	sum := h.Sum32()
	c := color.RGBA{R: byte(sum), G: byte(sum >> 8), B: byte(sum >> 16), A: 255}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "image/png", nil
}

var _ plugin.ImageGen = Stub{}
