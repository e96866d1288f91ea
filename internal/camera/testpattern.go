package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"sync/atomic"

	"github.com/mfitzp/kropbot/internal/config"
)

// TestPattern is a Source generating a moving gradient. It stands in
// for real camera hardware on development machines.
type TestPattern struct {
	width   int
	height  int
	quality int
	frame   int64
}

// NewTestPattern creates a synthetic frame source.
func NewTestPattern(cfg *config.CameraConfig) *TestPattern {
	return &TestPattern{
		width:   cfg.Width,
		height:  cfg.Height,
		quality: cfg.Quality,
	}
}

// Capture renders one JPEG frame.
func (p *TestPattern) Capture(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := atomic.AddInt64(&p.frame, 1)
	img := image.NewRGBA(image.Rect(0, 0, p.width, p.height))

	// Gradient shifted per frame so successive captures differ
	shift := int(n % 256)
	for y := 0; y < p.height; y++ {
		for x := 0; x < p.width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x + shift) % 256),
				G: uint8((y + shift) % 256),
				B: uint8(shift),
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}

	return buf.Bytes(), nil
}
