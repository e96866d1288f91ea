// Package camera captures JPEG frames and streams them to the relay in
// a separate goroutine so a slow upload never touches the drive loop.
package camera

import (
	"context"
	"log"
	"time"

	"github.com/mfitzp/kropbot/internal/config"
)

// Source captures a single JPEG frame.
type Source interface {
	Capture(ctx context.Context) ([]byte, error)
}

// Uploader posts a frame to the relay.
type Uploader interface {
	UploadFrame(ctx context.Context, frame []byte) error
}

// Streamer captures frames at the configured rate and uploads them.
type Streamer struct {
	source   Source
	uploader Uploader
	period   time.Duration
	logger   *log.Logger
}

// NewStreamer creates a frame streamer.
func NewStreamer(source Source, uploader Uploader, cfg *config.CameraConfig, logger *log.Logger) *Streamer {
	return &Streamer{
		source:   source,
		uploader: uploader,
		period:   cfg.FramePeriod(),
		logger:   logger,
	}
}

// Run streams frames until the context is cancelled. Capture or upload
// failures are logged and the next frame is attempted on schedule.
func (s *Streamer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame, err := s.source.Capture(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.Printf("camera: capture failed: %v", err)
				continue
			}

			if err := s.uploader.UploadFrame(ctx, frame); err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.Printf("camera: upload failed: %v", err)
			}
		}
	}
}
