// Package main implements the kropbot rover entry point. The rover
// drives two motors from the crowd's merged steering intents at a fixed
// rate and streams camera frames to the relay.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mfitzp/kropbot/internal/auth"
	"github.com/mfitzp/kropbot/internal/camera"
	"github.com/mfitzp/kropbot/internal/config"
	"github.com/mfitzp/kropbot/internal/control"
	"github.com/mfitzp/kropbot/internal/motor"
	"github.com/mfitzp/kropbot/internal/motor/fake"
	"github.com/mfitzp/kropbot/internal/motor/motorhat"
	"github.com/mfitzp/kropbot/internal/relayclient"
)

const Version = "1.0.0"

func main() {
	logger := log.New(os.Stderr, "", log.LstdFlags)
	logger.Printf("Starting kropbot rover v%s", Version)

	// Step 1: Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Println("Configuration loaded successfully")

	// Step 2: Open the motor driver
	driver, err := openDriver(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to open motor driver: %v", err)
	}
	logger.Println("Motor driver online")

	// Step 3: Mint a rover token when auth is configured
	token := ""
	if cfg.Auth.Secret != "" {
		token, err = auth.SignToken(cfg.Auth.Secret, "rover", []string{auth.ScopeRover}, cfg.Auth.TokenTTL())
		if err != nil {
			logger.Fatalf("Failed to sign rover token: %v", err)
		}
		logger.Println("Rover token minted")
	}

	// Step 4: Create the relay client
	client := relayclient.New(cfg.Rover.RelayURL, token, cfg.Control.PollTimeout())
	logger.Printf("Relay: %s", cfg.Rover.RelayURL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Step 5: Start the camera streamer
	streamer := camera.NewStreamer(camera.NewTestPattern(&cfg.Camera), client, &cfg.Camera, logger)
	go streamer.Run(ctx)
	logger.Println("Camera streamer started")

	// Step 6: Run the drive loop
	loop := control.NewLoop(driver, client, cfg.Control.TickPeriod(), cfg.Control.StopThreshold, logger)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-shutdown
		logger.Printf("Received signal %v, stopping...", sig)
		cancel()
	}()

	logger.Println("Drive loop running")
	if err := loop.Run(ctx); err != nil {
		logger.Fatalf("Drive loop failed: %v", err)
	}

	logger.Println("kropbot rover shutdown complete")
}

// openDriver picks the hardware driver, or the in-memory one when
// KROPBOT_FAKE_MOTORS is set for bench testing without a HAT.
func openDriver(cfg *config.Config, logger *log.Logger) (motor.IMotorDriver, error) {
	if os.Getenv("KROPBOT_FAKE_MOTORS") != "" {
		logger.Println("WARNING: using fake motor driver")
		return fake.NewFakeDriver(), nil
	}

	bus, err := motorhat.OpenDevBus(cfg.Rover.I2CAdapter, byte(cfg.Rover.MotorAddr))
	if err != nil {
		return nil, motor.NormalizeDriverError(err)
	}
	return motorhat.New(bus)
}
