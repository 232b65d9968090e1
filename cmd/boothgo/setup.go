package main

import (
	"context"
	"fmt"
	"math"

	"github.com/cjeanneret/BoothGo/internal/config"
	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/hw/camera"
	"github.com/cjeanneret/BoothGo/internal/hw/camera/webcam"
	"github.com/cjeanneret/BoothGo/internal/hw/gpio"
	"github.com/cjeanneret/BoothGo/internal/hw/light"
	"github.com/cjeanneret/BoothGo/internal/library"
	"github.com/cjeanneret/BoothGo/internal/logic/booth"
	"github.com/cjeanneret/BoothGo/internal/logic/capture"
	"github.com/cjeanneret/BoothGo/internal/logic/strip"
	"github.com/cjeanneret/BoothGo/internal/permission"
	"github.com/cjeanneret/BoothGo/internal/share"
)

// probingCamera is a camera that can be opened briefly to check access.
type probingCamera interface {
	camera.Camera
	Probe(ctx context.Context) error
}

// newCameraFromConfig selects a camera implementation based on configuration.
func newCameraFromConfig(cfg *config.Config) (probingCamera, error) {
	o := camera.Orientation{RotateDeg: cfg.Camera.RotateDeg, Mirror: cfg.Camera.Mirror}
	switch cfg.Camera.Type {
	case "gocv":
		return webcam.New(cfg.Camera.Device, cfg.Camera.WidthPx, cfg.Camera.HeightPx, o), nil
	case "mock":
		return camera.NewMock(cfg.Camera.WidthPx, cfg.Camera.HeightPx, o), nil
	default:
		return nil, fmt.Errorf("unsupported camera type: %s", cfg.Camera.Type)
	}
}

// stripLayout turns the strip section into a compositor layout. Empty
// texts keep the default ones.
func stripLayout(cfg *config.Config) (strip.Layout, error) {
	l := strip.DefaultLayout()
	l.DPI = float64(cfg.Strip.DPI)
	if cfg.Strip.HeaderText != "" {
		l.HeaderText = cfg.Strip.HeaderText
	}
	if cfg.Strip.FooterText != "" {
		l.FooterText = cfg.Strip.FooterText
	}

	bg, err := config.ParseHexColor(cfg.Strip.BackgroundColor)
	if err != nil {
		return strip.Layout{}, fmt.Errorf("strip background: %w", err)
	}
	l.Background = bg

	switch {
	case cfg.Strip.BackgroundPath != "":
		img, err := strip.LoadBackground(cfg.Strip.BackgroundPath)
		if err != nil {
			return strip.Layout{}, err
		}
		l.BackgroundImage = img
	case cfg.Strip.Snow:
		size := l.Canvas()
		l.BackgroundImage = strip.Snow(int(math.Round(size.W)), int(math.Round(size.H)), 1)
	}
	return l, nil
}

// sequenceParams maps the sequence section onto the sequencer parameters.
func sequenceParams(cfg *config.Config) capture.Params {
	return capture.Params{
		Shots:           strip.Slots,
		Countdown:       cfg.Countdown(),
		Tick:            cfg.Tick(),
		FlashDuration:   cfg.FlashDuration(),
		PreviewDuration: cfg.PreviewDuration(),
	}
}

// shareRegistry builds the email and text message targets. Unconfigured
// targets stay registered but are not offered.
func shareRegistry(cfg *config.Config) *share.Registry {
	m := cfg.Share.Mail
	msg := cfg.Share.Message
	return share.NewRegistry(
		share.NewMailer(share.MailSettings{
			Host:     m.Host,
			Port:     m.Port,
			Username: m.Username,
			Password: m.Password,
			From:     m.From,
			Subject:  m.Subject,
			Body:     m.Body,
		}),
		share.NewMessenger(share.MessageSettings{
			WebhookURL: msg.WebhookURL,
			Token:      msg.Token,
			Body:       msg.Body,
			Timeout:    cfg.MessageTimeout(),
		}),
	)
}

// app holds everything a session needs.
type app struct {
	gpio    gpio.Driver
	camera  probingCamera
	library *library.Library
	shares  *share.Registry
	booth   *booth.Booth
}

// newApp wires hardware, library, compositor and booth. publish may be nil.
func newApp(cfg *config.Config, publish func(booth.Event)) (*app, error) {
	debug.Section("Setup")

	debug.Step(1, "GPIO driver")
	g, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
	if err != nil {
		return nil, fmt.Errorf("gpio init: %w", err)
	}
	a := &app{gpio: g}

	debug.Step(2, "Camera")
	a.camera, err = newCameraFromConfig(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	debug.Value("camera", cfg.Camera.Type)

	debug.Step(3, "Library")
	a.library, err = library.Open(cfg.Library.Dir, cfg.Library.DBPath)
	if err != nil {
		a.Close()
		return nil, err
	}
	debug.Value("library", cfg.Library.Dir)

	debug.Step(4, "Compositor")
	layout, err := stripLayout(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	comp, err := strip.NewCompositor(layout)
	if err != nil {
		a.Close()
		return nil, err
	}
	size := layout.Canvas()
	debug.Value("canvas", fmt.Sprintf("%vx%v", size.W, size.H))

	debug.Step(5, "Booth")
	gate := permission.NewGate(permission.Probe{
		OpenCamera: a.camera.Probe,
		LibraryDir: cfg.Library.Dir,
	})
	a.shares = shareRegistry(cfg)
	a.booth = booth.New(booth.Options{
		Camera:     a.camera,
		Gate:       gate,
		Flash:      light.NewFlash(g, cfg.Flash.Pin),
		Params:     sequenceParams(cfg),
		Manager:    strip.NewManager(comp, a.library.Saver(), gate),
		Library:    a.library,
		Shares:     a.shares,
		FilePrefix: cfg.Share.FilePrefix,
		Publish:    publish,
	})
	debug.Value("share targets", a.shares.Available())
	return a, nil
}

// Close releases the camera, the library and the GPIO driver.
func (a *app) Close() {
	if a.camera != nil {
		_ = a.camera.Stop()
	}
	if a.library != nil {
		if err := a.library.Close(); err != nil {
			debug.Error(err)
		}
	}
	if a.gpio != nil {
		_ = a.gpio.Close()
	}
}
