package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cjeanneret/BoothGo/internal/config"
	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/hw/button"
	"github.com/cjeanneret/BoothGo/internal/logic/booth"
	"github.com/cjeanneret/BoothGo/internal/logic/strip"
	"github.com/cjeanneret/BoothGo/internal/web"
)

func newServeCmd(cfgPath *string) *cobra.Command {
	webPort := &webPortFlag{defaultPort: 8080}
	var countdown int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the kiosk web server and the start button",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			if err := applyCountdown(cmd, cfg, countdown); err != nil {
				return err
			}
			if p := webPort.port(); p != 0 {
				cfg.Web.Port = p
			}
			return serve(cmd.Context(), cfg)
		},
	}
	f := cmd.Flags().VarPF(webPort, "web", "", "web server port; --web alone uses 8080, default from config")
	f.NoOptDefVal = strconv.Itoa(webPort.defaultPort)
	addCountdownFlag(cmd, &countdown)
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	broadcaster := web.NewStatusBroadcaster()
	debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))
	defer debug.SetOutput(os.Stdout)

	a, err := newApp(cfg, broadcaster.Publish)
	if err != nil {
		return err
	}
	defer a.Close()

	header := cfg.Strip.HeaderText
	if header == "" {
		header = strip.DefaultLayout().HeaderText
	}
	addr := fmt.Sprintf(":%d", cfg.Web.Port)
	srv, err := web.NewServer(addr, broadcaster, a.booth, web.ClientConfig{
		HeaderText:       header,
		Shots:            strip.Slots,
		CountdownSeconds: cfg.Sequence.CountdownSeconds,
		PreviewMs:        cfg.Sequence.PreviewMs,
		Targets:          a.shares.Available(),
	})
	if err != nil {
		return err
	}
	h := srv.Handlers()
	h.Library = a.library
	h.Operator = web.Operator{User: cfg.Web.OperatorUser, PasswordHash: cfg.Web.OperatorPasswordHash}
	h.Cooldown = cfg.Cooldown()

	btn := button.New(a.gpio, cfg.Button.Pin, cfg.Debounce(), cfg.PollInterval())
	if btn.Enabled() {
		debug.Info("Start button on pin %d", cfg.Button.Pin)
		go func() {
			_ = btn.Watch(ctx, func() { handlePress(ctx, a.booth) })
		}()
	}

	debug.Summary("BoothGo ready on " + addr)
	return srv.Run(ctx)
}

// pressTarget is the part of *booth.Booth the start button drives.
type pressTarget interface {
	Run(ctx context.Context) error
	Reset() error
	Snapshot() booth.Snapshot
}

// handlePress starts a session when idle and returns to the welcome
// screen when a strip is shown. Presses during a session are ignored.
func handlePress(ctx context.Context, b pressTarget) {
	switch phase := b.Snapshot().Phase; phase {
	case booth.PhaseIdle:
		debug.Info("Button: starting session")
		go func() {
			if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				debug.Error(err)
			}
		}()
	case booth.PhaseViewing:
		debug.Info("Button: reset")
		if err := b.Reset(); err != nil {
			debug.Error(err)
		}
	default:
		debug.Verbose("Button: ignored while %s", phase)
	}
}

// webPortFlag implements pflag.Value for --web: 0 = config port,
// --web= or --web 8080 → 8080, --web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) Type() string { return "port" }

func (w *webPortFlag) port() int { return w.val }
