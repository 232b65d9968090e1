package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/cjeanneret/BoothGo/internal/config"
	"github.com/cjeanneret/BoothGo/internal/hw/camera"
	"github.com/cjeanneret/BoothGo/internal/logic/booth"
	"github.com/cjeanneret/BoothGo/internal/logic/strip"
)

// ---------- webPortFlag ----------

func TestWebPortFlag_EmptyString(t *testing.T) {
	w := &webPortFlag{defaultPort: 8080}
	if err := w.Set(""); err != nil {
		t.Fatalf("Set(\"\") error: %v", err)
	}
	if w.port() != 8080 {
		t.Errorf("expected default port 8080, got %d", w.port())
	}
}

func TestWebPortFlag_ValidPorts(t *testing.T) {
	cases := []struct {
		input string
		want  int
	}{
		{"8080", 8080},
		{"1", 1},
		{"65535", 65535},
		{"3000", 3000},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			w := &webPortFlag{defaultPort: 8080}
			if err := w.Set(tc.input); err != nil {
				t.Fatalf("Set(%q) error: %v", tc.input, err)
			}
			if w.port() != tc.want {
				t.Errorf("port() = %d, want %d", w.port(), tc.want)
			}
		})
	}
}

func TestWebPortFlag_InvalidPorts(t *testing.T) {
	cases := []string{"0", "65536", "-1", "abc", "8080.5"}
	for _, input := range cases {
		t.Run(input, func(t *testing.T) {
			w := &webPortFlag{defaultPort: 8080}
			if err := w.Set(input); err == nil {
				t.Errorf("Set(%q) should fail, got nil", input)
			}
		})
	}
}

func TestWebPortFlag_StringAndType(t *testing.T) {
	w := &webPortFlag{val: 0}
	if s := w.String(); s != "0" {
		t.Errorf("String() = %q, want \"0\"", s)
	}
	w.val = 9090
	if s := w.String(); s != "9090" {
		t.Errorf("String() = %q, want \"9090\"", s)
	}
	if w.Type() != "port" {
		t.Errorf("Type() = %q, want port", w.Type())
	}
}

func TestServeCmd_WebFlagWithoutValue(t *testing.T) {
	cmd := newServeCmd(new(string))
	if err := cmd.Flags().Parse([]string{"--web"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := cmd.Flags().Lookup("web").Value.String(); got != "8080" {
		t.Errorf("--web alone = %q, want 8080", got)
	}
}

// ---------- countdown override ----------

func TestApplyCountdown(t *testing.T) {
	cases := []struct {
		name    string
		args    []string
		want    int
		wantErr bool
	}{
		{"not_given", nil, 3, false},
		{"zero", []string{"--countdown", "0"}, 0, false},
		{"max", []string{"--countdown", "30"}, 30, false},
		{"too_large", []string{"--countdown", "31"}, 3, true},
		{"negative", []string{"--countdown=-1"}, 3, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var v int
			cmd := &cobra.Command{Use: "x"}
			addCountdownFlag(cmd, &v)
			if err := cmd.Flags().Parse(tc.args); err != nil {
				t.Fatalf("parse: %v", err)
			}
			cfg := &config.Config{Sequence: config.SequenceConfig{CountdownSeconds: 3}}
			err := applyCountdown(cmd, cfg, v)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if cfg.Sequence.CountdownSeconds != tc.want {
				t.Errorf("countdown = %d, want %d", cfg.Sequence.CountdownSeconds, tc.want)
			}
		})
	}
}

// ---------- config to components ----------

func newTestConfig(t *testing.T, yaml string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	return cfg
}

func TestStripLayout_Defaults(t *testing.T) {
	cfg := newTestConfig(t, "camera:\n  type: mock\n")
	l, err := stripLayout(cfg)
	if err != nil {
		t.Fatalf("stripLayout: %v", err)
	}
	def := strip.DefaultLayout()
	if l.DPI != 300 || l.HeaderText != def.HeaderText || l.FooterText != def.FooterText {
		t.Errorf("layout = dpi %v header %q footer %q, want defaults", l.DPI, l.HeaderText, l.FooterText)
	}
	if l.BackgroundImage != nil {
		t.Error("no background image expected")
	}
	want := color.NRGBA{R: 0x1b, G: 0x2a, B: 0x41, A: 0xff}
	if l.Background != want {
		t.Errorf("background = %v, want %v", l.Background, want)
	}
}

func TestStripLayout_Overrides(t *testing.T) {
	cfg := newTestConfig(t, `
camera:
  type: mock
strip:
  dpi: 100
  header_text: "A & B"
  footer_text: "line one\nline two"
  background_color: "#ff0000"
  snow: true
`)
	l, err := stripLayout(cfg)
	if err != nil {
		t.Fatalf("stripLayout: %v", err)
	}
	if l.HeaderText != "A & B" || l.FooterText != "line one\nline two" {
		t.Errorf("texts = %q / %q", l.HeaderText, l.FooterText)
	}
	if l.Background != (color.NRGBA{R: 0xff, A: 0xff}) {
		t.Errorf("background = %v", l.Background)
	}
	if l.BackgroundImage == nil {
		t.Fatal("snow background expected")
	}
	if b := l.BackgroundImage.Bounds(); b.Dx() != 200 || b.Dy() != 600 {
		t.Errorf("snow size = %v, want 200x600", b)
	}
}

func TestStripLayout_BackgroundFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bg.png")
	writePNG(t, path, 20, 60, color.RGBA{G: 0xff, A: 0xff})

	cfg := newTestConfig(t, "camera:\n  type: mock\n")
	cfg.Strip.BackgroundPath = path
	l, err := stripLayout(cfg)
	if err != nil {
		t.Fatalf("stripLayout: %v", err)
	}
	if l.BackgroundImage == nil || l.BackgroundImage.Bounds().Dx() != 20 {
		t.Errorf("background image not loaded: %v", l.BackgroundImage)
	}

	cfg.Strip.BackgroundPath = filepath.Join(dir, "missing.png")
	if _, err := stripLayout(cfg); err == nil {
		t.Error("missing background file should fail")
	}
}

func TestNewCameraFromConfig(t *testing.T) {
	cfg := newTestConfig(t, "camera:\n  type: mock\n  width_px: 64\n  height_px: 48\n  rotate_deg: 90\n")
	c, err := newCameraFromConfig(cfg)
	if err != nil {
		t.Fatalf("newCameraFromConfig: %v", err)
	}
	if _, ok := c.(*camera.Mock); !ok {
		t.Fatalf("camera = %T, want *camera.Mock", c)
	}
	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer c.Stop()
	img, err := c.Capture(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 48 || b.Dy() != 64 {
		t.Errorf("rotated frame = %v, want 48x64", b)
	}

	cfg.Camera.Type = "nikon"
	if _, err := newCameraFromConfig(cfg); err == nil {
		t.Error("unsupported camera type should fail")
	}
}

func TestSequenceParams(t *testing.T) {
	cfg := newTestConfig(t, `
camera:
  type: mock
sequence:
  countdown_seconds: 5
  tick_ms: 500
  flash_ms: 100
  preview_ms: 2000
`)
	p := sequenceParams(cfg)
	if p.Shots != strip.Slots {
		t.Errorf("shots = %d, want %d", p.Shots, strip.Slots)
	}
	if p.Countdown != 5*time.Second || p.Tick != 500*time.Millisecond ||
		p.FlashDuration != 100*time.Millisecond || p.PreviewDuration != 2*time.Second {
		t.Errorf("params = %+v", p)
	}
}

func TestShareRegistry(t *testing.T) {
	cfg := newTestConfig(t, "camera:\n  type: mock\n")
	r := shareRegistry(cfg)
	if got := strings.Join(r.Names(), ","); got != "mail,message" {
		t.Errorf("names = %q", got)
	}
	if len(r.Available()) != 0 {
		t.Errorf("nothing configured, available = %v", r.Available())
	}

	cfg = newTestConfig(t, `
camera:
  type: mock
share:
  mail:
    host: smtp.example.com
    from: booth@example.com
  message:
    webhook_url: https://gateway.example.com/send
`)
	r = shareRegistry(cfg)
	if got := strings.Join(r.Available(), ","); got != "mail,message" {
		t.Errorf("available = %q, want both targets", got)
	}
}

// ---------- start button ----------

type fakePressTarget struct {
	mu     sync.Mutex
	phase  booth.Phase
	runs   chan struct{}
	resets int
}

func (f *fakePressTarget) Run(ctx context.Context) error {
	f.runs <- struct{}{}
	return nil
}

func (f *fakePressTarget) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return nil
}

func (f *fakePressTarget) Snapshot() booth.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return booth.Snapshot{Phase: f.phase}
}

func TestHandlePress(t *testing.T) {
	ctx := context.Background()

	t.Run("idle_starts_session", func(t *testing.T) {
		f := &fakePressTarget{phase: booth.PhaseIdle, runs: make(chan struct{}, 1)}
		handlePress(ctx, f)
		select {
		case <-f.runs:
		case <-time.After(time.Second):
			t.Fatal("Run was not called")
		}
	})

	t.Run("viewing_resets", func(t *testing.T) {
		f := &fakePressTarget{phase: booth.PhaseViewing, runs: make(chan struct{}, 1)}
		handlePress(ctx, f)
		if f.resets != 1 {
			t.Errorf("resets = %d, want 1", f.resets)
		}
		if len(f.runs) != 0 {
			t.Error("Run should not be called while viewing")
		}
	})

	for _, p := range []booth.Phase{booth.PhaseShooting, booth.PhaseComposing} {
		t.Run(string(p)+"_ignored", func(t *testing.T) {
			f := &fakePressTarget{phase: p, runs: make(chan struct{}, 1)}
			handlePress(ctx, f)
			if f.resets != 0 || len(f.runs) != 0 {
				t.Errorf("press during %s should be ignored", p)
			}
		})
	}
}

// ---------- commands ----------

func writePNG(t *testing.T, path string, w, h int, c color.Color) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

// writeConfig writes a mock-camera config under dir/configs and returns
// its path.
func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	cfgDir := filepath.Join(dir, "configs")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	yaml := `
camera:
  type: mock
  width_px: 64
  height_px: 48
sequence:
  tick_ms: 1
  flash_ms: 1
  preview_ms: 1
strip:
  dpi: 100
library:
  dir: ` + filepath.Join(dir, "library") + `
defaults:
  mock_gpio: true
`
	path := filepath.Join(cfgDir, "test.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestComposeCmd(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)
	var inputs []string
	for i, c := range []color.Color{
		color.RGBA{R: 0xff, A: 0xff},
		color.RGBA{G: 0xff, A: 0xff},
		color.RGBA{B: 0xff, A: 0xff},
	} {
		p := filepath.Join(dir, "in"+string(rune('1'+i))+".png")
		writePNG(t, p, 40, 30, c)
		inputs = append(inputs, p)
	}
	out := filepath.Join(dir, "strip.jpg")

	args := append([]string{"compose"}, inputs...)
	args = append(args, "--config", cfgPath, "--out", out)
	if _, err := execute(t, args...); err != nil {
		t.Fatalf("compose: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := jpeg.Decode(f)
	if err != nil {
		t.Fatalf("decode strip: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 600 {
		t.Errorf("strip size = %v, want 200x600", b)
	}
}

func TestComposeCmd_WrongArgCount(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)
	if _, err := execute(t, "compose", "a.png", "b.png", "--config", cfgPath); err == nil {
		t.Error("two images should be rejected")
	}
}

func TestComposeCmd_MissingImage(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)
	_, err := execute(t, "compose", "a.png", "b.png", "c.png", "--config", cfgPath, "--out", filepath.Join(dir, "s.jpg"))
	if err == nil {
		t.Error("missing inputs should fail")
	}
}

func TestRootCmd_RejectsConfigOutsideConfigsDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "other.yaml")
	if err := os.WriteFile(path, []byte("camera:\n  type: mock\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "compose", "a", "b", "c", "--config", path); err == nil {
		t.Error("config outside configs/ should be rejected")
	}
}

func TestShootCmd(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)
	outDir := filepath.Join(dir, "out")

	stdout, err := execute(t, "shoot", "--config", cfgPath, "--countdown", "0", "--out", outDir)
	if err != nil {
		t.Fatalf("shoot: %v\n%s", err, stdout)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1+strip.Slots {
		t.Fatalf("wrote %d files, want strip plus %d originals", len(entries), strip.Slots)
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "photobooth-") || !strings.HasSuffix(e.Name(), ".jpg") {
			t.Errorf("unexpected file name %q", e.Name())
		}
	}
	if !strings.Contains(stdout, "shot 3/3: 0") {
		t.Errorf("countdown not printed: %q", stdout)
	}

	saved, err := filepath.Glob(filepath.Join(dir, "library", "strip-*.jpg"))
	if err != nil {
		t.Fatal(err)
	}
	if len(saved) != 1 {
		t.Errorf("library holds %d strips, want 1", len(saved))
	}
}
