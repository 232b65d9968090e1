package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MaxConfigFileBytes caps the size of a config file read by Load.
const MaxConfigFileBytes = 1 << 20

// Environment variables holding secrets. They are never read from YAML.
const (
	EnvSMTPPassword = "BOOTHGO_SMTP_PASSWORD"
	EnvMessageToken = "BOOTHGO_MESSAGE_TOKEN"
)

// CameraConfig describes the capture device.
// Type selects a concrete implementation ("gocv" or "mock").
type CameraConfig struct {
	Type      string `yaml:"type"`       // "gocv" (webcam through OpenCV) or "mock"
	Device    int    `yaml:"device"`     // OpenCV device index
	WidthPx   int    `yaml:"width_px"`   // requested frame width
	HeightPx  int    `yaml:"height_px"`  // requested frame height
	RotateDeg int    `yaml:"rotate_deg"` // 0, 90, 180 or 270 (clockwise)
	Mirror    bool   `yaml:"mirror"`     // flip horizontally after rotation (front camera)
}

// ButtonConfig is the optional physical start button (active LOW, pull-up).
type ButtonConfig struct {
	Pin        int `yaml:"pin"` // BCM pin. 0 = no button.
	DebounceMs int `yaml:"debounce_ms"`
	PollMs     int `yaml:"poll_ms"`
}

// FlashConfig is the optional flash light output.
type FlashConfig struct {
	Pin int `yaml:"pin"` // BCM pin driven HIGH while flashing. 0 = no light.
}

// SequenceConfig holds the countdown/shot timings.
type SequenceConfig struct {
	CountdownSeconds int `yaml:"countdown_seconds"`
	TickMs           int `yaml:"tick_ms"`
	FlashMs          int `yaml:"flash_ms"`
	PreviewMs        int `yaml:"preview_ms"`
	CooldownMs       int `yaml:"cooldown_ms"` // minimum gap between two sessions started from the web UI
}

// StripConfig holds the photostrip presentation constants.
type StripConfig struct {
	DPI             int    `yaml:"dpi"`
	HeaderText      string `yaml:"header_text"`
	FooterText      string `yaml:"footer_text"`
	BackgroundColor string `yaml:"background_color"` // #rrggbb
	BackgroundPath  string `yaml:"background_path"`  // optional PNG/JPEG stretched over the canvas
	Snow            bool   `yaml:"snow"`             // procedural snowfall when no background_path is set
}

// LibraryConfig describes where finished strips are persisted.
type LibraryConfig struct {
	Dir    string `yaml:"dir"`
	DBPath string `yaml:"db_path"`
}

// MailConfig configures the email share target.
type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	From     string `yaml:"from"`
	Subject  string `yaml:"subject"`
	Body     string `yaml:"body"`
	Password string `yaml:"-"` // from BOOTHGO_SMTP_PASSWORD
}

// MessageConfig configures the text message share target (MMS gateway webhook).
type MessageConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	Body       string `yaml:"body"`
	TimeoutMs  int    `yaml:"timeout_ms"`
	Token      string `yaml:"-"` // from BOOTHGO_MESSAGE_TOKEN
}

// ShareConfig groups the share targets.
type ShareConfig struct {
	FilePrefix string        `yaml:"file_prefix"`
	Mail       MailConfig    `yaml:"mail"`
	Message    MessageConfig `yaml:"message"`
}

// WebConfig configures the kiosk web server.
type WebConfig struct {
	Port                 int    `yaml:"port"`
	OperatorUser         string `yaml:"operator_user"`
	OperatorPasswordHash string `yaml:"operator_password_hash"` // bcrypt
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel int  `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO   bool `yaml:"mock_gpio"`   // use mock GPIO (true=dev/test, false=real Raspberry Pi)
}

// Config aggregates all application configuration.
type Config struct {
	Camera   CameraConfig   `yaml:"camera"`
	Button   ButtonConfig   `yaml:"button"`
	Flash    FlashConfig    `yaml:"flash"`
	Sequence SequenceConfig `yaml:"sequence"`
	Strip    StripConfig    `yaml:"strip"`
	Library  LibraryConfig  `yaml:"library"`
	Share    ShareConfig    `yaml:"share"`
	Web      WebConfig      `yaml:"web"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// ValidateConfigPath rejects config paths outside configs/ or not ending
// in .yaml. The path is cleaned before checking so traversal is refused.
func ValidateConfigPath(path string) error {
	if filepath.Ext(path) != ".yaml" {
		return fmt.Errorf("config path must end in .yaml: %s", path)
	}
	clean := filepath.Clean(path)
	if strings.Contains(clean, "..") {
		return fmt.Errorf("config path must not contain '..': %s", path)
	}
	if filepath.Base(filepath.Dir(clean)) != "configs" {
		return fmt.Errorf("config file must live in a configs/ directory: %s", path)
	}
	return nil
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), MaxConfigFileBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// DefaultCountdownSeconds applies when the sequence section omits
// countdown_seconds. An explicit 0 disables the countdown.
const DefaultCountdownSeconds = 3

// Parse unmarshals YAML, validates it and fills defaults. Secrets are read
// from the environment.
func Parse(data []byte) (*Config, error) {
	cfg := Config{Sequence: SequenceConfig{CountdownSeconds: DefaultCountdownSeconds}}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	if cfg.Camera.Type == "" {
		return nil, fmt.Errorf("camera.type is required")
	}
	if cfg.Camera.Type != "gocv" && cfg.Camera.Type != "mock" {
		return nil, fmt.Errorf("unsupported camera type: %s", cfg.Camera.Type)
	}
	switch cfg.Camera.RotateDeg {
	case 0, 90, 180, 270:
	default:
		return nil, fmt.Errorf("camera.rotate_deg must be 0, 90, 180 or 270, got %d", cfg.Camera.RotateDeg)
	}
	if cfg.Camera.WidthPx <= 0 {
		cfg.Camera.WidthPx = 1280
	}
	if cfg.Camera.HeightPx <= 0 {
		cfg.Camera.HeightPx = 720
	}

	if cfg.Button.Pin < 0 || cfg.Flash.Pin < 0 {
		return nil, fmt.Errorf("gpio pins must be >= 0")
	}
	if cfg.Button.DebounceMs <= 0 {
		cfg.Button.DebounceMs = 50
	}
	if cfg.Button.PollMs <= 0 {
		cfg.Button.PollMs = 10
	}

	if cfg.Sequence.CountdownSeconds < 0 || cfg.Sequence.CountdownSeconds > 30 {
		return nil, fmt.Errorf("sequence.countdown_seconds must be between 0 and 30, got %d", cfg.Sequence.CountdownSeconds)
	}
	if cfg.Sequence.TickMs <= 0 {
		cfg.Sequence.TickMs = 1000
	}
	if cfg.Sequence.FlashMs <= 0 {
		cfg.Sequence.FlashMs = 200
	}
	if cfg.Sequence.PreviewMs <= 0 {
		cfg.Sequence.PreviewMs = 500
	}
	if cfg.Sequence.CooldownMs <= 0 {
		cfg.Sequence.CooldownMs = 5000
	}

	if cfg.Strip.DPI <= 0 {
		cfg.Strip.DPI = 300
	}
	if cfg.Strip.DPI > 1200 {
		return nil, fmt.Errorf("strip.dpi must be <= 1200, got %d", cfg.Strip.DPI)
	}
	if cfg.Strip.BackgroundColor == "" {
		cfg.Strip.BackgroundColor = "#1b2a41"
	}
	if _, err := ParseHexColor(cfg.Strip.BackgroundColor); err != nil {
		return nil, fmt.Errorf("strip.background_color: %w", err)
	}

	if cfg.Library.Dir == "" {
		cfg.Library.Dir = "library"
	}
	if cfg.Library.DBPath == "" {
		cfg.Library.DBPath = filepath.Join(cfg.Library.Dir, "library.db")
	}

	if cfg.Share.FilePrefix == "" {
		cfg.Share.FilePrefix = "photobooth"
	}
	if cfg.Share.Mail.Port <= 0 {
		cfg.Share.Mail.Port = 587
	}
	if cfg.Share.Message.TimeoutMs <= 0 {
		cfg.Share.Message.TimeoutMs = 15000
	}
	cfg.Share.Mail.Password = os.Getenv(EnvSMTPPassword)
	cfg.Share.Message.Token = os.Getenv(EnvMessageToken)

	if cfg.Web.Port < 0 || cfg.Web.Port > 65535 {
		return nil, fmt.Errorf("web.port must be 0-65535, got %d", cfg.Web.Port)
	}
	if cfg.Web.Port == 0 {
		cfg.Web.Port = 8080
	}
	if cfg.Web.OperatorUser == "" {
		cfg.Web.OperatorUser = "operator"
	}

	if cfg.Defaults.DebugLevel < 0 || cfg.Defaults.DebugLevel > 4 {
		return nil, fmt.Errorf("defaults.debug_level must be 0-4, got %d", cfg.Defaults.DebugLevel)
	}

	return &cfg, nil
}

// Countdown returns the countdown length before each shot.
func (c *Config) Countdown() time.Duration {
	return time.Duration(c.Sequence.CountdownSeconds) * time.Second
}

// Tick returns the countdown tick interval.
func (c *Config) Tick() time.Duration {
	return time.Duration(c.Sequence.TickMs) * time.Millisecond
}

// FlashDuration returns how long the flash stays on after a shot.
func (c *Config) FlashDuration() time.Duration {
	return time.Duration(c.Sequence.FlashMs) * time.Millisecond
}

// PreviewDuration returns how long the last shot is shown.
func (c *Config) PreviewDuration() time.Duration {
	return time.Duration(c.Sequence.PreviewMs) * time.Millisecond
}

// Cooldown returns the minimum gap between two web-triggered sessions.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Sequence.CooldownMs) * time.Millisecond
}

// Debounce returns the button debounce interval.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Button.DebounceMs) * time.Millisecond
}

// PollInterval returns the button polling interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Button.PollMs) * time.Millisecond
}

// MessageTimeout returns the HTTP timeout for the message webhook.
func (c *Config) MessageTimeout() time.Duration {
	return time.Duration(c.Share.Message.TimeoutMs) * time.Millisecond
}
