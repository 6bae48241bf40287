// Package config loads teleoperation settings from a YAML file, a
// .env file, and environment variables, in rising precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/armkit/go-armteleop/pkg/arm"
	"github.com/armkit/go-armteleop/pkg/input"
	"github.com/armkit/go-armteleop/pkg/safety"
	"github.com/armkit/go-armteleop/pkg/teleop"
)

// DefaultPath is the config file consulted when none is given.
const DefaultPath = "robot.yaml"

// RobotConfig locates the arm's control daemon.
type RobotConfig struct {
	Host  string `yaml:"host"`
	Port  int    `yaml:"port"`
	Model string `yaml:"model"`
}

// ControlConfig tunes the control loop.
type ControlConfig struct {
	RateHz         float64 `yaml:"rate_hz"`
	Mode           string  `yaml:"mode"`
	SmoothingAlpha float64 `yaml:"smoothing_alpha"`
	MaxFailures    int     `yaml:"max_failures"`

	// JointAxes maps each joint to an input axis for joint mode,
	// -1 for unmapped. Empty means identity.
	JointAxes []int `yaml:"joint_axes"`
}

// SpeedConfig sets the starting profile and its envelope.
type SpeedConfig struct {
	Initial  teleop.Profile         `yaml:"initial"`
	Envelope teleop.ProfileEnvelope `yaml:"envelope"`
}

// InputConfig selects and tunes the operator device.
type InputConfig struct {
	// Device is "keyboard" or "gamepad".
	Device string `yaml:"device"`

	// HoldWindowMS overrides the keyboard hold window.
	HoldWindowMS int `yaml:"hold_window_ms"`

	// Keymap overrides individual key bindings, key name to action.
	Keymap map[string]string `yaml:"keymap"`

	Gamepad input.GamepadConfig `yaml:"gamepad"`
}

// WebConfig controls the dashboard server.
type WebConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Config is the full runtime configuration.
type Config struct {
	Robot   RobotConfig   `yaml:"robot"`
	Control ControlConfig `yaml:"control"`
	Speeds  SpeedConfig   `yaml:"speeds"`
	Limits  safety.Limits `yaml:"limits"`
	Input   InputConfig   `yaml:"input"`
	Web     WebConfig     `yaml:"web"`
}

// Default returns the stock configuration. The robot host has no
// default; it must come from the file or ARM_HOST.
func Default() Config {
	return Config{
		Robot: RobotConfig{
			Port:  8080,
			Model: "RM65",
		},
		Control: ControlConfig{
			RateHz:         teleop.DefaultRate,
			Mode:           string(teleop.ModeCartesian),
			SmoothingAlpha: teleop.DefaultSmoothingAlpha,
			MaxFailures:    teleop.DefaultMaxFailures,
		},
		Speeds: SpeedConfig{
			Initial:  teleop.DefaultProfile(),
			Envelope: teleop.DefaultEnvelope(),
		},
		Limits: safety.DefaultLimits(),
		Input: InputConfig{
			Device:  "keyboard",
			Gamepad: input.DefaultGamepadConfig(),
		},
		Web: WebConfig{
			Enabled: true,
			Addr:    ":8089",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file, then
// the environment. A missing file is an error only when the path was
// given explicitly.
func Load(path string) (Config, error) {
	// .env feeds the process environment for local development.
	_ = godotenv.Load()

	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// No file, run on defaults and environment.
	default:
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays the ARM_* environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("ARM_HOST"); v != "" {
		c.Robot.Host = v
	}
	if v := os.Getenv("ARM_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Robot.Port = port
		}
	}
	if v := os.Getenv("ARM_MODEL"); v != "" {
		c.Robot.Model = v
	}
	if v := os.Getenv("ARM_INPUT"); v != "" {
		c.Input.Device = v
	}
	if v := os.Getenv("ARM_WEB_ADDR"); v != "" {
		c.Web.Addr = v
	}
}

// Validate enforces the startup rules. Invalid configuration refuses
// the session rather than running degraded.
func (c Config) Validate() error {
	if c.Robot.Host == "" {
		return errors.New("config: robot host is required (set robot.host or ARM_HOST)")
	}
	if c.Robot.Port <= 0 || c.Robot.Port > 65535 {
		return fmt.Errorf("config: invalid robot port %d", c.Robot.Port)
	}
	if _, err := c.Model(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Control.RateHz <= 0 || c.Control.RateHz > 1000 {
		return fmt.Errorf("config: control rate %v Hz out of range", c.Control.RateHz)
	}
	if mode := teleop.Mode(c.Control.Mode); !mode.Valid() {
		return fmt.Errorf("config: unknown control mode %q", c.Control.Mode)
	}
	switch c.Input.Device {
	case "keyboard", "gamepad":
	default:
		return fmt.Errorf("config: unknown input device %q", c.Input.Device)
	}
	if err := c.Limits.Validate(); err != nil {
		return err
	}
	return nil
}

// Model resolves the configured arm model.
func (c Config) Model() (arm.Model, error) {
	return arm.ModelByName(c.Robot.Model)
}

// Keymap converts the configured key bindings, overlaying them on the
// defaults. Returns the default map when nothing is configured.
func (c Config) Keymap() map[string]input.Action {
	keymap := input.DefaultKeymap()
	for key, action := range c.Input.Keymap {
		keymap[key] = input.Action(action)
	}
	return keymap
}
