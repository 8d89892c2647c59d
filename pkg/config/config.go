// Package config describes the tunables of a detection pipeline and how
// they are loaded from a YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

type WebRTCVAD struct {
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Mode is the detector aggressiveness in [0, 3].
	Mode int `yaml:"mode" json:"mode"`

	// MinVoicedRatio is the share of voiced frames required to confirm
	// a window as speech.
	MinVoicedRatio float64 `yaml:"min_voiced_ratio" json:"min_voiced_ratio"`
}

type Config struct {
	SampleRate     uint32    `yaml:"sample_rate" json:"sample_rate"`
	WindowSec      float64   `yaml:"window_sec" json:"window_sec"`
	HopSec         float64   `yaml:"hop_sec" json:"hop_sec"`
	EMAAlpha       float64   `yaml:"ema_alpha" json:"ema_alpha"`
	VADThresholdDB float64   `yaml:"vad_threshold_db" json:"vad_threshold_db"`
	AlertThreshold float64   `yaml:"alert_threshold" json:"alert_threshold"`
	AlertHoldSec   float64   `yaml:"alert_hold_sec" json:"alert_hold_sec"`
	WebRTCVAD      WebRTCVAD `yaml:"webrtc_vad" json:"webrtc_vad"`
	ReportsDir     string    `yaml:"reports_dir" json:"reports_dir"`
}

func Default() Config {
	return Config{
		SampleRate:     16000,
		WindowSec:      2.0,
		HopSec:         0.5,
		EMAAlpha:       0.35,
		VADThresholdDB: -45,
		AlertThreshold: 0.80,
		AlertHoldSec:   3.0,
		WebRTCVAD: WebRTCVAD{
			Enabled:        false,
			Mode:           2,
			MinVoicedRatio: 0.3,
		},
		ReportsDir: "reports",
	}
}

// Profile is a named operator preset of the alert threshold.
type Profile string

const (
	ProfileCall   = Profile("call")
	ProfileNoisy  = Profile("noisy")
	ProfileStudio = Profile("studio")
)

var profileThresholds = map[Profile]float64{
	ProfileCall:   0.78,
	ProfileNoisy:  0.82,
	ProfileStudio: 0.85,
}

func Profiles() []Profile {
	result := make([]Profile, 0, len(profileThresholds))
	for profile := range profileThresholds {
		result = append(result, profile)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i] < result[j]
	})
	return result
}

func (p Profile) AlertThreshold() (float64, error) {
	threshold, ok := profileThresholds[p]
	if !ok {
		return 0, fmt.Errorf("unknown profile '%s', known profiles: %v", p, Profiles())
	}
	return threshold, nil
}

func (cfg *Config) ApplyProfile(p Profile) error {
	threshold, err := p.AlertThreshold()
	if err != nil {
		return err
	}
	cfg.AlertThreshold = threshold
	return nil
}

// Validate returns every problem found in the config at once.
func (cfg Config) Validate() error {
	var result *multierror.Error

	if cfg.SampleRate == 0 {
		result = multierror.Append(result, fmt.Errorf("sample_rate must be greater than 0"))
	}
	if !isPositive(cfg.WindowSec) {
		result = multierror.Append(result, fmt.Errorf("window_sec must be a positive number, but is %v", cfg.WindowSec))
	}
	if !isPositive(cfg.HopSec) {
		result = multierror.Append(result, fmt.Errorf("hop_sec must be a positive number, but is %v", cfg.HopSec))
	}
	if !(cfg.EMAAlpha > 0 && cfg.EMAAlpha <= 1) {
		result = multierror.Append(result, fmt.Errorf("ema_alpha must be within (0, 1], but is %v", cfg.EMAAlpha))
	}
	if math.IsNaN(cfg.VADThresholdDB) || math.IsInf(cfg.VADThresholdDB, 0) {
		result = multierror.Append(result, fmt.Errorf("vad_threshold_db must be finite, but is %v", cfg.VADThresholdDB))
	}
	if !(cfg.AlertThreshold >= 0 && cfg.AlertThreshold <= 1) {
		result = multierror.Append(result, fmt.Errorf("alert_threshold must be within [0, 1], but is %v", cfg.AlertThreshold))
	}
	if !(cfg.AlertHoldSec >= 0) || math.IsInf(cfg.AlertHoldSec, 0) {
		result = multierror.Append(result, fmt.Errorf("alert_hold_sec must be a non-negative number, but is %v", cfg.AlertHoldSec))
	}
	if cfg.WebRTCVAD.Enabled {
		if cfg.WebRTCVAD.Mode < 0 || cfg.WebRTCVAD.Mode > 3 {
			result = multierror.Append(result, fmt.Errorf("webrtc_vad.mode must be within [0, 3], but is %d", cfg.WebRTCVAD.Mode))
		}
		if !(cfg.WebRTCVAD.MinVoicedRatio >= 0 && cfg.WebRTCVAD.MinVoicedRatio <= 1) {
			result = multierror.Append(result, fmt.Errorf("webrtc_vad.min_voiced_ratio must be within [0, 1], but is %v", cfg.WebRTCVAD.MinVoicedRatio))
		}
	}

	return result.ErrorOrNil()
}

func isPositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// Load reads a YAML config; fields absent in the input keep their
// default values.
func Load(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("unable to decode YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFile is Load for a file path; a non-existent file yields the
// default config.
func LoadFile(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("unable to read '%s': %w", path, err)
	}
	cfg, err := Load(bytes.NewReader(b))
	if err != nil {
		return Config{}, fmt.Errorf("unable to load '%s': %w", path, err)
	}
	return cfg, nil
}

// Bytes returns the YAML representation of the config.
func (cfg Config) Bytes() []byte {
	b, err := yaml.Marshal(cfg)
	if err != nil {
		panic(err)
	}
	return b
}
