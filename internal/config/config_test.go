package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.VAD.Sensitivity != 0.02 {
		t.Fatalf("sensitivity = %g, want 0.02", cfg.VAD.Sensitivity)
	}
	if cfg.VAD.SilenceTimeoutMs != 1280 {
		t.Fatalf("silence_timeout_ms = %d, want 1280", cfg.VAD.SilenceTimeoutMs)
	}
	if cfg.Speaker.RecognitionThreshold != 0.70 {
		t.Fatalf("recognition_threshold = %g, want 0.70", cfg.Speaker.RecognitionThreshold)
	}
	if cfg.Speaker.EnrollmentSamples != 3 {
		t.Fatalf("enrollment_samples = %d, want 3", cfg.Speaker.EnrollmentSamples)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero sensitivity", func(c *Config) { c.VAD.Sensitivity = 0 }},
		{"sensitivity too high", func(c *Config) { c.VAD.Sensitivity = 1.5 }},
		{"silence timeout too short", func(c *Config) { c.VAD.SilenceTimeoutMs = 50 }},
		{"silence timeout too long", func(c *Config) { c.VAD.SilenceTimeoutMs = 60000 }},
		{"max utterance below timeout", func(c *Config) { c.VAD.MaxUtteranceMs = 1000 }},
		{"negative min speech", func(c *Config) { c.VAD.MinSpeechMs = -1 }},
		{"threshold out of range", func(c *Config) { c.Speaker.RecognitionThreshold = 1.2 }},
		{"one enrollment sample", func(c *Config) { c.Speaker.EnrollmentSamples = 1 }},
		{"consistency floor too high", func(c *Config) { c.Speaker.ConsistencyFloor = 1.0 }},
		{"zero sample rate", func(c *Config) { c.Audio.SampleRate = 0 }},
		{"bad output format", func(c *Config) { c.Output.Format = "xml" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("Validate accepted bad config")
			}
		})
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
vad:
  sensitivity: 0.05
  silence_timeout_ms: 2000
  max_utterance_ms: 20000
speaker:
  recognition_threshold: 0.80
output:
  format: json
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.VAD.Sensitivity != 0.05 {
		t.Fatalf("sensitivity = %g, want 0.05", cfg.VAD.Sensitivity)
	}
	if cfg.VAD.SilenceTimeoutMs != 2000 {
		t.Fatalf("silence_timeout_ms = %d, want 2000", cfg.VAD.SilenceTimeoutMs)
	}
	if cfg.Speaker.RecognitionThreshold != 0.80 {
		t.Fatalf("recognition_threshold = %g, want 0.80", cfg.Speaker.RecognitionThreshold)
	}
	if cfg.Output.Format != "json" {
		t.Fatalf("format = %q, want json", cfg.Output.Format)
	}
	// Unspecified fields keep their defaults.
	if cfg.Speaker.EnrollmentSamples != 3 {
		t.Fatalf("enrollment_samples = %d, want default 3", cfg.Speaker.EnrollmentSamples)
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("vad:\n  sensitivity: 5.0\n"), 0644)

	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted out-of-range sensitivity")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.VAD.Sensitivity = 0.03
	cfg.Audio.Device = "USB Mic"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.VAD.Sensitivity != 0.03 {
		t.Fatalf("sensitivity = %g, want 0.03", got.VAD.Sensitivity)
	}
	if got.Audio.Device != "USB Mic" {
		t.Fatalf("device = %q, want USB Mic", got.Audio.Device)
	}
}

func TestLoadWithFallbackDefaults(t *testing.T) {
	// With no explicit path and no config files present, defaults win.
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadWithFallback("")
	if err != nil {
		t.Fatalf("LoadWithFallback: %v", err)
	}
	if cfg.VAD.Sensitivity != 0.02 {
		t.Fatalf("sensitivity = %g, want default 0.02", cfg.VAD.Sensitivity)
	}
}
