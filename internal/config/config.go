package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	// Model settings
	Models struct {
		// Dir is the root directory for downloaded models
		Dir string `yaml:"dir"`
		// STT is the Vosk model name or path
		STT string `yaml:"stt"`
		// Speaker is the speaker embedding ONNX model path
		Speaker string `yaml:"speaker"`
	} `yaml:"models"`

	// VAD settings
	VAD struct {
		Sensitivity      float64 `yaml:"sensitivity"`
		SilenceTimeoutMs int     `yaml:"silence_timeout_ms"`
		MaxUtteranceMs   int     `yaml:"max_utterance_ms"`
		MinSpeechMs      int     `yaml:"min_speech_ms"`
	} `yaml:"vad"`

	// Speaker recognition settings
	Speaker struct {
		Enabled              bool    `yaml:"enabled"`
		RecognitionThreshold float64 `yaml:"recognition_threshold"`
		RecognitionGraceMs   int     `yaml:"recognition_grace_ms"`
		EnrollmentSamples    int     `yaml:"enrollment_samples"`
		ConsistencyFloor     float64 `yaml:"consistency_floor"`
		// StoreDir is the voice print database directory
		StoreDir string `yaml:"store_dir"`
	} `yaml:"speaker"`

	// Audio settings
	Audio struct {
		Device     string `yaml:"device"`
		SampleRate int    `yaml:"sample_rate"`
		FrameSize  int    `yaml:"frame_size"`
	} `yaml:"audio"`

	// Hotkey settings
	Hotkeys struct {
		Enabled bool   `yaml:"enabled"`
		Toggle  string `yaml:"toggle"`
		Cancel  string `yaml:"cancel"`
	} `yaml:"hotkeys"`

	// Output settings
	Output struct {
		Format string `yaml:"format"`
		File   string `yaml:"file"`
	} `yaml:"output"`

	// TTS settings
	TTS struct {
		Enabled bool   `yaml:"enabled"`
		Command string `yaml:"command"`
	} `yaml:"tts"`

	// Server settings
	Server struct {
		Port      int    `yaml:"port"`
		Host      string `yaml:"host"`
		EnableTLS bool   `yaml:"enable_tls"`
		CertFile  string `yaml:"cert_file"`
		KeyFile   string `yaml:"key_file"`
	} `yaml:"server"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Model defaults
	cfg.Models.Dir = defaultModelsDir()
	cfg.Models.STT = ""
	cfg.Models.Speaker = ""

	// VAD defaults
	cfg.VAD.Sensitivity = 0.02
	cfg.VAD.SilenceTimeoutMs = 1280
	cfg.VAD.MaxUtteranceMs = 30000
	cfg.VAD.MinSpeechMs = 96

	// Speaker defaults
	cfg.Speaker.Enabled = true
	cfg.Speaker.RecognitionThreshold = 0.70
	cfg.Speaker.RecognitionGraceMs = 500
	cfg.Speaker.EnrollmentSamples = 3
	cfg.Speaker.ConsistencyFloor = 0.60
	cfg.Speaker.StoreDir = defaultStoreDir()

	// Audio defaults
	cfg.Audio.Device = ""
	cfg.Audio.SampleRate = 16000
	cfg.Audio.FrameSize = 512

	// Hotkey defaults
	cfg.Hotkeys.Enabled = false
	cfg.Hotkeys.Toggle = "ctrl+shift+space"
	cfg.Hotkeys.Cancel = "ctrl+shift+x"

	// Output defaults
	cfg.Output.Format = "console"
	cfg.Output.File = ""

	// TTS defaults
	cfg.TTS.Enabled = false
	cfg.TTS.Command = ""

	// Server defaults
	cfg.Server.Port = 8080
	cfg.Server.Host = "localhost"
	cfg.Server.EnableTLS = false

	return cfg
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithFallback attempts to load configuration from multiple locations
// Priority: explicit path > ~/.ariarc > /etc/aria/config.yaml
func LoadWithFallback(explicitPath string) (*Config, error) {
	// If explicit path is provided, use it
	if explicitPath != "" {
		return Load(explicitPath)
	}

	// Try user config (~/.ariarc)
	homeDir, err := os.UserHomeDir()
	if err == nil {
		userConfigPath := filepath.Join(homeDir, ".ariarc")
		if _, err := os.Stat(userConfigPath); err == nil {
			cfg, err := Load(userConfigPath)
			if err == nil {
				return cfg, nil
			}
		}
	}

	// Try system config (/etc/aria/config.yaml)
	systemConfigPath := "/etc/aria/config.yaml"
	if _, err := os.Stat(systemConfigPath); err == nil {
		cfg, err := Load(systemConfigPath)
		if err == nil {
			return cfg, nil
		}
	}

	// No config file found, return defaults
	return DefaultConfig(), nil
}

// Validate checks that tunable values are in their usable ranges.
func (c *Config) Validate() error {
	if c.VAD.Sensitivity <= 0 || c.VAD.Sensitivity >= 1 {
		return fmt.Errorf("vad.sensitivity must be in (0, 1), got %g", c.VAD.Sensitivity)
	}
	if c.VAD.SilenceTimeoutMs < 100 || c.VAD.SilenceTimeoutMs > 10000 {
		return fmt.Errorf("vad.silence_timeout_ms must be in [100, 10000], got %d", c.VAD.SilenceTimeoutMs)
	}
	if c.VAD.MaxUtteranceMs <= c.VAD.SilenceTimeoutMs {
		return fmt.Errorf("vad.max_utterance_ms (%d) must exceed silence_timeout_ms (%d)",
			c.VAD.MaxUtteranceMs, c.VAD.SilenceTimeoutMs)
	}
	if c.VAD.MinSpeechMs < 0 {
		return fmt.Errorf("vad.min_speech_ms must not be negative, got %d", c.VAD.MinSpeechMs)
	}
	if c.Speaker.RecognitionThreshold <= 0 || c.Speaker.RecognitionThreshold >= 1 {
		return fmt.Errorf("speaker.recognition_threshold must be in (0, 1), got %g",
			c.Speaker.RecognitionThreshold)
	}
	if c.Speaker.EnrollmentSamples < 2 {
		return fmt.Errorf("speaker.enrollment_samples must be at least 2, got %d",
			c.Speaker.EnrollmentSamples)
	}
	if c.Speaker.ConsistencyFloor < 0 || c.Speaker.ConsistencyFloor >= 1 {
		return fmt.Errorf("speaker.consistency_floor must be in [0, 1), got %g",
			c.Speaker.ConsistencyFloor)
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate)
	}
	if c.Audio.FrameSize <= 0 {
		return fmt.Errorf("audio.frame_size must be positive, got %d", c.Audio.FrameSize)
	}
	switch c.Output.Format {
	case "console", "text", "json":
	default:
		return fmt.Errorf("output.format must be console, text, or json, got %q", c.Output.Format)
	}
	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func defaultModelsDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "models")
	}
	return filepath.Join(homeDir, ".aria", "models")
}

func defaultStoreDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "voiceprints")
	}
	return filepath.Join(homeDir, ".aria", "voiceprints")
}
