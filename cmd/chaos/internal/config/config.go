// Package config loads the robot daemon's configuration.
//
// Values come from three layers, lowest priority first: built-in defaults,
// an optional YAML file, and CHAOS_* environment variables. A .env file in
// the working directory is folded into the environment before resolution,
// so a bench setup is one file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// Config is the full daemon configuration.
type Config struct {
	// Audio input.
	MicIndex     int `yaml:"mic_index"`
	MicRate      int `yaml:"mic_rate"`
	ModelRate    int `yaml:"model_rate"`
	ChunkSamples int `yaml:"chunk_samples"`

	// Audio output.
	SpeakerRate int `yaml:"speaker_rate"`

	// Wake phrase.
	WakeProfile   string  `yaml:"wake_profile"`
	WakeThreshold float64 `yaml:"wake_threshold"`
	WakeWindow    int     `yaml:"wake_window"`

	// Interaction.
	CaptureSeconds int `yaml:"capture_seconds"`

	// Chassis.
	SerialPort   string `yaml:"serial_port"`
	CANInterface string `yaml:"can_interface"`
	StubHardware bool   `yaml:"stub_hardware"`

	// Models.
	LLMBackend      string `yaml:"llm_backend"` // "openai" or "genai"
	OpenAIKey       string `yaml:"openai_key"`
	OpenAIBaseURL   string `yaml:"openai_base_url"`
	ChatModel       string `yaml:"chat_model"`
	TranscribeModel string `yaml:"transcribe_model"`
	GeminiKey       string `yaml:"gemini_key"`
	GeminiModel     string `yaml:"gemini_model"`

	// Storage.
	DataDir string `yaml:"data_dir"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		MicIndex:       -1,
		MicRate:        48000,
		ModelRate:      16000,
		ChunkSamples:   1280,
		SpeakerRate:    48000,
		WakeProfile:    "default",
		WakeThreshold:  0.82,
		WakeWindow:     12,
		CaptureSeconds: 3,
		SerialPort:     "/dev/ttyUSB0",
		CANInterface:   "can0",
		LLMBackend:     "openai",
		DataDir:        "/var/lib/chaos",
	}
}

// Load resolves the configuration. file may be empty; a missing .env is not
// an error.
func Load(file string) (*Config, error) {
	// Ignore the error: no .env is the common case.
	_ = godotenv.Load()

	cfg := Default()
	if file != "" {
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", file, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", file, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from CHAOS_* variables. Environment wins over
// the file.
func (c *Config) applyEnv() error {
	var err error
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		v, ok := os.LookupEnv(key)
		if !ok {
			return
		}
		n, perr := strconv.Atoi(v)
		if perr != nil {
			err = fmt.Errorf("config: %s=%q is not an integer", key, v)
			return
		}
		*dst = n
	}
	flt := func(key string, dst *float64) {
		v, ok := os.LookupEnv(key)
		if !ok {
			return
		}
		f, perr := strconv.ParseFloat(v, 64)
		if perr != nil {
			err = fmt.Errorf("config: %s=%q is not a number", key, v)
			return
		}
		*dst = f
	}
	boolean := func(key string, dst *bool) {
		v, ok := os.LookupEnv(key)
		if !ok {
			return
		}
		b, perr := strconv.ParseBool(v)
		if perr != nil {
			err = fmt.Errorf("config: %s=%q is not a boolean", key, v)
			return
		}
		*dst = b
	}

	num("CHAOS_MIC_INDEX", &c.MicIndex)
	num("CHAOS_MIC_RATE", &c.MicRate)
	num("CHAOS_MODEL_RATE", &c.ModelRate)
	num("CHAOS_CHUNK_SAMPLES", &c.ChunkSamples)
	num("CHAOS_SPEAKER_RATE", &c.SpeakerRate)
	str("CHAOS_WAKE_PROFILE", &c.WakeProfile)
	flt("CHAOS_WAKE_THRESHOLD", &c.WakeThreshold)
	num("CHAOS_WAKE_WINDOW", &c.WakeWindow)
	num("CHAOS_CAPTURE_SECONDS", &c.CaptureSeconds)
	str("CHAOS_SERIAL_PORT", &c.SerialPort)
	str("CHAOS_CAN_INTERFACE", &c.CANInterface)
	boolean("STUB_HARDWARE", &c.StubHardware)
	str("CHAOS_LLM_BACKEND", &c.LLMBackend)
	str("OPENAI_API_KEY", &c.OpenAIKey)
	str("OPENAI_BASE_URL", &c.OpenAIBaseURL)
	str("CHAOS_CHAT_MODEL", &c.ChatModel)
	str("CHAOS_TRANSCRIBE_MODEL", &c.TranscribeModel)
	str("GEMINI_API_KEY", &c.GeminiKey)
	str("CHAOS_GEMINI_MODEL", &c.GeminiModel)
	str("CHAOS_DATA_DIR", &c.DataDir)
	return err
}

// Validate checks cross-field requirements the daemon cannot start without.
func (c *Config) Validate() error {
	switch c.LLMBackend {
	case "openai":
		if c.OpenAIKey == "" {
			return fmt.Errorf("config: OPENAI_API_KEY is required for the openai backend")
		}
	case "genai":
		if c.GeminiKey == "" {
			return fmt.Errorf("config: GEMINI_API_KEY is required for the genai backend")
		}
		if c.OpenAIKey == "" {
			return fmt.Errorf("config: OPENAI_API_KEY is required for audio even with the genai backend")
		}
	default:
		return fmt.Errorf("config: unknown llm backend %q", c.LLMBackend)
	}
	if c.MicRate <= 0 || c.ModelRate <= 0 {
		return fmt.Errorf("config: sample rates must be positive")
	}
	if c.ChunkSamples <= 0 {
		return fmt.Errorf("config: chunk_samples must be positive")
	}
	if c.WakeThreshold <= 0 || c.WakeThreshold >= 1 {
		return fmt.Errorf("config: wake_threshold %v out of (0, 1)", c.WakeThreshold)
	}
	return nil
}
