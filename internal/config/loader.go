package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Load reads and validates a YAML configuration file. Fields absent from the
// file keep their [Default] values.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: load %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes and validates YAML configuration from r.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			// Empty file: run with defaults.
			return cfg, nil
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cfg for errors that would make the gateway misbehave at
// runtime. All problems are reported at once via errors.Join.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.ListenAddr == "" {
		errs = append(errs, errors.New("server.listen_addr must not be empty"))
	}
	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is not one of debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Providers.STT.Name == "" {
		errs = append(errs, errors.New("providers.stt.name must not be empty"))
	}
	if cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.llm.name must not be empty"))
	}
	if cfg.Providers.TTS.Name == "" {
		errs = append(errs, errors.New("providers.tts.name must not be empty"))
	}

	errs = append(errs, validateAssistant(cfg.Assistant)...)

	return errors.Join(errs...)
}

// ValidateAssistant checks one assistant record in isolation. The admin
// surface uses it to reject bad updates without touching the rest of the
// configuration.
func ValidateAssistant(a Assistant) error {
	return errors.Join(validateAssistant(a)...)
}

func validateAssistant(a Assistant) []error {
	var errs []error

	if a.MicGain <= 0 {
		errs = append(errs, fmt.Errorf("assistant.mic_gain must be positive, got %v", a.MicGain))
	}
	if a.SilenceThreshold < 0 {
		errs = append(errs, fmt.Errorf("assistant.silence_threshold must not be negative, got %d", a.SilenceThreshold))
	}
	if a.SilenceDuration <= 0 {
		errs = append(errs, fmt.Errorf("assistant.silence_duration must be positive, got %v", a.SilenceDuration))
	}
	if a.Temperature < 0 || a.Temperature > 2 {
		errs = append(errs, fmt.Errorf("assistant.temperature must be in [0, 2], got %v", a.Temperature))
	}
	if a.Model == "" {
		errs = append(errs, errors.New("assistant.model must not be empty"))
	}
	if a.Voice == "" {
		errs = append(errs, errors.New("assistant.voice must not be empty"))
	}
	return errs
}

// IsKnownModel reports whether model is in the advertised catalogue.
// Unknown models are not an error; callers log a warning instead.
func IsKnownModel(model string) bool {
	return slices.Contains(KnownModels, model)
}

// IsKnownVoice reports whether voice is in the advertised catalogue.
func IsKnownVoice(voice string) bool {
	return slices.Contains(KnownVoices, voice)
}
