// Package config provides the configuration schema, loader, and the runtime
// snapshot store for the voice gateway.
package config

import "time"

// LogLevel controls log verbosity for the gateway.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure, loaded from a YAML file via
// [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Assistant Assistant       `yaml:"assistant"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the gateway listens on (e.g., ":8000").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// ProvidersConfig declares which implementation backs each collaborator.
type ProvidersConfig struct {
	STT ProviderEntry `yaml:"stt"`
	LLM ProviderEntry `yaml:"llm"`
	TTS ProviderEntry `yaml:"tts"`
}

// ProviderEntry is the common configuration block shared by all provider
// kinds. Name selects the implementation; the remaining fields are forwarded
// to its constructor.
type ProviderEntry struct {
	// Name selects the provider implementation (e.g., "groq", "edge").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API, if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider.
	Model string `yaml:"model"`
}

// Assistant is the runtime-mutable interaction record: everything the admin
// surface may change between interactions. Sessions never read these fields
// directly; they take an immutable snapshot from [Store] once per interaction.
type Assistant struct {
	// SystemPrompt is the instruction injected before every conversation.
	SystemPrompt string `yaml:"system_prompt" json:"system_prompt"`

	// Model is the completion model selector, applied per interaction.
	Model string `yaml:"model" json:"model"`

	// Language is the transcription language hint (e.g., "es").
	Language string `yaml:"language" json:"language"`

	// Voice is the synthesis voice identifier (e.g., "es-ES-AlvaroNeural").
	Voice string `yaml:"voice" json:"voice"`

	// TTSRate is the speaking-rate modifier (e.g., "+0%", "-20%").
	TTSRate string `yaml:"tts_rate" json:"tts_rate"`

	// MicGain multiplies every utterance sample before transcription.
	// 1.0 is identity.
	MicGain float64 `yaml:"mic_gain" json:"mic_gain"`

	// SilenceThreshold is the RMS loudness floor; frames at or below it count
	// as silence for endpointing.
	SilenceThreshold int `yaml:"silence_threshold" json:"silence_threshold"`

	// SilenceDuration is the silence hang-time in seconds that ends a
	// recording.
	SilenceDuration float64 `yaml:"silence_duration" json:"silence_duration"`

	// Temperature is the completion temperature in [0.0, 2.0].
	Temperature float64 `yaml:"temperature" json:"temperature"`
}

// SilenceHang returns the silence duration threshold as a time.Duration.
func (a Assistant) SilenceHang() time.Duration {
	return time.Duration(a.SilenceDuration * float64(time.Second))
}

// KnownModels lists the completion models the admin surface offers. Values
// outside this list are accepted with a warning.
var KnownModels = []string{
	"openai/gpt-oss-120b",
	"llama-3.3-70b-versatile",
	"llama-3.1-8b-instant",
	"gemma2-9b-it",
}

// KnownVoices lists the synthesis voices the admin surface offers. Values
// outside this list are accepted with a warning.
var KnownVoices = []string{
	"es-ES-AlvaroNeural",
	"es-ES-ElviraNeural",
	"es-MX-DaliaNeural",
	"es-MX-JorgeNeural",
	"es-AR-TomasNeural",
	"es-CO-SalomeNeural",
	"en-US-ChristopherNeural",
	"en-US-AriaNeural",
}

// Default returns the configuration the gateway runs with when no file is
// present. The assistant record mirrors the defaults the device firmware was
// tuned against.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":8000",
			LogLevel:   LogInfo,
		},
		Providers: ProvidersConfig{
			STT: ProviderEntry{Name: "groq", Model: "whisper-large-v3-turbo"},
			LLM: ProviderEntry{Name: "groq"},
			TTS: ProviderEntry{Name: "edge"},
		},
		Assistant: Assistant{
			SystemPrompt:     "Eres Xiaozhi, un asistente útil y breve.",
			Model:            "llama-3.3-70b-versatile",
			Language:         "es",
			Voice:            "es-ES-AlvaroNeural",
			TTSRate:          "+0%",
			MicGain:          1.0,
			SilenceThreshold: 1000,
			SilenceDuration:  2.0,
			Temperature:      0.7,
		},
	}
}
