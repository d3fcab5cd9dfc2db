package anyllm

import (
	"testing"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/txurtxil/Esc32S3-Groq/pkg/provider/llm"
)

func TestNewValidatesArguments(t *testing.T) {
	if _, err := New("", "some-model"); err == nil {
		t.Error("expected an error for an empty backend name")
	}
	if _, err := New("groq", ""); err == nil {
		t.Error("expected an error for an empty model")
	}
	if _, err := New("not-a-backend", "some-model"); err == nil {
		t.Error("expected an error for an unknown backend")
	}
}

func TestNewKnownBackends(t *testing.T) {
	for _, name := range []string{"groq", "openai", "ollama", "llamacpp"} {
		if _, err := New(name, "some-model", anyllmlib.WithAPIKey("test")); err != nil {
			t.Errorf("New(%q): %v", name, err)
		}
	}
}

func TestBuildParams(t *testing.T) {
	req := llm.CompletionRequest{
		SystemPrompt: "Sé breve.",
		Messages:     []llm.Message{{Role: "user", Content: "hola"}},
		Temperature:  0.7,
	}
	params := buildParams("llama-3.3-70b-versatile", req)

	if params.Model != "llama-3.3-70b-versatile" {
		t.Errorf("model = %q", params.Model)
	}
	if len(params.Messages) != 2 {
		t.Fatalf("messages = %d, want 2 (system + user)", len(params.Messages))
	}
	if params.Messages[0].Role != anyllmlib.RoleSystem || params.Messages[0].Content != "Sé breve." {
		t.Errorf("first message = %+v, want the system prompt", params.Messages[0])
	}
	if params.Messages[1].Role != "user" || params.Messages[1].Content != "hola" {
		t.Errorf("second message = %+v, want the user turn", params.Messages[1])
	}
	if params.Temperature == nil || *params.Temperature != 0.7 {
		t.Errorf("temperature = %v, want 0.7", params.Temperature)
	}
}

func TestBuildParamsModelOverride(t *testing.T) {
	params := buildParams("default-model", llm.CompletionRequest{
		Model:    "override-model",
		Messages: []llm.Message{{Role: "user", Content: "hola"}},
	})
	if params.Model != "override-model" {
		t.Errorf("model = %q, want the per-request override", params.Model)
	}
}

func TestBuildParamsOmissions(t *testing.T) {
	params := buildParams("m", llm.CompletionRequest{
		Messages: []llm.Message{{Role: "user", Content: "hola"}},
	})
	if len(params.Messages) != 1 {
		t.Errorf("messages = %d, want 1 without a system prompt", len(params.Messages))
	}
	if params.Temperature != nil {
		t.Error("zero temperature should be left to the provider default")
	}
}
