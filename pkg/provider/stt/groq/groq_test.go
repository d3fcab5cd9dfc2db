package groq

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/txurtxil/Esc32S3-Groq/pkg/audio"
	"github.com/txurtxil/Esc32S3-Groq/pkg/provider/stt"
)

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected an error for an empty api key")
	}
}

func TestTranscribeRejectsEmptyPCM(t *testing.T) {
	p, err := New("gsk_test")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Transcribe(t.Context(), stt.Request{}); err == nil {
		t.Fatal("expected an error for an empty utterance")
	}
}

func TestTranscribe(t *testing.T) {
	var gotPath, gotAuth, gotContentType string
	var gotForm struct {
		model    string
		language string
		filename string
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		gotForm.model = r.FormValue("model")
		gotForm.language = r.FormValue("language")
		if f := r.MultipartForm.File["file"]; len(f) == 1 {
			gotForm.filename = f[0].Filename
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"hola mundo"}`))
	}))
	defer srv.Close()

	p, err := New("gsk_test", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	pcm := audio.Silence(audio.FrameSamples * 10)
	text, err := p.Transcribe(t.Context(), stt.Request{
		PCM:        pcm,
		SampleRate: audio.SampleRate,
		Language:   "es",
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "hola mundo" {
		t.Errorf("text = %q, want %q", text, "hola mundo")
	}

	if !strings.HasSuffix(gotPath, "/audio/transcriptions") {
		t.Errorf("path = %q, want .../audio/transcriptions", gotPath)
	}
	if gotAuth != "Bearer gsk_test" {
		t.Errorf("auth = %q, want bearer key", gotAuth)
	}
	if !strings.HasPrefix(gotContentType, "multipart/form-data") {
		t.Errorf("content type = %q, want multipart", gotContentType)
	}
	if gotForm.model != defaultModel {
		t.Errorf("model = %q, want %q", gotForm.model, defaultModel)
	}
	if gotForm.language != "es" {
		t.Errorf("language = %q, want es", gotForm.language)
	}
	if gotForm.filename != "utterance.wav" {
		t.Errorf("filename = %q, want utterance.wav", gotForm.filename)
	}
}

func TestTranscribeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"invalid api key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	p, err := New("gsk_bad", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Transcribe(t.Context(), stt.Request{PCM: audio.Silence(100)}); err == nil {
		t.Fatal("expected an error from a 401 response")
	}
}
