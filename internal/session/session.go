// Package session implements the per-connection voice session: the
// recording state machine, silence endpointing, and the paced delivery of
// synthesized replies.
//
// A session is fed from a single websocket read loop, so its handlers are
// never called concurrently with each other. Reply delivery runs on its own
// goroutine; the state machine guards the handoff so at most one interaction
// is in flight per session.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/txurtxil/Esc32S3-Groq/internal/config"
	"github.com/txurtxil/Esc32S3-Groq/internal/protocol"
	"github.com/txurtxil/Esc32S3-Groq/pkg/audio"
	"github.com/txurtxil/Esc32S3-Groq/pkg/audio/opus"
)

// minUtterance is the floor on recording length before the silence rule may
// end it. Without it the hang-time alone would endpoint immediately on a
// recording that starts in silence.
const minUtterance = 2 * time.Second

// State is the session lifecycle phase.
type State int

const (
	// StateIdle discards inbound audio.
	StateIdle State = iota

	// StateRecording accumulates decoded audio and watches for the endpoint.
	StateRecording

	// StateReplying means an interaction is in flight; new recording requests
	// are ignored until it finishes.
	StateReplying
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateReplying:
		return "replying"
	}
	return "unknown"
}

// Sender is the outbound half of the device connection.
type Sender interface {
	// SendControl writes one JSON control message.
	SendControl(ctx context.Context, msg protocol.Message) error

	// SendAudio writes one binary audio frame.
	SendAudio(ctx context.Context, frame []byte) error
}

// Utterance is the immutable snapshot handed off at endpoint time.
type Utterance struct {
	// PCM is the full decoded recording, s16le mono at the session rate.
	PCM []byte

	// Settings is the assistant record snapshot the interaction runs under.
	Settings config.Assistant

	// Duration is the wall-clock length of the recording.
	Duration time.Duration
}

// UtteranceHandler runs one interaction to completion. Implementations own
// all downstream delivery; the session only cares about when the handler
// returns so it can accept the next recording.
type UtteranceHandler interface {
	HandleUtterance(ctx context.Context, u Utterance)
}

// Option is a functional option for configuring a Session.
type Option func(*Session)

// WithLogger sets the session logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(s *Session) { s.log = log }
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Session is one device conversation over one websocket connection.
type Session struct {
	id      string
	codec   opus.Codec
	store   *config.Store
	sender  Sender
	handler UtteranceHandler
	log     *slog.Logger
	now     func() time.Time

	mu        sync.Mutex
	state     State
	buf       []byte
	start     time.Time
	lastVoice time.Time
	settings  config.Assistant
	wg        sync.WaitGroup
}

// New creates a session in the idle state.
func New(id string, codec opus.Codec, store *config.Store, sender Sender, handler UtteranceHandler, opts ...Option) *Session {
	s := &Session{
		id:      id,
		codec:   codec,
		store:   store,
		sender:  sender,
		handler: handler,
		log:     slog.Default(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With("session", id)
	return s
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// HandleControl processes one inbound JSON control message.
func (s *Session) HandleControl(ctx context.Context, msg protocol.Message) {
	switch {
	case msg.IsListenStart():
		s.startRecording()
	case msg.Type == protocol.TypeListen:
		s.log.Debug("ignoring listen message", "state", msg.State)
	default:
		s.log.Debug("ignoring control message", "type", msg.Type)
	}
}

// startRecording arms the state machine for a fresh utterance. A request
// arriving while a reply is still in flight is ignored; the device retries
// after the reply's closing bracket.
func (s *Session) startRecording() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateReplying {
		s.log.Warn("listen start ignored, reply in flight")
		return
	}

	s.codec.Reset()
	s.buf = s.buf[:0]
	now := s.now()
	s.start = now
	s.lastVoice = now
	s.settings = s.store.Snapshot()
	s.state = StateRecording
	s.log.Info("recording started",
		"silence_threshold", s.settings.SilenceThreshold,
		"silence_duration", s.settings.SilenceHang())
}

// HandleAudio processes one inbound compressed audio frame. Frames arriving
// outside a recording are discarded.
func (s *Session) HandleAudio(ctx context.Context, packet []byte) {
	s.mu.Lock()
	if s.state != StateRecording {
		s.mu.Unlock()
		return
	}

	pcm := s.codec.Decode(packet)
	s.buf = append(s.buf, pcm...)

	now := s.now()
	if audio.RMS(pcm) > s.settings.SilenceThreshold {
		s.lastVoice = now
	}

	endpoint := now.Sub(s.lastVoice) > s.settings.SilenceHang() &&
		now.Sub(s.start) > minUtterance
	if !endpoint {
		s.mu.Unlock()
		return
	}

	u := Utterance{
		PCM:      append([]byte(nil), s.buf...),
		Settings: s.settings,
		Duration: now.Sub(s.start),
	}
	s.buf = s.buf[:0]
	s.state = StateReplying
	s.mu.Unlock()

	s.log.Info("utterance endpointed",
		"duration", u.Duration, "bytes", len(u.PCM))

	// A previous reply stream may still be conceptually open on the peer,
	// e.g. after a reconnect mid-reply. Close it before starting a new
	// interaction.
	if err := s.sender.SendControl(ctx, protocol.TTSStop()); err != nil {
		s.log.Debug("defensive tts stop failed", "error", err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.handler.HandleUtterance(ctx, u)
		s.mu.Lock()
		s.state = StateIdle
		s.mu.Unlock()
	}()
}

// Wait blocks until any in-flight interaction has finished. Called by the
// connection teardown path.
func (s *Session) Wait() {
	s.wg.Wait()
}
