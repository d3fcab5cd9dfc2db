package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/txurtxil/Esc32S3-Groq/internal/config"
	"github.com/txurtxil/Esc32S3-Groq/internal/protocol"
	"github.com/txurtxil/Esc32S3-Groq/pkg/audio"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// fakeCodec is an identity codec that counts resets.
type fakeCodec struct {
	mu        sync.Mutex
	resets    int
	encodeErr error
	encoded   [][]byte
}

func (c *fakeCodec) Decode(packet []byte) []byte { return packet }

func (c *fakeCodec) Encode(pcm []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.encodeErr != nil {
		return nil, c.encodeErr
	}
	c.encoded = append(c.encoded, append([]byte(nil), pcm...))
	return pcm, nil
}

func (c *fakeCodec) Reset() {
	c.mu.Lock()
	c.resets++
	c.mu.Unlock()
}

func (c *fakeCodec) Name() string { return "fake" }

func (c *fakeCodec) Resets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resets
}

// fakeSender records outbound traffic and can fail on demand.
type fakeSender struct {
	mu         sync.Mutex
	control    []protocol.Message
	frames     [][]byte
	controlErr error
	audioErr   error
}

func (s *fakeSender) SendControl(_ context.Context, msg protocol.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.controlErr != nil {
		return s.controlErr
	}
	s.control = append(s.control, msg)
	return nil
}

func (s *fakeSender) SendAudio(_ context.Context, frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.audioErr != nil {
		return s.audioErr
	}
	s.frames = append(s.frames, append([]byte(nil), frame...))
	return nil
}

func (s *fakeSender) Control() []protocol.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.Message(nil), s.control...)
}

func (s *fakeSender) Frames() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.frames...)
}

// fakeHandler records utterances and optionally blocks until released.
type fakeHandler struct {
	mu         sync.Mutex
	utterances []Utterance
	block      chan struct{}
}

func (h *fakeHandler) HandleUtterance(_ context.Context, u Utterance) {
	h.mu.Lock()
	h.utterances = append(h.utterances, u)
	h.mu.Unlock()
	if h.block != nil {
		<-h.block
	}
}

func (h *fakeHandler) Utterances() []Utterance {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Utterance(nil), h.utterances...)
}

func testStore(t *testing.T, mutate func(*config.Assistant)) *config.Store {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg.Assistant)
	}
	return config.NewStore("", cfg)
}

func loudFrame() []byte {
	pcm := make([]int16, audio.FrameSamples)
	for i := range pcm {
		pcm[i] = 3000
	}
	return audio.Int16sToBytes(pcm)
}

func silentFrame() []byte {
	return audio.Silence(audio.FrameSamples)
}

func newTestSession(t *testing.T, clock *fakeClock, codec *fakeCodec, sender *fakeSender, handler *fakeHandler, store *config.Store) *Session {
	t.Helper()
	return New("t1", codec, store, sender, handler, WithClock(clock.Now))
}

func TestAudioDiscardedWhileIdle(t *testing.T) {
	clock := newFakeClock()
	codec := &fakeCodec{}
	sender := &fakeSender{}
	handler := &fakeHandler{}
	sess := newTestSession(t, clock, codec, sender, handler, testStore(t, nil))

	for range 10 {
		clock.Advance(audio.FrameDuration)
		sess.HandleAudio(context.Background(), loudFrame())
	}

	if got := sess.State(); got != StateIdle {
		t.Errorf("state = %v, want idle", got)
	}
	if len(handler.Utterances()) != 0 {
		t.Error("no utterance should be produced while idle")
	}
}

func TestListenStartResetsCodecAndRecords(t *testing.T) {
	clock := newFakeClock()
	codec := &fakeCodec{}
	sender := &fakeSender{}
	handler := &fakeHandler{}
	sess := newTestSession(t, clock, codec, sender, handler, testStore(t, nil))

	sess.HandleControl(context.Background(), protocol.Message{Type: protocol.TypeListen, State: protocol.StateStart})

	if got := sess.State(); got != StateRecording {
		t.Fatalf("state = %v, want recording", got)
	}
	if codec.Resets() != 1 {
		t.Errorf("codec resets = %d, want 1", codec.Resets())
	}
}

func TestEndpointAfterSilenceHang(t *testing.T) {
	clock := newFakeClock()
	codec := &fakeCodec{}
	sender := &fakeSender{}
	handler := &fakeHandler{}
	sess := newTestSession(t, clock, codec, sender, handler, testStore(t, nil))

	sess.HandleControl(context.Background(), protocol.Message{Type: protocol.TypeListen, State: protocol.StateStart})

	// 5 voiced frames, then silence. With a 2 s hang-time the endpoint fires
	// once the silent run exceeds 2 s past the last voiced frame.
	frames := 0
	for range 5 {
		clock.Advance(audio.FrameDuration)
		sess.HandleAudio(context.Background(), loudFrame())
		frames++
	}
	for sess.State() == StateRecording && frames < 200 {
		clock.Advance(audio.FrameDuration)
		sess.HandleAudio(context.Background(), silentFrame())
		frames++
	}

	sess.Wait()

	got := handler.Utterances()
	if len(got) != 1 {
		t.Fatalf("utterances = %d, want 1", len(got))
	}
	if want := frames * audio.FrameBytes; len(got[0].PCM) != want {
		t.Errorf("utterance bytes = %d, want %d", len(got[0].PCM), want)
	}
	if got[0].Duration <= 2*time.Second {
		t.Errorf("duration = %v, want > 2s", got[0].Duration)
	}

	// The endpoint closes any reply stream the peer may still think is open.
	ctrl := sender.Control()
	if len(ctrl) == 0 || ctrl[0].Type != protocol.TypeTTS || ctrl[0].State != protocol.StateStop {
		t.Errorf("first control message = %+v, want tts stop", ctrl)
	}

	if got := sess.State(); got != StateIdle {
		t.Errorf("state after handler = %v, want idle", got)
	}
}

func TestNoEndpointBeforeMinimumDuration(t *testing.T) {
	clock := newFakeClock()
	codec := &fakeCodec{}
	sender := &fakeSender{}
	handler := &fakeHandler{}
	// Hang-time shorter than the 2 s floor: pure silence satisfies the
	// hang-time quickly but must still wait out the floor.
	store := testStore(t, func(a *config.Assistant) { a.SilenceDuration = 1.0 })
	sess := newTestSession(t, clock, codec, sender, handler, store)

	sess.HandleControl(context.Background(), protocol.Message{Type: protocol.TypeListen, State: protocol.StateStart})

	// 30 silent frames = 1.8 s. Hang-time (1 s) is exceeded, floor is not.
	for range 30 {
		clock.Advance(audio.FrameDuration)
		sess.HandleAudio(context.Background(), silentFrame())
	}
	if got := sess.State(); got != StateRecording {
		t.Fatalf("state at 1.8s = %v, want recording", got)
	}

	// A few more frames pass the 2 s floor.
	for range 5 {
		clock.Advance(audio.FrameDuration)
		sess.HandleAudio(context.Background(), silentFrame())
	}
	sess.Wait()
	if len(handler.Utterances()) != 1 {
		t.Fatalf("utterances = %d, want 1", len(handler.Utterances()))
	}
}

func TestVoicedFramesExtendRecording(t *testing.T) {
	clock := newFakeClock()
	codec := &fakeCodec{}
	sender := &fakeSender{}
	handler := &fakeHandler{}
	sess := newTestSession(t, clock, codec, sender, handler, testStore(t, nil))

	sess.HandleControl(context.Background(), protocol.Message{Type: protocol.TypeListen, State: protocol.StateStart})

	// Continuous speech for well past both thresholds: no endpoint.
	for range 100 {
		clock.Advance(audio.FrameDuration)
		sess.HandleAudio(context.Background(), loudFrame())
	}
	if got := sess.State(); got != StateRecording {
		t.Errorf("state = %v, want recording while voice continues", got)
	}
	if len(handler.Utterances()) != 0 {
		t.Error("utterance produced while voice continues")
	}
}

func TestListenStartIgnoredWhileReplying(t *testing.T) {
	clock := newFakeClock()
	codec := &fakeCodec{}
	sender := &fakeSender{}
	handler := &fakeHandler{block: make(chan struct{})}
	sess := newTestSession(t, clock, codec, sender, handler, testStore(t, nil))

	sess.HandleControl(context.Background(), protocol.Message{Type: protocol.TypeListen, State: protocol.StateStart})
	for sess.State() == StateRecording {
		clock.Advance(audio.FrameDuration)
		sess.HandleAudio(context.Background(), silentFrame())
	}
	if got := sess.State(); got != StateReplying {
		t.Fatalf("state = %v, want replying", got)
	}

	sess.HandleControl(context.Background(), protocol.Message{Type: protocol.TypeListen, State: protocol.StateStart})
	if got := sess.State(); got != StateReplying {
		t.Errorf("state = %v, listen start should be ignored mid-reply", got)
	}
	if codec.Resets() != 1 {
		t.Errorf("codec resets = %d, want 1", codec.Resets())
	}

	close(handler.block)
	sess.Wait()
	if got := sess.State(); got != StateIdle {
		t.Errorf("state after reply = %v, want idle", got)
	}
}

func TestSnapshotTakenAtRecordingStart(t *testing.T) {
	clock := newFakeClock()
	codec := &fakeCodec{}
	sender := &fakeSender{}
	handler := &fakeHandler{}
	store := testStore(t, nil)
	sess := newTestSession(t, clock, codec, sender, handler, store)

	sess.HandleControl(context.Background(), protocol.Message{Type: protocol.TypeListen, State: protocol.StateStart})

	// An update mid-recording must not affect the in-flight interaction.
	updated := store.Snapshot()
	updated.SystemPrompt = "changed"
	if err := store.Update(updated); err != nil {
		t.Fatal(err)
	}

	for sess.State() == StateRecording {
		clock.Advance(audio.FrameDuration)
		sess.HandleAudio(context.Background(), silentFrame())
	}
	sess.Wait()

	got := handler.Utterances()
	if len(got) != 1 {
		t.Fatalf("utterances = %d, want 1", len(got))
	}
	if got[0].Settings.SystemPrompt == "changed" {
		t.Error("interaction saw a settings update made after recording started")
	}
}

var errSendFailed = errors.New("send failed")

func TestDefensiveStopFailureDoesNotBlockHandoff(t *testing.T) {
	clock := newFakeClock()
	codec := &fakeCodec{}
	sender := &fakeSender{controlErr: errSendFailed}
	handler := &fakeHandler{}
	sess := newTestSession(t, clock, codec, sender, handler, testStore(t, nil))

	sess.HandleControl(context.Background(), protocol.Message{Type: protocol.TypeListen, State: protocol.StateStart})
	for sess.State() == StateRecording {
		clock.Advance(audio.FrameDuration)
		sess.HandleAudio(context.Background(), silentFrame())
	}
	sess.Wait()

	if len(handler.Utterances()) != 1 {
		t.Error("utterance should be handed off even when the defensive stop fails")
	}
}
