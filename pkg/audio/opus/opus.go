// Package opus wraps a stateful Opus frame decoder and encoder for the fixed
// session profile (16 kHz mono, 960-sample frames) on top of layeh.com/gopus.
//
// The decoder deliberately never fails: a malformed packet is replaced by one
// frame of silence so the recording timeline stays aligned with wall-clock
// frame cadence even under transient corruption. Encoding of valid PCM is
// expected to succeed; an encode error is surfaced to the caller, which aborts
// only the outbound stream it belongs to.
package opus

// Codec converts between compressed wire frames and s16le PCM frames.
// Implementations are stateful and not safe for concurrent use; create one
// per session and direction.
type Codec interface {
	// Decode converts one compressed frame into one PCM frame of exactly
	// audio.FrameBytes bytes. On a malformed packet it returns a silent frame
	// instead of an error.
	Decode(packet []byte) []byte

	// Encode converts one PCM frame of audio.FrameBytes bytes into a
	// compressed frame.
	Encode(pcm []byte) ([]byte, error)

	// Reset clears decoder state. Must be called at the start of every new
	// recording to avoid artifacts bleeding across utterances.
	Reset()

	// Name is the codec identifier announced in the hello handshake.
	Name() string
}

// Passthrough is the degraded codec used when Opus initialisation fails:
// compressed frame == PCM frame in both directions. Inbound audio that is
// actually Opus-compressed will decode to garbage under this mode; that is an
// accepted degraded-capability state, surfaced once as a startup warning.
type Passthrough struct{}

func (Passthrough) Decode(packet []byte) []byte { return packet }

func (Passthrough) Encode(pcm []byte) ([]byte, error) { return pcm, nil }

func (Passthrough) Reset() {}

func (Passthrough) Name() string { return "pcm" }
