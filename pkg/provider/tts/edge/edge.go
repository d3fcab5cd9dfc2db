// Package edge provides a tts.Provider backed by the Microsoft Edge
// read-aloud service, the same neural voices the original device firmware
// shipped with. The service speaks a lightweight websocket protocol: the
// client sends a speech.config message and an SSML request, then collects
// binary audio messages until a turn.end marker.
//
// Edge returns MP3; the provider pipes it through an external ffmpeg process
// to obtain s16le PCM at the session sample rate. [Probe] reports at startup
// whether ffmpeg is on PATH so operators learn about the degraded mode before
// the first interaction fails.
package edge

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/txurtxil/Esc32S3-Groq/pkg/audio"
	"github.com/txurtxil/Esc32S3-Groq/pkg/provider/tts"
)

const (
	// trustedClientToken is the public token the Edge browser itself uses for
	// the read-aloud endpoint.
	trustedClientToken = "6A5AA1D4EAFF4E9FB37E23D68491D6F4"

	wsEndpointFmt = "wss://speech.platform.bing.com/consumer/speech/synthesize/" +
		"readaloud/edge/v1?TrustedClientToken=%s&ConnectionId=%s"

	// outputFormat is the compressed format requested from the service. The
	// exact bitrate is irrelevant; ffmpeg resamples to the session profile.
	outputFormat = "audio-24khz-48kbitrate-mono-mp3"

	defaultVoice   = "es-ES-AlvaroNeural"
	defaultRate    = "+0%"
	defaultTimeout = 30 * time.Second
)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithTimeout bounds one whole synthesis exchange (dial, stream, transcode).
// Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.timeout = d }
}

// WithEndpoint overrides the websocket endpoint format string. Used by tests
// to point at a local fake; the format must keep the two %s verbs for the
// token and connection ID.
func WithEndpoint(format string) Option {
	return func(p *Provider) { p.endpointFmt = format }
}

// WithFFmpeg overrides the ffmpeg executable name or path.
func WithFFmpeg(path string) Option {
	return func(p *Provider) { p.ffmpeg = path }
}

// Provider implements tts.Provider against the Edge read-aloud service.
// Safe for concurrent use; each Synthesize call opens its own connection.
type Provider struct {
	endpointFmt string
	ffmpeg      string
	timeout     time.Duration
}

var _ tts.Provider = (*Provider)(nil)

// New creates an Edge TTS Provider.
func New(opts ...Option) *Provider {
	p := &Provider{
		endpointFmt: wsEndpointFmt,
		ffmpeg:      "ffmpeg",
		timeout:     defaultTimeout,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Probe reports whether the external ffmpeg transcode step is available.
// Call once at startup; a non-nil error means synthesis will fail until
// ffmpeg is installed.
func (p *Provider) Probe() error {
	if _, err := exec.LookPath(p.ffmpeg); err != nil {
		return fmt.Errorf("edge: ffmpeg not found in PATH: %w", err)
	}
	return nil
}

// Synthesize streams text through the Edge service and returns s16le mono
// PCM at the session sample rate.
func (p *Provider) Synthesize(ctx context.Context, text string, voice tts.VoiceProfile) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("edge: empty text")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	mp3, err := p.stream(ctx, text, voice)
	if err != nil {
		return nil, err
	}
	if len(mp3) == 0 {
		return nil, errors.New("edge: service returned no audio")
	}
	return p.transcode(ctx, mp3)
}

// stream performs the websocket exchange and returns the concatenated MP3
// payload.
func (p *Provider) stream(ctx context.Context, text string, voice tts.VoiceProfile) ([]byte, error) {
	wsURL := fmt.Sprintf(p.endpointFmt, trustedClientToken, requestID())
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("edge: dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	// Raise the read limit: a long reply easily exceeds the 32 KiB default.
	conn.SetReadLimit(1 << 20)

	ts := time.Now().UTC().Format("Mon Jan 02 2006 15:04:05 GMT+0000 (Coordinated Universal Time)")

	speechConfig := "X-Timestamp:" + ts + "\r\n" +
		"Content-Type:application/json; charset=utf-8\r\n" +
		"Path:speech.config\r\n\r\n" +
		`{"context":{"synthesis":{"audio":{"metadataoptions":` +
		`{"sentenceBoundaryEnabled":"false","wordBoundaryEnabled":"false"},` +
		`"outputFormat":"` + outputFormat + `"}}}}`
	if err := conn.Write(ctx, websocket.MessageText, []byte(speechConfig)); err != nil {
		return nil, fmt.Errorf("edge: send speech.config: %w", err)
	}

	ssmlMsg := "X-RequestId:" + requestID() + "\r\n" +
		"Content-Type:application/ssml+xml\r\n" +
		"X-Timestamp:" + ts + "\r\n" +
		"Path:ssml\r\n\r\n" +
		BuildSSML(text, voice)
	if err := conn.Write(ctx, websocket.MessageText, []byte(ssmlMsg)); err != nil {
		return nil, fmt.Errorf("edge: send ssml: %w", err)
	}

	var mp3 bytes.Buffer
	for {
		typ, msg, err := conn.Read(ctx)
		if err != nil {
			return nil, fmt.Errorf("edge: read: %w", err)
		}
		switch typ {
		case websocket.MessageText:
			if strings.Contains(string(msg), "Path:turn.end") {
				return mp3.Bytes(), nil
			}
		case websocket.MessageBinary:
			payload, ok := audioPayload(msg)
			if ok {
				mp3.Write(payload)
			}
		}
	}
}

// audioPayload extracts the audio body from a binary service message. The
// first two bytes are a big-endian header length; the payload follows the
// header block. Messages whose header lacks Path:audio are ignored.
func audioPayload(msg []byte) ([]byte, bool) {
	if len(msg) < 2 {
		return nil, false
	}
	headerLen := int(binary.BigEndian.Uint16(msg[:2]))
	if 2+headerLen > len(msg) {
		return nil, false
	}
	header := string(msg[2 : 2+headerLen])
	if !strings.Contains(header, "Path:audio") {
		return nil, false
	}
	return msg[2+headerLen:], true
}

// transcode pipes MP3 through ffmpeg to s16le mono PCM at the session rate.
func (p *Provider) transcode(ctx context.Context, mp3 []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, p.ffmpeg,
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-f", "s16le", "-acodec", "pcm_s16le",
		"-ar", fmt.Sprint(audio.SampleRate), "-ac", fmt.Sprint(audio.Channels),
		"pipe:1",
	)
	cmd.Stdin = bytes.NewReader(mp3)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("edge: ffmpeg transcode: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}
	return out.Bytes(), nil
}

// BuildSSML renders the SSML document for one synthesis request. Reply text
// is XML-escaped; voice ID and rate are embedded verbatim. Exported for
// tests.
func BuildSSML(text string, voice tts.VoiceProfile) string {
	id := voice.ID
	if id == "" {
		id = defaultVoice
	}
	rate := voice.Rate
	if rate == "" {
		rate = defaultRate
	}
	return "<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='en-US'>" +
		"<voice name='" + id + "'>" +
		"<prosody pitch='+0Hz' rate='" + rate + "' volume='+0%'>" +
		escapeText(text) +
		"</prosody></voice></speak>"
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"'", "&apos;",
	`"`, "&quot;",
)

func escapeText(s string) string { return xmlEscaper.Replace(s) }

// requestID returns a 32-character lowercase hex identifier.
func requestID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand read failures are effectively impossible; fall back to
		// a fixed ID rather than propagate an error nobody can act on.
		return "00000000000000000000000000000000"
	}
	return hex.EncodeToString(b[:])
}
