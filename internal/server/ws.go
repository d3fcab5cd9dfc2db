package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/txurtxil/Esc32S3-Groq/internal/pipeline"
	"github.com/txurtxil/Esc32S3-Groq/internal/protocol"
	"github.com/txurtxil/Esc32S3-Groq/internal/session"
	"github.com/txurtxil/Esc32S3-Groq/pkg/audio"
	"github.com/txurtxil/Esc32S3-Groq/pkg/audio/opus"
)

// wsReadLimit caps one inbound websocket message. Audio frames are a few
// hundred bytes; anything near the limit is a misbehaving client.
const wsReadLimit = 64 << 10

// sessionSeq numbers sessions for log correlation.
var sessionSeq atomic.Int64

// deviceConn wraps one websocket connection behind the session's Sender
// interface. The write mutex serialises control messages from the read loop
// with audio frames from the pacer goroutine.
type deviceConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

var _ session.Sender = (*deviceConn)(nil)

func (c *deviceConn) SendControl(ctx context.Context, msg protocol.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("server: marshal control message: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (c *deviceConn) SendAudio(ctx context.Context, frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Write(ctx, websocket.MessageBinary, frame)
}

// handleWS upgrades the device connection and runs its read loop until the
// peer disconnects or the server stops.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Devices connect straight from firmware, not browsers; origin
		// checks only get in the way.
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Warn("websocket accept failed", "error", err, "remote", r.RemoteAddr)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closed")
	conn.SetReadLimit(wsReadLimit)

	id := fmt.Sprintf("s%d", sessionSeq.Add(1))
	log := s.log.With("session", id, "remote", r.RemoteAddr)
	log.Info("device connected")

	s.metrics.ActiveSessions.Add(r.Context(), 1)
	defer s.metrics.ActiveSessions.Add(context.Background(), -1)

	codec := s.sessionCodec(log)
	dev := &deviceConn{conn: conn}
	pacer := session.NewPacer(codec, dev, session.WithPacerLogger(log))
	runner := pipeline.NewRunner(s.pipeline, dev, pacer)
	sess := session.New(id, codec, s.store, dev, runner, session.WithLogger(s.log))

	ctx := r.Context()
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				errors.Is(err, context.Canceled) {
				log.Info("device disconnected")
			} else {
				log.Warn("device connection lost", "error", err)
			}
			break
		}

		switch typ {
		case websocket.MessageText:
			s.handleControl(ctx, log, sess, dev, codec, data)
		case websocket.MessageBinary:
			s.metrics.FramesReceived.Add(ctx, 1)
			sess.HandleAudio(ctx, data)
		}
	}

	// Let an in-flight reply finish writing before the close handshake, but
	// not forever: the connection may already be dead.
	done := make(chan struct{})
	go func() {
		sess.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		log.Warn("interaction still running at disconnect")
	}

	conn.Close(websocket.StatusNormalClosure, "bye")
}

// handleControl parses one text message and dispatches it. The hello
// handshake is answered here; everything else belongs to the session.
func (s *Server) handleControl(ctx context.Context, log *slog.Logger, sess *session.Session, dev *deviceConn, codec opus.Codec, data []byte) {
	msg, err := protocol.Parse(data)
	if err != nil {
		log.Warn("unparseable control message", "error", err)
		return
	}

	if msg.Type == protocol.TypeHello {
		reply := protocol.HelloReply(codec.Name(), audio.SampleRate, audio.Channels,
			int(audio.FrameDuration/time.Millisecond))
		if err := dev.SendControl(ctx, reply); err != nil {
			log.Warn("hello reply failed", "error", err)
		}
		return
	}

	sess.HandleControl(ctx, msg)
}

// sessionCodec builds the per-session codec, falling back to raw PCM
// passthrough when the encoder cannot be initialised.
func (s *Server) sessionCodec(log *slog.Logger) opus.Codec {
	codec, err := s.newCodec()
	if err != nil {
		log.Warn("codec unavailable, falling back to pcm passthrough", "error", err)
		return opus.Passthrough{}
	}
	return codec
}
