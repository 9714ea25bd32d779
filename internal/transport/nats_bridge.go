package transport

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/viam-modules/system-audio/internal/capture"
	"github.com/viam-modules/system-audio/internal/codec"
	"github.com/viam-modules/system-audio/internal/playback"
)

// Connection is the seam between Bridge and nats.go, adapted from the
// teacher's PuckNATSConnection so tests can inject a fake instead of a
// real broker connection.
type Connection interface {
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
	Publish(subject string, data []byte) error
	Close()
}

// connAdapter adapts *nats.Conn to Connection.
type connAdapter struct {
	conn *nats.Conn
}

func (a *connAdapter) Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error) {
	return a.conn.Subscribe(subject, cb)
}

func (a *connAdapter) Publish(subject string, data []byte) error {
	return a.conn.Publish(subject, data)
}

func (a *connAdapter) Close() {
	a.conn.Close()
}

// Connect dials natsURL with bounded retry, mirroring the teacher's
// NewAudioSubscriber connection loop.
func Connect(natsURL string) (Connection, error) {
	var nc *nats.Conn
	var err error

	for i := 0; i < 5; i++ {
		nc, err = nats.Connect(natsURL)
		if err == nil {
			break
		}
		log.Printf("⚠️  failed to connect to NATS (attempt %d/5): %v", i+1, err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS after 5 attempts: %w", err)
	}

	log.Printf("✅ connected to NATS at %s", natsURL)
	return &connAdapter{conn: nc}, nil
}

// Microphone is the narrow surface the capture subject handler needs
// from a resource.Microphone.
type Microphone interface {
	GetAudio(codecTag codec.Tag, durationSeconds float64, previousTimestampNs int64, handler capture.Handler) error
}

// Speaker is the narrow surface the play subject handler needs from a
// resource.Speaker.
type Speaker interface {
	Play(audioData []byte, info playback.Info) error
}

// CaptureRequest is audio.<resource>.capture's request body.
type CaptureRequest struct {
	Codec               codec.Tag `json:"codec"`
	DurationSeconds     float64   `json:"duration_seconds"`
	PreviousTimestampNs int64     `json:"previous_timestamp_ns"`
}

// PlayRequest is audio.<resource>.play's request body.
type PlayRequest struct {
	AudioData    []byte    `json:"audio_data"`
	Codec        codec.Tag `json:"codec"`
	SampleRateHz int       `json:"sample_rate_hz"`
	NumChannels  int       `json:"num_channels"`
}

// StatusResponse is the final reply for both subjects: ok, or the
// failing call's error message (which carries the audioerr sentinel
// text when the error wraps one).
type StatusResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Bridge exposes registered resources' get_audio/play over NATS, one
// subject pair per resource, per SPEC_FULL §4.13.
type Bridge struct {
	conn Connection

	mu   sync.Mutex
	subs []*nats.Subscription
}

// NewBridge constructs a Bridge over an already-connected Connection.
func NewBridge(conn Connection) *Bridge {
	return &Bridge{conn: conn}
}

// RegisterMicrophone subscribes "audio.<name>.capture" to mic.
func (b *Bridge) RegisterMicrophone(name string, mic Microphone) error {
	subject := fmt.Sprintf("audio.%s.capture", name)
	sub, err := b.conn.Subscribe(subject, func(msg *nats.Msg) {
		b.handleCapture(name, mic, msg)
	})
	if err != nil {
		return fmt.Errorf("transport: failed to subscribe to %s: %w", subject, err)
	}
	log.Printf("🎧 bridged microphone %q on %s", name, subject)

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
	return nil
}

// RegisterSpeaker subscribes "audio.<name>.play" to sp.
func (b *Bridge) RegisterSpeaker(name string, sp Speaker) error {
	subject := fmt.Sprintf("audio.%s.play", name)
	sub, err := b.conn.Subscribe(subject, func(msg *nats.Msg) {
		b.handlePlay(sp, msg)
	})
	if err != nil {
		return fmt.Errorf("transport: failed to subscribe to %s: %w", subject, err)
	}
	log.Printf("🔊 bridged speaker %q on %s", name, subject)

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
	return nil
}

// handleCapture runs one get_audio call, publishing each produced
// chunk framed as a ChunkFrame to "<reply>.chunk", then a final empty
// FrameTypeAudioEnd frame, then a status reply on msg.Reply, per
// SPEC_FULL §4.13.
func (b *Bridge) handleCapture(name string, mic Microphone, msg *nats.Msg) {
	if msg.Reply == "" {
		log.Printf("❌ capture request for %q had no reply subject, dropping", name)
		return
	}

	var req CaptureRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		b.replyError(msg.Reply, err)
		return
	}

	chunkSubject := msg.Reply + ".chunk"
	var seq uint32

	err := mic.GetAudio(req.Codec, req.DurationSeconds, req.PreviousTimestampNs, func(c capture.Chunk) bool {
		frame := ChunkFrame{
			Type:             FrameTypeAudioData,
			SequenceNumber:   seq,
			StartTimestampNs: c.StartTimestampNs,
			EndTimestampNs:   c.EndTimestampNs,
			Codec:            c.Codec,
			SampleRateHz:     uint32(c.SampleRateHz),
			NumChannels:      uint32(c.NumChannels),
			Data:             c.AudioData,
		}
		seq++

		encoded, ferr := frame.Serialize()
		if ferr != nil {
			log.Printf("❌ failed to serialize chunk for %q: %v", name, ferr)
			return false
		}
		if perr := b.conn.Publish(chunkSubject, encoded); perr != nil {
			log.Printf("❌ failed to publish chunk for %q: %v", name, perr)
			return false
		}
		return true
	})
	if err != nil {
		b.replyError(msg.Reply, err)
		return
	}

	endFrame := ChunkFrame{Type: FrameTypeAudioEnd, SequenceNumber: seq}
	if encoded, ferr := endFrame.Serialize(); ferr == nil {
		_ = b.conn.Publish(chunkSubject, encoded)
	}

	b.replyOK(msg.Reply)
}

// handlePlay decodes one play request, calls sp.Play, and replies with
// a StatusResponse once Play returns.
func (b *Bridge) handlePlay(sp Speaker, msg *nats.Msg) {
	var req PlayRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		if msg.Reply != "" {
			b.replyError(msg.Reply, err)
		}
		return
	}

	err := sp.Play(req.AudioData, playback.Info{
		Codec:        req.Codec,
		SampleRateHz: req.SampleRateHz,
		NumChannels:  req.NumChannels,
	})

	if msg.Reply == "" {
		return
	}
	if err != nil {
		b.replyError(msg.Reply, err)
		return
	}
	b.replyOK(msg.Reply)
}

func (b *Bridge) replyOK(replySubject string) {
	data, _ := json.Marshal(StatusResponse{OK: true})
	_ = b.conn.Publish(replySubject, data)
}

func (b *Bridge) replyError(replySubject string, err error) {
	data, _ := json.Marshal(StatusResponse{OK: false, Error: err.Error()})
	_ = b.conn.Publish(replySubject, data)
}

// Close releases every subscription and the underlying connection.
func (b *Bridge) Close() {
	b.mu.Lock()
	subs := append([]*nats.Subscription(nil), b.subs...)
	b.mu.Unlock()

	for _, s := range subs {
		_ = s.Unsubscribe()
	}
	b.conn.Close()
}
