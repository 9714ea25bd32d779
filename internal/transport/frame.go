// Package transport implements the wire framing and NATS bridge that
// expose get_audio/play to a remote client on the control plane. The
// binary frame layout is adapted from the teacher's
// internal/transport/binary_frame.go fixed-header protocol, extended
// with the codec/sample-rate/channel fields §6's wire chunk needs.
package transport

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/viam-modules/system-audio/internal/codec"
)

// FrameType identifies what a Frame carries.
type FrameType uint8

const (
	FrameTypeAudioData FrameType = 0x01
	FrameTypeAudioEnd  FrameType = 0x02

	FrameTypeStatus FrameType = 0x20
	FrameTypeError  FrameType = 0x21
)

// Magic identifies the start of a frame; FrameHeader's fixed layout
// mirrors the teacher's, widened with codec/sample-rate/channel
// fields.
const (
	FrameMagic  = 0x53415544 // "SAUD"
	HeaderSize  = 44
	MaxDataSize = 1 << 20 // 1MiB; generous relative to one chunk's payload
)

// ChunkFrame is one audio chunk framed for the wire: the binary
// counterpart of capture.Chunk and playback.Info's request/reply
// payload, per SPEC_FULL §3's ChunkFrame wire type.
type ChunkFrame struct {
	Type             FrameType
	StreamID         uint32
	SequenceNumber   uint32
	StartTimestampNs int64
	EndTimestampNs   int64
	Codec            codec.Tag
	SampleRateHz     uint32
	NumChannels      uint32
	Data             []byte
}

// frameHeader is the fixed-size (44 byte) header serialized ahead of
// every frame's payload.
type frameHeader struct {
	Magic            uint32
	Type             FrameType
	Reserved         [3]byte
	StreamID         uint32
	SequenceNumber   uint32
	StartTimestampNs int64
	EndTimestampNs   int64
	SampleRateHz     uint32
	NumChannels      uint32
	Length           uint32
}

// codecTagSize is the fixed width a codec tag is padded/truncated to
// within the header-adjacent region, keeping the header itself a
// constant size regardless of tag text length.
const codecTagSize = 8

// Serialize encodes f as MagicHeader(codec tag padded to 8
// bytes)(payload).
func (f *ChunkFrame) Serialize() ([]byte, error) {
	if len(f.Data) > MaxDataSize {
		return nil, fmt.Errorf("transport: frame data too large: %d bytes (max %d)", len(f.Data), MaxDataSize)
	}

	header := frameHeader{
		Magic:            FrameMagic,
		Type:             f.Type,
		StreamID:         f.StreamID,
		SequenceNumber:   f.SequenceNumber,
		StartTimestampNs: f.StartTimestampNs,
		EndTimestampNs:   f.EndTimestampNs,
		SampleRateHz:     f.SampleRateHz,
		NumChannels:      f.NumChannels,
		Length:           uint32(len(f.Data)),
	}

	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.BigEndian, header); err != nil {
		return nil, fmt.Errorf("transport: failed to write frame header: %w", err)
	}

	codecBytes := make([]byte, codecTagSize)
	copy(codecBytes, f.Codec)
	buf.Write(codecBytes)

	if len(f.Data) > 0 {
		buf.Write(f.Data)
	}

	return buf.Bytes(), nil
}

// DeserializeChunkFrame is Serialize's inverse.
func DeserializeChunkFrame(data []byte) (*ChunkFrame, error) {
	if len(data) < HeaderSize+codecTagSize {
		return nil, fmt.Errorf("transport: frame too small: %d bytes (min %d)", len(data), HeaderSize+codecTagSize)
	}

	r := bytes.NewReader(data)
	var header frameHeader
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, fmt.Errorf("transport: failed to read frame header: %w", err)
	}
	if header.Magic != FrameMagic {
		return nil, fmt.Errorf("transport: invalid frame magic: 0x%08X (expected 0x%08X)", header.Magic, FrameMagic)
	}

	codecBytes := make([]byte, codecTagSize)
	if _, err := io.ReadFull(r, codecBytes); err != nil {
		return nil, fmt.Errorf("transport: failed to read codec tag: %w", err)
	}

	expectedSize := HeaderSize + codecTagSize + int(header.Length)
	if len(data) != expectedSize {
		return nil, fmt.Errorf("transport: frame size mismatch: got %d bytes, expected %d", len(data), expectedSize)
	}

	frame := &ChunkFrame{
		Type:             header.Type,
		StreamID:         header.StreamID,
		SequenceNumber:   header.SequenceNumber,
		StartTimestampNs: header.StartTimestampNs,
		EndTimestampNs:   header.EndTimestampNs,
		Codec:            codec.Tag(bytes.TrimRight(codecBytes, "\x00")),
		SampleRateHz:     header.SampleRateHz,
		NumChannels:      header.NumChannels,
	}

	if header.Length > 0 {
		frame.Data = make([]byte, header.Length)
		if _, err := io.ReadFull(r, frame.Data); err != nil {
			return nil, fmt.Errorf("transport: failed to read frame data: %w", err)
		}
	}

	return frame, nil
}
