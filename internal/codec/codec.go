// Package codec implements the CodecRegistry: conversion between the
// internal fixed format (interleaved signed 16-bit PCM) and the wire
// codecs clients may request (PCM16, PCM32, PCM32f, MP3).
package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/viam-modules/system-audio/internal/audioerr"
)

// Tag identifies a wire codec.
type Tag string

const (
	PCM16  Tag = "pcm16"
	PCM32  Tag = "pcm32"
	PCM32F Tag = "pcm32f"
	MP3    Tag = "mp3"
)

// ParseTag validates a codec string against the known set.
func ParseTag(s string) (Tag, error) {
	switch Tag(s) {
	case PCM16, PCM32, PCM32F, MP3:
		return Tag(s), nil
	default:
		return "", audioerr.Wrap(audioerr.ErrInvalidArgument, fmt.Sprintf("unknown codec %q", s))
	}
}

// EncodePCM16 appends interleaved PCM16 samples as little-endian bytes.
func EncodePCM16(samples []int16, out []byte) []byte {
	buf := make([]byte, 2)
	for _, s := range samples {
		binary.LittleEndian.PutUint16(buf, uint16(s))
		out = append(out, buf...)
	}
	return out
}

// EncodePCM32 appends each PCM16 sample widened to a 32-bit integer
// (s << 16), little-endian.
func EncodePCM32(samples []int16, out []byte) []byte {
	buf := make([]byte, 4)
	for _, s := range samples {
		v := int32(s) << 16
		binary.LittleEndian.PutUint32(buf, uint32(v))
		out = append(out, buf...)
	}
	return out
}

// EncodePCM32F appends each PCM16 sample normalised to a 32-bit IEEE
// float in [-1,1], little-endian.
func EncodePCM32F(samples []int16, out []byte) []byte {
	buf := make([]byte, 4)
	for _, s := range samples {
		f := float32(s) * (1.0 / 32768.0)
		binary.LittleEndian.PutUint32(buf, math.Float32bits(f))
		out = append(out, buf...)
	}
	return out
}

// DecodePCM16 appends PCM16 samples read directly from little-endian
// bytes. data's length must be a multiple of 2.
func DecodePCM16(data []byte, out []int16) ([]int16, error) {
	if len(data)%2 != 0 {
		return nil, audioerr.Wrap(audioerr.ErrInvalidArgument, fmt.Sprintf("pcm16 data length %d not even", len(data)))
	}
	for i := 0; i+2 <= len(data); i += 2 {
		out = append(out, int16(binary.LittleEndian.Uint16(data[i:i+2])))
	}
	return out, nil
}

// DecodePCM32 appends PCM16 samples produced by narrowing each 32-bit
// little-endian integer (s32 >> 16). data's length must be a multiple
// of 4.
func DecodePCM32(data []byte, out []int16) ([]int16, error) {
	if len(data)%4 != 0 {
		return nil, audioerr.Wrap(audioerr.ErrInvalidArgument, fmt.Sprintf("pcm32 data length %d not divisible by 4", len(data)))
	}
	for i := 0; i+4 <= len(data); i += 4 {
		v := int32(binary.LittleEndian.Uint32(data[i : i+4]))
		out = append(out, int16(v>>16))
	}
	return out, nil
}

// DecodePCM32F appends PCM16 samples produced by clamping each 32-bit
// little-endian float to [-1,1], multiplying by 32767, and truncating.
// data's length must be a multiple of 4.
func DecodePCM32F(data []byte, out []int16) ([]int16, error) {
	if len(data)%4 != 0 {
		return nil, audioerr.Wrap(audioerr.ErrInvalidArgument, fmt.Sprintf("pcm32f data length %d not divisible by 4", len(data)))
	}
	for i := 0; i+4 <= len(data); i += 4 {
		bits := binary.LittleEndian.Uint32(data[i : i+4])
		f := math.Float32frombits(bits)
		if f > 1 {
			f = 1
		}
		if f < -1 {
			f = -1
		}
		out = append(out, int16(f*32767))
	}
	return out, nil
}
