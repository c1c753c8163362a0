/*
Copyright 2016 Stanislav Liberman

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package logbuffer implements the bit-exact frame layout of the shared log
// (FrameLayout), the metadata region that describes it, the zero-copy
// BufferClaim, and the position arithmetic used to turn (term id, term
// offset) pairs into a single monotonic stream coordinate.
package logbuffer

import (
	"github.com/jakemcc/aeron/aeron/atomic"
	"github.com/jakemcc/aeron/aeron/util"
)

// dataFrameHeaderDefn describes the fixed 32-byte frame header layout.
type dataFrameHeaderDefn struct {
	Length                   int32
	VersionFieldOffset       int32
	FlagsFieldOffset         int32
	TypeFieldOffset          int32
	TermOffsetFieldOffset    int32
	SessionIDFieldOffset     int32
	StreamIDFieldOffset      int32
	TermIDFieldOffset        int32
	ReservedValueFieldOffset int32
	CurrentVersion           uint8
	TypePad                  uint16
	TypeData                 uint16
}

// DataFrameHeader describes the fixed 32-byte frame header layout used by
// every frame in the log: frame_length(i32), version(u8), flags(u8),
// type(u16), term_offset(i32), session_id(i32), stream_id(i32), term_id(i32),
// reserved_value(i64).
var DataFrameHeader = dataFrameHeaderDefn{
	Length:                   32,
	VersionFieldOffset:       4,
	FlagsFieldOffset:         5,
	TypeFieldOffset:          6,
	TermOffsetFieldOffset:    8,
	SessionIDFieldOffset:     12,
	StreamIDFieldOffset:      16,
	TermIDFieldOffset:        20,
	ReservedValueFieldOffset: 24,
	CurrentVersion:           0,
	TypePad:                  0x00,
	TypeData:                 0x01,
}

// FrameAlignment is the byte boundary every frame (including the trailing
// padding frame) is aligned to.
const FrameAlignment = 32

// Fragmentation flags, OR'd into the frame header's flags byte.
const (
	BeginFragFlag    uint8 = 0x80
	EndFragFlag      uint8 = 0x40
	UnfragmentedFlag       = BeginFragFlag | EndFragFlag
)

// Sentinel results returned by a TermAppender reservation, and re-used by
// Publication.newPosition.
const (
	// Tripped means the reservation would cross the term boundary; a
	// padding frame was written and the caller must retry in the next term.
	// It is also returned, without a padding frame, when the starting offset
	// was already at or past the term length before the call.
	Tripped int32 = -1
	// Failed names the "term already exhausted on entry" outcome separately.
	// No function in this module returns it; the appender reports that case
	// as Tripped.
	Failed int32 = -2
)

// FrameLength computes the unaligned, on-wire frame length (header plus
// payload) for a payload of the given size.
func FrameLength(payloadLength int32) int32 {
	return payloadLength + DataFrameHeader.Length
}

// AlignedLength computes the term-space reservation required for a frame
// carrying a payload of the given size: alignedLength(n) = align(n+HEADER).
func AlignedLength(payloadLength int32) int32 {
	return util.AlignInt32(FrameLength(payloadLength), FrameAlignment)
}

// TermID extracts the high 32 bits (term id) from a packed raw tail value.
func TermID(rawTail int64) int32 {
	return int32(rawTail >> 32)
}

// TermOffset extracts the low 32 bits (tail offset) from a packed raw tail
// value, clamped to the term length so an overflowing tail (one that has
// already tripped) reads back as the term length rather than wrapping.
func TermOffset(rawTail int64, termLength int32) int32 {
	offset := int64(uint32(rawTail))
	if offset > int64(termLength) {
		return termLength
	}
	return int32(offset)
}

// PackTail packs a term id and tail offset into a raw tail value.
func PackTail(termID, tailOffset int32) int64 {
	return int64(termID)<<32 | int64(uint32(tailOffset))
}

// FrameLengthVolatile performs the acquire load a consumer uses to decide
// whether a frame at offset is fully written.
func FrameLengthVolatile(buf *atomic.Buffer, frameOffset int32) int32 {
	return buf.GetInt32Volatile(frameOffset)
}

// FrameLengthOrdered publishes frameLength with release ordering, the
// final step that makes a frame (or padding frame) visible to consumers.
func FrameLengthOrdered(buf *atomic.Buffer, frameOffset, frameLength int32) {
	buf.PutInt32Ordered(frameOffset, frameLength)
}

// FrameFlags overwrites the flags byte of the frame at frameOffset.
func FrameFlags(buf *atomic.Buffer, frameOffset int32, flags uint8) {
	buf.PutUInt8(frameOffset+DataFrameHeader.FlagsFieldOffset, flags)
}

// FrameType returns the type field of the frame at frameOffset.
func FrameType(buf *atomic.Buffer, frameOffset int32) uint16 {
	return buf.GetUInt16(frameOffset + DataFrameHeader.TypeFieldOffset)
}

// SetFrameType overwrites the type field of the frame at frameOffset.
func SetFrameType(buf *atomic.Buffer, frameOffset int32, frameType uint16) {
	buf.PutUInt16(frameOffset+DataFrameHeader.TypeFieldOffset, frameType)
}

// IsPaddingFrame reports whether the frame at frameOffset is a padding
// frame (type PAD).
func IsPaddingFrame(buf *atomic.Buffer, frameOffset int32) bool {
	return FrameType(buf, frameOffset) == DataFrameHeader.TypePad
}
