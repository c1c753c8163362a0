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

package logbuffer

import (
	"fmt"

	"github.com/jakemcc/aeron/aeron/atomic"
)

// BufferClaim is a zero-copy handle over a reserved frame returned by
// TermAppender.Claim. The caller writes payload bytes directly into the
// region exposed by Buffer(), then calls Commit or Abort exactly once.
// Using the claim after either call is a bug.
type BufferClaim struct {
	termBuffer *atomic.Buffer
	offset     int32
	length     int32 // unaligned frame length: header + payload
	payload    atomic.Buffer
	done       bool
}

// Wrap binds the claim to the frame at offset in termBuffer, whose header
// has already been written with the negative-length sentinel by the
// appender. frameLength is the unaligned header+payload length.
func (c *BufferClaim) Wrap(termBuffer *atomic.Buffer, offset, frameLength int32) {
	c.termBuffer = termBuffer
	c.offset = offset
	c.length = frameLength
	c.done = false
	c.payload.Wrap(termBuffer.Ptr(), termBuffer.Capacity())
}

// Offset returns the start of the payload region, immediately following the
// frame header.
func (c *BufferClaim) Offset() int32 {
	return c.offset + DataFrameHeader.Length
}

// Length returns the payload length in bytes.
func (c *BufferClaim) Length() int32 {
	return c.length - DataFrameHeader.Length
}

// Buffer returns the term buffer the claim was reserved from, for direct
// payload writes at Offset().
func (c *BufferClaim) Buffer() *atomic.Buffer {
	return c.termBuffer
}

// ReservedValue returns the current value of the frame's reserved-value
// slot.
func (c *BufferClaim) ReservedValue() int64 {
	return c.termBuffer.GetInt64(c.offset + DataFrameHeader.ReservedValueFieldOffset)
}

// PutReservedValue stores value into the frame's reserved-value slot. It
// may be called any number of times before Commit/Abort.
func (c *BufferClaim) PutReservedValue(value int64) {
	c.termBuffer.PutInt64(c.offset+DataFrameHeader.ReservedValueFieldOffset, value)
}

// Commit publishes the frame by storing its positive length with release
// ordering, making it visible to consumers.
func (c *BufferClaim) Commit() {
	c.guardUnused()
	FrameLengthOrdered(c.termBuffer, c.offset, c.length)
	c.done = true
}

// Abort publishes the frame as a padding frame of the same length, so
// consumers skip the region without processing it.
func (c *BufferClaim) Abort() {
	c.guardUnused()
	SetFrameType(c.termBuffer, c.offset, DataFrameHeader.TypePad)
	FrameFlags(c.termBuffer, c.offset, UnfragmentedFlag)
	FrameLengthOrdered(c.termBuffer, c.offset, c.length)
	c.done = true
}

func (c *BufferClaim) guardUnused() {
	if c.done {
		panic(fmt.Sprintf("logbuffer.BufferClaim: Commit/Abort called twice for frame at offset %d", c.offset))
	}
}
