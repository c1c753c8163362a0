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

package term

import (
	"github.com/jakemcc/aeron/aeron/atomic"
	"github.com/jakemcc/aeron/aeron/flyweight"
	"github.com/jakemcc/aeron/aeron/logbuffer"
)

// DefaultReservedValueSupplier is the reserved value provider used when the
// caller supplies none: every frame carries reserved_value 0.
var DefaultReservedValueSupplier ReservedValueSupplier = func(termBuffer *atomic.Buffer, termOffset, length int32) int64 { return 0 }

// ReservedValueSupplier computes the i64 reserved_value for a frame after
// its payload has been copied, so it may observe the final bytes.
type ReservedValueSupplier func(termBuffer *atomic.Buffer, termOffset, length int32) int64

// Appender owns the append path into one partition of a log. It holds no
// notion of "current" term id or term offset: the Publication, as the
// single writer, passes both in on every call and is the only thing that
// ever advances them. This is what lets the raw tail's CAS loop double as
// a corruption check — a term id mismatch between the caller's view and
// the shared raw tail cannot happen unless something outside the
// single-writer protocol touched the log.
type Appender struct {
	termBuffer *atomic.Buffer
	rawTail    flyweight.Int64Field
	termLength int32
}

// NewAppender builds an Appender over one partition of logBuffers.
func NewAppender(logBuffers *logbuffer.LogBuffers, partitionIndex int) *Appender {
	return &Appender{
		termBuffer: logBuffers.TermBuffer(partitionIndex),
		rawTail:    flyweight.WrapInt64Field(logBuffers.MetaDataBuffer(), int32(partitionIndex)*8),
		termLength: logBuffers.TermLength(),
	}
}

// RawTailVolatile observes this partition's packed (term id, tail offset)
// with acquire ordering.
func (a *Appender) RawTailVolatile() int64 {
	return a.rawTail.Get()
}

// TailTermID seeds this partition's raw tail to (nextTermID, 0). Called by
// the Publication exactly once, when rotation activates this partition.
func (a *Appender) TailTermID(nextTermID int32) {
	a.rawTail.Set(logbuffer.PackTail(nextTermID, 0))
}

// reserve is the single-writer reservation algorithm shared by Claim,
// AppendUnfragmentedMessage, and AppendFragmentedMessage: it CASes the raw
// tail forward by requiredLength, writing a padding frame and returning
// Tripped if the reservation would cross the term boundary.
//
// termID and termOffset are the caller's (the Publication's) locally
// cached view of this partition's state; they must match the raw tail
// exactly, or the log has been corrupted by something outside the
// single-writer protocol.
func (a *Appender) reserve(termID, termOffset, requiredLength int32, header *HeaderWriter) (claimedOffset, resultOffset int32) {
	for {
		rawTail := a.rawTail.Get()
		currentTermID := logbuffer.TermID(rawTail)
		if currentTermID != termID {
			logbuffer.CorruptLog("partition raw tail term id %d does not match expected %d", currentTermID, termID)
		}

		currentOffset := logbuffer.TermOffset(rawTail, a.termLength)
		if currentOffset != termOffset {
			logbuffer.CorruptLog("partition raw tail offset %d does not match expected %d", currentOffset, termOffset)
		}

		if currentOffset >= a.termLength {
			// Defensive: a single writer should never observe this, since
			// it alone trips the term and immediately rotates away from it.
			return 0, logbuffer.Tripped
		}

		newOffset := currentOffset + requiredLength
		if newOffset > a.termLength {
			newTail := logbuffer.PackTail(termID, a.termLength)
			if !a.rawTail.CompareAndSet(rawTail, newTail) {
				continue
			}
			if paddingLength := a.termLength - currentOffset; paddingLength > 0 {
				header.Write(a.termBuffer, currentOffset, paddingLength, termID)
				logbuffer.SetFrameType(a.termBuffer, currentOffset, logbuffer.DataFrameHeader.TypePad)
				logbuffer.FrameFlags(a.termBuffer, currentOffset, logbuffer.UnfragmentedFlag)
				logbuffer.FrameLengthOrdered(a.termBuffer, currentOffset, paddingLength)
			}
			return 0, logbuffer.Tripped
		}

		newTail := logbuffer.PackTail(termID, newOffset)
		if a.rawTail.CompareAndSet(rawTail, newTail) {
			return currentOffset, newOffset
		}
	}
}

// Claim reserves alignedLength(length) bytes, writes the frame header with
// the negative-length sentinel, and populates claim with the reserved
// payload region for the caller to write into directly. Returns the new
// term offset, or Tripped.
func (a *Appender) Claim(termID, termOffset int32, header *HeaderWriter, length int32, claim *logbuffer.BufferClaim) int32 {
	frameLength := logbuffer.FrameLength(length)
	requiredLength := logbuffer.AlignedLength(length)

	offset, result := a.reserve(termID, termOffset, requiredLength, header)
	if result == logbuffer.Tripped {
		return logbuffer.Tripped
	}

	header.Write(a.termBuffer, offset, frameLength, termID)
	claim.Wrap(a.termBuffer, offset, frameLength)
	return result
}

// AppendUnfragmentedMessage appends a message as a single frame. Returns
// the new term offset, or Tripped.
func (a *Appender) AppendUnfragmentedMessage(
	termID, termOffset int32,
	header *HeaderWriter,
	src *atomic.Buffer, srcOffset, length int32,
	reservedValueSupplier ReservedValueSupplier,
) int32 {
	frameLength := logbuffer.FrameLength(length)
	requiredLength := logbuffer.AlignedLength(length)

	offset, result := a.reserve(termID, termOffset, requiredLength, header)
	if result == logbuffer.Tripped {
		return logbuffer.Tripped
	}

	header.Write(a.termBuffer, offset, frameLength, termID)
	a.termBuffer.PutBytes(offset+logbuffer.DataFrameHeader.Length, src, srcOffset, length)

	if reservedValueSupplier == nil {
		reservedValueSupplier = DefaultReservedValueSupplier
	}
	reservedValue := reservedValueSupplier(a.termBuffer, offset, frameLength)
	a.termBuffer.PutInt64(offset+logbuffer.DataFrameHeader.ReservedValueFieldOffset, reservedValue)

	logbuffer.FrameLengthOrdered(a.termBuffer, offset, frameLength)
	return result
}

// AppendFragmentedMessage splits a message larger than maxPayloadLength
// into fragments of up to maxPayloadLength bytes, reserving their total
// aligned length in one raw-tail update so the whole message lands
// contiguously in one term or not at all. Returns the new term offset, or
// Tripped (in which case the whole message is rejected and retried in the
// next term).
func (a *Appender) AppendFragmentedMessage(
	termID, termOffset int32,
	header *HeaderWriter,
	src *atomic.Buffer, srcOffset, length, maxPayloadLength int32,
	reservedValueSupplier ReservedValueSupplier,
) int32 {
	numMaxPayloads := length / maxPayloadLength
	remainingPayload := length % maxPayloadLength
	requiredLength := numMaxPayloads * logbuffer.AlignedLength(maxPayloadLength)
	if remainingPayload > 0 {
		requiredLength += logbuffer.AlignedLength(remainingPayload)
	}

	offset, result := a.reserve(termID, termOffset, requiredLength, header)
	if result == logbuffer.Tripped {
		return logbuffer.Tripped
	}

	if reservedValueSupplier == nil {
		reservedValueSupplier = DefaultReservedValueSupplier
	}

	flags := logbuffer.BeginFragFlag
	remaining := length
	frameOffset := offset

	for remaining > 0 {
		bytesToWrite := remaining
		if bytesToWrite > maxPayloadLength {
			bytesToWrite = maxPayloadLength
		}
		frameLength := logbuffer.FrameLength(bytesToWrite)
		alignedLength := logbuffer.AlignedLength(bytesToWrite)

		header.Write(a.termBuffer, frameOffset, frameLength, termID)
		a.termBuffer.PutBytes(frameOffset+logbuffer.DataFrameHeader.Length, src, srcOffset+(length-remaining), bytesToWrite)

		if bytesToWrite == remaining {
			flags |= logbuffer.EndFragFlag
		}
		logbuffer.FrameFlags(a.termBuffer, frameOffset, flags)

		reservedValue := reservedValueSupplier(a.termBuffer, frameOffset, frameLength)
		a.termBuffer.PutInt64(frameOffset+logbuffer.DataFrameHeader.ReservedValueFieldOffset, reservedValue)

		logbuffer.FrameLengthOrdered(a.termBuffer, frameOffset, frameLength)

		flags = 0
		frameOffset += alignedLength
		remaining -= bytesToWrite
	}

	return result
}
