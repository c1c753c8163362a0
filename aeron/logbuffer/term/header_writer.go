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

// Package term implements the single-writer append path into one partition
// of a log: HeaderWriter stamps the per-frame header template, and
// Appender reserves space and writes framed data.
package term

import (
	"github.com/jakemcc/aeron/aeron/atomic"
	"github.com/jakemcc/aeron/aeron/logbuffer"
)

// HeaderWriter stamps the log's default frame header template into a
// newly reserved frame, patching the fields that vary per frame
// (frame_length, term_offset, term_id). session_id and stream_id come from
// the template and never change for the life of a publication.
type HeaderWriter struct {
	sessionID int32
	streamID  int32
	template  atomic.Buffer
}

// NewHeaderWriter builds a HeaderWriter from the log's default frame header
// template, a DataFrameHeader.Length-byte buffer.
func NewHeaderWriter(defaultHeader *atomic.Buffer) *HeaderWriter {
	h := &HeaderWriter{
		sessionID: defaultHeader.GetInt32(logbuffer.DataFrameHeader.SessionIDFieldOffset),
		streamID:  defaultHeader.GetInt32(logbuffer.DataFrameHeader.StreamIDFieldOffset),
	}
	h.template.WrapSlice(defaultHeader.GetRawBytes(0, logbuffer.DataFrameHeader.Length))
	return h
}

// SessionID returns the session id carried by every frame this writer
// stamps.
func (h *HeaderWriter) SessionID() int32 {
	return h.sessionID
}

// StreamID returns the stream id carried by every frame this writer
// stamps.
func (h *HeaderWriter) StreamID() int32 {
	return h.streamID
}

// Write stores the header template into dst at frameOffset, then patches
// frame_length (as the negative-length sentinel, so consumers skip a frame
// still under construction), term_offset, and term_id. flags defaults to
// BEGIN|END (unfragmented); AppendFragmentedMessage overwrites it per
// fragment after this call returns.
func (h *HeaderWriter) Write(dst *atomic.Buffer, frameOffset, frameLength, termID int32) {
	dst.PutRawBytes(frameOffset, h.template.GetRawBytes(0, logbuffer.DataFrameHeader.Length))

	dst.PutUInt8(frameOffset+logbuffer.DataFrameHeader.VersionFieldOffset, logbuffer.DataFrameHeader.CurrentVersion)
	dst.PutUInt8(frameOffset+logbuffer.DataFrameHeader.FlagsFieldOffset, logbuffer.UnfragmentedFlag)
	dst.PutUInt16(frameOffset+logbuffer.DataFrameHeader.TypeFieldOffset, logbuffer.DataFrameHeader.TypeData)
	dst.PutInt32(frameOffset+logbuffer.DataFrameHeader.TermOffsetFieldOffset, frameOffset)
	dst.PutInt32(frameOffset+logbuffer.DataFrameHeader.SessionIDFieldOffset, h.sessionID)
	dst.PutInt32(frameOffset+logbuffer.DataFrameHeader.StreamIDFieldOffset, h.streamID)
	dst.PutInt32(frameOffset+logbuffer.DataFrameHeader.TermIDFieldOffset, termID)

	dst.PutInt32Ordered(frameOffset, -frameLength)
}
