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
	"github.com/jakemcc/aeron/aeron/atomic"
	"github.com/jakemcc/aeron/aeron/flyweight"
)

// PartitionCount is the number of term buffers rotated round-robin in a
// log, fixed by the wire format.
const PartitionCount = 3

// Metadata layout offsets, as described by §6 of the log metadata layout.
const (
	termTailCounterOffset     = 0
	activePartitionIndexOffset = termTailCounterOffset + PartitionCount*8
	initialTermIDOffset       = activePartitionIndexOffset + 4
	mtuLengthOffset           = initialTermIDOffset + 4
	termLengthOffset          = mtuLengthOffset + 4
	defaultFrameHeaderOffset  = termLengthOffset + 4
	timeOfLastSMOffset        = defaultFrameHeaderOffset + DataFrameHeader.Length

	// MetaDataLength is the total size in bytes of the metadata region.
	MetaDataLength = timeOfLastSMOffset + 8
)

// Metadata is a typed view over the log's metadata region: the three raw
// tails, the active partition index, the immutable log parameters
// (initial term id, MTU, term length, default frame header template), and
// the driver-maintained status-message timestamp.
type Metadata struct {
	buffer               *atomic.Buffer
	rawTails             [PartitionCount]flyweight.Int64Field
	activePartitionIndex flyweight.Int32Field
	timeOfLastSM         flyweight.Int64Field
}

// WrapMetadata binds a Metadata view to buffer, which must be at least
// MetaDataLength bytes.
func WrapMetadata(buffer *atomic.Buffer) *Metadata {
	m := &Metadata{buffer: buffer}
	for i := 0; i < PartitionCount; i++ {
		m.rawTails[i] = flyweight.WrapInt64Field(buffer, termTailCounterOffset+int32(i)*8)
	}
	m.activePartitionIndex = flyweight.WrapInt32Field(buffer, activePartitionIndexOffset)
	m.timeOfLastSM = flyweight.WrapInt64Field(buffer, timeOfLastSMOffset)
	return m
}

// InitializeMetadata stamps the immutable fields of a freshly created log:
// initial term id, mtu length, term length, and the default frame header
// template (which must be exactly DataFrameHeader.Length bytes).
func InitializeMetadata(buffer *atomic.Buffer, initialTermID, mtuLength, termLength int32, defaultHeader []byte) *Metadata {
	m := WrapMetadata(buffer)
	buffer.PutInt32(initialTermIDOffset, initialTermID)
	buffer.PutInt32(mtuLengthOffset, mtuLength)
	buffer.PutInt32(termLengthOffset, termLength)
	buffer.PutRawBytes(defaultFrameHeaderOffset, defaultHeader)
	// Partition 0 starts active at the initial term id; partitions 1 and 2
	// are pre-seeded with the term id they will carry the first time
	// rotation activates them (each rotation re-seeds the partition it
	// activates via TermAppender.TailTermID, so a partition's pre-seed is
	// only what observers read before rotation first reaches it).
	for i := 0; i < PartitionCount; i++ {
		m.rawTails[i].Set(PackTail(initialTermID+int32(i), 0))
	}
	m.activePartitionIndex.Set(0)
	m.timeOfLastSM.Set(0)
	return m
}

// RawTailVolatile observes the raw tail of a partition with acquire
// ordering.
func (m *Metadata) RawTailVolatile(partitionIndex int) int64 {
	return m.rawTails[partitionIndex].Get()
}

// CompareAndSetRawTail attempts to CAS the raw tail of a partition.
func (m *Metadata) CompareAndSetRawTail(partitionIndex int, expected, update int64) bool {
	return m.rawTails[partitionIndex].CompareAndSet(expected, update)
}

// SetRawTailOrdered publishes a new raw tail for a partition with release
// ordering, used when rotating into a fresh partition.
func (m *Metadata) SetRawTailOrdered(partitionIndex int, value int64) {
	m.rawTails[partitionIndex].Set(value)
}

// ActivePartitionIndexVolatile observes the active partition index with
// acquire ordering.
func (m *Metadata) ActivePartitionIndexVolatile() int32 {
	return m.activePartitionIndex.Get()
}

// SetActivePartitionIndexOrdered publishes the active partition index with
// release ordering.
func (m *Metadata) SetActivePartitionIndexOrdered(index int32) {
	m.activePartitionIndex.Set(index)
}

// InitialTermID returns the log's initial term id, fixed at construction.
func (m *Metadata) InitialTermID() int32 {
	return m.buffer.GetInt32(initialTermIDOffset)
}

// MTULength returns the log's MTU, fixed at construction.
func (m *Metadata) MTULength() int32 {
	return m.buffer.GetInt32(mtuLengthOffset)
}

// TermLength returns the log's term length, fixed at construction.
func (m *Metadata) TermLength() int32 {
	return m.buffer.GetInt32(termLengthOffset)
}

// DefaultFrameHeader returns a buffer wrapping the default frame header
// template used by HeaderWriter.
func (m *Metadata) DefaultFrameHeader() *atomic.Buffer {
	view := new(atomic.Buffer)
	raw := m.buffer.GetRawBytes(defaultFrameHeaderOffset, DataFrameHeader.Length)
	view.WrapSlice(raw)
	return view
}

// TimeOfLastStatusMessageVolatile observes the driver-maintained liveness
// timestamp with acquire ordering.
func (m *Metadata) TimeOfLastStatusMessageVolatile() int64 {
	return m.timeOfLastSM.Get()
}

// SetTimeOfLastStatusMessageOrdered publishes a new liveness timestamp
// with release ordering; called by the conductor/driver side, never by the
// append path.
func (m *Metadata) SetTimeOfLastStatusMessageOrdered(epochMillis int64) {
	m.timeOfLastSM.Set(epochMillis)
}
