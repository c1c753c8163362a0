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
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/op/go-logging"

	"github.com/jakemcc/aeron/aeron/atomic"
)

var log = logging.MustGetLogger("logbuffer")

const (
	// MinTermLength is the smallest permitted term buffer size.
	MinTermLength int32 = 64 * 1024
	// MaxTermLength is the largest permitted term buffer size.
	MaxTermLength int32 = 1 << 30
)

// LogBuffers owns the memory mapping backing a log: three term buffers and
// a metadata buffer, all views over one contiguous mapped file. The writer
// that created it, and every subscriber that opens the same path, end up
// with independent mappings of the same shared memory.
type LogBuffers struct {
	file       *os.File
	mapping    mmap.MMap
	termLength int32
	terms      [PartitionCount]atomic.Buffer
	metaBuf    atomic.Buffer
	meta       *Metadata
	ownsFile   bool
}

func totalLogLength(termLength int32) int64 {
	return int64(termLength)*PartitionCount + int64(MetaDataLength)
}

func validateTermLength(termLength int32) error {
	if !util32IsPowerOfTwo(termLength) {
		return fmt.Errorf("logbuffer: term length %d is not a power of two", termLength)
	}
	if termLength < MinTermLength || termLength > MaxTermLength {
		return fmt.Errorf("logbuffer: term length %d outside [%d,%d]", termLength, MinTermLength, MaxTermLength)
	}
	return nil
}

func util32IsPowerOfTwo(v int32) bool {
	return v > 0 && v&(v-1) == 0
}

// MapNewLog creates (or truncates) the file at path, sizes it for a log
// with the given term length, maps it, and stamps fresh metadata with the
// given initial term id, MTU, and default frame header template.
func MapNewLog(path string, termLength, mtuLength, initialTermID int32, defaultFrameHeader []byte) (*LogBuffers, error) {
	if err := validateTermLength(termLength); err != nil {
		return nil, err
	}
	if len(defaultFrameHeader) != int(DataFrameHeader.Length) {
		return nil, fmt.Errorf("logbuffer: default frame header must be %d bytes, got %d", DataFrameHeader.Length, len(defaultFrameHeader))
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logbuffer: create %s: %w", path, err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("logbuffer: lock %s: %w", path, err)
	}
	// Truncate only once the lock is held, so a failed second creator leaves
	// the existing log intact.
	if err := f.Truncate(0); err != nil {
		f.Close()
		return nil, fmt.Errorf("logbuffer: truncate %s: %w", path, err)
	}
	if err := f.Truncate(totalLogLength(termLength)); err != nil {
		f.Close()
		return nil, fmt.Errorf("logbuffer: truncate %s: %w", path, err)
	}

	lb, err := mapFile(f, termLength, true)
	if err != nil {
		f.Close()
		return nil, err
	}

	lb.meta = InitializeMetadata(&lb.metaBuf, initialTermID, mtuLength, termLength, defaultFrameHeader)
	log.Infof("created log %s: termLength=%d mtu=%d initialTermId=%d", path, termLength, mtuLength, initialTermID)
	return lb, nil
}

// MapLog opens an existing log file at path, previously created by
// MapNewLog (by this process or another), and maps it read/write.
func MapLog(path string, termLength int32) (*LogBuffers, error) {
	if err := validateTermLength(termLength); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logbuffer: open %s: %w", path, err)
	}
	lb, err := mapFile(f, termLength, false)
	if err != nil {
		f.Close()
		return nil, err
	}
	lb.meta = WrapMetadata(&lb.metaBuf)
	return lb, nil
}

func mapFile(f *os.File, termLength int32, owns bool) (*LogBuffers, error) {
	m, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("logbuffer: mmap: %w", err)
	}
	if int64(len(m)) != totalLogLength(termLength) {
		m.Unmap()
		return nil, fmt.Errorf("logbuffer: mapped length %d does not match expected %d", len(m), totalLogLength(termLength))
	}

	lb := &LogBuffers{
		file:       f,
		mapping:    m,
		termLength: termLength,
		ownsFile:   owns,
	}
	for i := 0; i < PartitionCount; i++ {
		start := int32(i) * termLength
		lb.terms[i].WrapSlice(m[start : start+termLength])
	}
	metaStart := int64(PartitionCount) * int64(termLength)
	lb.metaBuf.WrapSlice(m[metaStart : metaStart+int64(MetaDataLength)])
	return lb, nil
}

// TermLength returns the size in bytes of each of the three term buffers.
func (lb *LogBuffers) TermLength() int32 {
	return lb.termLength
}

// TermBuffer returns the atomic.Buffer view for partition index i.
func (lb *LogBuffers) TermBuffer(i int) *atomic.Buffer {
	return &lb.terms[i]
}

// TermBuffers returns views for all three partitions, in order.
func (lb *LogBuffers) TermBuffers() [PartitionCount]*atomic.Buffer {
	var out [PartitionCount]*atomic.Buffer
	for i := range lb.terms {
		out[i] = &lb.terms[i]
	}
	return out
}

// MetaDataBuffer returns the raw metadata buffer.
func (lb *LogBuffers) MetaDataBuffer() *atomic.Buffer {
	return &lb.metaBuf
}

// Meta returns the typed metadata view.
func (lb *LogBuffers) Meta() *Metadata {
	return lb.meta
}

// Close unmaps the log and closes the backing file this LogBuffers opened,
// whether it created the file (MapNewLog) or opened an existing one
// (MapLog). The log is always closed last in a publication's lifecycle.
func (lb *LogBuffers) Close() error {
	if lb.mapping != nil {
		if err := lb.mapping.Unmap(); err != nil {
			return fmt.Errorf("logbuffer: unmap: %w", err)
		}
		lb.mapping = nil
	}
	if lb.file != nil {
		err := lb.file.Close()
		lb.file = nil
		return err
	}
	return nil
}
