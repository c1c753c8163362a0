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

// Package atomic wraps a raw memory region shared across processes with the
// explicit load/store ordering the log buffer protocol depends on. Every
// cross-boundary field (raw tails, the active partition index, frame
// lengths) goes through here so that ordering is never re-derived ad hoc at
// the call site.
package atomic

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// Buffer is an unsafe view over a byte slice, typically backed by a memory
// mapped file shared with other processes. It is not safe to use after the
// backing memory has been unmapped.
type Buffer struct {
	ptr unsafe.Pointer
	len int32
}

// Wrap binds the buffer to ptr for length bytes. It does not copy.
func (b *Buffer) Wrap(ptr unsafe.Pointer, length int32) {
	b.ptr = ptr
	b.len = length
}

// WrapSlice binds the buffer to the storage backing buf. buf must outlive
// the Buffer.
func (b *Buffer) WrapSlice(buf []byte) {
	if len(buf) == 0 {
		b.ptr = nil
		b.len = 0
		return
	}
	b.ptr = unsafe.Pointer(&buf[0])
	b.len = int32(len(buf))
}

// Ptr returns the base address of the wrapped region.
func (b *Buffer) Ptr() unsafe.Pointer {
	return b.ptr
}

// Capacity returns the length in bytes of the wrapped region.
func (b *Buffer) Capacity() int32 {
	return b.len
}

func (b *Buffer) boundsCheck(offset, width int32) {
	if offset < 0 || width < 0 || offset+width > b.len {
		panic(fmt.Sprintf("atomic.Buffer: access [%d,%d) out of bounds for capacity %d", offset, offset+width, b.len))
	}
}

func (b *Buffer) addr(offset int32) unsafe.Pointer {
	return unsafe.Pointer(uintptr(b.ptr) + uintptr(offset))
}

// GetInt32 performs a plain, non-atomic load.
func (b *Buffer) GetInt32(offset int32) int32 {
	b.boundsCheck(offset, 4)
	return *(*int32)(b.addr(offset))
}

// PutInt32 performs a plain, non-atomic store.
func (b *Buffer) PutInt32(offset int32, value int32) {
	b.boundsCheck(offset, 4)
	*(*int32)(b.addr(offset)) = value
}

// GetInt32Volatile performs an acquire load.
func (b *Buffer) GetInt32Volatile(offset int32) int32 {
	b.boundsCheck(offset, 4)
	return atomic.LoadInt32((*int32)(b.addr(offset)))
}

// PutInt32Ordered performs a release store.
func (b *Buffer) PutInt32Ordered(offset int32, value int32) {
	b.boundsCheck(offset, 4)
	atomic.StoreInt32((*int32)(b.addr(offset)), value)
}

// GetInt64Volatile performs an acquire load.
func (b *Buffer) GetInt64Volatile(offset int32) int64 {
	b.boundsCheck(offset, 8)
	return atomic.LoadInt64((*int64)(b.addr(offset)))
}

// PutInt64Ordered performs a release store.
func (b *Buffer) PutInt64Ordered(offset int32, value int64) {
	b.boundsCheck(offset, 8)
	atomic.StoreInt64((*int64)(b.addr(offset)), value)
}

// GetInt64 performs a plain, non-atomic load.
func (b *Buffer) GetInt64(offset int32) int64 {
	b.boundsCheck(offset, 8)
	return *(*int64)(b.addr(offset))
}

// PutInt64 performs a plain, non-atomic store.
func (b *Buffer) PutInt64(offset int32, value int64) {
	b.boundsCheck(offset, 8)
	*(*int64)(b.addr(offset)) = value
}

// CompareAndSetInt64 performs a CAS with full ordering and reports success.
func (b *Buffer) CompareAndSetInt64(offset int32, expected, update int64) bool {
	b.boundsCheck(offset, 8)
	return atomic.CompareAndSwapInt64((*int64)(b.addr(offset)), expected, update)
}

// GetAndAddInt64 atomically adds delta and returns the prior value.
func (b *Buffer) GetAndAddInt64(offset int32, delta int64) int64 {
	b.boundsCheck(offset, 8)
	return atomic.AddInt64((*int64)(b.addr(offset)), delta) - delta
}

// PutInt8 performs a plain, non-atomic store.
func (b *Buffer) PutInt8(offset int32, value int8) {
	b.boundsCheck(offset, 1)
	*(*int8)(b.addr(offset)) = value
}

// PutUInt8 performs a plain, non-atomic store.
func (b *Buffer) PutUInt8(offset int32, value uint8) {
	b.boundsCheck(offset, 1)
	*(*uint8)(b.addr(offset)) = value
}

// GetUInt8 performs a plain, non-atomic load.
func (b *Buffer) GetUInt8(offset int32) uint8 {
	b.boundsCheck(offset, 1)
	return *(*uint8)(b.addr(offset))
}

// PutUInt16 performs a plain, non-atomic store.
func (b *Buffer) PutUInt16(offset int32, value uint16) {
	b.boundsCheck(offset, 2)
	*(*uint16)(b.addr(offset)) = value
}

// GetUInt16 performs a plain, non-atomic load.
func (b *Buffer) GetUInt16(offset int32) uint16 {
	b.boundsCheck(offset, 2)
	return *(*uint16)(b.addr(offset))
}

// PutBytes bulk-copies length bytes from src at srcOffset into b at offset.
// The copy itself carries no ordering guarantee; callers publish visibility
// separately via an ordered store (e.g. the frame length field).
func (b *Buffer) PutBytes(offset int32, src *Buffer, srcOffset, length int32) {
	if length == 0 {
		return
	}
	b.boundsCheck(offset, length)
	src.boundsCheck(srcOffset, length)
	dst := unsafe.Slice((*byte)(b.addr(offset)), length)
	source := unsafe.Slice((*byte)(src.addr(srcOffset)), length)
	copy(dst, source)
}

// PutRawBytes bulk-copies raw Go bytes into the buffer at offset.
func (b *Buffer) PutRawBytes(offset int32, src []byte) {
	if len(src) == 0 {
		return
	}
	b.boundsCheck(offset, int32(len(src)))
	dst := unsafe.Slice((*byte)(b.addr(offset)), len(src))
	copy(dst, src)
}

// GetRawBytes returns a copy of length bytes starting at offset.
func (b *Buffer) GetRawBytes(offset, length int32) []byte {
	b.boundsCheck(offset, length)
	src := unsafe.Slice((*byte)(b.addr(offset)), length)
	out := make([]byte, length)
	copy(out, src)
	return out
}
