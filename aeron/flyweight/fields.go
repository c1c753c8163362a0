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

// Package flyweight provides small typed views over a single field of a
// shared atomic.Buffer, so callers needn't repeat the offset at every call
// site.
package flyweight

import "github.com/jakemcc/aeron/aeron/atomic"

// Int64Field is a flyweight over a single i64 slot, such as a raw tail
// counter or the time-of-last-status-message field.
type Int64Field struct {
	buffer *atomic.Buffer
	offset int32
}

// WrapInt64Field binds an Int64Field to offset within buffer.
func WrapInt64Field(buffer *atomic.Buffer, offset int32) Int64Field {
	return Int64Field{buffer: buffer, offset: offset}
}

// Get performs an acquire load.
func (f Int64Field) Get() int64 {
	return f.buffer.GetInt64Volatile(f.offset)
}

// Set performs a release store.
func (f Int64Field) Set(value int64) {
	f.buffer.PutInt64Ordered(f.offset, value)
}

// GetAndAddInt64 atomically adds delta and returns the prior value.
func (f Int64Field) GetAndAddInt64(delta int64) int64 {
	return f.buffer.GetAndAddInt64(f.offset, delta)
}

// CompareAndSet performs a CAS against the field and reports success.
func (f Int64Field) CompareAndSet(expected, update int64) bool {
	return f.buffer.CompareAndSetInt64(f.offset, expected, update)
}

// Int32Field is a flyweight over a single i32 slot, such as the active
// partition index.
type Int32Field struct {
	buffer *atomic.Buffer
	offset int32
}

// WrapInt32Field binds an Int32Field to offset within buffer.
func WrapInt32Field(buffer *atomic.Buffer, offset int32) Int32Field {
	return Int32Field{buffer: buffer, offset: offset}
}

// Get performs an acquire load.
func (f Int32Field) Get() int32 {
	return f.buffer.GetInt32Volatile(f.offset)
}

// Set performs a release store.
func (f Int32Field) Set(value int32) {
	f.buffer.PutInt32Ordered(f.offset, value)
}
