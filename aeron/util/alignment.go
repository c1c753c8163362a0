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

// Package util holds small bit-twiddling helpers shared by the log buffer
// implementation.
package util

import "math/bits"

// AlignInt32 rounds up value to the next multiple of alignment, which must
// be a power of two.
func AlignInt32(value, alignment int32) int32 {
	return (value + (alignment - 1)) &^ (alignment - 1)
}

// IsPowerOfTwo reports whether value is a positive power of two.
func IsPowerOfTwo(value int32) bool {
	return value > 0 && (value&(value-1)) == 0
}

// Log2 returns floor(log2(value)) for a positive power-of-two value.
func Log2(value int32) int32 {
	return int32(bits.Len32(uint32(value)) - 1)
}
