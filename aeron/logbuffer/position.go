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

import "github.com/jakemcc/aeron/aeron/util"

// ComputePositionBitsToShift returns log2(termLength), the shift applied to
// a term id delta when folding it into a stream position. termLength must
// be a power of two.
func ComputePositionBitsToShift(termLength int32) int32 {
	return util.Log2(termLength)
}

// ComputeTermBeginPosition returns the stream position of term_offset 0 in
// activeTermID.
func ComputeTermBeginPosition(activeTermID, positionBitsToShift, initialTermID int32) int64 {
	termCount := int64(activeTermID - initialTermID)
	return termCount << uint(positionBitsToShift)
}

// ComputePosition folds a (term id, term offset) pair into a single
// monotonic stream position.
func ComputePosition(activeTermID, termOffset, positionBitsToShift, initialTermID int32) int64 {
	return ComputeTermBeginPosition(activeTermID, positionBitsToShift, initialTermID) + int64(termOffset)
}

// ComputeTermIDFromPosition recovers the term id containing position.
func ComputeTermIDFromPosition(position int64, positionBitsToShift, initialTermID int32) int32 {
	return int32(position>>uint(positionBitsToShift)) + initialTermID
}

// ComputeTermOffsetFromPosition recovers the term offset component of
// position.
func ComputeTermOffsetFromPosition(position int64, positionBitsToShift int32) int32 {
	mask := int64(1)<<uint(positionBitsToShift) - 1
	return int32(position & mask)
}

// Position bundles the two log-wide constants (initial term id, position
// bits to shift) needed to convert between (term id, term offset) pairs
// and stream positions, so callers — Publication.Position chief among
// them — don't re-derive the shift or thread both constants through every
// call site individually.
type Position struct {
	InitialTermID       int32
	PositionBitsToShift int32
}

// NewPosition derives a Position from a log's term length and initial
// term id.
func NewPosition(termLength, initialTermID int32) Position {
	return Position{InitialTermID: initialTermID, PositionBitsToShift: ComputePositionBitsToShift(termLength)}
}

// TermBeginPosition returns the stream position of term_offset 0 in
// activeTermID.
func (p Position) TermBeginPosition(activeTermID int32) int64 {
	return ComputeTermBeginPosition(activeTermID, p.PositionBitsToShift, p.InitialTermID)
}

// Compute folds a (term id, term offset) pair into a stream position.
func (p Position) Compute(activeTermID, termOffset int32) int64 {
	return ComputePosition(activeTermID, termOffset, p.PositionBitsToShift, p.InitialTermID)
}

// TermID recovers the term id containing position.
func (p Position) TermID(position int64) int32 {
	return ComputeTermIDFromPosition(position, p.PositionBitsToShift, p.InitialTermID)
}

// TermOffset recovers the term offset component of position.
func (p Position) TermOffset(position int64) int32 {
	return ComputeTermOffsetFromPosition(position, p.PositionBitsToShift)
}
