package logbuffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputePositionBitsToShift(t *testing.T) {
	assert.EqualValues(t, 16, ComputePositionBitsToShift(65536))
	assert.EqualValues(t, 17, ComputePositionBitsToShift(131072))
}

func TestComputeTermBeginPosition(t *testing.T) {
	shift := ComputePositionBitsToShift(65536)
	assert.EqualValues(t, 0, ComputeTermBeginPosition(5, shift, 5))
	assert.EqualValues(t, 65536, ComputeTermBeginPosition(6, shift, 5))
	assert.EqualValues(t, 65536*3, ComputeTermBeginPosition(8, shift, 5))
}

func TestComputePositionRoundTrip(t *testing.T) {
	shift := ComputePositionBitsToShift(65536)
	initialTermID := int32(42)

	pos := ComputePosition(44, 100, shift, initialTermID)
	assert.EqualValues(t, 65536*2+100, pos)

	assert.Equal(t, int32(44), ComputeTermIDFromPosition(pos, shift, initialTermID))
	assert.Equal(t, int32(100), ComputeTermOffsetFromPosition(pos, shift))
}

func TestPositionHelperType(t *testing.T) {
	p := NewPosition(65536, 7)
	assert.EqualValues(t, 7, p.InitialTermID)
	assert.EqualValues(t, 16, p.PositionBitsToShift)

	assert.EqualValues(t, 0, p.TermBeginPosition(7))
	assert.EqualValues(t, 65536, p.TermBeginPosition(8))

	pos := p.Compute(9, 200)
	assert.EqualValues(t, 65536*2+200, pos)
	assert.EqualValues(t, 9, p.TermID(pos))
	assert.EqualValues(t, 200, p.TermOffset(pos))
}

func TestPositionMonotonicAcrossTermRotation(t *testing.T) {
	p := NewPosition(65536, 0)
	last := int64(-1)
	for termID := int32(0); termID < 4; termID++ {
		for _, offset := range []int32{0, 1024, 65536 - 32} {
			pos := p.Compute(termID, offset)
			assert.Greater(t, pos, last)
			last = pos
		}
	}
}
