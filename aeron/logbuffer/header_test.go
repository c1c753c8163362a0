package logbuffer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jakemcc/aeron/aeron/atomic"
)

func TestFrameLengthAndAlignedLength(t *testing.T) {
	assert.EqualValues(t, 32, FrameLength(0))
	assert.EqualValues(t, 42, FrameLength(10))

	assert.EqualValues(t, 32, AlignedLength(0))
	assert.EqualValues(t, 64, AlignedLength(10))
	assert.EqualValues(t, 64, AlignedLength(32))
	assert.EqualValues(t, 96, AlignedLength(33))
}

func TestPackTailRoundTrip(t *testing.T) {
	raw := PackTail(7, 1024)
	assert.EqualValues(t, 7, TermID(raw))
	assert.EqualValues(t, 1024, TermOffset(raw, 65536))
}

func TestTermOffsetClampsToTermLength(t *testing.T) {
	raw := PackTail(3, 70000)
	assert.EqualValues(t, 65536, TermOffset(raw, 65536))
}

func TestFrameLengthOrderedVisibleViaVolatile(t *testing.T) {
	raw := make([]byte, 64)
	var buf atomic.Buffer
	buf.WrapSlice(raw)

	FrameLengthOrdered(&buf, 0, -42)
	assert.EqualValues(t, -42, FrameLengthVolatile(&buf, 0))

	FrameLengthOrdered(&buf, 0, 42)
	assert.EqualValues(t, 42, FrameLengthVolatile(&buf, 0))
}

func TestFrameTypeAndPadding(t *testing.T) {
	raw := make([]byte, 64)
	var buf atomic.Buffer
	buf.WrapSlice(raw)

	SetFrameType(&buf, 0, DataFrameHeader.TypeData)
	assert.False(t, IsPaddingFrame(&buf, 0))

	SetFrameType(&buf, 0, DataFrameHeader.TypePad)
	assert.True(t, IsPaddingFrame(&buf, 0))
	assert.Equal(t, DataFrameHeader.TypePad, FrameType(&buf, 0))
}

func TestFrameFlags(t *testing.T) {
	raw := make([]byte, 64)
	var buf atomic.Buffer
	buf.WrapSlice(raw)

	FrameFlags(&buf, 0, BeginFragFlag)
	assert.EqualValues(t, BeginFragFlag, buf.GetUInt8(DataFrameHeader.FlagsFieldOffset))

	FrameFlags(&buf, 0, UnfragmentedFlag)
	assert.EqualValues(t, UnfragmentedFlag, buf.GetUInt8(DataFrameHeader.FlagsFieldOffset))
}
