package term

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakemcc/aeron/aeron/atomic"
	"github.com/jakemcc/aeron/aeron/logbuffer"
)

func newDefaultHeader(t *testing.T, sessionID, streamID int32) *atomic.Buffer {
	t.Helper()
	raw := make([]byte, logbuffer.DataFrameHeader.Length)
	buf := new(atomic.Buffer)
	buf.WrapSlice(raw)
	buf.PutInt32(logbuffer.DataFrameHeader.SessionIDFieldOffset, sessionID)
	buf.PutInt32(logbuffer.DataFrameHeader.StreamIDFieldOffset, streamID)
	return buf
}

func TestHeaderWriterCarriesSessionAndStreamID(t *testing.T) {
	header := newDefaultHeader(t, 11, 22)
	hw := NewHeaderWriter(header)
	assert.EqualValues(t, 11, hw.SessionID())
	assert.EqualValues(t, 22, hw.StreamID())
}

func TestHeaderWriterWriteStampsFieldsAndNegativeLengthSentinel(t *testing.T) {
	header := newDefaultHeader(t, 5, 9)
	hw := NewHeaderWriter(header)

	raw := make([]byte, 256)
	dst := new(atomic.Buffer)
	dst.WrapSlice(raw)

	hw.Write(dst, 64, 42, 7)

	require.EqualValues(t, -42, logbuffer.FrameLengthVolatile(dst, 64))
	assert.EqualValues(t, logbuffer.DataFrameHeader.CurrentVersion, dst.GetUInt8(64+logbuffer.DataFrameHeader.VersionFieldOffset))
	assert.EqualValues(t, logbuffer.UnfragmentedFlag, dst.GetUInt8(64+logbuffer.DataFrameHeader.FlagsFieldOffset))
	assert.Equal(t, logbuffer.DataFrameHeader.TypeData, logbuffer.FrameType(dst, 64))
	assert.EqualValues(t, 64, dst.GetInt32(64+logbuffer.DataFrameHeader.TermOffsetFieldOffset))
	assert.EqualValues(t, 5, dst.GetInt32(64+logbuffer.DataFrameHeader.SessionIDFieldOffset))
	assert.EqualValues(t, 9, dst.GetInt32(64+logbuffer.DataFrameHeader.StreamIDFieldOffset))
	assert.EqualValues(t, 7, dst.GetInt32(64+logbuffer.DataFrameHeader.TermIDFieldOffset))
}
