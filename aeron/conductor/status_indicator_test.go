package conductor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakemcc/aeron/aeron/atomic"
	"github.com/jakemcc/aeron/aeron/logbuffer"
)

func newTestMetadata(t *testing.T) *logbuffer.Metadata {
	t.Helper()
	raw := make([]byte, logbuffer.MetaDataLength)
	buf := new(atomic.Buffer)
	buf.WrapSlice(raw)
	header := make([]byte, logbuffer.DataFrameHeader.Length)
	return logbuffer.InitializeMetadata(buf, 0, 1408, logbuffer.MinTermLength, header)
}

func TestStatusIndicatorNotConnectedBeforeFirstHeartbeat(t *testing.T) {
	meta := newTestMetadata(t)
	s := NewStatusIndicator(meta, 5000)
	assert.False(t, s.IsPublicationConnected(1000))
}

func TestStatusIndicatorConnectedWithinTimeout(t *testing.T) {
	meta := newTestMetadata(t)
	s := NewStatusIndicator(meta, 5000)

	s.Heartbeat(10000)
	assert.True(t, s.IsPublicationConnected(12000))
	assert.False(t, s.IsPublicationConnected(20000))
}

func TestStatusIndicatorEpochClockMillisIsMonotonicNonNegative(t *testing.T) {
	meta := newTestMetadata(t)
	s := NewStatusIndicator(meta, 5000)
	now := s.EpochClockMillis()
	assert.Greater(t, now, int64(0))
	assert.GreaterOrEqual(t, s.EpochClockMillis(), now)
}

func TestStatusIndicatorClientLockReturnsSameMutex(t *testing.T) {
	meta := newTestMetadata(t)
	s := NewStatusIndicator(meta, 5000)
	require.Same(t, s.ClientLock(), s.ClientLock())
}

func TestStatusIndicatorStringer(t *testing.T) {
	meta := newTestMetadata(t)
	s := NewStatusIndicator(meta, 1234)
	assert.Contains(t, s.String(), "1234")
}

var _ Link = (*StatusIndicator)(nil)
