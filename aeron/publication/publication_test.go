package publication

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakemcc/aeron/aeron/atomic"
	"github.com/jakemcc/aeron/aeron/logbuffer"
)

type fakeLink struct {
	mu          sync.Mutex
	now         int64
	connected   bool
	released    []int64
	destinations []string
}

func (f *fakeLink) EpochClockMillis() int64 { return f.now }

func (f *fakeLink) IsPublicationConnected(nowMillis int64) bool { return f.connected }

func (f *fakeLink) ReleasePublication(registrationID int64) {
	f.released = append(f.released, registrationID)
}

func (f *fakeLink) AddDestination(registrationID int64, url string) error {
	f.destinations = append(f.destinations, url)
	return nil
}

func (f *fakeLink) RemoveDestination(registrationID int64, url string) error {
	return nil
}

func (f *fakeLink) ClientLock() *sync.Mutex { return &f.mu }

type fakePositionLimit struct {
	limit int64
}

func (f *fakePositionLimit) GetVolatile() int64 { return f.limit }

func newTestPublication(t *testing.T, sessionID, streamID int32, mtuLength int32) (*ExclusivePublication, *fakeLink, *fakePositionLimit) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "log")
	header := make([]byte, logbuffer.DataFrameHeader.Length)
	hdr := new(atomic.Buffer)
	hdr.WrapSlice(header)
	hdr.PutInt32(logbuffer.DataFrameHeader.SessionIDFieldOffset, sessionID)
	hdr.PutInt32(logbuffer.DataFrameHeader.StreamIDFieldOffset, streamID)

	lb, err := logbuffer.MapNewLog(path, logbuffer.MinTermLength, mtuLength, 0, header)
	require.NoError(t, err)
	t.Cleanup(func() { lb.Close() })

	link := &fakeLink{connected: true}
	limit := &fakePositionLimit{limit: int64(logbuffer.MinTermLength) * logbuffer.PartitionCount}

	pub, err := New(lb, link, limit, 1)
	require.NoError(t, err)
	return pub, link, limit
}

func TestNewRejectsMTUTooSmallForHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log")
	header := make([]byte, logbuffer.DataFrameHeader.Length)
	lb, err := logbuffer.MapNewLog(path, logbuffer.MinTermLength, 16, 0, header)
	require.NoError(t, err)
	defer lb.Close()

	_, err = New(lb, &fakeLink{connected: true}, &fakePositionLimit{limit: 1 << 30}, 1)
	assert.Error(t, err)
}

func TestOfferUnfragmentedMessageAdvancesPosition(t *testing.T) {
	pub, _, _ := newTestPublication(t, 1, 2, 1408)

	payload := []byte("hello")
	pos, err := pub.Offer(payload, 0, int32(len(payload)), nil)
	require.NoError(t, err)
	assert.Greater(t, pos, int64(0))
}

func TestOfferBackPressuredWhenAtLimit(t *testing.T) {
	pub, link, limit := newTestPublication(t, 1, 2, 1408)
	link.connected = true
	limit.limit = 0

	pos, err := pub.Offer([]byte("x"), 0, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, BackPressured, pos)
}

func TestOfferNotConnectedWhenAtLimitAndDisconnected(t *testing.T) {
	pub, link, limit := newTestPublication(t, 1, 2, 1408)
	link.connected = false
	limit.limit = 0

	pos, err := pub.Offer([]byte("x"), 0, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, NotConnected, pos)
}

func TestOfferOversizeMessageReturnsErrMessageTooLarge(t *testing.T) {
	pub, _, limit := newTestPublication(t, 1, 2, 1408)
	limit.limit = int64(logbuffer.MinTermLength) * logbuffer.PartitionCount

	huge := make([]byte, pub.MaxMessageLength()+1)
	_, err := pub.Offer(huge, 0, int32(len(huge)), nil)
	assert.ErrorIs(t, err, ErrMessageTooLarge)
}

func TestOfferFragmentsMessageLargerThanMaxPayload(t *testing.T) {
	pub, _, _ := newTestPublication(t, 1, 2, 1408)

	length := pub.MaxPayloadLength()*2 + 10
	payload := make([]byte, length)
	pos, err := pub.Offer(payload, 0, length, nil)
	require.NoError(t, err)
	assert.Greater(t, pos, int64(0))
}

func TestTryClaimRejectsLengthOverMaxPayload(t *testing.T) {
	pub, _, _ := newTestPublication(t, 1, 2, 1408)

	var claim logbuffer.BufferClaim
	_, err := pub.TryClaim(pub.MaxPayloadLength()+1, &claim)
	assert.ErrorIs(t, err, ErrMessageTooLarge)
}

func TestTryClaimThenCommitPublishesFrame(t *testing.T) {
	pub, _, _ := newTestPublication(t, 1, 2, 1408)

	var claim logbuffer.BufferClaim
	pos, err := pub.TryClaim(16, &claim)
	require.NoError(t, err)
	require.Greater(t, pos, int64(0))

	claim.Buffer().PutRawBytes(claim.Offset(), []byte("0123456789abcdef"))
	claim.Commit()
	frameOffset := claim.Offset() - logbuffer.DataFrameHeader.Length
	assert.EqualValues(t, logbuffer.FrameLength(16), logbuffer.FrameLengthVolatile(claim.Buffer(), frameOffset))
}

func TestPositionAndAvailableWindow(t *testing.T) {
	pub, _, limit := newTestPublication(t, 1, 2, 1408)
	limit.limit = int64(logbuffer.MinTermLength)

	before := pub.Position()
	_, err := pub.Offer([]byte("hello"), 0, 5, nil)
	require.NoError(t, err)
	after := pub.Position()
	assert.Greater(t, after, before)

	window := pub.AvailableWindow()
	assert.GreaterOrEqual(t, window, int64(0))
}

func TestCloseIsIdempotentAndReleasesOnce(t *testing.T) {
	pub, link, _ := newTestPublication(t, 1, 2, 1408)

	pub.Close()
	pub.Close()
	assert.Len(t, link.released, 1)
	assert.True(t, pub.IsClosed())
}

func TestOperationsAfterCloseReturnClosed(t *testing.T) {
	pub, _, _ := newTestPublication(t, 1, 2, 1408)
	pub.Close()

	pos, err := pub.Offer([]byte("x"), 0, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, Closed, pos)
	assert.Equal(t, Closed, pub.Position())
	assert.Equal(t, Closed, pub.PositionLimit())
	assert.False(t, pub.IsConnected())
}

func TestAddRemoveDestinationDelegateToLink(t *testing.T) {
	pub, link, _ := newTestPublication(t, 1, 2, 1408)

	require.NoError(t, pub.AddDestination("aeron:udp?endpoint=localhost:40123"))
	assert.Len(t, link.destinations, 1)
	require.NoError(t, pub.RemoveDestination("aeron:udp?endpoint=localhost:40123"))
}

func TestAccessorsExposeLogParameters(t *testing.T) {
	pub, _, _ := newTestPublication(t, 11, 22, 1408)

	assert.EqualValues(t, 11, pub.SessionID())
	assert.EqualValues(t, 22, pub.StreamID())
	assert.EqualValues(t, 0, pub.InitialTermID())
	assert.EqualValues(t, logbuffer.MinTermLength, pub.TermBufferLength())
	assert.EqualValues(t, 1408, pub.MTULength())
	assert.EqualValues(t, 1408-logbuffer.DataFrameHeader.Length, pub.MaxPayloadLength())
	assert.Greater(t, pub.MaxPossiblePosition(), int64(0))
}

func TestRotationAcrossTermBoundaryReturnsAdminActionThenSucceeds(t *testing.T) {
	pub, _, limit := newTestPublication(t, 1, 2, 1408)
	limit.limit = int64(logbuffer.MinTermLength) * logbuffer.PartitionCount

	// Drive the active partition to the very edge of the term so the next
	// offer trips it.
	termLength := pub.TermBufferLength()
	rawTail := logbuffer.PackTail(pub.pos.InitialTermID, termLength-64)
	pub.logBuffers.Meta().SetRawTailOrdered(0, rawTail)
	pub.termOffset = termLength - 64

	payload := make([]byte, 100)
	pos, err := pub.Offer(payload, 0, 100, nil)
	require.NoError(t, err)
	assert.Equal(t, AdminAction, pos)

	// The retry after rotation should now succeed in the next partition.
	pos2, err := pub.Offer(payload, 0, 100, nil)
	require.NoError(t, err)
	assert.Greater(t, pos2, int64(0))
}
