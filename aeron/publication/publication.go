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

// Package publication implements ExclusivePublication: the orchestration
// of partition selection, back-pressure, rotation, fragmentation policy,
// and lifecycle described in spec §4.5. It is the only caller of the
// term.Appender reservation algorithm and the sole writer of a
// publication's term buffers.
package publication

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/op/go-logging"

	"github.com/jakemcc/aeron/aeron/conductor"
	aerontomic "github.com/jakemcc/aeron/aeron/atomic"
	"github.com/jakemcc/aeron/aeron/logbuffer"
	"github.com/jakemcc/aeron/aeron/logbuffer/term"
)

var log = logging.MustGetLogger("publication")

// Sentinel positions returned by Offer/TryClaim, per spec §6.
const (
	NotConnected  int64 = -1
	BackPressured int64 = -2
	AdminAction   int64 = -3
	Closed        int64 = -4
)

// maxMessageLengthCap bounds maxMessageLength regardless of term length:
// no single message may exceed 16 MiB.
const maxMessageLengthCap = 16 * 1024 * 1024

// ErrMessageTooLarge is returned synchronously when Offer's length exceeds
// MaxMessageLength(), or TryClaim's exceeds MaxPayloadLength(). It is a
// programmer error: the publication's state is left unchanged.
var ErrMessageTooLarge = errors.New("publication: message length exceeds maximum for this publication")

// ReadablePosition is the consumer-maintained position limit the writer
// backs off against. The media driver (or, in tests, a plain counter)
// implements it.
type ReadablePosition interface {
	// GetVolatile performs an acquire load of the current limit.
	GetVolatile() int64
}

// ExclusivePublication is the single-writer append path into a log shared
// with concurrent subscribers and a media driver. Exactly one goroutine
// may call Offer, TryClaim, or Close on a given instance; Position and
// PositionLimit are safe to call from any goroutine.
type ExclusivePublication struct {
	logBuffers *logbuffer.LogBuffers
	meta       *logbuffer.Metadata
	link       conductor.Link

	appenders    [logbuffer.PartitionCount]*term.Appender
	headerWriter *term.HeaderWriter
	positionLim  ReadablePosition

	registrationID int64
	sessionID      int32
	streamID       int32
	pos            logbuffer.Position

	termLength       int32
	mtuLength        int32
	maxPayloadLength int32
	maxMessageLength int32

	// Writer-owned state. Never touched by any other goroutine.
	activePartitionIndex int32
	termID                int32
	termOffset            int32
	termBeginPosition     int64

	closed atomic.Bool
}

// New builds an ExclusivePublication over an already-opened log, handed
// off by a conductor along with a consumer position limit. It derives its
// writer-local state (active partition, term id, term offset, term begin
// position) from the log's current raw tails, so it can resume a log that
// already has data in it.
func New(logBuffers *logbuffer.LogBuffers, link conductor.Link, positionLimit ReadablePosition, registrationID int64) (*ExclusivePublication, error) {
	meta := logBuffers.Meta()
	termLength := logBuffers.TermLength()
	mtuLength := meta.MTULength()
	initialTermID := meta.InitialTermID()

	if mtuLength <= logbuffer.DataFrameHeader.Length {
		return nil, fmt.Errorf("publication: mtu length %d too small for header length %d", mtuLength, logbuffer.DataFrameHeader.Length)
	}

	headerWriter := term.NewHeaderWriter(meta.DefaultFrameHeader())

	p := &ExclusivePublication{
		logBuffers:       logBuffers,
		meta:             meta,
		link:             link,
		headerWriter:     headerWriter,
		positionLim:      positionLimit,
		registrationID:   registrationID,
		sessionID:        headerWriter.SessionID(),
		streamID:         headerWriter.StreamID(),
		pos:              logbuffer.NewPosition(termLength, initialTermID),
		termLength:       termLength,
		mtuLength:        mtuLength,
		maxPayloadLength: mtuLength - logbuffer.DataFrameHeader.Length,
	}
	p.maxMessageLength = termLength / 8
	if p.maxMessageLength > maxMessageLengthCap {
		p.maxMessageLength = maxMessageLengthCap
	}

	for i := 0; i < logbuffer.PartitionCount; i++ {
		p.appenders[i] = term.NewAppender(logBuffers, i)
	}

	p.activePartitionIndex = meta.ActivePartitionIndexVolatile()
	rawTail := p.appenders[p.activePartitionIndex].RawTailVolatile()
	p.termID = logbuffer.TermID(rawTail)
	p.termOffset = logbuffer.TermOffset(rawTail, termLength)
	p.termBeginPosition = p.pos.TermBeginPosition(p.termID)

	return p, nil
}

// Offer appends src[offset:offset+length) as one frame (if length is at most
// MaxPayloadLength) or a sequence of fragments (otherwise), fragmenting per spec
// §4.5's policy. It returns the new stream position on success, or one of
// NotConnected/BackPressured/AdminAction/Closed. A length over
// MaxMessageLength is an input violation: ErrMessageTooLarge is returned
// and the publication's state is unchanged.
func (p *ExclusivePublication) Offer(src []byte, offset, length int32, reservedValueSupplier term.ReservedValueSupplier) (int64, error) {
	if p.closed.Load() {
		return Closed, nil
	}

	limit := p.positionLim.GetVolatile()
	position := p.termBeginPosition + int64(p.termOffset)
	if position >= limit {
		return p.backPressureResult(), nil
	}

	var buf aerontomic.Buffer
	buf.WrapSlice(src)

	var result int32
	if length <= p.maxPayloadLength {
		result = p.appenders[p.activePartitionIndex].AppendUnfragmentedMessage(
			p.termID, p.termOffset, p.headerWriter, &buf, offset, length, reservedValueSupplier)
	} else {
		if length > p.maxMessageLength {
			return 0, fmt.Errorf("%w: length %d exceeds max message length %d", ErrMessageTooLarge, length, p.maxMessageLength)
		}
		result = p.appenders[p.activePartitionIndex].AppendFragmentedMessage(
			p.termID, p.termOffset, p.headerWriter, &buf, offset, length, p.maxPayloadLength, reservedValueSupplier)
	}

	return p.newPosition(result), nil
}

// TryClaim reserves length bytes of a single frame and populates claim for
// the caller to write payload into directly (zero-copy). length must not
// exceed MaxPayloadLength — TryClaim never fragments.
func (p *ExclusivePublication) TryClaim(length int32, claim *logbuffer.BufferClaim) (int64, error) {
	if length > p.maxPayloadLength {
		return 0, fmt.Errorf("%w: length %d exceeds max payload length %d", ErrMessageTooLarge, length, p.maxPayloadLength)
	}
	if p.closed.Load() {
		return Closed, nil
	}

	limit := p.positionLim.GetVolatile()
	position := p.termBeginPosition + int64(p.termOffset)
	if position >= limit {
		return p.backPressureResult(), nil
	}

	result := p.appenders[p.activePartitionIndex].Claim(p.termID, p.termOffset, p.headerWriter, length, claim)
	return p.newPosition(result), nil
}

func (p *ExclusivePublication) backPressureResult() int64 {
	now := p.link.EpochClockMillis()
	if p.link.IsPublicationConnected(now) {
		return BackPressured
	}
	return NotConnected
}

// newPosition folds a TermAppender result into the spec's return contract,
// advancing writer-local state and rotating partitions on Tripped.
func (p *ExclusivePublication) newPosition(result int32) int64 {
	if result > 0 {
		p.termOffset = result
		return p.termBeginPosition + int64(result)
	}
	if result == logbuffer.Tripped {
		p.rotate()
		return AdminAction
	}
	return AdminAction
}

// rotate advances to the next partition in round-robin order after a
// Tripped result, per spec §4.5's state machine.
func (p *ExclusivePublication) rotate() {
	nextIndex := (p.activePartitionIndex + 1) % logbuffer.PartitionCount
	nextTermID := p.termID + 1

	p.appenders[nextIndex].TailTermID(nextTermID)

	p.activePartitionIndex = nextIndex
	p.termID = nextTermID
	p.termOffset = 0
	p.termBeginPosition = p.pos.TermBeginPosition(nextTermID)

	p.meta.SetActivePartitionIndexOrdered(nextIndex)
	log.Infof("publication %d rotated to partition %d, term %d", p.registrationID, nextIndex, nextTermID)
}

// Position observes the active partition's raw tail with acquire
// ordering and returns the corresponding stream position, or Closed. It
// is safe to call from any goroutine, including the writer's own — but
// per the design note in spec §9 it reads the shared metadata rather than
// writer-local state, so it may disagree briefly with the writer's own
// view across a rotation. Treat it as a hint, not ground truth for append
// decisions.
func (p *ExclusivePublication) Position() int64 {
	if p.closed.Load() {
		return Closed
	}
	index := p.meta.ActivePartitionIndexVolatile()
	rawTail := p.appenders[index].RawTailVolatile()
	termID := logbuffer.TermID(rawTail)
	termOffset := logbuffer.TermOffset(rawTail, p.termLength)
	return p.pos.Compute(termID, termOffset)
}

// PositionLimit observes the consumer-advertised position limit with
// acquire ordering, or Closed.
func (p *ExclusivePublication) PositionLimit() int64 {
	if p.closed.Load() {
		return Closed
	}
	return p.positionLim.GetVolatile()
}

// AvailableWindow returns how much further the publisher could advance
// before the next Offer/TryClaim risks back-pressure. Not named by the
// minimal append-path operations, but the natural signal a caller's retry
// policy needs (spec §7: "caller retries").
func (p *ExclusivePublication) AvailableWindow() int64 {
	if p.closed.Load() {
		return 0
	}
	window := p.positionLim.GetVolatile() - p.Position()
	if window < 0 {
		return 0
	}
	return window
}

// IsConnected reports whether the publication is open and the conductor
// has reported a recent status message.
func (p *ExclusivePublication) IsConnected() bool {
	if p.closed.Load() {
		return false
	}
	return p.link.IsPublicationConnected(p.link.EpochClockMillis())
}

// IsClosed reports whether Close has completed.
func (p *ExclusivePublication) IsClosed() bool {
	return p.closed.Load()
}

// AddDestination registers url as a manual-mode destination, serialized
// under the conductor's client lock.
func (p *ExclusivePublication) AddDestination(url string) error {
	lock := p.link.ClientLock()
	lock.Lock()
	defer lock.Unlock()
	return p.link.AddDestination(p.registrationID, url)
}

// RemoveDestination deregisters a previously added destination.
func (p *ExclusivePublication) RemoveDestination(url string) error {
	lock := p.link.ClientLock()
	lock.Lock()
	defer lock.Unlock()
	return p.link.RemoveDestination(p.registrationID, url)
}

// Close is idempotent: the first call releases the publication through
// the conductor (under its client lock); subsequent calls are no-ops. The
// log itself is not unmapped here — it is closed last, by whoever owns
// the LogBuffers (spec §3 Lifecycle).
func (p *ExclusivePublication) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	lock := p.link.ClientLock()
	lock.Lock()
	defer lock.Unlock()
	p.link.ReleasePublication(p.registrationID)
}

// SessionID returns the session id stamped into every frame this
// publication writes.
func (p *ExclusivePublication) SessionID() int32 { return p.sessionID }

// StreamID returns the stream id stamped into every frame this
// publication writes.
func (p *ExclusivePublication) StreamID() int32 { return p.streamID }

// InitialTermID returns the term id the log started at.
func (p *ExclusivePublication) InitialTermID() int32 { return p.pos.InitialTermID }

// TermBufferLength returns the size in bytes of each of the log's three
// term buffers.
func (p *ExclusivePublication) TermBufferLength() int32 { return p.termLength }

// MTULength returns the log's configured MTU.
func (p *ExclusivePublication) MTULength() int32 { return p.mtuLength }

// MaxPayloadLength returns the largest payload Offer will write
// unfragmented, and TryClaim will accept at all.
func (p *ExclusivePublication) MaxPayloadLength() int32 { return p.maxPayloadLength }

// MaxMessageLength returns the largest message Offer will accept (by
// fragmenting it if it exceeds MaxPayloadLength); longer messages are
// rejected with ErrMessageTooLarge.
func (p *ExclusivePublication) MaxMessageLength() int32 { return p.maxMessageLength }

// MaxPossiblePosition returns the largest stream position this log's
// 32-bit term-id space can reach before term ids would wrap. It is an
// accessor only: Offer and TryClaim do not check positions against it.
func (p *ExclusivePublication) MaxPossiblePosition() int64 {
	termCount := int64(1) << 31
	return termCount << uint(p.pos.PositionBitsToShift)
}
