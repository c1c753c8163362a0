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

package conductor

import (
	"fmt"
	"sync"
	"time"

	"github.com/op/go-logging"

	"github.com/jakemcc/aeron/aeron/logbuffer"
)

var log = logging.MustGetLogger("conductor")

// StatusIndicator is a standalone Link backed directly by a log's
// time_of_last_status_message field. It models how a driver-side
// heartbeat (outside this module's scope — §1 Out of scope) keeps that
// field fresh, which is what lets tests exercise the
// NOT_CONNECTED/BACK_PRESSURED distinction described in spec §4.5 and §8
// scenario 4 without a real media driver attached.
//
// Destination management is a no-op log line: this is a liveness stub,
// not a channel endpoint registry.
type StatusIndicator struct {
	meta           *logbuffer.Metadata
	connectTimeout int64 // milliseconds
	lock           sync.Mutex
}

// NewStatusIndicator builds a StatusIndicator over meta, treating a status
// message older than connectTimeoutMillis as evidence the driver has gone
// away.
func NewStatusIndicator(meta *logbuffer.Metadata, connectTimeoutMillis int64) *StatusIndicator {
	return &StatusIndicator{meta: meta, connectTimeout: connectTimeoutMillis}
}

// Heartbeat stamps the current time as the last-seen status message,
// standing in for what the media driver does on every status message it
// sends upstream.
func (s *StatusIndicator) Heartbeat(nowMillis int64) {
	s.meta.SetTimeOfLastStatusMessageOrdered(nowMillis)
}

// EpochClockMillis implements Link using the wall clock. A real conductor
// would hand out whatever clock it already maintains for driver timeouts;
// this stub is the one place in the module allowed to call time.Now.
func (s *StatusIndicator) EpochClockMillis() int64 {
	return time.Now().UnixMilli()
}

// IsPublicationConnected implements Link.
func (s *StatusIndicator) IsPublicationConnected(nowMillis int64) bool {
	last := s.meta.TimeOfLastStatusMessageVolatile()
	return last > 0 && nowMillis-last <= s.connectTimeout
}

// ReleasePublication implements Link.
func (s *StatusIndicator) ReleasePublication(registrationID int64) {
	log.Infof("publication %d released", registrationID)
}

// AddDestination implements Link.
func (s *StatusIndicator) AddDestination(registrationID int64, url string) error {
	log.Debugf("publication %d add-destination %s", registrationID, url)
	return nil
}

// RemoveDestination implements Link.
func (s *StatusIndicator) RemoveDestination(registrationID int64, url string) error {
	log.Debugf("publication %d remove-destination %s", registrationID, url)
	return nil
}

// ClientLock implements Link.
func (s *StatusIndicator) ClientLock() *sync.Mutex {
	return &s.lock
}

var _ fmt.Stringer = (*StatusIndicator)(nil)

// String implements fmt.Stringer for debug logging.
func (s *StatusIndicator) String() string {
	return fmt.Sprintf("StatusIndicator{connectTimeout=%dms}", s.connectTimeout)
}
