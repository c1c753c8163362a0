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

// Package conductor defines the minimal interface an ExclusivePublication
// consumes from the client-side conductor: destination management and
// connection liveness. The conductor itself — driver RPC, the control
// protocol, retry/heartbeat timing — lives outside this module's scope;
// only the boundary interface does.
package conductor

import "sync"

// Link is consumed by publication.ExclusivePublication for the handful of
// operations that cross into conductor-owned state: releasing the
// publication, registering/deregistering manual-mode destinations, and
// checking whether the driver has reported liveness recently. Every
// method it exposes beyond liveness checks is expected to be called while
// holding the lock returned by ClientLock.
type Link interface {
	// EpochClockMillis returns the conductor's notion of current time. The
	// publication never reads wall time itself (design note, §9); every
	// place it needs "now" it asks the conductor for it.
	EpochClockMillis() int64

	// IsPublicationConnected reports whether a status message was received
	// from the driver more recently than nowMillis minus the connection
	// timeout the conductor enforces.
	IsPublicationConnected(nowMillis int64) bool

	// ReleasePublication notifies the conductor that registrationID's
	// last local reference has gone away, so the driver-side resource can
	// eventually be reclaimed.
	ReleasePublication(registrationID int64)

	// AddDestination registers url as a manual-mode destination for the
	// publication identified by registrationID.
	AddDestination(registrationID int64, url string) error

	// RemoveDestination deregisters a previously added destination.
	RemoveDestination(registrationID int64, url string) error

	// ClientLock returns the mutex serializing all client/conductor
	// interactions. Close, AddDestination, and RemoveDestination on the
	// publication acquire it before calling through to the link. It is a
	// plain sync.Mutex and is not reentrant: a goroutine that already holds
	// it and locks it again blocks forever.
	ClientLock() *sync.Mutex
}
