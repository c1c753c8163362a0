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

// Package aeron collects the construction-time configuration a client
// needs before it can ask a conductor for an exclusive publication: where
// the shared log directory lives, how errors surface, and how long to
// wait for the media driver before giving up. The append path itself
// (package publication) takes none of this directly — it is resolved once,
// at handoff time, into the concrete LogBuffers/ConductorLink/
// ReadablePosition the publication is built from.
package aeron

import (
	"os"
	"time"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("aeron")

const defaultAeronDir = "/dev/shm/aeron"

// ErrorHandler receives errors the client can't return synchronously,
// e.g. a conductor response arriving for a publication that already
// reported Close.
type ErrorHandler func(error)

func defaultErrorHandler(err error) {
	// Matches the teacher's own fallback: log and move on rather than
	// crash a goroutine the caller doesn't control.
	log.Warning(err)
}

// Context bundles the options governing how a client reaches a media
// driver and maps its logs. It is built with functional options, in the
// style of framer.Options from the retrieved pack: each option function
// (AeronDir, WithErrorHandler, MediaDriverTimeout, ...) returns an Option
// closure applied in order over a struct seeded with defaults.
type Context struct {
	aeronDir             string
	errorHandler         ErrorHandler
	mediaDriverTimeout   time.Duration
	resourceLingerTimeout time.Duration
	interServiceTimeout  time.Duration
}

// NewContext returns a Context populated with the teacher's defaults,
// then overridden by opts in order.
func NewContext(opts ...Option) *Context {
	c := &Context{
		aeronDir:              defaultAeronDir,
		errorHandler:          defaultErrorHandler,
		mediaDriverTimeout:    10 * time.Second,
		resourceLingerTimeout: 5 * time.Second,
		interServiceTimeout:   10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Option configures a Context.
type Option func(*Context)

// AeronDir overrides the directory the client expects the media driver's
// shared files (including mapped logs) to live under.
func AeronDir(dir string) Option {
	return func(c *Context) { c.aeronDir = dir }
}

// WithErrorHandler overrides the callback used for errors that can't be
// returned synchronously to a caller.
func WithErrorHandler(h ErrorHandler) Option {
	return func(c *Context) {
		if h != nil {
			c.errorHandler = h
		}
	}
}

// MediaDriverTimeout overrides how long the client waits for a media
// driver heartbeat before concluding it isn't running.
func MediaDriverTimeout(d time.Duration) Option {
	return func(c *Context) { c.mediaDriverTimeout = d }
}

// ResourceLingerTimeout overrides how long a released publication's
// driver-side resources stay around before reclamation.
func ResourceLingerTimeout(d time.Duration) Option {
	return func(c *Context) { c.resourceLingerTimeout = d }
}

// InterServiceTimeout overrides the max gap allowed between duty-cycle
// iterations of a client's conductor before the driver considers it dead.
func InterServiceTimeout(d time.Duration) Option {
	return func(c *Context) { c.interServiceTimeout = d }
}

// AeronDir returns the configured Aeron directory.
func (c *Context) AeronDir() string { return c.aeronDir }

// ErrorHandler returns the configured error handler.
func (c *Context) ErrorHandler() ErrorHandler { return c.errorHandler }

// MediaDriverTimeout returns the configured media driver timeout.
func (c *Context) MediaDriverTimeout() time.Duration { return c.mediaDriverTimeout }

// ResourceLingerTimeout returns the configured resource linger timeout.
func (c *Context) ResourceLingerTimeout() time.Duration { return c.resourceLingerTimeout }

// InterServiceTimeout returns the configured inter-service timeout.
func (c *Context) InterServiceTimeout() time.Duration { return c.interServiceTimeout }

// Conclude validates the context the way a client does right before
// registering with the driver: if AeronDir exists it must be a directory.
// A missing AeronDir is not an error, and Conclude does not create it.
func (c *Context) Conclude() error {
	info, err := os.Stat(c.aeronDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if !info.IsDir() {
		return &os.PathError{Op: "conclude", Path: c.aeronDir, Err: os.ErrInvalid}
	}
	return nil
}
