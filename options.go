// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dsmsg

// Options configures an Endpoint or a pair produced by Serve/Connect.
type Options struct {
	// ReadLimit caps the maximum accepted payload length in bytes (§3.1).
	// Zero means no limit beyond the wire format's own bound.
	ReadLimit int64

	// Backlog is the listen backlog passed to the underlying socket,
	// used only by Serve. Zero selects the platform facade's default.
	Backlog int
}

var defaultOptions = Options{
	ReadLimit: 0,
	Backlog:   0,
}

// Option configures Options.
type Option func(*Options)

// WithReadLimit rejects any inbound message whose declared length exceeds
// limit, failing the endpoint with ErrTooLong (§3.1, §9).
func WithReadLimit(limit int64) Option {
	return func(o *Options) { o.ReadLimit = limit }
}

// WithBacklog sets the listen backlog for Serve.
func WithBacklog(backlog int) Option {
	return func(o *Options) { o.Backlog = backlog }
}
