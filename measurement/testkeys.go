// SPDX-License-Identifier: GPL-3.0-or-later

package measurement

import "github.com/tidwall/gjson"

// TestKeys is the validated "test_keys" section of a measurement.
type TestKeys struct {
	// TCPConnect contains the TCP connect attempts.
	TCPConnect []TCPConnect

	// Requests contains the HTTP requests.
	Requests []Request

	// Raw is the raw "test_keys" JSON object.
	Raw gjson.Result
}

// Get returns the raw value of the given top-level test key.
//
// The key is a literal name, not a gjson path, and the returned
// value does not exist when the key is missing.
func (tk *TestKeys) Get(key string) gjson.Result {
	return tk.Raw.Get(gjson.Escape(key))
}

// TCPConnect is an entry of the "tcp_connect" test key.
type TCPConnect struct {
	// IP is the remote IP address.
	IP string

	// Port is the remote port.
	Port int64

	// Success indicates whether the connect succeeded.
	Success bool

	// Failure is the failure or nil.
	Failure *string
}

// Request is an entry of the "requests" test key.
type Request struct {
	// URL is the request URL.
	URL string

	// Failure is the failure or nil.
	Failure *string

	// Raw is the raw JSON entry.
	Raw gjson.Result
}
