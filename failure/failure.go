// SPDX-License-Identifier: GPL-3.0-or-later

/*
Package failure implements the OONI failure-string vocabulary.

Measurement records report errors as short snake_case strings (e.g.,
"connection_refused") or as JSON null when the operation succeeded. This
package maps Go errors to those strings and maps those strings back to the
Unix-like error classes used by our structured logs.

# Design Principles

1. Map the nil error to a nil failure (JSON null).

2. Use [errors.Is] for system errors and string suffixes for DNS errors.

3. Prefix unclassified errors with "unknown_failure: ".

4. Use [Class] to obtain the errclass name of a failure string, so that
logs emit the same `errClass` values as the rest of our code.

The system error constants are defined in platform-specific files:

- unix.go for Unix-like systems using x/sys/unix

- windows.go for Windows systems using x/sys/windows
*/
package failure

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/rbmk-project/common/errclass"
)

const (
	// ConnectionRefused is the failure for ECONNREFUSED.
	ConnectionRefused = "connection_refused"

	// ConnectionReset is the failure for ECONNRESET.
	ConnectionReset = "connection_reset"

	// ConnectionAborted is the failure for ECONNABORTED.
	ConnectionAborted = "connection_aborted"

	// EOFError is the failure for an unexpected EOF.
	EOFError = "eof_error"

	// GenericTimeoutError is the failure for timeouts.
	GenericTimeoutError = "generic_timeout_error"

	// HostUnreachable is the failure for EHOSTUNREACH.
	HostUnreachable = "host_unreachable"

	// Interrupted is the failure for canceled operations.
	Interrupted = "interrupted"

	// NetworkDown is the failure for ENETDOWN.
	NetworkDown = "network_down"

	// NetworkUnreachable is the failure for ENETUNREACH.
	NetworkUnreachable = "network_unreachable"

	// DNSNXDOMAINError is the failure for "no such host".
	DNSNXDOMAINError = "dns_nxdomain_error"

	// DNSNoAnswer is the failure for "no answer".
	DNSNoAnswer = "dns_no_answer"

	// UnknownFailurePrefix prefixes unclassified failures.
	UnknownFailurePrefix = "unknown_failure: "
)

// errorsIsMap contains the errors we can classify with [errors.Is].
var errorsIsMap = map[error]string{
	context.DeadlineExceeded: GenericTimeoutError,
	context.Canceled:         Interrupted,
	os.ErrDeadlineExceeded:   GenericTimeoutError,
	io.EOF:                   EOFError,
	io.ErrUnexpectedEOF:      EOFError,
	errECONNABORTED:          ConnectionAborted,
	errECONNREFUSED:          ConnectionRefused,
	errECONNRESET:            ConnectionReset,
	errEHOSTUNREACH:          HostUnreachable,
	errENETDOWN:              NetworkDown,
	errENETUNREACH:           NetworkUnreachable,
	errETIMEDOUT:             GenericTimeoutError,
}

// stringSuffixMap contains the errors we classify by message suffix.
var stringSuffixMap = map[string]string{
	"no such host": DNSNXDOMAINError,
	"no answer":    DNSNoAnswer,
}

// New returns the failure string for the given error, or nil
// when the error is nil, matching the JSON null convention.
func New(err error) *string {
	if err == nil {
		return nil
	}
	for candidate, failure := range errorsIsMap {
		if errors.Is(err, candidate) {
			return &failure
		}
	}
	msg := err.Error()
	for suffix, failure := range stringSuffixMap {
		if strings.HasSuffix(msg, suffix) {
			return &failure
		}
	}
	failure := UnknownFailurePrefix + msg
	return &failure
}

// classMap maps failure strings to errclass names.
var classMap = map[string]string{
	ConnectionAborted:   errclass.ECONNABORTED,
	ConnectionRefused:   errclass.ECONNREFUSED,
	ConnectionReset:     errclass.ECONNRESET,
	EOFError:            errclass.EEOF,
	GenericTimeoutError: errclass.ETIMEDOUT,
	HostUnreachable:     errclass.EHOSTUNREACH,
	Interrupted:         errclass.EINTR,
	NetworkDown:         errclass.ENETDOWN,
	NetworkUnreachable:  errclass.ENETUNREACH,
	DNSNXDOMAINError:    errclass.EDNS_NONAME,
	DNSNoAnswer:         errclass.EDNS_NODATA,
}

// Class returns the errclass name corresponding to a failure string.
//
// The empty string maps to the empty string and unknown
// failures map to [errclass.EGENERIC].
func Class(failure string) string {
	if failure == "" {
		return ""
	}
	if class, found := classMap[failure]; found {
		return class
	}
	return errclass.EGENERIC
}

// String returns the failure or "null", for printing.
func String(failure *string) string {
	if failure == nil {
		return "null"
	}
	return *failure
}

// Equal returns whether two failures are both null or carry the same string.
func Equal(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
