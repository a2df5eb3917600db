//go:build unix

// SPDX-License-Identifier: GPL-3.0-or-later

package failure

import "golang.org/x/sys/unix"

const (
	errECONNABORTED = unix.ECONNABORTED
	errECONNREFUSED = unix.ECONNREFUSED
	errECONNRESET   = unix.ECONNRESET
	errEHOSTUNREACH = unix.EHOSTUNREACH
	errENETDOWN     = unix.ENETDOWN
	errENETUNREACH  = unix.ENETUNREACH
	errETIMEDOUT    = unix.ETIMEDOUT
)
