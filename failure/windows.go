//go:build windows

// SPDX-License-Identifier: GPL-3.0-or-later

package failure

import "golang.org/x/sys/windows"

const (
	errECONNABORTED = windows.WSAECONNABORTED
	errECONNREFUSED = windows.WSAECONNREFUSED
	errECONNRESET   = windows.WSAECONNRESET
	errEHOSTUNREACH = windows.WSAEHOSTUNREACH
	errENETDOWN     = windows.WSAENETDOWN
	errENETUNREACH  = windows.WSAENETUNREACH
	errETIMEDOUT    = windows.WSAETIMEDOUT
)
