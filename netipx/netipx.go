// SPDX-License-Identifier: GPL-3.0-or-later

// Package netipx contains [net/netip] extensions.
package netipx

import (
	"fmt"
	"net/netip"
	"net/url"
	"slices"
)

// AddrList is an ordered and immutable list of IP addresses.
//
// The zero value is an empty list.
type AddrList struct {
	addrs []netip.Addr
}

// NewAddrList creates a new [AddrList] containing a copy of addrs.
func NewAddrList(addrs ...netip.Addr) AddrList {
	return AddrList{addrs: slices.Clone(addrs)}
}

// ParseAddrList parses the given addresses into an [AddrList].
func ParseAddrList(values ...string) (AddrList, error) {
	addrs := make([]netip.Addr, 0, len(values))
	for _, value := range values {
		addr, err := netip.ParseAddr(value)
		if err != nil {
			return AddrList{}, fmt.Errorf("netipx: %w", err)
		}
		addrs = append(addrs, addr)
	}
	return AddrList{addrs: addrs}, nil
}

// MustParseAddrList is like [ParseAddrList] but panics on error.
func MustParseAddrList(values ...string) AddrList {
	list, err := ParseAddrList(values...)
	if err != nil {
		panic(err)
	}
	return list
}

// Len returns the number of addresses in the list.
func (l AddrList) Len() int {
	return len(l.addrs)
}

// At returns the idx-th address. It panics if idx is out of range.
func (l AddrList) At(idx int) netip.Addr {
	return l.addrs[idx]
}

// Head returns a new list containing at most the first n addresses.
func (l AddrList) Head(n int) AddrList {
	n = min(max(n, 0), len(l.addrs))
	return NewAddrList(l.addrs[:n]...)
}

// Addrs returns a copy of the addresses in the list.
func (l AddrList) Addrs() []netip.Addr {
	return slices.Clone(l.addrs)
}

// Strings returns the textual representation of each address.
func (l AddrList) Strings() []string {
	out := make([]string, 0, len(l.addrs))
	for _, addr := range l.addrs {
		out = append(out, addr.String())
	}
	return out
}

// Contains returns whether host is the textual representation of
// an address in the list. We compare strings, without resolving
// host, because measurement records address endpoints literally.
func (l AddrList) Contains(host string) bool {
	for _, addr := range l.addrs {
		if addr.String() == host {
			return true
		}
	}
	return false
}

// URLHostname returns the hostname of rawURL, without the port
// and without the square brackets enclosing IPv6 addresses.
func URLHostname(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return parsed.Hostname(), nil
}
