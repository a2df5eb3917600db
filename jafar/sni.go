// SPDX-License-Identifier: GPL-3.0-or-later

package jafar

import "encoding/binary"

// SNIPattern returns the bytes of the TLS server_name extension
// advertising the given hostname in a ClientHello:
//
//	00 00          <extension type: server_name>
//	XX XX          <extension length>
//	XX XX          <server name list length>
//	00             <name type: host_name>
//	XX XX          <host name length>
//	...            <host name bytes>
func SNIPattern(hostname string) []byte {
	name := []byte(hostname)
	out := make([]byte, 0, 9+len(name))
	out = binary.BigEndian.AppendUint16(out, 0x0000)
	out = binary.BigEndian.AppendUint16(out, uint16(len(name)+5))
	out = binary.BigEndian.AppendUint16(out, uint16(len(name)+3))
	out = append(out, 0x00)
	out = binary.BigEndian.AppendUint16(out, uint16(len(name)))
	return append(out, name...)
}

// ResetSNI returns a [KeywordResetHex] rule resetting TLS connections
// whose ClientHello carries the given SNI.
func ResetSNI(hostname string) KeywordResetHex {
	return KeywordResetHex{Pattern: SNIPattern(hostname)}
}
