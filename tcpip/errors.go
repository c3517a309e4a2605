//
//   date  : 2025-06-02
//   author: xjdrew
//

package tcpip

import "errors"

var (
	ErrBufferTooShort = errors.New("buffer too short")
	ErrPayloadLength  = errors.New("payload length mismatch")
	ErrNotIPv4        = errors.New("not an ipv4 address")
	ErrBadVersion     = errors.New("bad ip version")
)
