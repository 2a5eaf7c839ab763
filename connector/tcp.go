package connector

import (
	"fmt"
	"io"
	"net"
)

// TCP opens a fresh TCP connection to its target address (fixed, or resolved
// per dial when built with NewTCPDynamic) on every call to OpenNewStream. It is used by the SFN side to reach the locally supervised
// serverless subprocess (spec.md §4.3, C3).
type TCP struct {
	addr func() string
	wrap func(net.Conn) net.Conn
}

// NewTCP returns a TCP connector that always dials the fixed addr.
func NewTCP(addr string) *TCP {
	return &TCP{addr: func() string { return addr }}
}

// NewTCPDynamic returns a TCP connector that resolves its target address on
// every dial by calling addr, so the caller can republish a new address
// (e.g. once the supervised subprocess has announced its listening socket)
// without reconstructing the connector.
func NewTCPDynamic(addr func() string) *TCP {
	return &TCP{addr: addr}
}

// WithWrap returns a copy of t whose dialed connections are passed through
// wrap before use, e.g. to apply a bandwidth limiter.
func (t *TCP) WithWrap(wrap func(net.Conn) net.Conn) *TCP {
	return &TCP{addr: t.addr, wrap: wrap}
}

// OpenNewStream dials the connector's target and returns the connection
// split into owned read/write halves. *net.TCPConn supports CloseWrite, so
// frame.Pipe can half-close it without severing the read side.
func (t *TCP) OpenNewStream() (io.ReadCloser, io.WriteCloser, error) {
	addr := t.addr()
	if addr == "" {
		return nil, nil, fmt.Errorf("tcp connector: no address published yet")
	}
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("tcp connector: dial %s: %w", addr, err)
	}
	if t.wrap != nil {
		wrapped := t.wrap(conn)
		return wrapped, wrapped, nil
	}
	return conn, conn, nil
}
