// Package connector implements the downstream "open a new stream" strategies
// used by every bridge: TCP, QUIC and in-memory. It generalizes the
// Connector trait from the original Rust source (connector.rs) and mirrors
// salmoncannon's connections/QUIC-handle-cloning idiom in Go terms.
package connector

import "io"

// Connector opens a new downstream read/write pair. Implementations are
// cheap to reuse across requests: they hold only a dial target, a cloned
// QUIC connection handle, or a channel sender.
type Connector interface {
	OpenNewStream() (io.ReadCloser, io.WriteCloser, error)
}
