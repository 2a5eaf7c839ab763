package connector

import (
	"context"
	"fmt"
	"io"

	"github.com/quic-go/quic-go"
)

// QUIC opens a new bidirectional stream on an existing QUIC connection
// handle. It is cheap to clone: it holds only the *quic.Conn, mirroring
// connections/salmon_quic.go's pattern of cloning a long-lived connection
// handle rather than redialing per request.
type QUIC struct {
	conn *quic.Conn
}

// NewQUIC wraps an established QUIC connection for per-request stream
// opening.
func NewQUIC(conn *quic.Conn) *QUIC {
	return &QUIC{conn: conn}
}

// quicWriteHalf adapts *quic.Stream's Close (which only FINs the write
// side, per quic-go's Stream semantics) to the CloseWrite contract that
// frame.Pipe looks for, so a completed request body doesn't tear down the
// still-open response half of the same stream.
type quicWriteHalf struct {
	*quic.Stream
}

func (q quicWriteHalf) CloseWrite() error {
	return q.Stream.Close()
}

// OpenNewStream opens a new bidirectional stream on the underlying
// connection. The same *quic.Stream backs both the reader and the writer;
// reads and the write-side FIN are independent per QUIC's half-close model.
func (q *QUIC) OpenNewStream() (io.ReadCloser, io.WriteCloser, error) {
	stream, err := q.conn.OpenStreamSync(context.Background())
	if err != nil {
		return nil, nil, fmt.Errorf("quic connector: open stream: %w", err)
	}
	return WrapStream(stream)
}

// WrapStream adapts a raw *quic.Stream (however it was obtained - dialed,
// accepted, or opened) into the (io.ReadCloser, io.WriteCloser) shape every
// bridge and connector in this module works with.
func WrapStream(stream *quic.Stream) (io.ReadCloser, io.WriteCloser, error) {
	return io.NopCloser(stream), quicWriteHalf{stream}, nil
}
