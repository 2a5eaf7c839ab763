package frame

import (
	"errors"
	"io"
	"log"
	"sync"
)

// halfCloser is implemented by stream types whose write half can be shut
// down independently of the read half (net.TCPConn.CloseWrite,
// quic.Stream.Close, ...). Pipe uses it to FIN its write side without
// tearing down the whole connection, mirroring bidiPipe's stream.Close()
// calls in salmoncannon's bridge/salmon_shared.go.
type halfCloser interface {
	CloseWrite() error
}

// Pipe performs a full-duplex copy between (r1,w1) and (r2,w2): one
// goroutine copies r1->w2, another copies r2->w1. Each direction shuts down
// its own write half on completion so the peer observes EOF; neither
// direction's error is propagated to the other, and Pipe only returns once
// both halves have terminated. This is intentionally two independent
// goroutines rather than one bidirectional state machine, matching QUIC's
// per-direction half-close semantics.
func Pipe(r1 io.Reader, w1 io.Writer, r2 io.Reader, w2 io.Writer) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		copyHalf(w2, r1, "request")
	}()

	go func() {
		defer wg.Done()
		copyHalf(w1, r2, "response")
	}()

	wg.Wait()
}

func copyHalf(dst io.Writer, src io.Reader, label string) {
	_, err := io.Copy(dst, src)
	if err != nil && !isBenignCopyError(err) {
		log.Printf("frame: %s copy error: %v", label, err)
	}
	if hc, ok := dst.(halfCloser); ok {
		_ = hc.CloseWrite()
	} else if c, ok := dst.(io.Closer); ok {
		_ = c.Close()
	}
}

func isBenignCopyError(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.ErrClosedPipe)
}
