// Package bridge implements the generic accept-parse-route-pipe loop shared
// by the fabric's inbound surfaces (the zipper's in-memory leg fed by its
// HTTP ingress, and the sfn client's QUIC accept loop): accept a stream, read
// its RequestHeaders frame, resolve a downstream Connector for the named
// function, open a stream on it, forward the headers, then pipe the two
// streams full-duplex until both directions are done. It generalizes the
// Connector-driven accept loop in salmon_bridge.go's NewFarListen/
// handleIncomingStream and the original bridge.rs/bridge/mod.rs.
package bridge

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/yomorun/yomo/connector"
	"github.com/yomorun/yomo/frame"
	"github.com/yomorun/yomo/types"
)

// Bridge is implemented once per inbound surface. Accept blocks until a new
// logical request stream is available; ok is false once the surface is
// permanently closed. FindDownstream resolves the sfn named in the parsed
// headers to a Connector that can reach it, or an error carrying the status
// code to report back (e.g. types.StatusNotFound).
type Bridge interface {
	Accept() (r io.ReadCloser, w io.WriteCloser, ok bool)
	FindDownstream(headers types.RequestHeaders) (connector.Connector, error)
}

// StatusError carries an explicit wire status code to report to the caller
// when routing fails before a downstream stream exists.
type StatusError struct {
	Code uint16
	Err  error
}

func (e *StatusError) Error() string { return e.Err.Error() }
func (e *StatusError) Unwrap() error { return e.Err }

// NewStatusError wraps err with an explicit response status code.
func NewStatusError(code uint16, err error) error {
	return &StatusError{Code: code, Err: err}
}

// Serve runs b's accept loop until Accept reports the surface is closed.
// Each accepted stream is handled in its own goroutine, mirroring
// salmon_bridge.go's one-goroutine-per-stream idiom.
func Serve(b Bridge) {
	for {
		r, w, ok := b.Accept()
		if !ok {
			return
		}
		go handleOne(b, r, w)
	}
}

func handleOne(b Bridge, r io.ReadCloser, w io.WriteCloser) {
	defer r.Close()

	var headers types.RequestHeaders
	if err := frame.Receive(r, &headers); err != nil {
		if !errors.Is(err, io.EOF) {
			log.Printf("bridge: read request headers: %v", err)
		}
		_ = w.Close()
		return
	}

	conn, err := b.FindDownstream(headers)
	if err != nil {
		respondError(w, err, types.StatusNotFound)
		return
	}

	dr, dw, err := conn.OpenNewStream()
	if err != nil {
		respondError(w, err, types.StatusInternalError)
		return
	}

	if err := frame.Send(dw, headers); err != nil {
		log.Printf("bridge: forward request headers for %s: %v", headers.SfnName, err)
		_ = dw.Close()
		_ = w.Close()
		return
	}

	frame.Pipe(r, w, dr, dw)
}

func respondError(w io.WriteCloser, err error, fallback uint16) {
	code := fallback
	var se *StatusError
	if errors.As(err, &se) {
		code = se.Code
	}
	resp := types.ResponseHeaders{
		StatusCode: code,
		ErrorMsg:   fmt.Sprintf("%v", err),
		BodyFormat: types.BodyFormatNull,
	}
	if sendErr := frame.Send(w, resp); sendErr != nil {
		log.Printf("bridge: send error response: %v", sendErr)
	}
	_ = w.Close()
}
