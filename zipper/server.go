// Package zipper implements the broker that sits between HTTP callers and
// remotely registered serverless functions: a QUIC listener that admits sfn
// connections via a handshake protocol and routes per-request streams to
// them, plus an HTTP ingress that hands external requests to the same
// routing table through an in-memory connector. It generalizes
// zipper/server.rs's Zipper/ZipperQuicBridge/ZipperMemoryBridge trio and
// salmon_bridge.go's QUIC accept-loop idiom into Go.
package zipper

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"

	"github.com/quic-go/quic-go"

	"github.com/yomorun/yomo/bridge"
	"github.com/yomorun/yomo/connector"
	"github.com/yomorun/yomo/frame"
	"github.com/yomorun/yomo/router"
	"github.com/yomorun/yomo/status"
	"github.com/yomorun/yomo/types"
)

// Server is the QUIC-facing half of a zipper: it admits sfn connections,
// runs the handshake protocol, and routes inbound request streams delivered
// over the memory connector (from the HTTP ingress) to the right sfn
// connection. Streams an sfn opens toward the zipper are not routed.
type Server struct {
	router  router.Router
	monitor *status.Monitor

	nextConnID atomic.Uint64

	mu    sync.RWMutex
	conns map[uint64]*quic.Conn

	mem *connector.Memory
}

// NewServer creates a Server. mem is the in-memory connector HTTP ingress
// uses to hand off requests; it may be shared with an HTTP front door
// started separately.
func NewServer(r router.Router, monitor *status.Monitor, mem *connector.Memory) *Server {
	return &Server{
		router:  r,
		monitor: monitor,
		conns:   make(map[uint64]*quic.Conn),
		mem:     mem,
	}
}

// Serve accepts QUIC connections on addr until ctx is canceled. Any other
// accept error is logged and the loop keeps accepting.
func (s *Server) Serve(ctx context.Context, addr string, tlsCfg *tls.Config, quicCfg *quic.Config) error {
	ln, err := quic.ListenAddr(addr, tlsCfg, quicCfg)
	if err != nil {
		return fmt.Errorf("zipper: listen quic %s: %w", addr, err)
	}
	log.Printf("zipper: quic listening on %s", addr)

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("zipper: accept error: %v", err)
			continue
		}
		go s.handleConnection(conn)
	}
}

// ServeMemory runs the routing loop for requests delivered over the shared
// in-memory connector, e.g. from the HTTP ingress. It blocks until the
// connector is closed.
func (s *Server) ServeMemory() {
	bridge.Serve(&memoryBridge{server: s})
}

func (s *Server) handleConnection(conn *quic.Conn) {
	connID := s.nextConnID.Add(1)
	log.Printf("zipper: new quic connection id=%d remote=%s", connID, conn.RemoteAddr())

	stream, err := conn.AcceptStream(context.Background())
	if err != nil {
		log.Printf("zipper: conn %d closed before handshake: %v", connID, err)
		return
	}

	sfnName, err := s.handleHandshake(connID, conn, stream)
	if err != nil {
		log.Printf("zipper: conn %d handshake failed: %v", connID, err)
		return
	}

	log.Printf("zipper: sfn %q connected on conn %d", sfnName, connID)
	s.monitor.MarkConnected(sfnName)

	s.mu.Lock()
	s.conns[connID] = conn
	s.mu.Unlock()

	// Once handshaken, an sfn connection exists only for the zipper to open
	// request streams on; the sfn itself never initiates one. Any stream it
	// does open is unexpected and is refused immediately rather than routed.
	rejectUnexpectedStreams(conn, sfnName)

	log.Printf("zipper: conn %d (%s) closed", connID, sfnName)
	s.router.RemoveSfn(connID)
	s.monitor.MarkDisconnected(sfnName)
	s.mu.Lock()
	delete(s.conns, connID)
	s.mu.Unlock()
}

func (s *Server) handleHandshake(connID uint64, conn *quic.Conn, stream *quic.Stream) (string, error) {
	var req types.HandshakeRequest
	if err := frame.Receive(stream, &req); err != nil {
		return "", fmt.Errorf("receive handshake request: %w", err)
	}

	displaced, hasDisplaced, err := s.router.Handshake(connID, req)
	if err != nil {
		statusCode := types.StatusUnauthorized
		if errors.Is(err, router.ErrEmptyName) {
			statusCode = types.StatusBadRequest
		}
		resp := types.HandshakeResponse{StatusCode: statusCode, ErrorMsg: err.Error()}
		_ = frame.Send(stream, resp)
		_ = stream.Close()
		return "", err
	}

	resp := types.HandshakeResponse{StatusCode: types.StatusOK}
	if sendErr := frame.Send(stream, resp); sendErr != nil {
		return "", fmt.Errorf("send handshake response: %w", sendErr)
	}
	_ = stream.Close()

	if hasDisplaced {
		s.mu.Lock()
		prevConn, ok := s.conns[displaced]
		delete(s.conns, displaced)
		s.mu.Unlock()
		if ok {
			log.Printf("zipper: closing displaced connection %d for sfn %q", displaced, req.SfnName)
			_ = prevConn.CloseWithError(1, "replaced by newer connection")
		}
	}

	return req.SfnName, nil
}

func (s *Server) routeHeaders(headers types.RequestHeaders) (connector.Connector, error) {
	connID, ok := s.router.Route(headers)
	if !ok {
		return nil, bridge.NewStatusError(types.StatusNotFound, fmt.Errorf("sfn %q not registered", headers.SfnName))
	}

	s.mu.RLock()
	conn, ok := s.conns[connID]
	s.mu.RUnlock()
	if !ok {
		return nil, bridge.NewStatusError(types.StatusNotFound, fmt.Errorf("sfn %q connection gone", headers.SfnName))
	}

	s.monitor.StreamOpened(headers.SfnName)
	return &countingConnector{inner: connector.NewQUIC(conn), monitor: s.monitor, sfnName: headers.SfnName}, nil
}

// countingWriteCloser decrements the monitor's active-stream count once the
// downstream write half is closed, and accounts every byte written to it as
// request traffic toward the sfn. frame.Pipe always closes the downstream
// writer it was handed (the half-close contract every Connector honors), so
// the stream-closed count fires exactly once per routed request regardless
// of transport.
type countingWriteCloser struct {
	io.WriteCloser
	monitor *status.Monitor
	sfnName string
	done    sync.Once
}

func (w *countingWriteCloser) Write(p []byte) (int, error) {
	n, err := w.WriteCloser.Write(p)
	if n > 0 {
		w.monitor.AddBytes(w.sfnName, 0, int64(n))
	}
	return n, err
}

func (w *countingWriteCloser) Close() error {
	w.done.Do(func() { w.monitor.StreamClosed(w.sfnName) })
	return w.WriteCloser.Close()
}

func (w *countingWriteCloser) CloseWrite() error {
	w.done.Do(func() { w.monitor.StreamClosed(w.sfnName) })
	if hc, ok := w.WriteCloser.(interface{ CloseWrite() error }); ok {
		return hc.CloseWrite()
	}
	return w.WriteCloser.Close()
}

// countingReader accounts every byte read from a downstream connection's
// response half as reply traffic from the sfn.
type countingReader struct {
	io.ReadCloser
	monitor *status.Monitor
	sfnName string
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	if n > 0 {
		r.monitor.AddBytes(r.sfnName, int64(n), 0)
	}
	return n, err
}

// rejectUnexpectedStreams accepts and immediately closes every stream an sfn
// opens on its own connection after the handshake, since the zipper is
// always the one that opens request streams toward the sfn. It returns once
// the connection itself closes.
func rejectUnexpectedStreams(conn *quic.Conn, sfnName string) {
	for {
		stream, err := conn.AcceptStream(context.Background())
		if err != nil {
			return
		}
		log.Printf("zipper: sfn %q opened an unexpected stream %d, refusing it", sfnName, stream.StreamID())
		_ = stream.Close()
	}
}

// memoryBridge routes requests delivered through the in-memory connector
// (the HTTP ingress's downstream leg).
type memoryBridge struct {
	server *Server
}

func (b *memoryBridge) Accept() (io.ReadCloser, io.WriteCloser, bool) {
	return b.server.mem.Accept()
}

func (b *memoryBridge) FindDownstream(headers types.RequestHeaders) (connector.Connector, error) {
	return b.server.routeHeaders(headers)
}

// countingConnector wraps a Connector so the monitor records the stream
// closing once the downstream pipe completes.
type countingConnector struct {
	inner   connector.Connector
	monitor *status.Monitor
	sfnName string
}

func (c *countingConnector) OpenNewStream() (io.ReadCloser, io.WriteCloser, error) {
	r, w, err := c.inner.OpenNewStream()
	if err != nil {
		c.monitor.StreamClosed(c.sfnName)
		return nil, nil, err
	}
	cr := &countingReader{ReadCloser: r, monitor: c.monitor, sfnName: c.sfnName}
	cw := &countingWriteCloser{WriteCloser: w, monitor: c.monitor, sfnName: c.sfnName}
	return cr, cw, nil
}
