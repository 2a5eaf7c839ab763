package frame

import (
	"io"
	"net"
	"testing"
	"time"
)

// dialedPair returns a connected (client, server) net.Conn pair over a real
// loopback TCP socket.
func dialedPair(t *testing.T) (client, server net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, _ := ln.Accept()
		accepted <- c
	}()

	client, err = net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	server = <-accepted
	if server == nil {
		t.Fatal("accept failed")
	}
	return client, server
}

// TestPipeFullDuplexOverTCP bridges an "upstream" connection pair to a
// "downstream" pair the way bridge.handleOne bridges an inbound stream to a
// Connector's stream, and checks bytes flow in both directions and Pipe
// returns once both sides half-close.
func TestPipeFullDuplexOverTCP(t *testing.T) {
	upClient, upServer := dialedPair(t)
	defer upClient.Close()
	defer upServer.Close()

	downClient, downServer := dialedPair(t)
	defer downClient.Close()
	defer downServer.Close()

	done := make(chan struct{})
	go func() {
		Pipe(upServer, upServer, downClient, downClient)
		close(done)
	}()

	upClient.Write([]byte("ping"))
	upClient.(*net.TCPConn).CloseWrite()

	buf := make([]byte, 4)
	downServer.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := io.ReadFull(downServer, buf); err != nil {
		t.Fatalf("downstream read: %v", err)
	}
	if string(buf) != "ping" {
		t.Fatalf("got %q, want %q", buf, "ping")
	}

	downServer.Write([]byte("pong"))
	downServer.(*net.TCPConn).CloseWrite()

	out := make([]byte, 4)
	upClient.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := io.ReadFull(upClient, out); err != nil {
		t.Fatalf("upstream read: %v", err)
	}
	if string(out) != "pong" {
		t.Fatalf("got %q, want %q", out, "pong")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Pipe did not return after both halves closed")
	}
}
