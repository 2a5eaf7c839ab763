package sfn

import (
	"context"
	"testing"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/yomorun/yomo/connector"
	"github.com/yomorun/yomo/frame"
	"github.com/yomorun/yomo/tlsconfig"
	"github.com/yomorun/yomo/types"
)

// fakeZipper accepts a single QUIC connection, reads the handshake request,
// and replies with statusCode.
func fakeZipper(t *testing.T, ln *quic.Listener, statusCode uint16) {
	t.Helper()
	go func() {
		conn, err := ln.Accept(context.Background())
		if err != nil {
			return
		}
		stream, err := conn.AcceptStream(context.Background())
		if err != nil {
			return
		}
		var req types.HandshakeRequest
		if err := frame.Receive(stream, &req); err != nil {
			return
		}
		frame.Send(stream, types.HandshakeResponse{StatusCode: statusCode})
		stream.Close()
	}()
}

func TestDialSucceedsOnOKHandshake(t *testing.T) {
	serverTLS, err := tlsconfig.Server(tlsconfig.Config{})
	if err != nil {
		t.Fatalf("server tls: %v", err)
	}
	clientTLS, err := tlsconfig.Client(tlsconfig.Config{Insecure: true})
	if err != nil {
		t.Fatalf("client tls: %v", err)
	}
	quicCfg := &quic.Config{MaxIdleTimeout: 5 * time.Second}

	ln, err := quic.ListenAddr("127.0.0.1:0", serverTLS, quicCfg)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	fakeZipper(t, ln, types.StatusOK)

	downstream := func() (connector.Connector, error) { return connector.NewTCP("unused:0"), nil }
	client, err := Dial(context.Background(), ln.Addr().String(), "echo", "", clientTLS, quicCfg, downstream)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	if client == nil {
		t.Fatal("Dial returned a nil client with no error")
	}
}

func TestDialFailsOnRejectedHandshake(t *testing.T) {
	serverTLS, err := tlsconfig.Server(tlsconfig.Config{})
	if err != nil {
		t.Fatalf("server tls: %v", err)
	}
	clientTLS, err := tlsconfig.Client(tlsconfig.Config{Insecure: true})
	if err != nil {
		t.Fatalf("client tls: %v", err)
	}
	quicCfg := &quic.Config{MaxIdleTimeout: 5 * time.Second}

	ln, err := quic.ListenAddr("127.0.0.1:0", serverTLS, quicCfg)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	fakeZipper(t, ln, types.StatusUnauthorized)

	downstream := func() (connector.Connector, error) { return connector.NewTCP("unused:0"), nil }
	if _, err := Dial(context.Background(), ln.Addr().String(), "echo", "wrong", clientTLS, quicCfg, downstream); err == nil {
		t.Fatal("expected Dial to fail when the zipper rejects the handshake")
	}
}

func TestClientFindDownstreamWrapsError(t *testing.T) {
	c := &Client{name: "echo", downstream: func() (connector.Connector, error) {
		return nil, errConnectFailed
	}}
	if _, err := c.FindDownstream(types.RequestHeaders{SfnName: "anything"}); err == nil {
		t.Fatal("expected FindDownstream to propagate the downstream error")
	}
}

type testErr string

func (e testErr) Error() string { return string(e) }

var errConnectFailed = testErr("connect failed")
