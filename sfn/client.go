// Package sfn implements the client half of the fabric: dialing a zipper,
// completing the handshake that registers a function name, and then
// bridging every inbound stream to a locally supervised serverless
// subprocess. It generalizes sfn/client.rs's Sfn struct (connect_zipper,
// handshake, Bridge impl) from s2n_quic to quic-go.
package sfn

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log"

	"github.com/quic-go/quic-go"

	"github.com/yomorun/yomo/bridge"
	"github.com/yomorun/yomo/connector"
	"github.com/yomorun/yomo/frame"
	"github.com/yomorun/yomo/types"
)

// Client is a connected sfn registration. Serve routes every inbound
// request stream to downstream until the connection closes.
type Client struct {
	name       string
	conn       *quic.Conn
	downstream func() (connector.Connector, error)
}

// Dial connects to a zipper at addr, registers name with credential, and
// returns a ready-to-serve Client. downstream is consulted once per request
// to resolve where to forward it (normally a *connector.TCP pointed at the
// supervised subprocess).
func Dial(ctx context.Context, addr, name, credential string, tlsCfg *tls.Config, quicCfg *quic.Config, downstream func() (connector.Connector, error)) (*Client, error) {
	conn, err := quic.DialAddr(ctx, addr, tlsCfg, quicCfg)
	if err != nil {
		return nil, fmt.Errorf("sfn: dial zipper %s: %w", addr, err)
	}

	c := &Client{name: name, conn: conn, downstream: downstream}
	if err := c.handshake(ctx, credential); err != nil {
		_ = conn.CloseWithError(0, "handshake failed")
		return nil, err
	}

	log.Printf("sfn: %q registered with zipper at %s", name, addr)
	return c, nil
}

func (c *Client) handshake(ctx context.Context, credential string) error {
	stream, err := c.conn.OpenStreamSync(ctx)
	if err != nil {
		return fmt.Errorf("sfn: open handshake stream: %w", err)
	}

	req := types.HandshakeRequest{SfnName: c.name, Credential: credential}
	if err := frame.Send(stream, req); err != nil {
		return fmt.Errorf("sfn: send handshake request: %w", err)
	}
	_ = stream.Close()

	var resp types.HandshakeResponse
	if err := frame.Receive(stream, &resp); err != nil {
		return fmt.Errorf("sfn: receive handshake response: %w", err)
	}
	if resp.StatusCode != types.StatusOK {
		return fmt.Errorf("sfn: handshake rejected: %s", resp.ErrorMsg)
	}
	return nil
}

// Serve runs the accept loop until the zipper connection closes.
func (c *Client) Serve() {
	bridge.Serve(c)
}

// Accept implements bridge.Bridge by accepting the next stream the zipper
// opens on this sfn's connection.
func (c *Client) Accept() (io.ReadCloser, io.WriteCloser, bool) {
	stream, err := c.conn.AcceptStream(context.Background())
	if err != nil {
		return nil, nil, false
	}
	r, w, err := connector.WrapStream(stream)
	if err != nil {
		return nil, nil, false
	}
	return r, w, true
}

// FindDownstream ignores the routed headers (an sfn serves exactly one
// function) and always resolves to the supervised subprocess's connector.
func (c *Client) FindDownstream(_ types.RequestHeaders) (connector.Connector, error) {
	conn, err := c.downstream()
	if err != nil {
		return nil, bridge.NewStatusError(types.StatusInternalError, err)
	}
	return conn, nil
}
