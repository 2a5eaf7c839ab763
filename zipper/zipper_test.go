package zipper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/yomorun/yomo/config"
)

func freePort(t *testing.T) int {
	t.Helper()
	// loopback ports picked at random for the zipper's quic/http/admin
	// listeners; collisions across test runs are astronomically unlikely.
	return 20000 + int(time.Now().UnixNano()%10000)
}

func TestZipperServesHTTPIngressEndToEnd(t *testing.T) {
	quicPort := freePort(t)
	httpPort := quicPort + 1

	cfg := &config.ZipperConfig{
		Host:     "127.0.0.1",
		QuicPort: quicPort,
		HTTPPort: httpPort,
	}
	cfg.SetDefaults()

	z := New(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serveErr := make(chan error, 1)
	go func() { serveErr <- z.Serve(ctx) }()

	// Give the zipper a moment to bind both listeners.
	time.Sleep(200 * time.Millisecond)

	resp, err := http.Post(fmt.Sprintf("http://127.0.0.1:%d/sfn/missing", httpPort), "application/octet-stream", strings.NewReader("hi"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("got status %d, want 404 for an unregistered sfn", resp.StatusCode)
	}

	cancel()
	select {
	case <-serveErr:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after context cancellation")
	}
}
