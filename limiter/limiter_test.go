package limiter

import (
	"io"
	"net"
	"testing"
	"time"
)

func TestWrapConnThrottlesThroughput(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	payload := make([]byte, 64*1024)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write(payload)
	}()

	raw, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer raw.Close()

	l := New(16 * 1024) // 16 KiB/s cap
	conn := l.WrapConn(raw)

	start := time.Now()
	n, err := io.Copy(io.Discard, conn)
	elapsed := time.Since(start)
	if err != nil && err != io.EOF {
		t.Fatalf("copy: %v", err)
	}
	if n != int64(len(payload)) {
		t.Fatalf("got %d bytes, want %d", n, len(payload))
	}
	// 64 KiB at a 16 KiB/s cap should take at least ~3 seconds; allow slack
	// for scheduling jitter while still proving throttling occurred.
	if elapsed < 2*time.Second {
		t.Fatalf("transfer completed in %v, expected throttling to slow it down", elapsed)
	}
}

func TestWrapConnCloseWriteForwards(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	serverRead := make(chan error, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			serverRead <- err
			return
		}
		defer conn.Close()
		_, err = io.ReadAll(conn)
		serverRead <- err
	}()

	raw, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	l := New(0) // unlimited
	conn := l.WrapConn(raw)

	hc, ok := conn.(interface{ CloseWrite() error })
	if !ok {
		t.Fatal("wrapped conn does not implement CloseWrite")
	}
	if err := hc.CloseWrite(); err != nil {
		t.Fatalf("CloseWrite: %v", err)
	}

	select {
	case err := <-serverRead:
		if err != nil {
			t.Fatalf("server read: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not observe EOF after CloseWrite")
	}
}

func TestGetMaxRateDefaultsWhenNonPositive(t *testing.T) {
	l := New(0)
	if l.GetMaxRate() <= 0 {
		t.Fatal("expected a positive effective cap when bytesPerSec <= 0")
	}
}

func TestGetActiveRateTracksRecordedBytes(t *testing.T) {
	l := New(1024 * 1024)
	l.recordBytes(1000)
	time.Sleep(1100 * time.Millisecond)
	l.recordBytes(0) // forces the rolling window to rotate past the first bucket
	if rate := l.GetActiveRate(); rate <= 0 {
		t.Fatalf("got GetActiveRate %d, want > 0 after recording 1000 bytes", rate)
	}
}
