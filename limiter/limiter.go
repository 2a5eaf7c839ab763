// Package limiter applies an optional per-sfn bandwidth cap to the TCP
// connection between an sfn client and its supervised serverless subprocess.
// It adapts salmon_limiter.go's token-bucket-plus-rolling-window
// implementation (github.com/juju/ratelimit) unchanged in mechanism, renamed
// from a cross-bridge shared limiter to a single sfn's limiter.
package limiter

import (
	"net"
	"sync/atomic"
	"time"

	"github.com/juju/ratelimit"
)

const unlimitedBandwidth = 500 * 1024 * 1024 * 1024 // 500 GB/s, i.e. effectively no cap
const numBuckets = 5                                // 5 one-second buckets for a 5-second window

// throttledConn wraps net.Conn and applies a bandwidth limit on Read and Write.
type throttledConn struct {
	net.Conn
	bucket  *ratelimit.Bucket
	limiter *Limiter
}

func (t *throttledConn) Read(p []byte) (int, error) {
	n, err := t.Conn.Read(p)
	if n > 0 {
		t.bucket.Wait(int64(n))
		if t.limiter != nil {
			t.limiter.recordBytes(int64(n))
		}
	}
	return n, err
}

func (t *throttledConn) Write(p []byte) (int, error) {
	t.bucket.Wait(int64(len(p)))
	n, err := t.Conn.Write(p)
	if err == nil && t.limiter != nil {
		t.limiter.recordBytes(int64(n))
	}
	return n, err
}

// CloseWrite forwards to the wrapped conn's half-close when it has one
// (e.g. *net.TCPConn), so throttled connections still support the half-close
// contract frame.Pipe relies on.
func (t *throttledConn) CloseWrite() error {
	if hc, ok := t.Conn.(interface{ CloseWrite() error }); ok {
		return hc.CloseWrite()
	}
	return t.Conn.Close()
}

// timeBucket holds bytes transferred within a 1-second window.
type timeBucket struct {
	bytes     int64 // atomic
	timestamp int64 // atomic, unix timestamp
}

// Limiter caps one sfn's aggregate throughput and exposes its recent
// transfer rate for the admin API.
type Limiter struct {
	bucket     *ratelimit.Bucket
	maxRate    int64
	buckets    [numBuckets]timeBucket
	currentIdx int64 // atomic, current bucket index
	lastRotate int64 // atomic, last rotation unix timestamp
	windowSize time.Duration
}

// New creates a Limiter capping throughput at bytesPerSec. A non-positive
// value disables the cap in practice by setting it far above any real link.
func New(bytesPerSec int64) *Limiter {
	if bytesPerSec <= 0 {
		bytesPerSec = unlimitedBandwidth
	}
	b := ratelimit.NewBucketWithRate(float64(bytesPerSec), bytesPerSec)
	now := time.Now().Unix()
	l := &Limiter{
		bucket:     b,
		maxRate:    bytesPerSec,
		windowSize: 5 * time.Second,
		lastRotate: now,
	}
	for i := range l.buckets {
		atomic.StoreInt64(&l.buckets[i].timestamp, now)
	}
	return l
}

func (l *Limiter) recordBytes(n int64) {
	now := time.Now().Unix()
	lastRotate := atomic.LoadInt64(&l.lastRotate)

	if now > lastRotate {
		if atomic.CompareAndSwapInt64(&l.lastRotate, lastRotate, now) {
			currentIdx := atomic.LoadInt64(&l.currentIdx)
			nextIdx := (currentIdx + 1) % numBuckets
			atomic.StoreInt64(&l.currentIdx, nextIdx)
			atomic.StoreInt64(&l.buckets[nextIdx].bytes, 0)
			atomic.StoreInt64(&l.buckets[nextIdx].timestamp, now)
		}
	}

	idx := atomic.LoadInt64(&l.currentIdx)
	atomic.AddInt64(&l.buckets[idx].bytes, n)
}

// WrapConn wraps c so every read and write is metered and throttled.
func (l *Limiter) WrapConn(c net.Conn) net.Conn {
	return &throttledConn{Conn: c, bucket: l.bucket, limiter: l}
}

// GetActiveRate returns the average bytes/sec transferred over the trailing
// window.
func (l *Limiter) GetActiveRate() int64 {
	now := time.Now().Unix()
	cutoff := now - int64(l.windowSize.Seconds())

	var totalBytes int64
	oldestTimestamp := now

	for i := 0; i < numBuckets; i++ {
		ts := atomic.LoadInt64(&l.buckets[i].timestamp)
		if ts >= cutoff {
			totalBytes += atomic.LoadInt64(&l.buckets[i].bytes)
			if ts < oldestTimestamp {
				oldestTimestamp = ts
			}
		}
	}

	if duration := now - oldestTimestamp; duration > 0 {
		return totalBytes / duration
	}
	return 0
}

// GetMaxRate returns the configured cap in bytes/sec.
func (l *Limiter) GetMaxRate() int64 {
	return l.maxRate
}
