// Package status tracks the live and historical state of every registered
// sfn for the admin API to report. It adapts connection_monitor.go's
// sync.Map-of-atomics idiom (and its periodic log loop) from a global
// protocol counter into a per-sfn-name table.
package status

import (
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot is a point-in-time view of one sfn's connection state, returned
// by the admin API.
type Snapshot struct {
	Name          string    `json:"name"`
	Connected     bool      `json:"connected"`
	LastSeen      time.Time `json:"last_seen"`
	StreamsActive int64     `json:"streams_active"`
	StreamsTotal  int64     `json:"streams_total"`
	BytesIn       int64     `json:"bytes_in"`  // bytes read back from the sfn
	BytesOut      int64     `json:"bytes_out"` // bytes forwarded to the sfn
}

type entry struct {
	connected     atomic.Bool
	lastSeen      atomic.Int64 // unix nano
	streamsActive atomic.Int64
	streamsTotal  atomic.Int64
	bytesIn       atomic.Int64
	bytesOut      atomic.Int64
}

// Monitor is a concurrency-safe registry of per-sfn-name Snapshots.
type Monitor struct {
	entries sync.Map // name -> *entry
}

// New creates an empty Monitor.
func New() *Monitor {
	return &Monitor{}
}

func (m *Monitor) entryFor(name string) *entry {
	v, _ := m.entries.LoadOrStore(name, &entry{})
	return v.(*entry)
}

// MarkConnected records that name is now bound to a live connection.
func (m *Monitor) MarkConnected(name string) {
	e := m.entryFor(name)
	e.connected.Store(true)
	e.lastSeen.Store(time.Now().UnixNano())
}

// MarkDisconnected records that name's connection has gone away.
func (m *Monitor) MarkDisconnected(name string) {
	e := m.entryFor(name)
	e.connected.Store(false)
}

// Touch refreshes the last-seen timestamp without changing connected state,
// e.g. on a keep-alive.
func (m *Monitor) Touch(name string) {
	m.entryFor(name).lastSeen.Store(time.Now().UnixNano())
}

// StreamOpened increments the active and total stream counts for name and
// refreshes its last-seen timestamp, since opening a stream is activity.
func (m *Monitor) StreamOpened(name string) {
	e := m.entryFor(name)
	e.streamsActive.Add(1)
	e.streamsTotal.Add(1)
	e.lastSeen.Store(time.Now().UnixNano())
}

// StreamClosed decrements the active stream count for name.
func (m *Monitor) StreamClosed(name string) {
	m.entryFor(name).streamsActive.Add(-1)
}

// AddBytes accumulates the bytes forwarded through a request/response pair.
func (m *Monitor) AddBytes(name string, in, out int64) {
	e := m.entryFor(name)
	if in > 0 {
		e.bytesIn.Add(in)
	}
	if out > 0 {
		e.bytesOut.Add(out)
	}
}

// Snapshot returns the current state of a single sfn, if known.
func (m *Monitor) Snapshot(name string) (Snapshot, bool) {
	v, ok := m.entries.Load(name)
	if !ok {
		return Snapshot{}, false
	}
	e := v.(*entry)
	return Snapshot{
		Name:          name,
		Connected:     e.connected.Load(),
		LastSeen:      time.Unix(0, e.lastSeen.Load()),
		StreamsActive: e.streamsActive.Load(),
		StreamsTotal:  e.streamsTotal.Load(),
		BytesIn:       e.bytesIn.Load(),
		BytesOut:      e.bytesOut.Load(),
	}, true
}

// All returns a snapshot of every sfn name the monitor has ever seen.
func (m *Monitor) All() []Snapshot {
	var out []Snapshot
	m.entries.Range(func(key, value any) bool {
		name := key.(string)
		e := value.(*entry)
		out = append(out, Snapshot{
			Name:          name,
			Connected:     e.connected.Load(),
			LastSeen:      time.Unix(0, e.lastSeen.Load()),
			StreamsActive: e.streamsActive.Load(),
			StreamsTotal:  e.streamsTotal.Load(),
			BytesIn:       e.bytesIn.Load(),
			BytesOut:      e.bytesOut.Load(),
		})
		return true
	})
	return out
}

// StartPeriodicLogging logs an aggregate one-line summary every interval,
// mirroring connection_monitor.go's StartPeriodicLogging loop.
func (m *Monitor) StartPeriodicLogging(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			var active, total int64
			var connected int
			m.entries.Range(func(_, value any) bool {
				e := value.(*entry)
				active += e.streamsActive.Load()
				total += e.streamsTotal.Load()
				if e.connected.Load() {
					connected++
				}
				return true
			})

			var mem runtime.MemStats
			runtime.ReadMemStats(&mem)

			log.Printf("monitor: sfns connected=%d streams_active=%d streams_total=%d goroutines=%d heap=%dMB",
				connected, active, total, runtime.NumGoroutine(), mem.HeapAlloc/1024/1024)
		}
	}()
}
