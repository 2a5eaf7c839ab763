// Package router maintains the authoritative sfn-name to connection-id table
// that the zipper consults on every request. It generalizes router.rs's
// Router trait/RouterImpl into Go, protected by a sync.RWMutex in the same
// style salmoncannon's SalmonBridge guards its QUIC connection handle.
package router

import (
	"errors"
	"log"
	"sync"

	"github.com/yomorun/yomo/types"
)

// ErrEmptyName and ErrInvalidCredential let callers distinguish the two
// ways Handshake can reject a request, since the zipper reports them with
// different HTTP-style status codes (400 vs 401).
var (
	ErrEmptyName         = errors.New("sfn name is empty")
	ErrInvalidCredential = errors.New("invalid credential")
)

// Router tracks which connection currently owns each registered sfn name.
type Router interface {
	// Handshake admits or rejects a new SFN connection. On success it
	// returns the id of a previously displaced connection (if any) so the
	// caller can force-close it.
	Handshake(connID uint64, req types.HandshakeRequest) (displaced uint64, displacedOK bool, err error)

	// Route resolves the connection currently serving headers.SfnName.
	Route(headers types.RequestHeaders) (connID uint64, ok bool)

	// RemoveSfn drops every route currently owned by connID, e.g. once its
	// connection has closed.
	RemoveSfn(connID uint64)
}

type routerImpl struct {
	mu        sync.RWMutex
	authToken string
	routeMap  map[string]uint64
}

// New creates a Router. An empty authToken disables credential checking.
func New(authToken string) Router {
	return &routerImpl{
		authToken: authToken,
		routeMap:  make(map[string]uint64),
	}
}

func (r *routerImpl) Handshake(connID uint64, req types.HandshakeRequest) (uint64, bool, error) {
	if req.SfnName == "" {
		return 0, false, ErrEmptyName
	}
	if r.authToken != "" && req.Credential != r.authToken {
		return 0, false, ErrInvalidCredential
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	prev, existed := r.routeMap[req.SfnName]
	r.routeMap[req.SfnName] = connID
	if existed && prev != connID {
		log.Printf("router: [%s] displaced connection %d with %d", req.SfnName, prev, connID)
		return prev, true, nil
	}
	log.Printf("router: [%s] bound to connection %d", req.SfnName, connID)
	return 0, false, nil
}

func (r *routerImpl) RemoveSfn(connID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, id := range r.routeMap {
		if id == connID {
			delete(r.routeMap, name)
		}
	}
}

func (r *routerImpl) Route(headers types.RequestHeaders) (uint64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connID, ok := r.routeMap[headers.SfnName]
	if !ok {
		log.Printf("router: route for [%s] not found", headers.SfnName)
		return 0, false
	}
	log.Printf("router: route for [%s] to connection %d", headers.SfnName, connID)
	return connID, true
}
