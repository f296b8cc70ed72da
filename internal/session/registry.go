// Package session tracks which users have live real-time connections, and
// from which device class. The registry is process-local and is consulted by
// the notification dispatcher to decide whether a push is worth attempting.
package session

import (
	"log"
	"sync"
)

// DeviceClassAll is the wildcard device class: it matches any live
// connection, both when registered and when queried.
const DeviceClassAll = "ALL"

// Common device classes. Any string is accepted; these are the ones the
// mobile and web clients send.
const (
	DeviceClassMobile = "MOBILE"
	DeviceClassWeb    = "WEB"
)

// connRef is the reverse-index record for a live connection. Disconnect
// events from the transport may arrive without the authenticated user, so
// the connection ID alone must be enough to clean up.
type connRef struct {
	userID      string
	deviceClass string
}

// userEntry holds one user's live connections and the derived device-class
// view. Both live in a single entry so a disconnect can recompute the class
// set atomically under the entry's own lock.
type userEntry struct {
	mu      sync.Mutex
	conns   map[string]string // connID -> deviceClass
	classes map[string]struct{}
}

// recompute rebuilds the device-class set from the remaining connections.
// Callers hold e.mu. Linear in the user's connection count, which is small
// (a handful of devices) at expected scale.
func (e *userEntry) recompute() {
	e.classes = make(map[string]struct{}, len(e.conns))
	for _, class := range e.conns {
		e.classes[class] = struct{}{}
	}
}

// Registry is the in-memory directory of live connections. The registry
// lock guards only the two maps; per-user state is mutated under the user
// entry's own lock, so one user's multi-device churn never serializes
// behind another's.
//
// Lock ordering: registry lock before entry lock, never the reverse.
type Registry struct {
	mu    sync.RWMutex
	users map[string]*userEntry
	conns map[string]connRef
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		users: make(map[string]*userEntry),
		conns: make(map[string]connRef),
	}
}

// Register records a new live connection for a user. Registering the same
// connection ID again overwrites its device class.
func (r *Registry) Register(userID, connID, deviceClass string) {
	if userID == "" || connID == "" {
		log.Printf("session: register ignored, missing user or connection ID [user=%q conn=%q]", userID, connID)
		return
	}
	if deviceClass == "" {
		deviceClass = DeviceClassAll
	}

	r.mu.Lock()
	e, ok := r.users[userID]
	if !ok {
		e = &userEntry{conns: make(map[string]string), classes: make(map[string]struct{})}
		r.users[userID] = e
	}
	r.conns[connID] = connRef{userID: userID, deviceClass: deviceClass}
	e.mu.Lock()
	r.mu.Unlock()

	e.conns[connID] = deviceClass
	e.classes[deviceClass] = struct{}{}
	e.mu.Unlock()
}

// Unregister removes a live connection. The userID may be empty: transport
// disconnect events do not always carry the authenticated identity, in which
// case it is resolved from the reverse index. When the user's last connection
// goes away the user is dropped from the registry entirely; otherwise the
// device-class set is recomputed from the remaining connections.
func (r *Registry) Unregister(userID, connID string) {
	if connID == "" {
		return
	}

	r.mu.Lock()
	ref, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		log.Printf("session: unregister for unknown connection %s", connID)
		return
	}
	if userID == "" {
		userID = ref.userID
	} else if userID != ref.userID {
		r.mu.Unlock()
		log.Printf("session: unregister user mismatch [conn=%s claimed=%s actual=%s]", connID, userID, ref.userID)
		return
	}
	delete(r.conns, connID)

	e := r.users[userID]
	if e == nil {
		r.mu.Unlock()
		return
	}

	e.mu.Lock()
	delete(e.conns, connID)
	if len(e.conns) == 0 {
		delete(r.users, userID)
		e.mu.Unlock()
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	e.recompute()
	e.mu.Unlock()
}

// IsConnected reports whether the user has at least one live connection.
func (r *Registry) IsConnected(userID string) bool {
	r.mu.RLock()
	_, ok := r.users[userID]
	r.mu.RUnlock()
	return ok
}

// DeviceClasses returns the user's current device classes. The result is a
// copy; empty when the user has no live connections.
func (r *Registry) DeviceClasses(userID string) []string {
	r.mu.RLock()
	e := r.users[userID]
	r.mu.RUnlock()
	if e == nil {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.classes))
	for class := range e.classes {
		out = append(out, class)
	}
	return out
}

// HasDeviceClass reports whether the user is reachable on the given device
// class. The ALL wildcard matches any live connection, on either side: a
// query for ALL matches any connected user, and a connection registered as
// ALL satisfies any queried class.
func (r *Registry) HasDeviceClass(userID, deviceClass string) bool {
	r.mu.RLock()
	e := r.users[userID]
	r.mu.RUnlock()
	if e == nil {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.conns) == 0 {
		return false
	}
	if deviceClass == DeviceClassAll {
		return true
	}
	if _, ok := e.classes[deviceClass]; ok {
		return true
	}
	_, ok := e.classes[DeviceClassAll]
	return ok
}

// ConnectionCount returns the number of live connections for a user.
func (r *Registry) ConnectionCount(userID string) int {
	r.mu.RLock()
	e := r.users[userID]
	r.mu.RUnlock()
	if e == nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.conns)
}
