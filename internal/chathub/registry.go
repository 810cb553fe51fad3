package chathub

import (
	"campusconnect/backend/internal/models"
	"log/slog"
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Publisher forwards locally broadcast events to other instances.
type Publisher interface {
	Publish(groupID string, evt models.Event)
}

type binding struct {
	groupID string
	userID  string
}

// Registry is the process-wide, group-scoped set of live connections.
// All methods are safe for concurrent use. Broadcast works on a snapshot,
// so a connection registered mid-broadcast may miss that event.
type Registry struct {
	mu     sync.RWMutex
	groups map[string]map[Connection]string
	conns  map[Connection]binding

	publisher Publisher
	log       *slog.Logger
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		groups: make(map[string]map[Connection]string),
		conns:  make(map[Connection]binding),
		log:    log,
	}
}

// SetPublisher enables cross-instance fan-out. Call before serving traffic.
func (r *Registry) SetPublisher(p Publisher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publisher = p
}

// Register binds conn to groupID and announces userID to the other live
// connections of the group. A connection is bound to one group at a time;
// re-registering moves it.
func (r *Registry) Register(conn Connection, groupID, userID string) {
	r.mu.Lock()
	if prev, ok := r.conns[conn]; ok {
		r.detach(conn, prev.groupID)
	}
	set, ok := r.groups[groupID]
	if !ok {
		set = make(map[Connection]string)
		r.groups[groupID] = set
	}
	set[conn] = userID
	r.conns[conn] = binding{groupID: groupID, userID: userID}
	count := len(set)
	r.mu.Unlock()

	r.log.Debug("connection registered", "group_id", groupID, "user_id", userID, "connections", count)
	r.Broadcast(groupID, models.NewUserJoinedEvent(userID), conn)
}

// Unregister removes conn from its group and reports where it was bound.
// Unregistering an unknown connection is a no-op.
func (r *Registry) Unregister(conn Connection) (groupID, userID string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.conns[conn]
	if !ok {
		return "", "", false
	}
	r.detach(conn, b.groupID)
	r.log.Debug("connection unregistered", "group_id", b.groupID, "user_id", b.userID)
	return b.groupID, b.userID, true
}

// detach requires r.mu held for writing.
func (r *Registry) detach(conn Connection, groupID string) {
	delete(r.conns, conn)
	set := r.groups[groupID]
	delete(set, conn)
	if len(set) == 0 {
		delete(r.groups, groupID)
	}
}

// Broadcast delivers evt to every live connection of the group except
// exclude (which may be nil), then hands it to the publisher if one is
// set. It returns the number of local deliveries.
func (r *Registry) Broadcast(groupID string, evt models.Event, exclude Connection) int {
	delivered := r.deliver(groupID, evt, exclude)

	r.mu.RLock()
	publisher := r.publisher
	r.mu.RUnlock()
	if publisher != nil {
		publisher.Publish(groupID, evt)
	}
	return delivered
}

// DeliverLocal delivers evt to this instance's connections only.
func (r *Registry) DeliverLocal(groupID string, evt models.Event) int {
	return r.deliver(groupID, evt, nil)
}

func (r *Registry) deliver(groupID string, evt models.Event, exclude Connection) int {
	targets := r.snapshot(groupID)

	var failed []Connection
	delivered := 0
	for _, conn := range targets {
		if exclude != nil && conn == exclude {
			continue
		}
		if err := conn.Send(evt); err != nil {
			failed = append(failed, conn)
			continue
		}
		delivered++
	}

	r.removeFailed(groupID, failed)
	return delivered
}

func (r *Registry) snapshot(groupID string) []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.groups[groupID]
	conns := make([]Connection, 0, len(set))
	for conn := range set {
		conns = append(conns, conn)
	}
	return conns
}

// removeFailed drops connections that could not accept an event. It runs
// after the sweep so a failure never cuts delivery short.
func (r *Registry) removeFailed(groupID string, failed []Connection) {
	for _, conn := range failed {
		if _, userID, ok := r.Unregister(conn); ok {
			r.log.Warn("dropping unreachable connection", "group_id", groupID, "user_id", userID)
		}
		conn.Close()
	}
}

// CloseUser closes every local connection userID holds in groupID.
func (r *Registry) CloseUser(groupID, userID string) int {
	r.mu.RLock()
	var targets []Connection
	for conn, uid := range r.groups[groupID] {
		if uid == userID {
			targets = append(targets, conn)
		}
	}
	r.mu.RUnlock()

	for _, conn := range targets {
		conn.Close()
	}
	return len(targets)
}

// ConnectionCount is for diagnostics only; it never gates permissions.
func (r *Registry) ConnectionCount(groupID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups[groupID])
}

// ConnectedUserIDs returns the distinct users with a live connection to
// the group, sorted.
func (r *Registry) ConnectedUserIDs(groupID string) []string {
	r.mu.RLock()
	ids := lo.Values(r.groups[groupID])
	r.mu.RUnlock()

	ids = lo.Uniq(ids)
	sort.Strings(ids)
	return ids
}

// CloseAll closes every connection. Sessions then unregister themselves.
func (r *Registry) CloseAll() int {
	r.mu.RLock()
	conns := lo.Keys(r.conns)
	r.mu.RUnlock()

	for _, conn := range conns {
		conn.Close()
	}
	r.log.Info("closed all live connections", "count", len(conns))
	return len(conns)
}
