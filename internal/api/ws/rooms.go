package ws

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	redisstore "github.com/muthuthevar/collabspace/internal/store/redis"
)

// RoomKind distinguishes board rooms from workspace rooms. A connection
// may be in at most one room of each kind at a time.
type RoomKind int

const (
	KindBoard RoomKind = iota
	KindWorkspace
)

func (k RoomKind) String() string {
	if k == KindBoard {
		return "board"
	}
	return "workspace"
}

func channelFor(kind RoomKind, roomID string) string {
	if kind == KindBoard {
		return redisstore.BoardChannel(roomID)
	}
	return redisstore.WorkspaceChannel(roomID)
}

// RoomIndex maps room IDs to their member connections. One mutex guards
// both room maps and the connections' current-room fields, so moving a
// connection between rooms is atomic: no interleaving can observe it in
// two rooms of the same kind or drop it from both.
type RoomIndex struct {
	mu          sync.Mutex
	boards      map[string]map[uuid.UUID]*Connection
	workspaces  map[string]map[uuid.UUID]*Connection
	broadcaster *Broadcaster
}

func NewRoomIndex(b *Broadcaster) *RoomIndex {
	return &RoomIndex{
		boards:      make(map[string]map[uuid.UUID]*Connection),
		workspaces:  make(map[string]map[uuid.UUID]*Connection),
		broadcaster: b,
	}
}

func (ri *RoomIndex) roomsFor(kind RoomKind) map[string]map[uuid.UUID]*Connection {
	if kind == KindBoard {
		return ri.boards
	}
	return ri.workspaces
}

// Join adds the connection to a room. If it is already in another room of
// the same kind it leaves that room first; rejoining the current room is
// a no-op, as is a join on a closed connection. Presence is announced to
// the rooms affected, never echoed to the mover.
func (ri *RoomIndex) Join(c *Connection, roomID string, kind RoomKind) {
	ri.mu.Lock()

	// The disconnect cascade marks the connection closed before it runs
	// LeaveAll, and LeaveAll serializes on ri.mu. Refusing closed
	// connections here means a dispatch racing the cascade cannot re-add
	// a membership the cascade will never clean up.
	if !c.Open() {
		ri.mu.Unlock()
		return
	}

	old := c.roomFor(kind)
	if old == roomID {
		ri.mu.Unlock()
		return
	}

	var oldMembers []*Connection
	if old != "" {
		oldMembers = ri.removeLocked(c, old, kind)
	}

	rooms := ri.roomsFor(kind)
	set, ok := rooms[roomID]
	if !ok {
		set = make(map[uuid.UUID]*Connection)
		rooms[roomID] = set
	}
	set[c.ID()] = c
	c.setRoomFor(kind, roomID)
	newMembers := snapshot(set)

	ri.mu.Unlock()

	if oldMembers != nil {
		ri.announcePresence(c, old, kind, PresenceOffline, oldMembers)
	}
	ri.announcePresence(c, roomID, kind, PresenceOnline, newMembers)

	log.Info().
		Str("user_id", c.UserID()).
		Str("room_id", roomID).
		Str("room_kind", kind.String()).
		Msg("ws: joined room")
}

// Leave removes the connection from the given room. Leaving a room the
// connection is not in is a no-op.
func (ri *RoomIndex) Leave(c *Connection, roomID string, kind RoomKind) {
	ri.mu.Lock()

	if c.roomFor(kind) != roomID {
		ri.mu.Unlock()
		return
	}
	remaining := ri.removeLocked(c, roomID, kind)

	ri.mu.Unlock()

	ri.announcePresence(c, roomID, kind, PresenceOffline, remaining)

	log.Info().
		Str("user_id", c.UserID()).
		Str("room_id", roomID).
		Str("room_kind", kind.String()).
		Msg("ws: left room")
}

// LeaveAll pulls the connection out of whatever rooms it occupies, with
// offline presence to each. Used by the disconnect cascade.
func (ri *RoomIndex) LeaveAll(c *Connection) {
	for _, kind := range []RoomKind{KindBoard, KindWorkspace} {
		if roomID := c.roomFor(kind); roomID != "" {
			ri.Leave(c, roomID, kind)
		}
	}
}

// MembersOf returns a snapshot of a room's members. The snapshot is safe
// to iterate without holding the index lock; membership may change after
// it is taken.
func (ri *RoomIndex) MembersOf(roomID string, kind RoomKind) []*Connection {
	ri.mu.Lock()
	defer ri.mu.Unlock()

	return snapshot(ri.roomsFor(kind)[roomID])
}

// removeLocked detaches the connection from a room and clears its room
// field, pruning the room when it empties. Returns the remaining members.
// Caller holds ri.mu.
func (ri *RoomIndex) removeLocked(c *Connection, roomID string, kind RoomKind) []*Connection {
	rooms := ri.roomsFor(kind)
	set, ok := rooms[roomID]
	if !ok {
		c.setRoomFor(kind, "")
		return nil
	}

	delete(set, c.ID())
	c.setRoomFor(kind, "")

	if len(set) == 0 {
		delete(rooms, roomID)
		return nil
	}
	return snapshot(set)
}

func (ri *RoomIndex) announcePresence(c *Connection, roomID string, kind RoomKind, status string, members []*Connection) {
	if len(members) == 0 {
		return
	}

	p := PresencePayload{UserID: c.UserID(), Status: status}
	if kind == KindBoard {
		p.BoardID = roomID
	} else {
		p.WorkspaceID = roomID
	}

	env := newEnvelope(EventUserPresence, p, c.UserID())
	ri.broadcaster.Broadcast(channelFor(kind, roomID), members, env, c.UserID())
}

func snapshot(set map[uuid.UUID]*Connection) []*Connection {
	if len(set) == 0 {
		return nil
	}
	out := make([]*Connection, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}
