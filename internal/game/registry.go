package game

import (
	"errors"
	"sync"
)

// Registry errors.
var (
	// ErrSessionExists is returned when a channel already has an active
	// session of the requested game type.
	ErrSessionExists = errors.New("a game of this type is already running in this channel")

	// ErrNoSession is returned when no active session matches.
	ErrNoSession = errors.New("no active game of this type in this channel")
)

type sessionKey struct {
	channelID int64
	gameType  Type
}

// Registry tracks active game sessions, at most one per (channel, type)
// pair. It is injected into each game; there is no package-level instance.
type Registry struct {
	mu       sync.RWMutex
	sessions map[sessionKey]Session
}

// NewRegistry creates a new session registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[sessionKey]Session),
	}
}

// Create registers a session. Returns ErrSessionExists if the channel
// already has an active session of the same type.
func (r *Registry) Create(s Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := sessionKey{channelID: s.Channel(), gameType: s.GameType()}
	if _, ok := r.sessions[key]; ok {
		return ErrSessionExists
	}
	r.sessions[key] = s
	return nil
}

// Get retrieves the active session of a type in a channel.
func (r *Registry) Get(channelID int64, t Type) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionKey{channelID: channelID, gameType: t}]
	return s, ok
}

// Remove drops a session. Returns true if one was present.
func (r *Registry) Remove(channelID int64, t Type) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := sessionKey{channelID: channelID, gameType: t}
	if _, ok := r.sessions[key]; ok {
		delete(r.sessions, key)
		return true
	}
	return false
}

// Count returns the number of active sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
