// Package principal distinguishes human users from automated agents.
//
// The core's central policy is that automation never initiates: meetings are
// created by users, outputs are validated by users, memory entries are
// approved by users. Every operation that requires a human therefore resolves
// the caller's ID through a Resolver and checks the principal kind.
package principal

import (
	"errors"
	"sync"
)

// Common errors for principal resolution.
var (
	ErrEmptyID     = errors.New("principal ID cannot be empty")
	ErrUnknown     = errors.New("unknown principal")
	ErrDuplicateID = errors.New("principal ID already registered")
)

// Kind identifies the class of a principal.
type Kind string

const (
	// KindUser is a human user. Only users may initiate or validate.
	KindUser Kind = "user"

	// KindAgent is an automated participant. Agents respond, never initiate.
	KindAgent Kind = "agent"
)

// Principal is a resolved identity.
type Principal struct {
	// ID is the unique principal identifier.
	ID string `json:"id"`

	// Kind is user or agent.
	Kind Kind `json:"kind"`

	// Name is a display name.
	Name string `json:"name,omitempty"`
}

// IsUser reports whether the principal is a human user.
func (p Principal) IsUser() bool {
	return p.Kind == KindUser
}

// AgentRef identifies an agent participating in a meeting. Agents referenced
// here are passive responders; nothing in this module lets them call back in
// to start anything.
type AgentRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
}

// Resolver resolves a principal ID to its identity.
type Resolver interface {
	// Resolve returns the principal for the given ID, or ErrUnknown.
	Resolve(id string) (Principal, error)
}

// StaticResolver is an in-memory Resolver backed by an explicit registry.
// Safe for concurrent use.
type StaticResolver struct {
	mu         sync.RWMutex
	principals map[string]Principal
}

// NewStaticResolver creates an empty resolver.
func NewStaticResolver() *StaticResolver {
	return &StaticResolver{
		principals: make(map[string]Principal),
	}
}

// RegisterUser registers a human user.
func (r *StaticResolver) RegisterUser(id, name string) error {
	return r.register(Principal{ID: id, Kind: KindUser, Name: name})
}

// RegisterAgent registers an automated agent.
func (r *StaticResolver) RegisterAgent(id, name string) error {
	return r.register(Principal{ID: id, Kind: KindAgent, Name: name})
}

func (r *StaticResolver) register(p Principal) error {
	if p.ID == "" {
		return ErrEmptyID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.principals[p.ID]; exists {
		return ErrDuplicateID
	}
	r.principals[p.ID] = p
	return nil
}

// Resolve returns the registered principal for id.
func (r *StaticResolver) Resolve(id string) (Principal, error) {
	if id == "" {
		return Principal{}, ErrEmptyID
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.principals[id]
	if !ok {
		return Principal{}, ErrUnknown
	}
	return p, nil
}
