package channel

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Registry hands out one session per user. Sessions are created lazily on
// first use and live for the registry's lifetime; each processes its own
// transitions serially while different users proceed in parallel.
type Registry struct {
	reformulator Reformulator
	starter      MeetingStarter
	logger       *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates a session registry.
func NewRegistry(reformulator Reformulator, starter MeetingStarter, logger *zap.Logger) (*Registry, error) {
	if reformulator == nil {
		return nil, fmt.Errorf("reformulator cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Registry{
		reformulator: reformulator,
		starter:      starter,
		logger:       logger,
		sessions:     make(map[string]*Session),
	}, nil
}

// Session returns the session for the given user, creating it if needed.
func (r *Registry) Session(userID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[userID]; ok {
		return s, nil
	}

	s, err := NewSession(userID, r.reformulator,
		WithMeetingStarter(r.starter),
		WithLogger(r.logger.With(zap.String("user_id", userID))))
	if err != nil {
		return nil, err
	}
	r.sessions[userID] = s
	return s, nil
}
