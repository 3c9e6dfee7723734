package conversation

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lorekeep/lorekeep/core"
)

const (
	// DefaultTTL is how long a session survives without an append.
	DefaultTTL = 30 * time.Minute

	// DefaultMaxHistory caps the number of retained messages per session.
	DefaultMaxHistory = 10
)

// Clock abstracts time for deterministic TTL testing.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// session holds one conversation's state. All fields are guarded by mu;
// the store-level lock only protects map membership.
type session struct {
	mu         sync.Mutex
	messages   []core.Message
	createdAt  time.Time
	lastActive time.Time
	primed     bool
}

// Store holds per-conversation message history with TTL-based expiry and
// size-bounded trimming. All operations are total: unknown ids behave as
// empty or newly created sessions rather than erroring.
//
// Mutation of one session never blocks unrelated sessions; the store lock
// is held only for map membership, appends serialize on the session lock.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session

	ttl        time.Duration
	maxHistory int
	clock      Clock
	logger     *slog.Logger
}

// Option configures a Store.
type Option func(*Store) error

// WithTTL sets the inactivity window after which a session expires.
// Default is 30 minutes.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) error {
		if ttl > 0 {
			s.ttl = ttl
		}
		return nil
	}
}

// WithMaxHistory sets the per-session message cap applied after assistant
// appends. Default is 10.
func WithMaxHistory(n int) Option {
	return func(s *Store) error {
		if n > 0 {
			s.maxHistory = n
		}
		return nil
	}
}

// WithClock sets a custom clock. Default is the system clock.
func WithClock(clock Clock) Option {
	return func(s *Store) error {
		if clock != nil {
			s.clock = clock
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewStore creates a conversation store.
func NewStore(opts ...Option) (*Store, error) {
	s := &Store{
		sessions:   make(map[string]*session),
		ttl:        DefaultTTL,
		maxHistory: DefaultMaxHistory,
		clock:      systemClock{},
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// NewSession allocates a fresh empty session and returns its id.
func (s *Store) NewSession() string {
	id := uuid.NewString()
	now := s.clock.Now()

	s.mu.Lock()
	s.sessions[id] = &session{createdAt: now, lastActive: now}
	s.mu.Unlock()

	s.logger.Info("created conversation", "conversationId", id)
	return id
}

// AppendSystem appends a system message, creating the session if absent.
func (s *Store) AppendSystem(id, content string) {
	s.append(id, core.RoleSystem, content)
}

// AppendUser appends a user message, creating the session if absent.
func (s *Store) AppendUser(id, content string) {
	s.append(id, core.RoleUser, content)
}

// AppendAssistant appends an assistant message, creating the session if
// absent, then trims the history to the configured cap.
func (s *Store) AppendAssistant(id, content string) {
	sess := s.getOrCreate(id)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.messages = append(sess.messages, core.Message{
		Role:      core.RoleAssistant,
		Content:   content,
		Timestamp: s.clock.Now(),
	})
	sess.lastActive = s.clock.Now()
	sess.messages = trim(sess.messages, s.maxHistory)
}

// History returns a snapshot copy of the session's messages in append
// order. Every call first sweeps expired sessions process-wide; a read for
// an expired or absent id yields an empty history.
func (s *Store) History(id string) []core.Message {
	s.sweep()

	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return []core.Message{}
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return append([]core.Message{}, sess.messages...)
}

// Prime marks the session as primed and reports whether it was unprimed
// before the call. The flag is set once per session lifetime and is never
// re-derived from history length, so clearing messages mid-conversation
// does not cause a second system-prompt injection.
func (s *Store) Prime(id string) bool {
	sess := s.getOrCreate(id)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.primed {
		return false
	}
	sess.primed = true
	return true
}

// Clear removes the session entirely.
func (s *Store) Clear(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()

	s.logger.Info("cleared conversation", "conversationId", id)
}

// ActiveCount returns the number of non-expired sessions.
func (s *Store) ActiveCount() int {
	s.sweep()

	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) append(id string, role core.Role, content string) {
	sess := s.getOrCreate(id)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.messages = append(sess.messages, core.Message{
		Role:      role,
		Content:   content,
		Timestamp: s.clock.Now(),
	})
	sess.lastActive = s.clock.Now()
}

func (s *Store) getOrCreate(id string) *session {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok = s.sessions[id]; ok {
		return sess
	}

	now := s.clock.Now()
	sess = &session{createdAt: now, lastActive: now}
	s.sessions[id] = sess
	return sess
}

// sweep removes all sessions whose last activity is older than the TTL.
// Lock order is store then session, same as every other path.
func (s *Store) sweep() {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, sess := range s.sessions {
		sess.mu.Lock()
		expired := now.Sub(sess.lastActive) > s.ttl
		sess.mu.Unlock()
		if expired {
			delete(s.sessions, id)
			s.logger.Info("removed expired conversation", "conversationId", id)
		}
	}
}

// trim enforces the history cap: the full leading run of system messages is
// kept, followed by the most recent (cap - len(run)) other messages. When
// the system run alone reaches the cap, every non-system message is
// discarded.
func trim(messages []core.Message, cap int) []core.Message {
	if len(messages) <= cap {
		return messages
	}

	lead := 0
	for lead < len(messages) && messages[lead].Role == core.RoleSystem {
		lead++
	}

	if lead >= cap {
		return messages[:lead]
	}

	rest := messages[lead:]
	keep := cap - lead
	if len(rest) > keep {
		rest = rest[len(rest)-keep:]
	}

	trimmed := make([]core.Message, 0, lead+len(rest))
	trimmed = append(trimmed, messages[:lead]...)
	trimmed = append(trimmed, rest...)
	return trimmed
}
