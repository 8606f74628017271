package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"insider-radar/internal/radar"
	"insider-radar/internal/types"
)

// Status is the lifecycle state of a scan session
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Session tracks one uploaded file through the pipeline
type Session struct {
	mu       sync.RWMutex
	id       string
	source   string
	created  time.Time
	status   Status
	progress []types.Progress
	report   *types.ScanReport
	err      string
	missing  []types.Role
}

// SessionView is the JSON shape of a session
type SessionView struct {
	ID        string            `json:"id"`
	Source    string            `json:"source"`
	Created   time.Time         `json:"created"`
	Status    Status            `json:"status"`
	Completed int               `json:"completed"`
	Total     int               `json:"total"`
	Error     string            `json:"error,omitempty"`
	Missing   []types.Role      `json:"missing_columns,omitempty"`
	Report    *types.ScanReport `json:"report,omitempty"`
	Summary   *radar.Summary    `json:"summary,omitempty"`
}

func newSession(source string) *Session {
	return &Session{
		id:      uuid.NewString(),
		source:  source,
		created: time.Now(),
		status:  StatusRunning,
	}
}

func (s *Session) ID() string { return s.id }

// OnProgress records enrichment progress
func (s *Session) OnProgress(p types.Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = append(s.progress, p)
}

func (s *Session) complete(report *types.ScanReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report = report
	s.status = StatusCompleted
}

func (s *Session) fail(err error, missing []types.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err.Error()
	s.missing = missing
	s.status = StatusFailed
}

// Report returns the finished report, or nil while running or after failure
func (s *Session) Report() *types.ScanReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report
}

// ProgressSince returns progress events after the first n and the current status
func (s *Session) ProgressSince(n int) ([]types.Progress, Status) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n >= len(s.progress) {
		return nil, s.status
	}
	out := make([]types.Progress, len(s.progress)-n)
	copy(out, s.progress[n:])
	return out, s.status
}

// View snapshots the session
func (s *Session) View() SessionView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := SessionView{
		ID:        s.id,
		Source:    s.source,
		Created:   s.created,
		Status:    s.status,
		Completed: len(s.progress),
		Error:     s.err,
		Missing:   s.missing,
		Report:    s.report,
	}
	if n := len(s.progress); n > 0 {
		v.Total = s.progress[n-1].Total
	}
	if s.report != nil {
		sum := radar.Summarize(s.report)
		v.Summary = &sum
		v.Total = len(s.report.Candidates)
	}
	return v
}

// SessionStore keeps sessions in memory until their TTL lapses
type SessionStore struct {
	c *cache.Cache
}

// NewSessionStore creates a store; ttl <= 0 keeps sessions for the process lifetime
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		return &SessionStore{c: cache.New(cache.NoExpiration, 0)}
	}
	return &SessionStore{c: cache.New(ttl, 2*ttl)}
}

// Create registers a new running session
func (st *SessionStore) Create(source string) *Session {
	s := newSession(source)
	st.c.Set(s.id, s, cache.DefaultExpiration)
	return s
}

// Get looks a session up by id
func (st *SessionStore) Get(id string) (*Session, bool) {
	v, ok := st.c.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*Session), true
}

// Len reports the number of live sessions
func (st *SessionStore) Len() int {
	return st.c.ItemCount()
}
