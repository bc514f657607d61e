package controller

import (
	"sync"
	"time"

	"github.com/treefix50/reelshelf/internal/catalog"
	"github.com/treefix50/reelshelf/internal/metrics"
)

// Session is an open player for one entry. Ticks carry its token; once a
// newer session for the same entry starts, the old token stops being applied.
type Session struct {
	Token         string  `json:"token"`
	EntryID       string  `json:"entryId"`
	ResumeSeconds float64 `json:"resumeSeconds"`
}

type playerSession struct {
	token    string
	entryID  string
	lastSeq  uint64
	hasSeq   bool
	lastSeen time.Time
}

// sessionTable tracks at most one live session per entry. Sessions nobody
// ticks or closes expire after idle.
type sessionTable struct {
	mu      sync.Mutex
	byToken map[string]*playerSession
	byEntry map[string]*playerSession
	idle    time.Duration
	now     func() time.Time
	metrics *metrics.Metrics
	stop    chan struct{}
	once    sync.Once
}

func newSessionTable(idle time.Duration, now func() time.Time, m *metrics.Metrics) *sessionTable {
	if idle == 0 {
		idle = 30 * time.Minute
	}

	t := &sessionTable{
		byToken: make(map[string]*playerSession),
		byEntry: make(map[string]*playerSession),
		idle:    idle,
		now:     now,
		metrics: m,
		stop:    make(chan struct{}),
	}
	if idle > 0 {
		go t.cleanupLoop()
	}
	return t
}

// open starts a session for entryID and supersedes any earlier one.
func (t *sessionTable) open(entryID, token string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if old, ok := t.byEntry[entryID]; ok {
		delete(t.byToken, old.token)
	}
	s := &playerSession{token: token, entryID: entryID, lastSeen: t.now()}
	t.byEntry[entryID] = s
	t.byToken[token] = s
	t.reportLocked()
}

// accept checks a tick against its session. It returns the entry the tick
// belongs to, or ErrStaleTick when the session is gone or superseded or
// seq is not newer than the last applied tick.
func (t *sessionTable) accept(token string, seq uint64) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.byToken[token]
	if !ok {
		return "", catalog.ErrStaleTick
	}
	if s.hasSeq && seq <= s.lastSeq {
		return "", catalog.ErrStaleTick
	}
	s.lastSeq = seq
	s.hasSeq = true
	s.lastSeen = t.now()
	return s.entryID, nil
}

// close ends the session behind token and reports its entry.
func (t *sessionTable) close(token string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.byToken[token]
	if !ok {
		return "", false
	}
	delete(t.byToken, token)
	if t.byEntry[s.entryID] == s {
		delete(t.byEntry, s.entryID)
	}
	t.reportLocked()
	return s.entryID, true
}

func (t *sessionTable) closeEntry(entryID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.byEntry[entryID]; ok {
		delete(t.byToken, s.token)
		delete(t.byEntry, entryID)
		t.reportLocked()
	}
}

func (t *sessionTable) clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.byToken = make(map[string]*playerSession)
	t.byEntry = make(map[string]*playerSession)
	t.reportLocked()
}

// reportLocked publishes the number of open sessions.
func (t *sessionTable) reportLocked() {
	t.metrics.SetSessions(len(t.byToken))
}

func (t *sessionTable) shutdown() {
	t.once.Do(func() { close(t.stop) })
	t.clear()
}

func (t *sessionTable) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			t.expire()
		}
	}
}

func (t *sessionTable) expire() {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-t.idle)
	for token, s := range t.byToken {
		if s.lastSeen.Before(cutoff) {
			delete(t.byToken, token)
			if t.byEntry[s.entryID] == s {
				delete(t.byEntry, s.entryID)
			}
		}
	}
	t.reportLocked()
}
