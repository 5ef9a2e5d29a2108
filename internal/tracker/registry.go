package tracker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/budaic/i-know-where-you-live/internal/models"
)

// SessionStore is the durable mirror for sessions. Implementations must be
// safe for concurrent use.
type SessionStore interface {
	Save(ctx context.Context, session *models.LiveSearchSession) error
	Load(ctx context.Context, sessionID string) (*models.LiveSearchSession, error)
	Delete(ctx context.Context, sessionID string) error
	LoadAll(ctx context.Context) ([]*models.LiveSearchSession, error)
	Cleanup(ctx context.Context, olderThan time.Time) error
}

const (
	subscriberBuffer = 16
	// completionGrace keeps a finished session's channels open long enough
	// for a streaming client to observe the terminal event.
	completionGrace = 5 * time.Second
)

// Config tunes session retention.
type Config struct {
	MemoryTTL     time.Duration
	StoreTTL      time.Duration
	SweepInterval time.Duration
}

// Registry tracks live search sessions, fans progress events out to SSE
// subscribers, and mirrors session state to a durable store so clients can
// recover after a disconnect or server restart. It implements the
// orchestrator's ProgressSink.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[string]*models.LiveSearchSession
	subscribers map[string][]chan models.ProgressUpdate

	store  SessionStore
	cfg    Config
	logger *zap.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewRegistry(store SessionStore, cfg Config, logger *zap.Logger) *Registry {
	if cfg.MemoryTTL <= 0 {
		cfg.MemoryTTL = 30 * time.Minute
	}
	if cfg.StoreTTL <= 0 {
		cfg.StoreTTL = 24 * time.Hour
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 10 * time.Minute
	}
	r := &Registry{
		sessions:    make(map[string]*models.LiveSearchSession),
		subscribers: make(map[string][]chan models.ProgressUpdate),
		store:       store,
		cfg:         cfg,
		logger:      logger.Named("tracker"),
		stopCh:      make(chan struct{}),
	}
	go r.sweepLoop()
	return r
}

// Register creates a new live session.
func (r *Registry) Register(sessionID, subjectName string) *models.LiveSearchSession {
	now := time.Now()
	session := &models.LiveSearchSession{
		SessionID:    sessionID,
		SubjectName:  subjectName,
		StartTime:    now,
		CurrentPhase: models.PhaseStarting,
		Progress:     0,
		Errors:       []string{},
		IsActive:     true,
		LastUpdate:   now,
	}

	r.mu.Lock()
	r.sessions[sessionID] = session
	snapshot := session.Clone()
	r.mu.Unlock()

	r.persist(snapshot)
	r.logger.Info("Session registered",
		zap.String("session_id", sessionID),
		zap.String("subject", subjectName))
	return snapshot
}

// Subscribe returns a channel receiving this session's progress events.
// The channel is buffered; slow consumers lose events rather than blocking
// the search.
func (r *Registry) Subscribe(sessionID string) chan models.ProgressUpdate {
	ch := make(chan models.ProgressUpdate, subscriberBuffer)
	r.mu.Lock()
	r.subscribers[sessionID] = append(r.subscribers[sessionID], ch)
	r.mu.Unlock()
	return ch
}

func (r *Registry) Unsubscribe(sessionID string, ch chan models.ProgressUpdate) {
	r.mu.Lock()
	subs := r.subscribers[sessionID]
	for i, sub := range subs {
		if sub == ch {
			r.subscribers[sessionID] = append(subs[:i], subs[i+1:]...)
			close(sub)
			break
		}
	}
	if len(r.subscribers[sessionID]) == 0 {
		delete(r.subscribers, sessionID)
	}
	r.mu.Unlock()
}

// Session returns a snapshot of the session, falling back to the durable
// store.
func (r *Registry) Session(sessionID string) *models.LiveSearchSession {
	session, _ := r.SessionWithSource(sessionID)
	return session
}

// SessionWithSource returns a snapshot of the session and reports where it
// came from: "memory" for live sessions, "storage" for ones only the
// durable mirror still holds. The live struct never leaves the lock; the
// orchestration goroutine keeps mutating it while handlers serialize the
// snapshot.
func (r *Registry) SessionWithSource(sessionID string) (*models.LiveSearchSession, string) {
	r.mu.RLock()
	session, ok := r.sessions[sessionID]
	var snapshot *models.LiveSearchSession
	if ok {
		snapshot = session.Clone()
	}
	r.mu.RUnlock()
	if ok {
		return snapshot, "memory"
	}
	if r.store == nil {
		return nil, ""
	}
	stored, err := r.store.Load(context.Background(), sessionID)
	if err != nil {
		return nil, ""
	}
	return stored, "storage"
}

// Sessions lists snapshots of all in-memory sessions.
func (r *Registry) Sessions() []*models.LiveSearchSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.LiveSearchSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.Clone())
	}
	return out
}

// Recover returns a session's state for a reconnecting client mid-way
// through a search, restoring store-only sessions to the active set.
// Completed or unknown sessions return nil: the client should fetch the
// finished profile instead.
func (r *Registry) Recover(sessionID string) *models.LiveSearchSession {
	r.mu.Lock()
	if session, ok := r.sessions[sessionID]; ok {
		var snapshot *models.LiveSearchSession
		if !session.IsComplete {
			snapshot = session.Clone()
		}
		r.mu.Unlock()
		return snapshot
	}
	r.mu.Unlock()

	if r.store == nil {
		return nil
	}
	stored, err := r.store.Load(context.Background(), sessionID)
	if err != nil || stored.IsComplete {
		return nil
	}
	r.mu.Lock()
	r.sessions[sessionID] = stored
	snapshot := stored.Clone()
	r.mu.Unlock()
	return snapshot
}

// StopSession deactivates a session on client request. The orchestration
// goroutine keeps running and its result is still persisted; only the live
// tracking stops.
func (r *Registry) StopSession(sessionID string) bool {
	r.mu.Lock()
	session, ok := r.sessions[sessionID]
	var snapshot *models.LiveSearchSession
	if ok {
		session.IsActive = false
		session.LastUpdate = time.Now()
		snapshot = session.Clone()
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	r.persist(snapshot)
	r.closeSubscribers(sessionID)
	return true
}

// PhaseStart implements the orchestrator's progress sink.
func (r *Registry) PhaseStart(sessionID string, phase models.Phase, message string) {
	r.publish(sessionID, phase, models.StatusStarting, message, nil)
}

func (r *Registry) PhaseProgress(sessionID string, phase models.Phase, status models.Status, message string, results *models.PhaseResults) {
	r.publish(sessionID, phase, status, message, results)
}

func (r *Registry) PhaseComplete(sessionID string, phase models.Phase, message string, results *models.PhaseResults) {
	r.publish(sessionID, phase, models.StatusCompleted, message, results)
}

func (r *Registry) Error(sessionID string, message string) {
	r.mu.Lock()
	if session, ok := r.sessions[sessionID]; ok {
		session.Errors = append(session.Errors, message)
		session.LastUpdate = time.Now()
	}
	r.mu.Unlock()
	r.publish(sessionID, models.PhaseError, models.StatusFailed, message, nil)
}

// Complete marks the session finished with its final profile and schedules
// subscriber channel teardown after a short grace period.
func (r *Registry) Complete(sessionID string, profile *models.Profile) {
	r.mu.Lock()
	session, ok := r.sessions[sessionID]
	if ok {
		session.IsComplete = true
		session.IsActive = false
		session.CurrentPhase = models.PhaseComplete
		session.Progress = 100
		session.FinalProfile = profile
		session.LastUpdate = time.Now()
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	r.publish(sessionID, models.PhaseComplete, models.StatusCompleted, "Profile creation complete", nil)

	time.AfterFunc(completionGrace, func() {
		r.closeSubscribers(sessionID)
	})
}

// Fail marks the session failed and tears down subscribers after the grace
// period.
func (r *Registry) Fail(sessionID, message string) {
	r.mu.Lock()
	session, ok := r.sessions[sessionID]
	if ok {
		session.IsComplete = true
		session.IsActive = false
		session.CurrentPhase = models.PhaseError
		session.Errors = append(session.Errors, message)
		session.LastUpdate = time.Now()
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	r.publish(sessionID, models.PhaseError, models.StatusFailed, message, nil)

	time.AfterFunc(completionGrace, func() {
		r.closeSubscribers(sessionID)
	})
}

// Stop halts the sweep loop. Sessions already in memory stay available.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

// publish updates the session's progress (monotone, never decreasing),
// fans the event out without blocking on slow subscribers, and mirrors the
// accepted event to the durable store. Sends happen under the lock so a
// concurrent Unsubscribe or teardown can never close a channel between the
// snapshot and the send.
func (r *Registry) publish(sessionID string, phase models.Phase, status models.Status, message string, results *models.PhaseResults) {
	update := models.ProgressUpdate{
		SessionID: sessionID,
		Phase:     phase,
		Status:    status,
		Message:   message,
		Results:   results,
		Timestamp: time.Now(),
	}

	r.mu.Lock()
	session, ok := r.sessions[sessionID]
	var snapshot *models.LiveSearchSession
	if ok {
		update.SubjectName = session.SubjectName
		if phase != models.PhaseError {
			session.CurrentPhase = phase
			if p := progressFor(phase, status); p > session.Progress {
				session.Progress = p
			}
		}
		if results != nil && results.SearchLog != nil {
			if session.PartialProfile == nil {
				session.PartialProfile = &models.Profile{Name: session.SubjectName}
			}
			session.PartialProfile.SearchLogs = append(session.PartialProfile.SearchLogs, *results.SearchLog)
		}
		session.LastUpdate = update.Timestamp
		update.Progress = session.Progress
		snapshot = session.Clone()
	}
	for _, ch := range r.subscribers[sessionID] {
		select {
		case ch <- update:
		default:
			r.logger.Debug("Dropping progress event for slow subscriber",
				zap.String("session_id", sessionID))
		}
	}
	r.mu.Unlock()

	if snapshot != nil {
		r.persist(snapshot)
	}
}

func (r *Registry) closeSubscribers(sessionID string) {
	r.mu.Lock()
	for _, ch := range r.subscribers[sessionID] {
		close(ch)
	}
	delete(r.subscribers, sessionID)
	r.mu.Unlock()
}

func (r *Registry) persist(session *models.LiveSearchSession) {
	if r.store == nil {
		return
	}
	if err := r.store.Save(context.Background(), session); err != nil {
		r.logger.Warn("Failed to persist session",
			zap.String("session_id", session.SessionID), zap.Error(err))
	}
}

func (r *Registry) sweepLoop() {
	ticker := time.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

// sweep drops stale sessions from memory and expires old rows from the
// durable store.
func (r *Registry) sweep() {
	memCutoff := time.Now().Add(-r.cfg.MemoryTTL)

	r.mu.Lock()
	for id, session := range r.sessions {
		if session.LastUpdate.Before(memCutoff) {
			delete(r.sessions, id)
			for _, ch := range r.subscribers[id] {
				close(ch)
			}
			delete(r.subscribers, id)
		}
	}
	r.mu.Unlock()

	if r.store != nil {
		if err := r.store.Cleanup(context.Background(), time.Now().Add(-r.cfg.StoreTTL)); err != nil {
			r.logger.Warn("Session store cleanup failed", zap.Error(err))
		}
	}
}
