package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"

	"github.com/mantonx/playerd/internal/errors"
	"github.com/mantonx/playerd/internal/events"
	"github.com/mantonx/playerd/internal/modules/playermodule/models"
	"github.com/mantonx/playerd/internal/types"
)

// SessionRegistry owns every live playback session, keyed by handle. Handles
// are allocated monotonically and never reused for the lifetime of the
// process, so a stale handle can never alias a newer session.
type SessionRegistry struct {
	mu         sync.RWMutex
	sessions   map[int64]*Session
	nextHandle int64

	db       *gorm.DB
	eventBus events.EventBus
	logger   hclog.Logger
}

// NewSessionRegistry creates a session registry. db and eventBus may be nil;
// journaling and bus notifications are then skipped.
func NewSessionRegistry(db *gorm.DB, eventBus events.EventBus, logger hclog.Logger) *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[int64]*Session),
		db:       db,
		eventBus: eventBus,
		logger:   logger.Named("registry"),
	}
}

// Create opens a player on the engine and registers a new session for it.
// The handle is returned as soon as the player process accepts commands;
// media readiness arrives later on the event stream.
func (r *SessionRegistry) Create(ctx context.Context, engine types.Engine, source types.MediaSource, opts types.SessionOptions) (*Session, error) {
	player, err := engine.Open(ctx, source, opts)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	handle := r.nextHandle
	r.nextHandle++
	session := newSession(handle, engine.ID(), source, opts, player, r.logger)
	r.sessions[handle] = session
	r.mu.Unlock()

	session.setNotify(func(state SessionState, detail string) {
		switch state {
		case StateCompleted:
			r.publish(events.EventSessionCompleted, session, detail)
		case StateFailed:
			r.publish(events.EventSessionError, session, detail)
		}
	})

	r.journalCreate(session)
	r.publish(events.EventSessionCreated, session, "")

	r.logger.Info("session created", "handle", handle, "engine_id", engine.ID(), "source_type", source.Type)
	return session, nil
}

// Get resolves a handle to its live session.
func (r *SessionRegistry) Get(handle int64) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, exists := r.sessions[handle]
	if !exists {
		return nil, errors.NewNotFoundError("session", handle)
	}
	return session, nil
}

// Dispose tears down a session and frees its handle. Disposing an unknown
// handle is a no-op; every other operation on a disposed handle fails.
func (r *SessionRegistry) Dispose(ctx context.Context, handle int64) error {
	r.mu.Lock()
	session, exists := r.sessions[handle]
	if !exists {
		r.mu.Unlock()
		return nil
	}
	delete(r.sessions, handle)
	r.mu.Unlock()

	err := session.Dispose(ctx)

	r.journalDispose(session)
	r.publish(events.EventSessionDisposed, session, "")

	r.logger.Info("session disposed", "handle", handle)
	return err
}

// DisposeAll disposes every live session. Succeeds trivially with none.
func (r *SessionRegistry) DisposeAll(ctx context.Context) error {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		sessions = append(sessions, session)
	}
	r.sessions = make(map[int64]*Session)
	r.mu.Unlock()

	var firstErr error
	for _, session := range sessions {
		if err := session.Dispose(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		r.journalDispose(session)
		r.publish(events.EventSessionDisposed, session, "")
	}

	if len(sessions) > 0 {
		r.logger.Info("all sessions disposed", "count", len(sessions))
	}
	return firstErr
}

// ActiveHandles returns the handles of all live sessions.
func (r *SessionRegistry) ActiveHandles() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handles := make([]int64, 0, len(r.sessions))
	for handle := range r.sessions {
		handles = append(handles, handle)
	}
	return handles
}

// SessionCount returns the number of live sessions.
func (r *SessionRegistry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *SessionRegistry) journalCreate(session *Session) {
	if r.db == nil {
		return
	}
	record := models.SessionRecord{
		Handle:     session.Handle(),
		EngineID:   session.EngineID(),
		SourceType: string(session.Source().Type),
		URI:        session.Source().URI,
		State:      string(StateInitializing),
	}
	if err := r.db.Create(&record).Error; err != nil {
		r.logger.Warn("failed to journal session create", "handle", session.Handle(), "error", err)
	}
}

func (r *SessionRegistry) journalDispose(session *Session) {
	if r.db == nil {
		return
	}
	now := time.Now()
	width, height := session.Dimensions()
	updates := map[string]interface{}{
		"state":       string(StateDisposed),
		"duration_ms": session.DurationMs(),
		"width":       width,
		"height":      height,
		"disposed_at": &now,
	}
	err := r.db.Model(&models.SessionRecord{}).
		Where("handle = ? AND disposed_at IS NULL", session.Handle()).
		Updates(updates).Error
	if err != nil {
		r.logger.Warn("failed to journal session dispose", "handle", session.Handle(), "error", err)
	}
}

func (r *SessionRegistry) publish(eventType events.EventType, session *Session, message string) {
	if r.eventBus == nil {
		return
	}
	event := events.NewEventWithData(eventType, "playermodule",
		fmt.Sprintf("Session %d %s", session.Handle(), eventType), message,
		map[string]interface{}{
			"handle":      session.Handle(),
			"engine_id":   session.EngineID(),
			"source_type": string(session.Source().Type),
			"uri":         session.Source().URI,
		})
	_ = r.eventBus.PublishAsync(event)
}
