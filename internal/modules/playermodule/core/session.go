// Package core implements playback sessions: the handle registry, the
// per-session state machine, event normalization, and the control facade the
// API layer drives.
package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/mantonx/playerd/internal/errors"
	"github.com/mantonx/playerd/internal/types"
)

// SessionState is the lifecycle state of one playback session
type SessionState string

const (
	StateInitializing SessionState = "initializing"
	StateReady        SessionState = "ready"
	StatePlaying      SessionState = "playing"
	StatePaused       SessionState = "paused"
	StateCompleted    SessionState = "completed"
	StateFailed       SessionState = "failed"
	StateDisposed     SessionState = "disposed"
)

// Session owns one player instance and its normalized event stream. Control
// calls arrive serialized from the transport; raw player events arrive
// concurrently from the engine and are normalized on a dedicated goroutine.
type Session struct {
	handle   int64
	engineID string
	source   types.MediaSource
	opts     types.SessionOptions
	player   types.Player
	logger   hclog.Logger

	mu         sync.Mutex
	state      SessionState
	durationMs int64
	width      int
	height     int
	volume     float64
	speed      float64
	failure    error
	disposed   bool
	norm       normalizerState

	analyticsDetach func(ctx context.Context) error
	notify          func(state SessionState, detail string)

	out      chan types.VideoEvent
	done     chan struct{}
	pumpDone chan struct{}
}

func newSession(handle int64, engineID string, source types.MediaSource, opts types.SessionOptions, player types.Player, logger hclog.Logger) *Session {
	s := &Session{
		handle:   handle,
		engineID: engineID,
		source:   source,
		opts:     opts,
		player:   player,
		logger:   logger.With("handle", handle),
		state:    StateInitializing,
		volume:   1.0,
		speed:    1.0,
		out:      make(chan types.VideoEvent, 64),
		done:     make(chan struct{}),
		pumpDone: make(chan struct{}),
	}
	go s.pump()
	return s
}

// Handle returns the session's handle.
func (s *Session) Handle() int64 { return s.handle }

// EngineID returns the engine driving this session.
func (s *Session) EngineID() string { return s.engineID }

// Source returns the media source this session was created with.
func (s *Session) Source() types.MediaSource { return s.source }

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// DurationMs returns the media duration, 0 until initialized.
func (s *Session) DurationMs() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.durationMs
}

// Dimensions returns the rotation-normalized video dimensions.
func (s *Session) Dimensions() (width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// Volume returns the current clamped volume.
func (s *Session) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// Events returns the session's normalized event stream. The channel closes
// when the session is disposed.
func (s *Session) Events() <-chan types.VideoEvent {
	return s.out
}

// pump normalizes raw player events until the player's channel closes.
func (s *Session) pump() {
	defer close(s.pumpDone)
	for event := range s.player.Events() {
		s.handleRawEvent(event)
	}
}

// tryEmit delivers an event only if the stream has room right now. Control
// operations emit advisory snapshots through it so that a slow consumer, or
// a stream nobody has opened yet, cannot stall a command.
func (s *Session) tryEmit(event types.VideoEvent) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.out <- event:
		return true
	default:
		return false
	}
}

// emit delivers a normalized event unless disposal has begun.
func (s *Session) emit(event types.VideoEvent) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.out <- event:
	case <-s.done:
	}
}

// guard rejects operations on failed sessions. Disposed sessions never reach
// here because the registry removes them first.
func (s *Session) guard() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return errors.NewNotFoundError("session", s.handle)
	}
	if s.failure != nil {
		return s.failure
	}
	return nil
}

// Play starts or resumes playback. A no-op when already playing.
func (s *Session) Play(ctx context.Context) error {
	if err := s.guard(); err != nil {
		return err
	}
	if err := s.player.Play(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	switch s.state {
	case StateReady, StatePaused, StateCompleted:
		s.state = StatePlaying
		// Replaying after end-of-stream re-arms the completed notification.
		s.norm.completed = false
	}
	s.mu.Unlock()
	return nil
}

// Pause pauses playback. A no-op when already paused.
func (s *Session) Pause(ctx context.Context) error {
	if err := s.guard(); err != nil {
		return err
	}
	if err := s.player.Pause(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	if s.state == StatePlaying {
		s.state = StatePaused
	}
	s.mu.Unlock()
	return nil
}

// SeekTo seeks to a position, clamped to [0, duration].
func (s *Session) SeekTo(ctx context.Context, positionMs int64) error {
	if err := s.guard(); err != nil {
		return err
	}

	s.mu.Lock()
	if positionMs < 0 {
		positionMs = 0
	}
	if s.durationMs > 0 && positionMs > s.durationMs {
		positionMs = s.durationMs
	}
	s.norm.completed = false
	s.mu.Unlock()

	return s.player.SeekTo(ctx, positionMs)
}

// SetLooping toggles looped playback.
func (s *Session) SetLooping(ctx context.Context, looping bool) error {
	if err := s.guard(); err != nil {
		return err
	}
	if err := s.player.SetLooping(ctx, looping); err != nil {
		return err
	}

	s.mu.Lock()
	s.opts.Looping = looping
	s.mu.Unlock()
	return nil
}

// SetVolume sets the volume, clamping out-of-range values into [0, 1].
func (s *Session) SetVolume(ctx context.Context, volume float64) error {
	if err := s.guard(); err != nil {
		return err
	}

	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}

	if err := s.player.SetVolume(ctx, volume); err != nil {
		return err
	}

	s.mu.Lock()
	s.volume = volume
	s.mu.Unlock()
	return nil
}

// SetPlaybackSpeed sets the playback rate. Speed must be positive.
func (s *Session) SetPlaybackSpeed(ctx context.Context, speed float64) error {
	if err := s.guard(); err != nil {
		return err
	}
	if speed <= 0 {
		return errors.NewValidationError(fmt.Sprintf("playback speed must be positive, got %v", speed), "speed")
	}

	if err := s.player.SetSpeed(ctx, speed); err != nil {
		return err
	}

	s.mu.Lock()
	s.speed = speed
	s.mu.Unlock()
	return nil
}

// Position returns the current playback position. Polling position doubles
// as the UI's buffering refresh, so a bufferingUpdate is emitted as a side
// effect.
func (s *Session) Position(ctx context.Context) (int64, error) {
	if err := s.guard(); err != nil {
		return 0, err
	}

	positionMs, err := s.player.Position(ctx)
	if err != nil {
		return 0, err
	}

	if err := s.SendBufferingUpdate(ctx); err != nil {
		s.logger.Debug("buffering update failed during position poll", "error", err)
	}

	return positionMs, nil
}

// SendBufferingUpdate emits a snapshot of the currently buffered ranges.
// The snapshot is advisory: if the event stream is full it is dropped
// rather than blocking the caller.
func (s *Session) SendBufferingUpdate(ctx context.Context) error {
	if err := s.guard(); err != nil {
		return err
	}

	ranges, err := s.player.BufferedRanges(ctx)
	if err != nil {
		return err
	}

	if !s.tryEmit(types.VideoEvent{
		Type:     types.VideoEventBufferingUpdate,
		Buffered: sanitizeRanges(ranges),
	}) {
		s.logger.Debug("buffering snapshot dropped, event stream full")
	}
	return nil
}

// setNotify installs the registry's state-transition callback. It fires for
// terminal transitions that happen asynchronously (completion, native
// failure) so the bus sees them without polling.
func (s *Session) setNotify(notify func(state SessionState, detail string)) {
	s.mu.Lock()
	s.notify = notify
	s.mu.Unlock()
}

// setAnalyticsDetach installs the detach hook for the current analytics
// attachment and returns the previous hook, if any.
func (s *Session) setAnalyticsDetach(detach func(ctx context.Context) error) func(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.analyticsDetach
	s.analyticsDetach = detach
	return prev
}

// Dispose tears the session down: the event barrier drops further emissions,
// analytics detaches before the player is released, and the event stream
// closes once the pump has drained. Idempotent.
func (s *Session) Dispose(ctx context.Context) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil
	}
	s.disposed = true
	s.state = StateDisposed
	detach := s.analyticsDetach
	s.analyticsDetach = nil
	s.mu.Unlock()

	// Barrier: from here on no event may reach the stream.
	close(s.done)

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.player.Pause(stopCtx); err != nil {
		s.logger.Debug("pause during dispose failed", "error", err)
	}

	if detach != nil {
		if err := detach(stopCtx); err != nil {
			s.logger.Warn("analytics detach failed during dispose", "error", err)
		}
	}

	err := s.player.Close(stopCtx)

	select {
	case <-s.pumpDone:
	case <-stopCtx.Done():
		s.logger.Warn("player event stream did not close in time")
	}
	close(s.out)

	return err
}
