package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/mantonx/playerd/internal/errors"
	"github.com/mantonx/playerd/internal/services"
	"github.com/mantonx/playerd/internal/types"
)

// CreateRequest is the payload for creating a playback session
type CreateRequest struct {
	Source   types.MediaSource     `json:"source"`
	EngineID string                `json:"engine_id,omitempty"`
	Options  *types.SessionOptions `json:"options,omitempty"`
}

// ControlFacade is the single entry point the transport drives. Every
// operation routes by handle to the registry; failures surface synchronously
// to the caller of that operation with no retries or queuing.
type ControlFacade struct {
	registry *SessionRegistry
	engines  services.EngineService
	assets   services.AssetService
	binder   *AnalyticsBinder
	logger   hclog.Logger

	mu       sync.Mutex
	defaults types.SessionOptions
}

// NewControlFacade creates the facade.
func NewControlFacade(registry *SessionRegistry, engines services.EngineService, assets services.AssetService, binder *AnalyticsBinder, logger hclog.Logger) *ControlFacade {
	return &ControlFacade{
		registry: registry,
		engines:  engines,
		assets:   assets,
		binder:   binder,
		logger:   logger.Named("facade"),
	}
}

// Initialize disposes every live session. Clients call it on full restart so
// a fresh run never inherits stale sessions. A no-op with none live.
func (f *ControlFacade) Initialize(ctx context.Context) error {
	return f.registry.DisposeAll(ctx)
}

// Create validates the source, resolves asset names to paths, picks the
// engine, and registers a new session. Returns the session's handle.
func (f *ControlFacade) Create(ctx context.Context, req CreateRequest) (int64, error) {
	source := req.Source
	if err := source.Validate(); err != nil {
		return 0, errors.NewValidationError(err.Error(), "source")
	}

	if source.Type == types.SourceAsset {
		path, err := f.assets.ResolveAsset(ctx, source.AssetName, source.AssetPackage)
		if err != nil {
			// A bad asset name is bad input to create, not a missing resource.
			if errors.IsNotFound(err) {
				return 0, errors.NewValidationError(
					fmt.Sprintf("unknown asset %q", source.AssetName), "source.asset")
			}
			return 0, err
		}
		// Engines open plain files; the asset identity stays on the session.
		source.URI = path
	}

	var engine types.Engine
	var err error
	if req.EngineID != "" {
		engine, err = f.engines.GetEngine(req.EngineID)
	} else {
		engine, err = f.engines.DefaultEngine()
	}
	if err != nil {
		return 0, err
	}

	opts := f.defaultOptions()
	if req.Options != nil {
		opts = *req.Options
	}

	session, err := f.registry.Create(ctx, engine, source, opts)
	if err != nil {
		return 0, err
	}
	return session.Handle(), nil
}

// SetupMux attaches a Mux analytics configuration to a session.
func (f *ControlFacade) SetupMux(ctx context.Context, handle int64, cfg types.MuxConfig) error {
	session, err := f.registry.Get(handle)
	if err != nil {
		return err
	}
	_, err = f.binder.Attach(ctx, session, cfg)
	return err
}

// Dispose tears down a session. Tolerates already-disposed handles.
func (f *ControlFacade) Dispose(ctx context.Context, handle int64) error {
	return f.registry.Dispose(ctx, handle)
}

// Play starts or resumes playback.
func (f *ControlFacade) Play(ctx context.Context, handle int64) error {
	session, err := f.registry.Get(handle)
	if err != nil {
		return err
	}
	return session.Play(ctx)
}

// Pause pauses playback.
func (f *ControlFacade) Pause(ctx context.Context, handle int64) error {
	session, err := f.registry.Get(handle)
	if err != nil {
		return err
	}
	return session.Pause(ctx)
}

// SeekTo seeks to a position, clamped to the media's valid range.
func (f *ControlFacade) SeekTo(ctx context.Context, handle int64, positionMs int64) error {
	session, err := f.registry.Get(handle)
	if err != nil {
		return err
	}
	return session.SeekTo(ctx, positionMs)
}

// SetLooping toggles looped playback.
func (f *ControlFacade) SetLooping(ctx context.Context, handle int64, looping bool) error {
	session, err := f.registry.Get(handle)
	if err != nil {
		return err
	}
	return session.SetLooping(ctx, looping)
}

// SetVolume sets the volume, clamped into [0, 1].
func (f *ControlFacade) SetVolume(ctx context.Context, handle int64, volume float64) error {
	session, err := f.registry.Get(handle)
	if err != nil {
		return err
	}
	return session.SetVolume(ctx, volume)
}

// SetPlaybackSpeed sets the playback rate.
func (f *ControlFacade) SetPlaybackSpeed(ctx context.Context, handle int64, speed float64) error {
	session, err := f.registry.Get(handle)
	if err != nil {
		return err
	}
	return session.SetPlaybackSpeed(ctx, speed)
}

// GetPosition returns the playback position and emits a bufferingUpdate on
// the session's stream as a side effect.
func (f *ControlFacade) GetPosition(ctx context.Context, handle int64) (int64, error) {
	session, err := f.registry.Get(handle)
	if err != nil {
		return 0, err
	}
	return session.Position(ctx)
}

// SendBufferingUpdate forces a buffered-ranges snapshot onto the stream.
func (f *ControlFacade) SendBufferingUpdate(ctx context.Context, handle int64) error {
	session, err := f.registry.Get(handle)
	if err != nil {
		return err
	}
	return session.SendBufferingUpdate(ctx)
}

// SetMixWithOthers sets the process-wide audio mixing default applied to
// sessions created afterwards. Deliberately not per-handle.
func (f *ControlFacade) SetMixWithOthers(mix bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.defaults.MixWithOthers = mix
}

// EventsFor returns the normalized event stream for a handle.
func (f *ControlFacade) EventsFor(handle int64) (<-chan types.VideoEvent, error) {
	session, err := f.registry.Get(handle)
	if err != nil {
		return nil, err
	}
	return session.Events(), nil
}

// GetSession resolves a handle for callers that need session details.
func (f *ControlFacade) GetSession(handle int64) (*Session, error) {
	return f.registry.Get(handle)
}

// ActiveHandles returns the handles of all live sessions.
func (f *ControlFacade) ActiveHandles() []int64 {
	return f.registry.ActiveHandles()
}

// SessionCount returns the number of live sessions.
func (f *ControlFacade) SessionCount() int {
	return f.registry.SessionCount()
}

// DisposeAll tears down every live session.
func (f *ControlFacade) DisposeAll(ctx context.Context) error {
	return f.registry.DisposeAll(ctx)
}

func (f *ControlFacade) defaultOptions() types.SessionOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.defaults
}
