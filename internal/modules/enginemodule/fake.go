package enginemodule

import (
	"context"
	"sync"

	"github.com/mantonx/playerd/internal/errors"
	"github.com/mantonx/playerd/internal/types"
)

// FakeEngine is a scriptable in-process engine. It backs the "fake" manifest
// type for development setups without a media player installed, and gives
// tests full control over the raw event stream.
type FakeEngine struct {
	id   string
	info types.EngineInfo
	caps types.Capabilities

	mu      sync.Mutex
	players []*FakePlayer

	// OpenErr, when set, makes every Open call fail with it
	OpenErr error
}

// NewFakeEngine creates a fake engine with full capabilities.
func NewFakeEngine(id string) *FakeEngine {
	return &FakeEngine{
		id: id,
		info: types.EngineInfo{
			ID:              id,
			Name:            "Fake Engine",
			Version:         "0.0.0",
			ProtocolVersion: SupportedProtocolVersion,
		},
		caps: types.Capabilities{
			PlaybackSpeed: true,
			HTTPHeaders:   true,
			ContentURI:    true,
			FormatHints:   true,
		},
	}
}

// newFakeEngineFromManifest builds a fake engine configured by its manifest.
func newFakeEngineFromManifest(manifest *Manifest) *FakeEngine {
	engine := NewFakeEngine(manifest.ID)
	engine.info = manifest.Info()
	engine.caps = manifest.Capabilities
	return engine
}

func (e *FakeEngine) ID() string                      { return e.id }
func (e *FakeEngine) Info() types.EngineInfo          { return e.info }
func (e *FakeEngine) Capabilities() types.Capabilities { return e.caps }

// SetCapabilities overrides the advertised capability set.
func (e *FakeEngine) SetCapabilities(caps types.Capabilities) {
	e.caps = caps
}

func (e *FakeEngine) Open(ctx context.Context, source types.MediaSource, opts types.SessionOptions) (types.Player, error) {
	if e.OpenErr != nil {
		return nil, e.OpenErr
	}

	player := &FakePlayer{
		engineID: e.id,
		caps:     e.caps,
		source:   source,
		opts:     opts,
		events:   make(chan types.PlayerEvent, 32),
	}

	e.mu.Lock()
	e.players = append(e.players, player)
	e.mu.Unlock()

	return player, nil
}

func (e *FakeEngine) Shutdown(ctx context.Context) error {
	return nil
}

// Players returns every player this engine has opened, including closed ones.
func (e *FakeEngine) Players() []*FakePlayer {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*FakePlayer, len(e.players))
	copy(out, e.players)
	return out
}

// LastPlayer returns the most recently opened player, or nil.
func (e *FakeEngine) LastPlayer() *FakePlayer {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.players) == 0 {
		return nil
	}
	return e.players[len(e.players)-1]
}

// FakePlayer records every control call and lets callers inject raw events.
type FakePlayer struct {
	engineID string
	caps     types.Capabilities
	source   types.MediaSource
	opts     types.SessionOptions

	mu       sync.Mutex
	closed   bool
	playing  bool
	looping  bool
	volume   float64
	speed    float64
	position int64
	buffered []types.DurationRange
	calls    []string

	events chan types.PlayerEvent
}

// Emit injects a raw event, as the native callback thread would. No-op after
// Close.
func (p *FakePlayer) Emit(event types.PlayerEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.events <- event
}

// EmitReady is shorthand for the metadata-ready event.
func (p *FakePlayer) EmitReady(durationMs int64, width, height, rotation int) {
	p.Emit(types.PlayerEvent{
		Kind:       types.PlayerEventReady,
		DurationMs: durationMs,
		Width:      width,
		Height:     height,
		Rotation:   rotation,
	})
}

// EmitCompleted is shorthand for the end-of-stream event.
func (p *FakePlayer) EmitCompleted() {
	p.Emit(types.PlayerEvent{Kind: types.PlayerEventCompleted})
}

func (p *FakePlayer) record(call string) {
	p.calls = append(p.calls, call)
}

// Calls returns the control calls made so far, in order.
func (p *FakePlayer) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.calls))
	copy(out, p.calls)
	return out
}

// Source returns the media source this player was opened with.
func (p *FakePlayer) Source() types.MediaSource { return p.source }

// Options returns the session options this player was opened with.
func (p *FakePlayer) Options() types.SessionOptions { return p.opts }

// SetPosition scripts the value Position reports.
func (p *FakePlayer) SetPosition(positionMs int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = positionMs
}

// SetBuffered scripts the ranges BufferedRanges reports.
func (p *FakePlayer) SetBuffered(ranges []types.DurationRange) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buffered = ranges
}

// Playing reports the last play/pause state.
func (p *FakePlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Volume reports the last volume set.
func (p *FakePlayer) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// Speed reports the last speed set.
func (p *FakePlayer) Speed() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.speed
}

// Closed reports whether Close has been called.
func (p *FakePlayer) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *FakePlayer) Play(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("play")
	p.playing = true
	return nil
}

func (p *FakePlayer) Pause(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("pause")
	p.playing = false
	return nil
}

func (p *FakePlayer) SeekTo(ctx context.Context, positionMs int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("seek")
	p.position = positionMs
	return nil
}

func (p *FakePlayer) SetLooping(ctx context.Context, looping bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("set_looping")
	p.looping = looping
	return nil
}

func (p *FakePlayer) SetVolume(ctx context.Context, volume float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("set_volume")
	p.volume = volume
	return nil
}

func (p *FakePlayer) SetSpeed(ctx context.Context, speed float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("set_speed")
	if !p.caps.PlaybackSpeed {
		return errors.NewUnimplementedError(p.engineID, "set playback speed")
	}
	p.speed = speed
	return nil
}

func (p *FakePlayer) Position(ctx context.Context) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position, nil
}

func (p *FakePlayer) BufferedRanges(ctx context.Context) ([]types.DurationRange, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffered, nil
}

func (p *FakePlayer) Events() <-chan types.PlayerEvent {
	return p.events
}

func (p *FakePlayer) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.record("close")
	p.closed = true
	close(p.events)
	return nil
}
