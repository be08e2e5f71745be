package types

import "context"

// EngineInfo describes a discovered playback engine
type EngineInfo struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Version         string `json:"version"`
	ProtocolVersion int    `json:"protocol_version"`
	Binary          string `json:"binary,omitempty"`
	ManifestPath    string `json:"manifest_path,omitempty"`
	Description     string `json:"description,omitempty"`
}

// Capabilities advertises which optional operations an engine supports.
// Operations outside the capability set still exist on every Player; they
// report an unimplemented error instead of crashing, so callers can treat
// missing capabilities as data.
type Capabilities struct {
	PlaybackSpeed bool `json:"playback_speed"`
	HTTPHeaders   bool `json:"http_headers"`
	ContentURI    bool `json:"content_uri"`
	FormatHints   bool `json:"format_hints"`
}

// PlayerEventKind enumerates raw engine-side notifications before
// normalization
type PlayerEventKind string

const (
	PlayerEventReady           PlayerEventKind = "ready"
	PlayerEventCompleted       PlayerEventKind = "completed"
	PlayerEventBufferingChange PlayerEventKind = "buffering_change"
	PlayerEventBufferedRanges  PlayerEventKind = "buffered_ranges"
	PlayerEventError           PlayerEventKind = "error"
	PlayerEventOther           PlayerEventKind = "other"
)

// PlayerEvent is a raw notification from an engine's player. Field use by
// kind mirrors VideoEvent: ready carries duration/dimensions/rotation,
// buffering_change carries Buffering, buffered_ranges carries Buffered,
// error and other carry Message.
type PlayerEvent struct {
	Kind       PlayerEventKind `json:"kind"`
	DurationMs int64           `json:"duration_ms,omitempty"`
	Width      int             `json:"width,omitempty"`
	Height     int             `json:"height,omitempty"`
	Rotation   int             `json:"rotation,omitempty"`
	Buffering  bool            `json:"buffering,omitempty"`
	Buffered   []DurationRange `json:"buffered,omitempty"`
	Message    string          `json:"message,omitempty"`
}

// Player is one live native player instance owned by a playback session.
// Implementations deliver raw notifications on Events until Close, after
// which the channel is closed and no further events may arrive.
type Player interface {
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	SeekTo(ctx context.Context, positionMs int64) error
	SetLooping(ctx context.Context, looping bool) error
	SetVolume(ctx context.Context, volume float64) error
	SetSpeed(ctx context.Context, speed float64) error
	Position(ctx context.Context) (int64, error)
	BufferedRanges(ctx context.Context) ([]DurationRange, error)
	Events() <-chan PlayerEvent
	Close(ctx context.Context) error
}

// Engine creates players for media sources. One engine instance serves many
// concurrent players.
type Engine interface {
	ID() string
	Info() EngineInfo
	Capabilities() Capabilities
	Open(ctx context.Context, source MediaSource, opts SessionOptions) (Player, error)
	Shutdown(ctx context.Context) error
}
