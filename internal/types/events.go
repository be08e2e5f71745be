package types

// VideoEventType enumerates the normalized notifications a session emits on
// its per-handle event stream.
type VideoEventType string

const (
	VideoEventInitialized     VideoEventType = "initialized"
	VideoEventCompleted       VideoEventType = "completed"
	VideoEventBufferingUpdate VideoEventType = "bufferingUpdate"
	VideoEventBufferingStart  VideoEventType = "bufferingStart"
	VideoEventBufferingEnd    VideoEventType = "bufferingEnd"
	VideoEventUnknown         VideoEventType = "unknown"
)

// VideoEvent is the normalized event union. Only the fields relevant to the
// event type are populated:
//
//	initialized     → DurationMs, Width, Height, RotationCorrection
//	bufferingUpdate → Buffered
//	unknown         → Detail (best-effort description of the native signal)
type VideoEvent struct {
	Type               VideoEventType  `json:"event"`
	DurationMs         int64           `json:"duration,omitempty"`
	Width              int             `json:"width,omitempty"`
	Height             int             `json:"height,omitempty"`
	RotationCorrection int             `json:"rotation_correction,omitempty"`
	Buffered           []DurationRange `json:"buffered,omitempty"`
	Detail             string          `json:"detail,omitempty"`
}
