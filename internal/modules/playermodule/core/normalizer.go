package core

import (
	"sort"

	"github.com/mantonx/playerd/internal/errors"
	"github.com/mantonx/playerd/internal/types"
)

// normalizerState tracks what has already been reported so the stream honors
// its once/edge guarantees.
type normalizerState struct {
	initialized bool
	completed   bool
	buffering   bool
}

// handleRawEvent maps one raw player event onto the normalized stream. Events
// are processed in arrival order; nothing is reordered or dropped except
// duplicate buffering edges and repeat ready/completed signals.
func (s *Session) handleRawEvent(event types.PlayerEvent) {
	switch event.Kind {
	case types.PlayerEventReady:
		s.mu.Lock()
		if s.norm.initialized {
			s.mu.Unlock()
			return
		}
		s.norm.initialized = true

		width, height, correction := normalizeRotation(event.Width, event.Height, event.Rotation)
		s.durationMs = event.DurationMs
		s.width = width
		s.height = height
		if s.state == StateInitializing {
			s.state = StateReady
		}
		s.mu.Unlock()

		s.emit(types.VideoEvent{
			Type:               types.VideoEventInitialized,
			DurationMs:         event.DurationMs,
			Width:              width,
			Height:             height,
			RotationCorrection: correction,
		})

	case types.PlayerEventCompleted:
		s.mu.Lock()
		if s.norm.completed {
			s.mu.Unlock()
			return
		}
		s.norm.completed = true
		s.state = StateCompleted
		notify := s.notify
		s.mu.Unlock()

		s.emit(types.VideoEvent{Type: types.VideoEventCompleted})
		if notify != nil {
			notify(StateCompleted, "")
		}

	case types.PlayerEventBufferingChange:
		s.mu.Lock()
		if s.norm.buffering == event.Buffering {
			s.mu.Unlock()
			return
		}
		s.norm.buffering = event.Buffering
		s.mu.Unlock()

		if event.Buffering {
			s.emit(types.VideoEvent{Type: types.VideoEventBufferingStart})
		} else {
			s.emit(types.VideoEvent{Type: types.VideoEventBufferingEnd})
		}

	case types.PlayerEventBufferedRanges:
		s.emit(types.VideoEvent{
			Type:     types.VideoEventBufferingUpdate,
			Buffered: sanitizeRanges(event.Buffered),
		})

	case types.PlayerEventError:
		// An asynchronous native error outside any in-flight operation: the
		// session is poisoned so later operations fail clearly, and the
		// stream carries an unknown event rather than going silent.
		s.mu.Lock()
		s.failure = errors.NewPlaybackError(event.Message, nil)
		s.state = StateFailed
		notify := s.notify
		s.mu.Unlock()

		if notify != nil {
			notify(StateFailed, event.Message)
		}
		s.emit(types.VideoEvent{
			Type:   types.VideoEventUnknown,
			Detail: event.Message,
		})

	default:
		s.emit(types.VideoEvent{
			Type:   types.VideoEventUnknown,
			Detail: event.Message,
		})
	}
}

// normalizeRotation adjusts reported dimensions for rotation metadata. A
// quarter-turn swaps width and height and needs no residual correction at
// render time; a half-turn keeps dimensions but must be corrected by the
// renderer.
func normalizeRotation(width, height, rotation int) (int, int, int) {
	switch ((rotation % 360) + 360) % 360 {
	case 90, 270:
		return height, width, 0
	case 180:
		return width, height, 180
	default:
		return width, height, 0
	}
}

// sanitizeRanges enforces the buffered-range invariants: non-negative
// offsets, start <= end per range, ranges ordered by start ascending.
func sanitizeRanges(in []types.DurationRange) []types.DurationRange {
	out := make([]types.DurationRange, 0, len(in))
	for _, r := range in {
		if r.StartMs < 0 {
			r.StartMs = 0
		}
		if r.EndMs < r.StartMs {
			r.EndMs = r.StartMs
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartMs < out[j].StartMs
	})
	return out
}
