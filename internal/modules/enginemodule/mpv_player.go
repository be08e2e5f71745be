package enginemodule

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/mantonx/playerd/internal/errors"
	"github.com/mantonx/playerd/internal/types"
)

// mpvPlayer is one mpv process plus its IPC connection
type mpvPlayer struct {
	engineID   string
	caps       types.Capabilities
	ipc        *ipcClient
	cmd        *exec.Cmd
	socketPath string
	logger     hclog.Logger
	events     chan types.PlayerEvent
}

// observe subscribes to the properties the event translation needs.
func (p *mpvPlayer) observe(ctx context.Context) error {
	if err := p.ipc.observeProperty(ctx, propPausedForCache, "paused-for-cache"); err != nil {
		return err
	}
	return p.ipc.observeProperty(ctx, propDemuxerCache, "demuxer-cache-state")
}

func (p *mpvPlayer) Play(ctx context.Context) error {
	return p.wrapNative(p.ipc.setProperty(ctx, "pause", false))
}

func (p *mpvPlayer) Pause(ctx context.Context) error {
	return p.wrapNative(p.ipc.setProperty(ctx, "pause", true))
}

func (p *mpvPlayer) SeekTo(ctx context.Context, positionMs int64) error {
	_, err := p.ipc.command(ctx, "seek", float64(positionMs)/1000.0, "absolute")
	return p.wrapNative(err)
}

func (p *mpvPlayer) SetLooping(ctx context.Context, looping bool) error {
	value := "no"
	if looping {
		value = "inf"
	}
	return p.wrapNative(p.ipc.setProperty(ctx, "loop-file", value))
}

func (p *mpvPlayer) SetVolume(ctx context.Context, volume float64) error {
	// mpv volume runs 0-100.
	return p.wrapNative(p.ipc.setProperty(ctx, "volume", volume*100))
}

func (p *mpvPlayer) SetSpeed(ctx context.Context, speed float64) error {
	if !p.caps.PlaybackSpeed {
		return errors.NewUnimplementedError(p.engineID, "set playback speed")
	}
	return p.wrapNative(p.ipc.setProperty(ctx, "speed", speed))
}

func (p *mpvPlayer) Position(ctx context.Context) (int64, error) {
	var seconds float64
	if err := p.ipc.getProperty(ctx, "playback-time", &seconds); err != nil {
		return 0, p.wrapNative(err)
	}
	return int64(seconds * 1000), nil
}

func (p *mpvPlayer) BufferedRanges(ctx context.Context) ([]types.DurationRange, error) {
	var state demuxerCacheState
	if err := p.ipc.getProperty(ctx, "demuxer-cache-state", &state); err != nil {
		return nil, p.wrapNative(err)
	}
	return state.ranges(), nil
}

func (p *mpvPlayer) Events() <-chan types.PlayerEvent {
	return p.events
}

// Close quits mpv, tears down the IPC connection, reaps the process, and
// removes the socket. The event channel closes once the IPC read loop ends.
func (p *mpvPlayer) Close(ctx context.Context) error {
	quitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_, _ = p.ipc.command(quitCtx, "quit")

	_ = p.ipc.close()

	if p.cmd != nil && p.cmd.Process != nil {
		done := make(chan error, 1)
		go func() { done <- p.cmd.Wait() }()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			_ = p.cmd.Process.Kill()
			<-done
		}
	}

	if socketIsFile {
		if err := os.Remove(p.socketPath); err != nil && !os.IsNotExist(err) {
			p.logger.Warn("failed to remove mpv socket", "path", p.socketPath, "error", err)
		}
	}

	return nil
}

func (p *mpvPlayer) wrapNative(err error) error {
	if err == nil {
		return nil
	}
	if errors.IsUnimplemented(err) {
		return err
	}
	return errors.NewPlaybackError(fmt.Sprintf("mpv command failed: %v", err), err)
}

// routineEvents are mpv notifications that carry no information the session
// layer cares about. They are dropped rather than surfaced as unknown.
var routineEvents = map[string]bool{
	"playback-restart": true,
	"seek":             true,
	"pause":            true,
	"unpause":          true,
	"audio-reconfig":   true,
	"video-reconfig":   true,
	"tracks-changed":   true,
	"metadata-update":  true,
	"start-file":       true,
	"idle":             true,
}

// translateEvents turns raw mpv notifications into PlayerEvents. Runs until
// the IPC connection closes, then closes the outbound channel.
func (p *mpvPlayer) translateEvents() {
	defer close(p.events)

	for msg := range p.ipc.eventCh() {
		switch msg.Event {
		case "file-loaded":
			p.emitReady()

		case "end-file":
			switch msg.Reason {
			case "eof":
				p.events <- types.PlayerEvent{Kind: types.PlayerEventCompleted}
			case "error":
				p.events <- types.PlayerEvent{
					Kind:    types.PlayerEventError,
					Message: "mpv playback failed",
				}
			default:
				// quit/stop/redirect arrive during teardown, nothing to do
			}

		case "property-change":
			p.translatePropertyChange(msg)

		case "log-message", "client-message":
			// noise

		default:
			if msg.Event != "" && !routineEvents[msg.Event] {
				p.events <- types.PlayerEvent{
					Kind:    types.PlayerEventOther,
					Message: msg.Event,
				}
			}
		}
	}
}

// emitReady queries the loaded file's metadata and emits the ready event.
func (p *mpvPlayer) emitReady() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var durationSec float64
	if err := p.ipc.getProperty(ctx, "duration", &durationSec); err != nil {
		p.logger.Warn("failed to read duration after file-loaded", "error", err)
	}

	var params struct {
		W      int `json:"w"`
		H      int `json:"h"`
		Rotate int `json:"rotate"`
	}
	if err := p.ipc.getProperty(ctx, "video-params", &params); err != nil {
		p.logger.Debug("no video-params available", "error", err)
	}

	p.events <- types.PlayerEvent{
		Kind:       types.PlayerEventReady,
		DurationMs: int64(durationSec * 1000),
		Width:      params.W,
		Height:     params.H,
		Rotation:   params.Rotate,
	}
}

func (p *mpvPlayer) translatePropertyChange(msg ipcMessage) {
	switch msg.Name {
	case "paused-for-cache":
		var buffering bool
		if err := json.Unmarshal(msg.Data, &buffering); err != nil {
			return
		}
		p.events <- types.PlayerEvent{
			Kind:      types.PlayerEventBufferingChange,
			Buffering: buffering,
		}

	case "demuxer-cache-state":
		var state demuxerCacheState
		if len(msg.Data) == 0 {
			return
		}
		if err := json.Unmarshal(msg.Data, &state); err != nil {
			return
		}
		p.events <- types.PlayerEvent{
			Kind:     types.PlayerEventBufferedRanges,
			Buffered: state.ranges(),
		}
	}
}

// demuxerCacheState is the slice of mpv's demuxer-cache-state property the
// buffering reports need.
type demuxerCacheState struct {
	SeekableRanges []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"seekable-ranges"`
}

// ranges converts to millisecond ranges, ordered by start ascending.
func (s demuxerCacheState) ranges() []types.DurationRange {
	out := make([]types.DurationRange, 0, len(s.SeekableRanges))
	for _, r := range s.SeekableRanges {
		start := int64(r.Start * 1000)
		end := int64(r.End * 1000)
		if start < 0 {
			start = 0
		}
		if end < start {
			end = start
		}
		out = append(out, types.DurationRange{StartMs: start, EndMs: end})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartMs < out[j].StartMs
	})
	return out
}
