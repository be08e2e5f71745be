package enginemodule

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/mantonx/playerd/internal/config"
	"github.com/mantonx/playerd/internal/errors"
	"github.com/mantonx/playerd/internal/types"
	"github.com/mantonx/playerd/internal/utils"
)

// MPVEngine drives mpv processes over their JSON IPC socket, one process per
// player.
type MPVEngine struct {
	manifest *Manifest
	cfg      config.EngineConfig
	logger   hclog.Logger
}

// NewMPVEngine creates an mpv-backed engine from its manifest.
func NewMPVEngine(manifest *Manifest, cfg config.EngineConfig, logger hclog.Logger) *MPVEngine {
	return &MPVEngine{
		manifest: manifest,
		cfg:      cfg,
		logger:   logger.Named("mpv").With("engine_id", manifest.ID),
	}
}

func (e *MPVEngine) ID() string {
	return e.manifest.ID
}

func (e *MPVEngine) Info() types.EngineInfo {
	return e.manifest.Info()
}

func (e *MPVEngine) Capabilities() types.Capabilities {
	return e.manifest.Capabilities
}

// Open starts an mpv process for the source, paused, and returns once the IPC
// connection is up. Metadata readiness is reported asynchronously on the
// player's event channel.
func (e *MPVEngine) Open(ctx context.Context, source types.MediaSource, opts types.SessionOptions) (types.Player, error) {
	uri, err := e.resolveURI(source)
	if err != nil {
		return nil, err
	}

	playerID := utils.GenerateShortUUID()
	if err := ensureSocketDir(e.cfg.SocketDir); err != nil {
		return nil, errors.NewPlaybackError("failed to create engine socket directory", err)
	}
	socketPath := socketPathFor(e.cfg.SocketDir, playerID)

	binary := e.manifest.Binary
	if binary == "" {
		binary = "mpv"
	}

	args := []string{
		"--no-terminal",
		"--no-video-osd",
		"--force-window=no",
		"--pause",
		"--keep-open=yes",
		"--idle=no",
		"--input-ipc-server=" + socketPath,
	}
	if opts.Looping {
		args = append(args, "--loop-file=inf")
	}
	if opts.MixWithOthers {
		args = append(args, "--audio-exclusive=no")
	}
	if len(source.HTTPHeaders) > 0 {
		if !e.manifest.Capabilities.HTTPHeaders {
			return nil, errors.NewUnimplementedError(e.manifest.ID, "http headers")
		}
		args = append(args, "--http-header-fields="+formatHeaderFields(source.HTTPHeaders))
	}
	if source.FormatHint != types.FormatNone {
		if !e.manifest.Capabilities.FormatHints {
			return nil, errors.NewUnimplementedError(e.manifest.ID, "format hints")
		}
		if demuxer := lavfFormatFor(source.FormatHint); demuxer != "" {
			args = append(args, "--demuxer-lavf-format="+demuxer)
		}
	}
	args = append(args, e.manifest.ExtraArgs...)
	args = append(args, uri)

	cmd := exec.Command(binary, args...)
	setupPlayerProcess(cmd)

	if err := cmd.Start(); err != nil {
		return nil, errors.NewPlaybackError(fmt.Sprintf("failed to start mpv: %v", err), err)
	}

	logger := e.logger.With("player_id", playerID)
	ipc := newIPCClient(socketPath, logger)

	connectCtx, cancel := context.WithTimeout(ctx, e.cfg.ConnectTimeout)
	defer cancel()

	if err := ipc.waitForConnection(connectCtx, e.cfg.ConnectAttempts, e.cfg.ConnectRetryWait); err != nil {
		_ = cmd.Process.Kill()
		return nil, errors.NewPlaybackError("mpv did not accept the IPC connection", err)
	}

	player := &mpvPlayer{
		engineID:   e.manifest.ID,
		caps:       e.manifest.Capabilities,
		ipc:        ipc,
		cmd:        cmd,
		socketPath: socketPath,
		logger:     logger,
		events:     make(chan types.PlayerEvent, 32),
	}

	if err := player.observe(ctx); err != nil {
		_ = player.Close(ctx)
		return nil, errors.NewPlaybackError("failed to observe mpv properties", err)
	}

	go player.translateEvents()
	return player, nil
}

// Shutdown has nothing to tear down at the engine level; players own their
// processes.
func (e *MPVEngine) Shutdown(ctx context.Context) error {
	return nil
}

// resolveURI maps a validated media source to something mpv can open.
func (e *MPVEngine) resolveURI(source types.MediaSource) (string, error) {
	switch source.Type {
	case types.SourceNetwork:
		return source.URI, nil
	case types.SourceFile:
		path := strings.TrimPrefix(source.URI, "file://")
		if _, err := os.Stat(path); err != nil {
			return "", errors.NewValidationError(fmt.Sprintf("file source not readable: %v", err), "uri")
		}
		return path, nil
	case types.SourceContentURI:
		if !e.manifest.Capabilities.ContentURI {
			return "", errors.NewUnimplementedError(e.manifest.ID, "content uri sources")
		}
		return source.URI, nil
	case types.SourceAsset:
		// Asset names are resolved to file paths before a source reaches an
		// engine; only the URI matters here.
		if source.URI == "" {
			return "", errors.NewValidationError("asset source reached engine unresolved", "asset")
		}
		if _, err := os.Stat(source.URI); err != nil {
			return "", errors.NewValidationError(fmt.Sprintf("asset file not readable: %v", err), "asset")
		}
		return source.URI, nil
	default:
		return "", errors.NewValidationError(fmt.Sprintf("unknown source type: %s", source.Type), "type")
	}
}

// lavfFormatFor maps a format hint onto the libavformat demuxer name mpv
// should force. Smooth streaming and "other" have no dedicated demuxer, so
// those hints leave container probing to mpv.
func lavfFormatFor(hint types.FormatHint) string {
	switch hint {
	case types.FormatHLS:
		return "hls"
	case types.FormatDash:
		return "dash"
	default:
		return ""
	}
}

// formatHeaderFields renders HTTP headers in mpv's comma-separated
// Field: value list format, sorted for deterministic command lines.
func formatHeaderFields(headers map[string]string) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]string, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, fmt.Sprintf("%s: %s", k, headers[k]))
	}
	return strings.Join(fields, ",")
}

// mpv observe_property subscription IDs
const (
	propPausedForCache = 1
	propDemuxerCache   = 2
)
