package core

import (
	"context"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mantonx/playerd/internal/errors"
	"github.com/mantonx/playerd/internal/modules/enginemodule"
	"github.com/mantonx/playerd/internal/types"
)

func testRegistry() *SessionRegistry {
	return NewSessionRegistry(nil, nil, hclog.NewNullLogger())
}

func testSource() types.MediaSource {
	return types.MediaSource{
		Type: types.SourceNetwork,
		URI:  "https://example.com/stream.m3u8",
	}
}

// createSession spins up a session on a fresh fake engine and returns the
// pieces tests poke at.
func createSession(t *testing.T) (*SessionRegistry, *Session, *enginemodule.FakePlayer) {
	t.Helper()

	registry := testRegistry()
	engine := enginemodule.NewFakeEngine("fake")

	session, err := registry.Create(context.Background(), engine, testSource(), types.SessionOptions{})
	require.NoError(t, err)

	player := engine.LastPlayer()
	require.NotNil(t, player)

	t.Cleanup(func() {
		registry.DisposeAll(context.Background())
	})
	return registry, session, player
}

func waitEvent(t *testing.T, stream <-chan types.VideoEvent) types.VideoEvent {
	t.Helper()
	select {
	case event, open := <-stream:
		require.True(t, open, "event stream closed unexpectedly")
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return types.VideoEvent{}
	}
}

func assertNoEvent(t *testing.T, stream <-chan types.VideoEvent) {
	t.Helper()
	select {
	case event := <-stream:
		t.Fatalf("unexpected event %q", event.Type)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSessionInitializedEvent(t *testing.T) {
	_, session, player := createSession(t)
	assert.Equal(t, StateInitializing, session.State())

	player.EmitReady(60000, 1920, 1080, 0)

	event := waitEvent(t, session.Events())
	assert.Equal(t, types.VideoEventInitialized, event.Type)
	assert.Equal(t, int64(60000), event.DurationMs)
	assert.Equal(t, 1920, event.Width)
	assert.Equal(t, 1080, event.Height)
	assert.Equal(t, 0, event.RotationCorrection)

	assert.Equal(t, StateReady, session.State())
	assert.Equal(t, int64(60000), session.DurationMs())

	// A duplicate ready signal never produces a second initialized event.
	player.EmitReady(60000, 1920, 1080, 0)
	assertNoEvent(t, session.Events())
}

func TestSessionRotatedDimensions(t *testing.T) {
	_, session, player := createSession(t)

	// Portrait phone recording: the engine reports sensor dimensions with a
	// quarter-turn rotation.
	player.EmitReady(10000, 1080, 1920, 90)

	event := waitEvent(t, session.Events())
	assert.Equal(t, types.VideoEventInitialized, event.Type)
	assert.Equal(t, 1920, event.Width)
	assert.Equal(t, 1080, event.Height)
	assert.Equal(t, 0, event.RotationCorrection)
}

func TestSessionCompletedOnce(t *testing.T) {
	_, session, player := createSession(t)

	player.EmitReady(5000, 640, 480, 0)
	waitEvent(t, session.Events())

	player.EmitCompleted()
	event := waitEvent(t, session.Events())
	assert.Equal(t, types.VideoEventCompleted, event.Type)
	assert.Equal(t, StateCompleted, session.State())

	// Duplicate end-of-stream reports are swallowed.
	player.EmitCompleted()
	assertNoEvent(t, session.Events())

	// Replaying re-arms the notification for the next completion.
	require.NoError(t, session.Play(context.Background()))
	player.EmitCompleted()
	event = waitEvent(t, session.Events())
	assert.Equal(t, types.VideoEventCompleted, event.Type)
}

func TestSessionBufferingEdges(t *testing.T) {
	_, session, player := createSession(t)

	player.Emit(types.PlayerEvent{Kind: types.PlayerEventBufferingChange, Buffering: true})
	event := waitEvent(t, session.Events())
	assert.Equal(t, types.VideoEventBufferingStart, event.Type)

	// Repeating the same state is not an edge.
	player.Emit(types.PlayerEvent{Kind: types.PlayerEventBufferingChange, Buffering: true})
	assertNoEvent(t, session.Events())

	player.Emit(types.PlayerEvent{Kind: types.PlayerEventBufferingChange, Buffering: false})
	event = waitEvent(t, session.Events())
	assert.Equal(t, types.VideoEventBufferingEnd, event.Type)
}

func TestSessionVolumeClamped(t *testing.T) {
	_, session, player := createSession(t)
	ctx := context.Background()

	require.NoError(t, session.SetVolume(ctx, 1.5))
	assert.Equal(t, 1.0, player.Volume())
	assert.Equal(t, 1.0, session.Volume())

	require.NoError(t, session.SetVolume(ctx, -0.25))
	assert.Equal(t, 0.0, player.Volume())

	require.NoError(t, session.SetVolume(ctx, 0.5))
	assert.Equal(t, 0.5, player.Volume())
}

func TestSessionSeekClamped(t *testing.T) {
	_, session, player := createSession(t)
	ctx := context.Background()

	player.EmitReady(60000, 640, 480, 0)
	waitEvent(t, session.Events())

	require.NoError(t, session.SeekTo(ctx, 90000))
	position, err := player.Position(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(60000), position)

	require.NoError(t, session.SeekTo(ctx, -100))
	position, err = player.Position(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), position)
}

func TestSessionSpeedValidation(t *testing.T) {
	_, session, _ := createSession(t)
	ctx := context.Background()

	err := session.SetPlaybackSpeed(ctx, 0)
	require.Error(t, err)
	var pe *errors.PlayerError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, errors.CodeValidation, pe.Code)

	require.NoError(t, session.SetPlaybackSpeed(ctx, 1.5))
}

func TestSessionSpeedUnimplemented(t *testing.T) {
	registry := testRegistry()
	engine := enginemodule.NewFakeEngine("fake")
	engine.SetCapabilities(types.Capabilities{PlaybackSpeed: false})

	session, err := registry.Create(context.Background(), engine, testSource(), types.SessionOptions{})
	require.NoError(t, err)
	defer registry.DisposeAll(context.Background())

	err = session.SetPlaybackSpeed(context.Background(), 2.0)
	require.Error(t, err)
	assert.True(t, errors.IsUnimplemented(err))

	// The capability gap is per-operation; the session stays usable.
	require.NoError(t, session.Play(context.Background()))
}

func TestSessionPositionEmitsBufferingUpdate(t *testing.T) {
	_, session, player := createSession(t)

	player.SetPosition(4200)
	player.SetBuffered([]types.DurationRange{
		{StartMs: 5000, EndMs: 9000},
		{StartMs: 0, EndMs: 4000},
	})

	position, err := session.Position(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4200), position)

	event := waitEvent(t, session.Events())
	assert.Equal(t, types.VideoEventBufferingUpdate, event.Type)
	require.Len(t, event.Buffered, 2)
	assert.Equal(t, int64(0), event.Buffered[0].StartMs)
	assert.Equal(t, int64(5000), event.Buffered[1].StartMs)
}

func TestSessionBufferingSnapshotNeverBlocks(t *testing.T) {
	_, session, player := createSession(t)

	player.SetPosition(4200)
	player.SetBuffered([]types.DurationRange{{StartMs: 0, EndMs: 4000}})

	// Nobody reads the event stream here, so snapshots past the channel
	// capacity must be dropped rather than wedging the caller.
	errCh := make(chan error, 1)
	go func() {
		for i := 0; i < 200; i++ {
			if err := session.SendBufferingUpdate(context.Background()); err != nil {
				errCh <- err
				return
			}
		}
		_, err := session.Position(context.Background())
		errCh <- err
	}()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("buffering snapshot blocked on an unread event stream")
	}
}

func TestSessionAsyncErrorPoisons(t *testing.T) {
	_, session, player := createSession(t)

	player.Emit(types.PlayerEvent{Kind: types.PlayerEventError, Message: "demuxer failed"})

	event := waitEvent(t, session.Events())
	assert.Equal(t, types.VideoEventUnknown, event.Type)
	assert.Equal(t, "demuxer failed", event.Detail)
	assert.Equal(t, StateFailed, session.State())

	// Later operations surface the stored failure.
	err := session.Play(context.Background())
	require.Error(t, err)
	var pe *errors.PlayerError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, errors.CodePlayback, pe.Code)
}

func TestSessionUnknownEventPassthrough(t *testing.T) {
	_, session, player := createSession(t)

	player.Emit(types.PlayerEvent{Kind: types.PlayerEventOther, Message: "tracks-changed"})

	event := waitEvent(t, session.Events())
	assert.Equal(t, types.VideoEventUnknown, event.Type)
	assert.Equal(t, "tracks-changed", event.Detail)
}

func TestSessionDisposeClosesStream(t *testing.T) {
	defer goleak.VerifyNone(t)

	registry, session, player := createSession(t)
	stream := session.Events()

	require.NoError(t, registry.Dispose(context.Background(), session.Handle()))
	assert.True(t, player.Closed())

	// The stream drains and closes; no event arrives after disposal.
	for {
		_, open := <-stream
		if !open {
			break
		}
	}

	_, err := registry.Get(session.Handle())
	assert.True(t, errors.IsNotFound(err))
}

func TestSessionPlayPauseStates(t *testing.T) {
	_, session, player := createSession(t)
	ctx := context.Background()

	player.EmitReady(30000, 640, 480, 0)
	waitEvent(t, session.Events())

	require.NoError(t, session.Play(ctx))
	assert.Equal(t, StatePlaying, session.State())
	assert.True(t, player.Playing())

	require.NoError(t, session.Pause(ctx))
	assert.Equal(t, StatePaused, session.State())
	assert.False(t, player.Playing())

	assert.Equal(t, []string{"play", "pause"}, player.Calls())
}
