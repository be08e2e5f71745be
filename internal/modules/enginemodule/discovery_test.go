package enginemodule

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mantonx/playerd/internal/config"
	"github.com/mantonx/playerd/internal/errors"
	"github.com/mantonx/playerd/internal/types"
)

func testEngineConfig(t *testing.T) config.EngineConfig {
	t.Helper()
	return config.EngineConfig{
		EngineDir:        t.TempDir(),
		SocketDir:        t.TempDir(),
		EnableHotReload:  false,
		ConnectTimeout:   time.Second,
		ConnectAttempts:  2,
		ConnectRetryWait: 10 * time.Millisecond,
	}
}

func fakeManifest(id string) string {
	return `
id:   "` + id + `"
name: "Fake ` + id + `"
type: "fake"
capabilities: playback_speed: true
`
}

func TestManagerDiscoversEngines(t *testing.T) {
	cfg := testEngineConfig(t)
	writeManifest(t, filepath.Join(cfg.EngineDir, "alpha"), fakeManifest("alpha"))
	writeManifest(t, filepath.Join(cfg.EngineDir, "beta"), fakeManifest("beta"))

	manager := NewManager(cfg, hclog.NewNullLogger(), nil)
	require.NoError(t, manager.Start(context.Background()))
	defer manager.Stop(context.Background())

	infos := manager.ListEngines()
	require.Len(t, infos, 2)
	assert.Equal(t, "alpha", infos[0].ID)
	assert.Equal(t, "beta", infos[1].ID)

	engine, err := manager.GetEngine("alpha")
	require.NoError(t, err)
	assert.Equal(t, "alpha", engine.ID())
	assert.True(t, engine.Capabilities().PlaybackSpeed)
}

func TestManagerSkipsInvalidManifests(t *testing.T) {
	cfg := testEngineConfig(t)
	writeManifest(t, filepath.Join(cfg.EngineDir, "good"), fakeManifest("good"))
	writeManifest(t, filepath.Join(cfg.EngineDir, "bad"), `name: "no id or type"`)

	manager := NewManager(cfg, hclog.NewNullLogger(), nil)
	require.NoError(t, manager.Start(context.Background()))
	defer manager.Stop(context.Background())

	infos := manager.ListEngines()
	require.Len(t, infos, 1)
	assert.Equal(t, "good", infos[0].ID)
}

func TestManagerSkipsDisabledEngines(t *testing.T) {
	cfg := testEngineConfig(t)
	writeManifest(t, filepath.Join(cfg.EngineDir, "off"), `
id:      "off"
name:    "Disabled"
type:    "fake"
enabled: false
`)

	manager := NewManager(cfg, hclog.NewNullLogger(), nil)
	require.NoError(t, manager.Start(context.Background()))
	defer manager.Stop(context.Background())

	assert.Empty(t, manager.ListEngines())
}

func TestManagerRefreshRemovesDeletedEngines(t *testing.T) {
	cfg := testEngineConfig(t)
	engineDir := filepath.Join(cfg.EngineDir, "transient")
	writeManifest(t, engineDir, fakeManifest("transient"))

	manager := NewManager(cfg, hclog.NewNullLogger(), nil)
	require.NoError(t, manager.Start(context.Background()))
	defer manager.Stop(context.Background())

	require.Len(t, manager.ListEngines(), 1)

	require.NoError(t, os.RemoveAll(engineDir))
	require.NoError(t, manager.Refresh(context.Background()))

	assert.Empty(t, manager.ListEngines())
	_, err := manager.GetEngine("transient")
	assert.True(t, errors.IsNotFound(err))
}

func TestManagerUnknownEngine(t *testing.T) {
	manager := NewManager(testEngineConfig(t), hclog.NewNullLogger(), nil)
	require.NoError(t, manager.Start(context.Background()))
	defer manager.Stop(context.Background())

	_, err := manager.GetEngine("nope")
	assert.True(t, errors.IsNotFound(err))

	_, err = manager.DefaultEngine()
	assert.Error(t, err)
}

func TestManagerDefaultEngine(t *testing.T) {
	cfg := testEngineConfig(t)
	writeManifest(t, filepath.Join(cfg.EngineDir, "aaa"), fakeManifest("aaa"))
	writeManifest(t, filepath.Join(cfg.EngineDir, "zzz"), fakeManifest("zzz"))

	manager := NewManager(cfg, hclog.NewNullLogger(), nil)
	require.NoError(t, manager.Start(context.Background()))
	defer manager.Stop(context.Background())

	engine, err := manager.DefaultEngine()
	require.NoError(t, err)
	assert.Equal(t, "aaa", engine.ID())

	cfg.DefaultEngine = "zzz"
	manager2 := NewManager(cfg, hclog.NewNullLogger(), nil)
	require.NoError(t, manager2.Start(context.Background()))
	defer manager2.Stop(context.Background())

	engine, err = manager2.DefaultEngine()
	require.NoError(t, err)
	assert.Equal(t, "zzz", engine.ID())
}

func TestFakePlayerLifecycle(t *testing.T) {
	engine := NewFakeEngine("fake")
	ctx := context.Background()

	source := types.MediaSource{Type: types.SourceNetwork, URI: "https://example.com/a.mp4"}
	player, err := engine.Open(ctx, source, types.SessionOptions{})
	require.NoError(t, err)

	fake := engine.LastPlayer()
	require.NotNil(t, fake)

	require.NoError(t, player.Play(ctx))
	assert.True(t, fake.Playing())
	require.NoError(t, player.Pause(ctx))
	assert.False(t, fake.Playing())

	fake.EmitReady(5000, 1920, 1080, 0)
	event := <-player.Events()
	assert.EqualValues(t, 5000, event.DurationMs)

	require.NoError(t, player.Close(ctx))
	assert.True(t, fake.Closed())

	// Channel closes after Close and late emits are dropped.
	fake.EmitCompleted()
	_, open := <-player.Events()
	assert.False(t, open)

	assert.Equal(t, []string{"play", "pause", "close"}, fake.Calls())
}
