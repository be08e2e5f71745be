package core

import (
	"context"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mantonx/playerd/internal/errors"
	"github.com/mantonx/playerd/internal/modules/enginemodule"
	"github.com/mantonx/playerd/internal/types"
)

// stubEngineService serves a single fake engine.
type stubEngineService struct {
	engine *enginemodule.FakeEngine
}

func (s *stubEngineService) ListEngines() []types.EngineInfo {
	return []types.EngineInfo{s.engine.Info()}
}

func (s *stubEngineService) GetEngine(engineID string) (types.Engine, error) {
	if engineID != s.engine.ID() {
		return nil, errors.NewNotFoundError("engine", engineID)
	}
	return s.engine, nil
}

func (s *stubEngineService) DefaultEngine() (types.Engine, error) {
	return s.engine, nil
}

func (s *stubEngineService) Refresh(ctx context.Context) error {
	return nil
}

// stubAssetService resolves from a fixed name-to-path map.
type stubAssetService struct {
	paths  map[string]string
	titles map[string]string
}

func (s *stubAssetService) ResolveAsset(ctx context.Context, assetName, assetPackage string) (string, error) {
	if path, ok := s.paths[assetName]; ok {
		return path, nil
	}
	return "", errors.NewNotFoundError("asset", assetName)
}

func (s *stubAssetService) ListAssets(ctx context.Context, assetPackage string) ([]string, error) {
	names := make([]string, 0, len(s.paths))
	for name := range s.paths {
		names = append(names, name)
	}
	return names, nil
}

func (s *stubAssetService) TitleFor(ctx context.Context, assetName, assetPackage string) string {
	return s.titles[assetName]
}

func newTestFacade(t *testing.T) (*ControlFacade, *enginemodule.FakeEngine) {
	t.Helper()

	logger := hclog.NewNullLogger()
	engine := enginemodule.NewFakeEngine("fake")
	engines := &stubEngineService{engine: engine}
	assets := &stubAssetService{
		paths:  map[string]string{"intro.mp4": "/data/assets/intro.mp4"},
		titles: map[string]string{"intro.mp4": "Intro"},
	}

	registry := NewSessionRegistry(nil, nil, logger)
	binder := NewAnalyticsBinder(nil, nil, assets, true, logger)
	facade := NewControlFacade(registry, engines, assets, binder, logger)

	t.Cleanup(func() {
		facade.DisposeAll(context.Background())
	})
	return facade, engine
}

func TestFacadeCreateRejectsInvalidSource(t *testing.T) {
	facade, _ := newTestFacade(t)

	_, err := facade.Create(context.Background(), CreateRequest{
		Source: types.MediaSource{Type: types.SourceNetwork},
	})
	require.Error(t, err)
	var pe *errors.PlayerError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, errors.CodeValidation, pe.Code)
}

func TestFacadeCreateResolvesAssetSource(t *testing.T) {
	facade, engine := newTestFacade(t)

	handle, err := facade.Create(context.Background(), CreateRequest{
		Source: types.MediaSource{
			Type:      types.SourceAsset,
			AssetName: "intro.mp4",
		},
	})
	require.NoError(t, err)

	player := engine.LastPlayer()
	require.NotNil(t, player)
	assert.Equal(t, "/data/assets/intro.mp4", player.Source().URI)

	// The session keeps the asset identity, not just the resolved path.
	session, err := facade.GetSession(handle)
	require.NoError(t, err)
	assert.Equal(t, "intro.mp4", session.Source().AssetName)
}

func TestFacadeCreateUnknownAsset(t *testing.T) {
	facade, _ := newTestFacade(t)

	_, err := facade.Create(context.Background(), CreateRequest{
		Source: types.MediaSource{
			Type:      types.SourceAsset,
			AssetName: "missing.mp4",
		},
	})
	require.Error(t, err)
	var pe *errors.PlayerError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, errors.CodeValidation, pe.Code)
}

func TestFacadeCreateUnknownEngine(t *testing.T) {
	facade, _ := newTestFacade(t)

	_, err := facade.Create(context.Background(), CreateRequest{
		Source:   testSource(),
		EngineID: "vlc",
	})
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestFacadeMixWithOthersDefault(t *testing.T) {
	facade, engine := newTestFacade(t)
	ctx := context.Background()

	// The default applies to sessions created after the switch.
	_, err := facade.Create(ctx, CreateRequest{Source: testSource()})
	require.NoError(t, err)
	assert.False(t, engine.LastPlayer().Options().MixWithOthers)

	facade.SetMixWithOthers(true)
	_, err = facade.Create(ctx, CreateRequest{Source: testSource()})
	require.NoError(t, err)
	assert.True(t, engine.LastPlayer().Options().MixWithOthers)

	// Explicit options win over the process default.
	_, err = facade.Create(ctx, CreateRequest{
		Source:  testSource(),
		Options: &types.SessionOptions{MixWithOthers: false, Looping: true},
	})
	require.NoError(t, err)
	assert.False(t, engine.LastPlayer().Options().MixWithOthers)
	assert.True(t, engine.LastPlayer().Options().Looping)
}

func TestFacadeInitializeDisposesEverything(t *testing.T) {
	facade, engine := newTestFacade(t)
	ctx := context.Background()

	// Succeeds with nothing to clean up.
	require.NoError(t, facade.Initialize(ctx))

	for i := 0; i < 2; i++ {
		_, err := facade.Create(ctx, CreateRequest{Source: testSource()})
		require.NoError(t, err)
	}
	require.Equal(t, 2, facade.SessionCount())

	require.NoError(t, facade.Initialize(ctx))
	assert.Equal(t, 0, facade.SessionCount())
	for _, player := range engine.Players() {
		assert.True(t, player.Closed())
	}
}

func TestFacadeEndToEnd(t *testing.T) {
	facade, engine := newTestFacade(t)
	ctx := context.Background()

	handle, err := facade.Create(ctx, CreateRequest{Source: testSource()})
	require.NoError(t, err)

	stream, err := facade.EventsFor(handle)
	require.NoError(t, err)

	player := engine.LastPlayer()
	player.EmitReady(30000, 1280, 720, 0)

	event := waitEvent(t, stream)
	assert.Equal(t, types.VideoEventInitialized, event.Type)

	require.NoError(t, facade.Play(ctx, handle))
	require.NoError(t, facade.SetVolume(ctx, handle, 0.5))
	require.NoError(t, facade.SetLooping(ctx, handle, true))
	require.NoError(t, facade.SeekTo(ctx, handle, 15000))

	player.SetPosition(15000)
	position, err := facade.GetPosition(ctx, handle)
	require.NoError(t, err)
	assert.Equal(t, int64(15000), position)

	// Position polling pushes a buffering snapshot onto the stream.
	event = waitEvent(t, stream)
	assert.Equal(t, types.VideoEventBufferingUpdate, event.Type)

	player.EmitCompleted()
	event = waitEvent(t, stream)
	assert.Equal(t, types.VideoEventCompleted, event.Type)

	require.NoError(t, facade.Dispose(ctx, handle))

	// Every post-dispose operation except dispose reports the handle unknown.
	assert.True(t, errors.IsNotFound(facade.Play(ctx, handle)))
	assert.True(t, errors.IsNotFound(facade.Pause(ctx, handle)))
	_, err = facade.GetPosition(ctx, handle)
	assert.True(t, errors.IsNotFound(err))
	_, err = facade.EventsFor(handle)
	assert.True(t, errors.IsNotFound(err))
	assert.NoError(t, facade.Dispose(ctx, handle))
}

func TestFacadeSetupMux(t *testing.T) {
	facade, _ := newTestFacade(t)
	ctx := context.Background()

	handle, err := facade.Create(ctx, CreateRequest{Source: testSource()})
	require.NoError(t, err)

	err = facade.SetupMux(ctx, handle, types.MuxConfig{
		EnvKey:     "env-123",
		PlayerName: "playerd",
	})
	require.NoError(t, err)

	// Attaching to an unknown handle fails like every other operation.
	err = facade.SetupMux(ctx, 999, types.MuxConfig{EnvKey: "env-123", PlayerName: "playerd"})
	assert.True(t, errors.IsNotFound(err))
}
