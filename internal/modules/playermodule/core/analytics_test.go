package core

import (
	"context"
	"sync"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mantonx/playerd/internal/errors"
	"github.com/mantonx/playerd/internal/events"
	"github.com/mantonx/playerd/internal/modules/enginemodule"
	"github.com/mantonx/playerd/internal/types"
)

// recordingBus captures published events so tests can assert on them.
type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(ctx context.Context, event events.Event) error {
	return b.PublishAsync(event)
}

func (b *recordingBus) PublishAsync(event events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *recordingBus) Subscribe(ctx context.Context, filter events.EventFilter, handler events.EventHandler) (*events.Subscription, error) {
	return &events.Subscription{}, nil
}

func (b *recordingBus) Unsubscribe(subscriptionID string) error { return nil }

func (b *recordingBus) GetSubscriptions() []*events.Subscription { return nil }

func (b *recordingBus) GetEvents(filter events.EventFilter, limit, offset int) ([]events.Event, int64, error) {
	return nil, 0, nil
}

func (b *recordingBus) GetStats() events.EventStats { return events.EventStats{} }

func (b *recordingBus) Start(ctx context.Context) error { return nil }

func (b *recordingBus) Stop(ctx context.Context) error { return nil }

func (b *recordingBus) Health() error { return nil }

func (b *recordingBus) countByType(eventType events.EventType) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	count := 0
	for _, event := range b.events {
		if event.Type == eventType {
			count++
		}
	}
	return count
}

func strPtr(s string) *string { return &s }

func TestBuildCustomerDataOmitsAbsentFields(t *testing.T) {
	data := BuildCustomerData(types.MuxConfig{
		EnvKey:     "env-123",
		PlayerName: "playerd",
	})

	assert.Equal(t, map[string]string{
		"env_key":     "env-123",
		"player_name": "playerd",
	}, data)
}

func TestBuildCustomerDataIncludesSuppliedFields(t *testing.T) {
	pageType := types.MuxPageWatchpage
	streamType := types.MuxStreamOnDemand
	duration := types.DurationMs(183000)
	initTime := int64(1700000000000)

	data := BuildCustomerData(types.MuxConfig{
		EnvKey:          "env-123",
		PlayerName:      "playerd",
		ViewerUserID:    strPtr("user-1"),
		PageType:        &pageType,
		PlayerInitTime:  &initTime,
		VideoID:         strPtr("vid-9"),
		VideoTitle:      strPtr("Big Buck Bunny"),
		VideoDuration:   &duration,
		VideoStreamType: &streamType,
		CustomData1:     strPtr("experiment-a"),
	})

	assert.Equal(t, "user-1", data["viewer_user_id"])
	assert.Equal(t, "watchpage", data["page_type"])
	assert.Equal(t, "1700000000000", data["player_init_time"])
	assert.Equal(t, "vid-9", data["video_id"])
	assert.Equal(t, "Big Buck Bunny", data["video_title"])
	assert.Equal(t, "183000", data["video_duration"])
	assert.Equal(t, "onDemand", data["video_stream_type"])
	assert.Equal(t, "experiment-a", data["custom_data_1"])
	assert.NotContains(t, data, "video_series")
	assert.NotContains(t, data, "video_cdn")
}

func TestAttachCarriesSessionSourceURL(t *testing.T) {
	binder := NewAnalyticsBinder(nil, nil, nil, true, hclog.NewNullLogger())
	_, session, _ := createSession(t)

	data, err := binder.Attach(context.Background(), session, types.MuxConfig{
		EnvKey:     "env-123",
		PlayerName: "playerd",
	})
	require.NoError(t, err)
	assert.Equal(t, session.Source().URI, data["video_source_url"])
}

func TestAttachReportsUnimplementedWhenDisabled(t *testing.T) {
	binder := NewAnalyticsBinder(nil, nil, nil, false, hclog.NewNullLogger())
	_, session, _ := createSession(t)

	_, err := binder.Attach(context.Background(), session, types.MuxConfig{
		EnvKey:     "env-123",
		PlayerName: "playerd",
	})
	require.Error(t, err)
	assert.True(t, errors.IsUnimplemented(err))
}

func TestAttachRejectsInvalidConfig(t *testing.T) {
	binder := NewAnalyticsBinder(nil, nil, nil, true, hclog.NewNullLogger())
	_, session, _ := createSession(t)

	_, err := binder.Attach(context.Background(), session, types.MuxConfig{PlayerName: "playerd"})
	require.Error(t, err)
	var pe *errors.PlayerError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, errors.CodeValidation, pe.Code)
}

func TestAttachAssetTitleFallback(t *testing.T) {
	assets := &stubAssetService{
		paths:  map[string]string{"intro.mp4": "/data/assets/intro.mp4"},
		titles: map[string]string{"intro.mp4": "Intro"},
	}
	binder := NewAnalyticsBinder(nil, nil, assets, true, hclog.NewNullLogger())

	registry := testRegistry()
	engine := enginemodule.NewFakeEngine("fake")
	session, err := registry.Create(context.Background(), engine, types.MediaSource{
		Type:      types.SourceAsset,
		URI:       "/data/assets/intro.mp4",
		AssetName: "intro.mp4",
	}, types.SessionOptions{})
	require.NoError(t, err)
	defer registry.DisposeAll(context.Background())

	data, err := binder.Attach(context.Background(), session, types.MuxConfig{
		EnvKey:     "env-123",
		PlayerName: "playerd",
	})
	require.NoError(t, err)
	assert.Equal(t, "Intro", data["video_title"])

	// An explicit title always wins over the embedded one.
	data, err = binder.Attach(context.Background(), session, types.MuxConfig{
		EnvKey:     "env-123",
		PlayerName: "playerd",
		VideoTitle: strPtr("Override"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Override", data["video_title"])
}

func TestReattachClosesPreviousView(t *testing.T) {
	bus := &recordingBus{}
	binder := NewAnalyticsBinder(nil, bus, nil, true, hclog.NewNullLogger())

	registry := testRegistry()
	engine := enginemodule.NewFakeEngine("fake")
	ctx := context.Background()
	session, err := registry.Create(ctx, engine, testSource(), types.SessionOptions{})
	require.NoError(t, err)

	cfg := types.MuxConfig{EnvKey: "env-123", PlayerName: "playerd"}

	_, err = binder.Attach(ctx, session, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, bus.countByType(events.EventAnalyticsAttached))
	assert.Equal(t, 0, bus.countByType(events.EventAnalyticsDetached))

	// The second attachment closes the first view before taking over.
	_, err = binder.Attach(ctx, session, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, bus.countByType(events.EventAnalyticsAttached))
	assert.Equal(t, 1, bus.countByType(events.EventAnalyticsDetached))

	// Disposal closes the live view exactly once.
	require.NoError(t, registry.Dispose(ctx, session.Handle()))
	assert.Equal(t, 2, bus.countByType(events.EventAnalyticsDetached))
}
