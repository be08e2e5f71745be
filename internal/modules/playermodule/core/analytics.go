package core

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"

	"github.com/mantonx/playerd/internal/errors"
	"github.com/mantonx/playerd/internal/events"
	"github.com/mantonx/playerd/internal/modules/playermodule/models"
	"github.com/mantonx/playerd/internal/services"
	"github.com/mantonx/playerd/internal/types"
	"github.com/mantonx/playerd/internal/utils"
)

// AnalyticsBinder attaches Mux analytics configurations to sessions. One
// attachment per session: attaching again detaches the previous view first,
// so a replaced attachment is closed out rather than leaked.
type AnalyticsBinder struct {
	db       *gorm.DB
	eventBus events.EventBus
	assets   services.AssetService
	enabled  bool
	logger   hclog.Logger
}

// NewAnalyticsBinder creates the binder. db, eventBus, and assets may be
// nil. When enabled is false every attach reports unimplemented, so a
// deployment can switch analytics off without touching callers.
func NewAnalyticsBinder(db *gorm.DB, eventBus events.EventBus, assets services.AssetService, enabled bool, logger hclog.Logger) *AnalyticsBinder {
	return &AnalyticsBinder{
		db:       db,
		eventBus: eventBus,
		assets:   assets,
		enabled:  enabled,
		logger:   logger.Named("analytics"),
	}
}

// Attach binds an analytics configuration to a session. The customer data
// bundle carries only the fields the caller supplied, plus the session's
// resolved source URL; a missing video title falls back to the asset's
// embedded title when the session plays an asset.
func (b *AnalyticsBinder) Attach(ctx context.Context, session *Session, cfg types.MuxConfig) (map[string]string, error) {
	if !b.enabled {
		return nil, errors.NewUnimplementedError("analytics", "mux data binding")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.NewValidationError(err.Error(), "mux")
	}

	data := BuildCustomerData(cfg)

	source := session.Source()
	if source.URI != "" {
		data["video_source_url"] = source.URI
	}
	if cfg.VideoTitle == nil && source.Type == types.SourceAsset && b.assets != nil {
		if title := b.assets.TitleFor(ctx, source.AssetName, source.AssetPackage); title != "" {
			data["video_title"] = title
		}
	}

	viewID := utils.GenerateUUID()
	view := models.AnalyticsView{
		ViewID:     viewID,
		Handle:     session.Handle(),
		EnvKey:     cfg.EnvKey,
		PlayerName: cfg.PlayerName,
		VideoTitle: data["video_title"],
		AttachedAt: time.Now(),
	}
	if cfg.VideoID != nil {
		view.VideoID = *cfg.VideoID
	}

	if b.db != nil {
		if err := b.db.Create(&view).Error; err != nil {
			return nil, errors.NewDatabaseError("failed to record analytics view", err)
		}
	}

	detach := func(detachCtx context.Context) error {
		return b.closeView(detachCtx, session.Handle(), viewID)
	}

	if prev := session.setAnalyticsDetach(detach); prev != nil {
		b.logger.Info("replacing analytics attachment", "handle", session.Handle())
		if err := prev(ctx); err != nil {
			b.logger.Warn("failed to close replaced analytics view", "handle", session.Handle(), "error", err)
		}
	}

	b.publish(events.EventAnalyticsAttached, session.Handle(), viewID)
	b.logger.Info("analytics attached", "handle", session.Handle(), "view_id", viewID, "env_key", cfg.EnvKey)
	return data, nil
}

// closeView marks a view as detached.
func (b *AnalyticsBinder) closeView(ctx context.Context, handle int64, viewID string) error {
	b.publish(events.EventAnalyticsDetached, handle, viewID)

	if b.db == nil {
		return nil
	}
	now := time.Now()
	return b.db.WithContext(ctx).Model(&models.AnalyticsView{}).
		Where("view_id = ? AND detached_at IS NULL", viewID).
		Update("detached_at", &now).Error
}

func (b *AnalyticsBinder) publish(eventType events.EventType, handle int64, viewID string) {
	if b.eventBus == nil {
		return
	}
	event := events.NewEventWithData(eventType, "playermodule",
		fmt.Sprintf("Analytics %s for session %d", eventType, handle), "",
		map[string]interface{}{
			"handle":  handle,
			"view_id": viewID,
		})
	_ = b.eventBus.PublishAsync(event)
}

// BuildCustomerData renders the analytics customer data bundle. Absent
// optional fields are omitted, never defaulted; the duration is normalized
// through the wide-integer coercion regardless of how the client encoded it.
func BuildCustomerData(cfg types.MuxConfig) map[string]string {
	data := map[string]string{
		"env_key":     cfg.EnvKey,
		"player_name": cfg.PlayerName,
	}

	setString := func(key string, value *string) {
		if value != nil {
			data[key] = *value
		}
	}

	setString("viewer_user_id", cfg.ViewerUserID)
	if cfg.PageType != nil {
		data["page_type"] = string(*cfg.PageType)
	}
	setString("experiment_name", cfg.ExperimentName)
	setString("sub_property_id", cfg.SubPropertyID)
	setString("player_version", cfg.PlayerVersion)
	if cfg.PlayerInitTime != nil {
		data["player_init_time"] = strconv.FormatInt(*cfg.PlayerInitTime, 10)
	}

	setString("video_id", cfg.VideoID)
	setString("video_title", cfg.VideoTitle)
	setString("video_series", cfg.VideoSeries)
	setString("video_variant_name", cfg.VideoVariantName)
	setString("video_variant_id", cfg.VideoVariantID)
	setString("video_language_code", cfg.VideoLanguageCode)
	setString("video_content_type", cfg.VideoContentType)
	if cfg.VideoDuration != nil {
		if ms, err := types.CoerceDurationMs(*cfg.VideoDuration); err == nil {
			data["video_duration"] = strconv.FormatInt(ms, 10)
		}
	}
	if cfg.VideoStreamType != nil {
		data["video_stream_type"] = string(*cfg.VideoStreamType)
	}
	setString("video_producer", cfg.VideoProducer)
	setString("video_encoding_variant", cfg.VideoEncodingVariant)
	setString("video_cdn", cfg.VideoCDN)

	setString("custom_data_1", cfg.CustomData1)
	setString("custom_data_2", cfg.CustomData2)

	return data
}
