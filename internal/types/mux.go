package types

import "fmt"

// MuxPageType is the page context reported to Mux
type MuxPageType string

const (
	MuxPageWatchpage MuxPageType = "watchpage"
	MuxPageIframe    MuxPageType = "iframe"
)

// MuxStreamType distinguishes live from on-demand playback
type MuxStreamType string

const (
	MuxStreamLive     MuxStreamType = "live"
	MuxStreamOnDemand MuxStreamType = "onDemand"
)

// MuxConfig is the immutable analytics configuration attached to a session.
// EnvKey and PlayerName are required; everything else is optional descriptive
// metadata. Optional fields use pointers so that "absent" and "empty string"
// stay distinguishable: absent fields are omitted from the customer data
// bundle, never defaulted.
type MuxConfig struct {
	EnvKey     string `json:"env_key"`
	PlayerName string `json:"player_name"`

	ViewerUserID   *string      `json:"viewer_user_id,omitempty"`
	PageType       *MuxPageType `json:"page_type,omitempty"`
	ExperimentName *string      `json:"experiment_name,omitempty"`
	SubPropertyID  *string      `json:"sub_property_id,omitempty"`
	PlayerVersion  *string      `json:"player_version,omitempty"`
	PlayerInitTime *int64       `json:"player_init_time,omitempty"`

	VideoID              *string        `json:"video_id,omitempty"`
	VideoTitle           *string        `json:"video_title,omitempty"`
	VideoSeries          *string        `json:"video_series,omitempty"`
	VideoVariantName     *string        `json:"video_variant_name,omitempty"`
	VideoVariantID       *string        `json:"video_variant_id,omitempty"`
	VideoLanguageCode    *string        `json:"video_language_code,omitempty"`
	VideoContentType     *string        `json:"video_content_type,omitempty"`
	VideoDuration        *DurationMs    `json:"video_duration,omitempty"`
	VideoStreamType      *MuxStreamType `json:"video_stream_type,omitempty"`
	VideoProducer        *string        `json:"video_producer,omitempty"`
	VideoEncodingVariant *string        `json:"video_encoding_variant,omitempty"`
	VideoCDN             *string        `json:"video_cdn,omitempty"`

	CustomData1 *string `json:"custom_data_1,omitempty"`
	CustomData2 *string `json:"custom_data_2,omitempty"`
}

// Validate checks the required fields and enum values.
func (c *MuxConfig) Validate() error {
	if c.EnvKey == "" {
		return fmt.Errorf("env_key is required")
	}
	if c.PlayerName == "" {
		return fmt.Errorf("player_name is required")
	}
	if c.PageType != nil {
		switch *c.PageType {
		case MuxPageWatchpage, MuxPageIframe:
		default:
			return fmt.Errorf("unknown page_type: %s", *c.PageType)
		}
	}
	if c.VideoStreamType != nil {
		switch *c.VideoStreamType {
		case MuxStreamLive, MuxStreamOnDemand:
		default:
			return fmt.Errorf("unknown video_stream_type: %s", *c.VideoStreamType)
		}
	}
	return nil
}
