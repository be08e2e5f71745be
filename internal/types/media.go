package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SourceType identifies where media bytes come from
type SourceType string

const (
	SourceAsset      SourceType = "asset"
	SourceNetwork    SourceType = "network"
	SourceFile       SourceType = "file"
	SourceContentURI SourceType = "contentUri"
)

// FormatHint tells an engine which adaptive container to expect when the URI
// alone is not enough to detect it
type FormatHint string

const (
	FormatNone            FormatHint = ""
	FormatDash            FormatHint = "dash"
	FormatHLS             FormatHint = "hls"
	FormatSmoothStreaming FormatHint = "ss"
	FormatOther           FormatHint = "other"
)

// MediaSource describes one playable input. It is a tagged union over the
// source types: network/file/contentUri carry a URI, asset carries an asset
// name plus optional owning package.
type MediaSource struct {
	Type         SourceType        `json:"type"`
	URI          string            `json:"uri,omitempty"`
	FormatHint   FormatHint        `json:"format_hint,omitempty"`
	AssetName    string            `json:"asset,omitempty"`
	AssetPackage string            `json:"package,omitempty"`
	HTTPHeaders  map[string]string `json:"http_headers,omitempty"`
}

// Validate checks the union constraints for the source type.
func (s *MediaSource) Validate() error {
	switch s.Type {
	case SourceAsset:
		if s.AssetName == "" {
			return fmt.Errorf("asset source requires an asset name")
		}
		if s.URI != "" {
			return fmt.Errorf("asset source must not carry a uri")
		}
	case SourceNetwork, SourceFile, SourceContentURI:
		if s.URI == "" {
			return fmt.Errorf("%s source requires a uri", s.Type)
		}
		if s.AssetName != "" || s.AssetPackage != "" {
			return fmt.Errorf("%s source must not carry asset fields", s.Type)
		}
	case "":
		return fmt.Errorf("source type is required")
	default:
		return fmt.Errorf("unknown source type: %s", s.Type)
	}

	if s.FormatHint != FormatNone && s.Type != SourceNetwork && s.Type != SourceFile {
		return fmt.Errorf("format hint is only valid for network and file sources")
	}
	switch s.FormatHint {
	case FormatNone, FormatDash, FormatHLS, FormatSmoothStreaming, FormatOther:
	default:
		return fmt.Errorf("unknown format hint: %s", s.FormatHint)
	}

	if len(s.HTTPHeaders) > 0 && s.Type != SourceNetwork {
		return fmt.Errorf("http headers are only valid for network sources")
	}

	return nil
}

// SessionOptions are the per-session playback defaults. The zero value is the
// process-wide default applied to every new session unless overridden.
type SessionOptions struct {
	Looping       bool `json:"looping"`
	MixWithOthers bool `json:"mix_with_others"`
}

// DurationRange is one contiguous buffered interval, in milliseconds relative
// to playback start. Invariant: StartMs <= EndMs.
type DurationRange struct {
	StartMs int64 `json:"start"`
	EndMs   int64 `json:"end"`
}

// DurationMs is a millisecond duration that tolerates the integer-width and
// string encodings different clients produce. It always normalizes to int64.
type DurationMs int64

// UnmarshalJSON accepts a JSON number or a numeric string.
func (d *DurationMs) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}

	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = s
	}

	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// Some serializers emit whole numbers as floats.
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil {
			return fmt.Errorf("invalid duration value %q", raw)
		}
		value = int64(f)
	}

	*d = DurationMs(value)
	return nil
}

// CoerceDurationMs normalizes an arbitrarily-typed decoded duration value to
// milliseconds. Clients and serializers disagree on integer width, so every
// plausible numeric encoding is accepted.
func CoerceDurationMs(v interface{}) (int64, error) {
	switch value := v.(type) {
	case nil:
		return 0, fmt.Errorf("duration value is nil")
	case int:
		return int64(value), nil
	case int8:
		return int64(value), nil
	case int16:
		return int64(value), nil
	case int32:
		return int64(value), nil
	case int64:
		return value, nil
	case uint:
		return int64(value), nil
	case uint8:
		return int64(value), nil
	case uint16:
		return int64(value), nil
	case uint32:
		return int64(value), nil
	case uint64:
		return int64(value), nil
	case float32:
		return int64(value), nil
	case float64:
		return int64(value), nil
	case json.Number:
		return value.Int64()
	case string:
		return strconv.ParseInt(value, 10, 64)
	case DurationMs:
		return int64(value), nil
	default:
		return 0, fmt.Errorf("unsupported duration type %T", v)
	}
}
