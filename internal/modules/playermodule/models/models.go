// Package models defines the playback journal schema.
package models

import (
	"time"
)

// SessionRecord journals one playback session's lifetime. Rows are written on
// create and closed out on dispose; the live state stays in memory.
type SessionRecord struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Handle     int64  `gorm:"index;not null" json:"handle"`
	EngineID   string `gorm:"index" json:"engine_id"`
	SourceType string `json:"source_type"`
	URI        string `json:"uri"`
	State      string `gorm:"index" json:"state"`

	DurationMs int64 `json:"duration_ms"`
	Width      int   `json:"width"`
	Height     int   `json:"height"`

	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DisposedAt *time.Time `json:"disposed_at,omitempty"`
}

func (SessionRecord) TableName() string {
	return "playback_sessions"
}

// AnalyticsView journals one analytics attachment. A session gains a new row
// each time analytics is attached; DetachedAt closes the previous row.
type AnalyticsView struct {
	ViewID     string `gorm:"primaryKey" json:"view_id"`
	Handle     int64  `gorm:"index;not null" json:"handle"`
	EnvKey     string `json:"env_key"`
	PlayerName string `json:"player_name"`
	VideoID    string `json:"video_id,omitempty"`
	VideoTitle string `json:"video_title,omitempty"`

	AttachedAt time.Time  `json:"attached_at"`
	DetachedAt *time.Time `json:"detached_at,omitempty"`
}

func (AnalyticsView) TableName() string {
	return "analytics_views"
}
