package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// EventRecord is the database representation of an event
type EventRecord struct {
	ID        string `gorm:"primaryKey"`
	Type      string `gorm:"index"`
	Source    string `gorm:"index"`
	Title     string
	Message   string
	Data      string `gorm:"type:text"`
	Tags      string
	Priority  int
	Timestamp time.Time `gorm:"index"`
	CreatedAt time.Time
}

func (EventRecord) TableName() string {
	return "events"
}

// gormEventStorage persists events through the shared gorm connection
type gormEventStorage struct {
	db *gorm.DB
}

// NewGormEventStorage creates a gorm-backed event storage. The events table
// is migrated on first use.
func NewGormEventStorage(db *gorm.DB) (EventStorage, error) {
	if err := db.AutoMigrate(&EventRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate events table: %w", err)
	}
	return &gormEventStorage{db: db}, nil
}

func (s *gormEventStorage) Store(ctx context.Context, event Event) error {
	record, err := toRecord(event)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(record).Error
}

func (s *gormEventStorage) Get(ctx context.Context, filter EventFilter, limit, offset int) ([]Event, int64, error) {
	query := s.db.WithContext(ctx).Model(&EventRecord{})

	if len(filter.Types) > 0 {
		types := make([]string, 0, len(filter.Types))
		for _, t := range filter.Types {
			types = append(types, string(t))
		}
		query = query.Where("type IN ?", types)
	}
	if len(filter.Sources) > 0 {
		query = query.Where("source IN ?", filter.Sources)
	}
	if filter.Priority != nil {
		query = query.Where("priority >= ?", int(*filter.Priority))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []EventRecord
	if err := query.Order("timestamp DESC").Limit(limit).Offset(offset).Find(&records).Error; err != nil {
		return nil, 0, err
	}

	events := make([]Event, 0, len(records))
	for _, record := range records {
		event, err := fromRecord(record)
		if err != nil {
			continue
		}
		events = append(events, event)
	}

	return events, total, nil
}

func (s *gormEventStorage) Delete(ctx context.Context, olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	return s.db.WithContext(ctx).Where("timestamp < ?", cutoff).Delete(&EventRecord{}).Error
}

func (s *gormEventStorage) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&EventRecord{}).Count(&count).Error
	return count, err
}

func (s *gormEventStorage) Close() error {
	// The connection is owned by the database package.
	return nil
}

func toRecord(event Event) (*EventRecord, error) {
	var data string
	if event.Data != nil {
		encoded, err := json.Marshal(event.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to encode event data: %w", err)
		}
		data = string(encoded)
	}

	tags, err := json.Marshal(event.Tags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event tags: %w", err)
	}

	return &EventRecord{
		ID:        event.ID,
		Type:      string(event.Type),
		Source:    event.Source,
		Title:     event.Title,
		Message:   event.Message,
		Data:      data,
		Tags:      string(tags),
		Priority:  int(event.Priority),
		Timestamp: event.Timestamp,
		CreatedAt: time.Now(),
	}, nil
}

func fromRecord(record EventRecord) (Event, error) {
	event := Event{
		ID:        record.ID,
		Type:      EventType(record.Type),
		Source:    record.Source,
		Title:     record.Title,
		Message:   record.Message,
		Priority:  EventPriority(record.Priority),
		Timestamp: record.Timestamp,
	}

	if record.Data != "" {
		var data map[string]interface{}
		if err := json.Unmarshal([]byte(record.Data), &data); err != nil {
			return event, fmt.Errorf("failed to decode event data: %w", err)
		}
		event.Data = data
	}

	if record.Tags != "" {
		if err := json.Unmarshal([]byte(record.Tags), &event.Tags); err != nil {
			return event, fmt.Errorf("failed to decode event tags: %w", err)
		}
	}

	return event, nil
}
