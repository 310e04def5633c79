package trace

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SpanRow is the persisted form of a closed span. Attributes and events are
// stored as JSON text so the schema stays stable as payloads evolve.
type SpanRow struct {
	ID                string    `gorm:"primaryKey;column:id"`
	ParentID          string    `gorm:"column:parent_id;index"`
	Name              string    `gorm:"column:name;index"`
	StartedAt         time.Time `gorm:"column:started_at"`
	EndedAt           time.Time `gorm:"column:ended_at"`
	Status            string    `gorm:"column:status"`
	StatusDescription string    `gorm:"column:status_description"`
	Attributes        string    `gorm:"column:attributes"`
	Events            string    `gorm:"column:events"`
}

// TableName fixes the table name for gorm.
func (SpanRow) TableName() string { return "spans" }

// SQLiteSink persists closed spans to a local SQLite file for later
// inspection, e.g. with any SQL browser.
type SQLiteSink struct {
	db *gorm.DB
}

var _ Sink = (*SQLiteSink)(nil)

// NewSQLiteSink opens (or creates) the SQLite database and migrates the
// spans table.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open trace database: %w", err)
	}
	if err := db.AutoMigrate(&SpanRow{}); err != nil {
		return nil, fmt.Errorf("migrate trace database: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

func (s *SQLiteSink) OnStart(span *Span) error                        { return nil }
func (s *SQLiteSink) OnAttribute(span *Span, key string, v any) error { return nil }
func (s *SQLiteSink) OnEvent(span *Span, event Event) error           { return nil }

func (s *SQLiteSink) OnEnd(span *Span) error {
	attrs, err := json.Marshal(span.Attributes)
	if err != nil {
		return fmt.Errorf("marshal attributes: %w", err)
	}
	events, err := json.Marshal(span.Events)
	if err != nil {
		return fmt.Errorf("marshal events: %w", err)
	}
	row := SpanRow{
		ID:                span.ID,
		ParentID:          span.ParentID,
		Name:              span.Name,
		StartedAt:         span.StartedAt,
		EndedAt:           span.EndedAt,
		Status:            string(span.Status),
		StatusDescription: span.StatusDescription,
		Attributes:        string(attrs),
		Events:            string(events),
	}
	return s.db.Create(&row).Error
}

func (s *SQLiteSink) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
