package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ActionDelete = "delete"

	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeDenied    = "denied"
)

// Entry records a confirmed destructive action taken from a list screen.
type Entry struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ActorSubject string         `gorm:"size:100;index" json:"actor_subject"`
	ActorRole    string         `gorm:"size:20" json:"actor_role"`
	Resource     string         `gorm:"size:50;index" json:"resource"`
	TargetID     string         `gorm:"size:100" json:"target_id"`
	Action       string         `gorm:"size:30" json:"action"`
	Outcome      string         `gorm:"size:20" json:"outcome"`
	Details      datatypes.JSON `json:"details,omitempty"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
}

func (e *Entry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// WithDetails attaches arbitrary JSON-encodable context to the entry.
func (e Entry) WithDetails(details map[string]any) Entry {
	if len(details) == 0 {
		return e
	}
	if raw, err := json.Marshal(details); err == nil {
		e.Details = datatypes.JSON(raw)
	}
	return e
}

type Recorder interface {
	Record(ctx context.Context, e Entry) error
	List(ctx context.Context, resource string, limit int) ([]Entry, error)
}

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Record(ctx context.Context, e Entry) error {
	return s.db.WithContext(ctx).Create(&e).Error
}

// List returns the newest entries first, optionally narrowed to one resource.
func (s *Store) List(ctx context.Context, resource string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	q := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if resource != "" {
		q = q.Where("resource = ?", resource)
	}

	var entries []Entry
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
