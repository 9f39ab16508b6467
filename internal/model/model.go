// Package model defines the entities described in SPEC_FULL.md §3.
package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
}

type Note struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	Body            string
	Importance      int
	SourceURL       *string
	ImagePath       *string
	Embedding       []float32
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       *time.Time
	ServerTimestamp time.Time
}

func (n *Note) IsDeleted() bool { return n.DeletedAt != nil }

type Keyword struct {
	ID   int64
	Name string
}

type NoteKeyword struct {
	NoteID    uuid.UUID
	KeywordID int64
	Score     *float32
}

type Relation struct {
	ID              uuid.UUID
	FromNoteID      uuid.UUID
	ToNoteID        uuid.UUID
	RelationType    string
	CreatedAt       time.Time
	ServerTimestamp time.Time
}

type Reflection struct {
	UserID          uuid.UUID
	Date            string // "YYYY-MM-DD"
	Content         string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ServerTimestamp time.Time
}

type WeeklyReport struct {
	UserID           uuid.UUID
	WeekKey          string
	Data             []byte // opaque JSON blob, see report.WeeklyReportData
	ProcessingTimeMs int
	CreatedAt        time.Time
}

// EntityType enumerates the syncable entity kinds.
type EntityType string

const (
	EntityNote       EntityType = "note"
	EntityRelation   EntityType = "relation"
	EntityReflection EntityType = "reflection"
)

// Operation enumerates the push operations.
type Operation string

const (
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)
