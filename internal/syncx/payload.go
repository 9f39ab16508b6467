package syncx

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/synapse-sync/core/internal/apperr"
)

// ChangeRequest is the wire shape of a push request (SPEC_FULL.md §6).
type ChangeRequest struct {
	DeviceID string      `json:"device_id"`
	Changes  []RawChange `json:"changes"`
}

// RawChange is one untyped entry of a push request before tagged-variant
// parsing. entity_type x operation determines which concrete payload shape
// applies (spec.md §9: model as a tagged variant at parse time, not an
// untyped dictionary threaded through the engine).
type RawChange struct {
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Operation  string          `json:"operation"`
	Payload    json.RawMessage `json:"payload"`
}

// NoteUpsertPayload is the note insert/update payload shape.
type NoteUpsertPayload struct {
	Body       string
	Importance int
	SourceURL  *string
	ImagePath  *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  *time.Time
}

// NoteDeletePayload is the note delete payload shape.
type NoteDeletePayload struct {
	DeletedAt *time.Time
}

// RelationInsertPayload is the relation insert payload shape.
type RelationInsertPayload struct {
	FromNoteID   string
	ToNoteID     string
	RelationType string
	CreatedAt    time.Time
}

// ReflectionUpsertPayload is the reflection insert/update payload shape.
type ReflectionUpsertPayload struct {
	Date      string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func decodeRaw(payload json.RawMessage) (map[string]any, error) {
	if len(payload) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, apperr.Wrap(apperr.Validation, "malformed payload", err)
	}
	return m, nil
}

func requireString(m map[string]any, field string) (string, error) {
	v, ok := m[field]
	if !ok {
		return "", apperr.New(apperr.Validation, fmt.Sprintf("missing required field %q", field))
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", apperr.New(apperr.Validation, fmt.Sprintf("field %q must be a non-empty string", field))
	}
	return s, nil
}

func requireTime(m map[string]any, field string) (time.Time, error) {
	s, err := requireString(m, field)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, apperr.New(apperr.Validation, fmt.Sprintf("field %q is not a valid timestamp", field))
		}
	}
	return t.UTC(), nil
}

func optionalTime(m map[string]any, field string) (*time.Time, error) {
	v, ok := m[field]
	if !ok || v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, apperr.New(apperr.Validation, fmt.Sprintf("field %q is not a valid timestamp", field))
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, apperr.New(apperr.Validation, fmt.Sprintf("field %q is not a valid timestamp", field))
		}
	}
	t = t.UTC()
	return &t, nil
}

func optionalString(m map[string]any, field string) *string {
	v, ok := m[field]
	if !ok || v == nil {
		return nil
	}
	if s, ok := v.(string); ok && s != "" {
		return &s
	}
	return nil
}

// ParseNoteUpsert parses a note insert/update payload.
func ParseNoteUpsert(raw json.RawMessage) (NoteUpsertPayload, error) {
	m, err := decodeRaw(raw)
	if err != nil {
		return NoteUpsertPayload{}, err
	}

	body, ok := m["body"].(string)
	if !ok {
		return NoteUpsertPayload{}, apperr.New(apperr.Validation, "missing required field \"body\"")
	}

	importanceRaw, ok := m["importance"]
	if !ok {
		return NoteUpsertPayload{}, apperr.New(apperr.Validation, "missing required field \"importance\"")
	}
	importanceF, ok := importanceRaw.(float64)
	if !ok {
		return NoteUpsertPayload{}, apperr.New(apperr.Validation, "field \"importance\" must be a number")
	}
	importance := int(importanceF)
	if importance < 1 || importance > 5 {
		return NoteUpsertPayload{}, apperr.New(apperr.Validation, "field \"importance\" must be in [1,5]")
	}

	createdAt, err := requireTime(m, "created_at")
	if err != nil {
		return NoteUpsertPayload{}, err
	}
	updatedAt, err := requireTime(m, "updated_at")
	if err != nil {
		return NoteUpsertPayload{}, err
	}
	deletedAt, err := optionalTime(m, "deleted_at")
	if err != nil {
		return NoteUpsertPayload{}, err
	}

	return NoteUpsertPayload{
		Body:       body,
		Importance: importance,
		SourceURL:  optionalString(m, "source_url"),
		ImagePath:  optionalString(m, "image_path"),
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
		DeletedAt:  deletedAt,
	}, nil
}

// ParseNoteDelete parses a note delete payload.
func ParseNoteDelete(raw json.RawMessage) (NoteDeletePayload, error) {
	m, err := decodeRaw(raw)
	if err != nil {
		return NoteDeletePayload{}, err
	}
	deletedAt, err := optionalTime(m, "deleted_at")
	if err != nil {
		return NoteDeletePayload{}, err
	}
	return NoteDeletePayload{DeletedAt: deletedAt}, nil
}

// ParseRelationInsert parses a relation insert payload.
func ParseRelationInsert(raw json.RawMessage) (RelationInsertPayload, error) {
	m, err := decodeRaw(raw)
	if err != nil {
		return RelationInsertPayload{}, err
	}
	fromID, err := requireString(m, "from_note_id")
	if err != nil {
		return RelationInsertPayload{}, err
	}
	toID, err := requireString(m, "to_note_id")
	if err != nil {
		return RelationInsertPayload{}, err
	}
	relType, err := requireString(m, "relation_type")
	if err != nil {
		return RelationInsertPayload{}, err
	}
	createdAt, err := requireTime(m, "created_at")
	if err != nil {
		return RelationInsertPayload{}, err
	}
	return RelationInsertPayload{
		FromNoteID:   fromID,
		ToNoteID:     toID,
		RelationType: relType,
		CreatedAt:    createdAt,
	}, nil
}

// ReflectionDateFromPayload extracts just the date field, used for reflection
// delete payloads (the data model keeps no deleted_at column for
// reflections, so a delete only needs the composite key's date part).
func ReflectionDateFromPayload(raw json.RawMessage) (string, error) {
	m, err := decodeRaw(raw)
	if err != nil {
		return "", err
	}
	date, err := requireString(m, "date")
	if err != nil {
		return "", err
	}
	if _, perr := time.Parse("2006-01-02", date); perr != nil {
		return "", apperr.New(apperr.Validation, "field \"date\" must be YYYY-MM-DD")
	}
	return date, nil
}

// ParseReflectionUpsert parses a reflection insert/update payload.
func ParseReflectionUpsert(raw json.RawMessage) (ReflectionUpsertPayload, error) {
	m, err := decodeRaw(raw)
	if err != nil {
		return ReflectionUpsertPayload{}, err
	}
	date, err := requireString(m, "date")
	if err != nil {
		return ReflectionUpsertPayload{}, err
	}
	if _, perr := time.Parse("2006-01-02", date); perr != nil {
		return ReflectionUpsertPayload{}, apperr.New(apperr.Validation, "field \"date\" must be YYYY-MM-DD")
	}
	content, err := requireString(m, "content")
	if err != nil {
		return ReflectionUpsertPayload{}, err
	}
	createdAt, err := requireTime(m, "created_at")
	if err != nil {
		return ReflectionUpsertPayload{}, err
	}
	updatedAt, err := requireTime(m, "updated_at")
	if err != nil {
		return ReflectionUpsertPayload{}, err
	}
	return ReflectionUpsertPayload{
		Date:      date,
		Content:   content,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}
