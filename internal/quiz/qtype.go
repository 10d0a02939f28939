package quiz

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// QType is the canonical question type. Every ingestion path (JSON, SQL
// rows) goes through ParseQType, so the legacy "multi" spelling never
// reaches code that branches on the type.
type QType string

const (
	QTypeText     QType = "text"
	QTypeNumeric  QType = "numeric"
	QTypeSingle   QType = "single"
	QTypeMultiple QType = "multiple"
	QTypeImage    QType = "image"
)

const legacyMulti = "multi"

// ParseQType canonicalizes s. Unknown values are returned lower-cased with ok=false.
func ParseQType(s string) (QType, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == legacyMulti {
		v = string(QTypeMultiple)
	}
	t := QType(v)
	switch t {
	case QTypeText, QTypeNumeric, QTypeSingle, QTypeMultiple, QTypeImage:
		return t, true
	}
	return t, false
}

// HasChoices reports whether questions of this type carry a choice set.
func (t QType) HasChoices() bool {
	return t == QTypeSingle || t == QTypeMultiple
}

func (t *QType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*t, _ = ParseQType(s)
	return nil
}

func (t *QType) Scan(src any) error {
	switch v := src.(type) {
	case string:
		*t, _ = ParseQType(v)
	case []byte:
		*t, _ = ParseQType(string(v))
	default:
		return fmt.Errorf("quiz: cannot scan %T into QType", src)
	}
	return nil
}

func (t QType) Value() (driver.Value, error) { return string(t), nil }

type Difficulty string

const (
	DifficultyEasy Difficulty = "easy"
	DifficultyMed  Difficulty = "med"
	DifficultyHard Difficulty = "hard"
)

type AttemptStatus string

const (
	StatusOpen   AttemptStatus = "open"
	StatusScored AttemptStatus = "scored"
)
