package dataset

import (
	"encoding/json"
	"fmt"
	"time"
)

// SchemaVersion - текущая версия формата снимка в облаке.
// Снимки без поля schemaVersion считаются версией 1.
const SchemaVersion = 1

// Snapshot - набор данных вместе с моментом последней синхронизации.
type Snapshot struct {
	SchemaVersion int `json:"schemaVersion,omitempty"`
	Dataset
	LastSyncTime string `json:"lastSyncTime,omitempty"`
}

// NewSnapshot штампует копию набора данных временем at.
func NewSnapshot(d Dataset, at time.Time) Snapshot {
	s := Snapshot{
		SchemaVersion: SchemaVersion,
		Dataset:       d.Clone(),
		LastSyncTime:  FormatTime(at),
	}
	s.Normalize()
	return s
}

// Encode сериализует снимок в формат облака.
func (s Snapshot) Encode() ([]byte, error) {
	if s.SchemaVersion == 0 {
		s.SchemaVersion = SchemaVersion
	}
	s.Normalize()
	return json.Marshal(s)
}

// DecodeSnapshot разбирает и валидирует снимок, пришедший извне.
// Некорректные данные отклоняются целиком, чтобы не испортить набор в памяти.
func DecodeSnapshot(raw []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if s.SchemaVersion == 0 {
		s.SchemaVersion = 1
	}
	if s.SchemaVersion > SchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, s.SchemaVersion)
	}
	s.Normalize()
	if err := Validate(s.Dataset); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return &s, nil
}

// FormatTime - ISO-8601 в UTC с миллисекундами, как toISOString().
func FormatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
