package dataset

import (
	"encoding/json"
	"fmt"
	"time"
)

const backupFilePrefix = "our_chronicles_backup_"

// Export - документ резервной копии: все коллекции и момент выгрузки.
type Export struct {
	Dataset
	ExportDate string `json:"exportDate"`
}

func NewExport(d Dataset, now time.Time) Export {
	e := Export{Dataset: d.Clone(), ExportDate: FormatTime(now)}
	e.Normalize()
	return e
}

// FileName - имя файла по умолчанию, например our_chronicles_backup_2024-02-14.json.
func (e Export) FileName() string {
	day := e.ExportDate
	if t, err := time.Parse(time.RFC3339, e.ExportDate); err == nil {
		day = t.Format(time.DateOnly)
	} else if len(day) >= 10 {
		day = day[:10]
	}
	return backupFilePrefix + day + ".json"
}

func (e Export) Encode() ([]byte, error) {
	return json.MarshalIndent(e, "", "  ")
}

// Import - разобранный файл резервной копии. nil-поле значит, что коллекции в файле нет.
type Import struct {
	Memories    *[]Memory      `json:"memories"`
	Flowers     *[]Flower      `json:"flowers"`
	Todos       *[]Todo        `json:"todos"`
	Snacks      *[]Snack       `json:"snacks"`
	Cities      *[]CityVisit   `json:"cities"`
	Dates       *[]SpecialDate `json:"dates"`
	SocialPosts *[]SocialPost  `json:"socialPosts"`
	ExportDate  string         `json:"exportDate,omitempty"`
}

// ParseImport разбирает файл и валидирует все присутствующие коллекции.
func ParseImport(raw []byte) (*Import, error) {
	var imp Import
	if err := json.Unmarshal(raw, &imp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(imp.Collections()) == 0 {
		return nil, fmt.Errorf("%w: no collections in file", ErrMalformed)
	}
	var staged Dataset
	imp.ApplyTo(&staged)
	if err := Validate(staged); err != nil {
		return nil, err
	}
	return &imp, nil
}

// Collections перечисляет коллекции, присутствующие в файле.
func (imp Import) Collections() []Collection {
	var present []Collection
	for _, c := range Collections {
		if imp.has(c) {
			present = append(present, c)
		}
	}
	return present
}

// ApplyTo целиком заменяет присутствующие в файле коллекции, остальные не трогает.
func (imp Import) ApplyTo(d *Dataset) []Collection {
	if imp.Memories != nil {
		d.Memories = cloneOrEmpty(*imp.Memories)
	}
	if imp.Flowers != nil {
		d.Flowers = cloneOrEmpty(*imp.Flowers)
	}
	if imp.Todos != nil {
		d.Todos = cloneOrEmpty(*imp.Todos)
	}
	if imp.Snacks != nil {
		d.Snacks = cloneOrEmpty(*imp.Snacks)
	}
	if imp.Cities != nil {
		d.Cities = cloneOrEmpty(*imp.Cities)
	}
	if imp.Dates != nil {
		d.Dates = cloneOrEmpty(*imp.Dates)
	}
	if imp.SocialPosts != nil {
		d.SocialPosts = cloneOrEmpty(*imp.SocialPosts)
	}
	return imp.Collections()
}

func (imp Import) has(c Collection) bool {
	switch c {
	case CollectionMemories:
		return imp.Memories != nil
	case CollectionFlowers:
		return imp.Flowers != nil
	case CollectionTodos:
		return imp.Todos != nil
	case CollectionSnacks:
		return imp.Snacks != nil
	case CollectionCities:
		return imp.Cities != nil
	case CollectionDates:
		return imp.Dates != nil
	case CollectionSocialPosts:
		return imp.SocialPosts != nil
	}
	return false
}

func cloneOrEmpty[T any](items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	return out
}
