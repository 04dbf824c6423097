package dataset

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// Collection - имя одной из семи коллекций набора данных.
type Collection string

const (
	CollectionMemories    Collection = "memories"
	CollectionFlowers     Collection = "flowers"
	CollectionTodos       Collection = "todos"
	CollectionSnacks      Collection = "snacks"
	CollectionCities      Collection = "cities"
	CollectionDates       Collection = "dates"
	CollectionSocialPosts Collection = "socialPosts"
)

// Collections перечисляет коллекции в каноническом порядке.
var Collections = []Collection{
	CollectionMemories,
	CollectionFlowers,
	CollectionTodos,
	CollectionSnacks,
	CollectionCities,
	CollectionDates,
	CollectionSocialPosts,
}

// ParseCollection принимает имя коллекции, как оно пишется в JSON, либо короткие синонимы CLI.
func ParseCollection(name string) (Collection, error) {
	switch name {
	case "memories", "memory":
		return CollectionMemories, nil
	case "flowers", "flower":
		return CollectionFlowers, nil
	case "todos", "todo":
		return CollectionTodos, nil
	case "snacks", "snack":
		return CollectionSnacks, nil
	case "cities", "city":
		return CollectionCities, nil
	case "dates", "date":
		return CollectionDates, nil
	case "socialPosts", "social", "posts", "social-posts":
		return CollectionSocialPosts, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCollection, name)
}

// StorageKey - версионированный ключ коллекции в локальном хранилище.
// Смена суффикса версии оставляет старые данные осиротевшими, миграции нет.
func (c Collection) StorageKey() string {
	if a, ok := accessors[c]; ok {
		return a.key
	}
	return ""
}

// Dataset - семь упорядоченных коллекций. Новые записи добавляются в начало.
type Dataset struct {
	Memories    []Memory      `json:"memories" validate:"dive"`
	Flowers     []Flower      `json:"flowers" validate:"dive"`
	Todos       []Todo        `json:"todos" validate:"dive"`
	Snacks      []Snack       `json:"snacks" validate:"dive"`
	Cities      []CityVisit   `json:"cities" validate:"dive"`
	Dates       []SpecialDate `json:"dates" validate:"dive"`
	SocialPosts []SocialPost  `json:"socialPosts" validate:"dive"`
}

// Normalize заменяет nil-коллекции пустыми.
func (d *Dataset) Normalize() {
	for _, c := range Collections {
		accessors[c].normalize(d)
	}
}

// Clone возвращает копию с собственными слайсами коллекций.
// Записи считаются неизменяемыми значениями: изменение всегда заменяет запись целиком.
func (d Dataset) Clone() Dataset {
	out := d
	for _, c := range Collections {
		accessors[c].clone(&out)
	}
	return out
}

func (d Dataset) Len(c Collection) int {
	a, ok := accessors[c]
	if !ok {
		return 0
	}
	return a.len(&d)
}

// Items возвращает слайс записей коллекции (типизированный, например []Todo).
func (d Dataset) Items(c Collection) any {
	a, ok := accessors[c]
	if !ok {
		return nil
	}
	return a.items(&d)
}

func (d Dataset) Get(c Collection, id string) (any, bool) {
	a, ok := accessors[c]
	if !ok {
		return nil, false
	}
	return a.get(&d, id)
}

// MarshalCollection сериализует одну коллекцию (пустую как []).
func (d Dataset) MarshalCollection(c Collection) ([]byte, error) {
	a, ok := accessors[c]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, c)
	}
	return a.marshal(&d)
}

// UnmarshalCollection заменяет коллекцию содержимым raw.
func (d *Dataset) UnmarshalCollection(c Collection, raw []byte) error {
	a, ok := accessors[c]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, c)
	}
	return a.unmarshal(d, raw)
}

// Upsert разбирает запись из JSON, валидирует её и вставляет в начало коллекции.
// Запись без id получает новый UUID; запись с существующим id заменяет старую на том же месте.
func (d *Dataset) Upsert(c Collection, raw []byte) (id string, created bool, err error) {
	a, ok := accessors[c]
	if !ok {
		return "", false, fmt.Errorf("%w: %q", ErrUnknownCollection, c)
	}
	return a.upsert(d, raw)
}

// Patch накладывает поля raw на существующую запись. id не меняется.
func (d *Dataset) Patch(c Collection, id string, raw []byte) error {
	a, ok := accessors[c]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, c)
	}
	return a.patch(d, id, raw)
}

func (d *Dataset) Remove(c Collection, id string) bool {
	a, ok := accessors[c]
	if !ok {
		return false
	}
	return a.remove(d, id)
}

// Replace копирует коллекцию c из src.
func (d *Dataset) Replace(c Collection, src Dataset) {
	if a, ok := accessors[c]; ok {
		a.copy(d, &src)
	}
}

type accessor struct {
	key       string
	normalize func(d *Dataset)
	clone     func(d *Dataset)
	copy      func(dst, src *Dataset)
	len       func(d *Dataset) int
	items     func(d *Dataset) any
	get       func(d *Dataset, id string) (any, bool)
	marshal   func(d *Dataset) ([]byte, error)
	unmarshal func(d *Dataset, raw []byte) error
	upsert    func(d *Dataset, raw []byte) (string, bool, error)
	patch     func(d *Dataset, id string, raw []byte) error
	remove    func(d *Dataset, id string) bool
	unique    func(d *Dataset) error
}

var accessors = map[Collection]accessor{
	CollectionMemories:    bind(CollectionMemories, "chronicles_memories_v2", func(d *Dataset) *[]Memory { return &d.Memories }),
	CollectionFlowers:     bind(CollectionFlowers, "chronicles_flowers_v2", func(d *Dataset) *[]Flower { return &d.Flowers }),
	CollectionTodos:       bind(CollectionTodos, "chronicles_todos_v2", func(d *Dataset) *[]Todo { return &d.Todos }),
	CollectionSnacks:      bind(CollectionSnacks, "chronicles_snacks_v1", func(d *Dataset) *[]Snack { return &d.Snacks }),
	CollectionCities:      bind(CollectionCities, "chronicles_cities_v1", func(d *Dataset) *[]CityVisit { return &d.Cities }),
	CollectionDates:       bind(CollectionDates, "chronicles_dates_v1", func(d *Dataset) *[]SpecialDate { return &d.Dates }),
	CollectionSocialPosts: bind(CollectionSocialPosts, "chronicles_social_posts_v1", func(d *Dataset) *[]SocialPost { return &d.SocialPosts }),
}

func bind[T Record](c Collection, key string, field func(*Dataset) *[]T) accessor {
	return accessor{
		key: key,
		normalize: func(d *Dataset) {
			if *field(d) == nil {
				*field(d) = []T{}
			}
		},
		clone: func(d *Dataset) {
			if items := *field(d); items != nil {
				*field(d) = slices.Clone(items)
			}
		},
		copy: func(dst, src *Dataset) {
			items := *field(src)
			if items == nil {
				items = []T{}
			}
			*field(dst) = slices.Clone(items)
		},
		len:   func(d *Dataset) int { return len(*field(d)) },
		items: func(d *Dataset) any { return *field(d) },
		get: func(d *Dataset, id string) (any, bool) {
			idx := indexOf(*field(d), id)
			if idx < 0 {
				return nil, false
			}
			return (*field(d))[idx], true
		},
		marshal: func(d *Dataset) ([]byte, error) {
			items := *field(d)
			if items == nil {
				items = []T{}
			}
			return json.Marshal(items)
		},
		unmarshal: func(d *Dataset, raw []byte) error {
			var items []T
			if err := json.Unmarshal(raw, &items); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrMalformed, c, err)
			}
			if items == nil {
				items = []T{}
			}
			*field(d) = items
			return nil
		},
		upsert: func(d *Dataset, raw []byte) (string, bool, error) {
			rec, err := decodeRecord[T](raw, "")
			if err != nil {
				return "", false, fmt.Errorf("%s: %w", c, err)
			}
			var created bool
			*field(d), created = upsert(*field(d), rec)
			return rec.RecordID(), created, nil
		},
		patch: func(d *Dataset, id string, raw []byte) error {
			items := *field(d)
			idx := indexOf(items, id)
			if idx < 0 {
				return fmt.Errorf("%w: %s/%s", ErrRecordNotFound, c, id)
			}
			merged, err := overlay(items[idx], raw)
			if err != nil {
				return fmt.Errorf("%s: %w", c, err)
			}
			rec, err := decodeRecord[T](merged, id)
			if err != nil {
				return fmt.Errorf("%s: %w", c, err)
			}
			*field(d), _ = upsert(items, rec)
			return nil
		},
		remove: func(d *Dataset, id string) bool {
			var removed bool
			*field(d), removed = remove(*field(d), id)
			return removed
		},
		unique: func(d *Dataset) error {
			seen := make(map[string]struct{}, len(*field(d)))
			for _, rec := range *field(d) {
				if _, dup := seen[rec.RecordID()]; dup {
					return fmt.Errorf("%w: %s/%s", ErrDuplicateID, c, rec.RecordID())
				}
				seen[rec.RecordID()] = struct{}{}
			}
			return nil
		},
	}
}

func indexOf[T Record](items []T, id string) int {
	return slices.IndexFunc(items, func(rec T) bool { return rec.RecordID() == id })
}

// upsert не трогает исходный слайс: на замену делается копия.
func upsert[T Record](items []T, rec T) ([]T, bool) {
	if idx := indexOf(items, rec.RecordID()); idx >= 0 {
		out := slices.Clone(items)
		out[idx] = rec
		return out, false
	}
	out := make([]T, 0, len(items)+1)
	out = append(out, rec)
	return append(out, items...), true
}

func remove[T Record](items []T, id string) ([]T, bool) {
	idx := indexOf(items, id)
	if idx < 0 {
		return items, false
	}
	out := make([]T, 0, len(items)-1)
	out = append(out, items[:idx]...)
	return append(out, items[idx+1:]...), true
}

// decodeRecord разбирает запись, при необходимости выставляя id, и валидирует её.
// forceID != "" фиксирует id (используется при обновлении).
func decodeRecord[T Record](raw []byte, forceID string) (T, error) {
	var zero T

	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	switch {
	case forceID != "":
		fields["id"] = forceID
	case fields["id"] == nil || fields["id"] == "":
		fields["id"] = uuid.NewString()
	}

	normalized, err := json.Marshal(fields)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	var rec T
	if err := json.Unmarshal(normalized, &rec); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if err := validate.Struct(rec); err != nil {
		return zero, fmt.Errorf("%w: %s", ErrInvalidRecord, describe(err))
	}
	return rec, nil
}

func overlay(current any, patch []byte) ([]byte, error) {
	base, err := json.Marshal(current)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, err
	}
	changes := map[string]any{}
	if err := json.Unmarshal(patch, &changes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	for k, v := range changes {
		fields[k] = v
	}
	return json.Marshal(fields)
}
