package dataset

import (
	"reflect"
	"time"
)

// Merge сводит локальный набор с облачным снимком при входе.
//
// Без облака результат равен локальному набору со штампом now. Иначе в каждой
// коллекции сначала идут все облачные записи, затем локальные, чьих id в облаке нет.
// При совпадении id побеждает облачная версия, локальные правки такой записи теряются.
func Merge(local Dataset, remote *Snapshot, now time.Time) Snapshot {
	if remote == nil {
		return NewSnapshot(local, now)
	}

	merged := Snapshot{
		SchemaVersion: SchemaVersion,
		Dataset: Dataset{
			Memories:    mergeByID(local.Memories, remote.Memories),
			Flowers:     mergeByID(local.Flowers, remote.Flowers),
			Todos:       mergeByID(local.Todos, remote.Todos),
			Snacks:      mergeByID(local.Snacks, remote.Snacks),
			Cities:      mergeByID(local.Cities, remote.Cities),
			Dates:       mergeByID(local.Dates, remote.Dates),
			SocialPosts: mergeByID(local.SocialPosts, remote.SocialPosts),
		},
		LastSyncTime: remote.LastSyncTime,
	}
	if merged.LastSyncTime == "" {
		merged.LastSyncTime = FormatTime(now)
	}
	return merged
}

func mergeByID[T Record](local, remote []T) []T {
	out := make([]T, 0, len(remote)+len(local))
	seen := make(map[string]struct{}, len(remote))
	for _, rec := range remote {
		out = append(out, rec)
		seen[rec.RecordID()] = struct{}{}
	}
	for _, rec := range local {
		if _, ok := seen[rec.RecordID()]; !ok {
			out = append(out, rec)
		}
	}
	return out
}

// Diff - расхождение одной коллекции между локальным и облачным наборами.
type Diff struct {
	Collection Collection `json:"collection"`
	RemoteOnly int        `json:"remoteOnly"`
	LocalOnly  int        `json:"localOnly"`
	Changed    int        `json:"changed"`
	Same       int        `json:"same"`
}

func (d Diff) InSync() bool {
	return d.RemoteOnly == 0 && d.LocalOnly == 0 && d.Changed == 0
}

// Compare считает расхождения по id для выбора между облачной и локальной копией.
func Compare(local, remote Dataset) []Diff {
	return []Diff{
		diffByID(CollectionMemories, local.Memories, remote.Memories),
		diffByID(CollectionFlowers, local.Flowers, remote.Flowers),
		diffByID(CollectionTodos, local.Todos, remote.Todos),
		diffByID(CollectionSnacks, local.Snacks, remote.Snacks),
		diffByID(CollectionCities, local.Cities, remote.Cities),
		diffByID(CollectionDates, local.Dates, remote.Dates),
		diffByID(CollectionSocialPosts, local.SocialPosts, remote.SocialPosts),
	}
}

func diffByID[T Record](c Collection, local, remote []T) Diff {
	d := Diff{Collection: c}
	byID := make(map[string]T, len(remote))
	for _, rec := range remote {
		byID[rec.RecordID()] = rec
	}
	for _, rec := range local {
		other, ok := byID[rec.RecordID()]
		switch {
		case !ok:
			d.LocalOnly++
		case reflect.DeepEqual(rec, other):
			d.Same++
		default:
			d.Changed++
		}
		delete(byID, rec.RecordID())
	}
	d.RemoteOnly = len(byID)
	return d
}
