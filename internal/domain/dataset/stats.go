package dataset

import (
	"sort"
	"time"
)

const maxCategories = 5

type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

type Category struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Stats - сводка для дашборда.
type Stats struct {
	TotalPhotos     int                `json:"totalPhotos"`
	CitiesVisited   int                `json:"citiesVisited"`
	DaysTogether    int                `json:"daysTogether"`
	Since           string             `json:"since,omitempty"`
	MonthlyActivity []MonthCount       `json:"monthlyActivity"`
	Categories      []Category         `json:"categories"`
	Upcoming        []Occasion         `json:"upcoming"`
	Counts          map[Collection]int `json:"counts"`
}

// ComputeStats считает сводку на момент now.
func ComputeStats(d Dataset, now time.Time) Stats {
	st := Stats{Counts: make(map[Collection]int, len(Collections))}
	for _, c := range Collections {
		st.Counts[c] = d.Len(c)
	}

	for _, m := range d.Memories {
		st.TotalPhotos += len(m.Photos())
	}
	for _, f := range d.Flowers {
		if f.ImageURL != "" {
			st.TotalPhotos++
		}
	}
	for _, s := range d.Snacks {
		if s.ImageURL != "" {
			st.TotalPhotos++
		}
	}
	for _, c := range d.Cities {
		if c.ImageURL != "" {
			st.TotalPhotos++
		}
	}
	for _, p := range d.SocialPosts {
		if p.Screenshot != "" {
			st.TotalPhotos++
		}
	}

	cities := make(map[string]struct{}, len(d.Cities))
	for _, c := range d.Cities {
		cities[c.City] = struct{}{}
	}
	st.CitiesVisited = len(cities)

	if since, ok := togetherSince(d.Dates); ok {
		st.Since = since.Format(time.DateOnly)
		if days := int(now.Sub(since).Hours() / 24); days > 0 {
			st.DaysTogether = days
		}
	}

	st.MonthlyActivity = monthlyActivity(d.Memories, now)
	st.Categories = topTags(d.Memories)
	st.Upcoming = Upcoming(d.Dates, now)
	return st
}

// togetherSince - самая ранняя годовщина.
func togetherSince(dates []SpecialDate) (time.Time, bool) {
	var since time.Time
	for _, sd := range dates {
		if sd.Type != DateTypeAnniversary {
			continue
		}
		t, err := time.Parse(time.DateOnly, sd.Date)
		if err != nil {
			continue
		}
		if since.IsZero() || t.Before(since) {
			since = t
		}
	}
	return since, !since.IsZero()
}

// monthlyActivity - число воспоминаний за последние 12 месяцев, от старых к новым.
func monthlyActivity(memories []Memory, now time.Time) []MonthCount {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -11, 0)
	out := make([]MonthCount, 12)
	index := make(map[string]int, 12)
	for i := range out {
		key := start.AddDate(0, i, 0).Format("2006-01")
		out[i] = MonthCount{Month: key}
		index[key] = i
	}
	for _, m := range memories {
		if len(m.Date) < 7 {
			continue
		}
		if i, ok := index[m.Date[:7]]; ok {
			out[i].Count++
		}
	}
	return out
}

func topTags(memories []Memory) []Category {
	counts := map[string]int{}
	for _, m := range memories {
		for _, tag := range m.Tags {
			counts[tag]++
		}
	}
	cats := make([]Category, 0, len(counts))
	for name, n := range counts {
		cats = append(cats, Category{Name: name, Value: n})
	}
	sort.Slice(cats, func(i, j int) bool {
		if cats[i].Value != cats[j].Value {
			return cats[i].Value > cats[j].Value
		}
		return cats[i].Name < cats[j].Name
	})
	if len(cats) > maxCategories {
		cats = cats[:maxCategories]
	}
	return cats
}
