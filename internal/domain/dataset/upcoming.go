package dataset

import (
	"sort"
	"time"
)

// Occasion - памятная дата с обратным отсчетом до ближайшей годовщины.
type Occasion struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Date      string `json:"date"`
	Type      string `json:"type"`
	Next      string `json:"next"`
	DaysUntil int    `json:"daysUntil"`
	// Age заполняется только для дней рождения.
	Age int `json:"age,omitempty"`
}

// Upcoming считает, сколько дней осталось до следующего повторения каждой даты.
// Отсчет идет по календарным дням: время суток now не учитывается, сегодняшняя дата дает 0.
// 29 февраля в невисокосный год переходит на 1 марта.
// Даты, которые не разбираются как YYYY-MM-DD, пропускаются.
func Upcoming(dates []SpecialDate, now time.Time) []Occasion {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	out := make([]Occasion, 0, len(dates))
	for _, sd := range dates {
		orig, err := time.Parse(time.DateOnly, sd.Date)
		if err != nil {
			continue
		}

		next := time.Date(today.Year(), orig.Month(), orig.Day(), 0, 0, 0, 0, time.UTC)
		if next.Before(today) {
			next = time.Date(today.Year()+1, next.Month(), next.Day(), 0, 0, 0, 0, time.UTC)
		}

		o := Occasion{
			ID:        sd.ID,
			Title:     sd.Title,
			Date:      sd.Date,
			Type:      sd.Type,
			Next:      next.Format(time.DateOnly),
			DaysUntil: int(next.Sub(today).Hours() / 24),
		}
		if sd.Type == DateTypeBirthday {
			o.Age = ageAt(orig, today)
		}
		out = append(out, o)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].DaysUntil < out[j].DaysUntil })
	return out
}

func ageAt(birth, today time.Time) int {
	age := today.Year() - birth.Year()
	if today.Month() < birth.Month() || (today.Month() == birth.Month() && today.Day() < birth.Day()) {
		age--
	}
	return age
}
