package dataset

// Record - общий контракт записи любой коллекции.
type Record interface {
	RecordID() string
}

// Memory - воспоминание на таймлайне.
type Memory struct {
	ID          string   `json:"id" validate:"required"`
	Title       string   `json:"title" validate:"required"`
	Date        string   `json:"date" validate:"required"`
	Description string   `json:"description"`
	ImageURL    string   `json:"imageUrl"`
	Images      []string `json:"images,omitempty"`
	Location    string   `json:"location"`
	Tags        []string `json:"tags"`
	Mood        string   `json:"mood,omitempty"`
}

func (m Memory) RecordID() string { return m.ID }

// Photos возвращает все изображения воспоминания, включая обложку.
func (m Memory) Photos() []string {
	photos := make([]string, 0, len(m.Images)+1)
	if m.ImageURL != "" {
		photos = append(photos, m.ImageURL)
	}
	for _, img := range m.Images {
		if img != "" && img != m.ImageURL {
			photos = append(photos, img)
		}
	}
	return photos
}

type Flower struct {
	ID       string `json:"id" validate:"required"`
	ImageURL string `json:"imageUrl"`
	Date     string `json:"date"`
	Note     string `json:"note"`
}

func (f Flower) RecordID() string { return f.ID }

type Todo struct {
	ID        string `json:"id" validate:"required"`
	Text      string `json:"text" validate:"required"`
	Completed bool   `json:"completed"`
}

func (t Todo) RecordID() string { return t.ID }

type Snack struct {
	ID       string  `json:"id" validate:"required"`
	ImageURL string  `json:"imageUrl"`
	Date     string  `json:"date"`
	Name     string  `json:"name" validate:"required"`
	Rating   float64 `json:"rating" validate:"gte=0,lte=5"`
	Note     string  `json:"note"`
}

func (s Snack) RecordID() string { return s.ID }

type CityVisit struct {
	ID       string `json:"id" validate:"required"`
	City     string `json:"city" validate:"required"`
	Date     string `json:"date"`
	Notes    string `json:"notes"`
	ImageURL string `json:"imageUrl,omitempty"`
}

func (c CityVisit) RecordID() string { return c.ID }

// SpecialDate - день рождения, годовщина и т.п.
type SpecialDate struct {
	ID    string `json:"id" validate:"required"`
	Title string `json:"title" validate:"required"`
	Date  string `json:"date" validate:"required"`
	Type  string `json:"type"`
}

func (s SpecialDate) RecordID() string { return s.ID }

const (
	DateTypeBirthday    = "birthday"
	DateTypeAnniversary = "anniversary"
)

// SocialPost - вырезка из соцсети (douyin или weibo).
type SocialPost struct {
	ID          string `json:"id" validate:"required"`
	Platform    string `json:"platform" validate:"required,oneof=douyin weibo"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	CoverImage  string `json:"coverImage,omitempty"`
	Screenshot  string `json:"screenshot,omitempty"`
	Date        string `json:"date"`
	Description string `json:"description,omitempty"`
}

func (s SocialPost) RecordID() string { return s.ID }
