// Package imaging приводит загружаемые фотографии к JPEG data URL ограниченного размера.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"

	"chronicles/internal/domain/dataset"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const dataURLPrefix = "data:image/jpeg;base64,"

var (
	ErrEmpty       = errors.New("empty image")
	ErrUnsupported = errors.New("unsupported image format")
)

// Profile - предельная ширина и качество JPEG.
type Profile struct {
	MaxWidth int
	Quality  int
}

var (
	ProfileMemory = Profile{MaxWidth: 1600, Quality: 75}
	ProfileFlower = Profile{MaxWidth: 800, Quality: 70}
	ProfileCity   = Profile{MaxWidth: 800, Quality: 70}
	ProfileSnack  = Profile{MaxWidth: 600, Quality: 60}
	ProfileSocial = Profile{MaxWidth: 1600, Quality: 75}
)

// ProfileFor возвращает профиль сжатия для фотографий коллекции.
func ProfileFor(c dataset.Collection) Profile {
	switch c {
	case dataset.CollectionFlowers:
		return ProfileFlower
	case dataset.CollectionCities:
		return ProfileCity
	case dataset.CollectionSnacks:
		return ProfileSnack
	case dataset.CollectionSocialPosts:
		return ProfileSocial
	default:
		return ProfileMemory
	}
}

// Ingester превращает сырые байты изображения в значение поля imageUrl.
type Ingester interface {
	Ingest(raw []byte, p Profile) (string, error)
}

type JPEGIngester struct{}

func NewIngester() JPEGIngester {
	return JPEGIngester{}
}

// Ingest декодирует JPEG, PNG, GIF или WebP, уменьшает до p.MaxWidth с сохранением
// пропорций и кодирует в JPEG. Картинки уже нужной ширины не увеличиваются.
func (JPEGIngester) Ingest(raw []byte, p Profile) (string, error) {
	if len(raw) == 0 {
		return "", ErrEmpty
	}
	src, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return "", ErrUnsupported
		}
		return "", fmt.Errorf("decode image: %w", err)
	}

	dst := resize(src, p.MaxWidth)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality(p.Quality)}); err != nil {
		return "", fmt.Errorf("encode %s as jpeg: %w", format, err)
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeDataURL возвращает байты JPEG из data URL, созданного Ingest.
func DecodeDataURL(s string) ([]byte, error) {
	if !strings.HasPrefix(s, dataURLPrefix) {
		return nil, ErrUnsupported
	}
	return base64.StdEncoding.DecodeString(strings.TrimPrefix(s, dataURLPrefix))
}

func resize(src image.Image, maxWidth int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxWidth > 0 && w > maxWidth {
		h = h * maxWidth / w
		w = maxWidth
		if h < 1 {
			h = 1
		}
	}

	// JPEG без альфы: прозрачное ложится на белый фон
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}

func quality(q int) int {
	switch {
	case q <= 0:
		return jpeg.DefaultQuality
	case q > 100:
		return 100
	}
	return q
}
