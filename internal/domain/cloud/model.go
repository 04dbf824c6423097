package cloud

import (
	"encoding/json"
	"time"
)

const keyPrefix = "user:"

// Key - ключ снимка семьи в хранилище. Пространства имен разных пользователей не пересекаются.
func Key(username string) string {
	return keyPrefix + username
}

// LoadResult - сохраненный снимок пользователя.
type LoadResult struct {
	Data      json.RawMessage
	Timestamp time.Time
}
