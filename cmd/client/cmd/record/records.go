package record

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"chronicles/internal/domain/dataset"

	"github.com/spf13/cobra"
)

// RecordCmd - родительская команда для всех операций с записями
var RecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Операции с записями коллекций",
	Long: `Коллекции: memories, flowers, todos, snacks, cities, dates, socialPosts.
Записи передаются в JSON; новая запись без id получает UUID и встает в начало.`,
}

// readPayload берет JSON из аргумента или из stdin, если аргумент "-" или отсутствует.
func readPayload(args []string, idx int) ([]byte, error) {
	if len(args) > idx && args[idx] != "-" {
		return []byte(args[idx]), nil
	}
	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("чтение stdin: %w", err)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, fmt.Errorf("пустой JSON")
	}
	return raw, nil
}

// summary - короткое описание записи для таблицы.
func summary(rec any) (title, date string) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return "", ""
	}
	fields := map[string]any{}
	_ = json.Unmarshal(raw, &fields)

	for _, key := range []string{"title", "text", "name", "city", "note", "url"} {
		if s, ok := fields[key].(string); ok && s != "" {
			title = s
			break
		}
	}
	if s, ok := fields["date"].(string); ok {
		date = s
	}
	if done, ok := fields["completed"].(bool); ok {
		mark := "[ ]"
		if done {
			mark = "[x]"
		}
		title = mark + " " + title
	}
	return title, date
}

func parseCollection(name string) (dataset.Collection, error) {
	return dataset.ParseCollection(name)
}
