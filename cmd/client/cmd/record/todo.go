package record

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"chronicles/cmd/client/cmd/types"
	"chronicles/cmd/client/cmd/ui"
	"chronicles/internal/app/client/imaging"
	"chronicles/internal/domain/dataset"

	"github.com/spf13/cobra"
)

var TodoCmd = &cobra.Command{
	Use:   "todo",
	Short: "Список дел пары",
}

var todoDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Отметить дело выполненным (повторно - снять отметку)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.AppFrom(cmd)
		if err != nil {
			return err
		}

		var done bool
		err = app.Sync().Mutate(cmd.Context(), dataset.CollectionTodos, func(d *dataset.Dataset) error {
			rec, ok := d.Get(dataset.CollectionTodos, args[0])
			if !ok {
				return fmt.Errorf("%w: todos/%s", dataset.ErrRecordNotFound, args[0])
			}
			done = !rec.(dataset.Todo).Completed
			return d.Patch(dataset.CollectionTodos, args[0], []byte(fmt.Sprintf(`{"completed":%t}`, done)))
		})
		if err != nil {
			return err
		}
		if done {
			ui.Success("Выполнено: %s", args[0])
		} else {
			ui.Success("Снова в планах: %s", args[0])
		}
		return nil
	},
}

var MemoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Воспоминания на таймлайне",
}

var memoryFlags struct {
	title       string
	date        string
	description string
	location    string
	tags        []string
	mood        string
	image       string
}

var memoryAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Добавить воспоминание",
	Example: `  chronicles memory add --title "攀登黄山" --date 2023-06-20 --location "安徽, 黄山" \
    --tags 冒险,自然 --mood adventure --image ./huangshan.jpg`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.AppFrom(cmd)
		if err != nil {
			return err
		}

		m := dataset.Memory{
			Title:       memoryFlags.title,
			Date:        memoryFlags.date,
			Description: memoryFlags.description,
			Location:    memoryFlags.location,
			Tags:        memoryFlags.tags,
			Mood:        memoryFlags.mood,
		}
		if m.Date == "" {
			m.Date = time.Now().Format(time.DateOnly)
		}
		if m.Tags == nil {
			m.Tags = []string{}
		}
		if memoryFlags.image != "" {
			raw, err := os.ReadFile(memoryFlags.image)
			if err != nil {
				return fmt.Errorf("чтение изображения: %w", err)
			}
			m.ImageURL, err = app.Ingester().Ingest(raw, imaging.ProfileMemory)
			if err != nil {
				return fmt.Errorf("обработка изображения: %w", err)
			}
		}

		payload, err := json.Marshal(m)
		if err != nil {
			return err
		}

		var id string
		err = app.Sync().Mutate(cmd.Context(), dataset.CollectionMemories, func(d *dataset.Dataset) error {
			var upErr error
			id, _, upErr = d.Upsert(dataset.CollectionMemories, payload)
			return upErr
		})
		if err != nil {
			return err
		}
		ui.Success("Воспоминание добавлено: %s (%s)", strings.TrimSpace(m.Title), id)
		return nil
	},
}

func init() {
	TodoCmd.AddCommand(todoDoneCmd)
	MemoryCmd.AddCommand(memoryAddCmd)

	f := memoryAddCmd.Flags()
	f.StringVar(&memoryFlags.title, "title", "", "заголовок")
	f.StringVar(&memoryFlags.date, "date", "", "дата YYYY-MM-DD (по умолчанию сегодня)")
	f.StringVar(&memoryFlags.description, "desc", "", "описание")
	f.StringVar(&memoryFlags.location, "location", "", "место")
	f.StringSliceVar(&memoryFlags.tags, "tags", nil, "теги через запятую")
	f.StringVar(&memoryFlags.mood, "mood", "", "настроение: romantic, adventure, cozy, funny")
	f.StringVar(&memoryFlags.image, "image", "", "фото (JPEG, PNG, GIF, WebP)")
	_ = memoryAddCmd.MarkFlagRequired("title")
}
