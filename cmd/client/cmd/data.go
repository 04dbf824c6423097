package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"chronicles/cmd/client/cmd/types"
	"chronicles/cmd/client/cmd/ui"
	"chronicles/internal/app/client"
	"chronicles/internal/domain/dataset"

	"github.com/spf13/cobra"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Сохранить резервную копию всех коллекций в JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.AppFrom(cmd)
		if err != nil {
			return err
		}

		exp := app.Sync().Export()
		raw, err := exp.Encode()
		if err != nil {
			return fmt.Errorf("ошибка экспорта: %w", err)
		}

		path := exportOut
		if path == "" {
			path = exp.FileName()
		}
		if path == "-" {
			_, err := os.Stdout.Write(append(raw, '\n'))
			return err
		}
		if err := os.WriteFile(path, raw, 0o600); err != nil {
			return fmt.Errorf("ошибка записи %s: %w", path, err)
		}
		ui.Success("Резервная копия сохранена: %s", path)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Восстановить коллекции из резервной копии",
	Long: `Заменяет коллекции, которые есть в файле. Коллекции, которых в файле нет,
остаются без изменений.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.AppFrom(cmd)
		if err != nil {
			return err
		}

		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("ошибка чтения %s: %w", args[0], err)
		}
		imp, err := dataset.ParseImport(raw)
		if err != nil {
			return fmt.Errorf("файл %s не подходит: %w", filepath.Base(args[0]), err)
		}

		names := make([]string, 0, len(imp.Collections()))
		for _, c := range imp.Collections() {
			names = append(names, string(c))
		}
		if err := ui.Confirm("Импортировать данные?", "Будут заменены коллекции: "+strings.Join(names, ", ")); err != nil {
			return err
		}

		applied, err := app.Sync().Import(cmd.Context(), raw)
		if err != nil {
			return err
		}
		ui.Success("Импортировано коллекций: %d", len(applied))
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Сводка: фото, города, дни вместе, активность",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.AppFrom(cmd)
		if err != nil {
			return err
		}

		st := dataset.ComputeStats(app.Sync().Data(), time.Now())
		if ui.JSONOutput {
			return ui.JSON(st)
		}

		ui.Info("Фотографий:      %d", st.TotalPhotos)
		ui.Info("Городов:         %d", st.CitiesVisited)
		ui.Info("Дней вместе:     %d", st.DaysTogether)
		if st.Since != "" {
			ui.Info("Вместе с:        %s", st.Since)
		}
		ui.Info("")
		for _, c := range dataset.Collections {
			ui.Info("  %-12s %d", c, st.Counts[c])
		}
		ui.Info("")
		ui.Info("Активность по месяцам:")
		for _, m := range st.MonthlyActivity {
			ui.Info("  %s  %s %d", m.Month, strings.Repeat("■", m.Count), m.Count)
		}
		if len(st.Upcoming) > 0 {
			ui.Info("")
			ui.Info("Ближайшие даты:")
			for _, o := range st.Upcoming {
				line := fmt.Sprintf("  %s  %s", o.Next, o.Title)
				if o.Age > 0 {
					line += fmt.Sprintf(" (%d)", o.Age)
				}
				if o.DaysUntil == 0 {
					line += "  сегодня!"
				} else {
					line += fmt.Sprintf("  через %d дн.", o.DaysUntil)
				}
				ui.Info("%s", line)
			}
		}
		if len(st.Categories) > 0 {
			ui.Info("")
			ui.Info("Чаще всего:")
			for _, c := range st.Categories {
				ui.Info("  #%s  %d", c.Name, c.Value)
			}
		}
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Держать синхронизацию запущенной",
	Long: `Следит за доступностью сервера и за локальным хранилищем. Изменения,
сделанные другими командами, отправляются в облако после паузы.
Ctrl+C отправляет отложенные изменения и завершает работу.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.AppFrom(cmd)
		if err != nil {
			return err
		}
		if !app.IsAuthenticated() {
			ui.Warn("Вход не выполнен: изменения будут только локальными")
		}

		app.Sync().OnStatus(func(ev client.StatusEvent) {
			ui.Info("%s  %s", time.Now().Format(time.TimeOnly), ui.StatusLine(ev.Status, ev.Message))
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ui.Info("Наблюдение запущено, Ctrl+C для выхода")
		return app.Watch(ctx)
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "файл (по умолчанию our_chronicles_backup_<дата>.json, - для stdout)")
}
