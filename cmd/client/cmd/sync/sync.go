package sync

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"chronicles/cmd/client/cmd/types"
	"chronicles/cmd/client/cmd/ui"
	"chronicles/internal/app/client"
	"chronicles/internal/domain/dataset"

	"github.com/spf13/cobra"
)

var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Синхронизация с облаком",
	Long: `Ручная отправка и загрузка данных, статус и сравнение с облачной копией.

Отправка перезаписывает облачную копию целиком, загрузка целиком заменяет
локальные данные. Объединение выполняется только при входе.`,
}

// confirm подменяется в тестах.
var confirm = ui.Confirm

var PushCmd = &cobra.Command{
	Use:   "push",
	Short: "Отправить все данные в облако",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := confirm("Отправить данные в облако?", "Облачная копия будет перезаписана локальными данными."); err != nil {
			return err
		}
		app, err := authenticated(cmd)
		if err != nil {
			return err
		}
		return ui.PrintResult(app.Sync().Push(cmd.Context()))
	},
}

var PullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Заменить локальные данные облачной копией",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := confirm("Загрузить данные из облака?", "Все локальные данные будут заменены облачной копией."); err != nil {
			return err
		}
		app, err := authenticated(cmd)
		if err != nil {
			return err
		}
		return ui.PrintResult(app.Sync().Pull(cmd.Context()))
	},
}

var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Показать статус синхронизации",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.AppFrom(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		online := app.CheckConnection(ctx)

		size, _ := client.EstimateSize(app.Sync().Data())
		limit := app.Config().Sync.MaxBytes
		st, msg := app.Sync().Status()

		if ui.JSONOutput {
			return ui.JSON(map[string]any{
				"online":        online,
				"authenticated": app.IsAuthenticated(),
				"status":        st,
				"message":       msg,
				"sizeBytes":     size,
				"limitBytes":    limit,
				"stats":         app.Sync().Stats(),
			})
		}

		ui.Info("=== Статус синхронизации ===")
		if online {
			ui.Success("Сервер %s доступен", app.Config().ServerAddress)
		} else {
			ui.Fail("Сервер %s недоступен", app.Config().ServerAddress)
		}
		if app.IsAuthenticated() {
			ui.Success("Вход выполнен: %s", app.Session().Username)
		} else {
			ui.Warn("Требуется вход: chronicles auth login")
		}
		ui.Info("Размер данных: %.1f МБ из %.0f МБ", float64(size)/(1<<20), float64(limit)/(1<<20))
		if int64(size) > limit {
			ui.Warn("%s", client.TooLargeMessage(size))
		}
		ui.Info("%s", ui.StatusLine(st, msg))
		return nil
	},
}

var CompareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Сравнить локальные данные с облачной копией",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := authenticated(cmd)
		if err != nil {
			return err
		}

		diffs, res := app.Sync().Compare(cmd.Context())
		if !res.Success {
			return ui.PrintResult(res)
		}
		if res.Data == nil && !ui.JSONOutput {
			ui.Info("В облаке пока нет данных")
		}
		return printDiffs(diffs)
	},
}

var (
	useCloud  bool
	keepLocal bool
)

var ResolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Выбрать облачную или локальную копию",
	Long: `--use-cloud заменяет локальные данные облачной копией.
--keep-local оставляет локальные данные; облако перезапишется при следующей отправке.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if useCloud == keepLocal {
			return fmt.Errorf("укажите ровно один флаг: --use-cloud или --keep-local")
		}
		app, err := authenticated(cmd)
		if err != nil {
			return err
		}
		if keepLocal {
			ui.Success("Оставлены локальные данные")
			return nil
		}
		if err := confirm("Использовать облачную копию?", "Локальные данные будут заменены."); err != nil {
			return err
		}
		return ui.PrintResult(app.Sync().Pull(cmd.Context()))
	},
}

func printDiffs(diffs []dataset.Diff) error {
	if ui.JSONOutput {
		return ui.JSON(diffs)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "КОЛЛЕКЦИЯ\tТОЛЬКО В ОБЛАКЕ\tТОЛЬКО ЛОКАЛЬНО\tРАЗЛИЧАЮТСЯ\tСОВПАДАЮТ")
	inSync := true
	for _, d := range diffs {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n", d.Collection, d.RemoteOnly, d.LocalOnly, d.Changed, d.Same)
		inSync = inSync && d.InSync()
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if inSync {
		ui.Success("Данные совпадают")
	} else {
		ui.Info("Выберите копию: chronicles sync resolve --use-cloud | --keep-local")
	}
	return nil
}

func authenticated(cmd *cobra.Command) (*client.App, error) {
	app, err := types.AppFrom(cmd)
	if err != nil {
		return nil, err
	}
	if !app.IsAuthenticated() {
		return nil, fmt.Errorf("требуется вход. Выполните: chronicles auth login")
	}
	return app, nil
}

func init() {
	ResolveCmd.Flags().BoolVar(&useCloud, "use-cloud", false, "заменить локальные данные облачными")
	ResolveCmd.Flags().BoolVar(&keepLocal, "keep-local", false, "оставить локальные данные")
}
