package record

import (
	"fmt"
	"os"
	"reflect"
	"text/tabwriter"

	"chronicles/cmd/client/cmd/types"
	"chronicles/cmd/client/cmd/ui"
	"chronicles/internal/domain/dataset"

	"github.com/spf13/cobra"
)

var AddCmd = &cobra.Command{
	Use:   "add <collection> [json|-]",
	Short: "Добавить запись",
	Example: `  chronicles record add todos '{"text":"一起去看极光"}'
  echo '{"city":"杭州","date":"2024-05-01"}' | chronicles record add cities`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.AppFrom(cmd)
		if err != nil {
			return err
		}
		c, err := parseCollection(args[0])
		if err != nil {
			return err
		}
		raw, err := readPayload(args, 1)
		if err != nil {
			return err
		}

		var id string
		err = app.Sync().Mutate(cmd.Context(), c, func(d *dataset.Dataset) error {
			var upErr error
			id, _, upErr = d.Upsert(c, raw)
			return upErr
		})
		if err != nil {
			return err
		}
		ui.Success("Запись добавлена: %s/%s", c, id)
		return nil
	},
}

var ListCmd = &cobra.Command{
	Use:   "list <collection>",
	Short: "Список записей коллекции",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.AppFrom(cmd)
		if err != nil {
			return err
		}
		c, err := parseCollection(args[0])
		if err != nil {
			return err
		}

		items := app.Sync().Data().Items(c)
		if ui.JSONOutput {
			return ui.JSON(items)
		}

		v := reflect.ValueOf(items)
		if v.Len() == 0 {
			ui.Info("Записи не найдены")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tДАТА\tЗАПИСЬ")
		for i := 0; i < v.Len(); i++ {
			rec := v.Index(i).Interface()
			title, date := summary(rec)
			fmt.Fprintf(w, "%s\t%s\t%s\n", rec.(dataset.Record).RecordID(), date, title)
		}
		return w.Flush()
	},
}

var GetCmd = &cobra.Command{
	Use:   "get <collection> <id>",
	Short: "Показать запись",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.AppFrom(cmd)
		if err != nil {
			return err
		}
		c, err := parseCollection(args[0])
		if err != nil {
			return err
		}
		rec, ok := app.Sync().Data().Get(c, args[1])
		if !ok {
			return fmt.Errorf("%w: %s/%s", dataset.ErrRecordNotFound, c, args[1])
		}
		return ui.JSON(rec)
	},
}

var UpdateCmd = &cobra.Command{
	Use:     "update <collection> <id> [json|-]",
	Short:   "Изменить поля записи",
	Example: `  chronicles record update snacks 42 '{"rating":5}'`,
	Args:    cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.AppFrom(cmd)
		if err != nil {
			return err
		}
		c, err := parseCollection(args[0])
		if err != nil {
			return err
		}
		raw, err := readPayload(args, 2)
		if err != nil {
			return err
		}

		err = app.Sync().Mutate(cmd.Context(), c, func(d *dataset.Dataset) error {
			return d.Patch(c, args[1], raw)
		})
		if err != nil {
			return err
		}
		ui.Success("Запись обновлена: %s/%s", c, args[1])
		return nil
	},
}

var DeleteCmd = &cobra.Command{
	Use:   "delete <collection> <id>",
	Short: "Удалить запись",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.AppFrom(cmd)
		if err != nil {
			return err
		}
		c, err := parseCollection(args[0])
		if err != nil {
			return err
		}
		if _, ok := app.Sync().Data().Get(c, args[1]); !ok {
			return fmt.Errorf("%w: %s/%s", dataset.ErrRecordNotFound, c, args[1])
		}
		if err := ui.Confirm("Удалить запись?", fmt.Sprintf("%s/%s будет удалена без возможности восстановления.", c, args[1])); err != nil {
			return err
		}

		err = app.Sync().Mutate(cmd.Context(), c, func(d *dataset.Dataset) error {
			if !d.Remove(c, args[1]) {
				return fmt.Errorf("%w: %s/%s", dataset.ErrRecordNotFound, c, args[1])
			}
			return nil
		})
		if err != nil {
			return err
		}
		ui.Success("Запись удалена: %s/%s", c, args[1])
		return nil
	},
}
