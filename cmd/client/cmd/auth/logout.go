package auth

import (
	"chronicles/cmd/client/cmd/types"
	"chronicles/cmd/client/cmd/ui"

	"github.com/spf13/cobra"
)

var LogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Выйти (локальные данные сохраняются)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.AppFrom(cmd)
		if err != nil {
			return err
		}
		if !app.IsAuthenticated() {
			ui.Info("Вход не выполнен")
			return nil
		}
		if err := ui.Confirm("Выйти из аккаунта?", "Несинхронизированные изменения останутся только на этом устройстве."); err != nil {
			return err
		}
		if err := app.Logout(cmd.Context()); err != nil {
			return err
		}
		ui.Success("Выход выполнен")
		return nil
	},
}

var WhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Показать текущего пользователя",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.AppFrom(cmd)
		if err != nil {
			return err
		}
		if !app.IsAuthenticated() {
			ui.Info("Вход не выполнен")
			return nil
		}
		ui.Info("%s", app.Session().Username)
		return nil
	},
}
