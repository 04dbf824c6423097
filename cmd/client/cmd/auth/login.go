// cmd/client/cmd/auth/login.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chronicles/cmd/client/cmd/types"
	"chronicles/cmd/client/cmd/ui"
	"chronicles/internal/domain/user"

	"github.com/spf13/cobra"
)

var username string

var LoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Войти и объединить данные с облаком",
	Long: `Проверяет логин и пароль семьи и открывает сессию.

После входа облачная копия загружается и объединяется с локальными данными:
записи из облака идут первыми, локальные записи с новыми id добавляются следом.
Объединенный набор затем отправляется в облако.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.AppFrom(cmd)
		if err != nil {
			return err
		}

		login := username
		if login == "" {
			login = app.Config().Auth.Username
		}

		password, err := ui.ReadSecret(fmt.Sprintf("Пароль для %s: ", login))
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		res, err := app.Login(ctx, login, password)
		if errors.Is(err, user.ErrInvalidAuth) {
			return fmt.Errorf("неверный логин или пароль")
		}
		if err != nil {
			return fmt.Errorf("ошибка аутентификации: %w", err)
		}

		ui.Success("Вход выполнен: %s", login)
		if !res.Success && !res.Aborted {
			ui.Warn("Облако недоступно, работаем локально: %s", res.Message)
			return nil
		}
		return ui.PrintResult(res)
	},
}

func init() {
	LoginCmd.Flags().StringVarP(&username, "user", "u", "", "логин (по умолчанию AUTH_USERNAME)")
}
