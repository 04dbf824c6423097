package auth

import (
	"chronicles/cmd/client/cmd/ui"
	"chronicles/internal/domain/user"

	"github.com/spf13/cobra"
)

var HashCmd = &cobra.Command{
	Use:   "hash",
	Short: "Посчитать bcrypt-хэш пароля для AUTH_PASSWORD_HASH",
	RunE: func(_ *cobra.Command, _ []string) error {
		password, err := ui.ReadSecret("Новый пароль: ")
		if err != nil {
			return err
		}
		hash, err := user.HashPassword(user.NewPasswordValidator(), password)
		if err != nil {
			return err
		}
		ui.Info("AUTH_PASSWORD_HASH=%s", hash)
		return nil
	},
}
