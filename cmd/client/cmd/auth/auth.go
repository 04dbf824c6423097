package auth

import (
	"github.com/spf13/cobra"
)

// AuthCmd - родительская команда для входа и выхода
var AuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Управление входом",
	Long:  `Вход, выход и подготовка хэша пароля для конфигурации.`,
}
