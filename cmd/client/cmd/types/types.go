package types

import (
	"fmt"

	"chronicles/internal/app/client"

	"github.com/spf13/cobra"
)

type ctxKey string

// ClientAppKey - ключ *client.App в контексте команды.
const ClientAppKey ctxKey = "app"

// AppFrom достает приложение, созданное в PersistentPreRunE.
func AppFrom(cmd *cobra.Command) (*client.App, error) {
	app, ok := cmd.Context().Value(ClientAppKey).(*client.App)
	if !ok || app == nil {
		return nil, fmt.Errorf("приложение не инициализировано")
	}
	return app, nil
}
