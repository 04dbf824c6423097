// cmd/client/cmd/root.go
package cmd

import (
	"context"
	"fmt"
	"os"

	"chronicles/cmd/client/cmd/ai"
	"chronicles/cmd/client/cmd/auth"
	"chronicles/cmd/client/cmd/record"
	"chronicles/cmd/client/cmd/sync"
	"chronicles/cmd/client/cmd/types"
	"chronicles/cmd/client/cmd/ui"
	"chronicles/internal/app/client"
	"chronicles/internal/app/client/config"
	"chronicles/internal/utils/logger"

	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"
)

var (
	configDir string
	serverURL string
	debug     bool
)

var rootCmd = &cobra.Command{
	Use:   "chronicles",
	Short: "Chronicles - дневник воспоминаний пары",
	Long: `Chronicles хранит воспоминания, цветы, списки дел, перекусы, города,
памятные даты и публикации из соцсетей.

Данные живут локально и после входа синхронизируются с облаком:
изменения отправляются автоматически после короткой паузы.`,
	PersistentPreRunE:  setupApp,
	PersistentPostRunE: shutdownApp,
	SilenceUsage:       true,
	SilenceErrors:      true,
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		os.Exit(1)
	}
}

func setupApp(cmd *cobra.Command, _ []string) error {
	if configDir != "" {
		if err := os.Setenv("CONFIG_DIR", configDir); err != nil {
			return err
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}
	if serverURL != "" {
		cfg.ServerAddress = serverURL
	}

	// stdout принадлежит выводу команд, журнал пишется в файл
	var log *slog.Logger
	if debug {
		log = logger.New(config.EnvDev)
	} else {
		log = logger.NewFile(cfg.Env, cfg.LogFile)
	}

	app, err := client.New(cmd.Context(), cfg, log)
	if err != nil {
		return fmt.Errorf("ошибка инициализации приложения: %w", err)
	}

	cmd.SetContext(context.WithValue(cmd.Context(), types.ClientAppKey, app))
	return nil
}

// shutdownApp отправляет в облако изменения, ожидающие автоотправки.
func shutdownApp(cmd *cobra.Command, _ []string) error {
	app, err := types.AppFrom(cmd)
	if err != nil {
		return nil
	}
	ctx := cmd.Context()

	if app.Sync().PendingPush() {
		if res, ok := app.Sync().Flush(ctx); ok && !ui.JSONOutput {
			if res.Success {
				ui.Success("Изменения отправлены в облако")
			} else if !res.Aborted {
				ui.Warn("Изменения сохранены локально, облако: %s", res.Message)
			}
		}
	}
	app.Shutdown(ctx)
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "директория конфигурации и данных (по умолчанию ~/.chronicles)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "адрес сервера синхронизации host:port")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "журнал в консоль с уровнем debug")
	rootCmd.PersistentFlags().BoolVar(&ui.JSONOutput, "json", false, "вывод в формате JSON")
	rootCmd.PersistentFlags().BoolVarP(&ui.AssumeYes, "yes", "y", false, "не спрашивать подтверждений")

	rootCmd.AddCommand(auth.AuthCmd)
	auth.AuthCmd.AddCommand(auth.LoginCmd, auth.LogoutCmd, auth.HashCmd, auth.WhoamiCmd)

	rootCmd.AddCommand(sync.SyncCmd)
	sync.SyncCmd.AddCommand(sync.PushCmd, sync.PullCmd, sync.StatusCmd, sync.CompareCmd, sync.ResolveCmd)

	rootCmd.AddCommand(record.RecordCmd, record.TodoCmd, record.MemoryCmd)
	record.RecordCmd.AddCommand(record.AddCmd, record.ListCmd, record.GetCmd, record.UpdateCmd, record.DeleteCmd)

	rootCmd.AddCommand(exportCmd, importCmd, statsCmd, watchCmd)

	rootCmd.AddCommand(ai.AICmd)
	ai.AICmd.AddCommand(ai.NarrateCmd, ai.ChatCmd, ai.QuizCmd)
}
