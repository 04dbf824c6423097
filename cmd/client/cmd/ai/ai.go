package ai

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"chronicles/cmd/client/cmd/types"
	"chronicles/cmd/client/cmd/ui"
	"chronicles/internal/app/client/narrator"
	"chronicles/internal/domain/dataset"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// AICmd - родительская команда для текстов от модели
var AICmd = &cobra.Command{
	Use:   "ai",
	Short: "Подписи, чат и викторина по воспоминаниям",
	Long: `Тексты генерирует OpenAI-совместимая модель (AI_API_KEY, AI_BASE_URL, AI_MODEL).
Без ключа команды отвечают запасными фразами.`,
}

var NarrateCmd = &cobra.Command{
	Use:   "narrate <memory-id>",
	Short: "Поэтичная подпись к воспоминанию",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.AppFrom(cmd)
		if err != nil {
			return err
		}

		rec, ok := app.Sync().Data().Get(dataset.CollectionMemories, args[0])
		if !ok {
			return fmt.Errorf("%w: memories/%s", dataset.ErrRecordNotFound, args[0])
		}
		warnDisabled(app.Narrator())

		text := app.Narrator().Narrate(cmd.Context(), rec.(dataset.Memory))
		if ui.JSONOutput {
			return ui.JSON(map[string]string{"id": args[0], "narrative": text})
		}
		ui.Info("%s", text)
		return nil
	},
}

var ChatCmd = &cobra.Command{
	Use:   "chat [message...]",
	Short: "Спросить хранителя воспоминаний",
	Long: `С аргументами задает один вопрос. Без аргументов в терминале открывает диалог,
пустая строка завершает его.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.AppFrom(cmd)
		if err != nil {
			return err
		}
		warnDisabled(app.Narrator())
		memories := app.Sync().Data().Memories

		if len(args) > 0 {
			reply := app.Narrator().Chat(cmd.Context(), memories, nil, strings.Join(args, " "))
			ui.Info("%s", reply)
			return nil
		}
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return errors.New("нет вопроса: передайте его аргументом")
		}

		var history []narrator.Turn
		for {
			var msg string
			if err := huh.NewInput().Title("Вы").Value(&msg).Run(); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					return nil
				}
				return err
			}
			msg = strings.TrimSpace(msg)
			if msg == "" {
				return nil
			}

			reply := app.Narrator().Chat(cmd.Context(), memories, history, msg)
			ui.Info("Chronos: %s", reply)
			history = append(history,
				narrator.Turn{Role: "user", Text: msg},
				narrator.Turn{Role: "assistant", Text: reply},
			)
		}
	},
}

var QuizCmd = &cobra.Command{
	Use:   "quiz",
	Short: "Вопрос викторины по случайным воспоминаниям",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.AppFrom(cmd)
		if err != nil {
			return err
		}

		memories := app.Sync().Data().Memories
		if len(memories) == 0 {
			ui.Warn("Нет воспоминаний для викторины")
			return nil
		}

		q, err := app.Narrator().Quiz(cmd.Context(), memories)
		if err != nil {
			if errors.Is(err, narrator.ErrNoAPIKey) {
				return errors.New("викторина недоступна: не задан AI_API_KEY")
			}
			return fmt.Errorf("не удалось составить вопрос: %w", err)
		}
		if ui.JSONOutput {
			return ui.JSON(q)
		}

		if !term.IsTerminal(int(os.Stdin.Fd())) || ui.AssumeYes {
			ui.Info("%s", q.Question)
			for i, opt := range q.Options {
				ui.Info("  %d) %s", i+1, opt)
			}
			ui.Info("")
			ui.Info("Ответ: %d) %s", q.CorrectIndex+1, q.Options[q.CorrectIndex])
			ui.Info("%s", q.Explanation)
			return nil
		}

		choice := -1
		opts := make([]huh.Option[int], len(q.Options))
		for i, opt := range q.Options {
			opts[i] = huh.NewOption(opt, i)
		}
		if err := huh.NewSelect[int]().Title(q.Question).Options(opts...).Value(&choice).Run(); err != nil {
			return fmt.Errorf("выбор ответа: %w", err)
		}

		if choice == q.CorrectIndex {
			ui.Success("Верно!")
		} else {
			ui.Fail("Мимо. Правильный ответ: %s", q.Options[q.CorrectIndex])
		}
		ui.Info("%s", q.Explanation)
		return nil
	},
}

func warnDisabled(n *narrator.Narrator) {
	if !n.Enabled() {
		ui.Warn("AI_API_KEY не задан, ответ будет запасным")
	}
}
