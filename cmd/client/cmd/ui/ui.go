// Package ui - вывод и подтверждения для команд CLI.
package ui

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"chronicles/internal/app/client"

	"github.com/charmbracelet/huh"
	"github.com/fatih/color"
	"golang.org/x/term"
)

var (
	// JSONOutput переключает вывод команд в JSON (--json).
	JSONOutput bool
	// AssumeYes пропускает подтверждения (--yes).
	AssumeYes bool

	Out io.Writer = os.Stdout

	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
)

var ErrNotConfirmed = errors.New("операция отменена")

func Success(format string, args ...any) {
	fmt.Fprintln(Out, green("✓ ")+fmt.Sprintf(format, args...))
}

func Warn(format string, args ...any) {
	fmt.Fprintln(Out, yellow("⚠ ")+fmt.Sprintf(format, args...))
}

func Fail(format string, args ...any) {
	fmt.Fprintln(Out, red("✗ ")+fmt.Sprintf(format, args...))
}

func Info(format string, args ...any) {
	fmt.Fprintf(Out, format+"\n", args...)
}

// StatusLine - цветная строка состояния синхронизации.
func StatusLine(st client.Status, msg string) string {
	var label string
	switch st {
	case client.StatusSyncing:
		label = cyan("⟳ синхронизация")
	case client.StatusSuccess:
		label = green("✓ синхронизировано")
	case client.StatusError:
		label = red("✗ ошибка")
	default:
		label = "· ожидание"
	}
	if msg == "" {
		return label
	}
	return label + ": " + msg
}

// PrintResult печатает итог обращения к облаку. Возвращает ошибку для неуспешного результата,
// чтобы команда завершилась с ненулевым кодом.
func PrintResult(res client.Result) error {
	if JSONOutput {
		return JSON(res)
	}
	switch {
	case res.Aborted:
		Warn("%s", orDefault(res.Message, "Запрос отменен"))
		return nil
	case res.Success:
		Success("%s", orDefault(res.Message, "Готово"))
		return nil
	default:
		Fail("%s", res.Message)
		return fmt.Errorf("синхронизация не удалась (%s)", res.Reason)
	}
}

func JSON(v any) error {
	enc := json.NewEncoder(Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Confirm спрашивает подтверждение. Без терминала требуется --yes.
func Confirm(title, description string) error {
	if AssumeYes {
		return nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("%w: нет терминала для подтверждения, используйте --yes", ErrNotConfirmed)
	}

	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Да").
		Negative("Нет").
		Value(&ok).
		Run()
	if err != nil {
		return fmt.Errorf("подтверждение: %w", err)
	}
	if !ok {
		return ErrNotConfirmed
	}
	return nil
}

// ReadSecret читает пароль без эха; из пайпа читается первая строка.
func ReadSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(Out, prompt)
		secret, err := term.ReadPassword(fd)
		fmt.Fprintln(Out)
		if err != nil {
			return "", fmt.Errorf("ошибка чтения пароля: %w", err)
		}
		return string(secret), nil
	}

	var line string
	if _, err := fmt.Fscanln(os.Stdin, &line); err != nil {
		return "", fmt.Errorf("ошибка чтения пароля: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
