// Package prompt implements interactive download consent.
package prompt

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"

	"github.com/inlay-dev/inlay-core/handler/ports"
	"github.com/inlay-dev/inlay-core/handler/values"
)

// TerminalPrompter asks for download consent on an interactive terminal.
type TerminalPrompter struct{}

var _ ports.Prompter = (*TerminalPrompter)(nil)

// NewTerminalPrompter creates a new TerminalPrompter.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{}
}

// IsInteractive checks if we're running in an interactive terminal.
func (p *TerminalPrompter) IsInteractive() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// ConfirmDownload asks whether to download an available handler update.
func (p *TerminalPrompter) ConfirmDownload(
	name values.Name,
	installed, available values.Version,
	kind values.UpdateKind,
) (bool, error) {
	title := fmt.Sprintf("Download handler %q?", name)
	description := fmt.Sprintf("A %s update to version %s is available.", kind, available)
	if installed.IsZero() {
		title = fmt.Sprintf("Install handler %q?", name)
		description = fmt.Sprintf("The handler is not installed; version %s is available.", available)
	} else {
		description = fmt.Sprintf("Installed: %s. %s", installed, description)
	}

	var confirmed bool
	err := huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Download").
		Negative("Skip").
		Value(&confirmed).
		Run()
	if err != nil {
		return false, fmt.Errorf("download prompt: %w", err)
	}
	return confirmed, nil
}
