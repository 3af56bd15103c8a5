package prompt

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"
)

// ErrCancelled is returned when the user aborts a prompt.
var ErrCancelled = errors.New("cancelled by user")

// Prompter interface wraps basic prompting functionality for testability
type Prompter interface {
	Prompt(string) (string, error)
	Close() error
}

// LinerPrompter wraps liner.State to implement Prompter interface
type LinerPrompter struct {
	*liner.State
}

// NewLinerPrompter creates a liner prompter. Entered lines go to history
// and complete, when set, drives Tab completion.
func NewLinerPrompter(complete func(string) []string) *LinerPrompter {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	if complete != nil {
		line.SetCompleter(complete)
	}
	return &LinerPrompter{State: line}
}

// Prompt reads one line and records it in the session history.
func (p *LinerPrompter) Prompt(prompt string) (string, error) {
	result, err := p.State.Prompt(prompt)
	if err != nil {
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return "", ErrCancelled
		}
		return "", fmt.Errorf("prompt failed: %w", err)
	}
	if strings.TrimSpace(result) != "" {
		p.AppendHistory(result)
	}
	return result, nil
}

// Script is a Prompter that replays fixed lines, then reports cancellation.
type Script struct {
	lines   []string
	Prompts []string
}

func NewScript(lines ...string) *Script {
	return &Script{lines: lines}
}

func (s *Script) Prompt(prompt string) (string, error) {
	s.Prompts = append(s.Prompts, prompt)
	if len(s.lines) == 0 {
		return "", ErrCancelled
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func (*Script) Close() error {
	return nil
}

// TextInputWithPrompter provides simple text input using a custom prompter
func TextInputWithPrompter(prompter Prompter, prompt string) (string, error) {
	coloredPrompt := color.CyanString(prompt + " ")
	result, err := prompter.Prompt(coloredPrompt)
	if err != nil {
		return "", fmt.Errorf("text input with prompter failed: %w", err)
	}
	return result, nil
}

// Confirm asks a yes/no question. Anything but y or yes is a no.
func Confirm(prompter Prompter, question string) (bool, error) {
	answer, err := prompter.Prompt(color.YellowString(question + " [y/N] "))
	if err != nil {
		return false, fmt.Errorf("confirm failed: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// QuickSelectWithPrompter provides single-key selection from a menu of options using a custom prompter
func QuickSelectWithPrompter(prompter Prompter, prompt string, options map[string]string) (string, error) {
	result, err := prompter.Prompt(prompt)
	if err != nil {
		return "", fmt.Errorf("quick select with prompter failed: %w", err)
	}

	if choice, ok := options[strings.TrimSpace(result)]; ok {
		return choice, nil
	}

	return "", nil
}
