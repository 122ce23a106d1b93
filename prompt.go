package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nexidian/gocliselect"
)

var ErrPromptCancelled = errors.New("prompt cancelled")

type Option struct {
	Label string
	Value string
}

// Prompter asks the user for input. Commands take it as an interface so the
// interactive flow can be driven from tests.
type Prompter interface {
	Select(title string, options []Option) (string, error)
	Input(label, def string) (string, error)
	Confirm(question string) (bool, error)
}

// TerminalPrompter draws menus with gocliselect and reads lines from in.
type TerminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{in: bufio.NewReader(in), out: out}
}

func (p *TerminalPrompter) Select(title string, options []Option) (string, error) {
	menu := gocliselect.NewMenu(title)
	for _, o := range options {
		menu.AddItem(o.Label, o.Value)
	}
	return menuChoice(menu.Display())
}

// menuChoice turns a gocliselect result into the chosen value. Escape comes
// back as an empty id.
func menuChoice(id any, err error) (string, error) {
	if err != nil {
		return "", err
	}
	choice, _ := id.(string)
	if choice == "" {
		return "", ErrPromptCancelled
	}
	return choice, nil
}

func (p *TerminalPrompter) Input(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def, nil
	}
	return line, nil
}

func (p *TerminalPrompter) Confirm(question string) (bool, error) {
	answer, err := p.Input(question+" (t/n)", "n")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "t", "tak", "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// useTypedPrefix marks the menu entry that keeps the typed text as is.
const useTypedPrefix = "\x00typed:"

// PickName autocompletes against names: the typed text filters the list and
// the user picks a match or keeps the text (an unknown name is allowed).
func PickName(p Prompter, label string, names []string) (string, error) {
	query, err := p.Input(label, "")
	if err != nil {
		return "", err
	}
	matches := FilterNames(names, query)
	if query == "" || len(matches) == 0 {
		return query, nil
	}
	if len(matches) == 1 && matches[0] == query {
		return query, nil
	}

	options := make([]Option, 0, len(matches)+1)
	for _, m := range matches {
		options = append(options, Option{Label: m, Value: m})
	}
	options = append(options, Option{Label: fmt.Sprintf("Użyj: %q", query), Value: useTypedPrefix + query})

	choice, err := p.Select(label, options)
	if err != nil {
		return "", err
	}
	if typed, ok := strings.CutPrefix(choice, useTypedPrefix); ok {
		return typed, nil
	}
	return choice, nil
}

func departmentOptions() []Option {
	options := make([]Option, 0, len(Departments))
	for _, d := range Departments {
		options = append(options, Option{Label: string(d), Value: string(d)})
	}
	return options
}
