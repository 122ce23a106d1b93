package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

var pickNames = []string{"Andrii Potiiev", "Andrii Stovbchatyi", "Ivan Panasiuk"}

func TestPickName(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		selection string
		want      string
		wantMenu  int
	}{
		{"no match keeps typed text", "BobExternal", "", "BobExternal", 0},
		{"exact single match skips menu", "Ivan Panasiuk", "", "Ivan Panasiuk", 0},
		{"pick a match", "andrii", "Andrii Stovbchatyi", "Andrii Stovbchatyi", 1},
		{"keep typed text over matches", "Andrii", useTypedPrefix + "Andrii", "Andrii", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &scriptedPrompter{inputs: []string{tt.input}}
			if tt.selection != "" {
				p.selects = []string{tt.selection}
			}

			got, err := PickName(p, "Zastępca", pickNames)
			if err != nil {
				t.Fatalf("PickName returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("PickName = %q, want %q", got, tt.want)
			}
			if len(p.selectOpts) != tt.wantMenu {
				t.Fatalf("expected %d menus, got %d", tt.wantMenu, len(p.selectOpts))
			}
			if tt.wantMenu > 0 {
				opts := p.selectOpts[0]
				last := opts[len(opts)-1]
				if !strings.HasPrefix(last.Value, useTypedPrefix) {
					t.Errorf("last option should keep typed text, got %+v", last)
				}
			}
		})
	}
}

func TestTerminalPrompterInput(t *testing.T) {
	var out bytes.Buffer
	p := NewTerminalPrompter(strings.NewReader("  Jan  \n\nlast"), &out)

	got, err := p.Input("Imię", "")
	if err != nil || got != "Jan" {
		t.Fatalf("Input = %q, %v", got, err)
	}
	got, err = p.Input("Data", "01.02.2025")
	if err != nil || got != "01.02.2025" {
		t.Fatalf("empty line should return default, got %q, %v", got, err)
	}
	got, err = p.Input("Ostatnie", "")
	if err != nil || got != "last" {
		t.Fatalf("unterminated last line = %q, %v", got, err)
	}
	if _, err := p.Input("Koniec", ""); err == nil {
		t.Error("expected EOF error")
	}

	if !strings.Contains(out.String(), "Data [01.02.2025]: ") {
		t.Errorf("prompt should show the default, got %q", out.String())
	}
}

func TestTerminalPrompterConfirm(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{"t\n", true},
		{"TAK\n", true},
		{"yes\n", true},
		{"n\n", false},
		{"\n", false},
		{"cokolwiek\n", false},
	}
	for _, tt := range tests {
		p := NewTerminalPrompter(strings.NewReader(tt.answer), &bytes.Buffer{})
		got, err := p.Confirm("Czy na pewno?")
		if err != nil {
			t.Fatalf("Confirm(%q) returned error: %v", tt.answer, err)
		}
		if got != tt.want {
			t.Errorf("Confirm(%q) = %v, want %v", tt.answer, got, tt.want)
		}
	}
}

func TestMenuChoice(t *testing.T) {
	menuErr := errors.New("no menu items")
	tests := []struct {
		name    string
		id      any
		err     error
		want    string
		wantErr error
	}{
		{"selected value", "OPUS", nil, "OPUS", nil},
		{"escape", "", nil, "", ErrPromptCancelled},
		{"nil id", nil, nil, "", ErrPromptCancelled},
		{"non-string id", 42, nil, "", ErrPromptCancelled},
		{"menu error", nil, menuErr, "", menuErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := menuChoice(tt.id, tt.err)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("menuChoice error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("menuChoice = %q, want %q", got, tt.want)
			}
		})
	}
}
