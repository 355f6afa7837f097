package cli

import (
	"strings"
	"testing"

	"dvamodel/internal/core/ports"
	"dvamodel/internal/engine/parser"

	tea "github.com/charmbracelet/bubbletea"
)

func uiFiles() []ports.FileModels {
	return []ports.FileModels{
		{
			File: "/repo/src/models/user.ts",
			Models: []parser.Model{{
				Namespace: "user",
				Reducers:  map[string]parser.MethodInfo{"save": {Code: "save(s) { return s }", Loc: &parser.SourceLocation{Start: parser.Position{Line: 7}}}},
				Effects:   map[string]parser.MethodInfo{"save": {Code: "*save() {}"}, "fetch": {Code: "*fetch() {}"}},
			}},
		},
		{
			File: "/repo/src/models/app.ts",
			Models: []parser.Model{{
				Namespace: "app",
				Reducers:  map[string]parser.MethodInfo{"toggle": {Code: "toggle(s) { return !s }"}},
			}},
		},
	}
}

func TestBuildEntries_Order(t *testing.T) {
	entries := buildEntries(uiFiles())
	got := make([]string, 0, len(entries))
	for _, e := range entries {
		got = append(got, e.actionType+":"+string(e.kind))
	}
	want := []string{"app/toggle:reducer", "user/fetch:effect", "user/save:reducer", "user/save:effect"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected entry order: %v", got)
	}
}

func TestModel_UpdateAndCodePreview(t *testing.T) {
	m := initialModel("/repo")

	updated, _ := m.Update(updateMsg{files: uiFiles(), fileCount: 2, modelCount: 2})
	state, ok := updated.(model)
	if !ok {
		t.Fatalf("expected model type, got %T", updated)
	}
	if len(state.actionList.Items()) != 4 {
		t.Fatalf("expected 4 action items, got %d", len(state.actionList.Items()))
	}
	first := state.actionList.Items()[0].(item)
	if first.desc != "reducer  src/models/app.ts" {
		t.Fatalf("unexpected description %q", first.desc)
	}

	updated, _ = state.Update(tea.KeyMsg{Type: tea.KeyEnter})
	state = updated.(model)
	if !state.showCode {
		t.Fatal("expected code preview after enter")
	}
	if !strings.Contains(state.View(), "toggle(s) { return !s }") {
		t.Fatal("expected selected code in view")
	}

	updated, _ = state.Update(tea.KeyMsg{Type: tea.KeyEsc})
	state = updated.(model)
	if state.showCode {
		t.Fatal("expected list view after esc")
	}
}

func TestSelectedSourceTarget(t *testing.T) {
	m := initialModel("/repo")
	if _, ok := selectedSourceTarget(m); ok {
		t.Fatal("expected no target on empty list")
	}

	updated, _ := m.Update(updateMsg{files: uiFiles()})
	state := updated.(model)
	state.actionList.Select(2)

	target, ok := selectedSourceTarget(state)
	if !ok {
		t.Fatal("expected a source target")
	}
	if target.file != "/repo/src/models/user.ts" || target.line != 7 {
		t.Fatalf("unexpected target %+v", target)
	}
}

func TestModel_QuitKey(t *testing.T) {
	m := initialModel("")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
}
