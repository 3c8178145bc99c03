package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/hylla/projboard/internal/app"
	"github.com/hylla/projboard/internal/domain"
)

// recordingLedger captures store changes with their actors.
type recordingLedger struct {
	events []domain.ChangeEvent
}

// RecordChange stores one change.
func (r *recordingLedger) RecordChange(_ context.Context, event domain.ChangeEvent) error {
	r.events = append(r.events, event)
	return nil
}

// newTestModel builds a sized model that is closed with the test.
func newTestModel(t *testing.T, store *app.Store, opts ...Option) Model {
	t.Helper()
	opts = append([]Option{WithUIConfig(UIConfig{ShowDescriptions: true})}, opts...)
	m := NewModel(store, opts...)
	if m.err != nil {
		t.Fatalf("NewModel() error = %v", m.err)
	}
	t.Cleanup(m.Close)
	return applyMsg(t, m, tea.WindowSizeMsg{Width: 120, Height: 60})
}

// applyMsg runs one Update and discards the returned command.
func applyMsg(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	updated, _ := m.Update(msg)
	out, ok := updated.(Model)
	if !ok {
		t.Fatalf("expected Model, got %T", updated)
	}
	return out
}

// viewContent renders the model view as text.
func viewContent(m Model) string {
	return fmt.Sprint(m.View().Content)
}

// keyRune builds a printable key press.
func keyRune(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

// typeText presses every rune of text.
func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	for _, r := range text {
		m = applyMsg(t, m, keyRune(r))
	}
	return m
}

// seedProject adds one active project.
func seedProject(t *testing.T, store *app.Store, title string) domain.Project {
	t.Helper()
	project, err := store.AddProject(context.Background(), app.AddProjectInput{Title: title, Description: "Release build", People: 2})
	if err != nil {
		t.Fatalf("AddProject() error = %v", err)
	}
	return project
}

// TestModelSubmitAddsProject verifies the form flow through the board.
func TestModelSubmitAddsProject(t *testing.T) {
	ledger := &recordingLedger{}
	store := app.NewStore(app.WithActivityRecorder(ledger))
	m := newTestModel(t, store)

	m = typeText(t, m, "Build API")
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyTab})
	m = typeText(t, m, "Design the v2 schema")
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyTab})
	m = typeText(t, m, "3")
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})

	projects := store.Projects()
	if len(projects) != 1 {
		t.Fatalf("expected one project, got %d", len(projects))
	}
	if projects[0].Title != "Build API" || projects[0].People != 3 || projects[0].Status != domain.StatusActive {
		t.Fatalf("unexpected project %#v", projects[0])
	}
	if m.status != "added Build API" {
		t.Fatalf("status = %q", m.status)
	}
	for idx, in := range m.inputs {
		if in.Value() != "" {
			t.Fatalf("input %d = %q, want cleared", idx, in.Value())
		}
	}
	if m.focus != focusForm || m.formField != 0 {
		t.Fatalf("expected focus back on title, got focus=%d field=%d", m.focus, m.formField)
	}
	if len(ledger.events) != 1 || ledger.events[0].Actor != string(app.ActorTUI) {
		t.Fatalf("unexpected ledger %#v", ledger.events)
	}

	view := viewContent(m)
	for _, want := range []string{"ACTIVE PROJECTS", "FINISHED PROJECTS", "Build API", "3 persons assigned", "Design the v2 schema"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q", want)
		}
	}
}

// TestModelFormKeepsLongValues verifies the inputs never truncate what the rules allow.
func TestModelFormKeepsLongValues(t *testing.T) {
	rules := app.DefaultFormRules()
	rules.DescriptionMaxLength = 600
	store := app.NewStore()
	m := newTestModel(t, store, WithFormRules(rules))

	title := strings.Repeat("t", 150)
	description := strings.Repeat("d", 500)
	m = typeText(t, m, title)
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyTab})
	m = typeText(t, m, description)
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyTab})
	m = typeText(t, m, "2")
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})

	projects := store.Projects()
	if len(projects) != 1 {
		t.Fatalf("expected 1 project, got %d (status %q)", len(projects), m.status)
	}
	if projects[0].Title != title || projects[0].Description != description {
		t.Fatalf("expected untruncated values, got title len %d description len %d", len(projects[0].Title), len(projects[0].Description))
	}
}

// TestModelInvalidSubmitKeepsValues verifies rejected input stays in the form.
func TestModelInvalidSubmitKeepsValues(t *testing.T) {
	store := app.NewStore()
	m := newTestModel(t, store)

	m = typeText(t, m, "A")
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyTab})
	m = typeText(t, m, "Valid description")
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyTab})
	m = typeText(t, m, "11")
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})

	if len(store.Projects()) != 0 {
		t.Fatal("expected rejected submission to leave the store empty")
	}
	if !m.invalid[app.FieldTitle] || !m.invalid[app.FieldPeople] || m.invalid[app.FieldDescription] {
		t.Fatalf("unexpected invalid set %#v", m.invalid)
	}
	if !strings.HasPrefix(m.status, "invalid:") {
		t.Fatalf("status = %q, want invalid prefix", m.status)
	}
	if m.inputs[0].Value() != "A" || m.inputs[2].Value() != "11" {
		t.Fatalf("expected values kept, got %q / %q", m.inputs[0].Value(), m.inputs[2].Value())
	}
	if !strings.Contains(viewContent(m), "invalid") {
		t.Fatal("expected invalid marker in view")
	}
}

// TestModelKeyboardDragMovesProject verifies grab, retarget, and drop.
func TestModelKeyboardDragMovesProject(t *testing.T) {
	ledger := &recordingLedger{}
	store := app.NewStore(app.WithActivityRecorder(ledger))
	project := seedProject(t, store, "Ship")
	m := newTestModel(t, store)

	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if m.focus != focusActive {
		t.Fatalf("focus = %d, want active list", m.focus)
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeySpace, Text: " "})
	if m.grab == nil || m.grab.projectID != project.ID {
		t.Fatalf("expected grab of project %d, got %#v", project.ID, m.grab)
	}
	if got := m.grab.transfer.GetData(domain.MediaTypePlainText); got != domain.EncodeDragPayload(project.ID) {
		t.Fatalf("payload = %q", got)
	}

	m = applyMsg(t, m, keyRune('l'))
	finished, _ := m.board.List(domain.StatusFinished)
	active, _ := m.board.List(domain.StatusActive)
	if !finished.Droppable() || active.Droppable() {
		t.Fatalf("expected only finished list droppable, active=%t finished=%t", active.Droppable(), finished.Droppable())
	}

	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if got, _ := store.Project(project.ID); got.Status != domain.StatusFinished {
		t.Fatalf("status = %s, want finished", got.Status)
	}
	if m.grab != nil || m.focus != focusFinished || finished.Droppable() {
		t.Fatalf("expected drag finished on finished list, grab=%#v focus=%d", m.grab, m.focus)
	}
	if !strings.HasPrefix(m.status, "moved Ship") {
		t.Fatalf("status = %q", m.status)
	}
	if len(finished.Projects()) != 1 || len(active.Projects()) != 0 {
		t.Fatal("expected the lists to re-render after the move")
	}
	last := ledger.events[len(ledger.events)-1]
	if last.Operation != domain.ChangeOperationMove || last.Actor != string(app.ActorTUI) {
		t.Fatalf("unexpected move event %#v", last)
	}
}

// TestModelCancelDragLeavesProject verifies esc abandons the drag.
func TestModelCancelDragLeavesProject(t *testing.T) {
	store := app.NewStore()
	project := seedProject(t, store, "Ship")
	m := newTestModel(t, store)

	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeySpace, Text: " "})
	m = applyMsg(t, m, keyRune('l'))
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})

	if got, _ := store.Project(project.ID); got.Status != domain.StatusActive {
		t.Fatalf("status = %s, want active", got.Status)
	}
	finished, _ := m.board.List(domain.StatusFinished)
	if m.grab != nil || finished.Droppable() || m.focus != focusActive {
		t.Fatalf("expected cancelled drag, grab=%#v focus=%d", m.grab, m.focus)
	}
	if m.status != "drag cancelled" {
		t.Fatalf("status = %q", m.status)
	}
}

// TestModelDropOnSourceIsNoop verifies dropping back home keeps the project.
func TestModelDropOnSourceIsNoop(t *testing.T) {
	store := app.NewStore()
	project := seedProject(t, store, "Ship")
	m := newTestModel(t, store)

	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeySpace, Text: " "})
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if got, _ := store.Project(project.ID); got.Status != domain.StatusActive || !got.UpdatedAt.Equal(project.UpdatedAt) {
		t.Fatalf("expected untouched project, got %#v", got)
	}
	if !strings.Contains(m.status, "stays in ACTIVE PROJECTS") {
		t.Fatalf("status = %q", m.status)
	}
}

// TestModelNavigation verifies selection and list focus keys.
func TestModelNavigation(t *testing.T) {
	store := app.NewStore()
	seedProject(t, store, "First")
	second := seedProject(t, store, "Second")
	m := newTestModel(t, store)

	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	m = applyMsg(t, m, keyRune('j'))
	if project, ok := m.selectedProject(); !ok || project.ID != second.ID {
		t.Fatalf("selected = %#v, want second", project)
	}
	m = applyMsg(t, m, keyRune('j'))
	if m.selected[domain.StatusActive] != 1 {
		t.Fatalf("selection = %d, want clamped to 1", m.selected[domain.StatusActive])
	}
	m = applyMsg(t, m, keyRune('k'))
	if m.selected[domain.StatusActive] != 0 {
		t.Fatalf("selection = %d, want 0", m.selected[domain.StatusActive])
	}
	m = applyMsg(t, m, keyRune('l'))
	if m.focus != focusFinished {
		t.Fatalf("focus = %d, want finished", m.focus)
	}
	if _, ok := m.selectedProject(); ok {
		t.Fatal("expected empty finished list to have no selection")
	}
	m = applyMsg(t, m, keyRune('h'))
	if m.focus != focusActive {
		t.Fatalf("focus = %d, want active", m.focus)
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyTab})
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyTab})
	if m.focus != focusForm || m.formField != 0 {
		t.Fatalf("expected tab to wrap to title, got focus=%d field=%d", m.focus, m.formField)
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyTab, Mod: tea.ModShift})
	if m.focus != focusFinished {
		t.Fatalf("expected shift+tab to wrap to finished list, got %d", m.focus)
	}
}

// TestModelYankCopiesPayload verifies the clipboard command.
func TestModelYankCopiesPayload(t *testing.T) {
	store := app.NewStore()
	project := seedProject(t, store, "Ship")
	var copied string
	m := newTestModel(t, store, WithClipboard(func(text string) error {
		copied = text
		return nil
	}))

	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	updated, cmd := m.Update(keyRune('y'))
	if cmd == nil {
		t.Fatal("expected clipboard command")
	}
	m = applyMsg(t, updated.(Model), cmd())
	if copied != domain.EncodeDragPayload(project.ID) {
		t.Fatalf("copied = %q", copied)
	}
	if m.status != "copied drag payload 1" {
		t.Fatalf("status = %q", m.status)
	}

	m = applyMsg(t, m, clipboardMsg{payload: "1", err: errors.New("no display")})
	if !strings.HasPrefix(m.status, "copy failed") {
		t.Fatalf("status = %q", m.status)
	}
}

// TestModelQuitAndHelpKeys verifies quit and help only act outside the form.
func TestModelQuitAndHelpKeys(t *testing.T) {
	m := newTestModel(t, app.NewStore())

	m = applyMsg(t, m, keyRune('q'))
	if m.inputs[0].Value() != "q" {
		t.Fatalf("expected q typed into the title, got %q", m.inputs[0].Value())
	}

	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	m = applyMsg(t, m, keyRune('?'))
	if !m.help.ShowAll {
		t.Fatal("expected expanded help")
	}
	_, cmd := m.Update(keyRune('q'))
	if cmd == nil {
		t.Fatal("expected quit cmd")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
	_, cmd = m.Update(tea.KeyPressMsg{Code: 'c', Mod: tea.ModCtrl})
	if cmd == nil {
		t.Fatal("expected ctrl+c quit cmd")
	}
}

// TestModelConfiguredGrabKey verifies key overrides reach the list handlers.
func TestModelConfiguredGrabKey(t *testing.T) {
	store := app.NewStore()
	seedProject(t, store, "Ship")
	m := newTestModel(t, store, WithKeyConfig(KeyConfig{Grab: "g"}))

	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeySpace, Text: " "})
	if m.grab != nil {
		t.Fatal("expected space to be unbound")
	}
	m = applyMsg(t, m, keyRune('g'))
	if m.grab == nil {
		t.Fatal("expected g to grab")
	}
}

// TestModelRendersExternalChanges verifies lists follow store mutations from other hosts.
func TestModelRendersExternalChanges(t *testing.T) {
	store := app.NewStore()
	m := newTestModel(t, store)
	project := seedProject(t, store, "Remote")
	if _, err := store.MoveProject(context.Background(), project.ID, domain.StatusFinished); err != nil {
		t.Fatalf("MoveProject() error = %v", err)
	}
	finished, _ := m.board.List(domain.StatusFinished)
	if len(finished.Projects()) != 1 {
		t.Fatal("expected finished list to follow the store")
	}
	if !strings.Contains(viewContent(m), "Remote") {
		t.Fatal("expected view to include the moved project")
	}

	m.Close()
	if store.ListenerCount() != 0 {
		t.Fatalf("ListenerCount() = %d, want 0 after Close", store.ListenerCount())
	}
}
