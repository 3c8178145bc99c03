package component

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hylla/projboard/internal/app"
	"github.com/hylla/projboard/internal/domain"
)

// newTestBoard builds a board over the embedded page and a fresh store.
func newTestBoard(t *testing.T) (*Board, *app.Store) {
	t.Helper()
	doc, err := NewDocument()
	if err != nil {
		t.Fatalf("NewDocument() error = %v", err)
	}
	store := app.NewStore()
	board, err := NewBoard(doc, store)
	if err != nil {
		t.Fatalf("NewBoard() error = %v", err)
	}
	t.Cleanup(board.Close)
	return board, store
}

// fillForm types one submission into the board form.
func fillForm(board *Board, title, description, people string) {
	board.SetField(app.FieldTitle, title)
	board.SetField(app.FieldDescription, description)
	board.SetField(app.FieldPeople, people)
}

// renderedItems returns the h2/h3/p texts of every item in a list.
func renderedItems(t *testing.T, board *Board, status domain.ProjectStatus) [][3]string {
	t.Helper()
	list, ok := board.List(status)
	if !ok {
		t.Fatalf("missing %s list", status)
	}
	doc := board.Document()
	var out [][3]string
	for _, li := range doc.QuerySelectorAll(list.ListNode(), "li") {
		out = append(out, [3]string{
			doc.Text(doc.QuerySelector(li, "h2")),
			doc.Text(doc.QuerySelector(li, "h3")),
			doc.Text(doc.QuerySelector(li, "p")),
		})
	}
	return out
}

// TestBoardMountsComponents verifies the layout of a fresh board.
func TestBoardMountsComponents(t *testing.T) {
	board, store := newTestBoard(t)
	doc := board.Document()
	host := doc.ElementByID(HostApp)

	var ids []string
	for child := host.FirstChild; child != nil; child = child.NextSibling {
		if id, ok := doc.Attr(child, "id"); ok {
			ids = append(ids, id)
		}
	}
	if strings.Join(ids, ",") != "user-input,active-projects,finished-projects" {
		t.Fatalf("unexpected mount order %v", ids)
	}
	for status, heading := range map[domain.ProjectStatus]string{
		domain.StatusActive:   "ACTIVE PROJECTS",
		domain.StatusFinished: "FINISHED PROJECTS",
	} {
		list, _ := board.List(status)
		if got := doc.Text(doc.QuerySelector(list.Node(), "h2")); got != heading {
			t.Fatalf("heading = %q, want %q", got, heading)
		}
		if id, _ := doc.Attr(list.ListNode(), "id"); id != string(status)+"-projects-list" {
			t.Fatalf("unexpected list id %q", id)
		}
	}
	if store.ListenerCount() != 2 {
		t.Fatalf("expected 2 list subscriptions, got %d", store.ListenerCount())
	}
}

// TestBoardEndToEnd submits a project and drags it onto the finished list.
func TestBoardEndToEnd(t *testing.T) {
	board, store := newTestBoard(t)
	ctx := context.Background()

	fillForm(board, "Build API", "Design the v2 schema", "3")
	accepted, err := board.Submit(ctx)
	if err != nil || !accepted {
		t.Fatalf("Submit() = %v, %v", accepted, err)
	}
	projects := store.Projects()
	if len(projects) != 1 || projects[0].Status != domain.StatusActive || projects[0].People != 3 {
		t.Fatalf("unexpected store state %#v", projects)
	}
	for _, name := range fieldNames() {
		if got := board.Field(name); got != "" {
			t.Fatalf("expected %s cleared, got %q", name, got)
		}
	}

	want := [3]string{"Build API", "3 persons assigned", "Design the v2 schema"}
	if got := renderedItems(t, board, domain.StatusActive); len(got) != 1 || got[0] != want {
		t.Fatalf("active items = %v", got)
	}
	if got := renderedItems(t, board, domain.StatusFinished); len(got) != 0 {
		t.Fatalf("expected no finished items, got %v", got)
	}

	id := projects[0].ID
	dt, err := board.DragStart(ctx, id)
	if err != nil {
		t.Fatalf("DragStart() error = %v", err)
	}
	if dt.GetData(domain.MediaTypePlainText) != domain.EncodeDragPayload(id) || dt.EffectAllowed != domain.EffectMove {
		t.Fatalf("unexpected drag payload %#v", dt)
	}
	if !board.DragOver(ctx, domain.StatusFinished, dt) {
		t.Fatal("expected finished list to accept plain-text payload")
	}
	finished, _ := board.List(domain.StatusFinished)
	if !finished.Droppable() {
		t.Fatal("expected droppable affordance during dragover")
	}
	if err := board.Drop(ctx, domain.StatusFinished, dt); err != nil {
		t.Fatalf("Drop() error = %v", err)
	}
	board.DragEnd(ctx, id, dt)

	if finished.Droppable() {
		t.Fatal("expected drop to clear the affordance")
	}
	if got := renderedItems(t, board, domain.StatusActive); len(got) != 0 {
		t.Fatalf("expected no active items, got %v", got)
	}
	if got := renderedItems(t, board, domain.StatusFinished); len(got) != 1 || got[0] != want {
		t.Fatalf("finished items = %v", got)
	}
	if moved, _ := store.Project(id); moved.Status != domain.StatusFinished {
		t.Fatalf("expected store status finished, got %s", moved.Status)
	}
}

// TestBoardRejectsInvalidSubmission verifies fields survive a rejected submit.
func TestBoardRejectsInvalidSubmission(t *testing.T) {
	board, store := newTestBoard(t)
	fillForm(board, "A", "Valid description", "11")

	accepted, err := board.Submit(context.Background())
	if accepted || !errors.Is(err, app.ErrValidation) {
		t.Fatalf("Submit() = %v, %v", accepted, err)
	}
	if got := app.FailedFields(err); strings.Join(got, ",") != "title,people" {
		t.Fatalf("unexpected failed fields %v", got)
	}
	if board.Field(app.FieldTitle) != "A" || board.Field(app.FieldPeople) != "11" {
		t.Fatal("expected rejected values to stay in the form")
	}
	if len(store.Projects()) != 0 {
		t.Fatal("expected no project added")
	}
	doc := board.Document()
	if !doc.HasClass(doc.QuerySelector(board.Input().Node(), "#title"), "invalid") {
		t.Fatal("expected title marked invalid")
	}

	fillForm(board, "AB", "Valid description", "1")
	if accepted, err := board.Submit(context.Background()); !accepted || err != nil {
		t.Fatalf("Submit() = %v, %v", accepted, err)
	}
	if got := renderedItems(t, board, domain.StatusActive); len(got) != 1 || got[0][1] != "1 person assigned" {
		t.Fatalf("unexpected rendered items %v", got)
	}
	if doc.HasClass(doc.QuerySelector(board.Input().Node(), "#title"), "invalid") {
		t.Fatal("expected invalid marker cleared")
	}
}

// TestBoardDragOverRejectsOtherTypes verifies only plain-text payloads are droppable.
func TestBoardDragOverRejectsOtherTypes(t *testing.T) {
	board, store := newTestBoard(t)
	ctx := context.Background()
	p, err := store.AddProject(ctx, app.AddProjectInput{Title: "Keep", Description: "Stay", People: 2})
	if err != nil {
		t.Fatalf("AddProject() error = %v", err)
	}

	dt := NewDataTransfer()
	dt.SetData("text/uri-list", "https://example.com")
	dt.SetData(domain.MediaTypePlainText, domain.EncodeDragPayload(p.ID))
	if board.DragOver(ctx, domain.StatusFinished, dt) {
		t.Fatal("expected non plain-text first type to be refused")
	}
	finished, _ := board.List(domain.StatusFinished)
	if finished.Droppable() {
		t.Fatal("expected no affordance for refused payload")
	}

	board.DragOver(ctx, domain.StatusFinished, nil)
	bad := NewDataTransfer()
	bad.SetData(domain.MediaTypePlainText, "not-an-id")
	if err := board.Drop(ctx, domain.StatusFinished, bad); err != nil {
		t.Fatalf("Drop() error = %v", err)
	}
	if got, _ := store.Project(p.ID); got.Status != domain.StatusActive {
		t.Fatalf("expected bad payload ignored, got %s", got.Status)
	}
}

// TestBoardDragLeaveClearsAffordance verifies dragleave resets the list.
func TestBoardDragLeaveClearsAffordance(t *testing.T) {
	board, _ := newTestBoard(t)
	ctx := context.Background()
	dt := NewDataTransfer()
	dt.SetData(domain.MediaTypePlainText, "1")

	board.DragOver(ctx, domain.StatusActive, dt)
	board.DragLeave(ctx, domain.StatusActive)
	active, _ := board.List(domain.StatusActive)
	if active.Droppable() {
		t.Fatal("expected dragleave to clear droppable")
	}
	if _, err := board.DragStart(ctx, 42); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := board.Drop(ctx, domain.ProjectStatus("archived"), dt); !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

// TestBoardSharedStoreRendersExistingProjects verifies a late board renders current state.
func TestBoardSharedStoreRendersExistingProjects(t *testing.T) {
	store := app.NewStore()
	ctx := context.Background()
	p, _ := store.AddProject(ctx, app.AddProjectInput{Title: "Early", Description: "Before mount", People: 4})
	if _, err := store.MoveProject(ctx, p.ID, domain.StatusFinished); err != nil {
		t.Fatalf("MoveProject() error = %v", err)
	}

	doc, err := NewDocument()
	if err != nil {
		t.Fatalf("NewDocument() error = %v", err)
	}
	board, err := NewBoard(doc, store)
	if err != nil {
		t.Fatalf("NewBoard() error = %v", err)
	}
	if got := renderedItems(t, board, domain.StatusFinished); len(got) != 1 || got[0][0] != "Early" {
		t.Fatalf("unexpected finished items %v", got)
	}

	board.Close()
	if store.ListenerCount() != 0 {
		t.Fatalf("expected Close to unsubscribe, got %d listeners", store.ListenerCount())
	}
	if _, err := store.AddProject(ctx, app.AddProjectInput{Title: "Later", Description: "After close", People: 1}); err != nil {
		t.Fatalf("AddProject() error = %v", err)
	}
	if got := renderedItems(t, board, domain.StatusActive); len(got) != 0 {
		t.Fatalf("expected closed board to stop rendering, got %v", got)
	}
}

// TestBoardRenderWritesHTML verifies the rendered page carries the mounted items.
func TestBoardRenderWritesHTML(t *testing.T) {
	board, store := newTestBoard(t)
	p, _ := store.AddProject(context.Background(), app.AddProjectInput{Title: "Rendered <b>", Description: "Escaped", People: 2})

	var buf bytes.Buffer
	if err := board.Render(&buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	page := buf.String()
	for _, want := range []string{
		`id="` + ItemElementID(p.ID) + `"`,
		`draggable="true"`,
		"Rendered &lt;b&gt;",
		"2 persons assigned",
		`<ul id="active-projects-list">`,
	} {
		if !strings.Contains(page, want) {
			t.Fatalf("expected rendered page to contain %q", want)
		}
	}
}
