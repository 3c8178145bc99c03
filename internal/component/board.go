package component

import (
	"context"
	"fmt"
	"io"

	"github.com/hylla/projboard/internal/app"
	"github.com/hylla/projboard/internal/domain"
)

// Board mounts the project form and one list per status into a document.
type Board struct {
	doc   *Document
	store *app.Store
	input *ProjectInput
	lists map[domain.ProjectStatus]*ProjectList
}

// NewBoard builds every component over doc. The board subscribes to store until Close.
func NewBoard(doc *Document, store *app.Store, opts ...Option) (*Board, error) {
	if doc == nil || store == nil {
		return nil, fmt.Errorf("new board: document and store are required")
	}
	input, err := NewProjectInput(doc, store, opts...)
	if err != nil {
		return nil, fmt.Errorf("new board: %w", err)
	}
	b := &Board{
		doc:   doc,
		store: store,
		input: input,
		lists: map[domain.ProjectStatus]*ProjectList{},
	}
	for _, status := range domain.ProjectStatuses() {
		list, err := NewProjectList(doc, store, status, opts...)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("new board: %w", err)
		}
		b.lists[status] = list
	}
	return b, nil
}

// Document returns the underlying document.
func (b *Board) Document() *Document {
	return b.doc
}

// Input returns the project form.
func (b *Board) Input() *ProjectInput {
	return b.input
}

// List returns the list rendering status.
func (b *Board) List(status domain.ProjectStatus) (*ProjectList, bool) {
	list, ok := b.lists[status]
	return list, ok
}

// SetField types a raw value into a form field.
func (b *Board) SetField(name, value string) {
	b.input.SetValue(name, value)
}

// Field returns a form field's raw value.
func (b *Board) Field(name string) string {
	return b.input.Value(name)
}

// Submit dispatches a submit event on the form. It reports whether a project was added
// and, if not, why.
func (b *Board) Submit(ctx context.Context) (bool, error) {
	b.doc.Dispatch(ctx, b.input.Node(), NewEvent("submit"))
	if err := b.input.LastError(); err != nil {
		return false, err
	}
	return true, nil
}

// DragStart begins dragging one rendered project and returns the populated transfer.
func (b *Board) DragStart(ctx context.Context, projectID int64) (*DataTransfer, error) {
	node := b.doc.ElementByID(ItemElementID(projectID))
	if node == nil {
		return nil, fmt.Errorf("drag project %d: %w", projectID, app.ErrNotFound)
	}
	dt := NewDataTransfer()
	b.doc.Dispatch(ctx, node, &Event{Type: "dragstart", DataTransfer: dt})
	return dt, nil
}

// DragOver reports whether the list for status accepts dt.
func (b *Board) DragOver(ctx context.Context, status domain.ProjectStatus, dt *DataTransfer) bool {
	list, ok := b.lists[status]
	if !ok {
		return false
	}
	ev := &Event{Type: "dragover", DataTransfer: dt}
	b.doc.Dispatch(ctx, list.ListNode(), ev)
	return ev.DefaultPrevented()
}

// DragLeave clears the drop affordance on the list for status.
func (b *Board) DragLeave(ctx context.Context, status domain.ProjectStatus) {
	list, ok := b.lists[status]
	if !ok {
		return
	}
	b.doc.Dispatch(ctx, list.ListNode(), NewEvent("dragleave"))
}

// Drop releases dt onto the list for status.
func (b *Board) Drop(ctx context.Context, status domain.ProjectStatus, dt *DataTransfer) error {
	list, ok := b.lists[status]
	if !ok {
		return fmt.Errorf("drop on %q: %w", status, domain.ErrInvalidStatus)
	}
	b.doc.Dispatch(ctx, list.ListNode(), &Event{Type: "drop", DataTransfer: dt})
	return nil
}

// DragEnd finishes a drag on the source item, if it is still rendered.
func (b *Board) DragEnd(ctx context.Context, projectID int64, dt *DataTransfer) {
	node := b.doc.ElementByID(ItemElementID(projectID))
	if node == nil {
		return
	}
	b.doc.Dispatch(ctx, node, &Event{Type: "dragend", DataTransfer: dt})
}

// Render writes the board page as HTML.
func (b *Board) Render(w io.Writer) error {
	return b.doc.Render(w)
}

// Close unsubscribes every list from the store.
func (b *Board) Close() {
	for _, list := range b.lists {
		list.Close()
	}
}
