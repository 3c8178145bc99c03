package component

import (
	"context"
	"fmt"
	"sync"

	"github.com/hylla/projboard/internal/app"
	"github.com/hylla/projboard/internal/domain"
	"golang.org/x/net/html"
)

// ProjectInput is the form that creates projects.
type ProjectInput struct {
	element

	store  *app.Store
	rules  app.FormRules
	logger app.Logger

	fields map[string]*html.Node

	mu      sync.Mutex
	lastErr error
	last    domain.Project
	added   bool
}

// NewProjectInput mounts the form at the start of the app host.
func NewProjectInput(doc *Document, store *app.Store, opts ...Option) (*ProjectInput, error) {
	cfg := buildOptions(opts)
	el, err := newElement(doc, TemplateProjectInput, doc.ElementByID(HostApp), FormElementID)
	if err != nil {
		return nil, err
	}
	in := &ProjectInput{
		element: el,
		store:   store,
		rules:   cfg.rules,
		logger:  cfg.logger,
		fields:  map[string]*html.Node{},
	}
	if err := in.Attach(AfterBegin); err != nil {
		return nil, fmt.Errorf("mount project input: %w", err)
	}
	in.Configure()
	in.RenderContent()
	return in, nil
}

// Configure resolves the field elements and binds the submit handler.
func (in *ProjectInput) Configure() {
	for _, name := range fieldNames() {
		in.fields[name] = in.doc.QuerySelector(in.node, "#"+name)
	}
	in.doc.AddEventListener(in.node, "submit", in.submitHandler)
}

// RenderContent is a no-op; the form template is static.
func (in *ProjectInput) RenderContent() {}

// Value returns the current raw value of a field.
func (in *ProjectInput) Value(name string) string {
	node := in.fields[name]
	if node == nil {
		return ""
	}
	if node.Data == "textarea" {
		return in.doc.Text(node)
	}
	value, _ := in.doc.Attr(node, "value")
	return value
}

// SetValue replaces the raw value of a field. Unknown names are ignored.
func (in *ProjectInput) SetValue(name, value string) {
	node := in.fields[name]
	if node == nil {
		return
	}
	if node.Data == "textarea" {
		in.doc.SetText(node, value)
		return
	}
	in.doc.SetAttr(node, "value", value)
}

// LastError returns the rejection of the most recent submission, or nil.
func (in *ProjectInput) LastError() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.lastErr
}

// LastAdded returns the project created by the most recent accepted submission.
func (in *ProjectInput) LastAdded() (domain.Project, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.last, in.added
}

// submitHandler validates the form and forwards accepted input to the store.
func (in *ProjectInput) submitHandler(ctx context.Context, ev *Event) {
	ev.PreventDefault()
	input, err := in.gatherUserInput()
	if err == nil {
		var project domain.Project
		project, err = in.store.AddProject(ctx, input)
		if err == nil {
			in.setResult(project, nil)
			return
		}
	}
	in.logger.Debug("project form rejected", "fields", app.FailedFields(err), "err", err)
	in.setResult(domain.Project{}, err)
}

// gatherUserInput checks the raw fields and clears them only when all pass.
func (in *ProjectInput) gatherUserInput() (app.AddProjectInput, error) {
	raw := app.RawProjectInput{
		Title:       in.Value(app.FieldTitle),
		Description: in.Value(app.FieldDescription),
		People:      in.Value(app.FieldPeople),
	}
	input, err := in.rules.Check(raw)
	failed := app.FailedFields(err)
	for _, name := range fieldNames() {
		in.doc.RemoveClass(in.fields[name], "invalid")
	}
	for _, name := range failed {
		in.doc.AddClass(in.fields[name], "invalid")
	}
	if err != nil {
		return app.AddProjectInput{}, err
	}
	in.clearInputs()
	return input, nil
}

// clearInputs empties every field.
func (in *ProjectInput) clearInputs() {
	for _, name := range fieldNames() {
		in.SetValue(name, "")
	}
}

// setResult stores the outcome of one submission.
func (in *ProjectInput) setResult(project domain.Project, err error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.lastErr = err
	in.last = project
	in.added = err == nil
}

// fieldNames lists the form fields in display order.
func fieldNames() []string {
	return []string{app.FieldTitle, app.FieldDescription, app.FieldPeople}
}
