package component

import (
	"context"
	"fmt"
	"strconv"

	"github.com/hylla/projboard/internal/domain"
	"golang.org/x/net/html"
)

// ItemElementID returns the element id of a rendered project.
func ItemElementID(id int64) string {
	return "project-" + strconv.FormatInt(id, 10)
}

// ProjectItem renders one project as a draggable list entry.
type ProjectItem struct {
	element
	project domain.Project
}

// NewProjectItem mounts one project at the end of host.
func NewProjectItem(doc *Document, host *html.Node, project domain.Project) (*ProjectItem, error) {
	el, err := newElement(doc, TemplateSingleProject, host, ItemElementID(project.ID))
	if err != nil {
		return nil, err
	}
	item := &ProjectItem{element: el, project: project}
	if err := item.Attach(BeforeEnd); err != nil {
		return nil, fmt.Errorf("mount project %d: %w", project.ID, err)
	}
	item.Configure()
	item.RenderContent()
	return item, nil
}

// Project returns the rendered project.
func (i *ProjectItem) Project() domain.Project {
	return i.project
}

// Configure marks the entry draggable and binds its drag handlers.
func (i *ProjectItem) Configure() {
	i.doc.SetAttr(i.node, "draggable", "true")
	i.doc.AddEventListener(i.node, "dragstart", i.dragStartHandler)
	i.doc.AddEventListener(i.node, "dragend", i.dragEndHandler)
}

// RenderContent writes title, assignment and description.
func (i *ProjectItem) RenderContent() {
	title := i.doc.CreateElement("h2")
	i.doc.SetText(title, i.project.Title)
	people := i.doc.CreateElement("h3")
	i.doc.SetText(people, i.project.AssignedLabel())
	description := i.doc.CreateElement("p")
	i.doc.SetText(description, i.project.Description)

	i.doc.RemoveChildren(i.node)
	i.doc.AppendChild(i.node, title)
	i.doc.AppendChild(i.node, people)
	i.doc.AppendChild(i.node, description)
}

// dragStartHandler publishes the project id as the plain-text payload.
func (i *ProjectItem) dragStartHandler(_ context.Context, ev *Event) {
	if ev.DataTransfer == nil {
		return
	}
	ev.DataTransfer.SetData(domain.MediaTypePlainText, domain.EncodeDragPayload(i.project.ID))
	ev.DataTransfer.EffectAllowed = domain.EffectMove
}

// dragEndHandler is reserved for visual cleanup.
func (i *ProjectItem) dragEndHandler(context.Context, *Event) {}
