package component

import (
	"context"
	"fmt"
	"sync"

	"github.com/hylla/projboard/internal/app"
	"github.com/hylla/projboard/internal/domain"
	"golang.org/x/net/html"
)

// DroppableClass marks a list that accepts the current drag.
const DroppableClass = "droppable"

// ProjectList renders every project of one status and accepts drops.
type ProjectList struct {
	element

	status domain.ProjectStatus
	store  *app.Store
	logger app.Logger
	list   *html.Node
	sub    *app.Subscription

	mu       sync.Mutex
	assigned []domain.Project
	items    []*ProjectItem
}

// NewProjectList mounts a list at the end of the app host and subscribes it to store.
func NewProjectList(doc *Document, store *app.Store, status domain.ProjectStatus, opts ...Option) (*ProjectList, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("mount project list: %w", domain.ErrInvalidStatus)
	}
	cfg := buildOptions(opts)
	el, err := newElement(doc, TemplateProjectList, doc.ElementByID(HostApp), string(status)+"-projects")
	if err != nil {
		return nil, err
	}
	l := &ProjectList{
		element: el,
		status:  status,
		store:   store,
		logger:  cfg.logger,
	}
	if err := l.Attach(BeforeEnd); err != nil {
		return nil, fmt.Errorf("mount %s list: %w", status, err)
	}
	l.list = doc.QuerySelector(l.node, "ul")
	if l.list == nil {
		return nil, fmt.Errorf("mount %s list: %w: ul", status, ErrElementNotFound)
	}
	l.RenderContent()
	l.Configure()
	l.mu.Lock()
	l.sub = store.AddListener(l.assign)
	l.assigned = domain.FilterByStatus(store.Projects(), status)
	l.renderProjectsLocked()
	l.mu.Unlock()
	return l, nil
}

// Status returns the status this list renders.
func (l *ProjectList) Status() domain.ProjectStatus {
	return l.status
}

// ListNode returns the <ul> holding the rendered items.
func (l *ProjectList) ListNode() *html.Node {
	return l.list
}

// Projects returns the projects currently rendered.
func (l *ProjectList) Projects() []domain.Project {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.Project, len(l.assigned))
	copy(out, l.assigned)
	return out
}

// Droppable reports whether the drop affordance is showing.
func (l *ProjectList) Droppable() bool {
	return l.doc.HasClass(l.list, DroppableClass)
}

// Configure binds the drop-target handlers.
func (l *ProjectList) Configure() {
	l.doc.AddEventListener(l.node, "dragover", l.dragOverHandler)
	l.doc.AddEventListener(l.node, "drop", l.dropHandler)
	l.doc.AddEventListener(l.node, "dragleave", l.dragLeaveHandler)
}

// RenderContent writes the list id and heading.
func (l *ProjectList) RenderContent() {
	l.doc.SetAttr(l.list, "id", string(l.status)+"-projects-list")
	l.doc.SetText(l.doc.QuerySelector(l.node, "h2"), app.ListHeading(l.status))
}

// Close stops listening to the store.
func (l *ProjectList) Close() {
	l.sub.Unsubscribe()
}

// assign filters a store snapshot and re-renders the whole list.
func (l *ProjectList) assign(projects []domain.Project) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.assigned = domain.FilterByStatus(projects, l.status)
	l.renderProjectsLocked()
}

// renderProjectsLocked replaces every rendered item; callers hold l.mu.
func (l *ProjectList) renderProjectsLocked() {
	l.doc.RemoveChildren(l.list)
	l.items = l.items[:0]
	for _, project := range l.assigned {
		item, err := NewProjectItem(l.doc, l.list, project)
		if err != nil {
			l.logger.Error("render project failed", "status", l.status, "id", project.ID, "err", err)
			continue
		}
		l.items = append(l.items, item)
	}
}

// dragOverHandler accepts plain-text payloads only.
func (l *ProjectList) dragOverHandler(_ context.Context, ev *Event) {
	types := ev.DataTransfer.Types()
	if len(types) == 0 || types[0] != domain.MediaTypePlainText {
		return
	}
	ev.PreventDefault()
	l.doc.AddClass(l.list, DroppableClass)
}

// dropHandler turns the payload into a move request for this list's status.
func (l *ProjectList) dropHandler(ctx context.Context, ev *Event) {
	l.doc.RemoveClass(l.list, DroppableClass)
	ev.PreventDefault()
	id, err := domain.ParseDragPayload(ev.DataTransfer.GetData(domain.MediaTypePlainText))
	if err != nil {
		l.logger.Debug("drop ignored", "status", l.status, "err", err)
		return
	}
	if _, err := l.store.Move(ctx, domain.MoveRequest{ProjectID: id, Target: l.status}); err != nil {
		l.logger.Warn("drop move failed", "status", l.status, "id", id, "err", err)
	}
}

// dragLeaveHandler clears the drop affordance.
func (l *ProjectList) dragLeaveHandler(context.Context, *Event) {
	l.doc.RemoveClass(l.list, DroppableClass)
}
