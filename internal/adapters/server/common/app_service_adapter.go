package common

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hylla/projboard/internal/app"
	"github.com/hylla/projboard/internal/domain"
)

var (
	_ ProjectService  = (*AppServiceAdapter)(nil)
	_ ActivityService = (*AppServiceAdapter)(nil)
)

// AppServiceAdapter maps transport contracts onto the project store and activity ledger.
type AppServiceAdapter struct {
	store    *app.Store
	rules    app.FormRules
	activity app.ActivityReader
}

// NewAppServiceAdapter builds one common adapter over a store. activity may be nil.
func NewAppServiceAdapter(store *app.Store, rules app.FormRules, activity app.ActivityReader) *AppServiceAdapter {
	return &AppServiceAdapter{store: store, rules: rules, activity: activity}
}

// ListProjects returns every project, optionally filtered by status.
func (a *AppServiceAdapter) ListProjects(_ context.Context, in ListProjectsRequest) ([]domain.Project, error) {
	if a == nil || a.store == nil {
		return nil, fmt.Errorf("app service adapter is not configured: %w", ErrInvalidRequest)
	}
	projects := a.store.Projects()
	if strings.TrimSpace(in.Status) == "" {
		return projects, nil
	}
	status, err := domain.ParseProjectStatus(in.Status)
	if err != nil {
		return nil, mapAppError("list projects", err)
	}
	return domain.FilterByStatus(projects, status), nil
}

// AddProject validates raw form values with the form rules and adds the project.
func (a *AppServiceAdapter) AddProject(ctx context.Context, in AddProjectRequest) (domain.Project, error) {
	if a == nil || a.store == nil {
		return domain.Project{}, fmt.Errorf("app service adapter is not configured: %w", ErrInvalidRequest)
	}
	input, err := a.rules.Check(app.RawProjectInput{
		Title:       in.Title,
		Description: in.Description,
		People:      in.People.String(),
	})
	if err != nil {
		return domain.Project{}, mapAppError("add project", err)
	}
	project, err := a.store.AddProject(ctx, input)
	if err != nil {
		return domain.Project{}, mapAppError("add project", err)
	}
	return project, nil
}

// MoveProject moves an existing project. Unknown ids are reported as not found.
func (a *AppServiceAdapter) MoveProject(ctx context.Context, in MoveProjectRequest) (MoveProjectResult, error) {
	if a == nil || a.store == nil {
		return MoveProjectResult{}, fmt.Errorf("app service adapter is not configured: %w", ErrInvalidRequest)
	}
	status, err := domain.ParseProjectStatus(in.Status)
	if err != nil {
		return MoveProjectResult{}, mapAppError("move project", err)
	}
	if _, ok := a.store.Project(in.ID); !ok {
		return MoveProjectResult{}, fmt.Errorf("move project %d: %w", in.ID, ErrNotFound)
	}
	moved, err := a.store.MoveProject(ctx, in.ID, status)
	if err != nil {
		return MoveProjectResult{}, mapAppError("move project", err)
	}
	project, ok := a.store.Project(in.ID)
	if !ok {
		return MoveProjectResult{}, fmt.Errorf("move project %d: %w", in.ID, ErrNotFound)
	}
	return MoveProjectResult{Moved: moved, Project: project}, nil
}

// ListActivity lists ledger rows, newest first.
func (a *AppServiceAdapter) ListActivity(ctx context.Context, limit int) ([]domain.ChangeEvent, error) {
	if a == nil || a.activity == nil {
		return nil, ErrActivityUnavailable
	}
	events, err := a.activity.ListChangeEvents(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return events, nil
}

// mapAppError attaches the transport sentinel matching an app or domain error.
func mapAppError(op string, err error) error {
	switch {
	case errors.Is(err, app.ErrNotFound):
		return fmt.Errorf("%s: %w", op, errors.Join(ErrNotFound, err))
	case errors.Is(err, app.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidTitle),
		errors.Is(err, domain.ErrInvalidPeople),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidPayload):
		return fmt.Errorf("%s: %w", op, errors.Join(ErrInvalidRequest, err))
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
