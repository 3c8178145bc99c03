// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/hylla/projboard/internal/domain"
)

// ErrInvalidRequest reports malformed transport input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotFound reports missing transport-visible resources.
var ErrNotFound = errors.New("not found")

// ErrActivityUnavailable reports a server started without an activity ledger.
var ErrActivityUnavailable = errors.New("activity ledger unavailable")

// ListProjectsRequest filters project listings. An empty status lists every project.
type ListProjectsRequest struct {
	Status string
}

// AddProjectRequest carries raw form values. People accepts a JSON number or numeric string.
type AddProjectRequest struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	People      json.Number `json:"people"`
}

// MoveProjectRequest asks for one project to change lists.
type MoveProjectRequest struct {
	ID     int64  `json:"-"`
	Status string `json:"status"`
}

// MoveProjectResult reports the outcome of one move.
type MoveProjectResult struct {
	Moved   bool           `json:"moved"`
	Project domain.Project `json:"project"`
}

// ProjectService is the project surface shared by every transport.
type ProjectService interface {
	ListProjects(context.Context, ListProjectsRequest) ([]domain.Project, error)
	AddProject(context.Context, AddProjectRequest) (domain.Project, error)
	MoveProject(context.Context, MoveProjectRequest) (MoveProjectResult, error)
}

// ActivityService lists recorded store mutations.
type ActivityService interface {
	ListActivity(context.Context, int) ([]domain.ChangeEvent, error)
}
