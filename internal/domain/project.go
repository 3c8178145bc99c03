package domain

import (
	"fmt"
	"strings"
	"time"
)

// ProjectStatus identifies which board list a project belongs to.
type ProjectStatus string

// ProjectStatus values.
const (
	StatusActive   ProjectStatus = "active"
	StatusFinished ProjectStatus = "finished"
)

// ProjectStatuses returns every status in board order.
func ProjectStatuses() []ProjectStatus {
	return []ProjectStatus{StatusActive, StatusFinished}
}

// ParseProjectStatus normalizes raw input into a known status.
func ParseProjectStatus(raw string) (ProjectStatus, error) {
	status := ProjectStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return status, nil
}

// Valid reports whether the status is one of the known values.
func (s ProjectStatus) Valid() bool {
	switch s {
	case StatusActive, StatusFinished:
		return true
	default:
		return false
	}
}

// Project represents one tracked unit of work.
type Project struct {
	ID          int64         `json:"id" yaml:"id"`
	Title       string        `json:"title" yaml:"title"`
	Description string        `json:"description" yaml:"description"`
	People      int           `json:"people" yaml:"people"`
	Status      ProjectStatus `json:"status" yaml:"status"`
	CreatedAt   time.Time     `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" yaml:"updated_at"`
}

// ProjectInput holds the values needed to build a project.
type ProjectInput struct {
	ID          int64
	Title       string
	Description string
	People      int
	Status      ProjectStatus
}

// NewProject constructs a project; an empty status defaults to active.
func NewProject(in ProjectInput, now time.Time) (Project, error) {
	if in.ID <= 0 {
		return Project{}, ErrInvalidID
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Project{}, ErrInvalidTitle
	}
	if in.People < 0 {
		return Project{}, ErrInvalidPeople
	}
	status := in.Status
	if status == "" {
		status = StatusActive
	}
	if !status.Valid() {
		return Project{}, ErrInvalidStatus
	}

	return Project{
		ID:          in.ID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		People:      in.People,
		Status:      status,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}, nil
}

// Move changes the project status and reports whether anything changed.
func (p *Project) Move(status ProjectStatus, now time.Time) (bool, error) {
	if !status.Valid() {
		return false, ErrInvalidStatus
	}
	if p.Status == status {
		return false, nil
	}
	p.Status = status
	p.UpdatedAt = now.UTC()
	return true, nil
}

// PeopleLabel renders the people count, singular only for exactly one.
func (p Project) PeopleLabel() string {
	if p.People == 1 {
		return "1 person"
	}
	return fmt.Sprintf("%d persons", p.People)
}

// AssignedLabel renders the "N person(s) assigned" caption.
func (p Project) AssignedLabel() string {
	return p.PeopleLabel() + " assigned"
}

// FilterByStatus returns the projects with the given status, preserving order.
func FilterByStatus(projects []Project, status ProjectStatus) []Project {
	out := make([]Project, 0, len(projects))
	for _, p := range projects {
		if p.Status == status {
			out = append(out, p)
		}
	}
	return out
}
