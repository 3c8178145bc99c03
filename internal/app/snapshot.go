package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/hylla/projboard/internal/domain"
)

// SnapshotVersion defines the board export format version.
const SnapshotVersion = "projboard.board.v1"

// Snapshot represents an exported board: one list per status.
type Snapshot struct {
	Version    string         `json:"version" yaml:"version"`
	ExportedAt time.Time      `json:"exported_at" yaml:"exported_at"`
	Total      int            `json:"total" yaml:"total"`
	Lists      []SnapshotList `json:"lists" yaml:"lists"`
}

// SnapshotList represents one status list in an export.
type SnapshotList struct {
	Status   domain.ProjectStatus `json:"status" yaml:"status"`
	Heading  string               `json:"heading" yaml:"heading"`
	Projects []SnapshotProject    `json:"projects" yaml:"projects"`
}

// SnapshotProject represents one exported project row.
type SnapshotProject struct {
	ID          int64     `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description" yaml:"description"`
	People      int       `json:"people" yaml:"people"`
	Assigned    string    `json:"assigned" yaml:"assigned"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
}

// ListHeading returns the display heading of a status list.
func ListHeading(status domain.ProjectStatus) string {
	return strings.ToUpper(string(status)) + " PROJECTS"
}

// ExportSnapshot groups projects by status, keeping insertion order within each list.
func ExportSnapshot(projects []domain.Project, now time.Time) Snapshot {
	snap := Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: now.UTC(),
		Total:      len(projects),
		Lists:      make([]SnapshotList, 0, len(domain.ProjectStatuses())),
	}
	for _, status := range domain.ProjectStatuses() {
		list := SnapshotList{
			Status:   status,
			Heading:  ListHeading(status),
			Projects: make([]SnapshotProject, 0),
		}
		for _, project := range domain.FilterByStatus(projects, status) {
			list.Projects = append(list.Projects, snapshotProjectFromDomain(project))
		}
		snap.Lists = append(snap.Lists, list)
	}
	return snap
}

// List returns the exported list for one status.
func (s Snapshot) List(status domain.ProjectStatus) (SnapshotList, bool) {
	for _, list := range s.Lists {
		if list.Status == status {
			return list, true
		}
	}
	return SnapshotList{}, false
}

// Markdown renders the snapshot as a markdown document.
func (s Snapshot) Markdown() string {
	var b strings.Builder
	for idx, list := range s.Lists {
		if idx > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "## %s\n\n", list.Heading)
		if len(list.Projects) == 0 {
			b.WriteString("_none_\n")
			continue
		}
		for _, project := range list.Projects {
			fmt.Fprintf(&b, "- **%s** (%s)\n", project.Title, project.Assigned)
			if project.Description != "" {
				fmt.Fprintf(&b, "  %s\n", project.Description)
			}
		}
	}
	return b.String()
}

// snapshotProjectFromDomain maps one project into its export row.
func snapshotProjectFromDomain(p domain.Project) SnapshotProject {
	return SnapshotProject{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		People:      p.People,
		Assigned:    p.AssignedLabel(),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
