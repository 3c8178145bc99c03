package app

import (
	"context"

	"github.com/hylla/projboard/internal/domain"
)

// Logger is the structured logging surface used by the store and its consumers.
// *log.Logger from charmbracelet/log satisfies it.
type Logger interface {
	Debug(msg any, keyvals ...any)
	Info(msg any, keyvals ...any)
	Warn(msg any, keyvals ...any)
	Error(msg any, keyvals ...any)
}

// ActivityRecorder persists committed store mutations.
type ActivityRecorder interface {
	RecordChange(context.Context, domain.ChangeEvent) error
}

// ActivityReader lists recorded store mutations, newest first.
type ActivityReader interface {
	ListChangeEvents(context.Context, int) ([]domain.ChangeEvent, error)
}

// StoreObserver receives store lifecycle signals, typically for metrics.
type StoreObserver interface {
	ProjectAdded(domain.Project)
	ProjectMoved(project domain.Project, from domain.ProjectStatus)
	SnapshotPublished(snapshot []domain.Project, listeners int)
	ListenerFailed()
}
