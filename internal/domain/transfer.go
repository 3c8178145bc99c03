package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Drag payload constants shared by every host that moves projects.
const (
	MediaTypePlainText = "text/plain"
	EffectMove         = "move"
)

// MoveRequest asks for one project to be placed in the target list.
type MoveRequest struct {
	ProjectID int64         `json:"project_id"`
	Target    ProjectStatus `json:"target"`
}

// EncodeDragPayload renders a project id as the plain-text drag payload.
func EncodeDragPayload(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ParseDragPayload decodes a plain-text drag payload back into a project id.
func ParseDragPayload(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPayload, raw)
	}
	return id, nil
}
