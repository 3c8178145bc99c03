package component

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hylla/projboard/internal/app"
	"github.com/hylla/projboard/internal/domain"
	"gopkg.in/yaml.v3"
)

// ErrInvalidScript reports a malformed replay script.
var ErrInvalidScript = errors.New("invalid replay script")

// Script is a sequence of board gestures.
type Script struct {
	Steps []Step `yaml:"steps"`
}

// Step holds exactly one gesture.
type Step struct {
	Add  *AddStep  `yaml:"add,omitempty"`
	Move *MoveStep `yaml:"move,omitempty"`
}

// AddStep types values into the form and submits it. Values stay raw so the form rules apply.
type AddStep struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	People      string `yaml:"people"`
}

// MoveStep drags one project onto a list.
type MoveStep struct {
	ID     int64  `yaml:"id"`
	Status string `yaml:"status"`
}

// ReplayResult counts what a replay did.
type ReplayResult struct {
	Added    int `json:"added" yaml:"added"`
	Moved    int `json:"moved" yaml:"moved"`
	Rejected int `json:"rejected" yaml:"rejected"`
	Ignored  int `json:"ignored" yaml:"ignored"`
}

// ParseScript decodes a YAML script, rejecting unknown keys and ambiguous steps.
func ParseScript(r io.Reader) (Script, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	var script Script
	if err := decoder.Decode(&script); err != nil {
		if errors.Is(err, io.EOF) {
			return Script{}, nil
		}
		return Script{}, fmt.Errorf("%w: %v", ErrInvalidScript, err)
	}
	for idx, step := range script.Steps {
		if (step.Add == nil) == (step.Move == nil) {
			return Script{}, fmt.Errorf("%w: step %d must set exactly one of add or move", ErrInvalidScript, idx)
		}
		if step.Move != nil {
			if _, err := domain.ParseProjectStatus(step.Move.Status); err != nil {
				return Script{}, fmt.Errorf("%w: step %d: %v", ErrInvalidScript, idx, err)
			}
		}
	}
	return script, nil
}

// Replay plays script against board as if a user performed each gesture. Rejected
// submissions and moves of projects the board does not show are counted, not returned.
func Replay(ctx context.Context, board *Board, script Script, logger app.Logger) (ReplayResult, error) {
	var result ReplayResult
	for idx, step := range script.Steps {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		switch {
		case step.Add != nil:
			board.SetField(app.FieldTitle, step.Add.Title)
			board.SetField(app.FieldDescription, step.Add.Description)
			board.SetField(app.FieldPeople, strings.TrimSpace(step.Add.People))
			if _, err := board.Submit(ctx); err != nil {
				result.Rejected++
				if logger != nil {
					logger.Warn("replay add rejected", "step", idx, "fields", app.FailedFields(err))
				}
				for _, name := range fieldNames() {
					board.SetField(name, "")
				}
				continue
			}
			result.Added++
		case step.Move != nil:
			status, err := domain.ParseProjectStatus(step.Move.Status)
			if err != nil {
				return result, fmt.Errorf("replay step %d: %w", idx, err)
			}
			transfer, err := board.DragStart(ctx, step.Move.ID)
			if err != nil {
				result.Ignored++
				if logger != nil {
					logger.Warn("replay move ignored", "step", idx, "id", step.Move.ID, "err", err)
				}
				continue
			}
			before, _ := board.store.Project(step.Move.ID)
			if !board.DragOver(ctx, status, transfer) {
				result.Ignored++
				board.DragEnd(ctx, step.Move.ID, transfer)
				continue
			}
			if err := board.Drop(ctx, status, transfer); err != nil {
				return result, fmt.Errorf("replay step %d: %w", idx, err)
			}
			board.DragEnd(ctx, step.Move.ID, transfer)
			if before.Status != status {
				result.Moved++
			}
		}
	}
	return result, nil
}
