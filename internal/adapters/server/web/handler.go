// Package web serves the board page and replays browser form and drop events against it.
package web

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	charmLog "github.com/charmbracelet/log"
	"github.com/hylla/projboard/internal/app"
	"github.com/hylla/projboard/internal/component"
	"github.com/hylla/projboard/internal/domain"
)

// maxFormBytes limits form and drop payload size.
const maxFormBytes int64 = 64 << 10

// DropPayload is the JSON body posted by the page script on drop.
type DropPayload struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// Handler renders one board per request over a shared store.
type Handler struct {
	store  *app.Store
	rules  app.FormRules
	logger app.Logger
}

// NewHandler constructs the browser-facing handler.
func NewHandler(store *app.Store, rules app.FormRules, logger app.Logger) *Handler {
	if logger == nil {
		logger = charmLog.New(io.Discard)
	}
	if rules == (app.FormRules{}) {
		rules = app.DefaultFormRules()
	}
	return &Handler{store: store, rules: rules, logger: logger}
}

// ServeHTTP routes page, submit, and drop requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.store == nil {
		http.Error(w, "board unavailable", http.StatusServiceUnavailable)
		return
	}
	r = r.WithContext(app.WithActor(r.Context(), app.ActorWeb))
	path := strings.Trim(r.URL.Path, "/")
	switch {
	case path == "":
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		h.handlePage(w, r)
	case path == "submit":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		h.handleSubmit(w, r)
	default:
		status, ok := resolveDropStatus(path)
		if !ok {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		h.handleDrop(w, r, status)
	}
}

// handlePage renders the current board.
func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request) {
	board, err := h.newBoard()
	if err != nil {
		h.internalError(w, err)
		return
	}
	defer board.Close()
	h.render(w, board, http.StatusOK)
}

// handleSubmit types the posted fields into the form and submits it.
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}
	board, err := h.newBoard()
	if err != nil {
		h.internalError(w, err)
		return
	}
	defer board.Close()

	board.SetField(app.FieldTitle, r.PostForm.Get(app.FieldTitle))
	board.SetField(app.FieldDescription, r.PostForm.Get(app.FieldDescription))
	board.SetField(app.FieldPeople, r.PostForm.Get(app.FieldPeople))
	if _, err := board.Submit(r.Context()); err != nil {
		h.logger.Info("web submission rejected", "fields", app.FailedFields(err))
		h.render(w, board, http.StatusUnprocessableEntity)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleDrop replays dragover and drop on the target list.
func (h *Handler) handleDrop(w http.ResponseWriter, r *http.Request, status domain.ProjectStatus) {
	payload, isJSON, err := decodeDropPayload(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	board, err := h.newBoard()
	if err != nil {
		h.internalError(w, err)
		return
	}
	defer board.Close()

	dt := component.NewDataTransfer()
	dt.SetData(payload.Type, payload.Data)
	if !board.DragOver(r.Context(), status, dt) {
		http.Error(w, "drop payload not accepted", http.StatusUnsupportedMediaType)
		return
	}
	if err := board.Drop(r.Context(), status, dt); err != nil {
		h.internalError(w, err)
		return
	}
	if isJSON {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// newBoard mounts a fresh board over the shared store.
func (h *Handler) newBoard() (*component.Board, error) {
	doc, err := component.NewDocument()
	if err != nil {
		return nil, err
	}
	return component.NewBoard(doc, h.store,
		component.WithFormRules(h.rules),
		component.WithLogger(h.logger),
	)
}

// render writes the board page with statusCode.
func (h *Handler) render(w http.ResponseWriter, board *component.Board, statusCode int) {
	var page strings.Builder
	if err := board.Render(&page); err != nil {
		h.internalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = io.WriteString(w, page.String())
}

// internalError logs and reports an unexpected failure.
func (h *Handler) internalError(w http.ResponseWriter, err error) {
	h.logger.Error("web request failed", "err", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// decodeDropPayload reads a JSON or form-encoded drop body.
func decodeDropPayload(w http.ResponseWriter, r *http.Request) (DropPayload, bool, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var payload DropPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			return DropPayload{}, true, errors.New("malformed drop payload")
		}
		return payload, true, nil
	}
	if err := r.ParseForm(); err != nil {
		return DropPayload{}, false, errors.New("malformed form")
	}
	payload := DropPayload{
		Type: r.PostForm.Get("type"),
		Data: r.PostForm.Get("data"),
	}
	if payload.Type == "" {
		payload.Type = domain.MediaTypePlainText
	}
	return payload, false, nil
}

// resolveDropStatus parses `lists/{status}/drop`.
func resolveDropStatus(path string) (domain.ProjectStatus, bool) {
	parts := strings.Split(path, "/")
	if len(parts) != 3 || parts[0] != "lists" || parts[2] != "drop" {
		return "", false
	}
	status, err := domain.ParseProjectStatus(parts[1])
	if err != nil {
		return "", false
	}
	return status, true
}

// methodNotAllowed writes a 405 with the Allow header.
func methodNotAllowed(w http.ResponseWriter, methods ...string) {
	w.Header().Set("Allow", strings.Join(methods, ", "))
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}

var _ http.Handler = (*Handler)(nil)
