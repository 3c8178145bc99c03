// Package tui hosts the project board in a terminal, driving the same components as the web page.
package tui

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"slices"
	"strings"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	charmLog "github.com/charmbracelet/log"
	"github.com/hylla/projboard/internal/app"
	"github.com/hylla/projboard/internal/component"
	"github.com/hylla/projboard/internal/domain"
)

// focusArea identifies which part of the board receives keys.
type focusArea int

// focusForm and related constants define the focus targets.
const (
	focusForm focusArea = iota
	focusActive
	focusFinished
)

// formFields stores form field names in display order.
var formFields = []string{app.FieldTitle, app.FieldDescription, app.FieldPeople}

// focusStops counts form fields plus lists, the tab cycle length.
var focusStops = len(formFields) + 2

// defaultColumnWidth is used until the first WindowSizeMsg.
const defaultColumnWidth = 40

// grabState tracks one keyboard drag in progress.
type grabState struct {
	projectID int64
	title     string
	source    domain.ProjectStatus
	target    domain.ProjectStatus
	transfer  *component.DataTransfer
}

// clipboardMsg reports the outcome of one yank.
type clipboardMsg struct {
	payload string
	err     error
}

// Model is the bubbletea model for the board.
type Model struct {
	board    *component.Board
	rules    app.FormRules
	logger   app.Logger
	ui       UIConfig
	keys     keyMap
	help     help.Model
	copyText ClipboardWriter
	markdown *markdownRenderer

	inputs    []textinput.Model
	formField int
	invalid   map[string]bool
	focus     focusArea
	selected  map[domain.ProjectStatus]int
	grab      *grabState

	status string
	width  int
	height int
	err    error
}

// NewModel mounts a board over store and returns the model driving it.
func NewModel(store *app.Store, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	m := Model{
		rules:    app.DefaultFormRules(),
		logger:   charmLog.New(io.Discard),
		ui:       DefaultUIConfig(),
		keys:     newKeyMap(),
		help:     h,
		copyText: systemClipboard,
		markdown: &markdownRenderer{},
		inputs: []textinput.Model{
			newFormInput("title: ", "at least 2 characters"),
			newFormInput("description: ", "what the project is about"),
			newFormInput("people: ", "1-10"),
		},
		invalid:  map[string]bool{},
		selected: map[domain.ProjectStatus]int{},
		status:   "ready",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	if m.rules == (app.FormRules{}) {
		m.rules = app.DefaultFormRules()
	}

	doc, err := component.NewDocument()
	if err != nil {
		m.err = fmt.Errorf("load board document: %w", err)
		return m
	}
	board, err := component.NewBoard(doc, store,
		component.WithFormRules(m.rules),
		component.WithLogger(m.logger),
	)
	if err != nil {
		m.err = fmt.Errorf("mount board: %w", err)
		return m
	}
	m.board = board
	m.inputs[0].Focus()
	return m
}

// newFormInput constructs one form field. Length is left to the form rules.
func newFormInput(prompt, placeholder string) textinput.Model {
	in := textinput.New()
	in.Prompt = prompt
	in.Placeholder = placeholder
	in.CharLimit = 0
	return in
}

// Close unsubscribes the board from the store.
func (m Model) Close() {
	if m.board != nil {
		m.board.Close()
	}
}

// Init returns no startup command; the board renders from the store synchronously.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update applies one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.SetWidth(max(0, msg.Width-2))
		return m, nil

	case clipboardMsg:
		if msg.err != nil {
			m.status = "copy failed: " + msg.err.Error()
			m.logger.Warn("clipboard write failed", "err", msg.err)
			return m, nil
		}
		m.status = "copied drag payload " + msg.payload
		return m, nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)
	}

	if m.focus == focusForm && m.board != nil {
		var cmd tea.Cmd
		m.inputs[m.formField], cmd = m.inputs[m.formField].Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleKey routes one key press by focus.
func (m Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.board == nil {
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.nextFocus):
		return m.cycleFocus(1)
	case key.Matches(msg, m.keys.prevFocus):
		return m.cycleFocus(-1)
	}
	if m.focus == focusForm {
		return m.handleFormKey(msg)
	}
	return m.handleListKey(msg)
}

// handleFormKey edits, submits, or leaves the form.
func (m Model) handleFormKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.submit):
		return m.submitForm()
	case key.Matches(msg, m.keys.cancel):
		return m.setFocusStop(len(formFields))
	}
	var cmd tea.Cmd
	m.inputs[m.formField], cmd = m.inputs[m.formField].Update(msg)
	return m, cmd
}

// handleListKey navigates lists and drives keyboard drags.
func (m Model) handleListKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		m.cancelGrab()
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.grab):
		m.startGrab()
		return m, nil
	case key.Matches(msg, m.keys.submit):
		m.dropGrab()
		return m, nil
	case key.Matches(msg, m.keys.cancel):
		if m.grab != nil {
			m.cancelGrab()
			m.status = "drag cancelled"
		}
		return m, nil
	case key.Matches(msg, m.keys.yank):
		return m, m.yankSelected()
	case key.Matches(msg, m.keys.moveLeft):
		m.shiftList(-1)
		return m, nil
	case key.Matches(msg, m.keys.moveRight):
		m.shiftList(1)
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		m.moveSelection(-1)
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		m.moveSelection(1)
		return m, nil
	}
	return m, nil
}

// cycleFocus steps through form fields and lists.
func (m Model) cycleFocus(delta int) (tea.Model, tea.Cmd) {
	if m.grab != nil {
		m.cancelGrab()
		m.status = "drag cancelled"
	}
	return m.setFocusStop((m.focusStop() + delta + focusStops) % focusStops)
}

// focusStop returns the current position in the tab cycle.
func (m Model) focusStop() int {
	switch m.focus {
	case focusActive:
		return len(formFields)
	case focusFinished:
		return len(formFields) + 1
	default:
		return m.formField
	}
}

// setFocusStop moves focus to one position in the tab cycle.
func (m Model) setFocusStop(stop int) (tea.Model, tea.Cmd) {
	for idx := range m.inputs {
		m.inputs[idx].Blur()
	}
	switch {
	case stop < len(formFields):
		m.focus = focusForm
		m.formField = stop
		return m, m.inputs[stop].Focus()
	case stop == len(formFields):
		m.focus = focusActive
	default:
		m.focus = focusFinished
	}
	return m, nil
}

// submitForm types the inputs into the board form and submits it.
func (m Model) submitForm() (tea.Model, tea.Cmd) {
	for idx, name := range formFields {
		m.board.SetField(name, m.inputs[idx].Value())
	}
	if _, err := m.board.Submit(m.actionContext()); err != nil {
		m.invalid = map[string]bool{}
		fields := app.FailedFields(err)
		for _, name := range fields {
			m.invalid[name] = true
		}
		if len(fields) > 0 {
			m.status = "invalid: " + strings.Join(fields, ", ")
		} else {
			m.status = "add failed: " + err.Error()
		}
		return m, nil
	}
	project, _ := m.board.Input().LastAdded()
	for idx := range m.inputs {
		m.inputs[idx].Reset()
	}
	m.invalid = map[string]bool{}
	m.status = "added " + project.Title
	return m.setFocusStop(0)
}

// startGrab begins a keyboard drag of the selected project.
func (m *Model) startGrab() {
	if m.grab != nil {
		return
	}
	project, ok := m.selectedProject()
	if !ok {
		m.status = "nothing to grab"
		return
	}
	ctx := m.actionContext()
	transfer, err := m.board.DragStart(ctx, project.ID)
	if err != nil {
		m.status = "grab failed: " + err.Error()
		return
	}
	m.grab = &grabState{
		projectID: project.ID,
		title:     project.Title,
		source:    project.Status,
		target:    project.Status,
		transfer:  transfer,
	}
	m.board.DragOver(ctx, project.Status, transfer)
	m.status = "grabbed " + project.Title + ": h/l pick a list, enter drops, esc cancels"
}

// shiftList retargets an active drag, or moves focus between lists.
func (m *Model) shiftList(delta int) {
	statuses := domain.ProjectStatuses()
	current := m.focusedStatus()
	if m.grab != nil {
		current = m.grab.target
	}
	idx := slices.Index(statuses, current)
	next := statuses[clamp(idx+delta, 0, len(statuses)-1)]
	if next == current {
		return
	}
	if m.grab != nil {
		ctx := m.actionContext()
		m.board.DragLeave(ctx, m.grab.target)
		m.grab.target = next
		if !m.board.DragOver(ctx, next, m.grab.transfer) {
			m.status = "list refused the drag"
		}
	}
	m.focus = focusFor(next)
}

// dropGrab releases the active drag on its target list.
func (m *Model) dropGrab() {
	if m.grab == nil {
		return
	}
	grab := m.grab
	m.grab = nil
	ctx := m.actionContext()
	if err := m.board.Drop(ctx, grab.target, grab.transfer); err != nil {
		m.status = "drop failed: " + err.Error()
		m.board.DragEnd(ctx, grab.projectID, grab.transfer)
		return
	}
	m.board.DragEnd(ctx, grab.projectID, grab.transfer)
	m.focus = focusFor(grab.target)
	if idx := slices.IndexFunc(m.listProjects(grab.target), func(p domain.Project) bool {
		return p.ID == grab.projectID
	}); idx >= 0 {
		m.selected[grab.target] = idx
	}
	if grab.source == grab.target {
		m.status = grab.title + " stays in " + app.ListHeading(grab.target)
		return
	}
	m.status = "moved " + grab.title + " to " + app.ListHeading(grab.target)
}

// cancelGrab abandons the active drag without moving anything.
func (m *Model) cancelGrab() {
	if m.grab == nil {
		return
	}
	ctx := m.actionContext()
	m.board.DragLeave(ctx, m.grab.target)
	m.board.DragEnd(ctx, m.grab.projectID, m.grab.transfer)
	m.focus = focusFor(m.grab.source)
	m.grab = nil
}

// yankSelected copies the selected project's drag payload.
func (m Model) yankSelected() tea.Cmd {
	project, ok := m.selectedProject()
	if !ok {
		return nil
	}
	payload := domain.EncodeDragPayload(project.ID)
	write := m.copyText
	return func() tea.Msg {
		return clipboardMsg{payload: payload, err: write(payload)}
	}
}

// moveSelection moves the cursor inside the focused list.
func (m *Model) moveSelection(delta int) {
	if m.grab != nil {
		return
	}
	status := m.focusedStatus()
	projects := m.listProjects(status)
	if len(projects) == 0 {
		return
	}
	m.selected[status] = clamp(m.selected[status]+delta, 0, len(projects)-1)
}

// selectedProject returns the project under the cursor of the focused list.
func (m Model) selectedProject() (domain.Project, bool) {
	if m.focus == focusForm {
		return domain.Project{}, false
	}
	status := m.focusedStatus()
	projects := m.listProjects(status)
	if len(projects) == 0 {
		return domain.Project{}, false
	}
	return projects[clamp(m.selected[status], 0, len(projects)-1)], true
}

// listProjects returns what the list for status currently renders.
func (m Model) listProjects(status domain.ProjectStatus) []domain.Project {
	if m.board == nil {
		return nil
	}
	list, ok := m.board.List(status)
	if !ok {
		return nil
	}
	return list.Projects()
}

// focusedStatus maps list focus to its status.
func (m Model) focusedStatus() domain.ProjectStatus {
	if m.focus == focusFinished {
		return domain.StatusFinished
	}
	return domain.StatusActive
}

// focusFor maps a status to its list focus.
func focusFor(status domain.ProjectStatus) focusArea {
	if status == domain.StatusFinished {
		return focusFinished
	}
	return focusActive
}

// actionContext tags board mutations with the TUI actor.
func (m Model) actionContext() context.Context {
	return app.WithActor(context.Background(), app.ActorTUI)
}

// View renders the board.
func (m Model) View() tea.View {
	if m.err != nil {
		v := tea.NewView("error: " + m.err.Error() + "\n\npress q to quit\n")
		v.AltScreen = true
		return v
	}

	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle := lipgloss.NewStyle().Foreground(dim)

	columnWidth := defaultColumnWidth
	if m.width > 0 {
		columnWidth = max(24, (m.width-2)/2)
	}
	lists := make([]string, 0, 2)
	for _, status := range domain.ProjectStatuses() {
		lists = append(lists, m.renderList(status, columnWidth, accent, muted, dim))
	}

	helpLine := lipgloss.NewStyle().
		Foreground(muted).
		BorderTop(true).
		BorderForeground(dim).
		Padding(0, 1).
		Render(m.help.View(m.keys))

	sections := []string{
		titleStyle.Render("projboard"),
		m.renderForm(accent, muted),
		lipgloss.JoinHorizontal(lipgloss.Top, lists...),
		statusStyle.Render(m.status),
		helpLine,
	}
	content := strings.Join(sections, "\n")
	if m.height > 0 {
		content = fitLines(content, m.height)
	}
	v := tea.NewView(content)
	v.AltScreen = true
	return v
}

// renderForm draws the three form inputs.
func (m Model) renderForm(accent, muted color.Color) string {
	invalidStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	borderColor := muted
	if m.focus == focusForm {
		borderColor = accent
	}
	lines := make([]string, 0, len(m.inputs)+1)
	lines = append(lines, lipgloss.NewStyle().Bold(true).Render("ADD PROJECT"))
	for idx, name := range formFields {
		line := m.inputs[idx].View()
		if m.invalid[name] {
			line += " " + invalidStyle.Render("invalid")
		}
		lines = append(lines, line)
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}

// renderList draws one project list.
func (m Model) renderList(status domain.ProjectStatus, width int, accent, muted, dim color.Color) string {
	list, _ := m.board.List(status)
	projects := list.Projects()
	focused := m.focus == focusFor(status) && m.focus != focusForm

	borderColor := dim
	switch {
	case list.Droppable():
		borderColor = lipgloss.Color("205")
		if status == domain.StatusFinished {
			borderColor = lipgloss.Color("69")
		}
	case focused:
		borderColor = accent
	}

	headingStyle := lipgloss.NewStyle().Bold(true)
	itemTitleStyle := lipgloss.NewStyle().Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(muted)
	lines := []string{headingStyle.Render(app.ListHeading(status)), ""}
	if len(projects) == 0 {
		lines = append(lines, mutedStyle.Render("no projects"))
	}
	selectedIdx := clamp(m.selected[status], 0, len(projects)-1)
	for idx, project := range projects {
		cursor := "  "
		isSelected := focused && idx == selectedIdx
		if isSelected {
			cursor = "› "
		}
		title := cursor + itemTitleStyle.Render(project.Title)
		if m.grab != nil && m.grab.projectID == project.ID {
			title += " " + mutedStyle.Render("[grabbed]")
		}
		lines = append(lines, title, "  "+mutedStyle.Render(project.AssignedLabel()))
		if m.ui.ShowDescriptions {
			lines = append(lines, m.renderDescription(project.Description, isSelected, width-6))
		}
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 1).
		Width(width).
		Render(strings.Join(lines, "\n"))
}

// renderDescription renders a description, as markdown for the selected project when enabled.
func (m Model) renderDescription(description string, selected bool, width int) string {
	if selected && m.ui.RenderMarkdown && m.markdown != nil {
		if rendered := m.markdown.render(description, width); rendered != "" {
			return rendered
		}
	}
	return "  " + description
}

// clamp bounds v to [minV, maxV], returning minV when the range is empty.
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// fitLines pads or truncates content to maxLines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		lines = append(lines, make([]string, maxLines-len(lines))...)
	}
	return strings.Join(lines, "\n")
}
