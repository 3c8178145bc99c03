package tui

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"charm.land/bubbles/v2/key"
)

// keyMap holds every board binding.
type keyMap struct {
	quit       key.Binding
	toggleHelp key.Binding
	nextFocus  key.Binding
	prevFocus  key.Binding
	moveUp     key.Binding
	moveDown   key.Binding
	moveLeft   key.Binding
	moveRight  key.Binding
	submit     key.Binding
	grab       key.Binding
	cancel     key.Binding
	yank       key.Binding
}

// newKeyMap constructs the default bindings.
func newKeyMap() keyMap {
	return keyMap{
		quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		toggleHelp: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		nextFocus:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field/list")),
		prevFocus:  key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous field/list")),
		moveUp:     key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "project up")),
		moveDown:   key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "project down")),
		moveLeft:   key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "list left")),
		moveRight:  key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "list right")),
		submit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "add / drop")),
		grab:       key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "grab project")),
		cancel:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel drag")),
		yank:       key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy drag payload")),
	}
}

// applyConfig replaces the configurable bindings.
func (k *keyMap) applyConfig(cfg KeyConfig) {
	configureBinding(&k.grab, cfg.Grab, "space", "grab project")
	configureBinding(&k.yank, cfg.Yank, "y", "copy drag payload")
	configureBinding(&k.toggleHelp, cfg.Help, "?", "toggle help")
	configureBinding(&k.quit, cfg.Quit, "q", "quit")
	// ctrl+c always quits.
	k.quit.SetKeys(append(k.quit.Keys(), "ctrl+c")...)
}

// configureBinding points binding at raw, or fallback when raw is blank.
func configureBinding(binding *key.Binding, raw, fallback, desc string) {
	keys, help := parseBindingKeys(raw, fallback)
	binding.SetKeys(keys...)
	binding.SetHelp(help, desc)
}

// parseBindingKeys expands one configured key into the strings key.Matches compares.
func parseBindingKeys(raw, fallback string) ([]string, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = fallback
	}
	if raw == " " || strings.EqualFold(raw, "space") {
		return []string{" ", "space"}, "space"
	}
	if utf8.RuneCountInString(raw) == 1 {
		r, _ := utf8.DecodeRuneInString(raw)
		if unicode.IsUpper(r) {
			return []string{raw, "shift+" + string(unicode.ToLower(r))}, raw
		}
		return []string{raw}, raw
	}
	return []string{strings.ToLower(raw)}, raw
}

// ShortHelp returns the one-line help bindings.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.nextFocus, k.submit, k.grab, k.yank, k.toggleHelp, k.quit}
}

// FullHelp returns the expanded help bindings.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.nextFocus, k.prevFocus, k.submit, k.toggleHelp, k.quit},
		{k.moveUp, k.moveDown, k.moveLeft, k.moveRight},
		{k.grab, k.cancel, k.yank},
	}
}
