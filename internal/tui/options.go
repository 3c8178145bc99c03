package tui

import (
	"github.com/atotto/clipboard"
	"github.com/hylla/projboard/internal/app"
)

// KeyConfig overrides the configurable bindings. Blank fields keep the defaults.
type KeyConfig struct {
	Grab string
	Yank string
	Help string
	Quit string
}

// UIConfig toggles optional rendering.
type UIConfig struct {
	RenderMarkdown   bool
	ShowDescriptions bool
}

// DefaultUIConfig returns the stock rendering settings.
func DefaultUIConfig() UIConfig {
	return UIConfig{
		RenderMarkdown:   true,
		ShowDescriptions: true,
	}
}

// ClipboardWriter copies text to the system clipboard.
type ClipboardWriter func(string) error

// Option configures a Model.
type Option func(*Model)

// WithKeyConfig applies key overrides.
func WithKeyConfig(cfg KeyConfig) Option {
	return func(m *Model) {
		m.keys.applyConfig(cfg)
	}
}

// WithUIConfig sets rendering toggles.
func WithUIConfig(cfg UIConfig) Option {
	return func(m *Model) {
		m.ui = cfg
	}
}

// WithFormRules overrides the form bounds.
func WithFormRules(rules app.FormRules) Option {
	return func(m *Model) {
		m.rules = rules
	}
}

// WithLogger sets the model logger.
func WithLogger(logger app.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(write ClipboardWriter) Option {
	return func(m *Model) {
		if write != nil {
			m.copyText = write
		}
	}
}

// systemClipboard writes through the OS clipboard.
func systemClipboard(text string) error {
	return clipboard.WriteAll(text)
}
