package component

import (
	"fmt"
	"io"

	charmLog "github.com/charmbracelet/log"
	"github.com/hylla/projboard/internal/app"
	"golang.org/x/net/html"
)

// Template and element ids used by the board page.
const (
	TemplateProjectInput  = "project-input"
	TemplateProjectList   = "project-list"
	TemplateSingleProject = "single-project"
	HostApp               = "app"
	FormElementID         = "user-input"
)

// Component is the lifecycle every board widget implements.
type Component interface {
	Attach(Position) error
	Configure()
	RenderContent()
}

// element is the shared template-backed node that concrete components embed.
type element struct {
	doc  *Document
	host *html.Node
	node *html.Node
}

// newElement clones a template and assigns the optional element id.
func newElement(doc *Document, templateID string, host *html.Node, elementID string) (element, error) {
	if host == nil {
		return element{}, fmt.Errorf("mount %s: %w: host", templateID, ErrElementNotFound)
	}
	node, err := doc.CloneTemplate(templateID)
	if err != nil {
		return element{}, fmt.Errorf("mount %s: %w", templateID, err)
	}
	if elementID != "" {
		doc.SetAttr(node, "id", elementID)
	}
	return element{doc: doc, host: host, node: node}, nil
}

// Attach inserts the element next to or inside its host.
func (e *element) Attach(position Position) error {
	return e.doc.InsertAdjacent(e.host, position, e.node)
}

// Node returns the component's root element.
func (e *element) Node() *html.Node {
	return e.node
}

// Option configures board components.
type Option func(*options)

// options holds shared component collaborators.
type options struct {
	rules  app.FormRules
	logger app.Logger
}

// WithFormRules overrides the default form bounds.
func WithFormRules(rules app.FormRules) Option {
	return func(o *options) {
		o.rules = rules
	}
}

// WithLogger sets the component logger.
func WithLogger(logger app.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// buildOptions applies opts over the defaults.
func buildOptions(opts []Option) options {
	out := options{
		rules:  app.DefaultFormRules(),
		logger: charmLog.New(io.Discard),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&out)
		}
	}
	return out
}
