package component

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

//go:embed templates/index.html
var indexHTML string

// Document errors.
var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrElementNotFound  = errors.New("element not found")
	ErrInvalidPosition  = errors.New("invalid insert position")
)

// Position names where InsertAdjacent places an element relative to its host.
type Position string

// Position values.
const (
	BeforeBegin Position = "beforebegin"
	AfterBegin  Position = "afterbegin"
	BeforeEnd   Position = "beforeend"
	AfterEnd    Position = "afterend"
)

// Handler reacts to a dispatched event.
type Handler func(context.Context, *Event)

// registration stores one event handler bound to a node.
type registration struct {
	eventType string
	handler   Handler
}

// Document is a mutable HTML tree with templates and DOM-style event dispatch.
//
// Every method takes the document lock. Handlers run outside it, so a handler may
// call back into the document.
type Document struct {
	mu       sync.Mutex
	root     *html.Node
	handlers map[*html.Node][]registration
}

// NewDocument parses the embedded board page.
func NewDocument() (*Document, error) {
	return ParseDocument(strings.NewReader(indexHTML))
}

// ParseDocument parses an arbitrary HTML page into a document.
func ParseDocument(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return &Document{
		root:     root,
		handlers: map[*html.Node][]registration{},
	}, nil
}

// ElementByID finds an attached element by id. Template contents are not searched.
func (d *Document) ElementByID(id string) *html.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return elementByID(d.root, id)
}

// CloneTemplate deep-copies the first element child of the template with the given id.
func (d *Document) CloneTemplate(id string) (*html.Node, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	tmpl := findTemplate(d.root, id)
	if tmpl == nil {
		return nil, fmt.Errorf("%w: %q", ErrTemplateNotFound, id)
	}
	for child := tmpl.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.ElementNode {
			return cloneNode(child), nil
		}
	}
	return nil, fmt.Errorf("%w: %q has no element content", ErrTemplateNotFound, id)
}

// QuerySelector returns the first descendant of node matching sel, or nil.
func (d *Document) QuerySelector(node *html.Node, sel string) *html.Node {
	matches := d.query(node, sel, true)
	if len(matches) == 0 {
		return nil
	}
	return matches[0]
}

// QuerySelectorAll returns every descendant of node matching sel in document order.
func (d *Document) QuerySelectorAll(node *html.Node, sel string) []*html.Node {
	return d.query(node, sel, false)
}

// query walks the descendants of node, optionally stopping at the first match.
func (d *Document) query(node *html.Node, sel string, first bool) []*html.Node {
	s, ok := parseSelector(sel)
	if node == nil || !ok {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*html.Node
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if s.matches(child) {
				out = append(out, child)
				if first {
					return true
				}
			}
			if walk(child) {
				return true
			}
		}
		return false
	}
	walk(node)
	return out
}

// InsertAdjacent places el relative to host.
func (d *Document) InsertAdjacent(host *html.Node, pos Position, el *html.Node) error {
	if host == nil || el == nil {
		return ErrElementNotFound
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if el.Parent != nil || el.PrevSibling != nil || el.NextSibling != nil {
		return fmt.Errorf("insert %s: element already attached", pos)
	}
	switch pos {
	case BeforeBegin:
		if host.Parent == nil {
			return fmt.Errorf("insert %s: host has no parent", pos)
		}
		host.Parent.InsertBefore(el, host)
	case AfterBegin:
		host.InsertBefore(el, host.FirstChild)
	case BeforeEnd:
		host.AppendChild(el)
	case AfterEnd:
		if host.Parent == nil {
			return fmt.Errorf("insert %s: host has no parent", pos)
		}
		host.Parent.InsertBefore(el, host.NextSibling)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPosition, pos)
	}
	return nil
}

// CreateElement builds a detached element.
func (d *Document) CreateElement(tag string) *html.Node {
	tag = strings.ToLower(tag)
	return &html.Node{Type: html.ElementNode, DataAtom: atom.Lookup([]byte(tag)), Data: tag}
}

// AppendChild attaches child as the last child of parent.
func (d *Document) AppendChild(parent, child *html.Node) {
	if parent == nil || child == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	parent.AppendChild(child)
}

// RemoveChildren detaches every child of node and drops their handlers.
func (d *Document) RemoveChildren(node *html.Node) {
	if node == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for node.FirstChild != nil {
		child := node.FirstChild
		node.RemoveChild(child)
		d.releaseLocked(child)
	}
}

// Remove detaches node from its parent and drops its handlers.
func (d *Document) Remove(node *html.Node) {
	if node == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if node.Parent != nil {
		node.Parent.RemoveChild(node)
	}
	d.releaseLocked(node)
}

// Text returns the concatenated text content of node.
func (d *Document) Text(node *html.Node) string {
	if node == nil {
		return ""
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return textContent(node)
}

// SetText replaces the children of node with a single text node.
func (d *Document) SetText(node *html.Node, text string) {
	if node == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for node.FirstChild != nil {
		child := node.FirstChild
		node.RemoveChild(child)
		d.releaseLocked(child)
	}
	if text != "" {
		node.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
}

// Attr returns an attribute value.
func (d *Document) Attr(node *html.Node, key string) (string, bool) {
	if node == nil {
		return "", false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return attr(node, key)
}

// SetAttr sets or replaces an attribute value.
func (d *Document) SetAttr(node *html.Node, key, value string) {
	if node == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	setAttr(node, key, value)
}

// RemoveAttr deletes an attribute.
func (d *Document) RemoveAttr(node *html.Node, key string) {
	if node == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	removeAttr(node, key)
}

// HasClass reports whether node carries class.
func (d *Document) HasClass(node *html.Node, class string) bool {
	if node == nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return hasClass(node, class)
}

// AddClass adds class to node once.
func (d *Document) AddClass(node *html.Node, class string) {
	if node == nil || class == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	classes := classList(node)
	if slices.Contains(classes, class) {
		return
	}
	setAttr(node, "class", strings.Join(append(classes, class), " "))
}

// RemoveClass removes class from node.
func (d *Document) RemoveClass(node *html.Node, class string) {
	if node == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	classes := slices.DeleteFunc(classList(node), func(c string) bool { return c == class })
	if len(classes) == 0 {
		removeAttr(node, "class")
		return
	}
	setAttr(node, "class", strings.Join(classes, " "))
}

// AddEventListener binds handler to events of eventType reaching node.
func (d *Document) AddEventListener(node *html.Node, eventType string, handler Handler) {
	if node == nil || handler == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[node] = append(d.handlers[node], registration{eventType: eventType, handler: handler})
}

// Dispatch delivers ev to target and then bubbles it through every ancestor. It
// returns false when a handler called PreventDefault.
func (d *Document) Dispatch(ctx context.Context, target *html.Node, ev *Event) bool {
	if target == nil || ev == nil {
		return false
	}
	if ctx == nil {
		ctx = context.Background()
	}
	type call struct {
		node    *html.Node
		handler Handler
	}

	d.mu.Lock()
	var calls []call
	for node := target; node != nil; node = node.Parent {
		for _, reg := range d.handlers[node] {
			if reg.eventType == ev.Type {
				calls = append(calls, call{node: node, handler: reg.handler})
			}
		}
	}
	d.mu.Unlock()

	ev.Target = target
	for _, c := range calls {
		if ev.stopped && c.node != ev.CurrentTarget {
			break
		}
		ev.CurrentTarget = c.node
		c.handler(ctx, ev)
	}
	ev.CurrentTarget = nil
	return !ev.defaultPrevented
}

// Render writes the whole document as HTML.
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return html.Render(w, d.root)
}

// OuterHTML renders one node and its subtree.
func (d *Document) OuterHTML(node *html.Node) string {
	if node == nil {
		return ""
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	var buf bytes.Buffer
	if err := html.Render(&buf, node); err != nil {
		return ""
	}
	return buf.String()
}

// releaseLocked drops handlers bound anywhere in the subtree; callers hold d.mu.
func (d *Document) releaseLocked(node *html.Node) {
	delete(d.handlers, node)
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		d.releaseLocked(child)
	}
}

// Event is one dispatched DOM-style event.
type Event struct {
	Type          string
	Target        *html.Node
	CurrentTarget *html.Node
	DataTransfer  *DataTransfer

	defaultPrevented bool
	stopped          bool
}

// NewEvent builds an event of the given type.
func NewEvent(eventType string) *Event {
	return &Event{Type: eventType}
}

// PreventDefault cancels the default action.
func (e *Event) PreventDefault() {
	e.defaultPrevented = true
}

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool {
	return e.defaultPrevented
}

// StopPropagation stops bubbling after the current node.
func (e *Event) StopPropagation() {
	e.stopped = true
}

// DataTransfer carries typed drag payloads between a drag source and a drop target.
type DataTransfer struct {
	types         []string
	data          map[string]string
	EffectAllowed string
	DropEffect    string
}

// NewDataTransfer returns an empty transfer.
func NewDataTransfer() *DataTransfer {
	return &DataTransfer{data: map[string]string{}, EffectAllowed: "uninitialized", DropEffect: "none"}
}

// SetData stores data under a media type. Types keep their first insertion order.
func (dt *DataTransfer) SetData(format, data string) {
	format = strings.ToLower(strings.TrimSpace(format))
	if dt.data == nil {
		dt.data = map[string]string{}
	}
	if _, ok := dt.data[format]; !ok {
		dt.types = append(dt.types, format)
	}
	dt.data[format] = data
}

// GetData returns the data stored under a media type.
func (dt *DataTransfer) GetData(format string) string {
	if dt == nil {
		return ""
	}
	return dt.data[strings.ToLower(strings.TrimSpace(format))]
}

// Types lists the stored media types.
func (dt *DataTransfer) Types() []string {
	if dt == nil {
		return nil
	}
	return slices.Clone(dt.types)
}

// ClearData removes every payload.
func (dt *DataTransfer) ClearData() {
	dt.types = nil
	dt.data = map[string]string{}
}

// selector is a compound of optional tag, id and classes.
type selector struct {
	tag     string
	id      string
	classes []string
}

// parseSelector accepts "tag", "#id", ".class" and combinations such as "ul.droppable".
func parseSelector(raw string) (selector, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.ContainsAny(raw, " >+~[]:,") {
		return selector{}, false
	}
	var s selector
	var kind byte
	start := 0
	flush := func(end int) bool {
		part := raw[start:end]
		switch kind {
		case 0:
			s.tag = strings.ToLower(part)
		case '#':
			if part == "" || s.id != "" {
				return false
			}
			s.id = part
		case '.':
			if part == "" {
				return false
			}
			s.classes = append(s.classes, part)
		}
		return true
	}
	for idx := 0; idx < len(raw); idx++ {
		if raw[idx] != '#' && raw[idx] != '.' {
			continue
		}
		if !flush(idx) {
			return selector{}, false
		}
		kind = raw[idx]
		start = idx + 1
	}
	if !flush(len(raw)) {
		return selector{}, false
	}
	return s, true
}

// matches reports whether node satisfies every part of the selector.
func (s selector) matches(node *html.Node) bool {
	if node.Type != html.ElementNode {
		return false
	}
	if s.tag != "" && node.Data != s.tag {
		return false
	}
	if s.id != "" {
		if id, _ := attr(node, "id"); id != s.id {
			return false
		}
	}
	for _, class := range s.classes {
		if !hasClass(node, class) {
			return false
		}
	}
	return true
}

// elementByID searches attached elements, skipping template contents.
func elementByID(node *html.Node, id string) *html.Node {
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != html.ElementNode {
			continue
		}
		if value, _ := attr(child, "id"); value == id {
			return child
		}
		if child.DataAtom == atom.Template {
			continue
		}
		if found := elementByID(child, id); found != nil {
			return found
		}
	}
	return nil
}

// findTemplate returns the template element with the given id.
func findTemplate(node *html.Node, id string) *html.Node {
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != html.ElementNode {
			continue
		}
		if child.DataAtom == atom.Template {
			if value, _ := attr(child, "id"); value == id {
				return child
			}
			continue
		}
		if found := findTemplate(child, id); found != nil {
			return found
		}
	}
	return nil
}

// cloneNode deep-copies a subtree into a detached node.
func cloneNode(node *html.Node) *html.Node {
	out := &html.Node{
		Type:      node.Type,
		DataAtom:  node.DataAtom,
		Data:      node.Data,
		Namespace: node.Namespace,
		Attr:      slices.Clone(node.Attr),
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		out.AppendChild(cloneNode(child))
	}
	return out
}

// textContent concatenates every descendant text node.
func textContent(node *html.Node) string {
	if node.Type == html.TextNode {
		return node.Data
	}
	var b strings.Builder
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		b.WriteString(textContent(child))
	}
	return b.String()
}

// attr looks up one attribute.
func attr(node *html.Node, key string) (string, bool) {
	for _, a := range node.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// setAttr sets or appends one attribute.
func setAttr(node *html.Node, key, value string) {
	for idx := range node.Attr {
		if node.Attr[idx].Namespace == "" && node.Attr[idx].Key == key {
			node.Attr[idx].Val = value
			return
		}
	}
	node.Attr = append(node.Attr, html.Attribute{Key: key, Val: value})
}

// removeAttr deletes one attribute.
func removeAttr(node *html.Node, key string) {
	node.Attr = slices.DeleteFunc(node.Attr, func(a html.Attribute) bool {
		return a.Namespace == "" && a.Key == key
	})
}

// classList splits the class attribute.
func classList(node *html.Node) []string {
	value, _ := attr(node, "class")
	return strings.Fields(value)
}

// hasClass reports whether the class attribute contains class.
func hasClass(node *html.Node, class string) bool {
	return slices.Contains(classList(node), class)
}
