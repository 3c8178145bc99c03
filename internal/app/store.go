package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	charmLog "github.com/charmbracelet/log"
	"github.com/hylla/projboard/internal/domain"
)

// Listener receives a private copy of every project after each committed mutation.
type Listener func([]domain.Project)

// IDGenerator returns unique identifiers for new projects.
type IDGenerator func() int64

// Clock returns the current time.
type Clock func() time.Time

// NewSequence returns a monotonic id generator starting at 1.
func NewSequence() IDGenerator {
	var next atomic.Int64
	return func() int64 {
		return next.Add(1)
	}
}

// AddProjectInput holds input values for add project operations.
type AddProjectInput struct {
	Title       string
	Description string
	People      int
}

// StoreOption configures optional store collaborators.
type StoreOption func(*Store)

// WithIDGenerator overrides the default monotonic sequence.
func WithIDGenerator(gen IDGenerator) StoreOption {
	return func(s *Store) {
		if gen != nil {
			s.idGen = gen
		}
	}
}

// WithClock overrides the wall clock.
func WithClock(clock Clock) StoreOption {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(logger Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithActivityRecorder sets the ledger that receives committed mutations.
func WithActivityRecorder(recorder ActivityRecorder) StoreOption {
	return func(s *Store) {
		s.recorder = recorder
	}
}

// WithObserver sets the metrics observer.
func WithObserver(observer StoreObserver) StoreOption {
	return func(s *Store) {
		s.observer = observer
	}
}

// listenerEntry stores one registered listener.
type listenerEntry struct {
	id      uint64
	fn      Listener
	removed atomic.Bool
}

// notification is one committed snapshot waiting for delivery.
type notification struct {
	seq       uint64
	snapshot  []domain.Project
	listeners []*listenerEntry
}

// Store is the authoritative, observable holder of every project.
//
// Mutations commit under the store mutex. Delivery happens outside it, in commit order,
// and a mutation returns only after its own pass has reached every listener. The one
// exception is a mutation issued from inside a listener: it is queued, returns at once,
// and is delivered when the current pass completes. Listeners registered mid-pass only
// see later passes.
type Store struct {
	mu           sync.Mutex
	delivered    *sync.Cond
	projects     []domain.Project
	listeners    []*listenerEntry
	nextListener uint64
	pending      []notification
	committed    uint64
	published    uint64
	delivering   bool
	deliverer    uint64

	idGen    IDGenerator
	clock    Clock
	logger   Logger
	recorder ActivityRecorder
	observer StoreObserver
}

// NewStore constructs an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		idGen:  NewSequence(),
		clock:  time.Now,
		logger: charmLog.New(io.Discard),
	}
	s.delivered = sync.NewCond(&s.mu)
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// AddProject appends a new active project and notifies every listener.
func (s *Store) AddProject(ctx context.Context, in AddProjectInput) (domain.Project, error) {
	s.mu.Lock()
	project, err := domain.NewProject(domain.ProjectInput{
		ID:          s.idGen(),
		Title:       in.Title,
		Description: in.Description,
		People:      in.People,
		Status:      domain.StatusActive,
	}, s.clock())
	if err != nil {
		s.mu.Unlock()
		return domain.Project{}, fmt.Errorf("add project: %w", err)
	}
	s.projects = append(s.projects, project)
	seq := s.enqueueLocked()
	s.mu.Unlock()

	s.logger.Debug("project added", "id", project.ID, "title", project.Title, "people", project.People)
	s.record(ctx, domain.ChangeEvent{
		ProjectID:  project.ID,
		Title:      project.Title,
		Operation:  domain.ChangeOperationCreate,
		ToStatus:   project.Status,
		OccurredAt: project.CreatedAt,
	})
	if s.observer != nil {
		s.observer.ProjectAdded(project)
	}
	s.deliver(seq)
	return project, nil
}

// MoveProject sets a project's status. Unknown ids and self-transitions are silent
// no-ops that notify nobody; the bool reports whether the store changed.
func (s *Store) MoveProject(ctx context.Context, id int64, status domain.ProjectStatus) (bool, error) {
	if !status.Valid() {
		return false, fmt.Errorf("move project %d: %w", id, domain.ErrInvalidStatus)
	}

	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		s.logger.Debug("move ignored, project not found", "id", id, "status", status)
		return false, nil
	}
	from := s.projects[idx].Status
	changed, err := s.projects[idx].Move(status, s.clock())
	if err != nil || !changed {
		s.mu.Unlock()
		return false, err
	}
	moved := s.projects[idx]
	seq := s.enqueueLocked()
	s.mu.Unlock()

	s.logger.Debug("project moved", "id", id, "from", from, "to", status)
	s.record(ctx, domain.ChangeEvent{
		ProjectID:  moved.ID,
		Title:      moved.Title,
		Operation:  domain.ChangeOperationMove,
		FromStatus: from,
		ToStatus:   moved.Status,
		OccurredAt: moved.UpdatedAt,
	})
	if s.observer != nil {
		s.observer.ProjectMoved(moved, from)
	}
	s.deliver(seq)
	return true, nil
}

// Move applies a move request.
func (s *Store) Move(ctx context.Context, req domain.MoveRequest) (bool, error) {
	return s.MoveProject(ctx, req.ProjectID, req.Target)
}

// AddListener registers fn for every later mutation. The current state is not replayed;
// call Projects for the initial render.
func (s *Store) AddListener(fn Listener) *Subscription {
	if fn == nil {
		return &Subscription{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextListener++
	entry := &listenerEntry{id: s.nextListener, fn: fn}
	s.listeners = append(s.listeners, entry)
	return &Subscription{store: s, entry: entry}
}

// Projects returns a snapshot copy of every project in insertion order.
func (s *Store) Projects() []domain.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneProjects(s.projects)
}

// Project returns one project by id.
func (s *Store) Project(id int64) (domain.Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return domain.Project{}, false
	}
	return s.projects[idx], true
}

// ListenerCount reports the number of active subscriptions.
func (s *Store) ListenerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

// removeListener drops one listener from future passes.
func (s *Store) removeListener(entry *listenerEntry) {
	entry.removed.Store(true)
	s.mu.Lock()
	defer s.mu.Unlock()
	for idx, candidate := range s.listeners {
		if candidate == entry {
			s.listeners = append(s.listeners[:idx], s.listeners[idx+1:]...)
			return
		}
	}
}

// indexLocked finds a project position; callers hold s.mu.
func (s *Store) indexLocked(id int64) int {
	for idx := range s.projects {
		if s.projects[idx].ID == id {
			return idx
		}
	}
	return -1
}

// enqueueLocked queues the committed state for delivery and returns its sequence
// number; callers hold s.mu.
func (s *Store) enqueueLocked() uint64 {
	s.committed++
	s.pending = append(s.pending, notification{
		seq:       s.committed,
		snapshot:  cloneProjects(s.projects),
		listeners: append([]*listenerEntry(nil), s.listeners...),
	})
	return s.committed
}

// deliver returns once pass seq has been published. The first caller drains the queue;
// callers on other goroutines wait for it, and callers inside a listener on the draining
// goroutine return immediately.
func (s *Store) deliver(seq uint64) {
	gid := goroutineID()
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.delivering {
		if s.deliverer == gid {
			return
		}
		if s.published >= seq {
			return
		}
		s.delivered.Wait()
	}
	if s.published >= seq {
		return
	}

	s.delivering = true
	s.deliverer = gid
	for len(s.pending) > 0 {
		next := s.pending[0]
		s.pending[0] = notification{}
		s.pending = s.pending[1:]
		s.mu.Unlock()
		s.publish(next)
		s.mu.Lock()
		s.published = next.seq
		s.delivered.Broadcast()
	}
	s.pending = nil
	s.delivering = false
	s.deliverer = 0
	s.delivered.Broadcast()
}

// publish hands one snapshot to each listener of the pass.
func (s *Store) publish(n notification) {
	for _, entry := range n.listeners {
		if entry.removed.Load() {
			continue
		}
		s.invoke(entry, cloneProjects(n.snapshot))
	}
	if s.observer != nil {
		s.observer.SnapshotPublished(n.snapshot, len(n.listeners))
	}
}

// invoke runs one listener, containing any panic.
func (s *Store) invoke(entry *listenerEntry, snapshot []domain.Project) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("store listener failed", "listener", entry.id, "panic", fmt.Sprint(r))
			if s.observer != nil {
				s.observer.ListenerFailed()
			}
		}
	}()
	entry.fn(snapshot)
}

// record forwards one change to the ledger; failures are logged, never returned.
func (s *Store) record(ctx context.Context, event domain.ChangeEvent) {
	if s.recorder == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	event.Actor = string(ActorFromContext(ctx))
	if err := s.recorder.RecordChange(ctx, event); err != nil {
		s.logger.Warn("activity record failed", "project_id", event.ProjectID, "operation", event.Operation, "err", err)
	}
}

// Subscription is the handle returned by AddListener.
type Subscription struct {
	store *Store
	entry *listenerEntry
	once  sync.Once
}

// Unsubscribe stops delivery to the listener. It is safe to call more than once and
// from inside the listener itself.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.store == nil || s.entry == nil {
		return
	}
	s.once.Do(func() {
		s.store.removeListener(s.entry)
	})
}

// goroutineID parses the current goroutine id from its stack header.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	header := bytes.TrimPrefix(buf[:n], []byte("goroutine "))
	if idx := bytes.IndexByte(header, ' '); idx > 0 {
		header = header[:idx]
	}
	id, err := strconv.ParseUint(string(header), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// cloneProjects copies a project slice.
func cloneProjects(in []domain.Project) []domain.Project {
	out := make([]domain.Project, len(in))
	copy(out, in)
	return out
}
