package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hylla/projboard/internal/domain"
)

// fakeRecorder captures ledger writes.
type fakeRecorder struct {
	mu     sync.Mutex
	events []domain.ChangeEvent
	err    error
}

// RecordChange stores one change event.
func (f *fakeRecorder) RecordChange(_ context.Context, event domain.ChangeEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.err
}

// fakeObserver counts lifecycle signals.
type fakeObserver struct {
	mu        sync.Mutex
	added     int
	moves     []string
	published int
	failures  int
}

// ProjectAdded counts adds.
func (f *fakeObserver) ProjectAdded(domain.Project) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added++
}

// ProjectMoved records transitions.
func (f *fakeObserver) ProjectMoved(p domain.Project, from domain.ProjectStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves = append(f.moves, fmt.Sprintf("%s->%s", from, p.Status))
}

// SnapshotPublished counts delivery passes.
func (f *fakeObserver) SnapshotPublished([]domain.Project, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published++
}

// ListenerFailed counts listener panics.
func (f *fakeObserver) ListenerFailed() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures++
}

// fixedClock returns a clock frozen at a known instant.
func fixedClock() Clock {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return now }
}

// mustAdd adds a project or fails the test.
func mustAdd(t *testing.T, store *Store, title string, people int) domain.Project {
	t.Helper()
	p, err := store.AddProject(context.Background(), AddProjectInput{
		Title:       title,
		Description: "description of " + title,
		People:      people,
	})
	if err != nil {
		t.Fatalf("AddProject(%q) error = %v", title, err)
	}
	return p
}

// TestStoreAddProjectNotifiesOnce verifies one snapshot per add with the new project appended.
func TestStoreAddProjectNotifiesOnce(t *testing.T) {
	store := NewStore(WithClock(fixedClock()))
	mustAdd(t, store, "First", 1)

	var calls [][]domain.Project
	store.AddListener(func(projects []domain.Project) {
		calls = append(calls, projects)
	})

	added := mustAdd(t, store, "Build API", 3)
	if len(calls) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(calls))
	}
	got := calls[0]
	if len(got) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(got))
	}
	if got[1].ID != added.ID || got[1].Status != domain.StatusActive {
		t.Fatalf("unexpected appended project %#v", got[1])
	}
	if added.ID == got[0].ID {
		t.Fatalf("expected unique ids, got %d twice", added.ID)
	}
	if !added.CreatedAt.Equal(fixedClock()()) {
		t.Fatalf("expected fixed clock timestamp, got %s", added.CreatedAt)
	}
}

// TestStoreAddProjectRejectsInvalid verifies bad input never reaches listeners.
func TestStoreAddProjectRejectsInvalid(t *testing.T) {
	store := NewStore()
	called := false
	store.AddListener(func([]domain.Project) { called = true })

	_, err := store.AddProject(context.Background(), AddProjectInput{Title: "  ", People: 2})
	if !errors.Is(err, domain.ErrInvalidTitle) {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
	if called || len(store.Projects()) != 0 {
		t.Fatal("expected rejected add to leave store untouched")
	}
}

// TestStoreSnapshotsAreIsolated verifies listeners cannot corrupt store state.
func TestStoreSnapshotsAreIsolated(t *testing.T) {
	store := NewStore()
	var first, second []domain.Project
	store.AddListener(func(projects []domain.Project) {
		first = projects
		projects[0].Title = "mutated"
	})
	store.AddListener(func(projects []domain.Project) { second = projects })

	mustAdd(t, store, "Original", 2)
	if first[0].Title != "mutated" {
		t.Fatalf("expected first listener to own its copy")
	}
	if second[0].Title != "Original" {
		t.Fatalf("expected second listener copy untouched, got %q", second[0].Title)
	}
	if got := store.Projects()[0].Title; got != "Original" {
		t.Fatalf("expected store untouched, got %q", got)
	}

	held := store.Projects()
	mustAdd(t, store, "Another", 2)
	if len(held) != 1 {
		t.Fatalf("expected earlier snapshot to stay at 1 project, got %d", len(held))
	}
}

// TestStoreMoveProject verifies moves, idempotence, and unknown ids.
func TestStoreMoveProject(t *testing.T) {
	obs := &fakeObserver{}
	store := NewStore(WithObserver(obs))
	p := mustAdd(t, store, "Move me", 2)

	notifications := 0
	store.AddListener(func([]domain.Project) { notifications++ })

	changed, err := store.MoveProject(context.Background(), p.ID, domain.StatusFinished)
	if err != nil || !changed {
		t.Fatalf("MoveProject() = %v, %v", changed, err)
	}
	if notifications != 1 {
		t.Fatalf("expected 1 notification, got %d", notifications)
	}

	changed, err = store.MoveProject(context.Background(), p.ID, domain.StatusFinished)
	if err != nil || changed {
		t.Fatalf("expected idempotent move no-op, got %v, %v", changed, err)
	}
	changed, err = store.MoveProject(context.Background(), 9999, domain.StatusActive)
	if err != nil || changed {
		t.Fatalf("expected unknown id no-op, got %v, %v", changed, err)
	}
	if notifications != 1 {
		t.Fatalf("expected no-op moves to stay silent, got %d notifications", notifications)
	}

	changed, err = store.Move(context.Background(), domain.MoveRequest{ProjectID: p.ID, Target: domain.StatusActive})
	if err != nil || !changed {
		t.Fatalf("Move() round trip = %v, %v", changed, err)
	}
	got, ok := store.Project(p.ID)
	if !ok || got.Status != domain.StatusActive {
		t.Fatalf("expected project back in active, got %#v", got)
	}
	if len(obs.moves) != 2 || obs.moves[0] != "active->finished" || obs.moves[1] != "finished->active" {
		t.Fatalf("unexpected observed moves %#v", obs.moves)
	}
}

// TestStoreMoveProjectRejectsInvalidStatus verifies unknown targets error out.
func TestStoreMoveProjectRejectsInvalidStatus(t *testing.T) {
	store := NewStore()
	p := mustAdd(t, store, "Status", 1)
	_, err := store.MoveProject(context.Background(), p.ID, domain.ProjectStatus("archived"))
	if !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

// TestStoreListenerPanicIsContained verifies one failing listener does not block others.
func TestStoreListenerPanicIsContained(t *testing.T) {
	obs := &fakeObserver{}
	store := NewStore(WithObserver(obs))
	store.AddListener(func([]domain.Project) { panic("boom") })
	delivered := 0
	store.AddListener(func([]domain.Project) { delivered++ })

	mustAdd(t, store, "Survivor", 1)
	if delivered != 1 {
		t.Fatalf("expected healthy listener to run, got %d", delivered)
	}
	if obs.failures != 1 {
		t.Fatalf("expected 1 listener failure, got %d", obs.failures)
	}
	if len(store.Projects()) != 1 {
		t.Fatal("expected committed mutation to survive listener panic")
	}
}

// TestStoreReentrantMutationIsQueued verifies every listener sees passes in commit order.
func TestStoreReentrantMutationIsQueued(t *testing.T) {
	store := NewStore()
	var firstSeen, secondSeen []int
	store.AddListener(func(projects []domain.Project) {
		firstSeen = append(firstSeen, len(projects))
		if len(projects) == 1 {
			if _, err := store.AddProject(context.Background(), AddProjectInput{Title: "Follow up", People: 1}); err != nil {
				t.Errorf("nested AddProject() error = %v", err)
			}
		}
	})
	store.AddListener(func(projects []domain.Project) {
		secondSeen = append(secondSeen, len(projects))
	})

	mustAdd(t, store, "Trigger", 1)
	want := []int{1, 2}
	for name, seen := range map[string][]int{"first": firstSeen, "second": secondSeen} {
		if len(seen) != len(want) || seen[0] != want[0] || seen[1] != want[1] {
			t.Fatalf("%s listener saw %v, want %v", name, seen, want)
		}
	}
}

// TestStoreListenerAddedMidPassSkipsCurrentPass verifies late registrations only see later passes.
func TestStoreListenerAddedMidPassSkipsCurrentPass(t *testing.T) {
	store := NewStore()
	var lateSeen []int
	registered := false
	store.AddListener(func([]domain.Project) {
		if registered {
			return
		}
		registered = true
		store.AddListener(func(projects []domain.Project) {
			lateSeen = append(lateSeen, len(projects))
		})
	})

	mustAdd(t, store, "One", 1)
	if len(lateSeen) != 0 {
		t.Fatalf("expected late listener to miss the running pass, saw %v", lateSeen)
	}
	if store.ListenerCount() != 2 {
		t.Fatalf("expected 2 listeners, got %d", store.ListenerCount())
	}

	mustAdd(t, store, "Two", 1)
	if len(lateSeen) != 1 || lateSeen[0] != 2 {
		t.Fatalf("expected late listener to see only the second pass, saw %v", lateSeen)
	}
}

// TestStoreConcurrentMutationWaitsForItsPass verifies a mutation from another goroutine
// returns only after its own pass reached every listener.
func TestStoreConcurrentMutationWaitsForItsPass(t *testing.T) {
	store := NewStore()
	var (
		mu   sync.Mutex
		seen []int
	)
	entered := make(chan struct{})
	release := make(chan struct{})
	store.AddListener(func(projects []domain.Project) {
		mu.Lock()
		seen = append(seen, len(projects))
		mu.Unlock()
		if len(projects) == 1 {
			close(entered)
			<-release
		}
	})
	seenCount := func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(seen)
	}

	firstDone := make(chan error, 1)
	go func() {
		_, err := store.AddProject(context.Background(), AddProjectInput{Title: "First", Description: "blocks delivery", People: 1})
		firstDone <- err
	}()
	<-entered

	type result struct {
		seen int
		err  error
	}
	secondDone := make(chan result, 1)
	go func() {
		_, err := store.AddProject(context.Background(), AddProjectInput{Title: "Second", Description: "waits its turn", People: 2})
		secondDone <- result{seen: seenCount(), err: err}
	}()

	select {
	case got := <-secondDone:
		t.Fatalf("AddProject returned before its pass was delivered (seen=%d, err=%v)", got.seen, got.err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	if err := <-firstDone; err != nil {
		t.Fatalf("first AddProject() error = %v", err)
	}
	got := <-secondDone
	if got.err != nil {
		t.Fatalf("second AddProject() error = %v", got.err)
	}
	if got.seen != 2 {
		t.Fatalf("expected both passes delivered when second AddProject returned, got %d", got.seen)
	}
	mu.Lock()
	defer mu.Unlock()
	if seen[0] != 1 || seen[1] != 2 {
		t.Fatalf("expected passes in commit order, got %v", seen)
	}
}

// TestStoreUnsubscribe verifies unsubscribed listeners stop receiving passes.
func TestStoreUnsubscribe(t *testing.T) {
	store := NewStore()
	calls := 0
	var sub *Subscription
	sub = store.AddListener(func([]domain.Project) {
		calls++
		sub.Unsubscribe()
	})
	if store.ListenerCount() != 1 {
		t.Fatalf("expected 1 listener, got %d", store.ListenerCount())
	}

	mustAdd(t, store, "One", 1)
	mustAdd(t, store, "Two", 1)
	sub.Unsubscribe()
	if calls != 1 {
		t.Fatalf("expected 1 call before unsubscribe took effect, got %d", calls)
	}
	if store.ListenerCount() != 0 {
		t.Fatalf("expected 0 listeners, got %d", store.ListenerCount())
	}

	if got := store.AddListener(nil); got == nil {
		t.Fatal("expected non-nil subscription for nil listener")
	} else {
		got.Unsubscribe()
	}
}

// TestStoreConcurrentAddsYieldUniqueIDs verifies ids stay unique under contention.
func TestStoreConcurrentAddsYieldUniqueIDs(t *testing.T) {
	store := NewStore()
	var mu sync.Mutex
	notifications := 0
	store.AddListener(func([]domain.Project) {
		mu.Lock()
		notifications++
		mu.Unlock()
	})

	const workers = 16
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.AddProject(context.Background(), AddProjectInput{Title: fmt.Sprintf("P%d", i), People: 1})
			if err != nil {
				t.Errorf("AddProject() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	seen := map[int64]bool{}
	for _, p := range store.Projects() {
		if seen[p.ID] {
			t.Fatalf("duplicate id %d", p.ID)
		}
		seen[p.ID] = true
	}
	if len(seen) != workers {
		t.Fatalf("expected %d projects, got %d", workers, len(seen))
	}
	mu.Lock()
	defer mu.Unlock()
	if notifications != workers {
		t.Fatalf("expected %d notifications, got %d", workers, notifications)
	}
}

// TestStoreRecordsActivityWithActor verifies ledger writes carry the context actor.
func TestStoreRecordsActivityWithActor(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("disk full")}
	store := NewStore(WithActivityRecorder(rec))
	ctx := WithActor(context.Background(), ActorWeb)

	p, err := store.AddProject(ctx, AddProjectInput{Title: "Ledger", People: 2})
	if err != nil {
		t.Fatalf("expected recorder failure to be swallowed, got %v", err)
	}
	if _, err := store.MoveProject(context.Background(), p.ID, domain.StatusFinished); err != nil {
		t.Fatalf("MoveProject() error = %v", err)
	}

	if len(rec.events) != 2 {
		t.Fatalf("expected 2 recorded events, got %d", len(rec.events))
	}
	if rec.events[0].Operation != domain.ChangeOperationCreate || rec.events[0].Actor != string(ActorWeb) {
		t.Fatalf("unexpected create event %#v", rec.events[0])
	}
	move := rec.events[1]
	if move.Operation != domain.ChangeOperationMove || move.FromStatus != domain.StatusActive || move.ToStatus != domain.StatusFinished {
		t.Fatalf("unexpected move event %#v", move)
	}
	if move.Actor != string(ActorUnknown) {
		t.Fatalf("expected unknown actor without context value, got %q", move.Actor)
	}
}

// TestSequenceIsMonotonic verifies the default id generator.
func TestSequenceIsMonotonic(t *testing.T) {
	next := NewSequence()
	if a, b := next(), next(); a != 1 || b != 2 {
		t.Fatalf("expected 1, 2 got %d, %d", a, b)
	}
}

// TestActorNormalization verifies actor context helpers.
func TestActorNormalization(t *testing.T) {
	if got := ActorFromContext(context.Background()); got != ActorUnknown {
		t.Fatalf("expected unknown actor, got %q", got)
	}
	ctx := WithActor(context.Background(), Actor("  TUI "))
	if got := ActorFromContext(ctx); got != ActorTUI {
		t.Fatalf("expected tui actor, got %q", got)
	}
	ctx = WithActor(context.Background(), Actor(""))
	if got := ActorFromContext(ctx); got != ActorUnknown {
		t.Fatalf("expected blank actor to normalize to unknown, got %q", got)
	}
}
