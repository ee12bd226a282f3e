// Package listsync keeps a local snapshot of one backend collection in step
// with the server. Every mutation is sent to the backend and followed by a
// full refetch; nothing is applied optimistically.
package listsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"fintrack/internal/events"
	"fintrack/internal/log"
)

// ErrNotFound is returned when an id is not in the current snapshot.
var ErrNotFound = errors.New("not in current list")

// Entity is anything the backend identifies by a numeric id.
type Entity interface {
	EntityID() int64
}

// Repository is the backend collection a controller mirrors.
type Repository[E Entity, D any] interface {
	List(ctx context.Context) ([]E, error)
	Create(ctx context.Context, draft D) error
	Update(ctx context.Context, id int64, draft D) error
	Delete(ctx context.Context, id int64) error
}

// Snapshot is an immutable copy of the list as of one applied fetch.
type Snapshot[E Entity] struct {
	Items     []E
	Version   uint64
	FetchedAt time.Time
}

// Notice is a blocking, user-facing message about a failed operation.
type Notice struct {
	Entity  string
	Op      events.Op
	ID      int64
	Message string
	Err     error
}

func (n Notice) String() string {
	if n.Err == nil {
		return n.Message
	}
	return n.Message + ": " + n.Err.Error()
}

// Confirmer gates destructive actions. Returning false cancels.
type Confirmer func(prompt string) bool

// Config describes one entity kind.
type Config[E Entity, D any] struct {
	Name      string // plural, used for events and logs: "transactions"
	Noun      string // singular, used in notices: "transaction"
	NewDraft  func() D
	DraftFrom func(E) D
	Publisher events.Publisher
	Notify    func(Notice)
	Logger    *log.Logger
	Clock     func() time.Time
}

type Controller[E Entity, D any] struct {
	repo Repository[E, D]
	cfg  Config[E, D]
	log  *log.Logger

	gen atomic.Uint64
	sem *semaphore.Weighted

	// deliver orders subscriber calls; delivered is the last version sent.
	deliver   sync.Mutex
	delivered uint64

	mu        sync.Mutex
	items     []E
	version   uint64
	floor     uint64 // generations at or below this started before a mutation landed
	fetchedAt time.Time
	inflight  int
	lastErr   error
	draft     D
	editing   int64
	subs      map[int]func(Snapshot[E])
	nextSub   int
}

func New[E Entity, D any](repo Repository[E, D], cfg Config[E, D]) *Controller[E, D] {
	if cfg.Noun == "" {
		cfg.Noun = cfg.Name
	}
	if cfg.NewDraft == nil {
		cfg.NewDraft = func() D {
			var d D
			return d
		}
	}
	if cfg.Publisher == nil {
		cfg.Publisher = events.Discard{}
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	c := &Controller[E, D]{
		repo:  repo,
		cfg:   cfg,
		log:   log.OrDiscard(cfg.Logger).WithComponent(log.ComponentListSync).With(log.FieldEntity, cfg.Name),
		sem:   semaphore.NewWeighted(1),
		items: []E{},
		subs:  map[int]func(Snapshot[E]){},
	}
	c.draft = cfg.NewDraft()
	return c
}

func (c *Controller[E, D]) Name() string { return c.cfg.Name }

// Refresh replaces the snapshot with a fresh fetch. Refreshes may overlap;
// each takes a generation number and a result older than the one already
// applied is dropped, so a slow early fetch never overwrites a newer list.
func (c *Controller[E, D]) Refresh(ctx context.Context) error {
	applied, err := c.refresh(ctx)
	if err == nil && applied {
		c.publish(ctx, events.OpRefresh, 0)
	}
	return err
}

func (c *Controller[E, D]) refresh(ctx context.Context) (bool, error) {
	gen := c.gen.Add(1)

	c.mu.Lock()
	c.inflight++
	c.mu.Unlock()

	items, err := c.repo.List(ctx)

	c.mu.Lock()
	c.inflight--
	if current := max(c.version, c.floor); gen <= current {
		c.mu.Unlock()
		c.log.DebugContext(ctx, "Discarded stale fetch", "generation", gen, log.FieldVersion, current)
		return false, err
	}
	if err != nil {
		c.lastErr = err
		c.mu.Unlock()
		c.log.WarnContext(ctx, "Fetch failed",
			log.NewFields().WithOperation(log.OpRefresh).WithError(err).ToSlice()...)
		c.notify(Notice{Entity: c.cfg.Name, Op: events.OpRefresh, Message: "Failed to load " + c.cfg.Name, Err: err})
		return false, err
	}
	if items == nil {
		items = []E{}
	}
	c.items = items
	c.version = gen
	c.fetchedAt = c.cfg.Clock()
	c.lastErr = nil
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.log.DebugContext(ctx, "Snapshot replaced", log.FieldVersion, snap.Version, log.FieldCount, len(snap.Items))
	c.deliverSnapshot(ctx, snap)
	return true, nil
}

// deliverSnapshot hands snap to the subscribers unless a newer version has
// already been delivered. Subscribers run one snapshot at a time and must not
// call Refresh synchronously.
func (c *Controller[E, D]) deliverSnapshot(ctx context.Context, snap Snapshot[E]) {
	c.deliver.Lock()
	defer c.deliver.Unlock()
	if snap.Version <= c.delivered {
		c.log.DebugContext(ctx, "Skipped superseded snapshot", log.FieldVersion, snap.Version, "delivered", c.delivered)
		return
	}
	c.delivered = snap.Version

	c.mu.Lock()
	subs := make([]func(Snapshot[E]), 0, len(c.subs))
	for _, s := range c.subs {
		subs = append(subs, s)
	}
	c.mu.Unlock()

	for _, s := range subs {
		s(snap)
	}
}

// Create submits a new record and refetches on success.
func (c *Controller[E, D]) Create(ctx context.Context, draft D) error {
	if err := c.validate(ctx, draft); err != nil {
		return err
	}
	return c.Apply(ctx, Mutation{
		Op:      events.OpCreate,
		Failure: "Failed to save " + c.cfg.Noun,
		Call:    func(ctx context.Context) error { return c.repo.Create(ctx, draft) },
	})
}

// Update replaces record id with draft and refetches on success.
func (c *Controller[E, D]) Update(ctx context.Context, id int64, draft D) error {
	if err := c.validate(ctx, draft); err != nil {
		return err
	}
	return c.Apply(ctx, Mutation{
		Op:      events.OpUpdate,
		ID:      id,
		Failure: "Failed to save " + c.cfg.Noun,
		Call:    func(ctx context.Context) error { return c.repo.Update(ctx, id, draft) },
	})
}

// Remove deletes record id once confirm agrees. It reports whether a delete
// was attempted; a declined or missing confirmation sends nothing.
func (c *Controller[E, D]) Remove(ctx context.Context, id int64, confirm Confirmer) (bool, error) {
	if confirm == nil || !confirm(c.DeletePrompt()) {
		c.log.DebugContext(ctx, "Delete declined", log.FieldEntityID, id)
		return false, nil
	}
	err := c.Apply(ctx, Mutation{
		Op:      events.OpDelete,
		ID:      id,
		Failure: "Failed to delete " + c.cfg.Noun,
		Call:    func(ctx context.Context) error { return c.repo.Delete(ctx, id) },
	})
	return true, err
}

// DeletePrompt is the question put to the Confirmer.
func (c *Controller[E, D]) DeletePrompt() string {
	return "Are you sure you want to delete this " + c.cfg.Noun + "?"
}

// Mutation is a server-side change outside plain CRUD, such as a goal
// contribution.
type Mutation struct {
	Op      events.Op
	ID      int64
	Failure string
	Call    func(ctx context.Context) error
}

// Apply runs m under the controller's mutation lock. On failure the snapshot
// is left as it was, a Notice is emitted and the error returned. On success
// the list is refetched; a failed refetch is reported through its own Notice
// and does not fail the mutation.
func (c *Controller[E, D]) Apply(ctx context.Context, m Mutation) error {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.sem.Release(1)

	fields := log.NewFields().WithOperation(string(m.Op)).WithEntity(c.cfg.Name, m.ID)
	if err := m.Call(ctx); err != nil {
		c.log.WarnContext(ctx, "Mutation failed", fields.WithError(err).ToSlice()...)
		c.notify(Notice{Entity: c.cfg.Name, Op: m.Op, ID: m.ID, Message: m.Failure, Err: err})
		return fmt.Errorf("%s: %w", m.Failure, err)
	}
	c.log.InfoContext(ctx, "Mutation accepted", fields.ToSlice()...)

	// Anything fetched before the server accepted the change is now stale,
	// even if the refetch below fails.
	c.mu.Lock()
	c.floor = c.gen.Load()
	c.mu.Unlock()

	if _, err := c.refresh(ctx); err != nil {
		c.log.WarnContext(ctx, "Refetch after mutation failed", log.FieldError, err.Error())
	}
	c.publish(ctx, m.Op, m.ID)
	return nil
}

// Edit loads record id into the draft and enters edit mode.
func (c *Controller[E, D]) Edit(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range c.items {
		if it.EntityID() == id {
			if c.cfg.DraftFrom == nil {
				return fmt.Errorf("%s cannot be edited", c.cfg.Name)
			}
			c.draft = c.cfg.DraftFrom(it)
			c.editing = id
			return nil
		}
	}
	return fmt.Errorf("%s %d: %w", c.cfg.Noun, id, ErrNotFound)
}

// Editing returns the id being edited, if any.
func (c *Controller[E, D]) Editing() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editing, c.editing != 0
}

func (c *Controller[E, D]) Draft() D {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

func (c *Controller[E, D]) SetDraft(d D) {
	c.mu.Lock()
	c.draft = d
	c.mu.Unlock()
}

// UpdateDraft edits the draft in place under the controller's lock.
func (c *Controller[E, D]) UpdateDraft(fn func(*D)) {
	c.mu.Lock()
	fn(&c.draft)
	c.mu.Unlock()
}

// Submit sends the draft: an update in edit mode, a create otherwise. On
// success edit mode ends and the draft goes back to its default; on failure
// both are kept so the user can retry.
func (c *Controller[E, D]) Submit(ctx context.Context) error {
	c.mu.Lock()
	draft, id := c.draft, c.editing
	c.mu.Unlock()

	var err error
	if id != 0 {
		err = c.Update(ctx, id, draft)
	} else {
		err = c.Create(ctx, draft)
	}
	if err != nil {
		return err
	}
	c.Cancel()
	return nil
}

// Cancel leaves edit mode and resets the draft without contacting the server.
func (c *Controller[E, D]) Cancel() {
	c.mu.Lock()
	c.draft = c.cfg.NewDraft()
	c.editing = 0
	c.mu.Unlock()
}

// Snapshot returns a copy of the current list.
func (c *Controller[E, D]) Snapshot() Snapshot[E] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller[E, D]) snapshotLocked() Snapshot[E] {
	items := make([]E, len(c.items))
	copy(items, c.items)
	return Snapshot[E]{Items: items, Version: c.version, FetchedAt: c.fetchedAt}
}

func (c *Controller[E, D]) Items() []E {
	return c.Snapshot().Items
}

func (c *Controller[E, D]) Version() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// Find returns record id from the current snapshot.
func (c *Controller[E, D]) Find(id int64) (E, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range c.items {
		if it.EntityID() == id {
			return it, true
		}
	}
	var zero E
	return zero, false
}

// Loading reports whether a fetch is in flight.
func (c *Controller[E, D]) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight > 0
}

// LastError is the error of the most recent failed fetch, cleared by the
// next successful one.
func (c *Controller[E, D]) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Subscribe calls fn with every applied snapshot. The returned func removes
// the subscription.
func (c *Controller[E, D]) Subscribe(fn func(Snapshot[E])) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func (c *Controller[E, D]) notify(n Notice) {
	if c.cfg.Notify != nil {
		c.cfg.Notify(n)
	}
}

func (c *Controller[E, D]) publish(ctx context.Context, op events.Op, id int64) {
	change := events.Change{Entity: c.cfg.Name, Op: op, ID: id, Version: c.Version(), Timestamp: c.cfg.Clock()}
	if err := c.cfg.Publisher.Publish(ctx, change); err != nil {
		c.log.WarnContext(ctx, "Failed to publish change",
			log.NewFields().WithOperation(log.OpPublish).WithError(err).ToSlice()...)
	}
}

func (c *Controller[E, D]) validate(ctx context.Context, draft any) error {
	v, ok := draft.(interface{ Validate() error })
	if !ok {
		return nil
	}
	if err := v.Validate(); err != nil {
		c.log.DebugContext(ctx, "Draft rejected",
			log.NewFields().WithError(err).WithErrorType(log.ErrorTypeValidation).ToSlice()...)
		return err
	}
	return nil
}
