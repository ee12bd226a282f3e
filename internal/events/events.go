// Package events carries snapshot-changed notifications out of the list
// controllers, so renderers and other processes can react to them.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type Op string

const (
	OpRefresh    Op = "refresh"
	OpCreate     Op = "create"
	OpUpdate     Op = "update"
	OpDelete     Op = "delete"
	OpContribute Op = "contribute"
)

// Change says that the snapshot of one entity kind moved to Version. ID is
// the affected record for mutations and zero for plain refreshes.
type Change struct {
	Entity    string    `json:"entity"`
	Op        Op        `json:"op"`
	ID        int64     `json:"id,omitempty"`
	Version   uint64    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChange(entity string, op Op, id int64, version uint64) Change {
	return Change{Entity: entity, Op: op, ID: id, Version: version, Timestamp: time.Now()}
}

func (c Change) ToJSON() ([]byte, error) {
	return json.Marshal(c)
}

func ChangeFromJSON(data []byte) (Change, error) {
	var c Change
	err := json.Unmarshal(data, &c)
	return c, err
}

// Publisher delivers changes. Delivery is best effort: callers log failures
// and carry on.
type Publisher interface {
	Publish(ctx context.Context, c Change) error
}

// Discard drops every change.
type Discard struct{}

func (Discard) Publish(context.Context, Change) error { return nil }

// Recorder keeps changes in memory, in publish order.
type Recorder struct {
	mu      sync.Mutex
	changes []Change
}

func (r *Recorder) Publish(_ context.Context, c Change) error {
	r.mu.Lock()
	r.changes = append(r.changes, c)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Changes() []Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Change(nil), r.changes...)
}

// Ops returns the op of each recorded change for entity.
func (r *Recorder) Ops(entity string) []Op {
	var ops []Op
	for _, c := range r.Changes() {
		if c.Entity == entity {
			ops = append(ops, c.Op)
		}
	}
	return ops
}
