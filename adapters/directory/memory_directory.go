package directory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/layer-3/gatekeeper/core"
)

// MemoryDirectory is an in-memory user directory for development and tests
type MemoryDirectory struct {
	byID       map[string]*core.UserRecord
	byUsername map[string]string
	mu         sync.RWMutex
}

// NewMemoryDirectory creates a directory holding the given records. It panics when two
// records share a username, since seed records are static.
func NewMemoryDirectory(records ...*core.UserRecord) *MemoryDirectory {
	d := &MemoryDirectory{
		byID:       make(map[string]*core.UserRecord),
		byUsername: make(map[string]string),
	}
	for _, r := range records {
		if err := d.Create(context.Background(), r); err != nil {
			panic(fmt.Sprintf("directory: cannot seed user %q: %v", r.Username, err))
		}
	}
	return d
}

// FindByUsername returns a copy of the user with the given username
func (d *MemoryDirectory) FindByUsername(ctx context.Context, username string) (*core.UserRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.byUsername[username]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	return clone(d.byID[id]), nil
}

// FindByID returns a copy of the user with the given id
func (d *MemoryDirectory) FindByID(ctx context.Context, id string) (*core.UserRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	record, ok := d.byID[id]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	return clone(record), nil
}

// Create stores a copy of record. A taken username fails with core.ErrUsernameTaken.
func (d *MemoryDirectory) Create(ctx context.Context, record *core.UserRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, taken := d.byUsername[record.Username]; taken {
		return core.ErrUsernameTaken
	}
	d.byID[record.ID] = clone(record)
	d.byUsername[record.Username] = record.ID
	return nil
}

// List returns identities ordered by username
func (d *MemoryDirectory) List(ctx context.Context, query core.ListQuery) ([]core.Identity, int, error) {
	query = query.Normalize()

	d.mu.RLock()
	matched := make([]core.Identity, 0, len(d.byID))
	for _, record := range d.byID {
		if query.Username != "" && !strings.Contains(record.Username, query.Username) {
			continue
		}
		matched = append(matched, record.Identity)
	}
	d.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].Username < matched[j].Username })

	total := len(matched)
	start := query.Offset()
	if start < 0 || start >= total {
		return []core.Identity{}, total, nil
	}
	end := start + query.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func clone(r *core.UserRecord) *core.UserRecord {
	c := *r
	c.Roles = append([]string(nil), r.Roles...)
	return &c
}
