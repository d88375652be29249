// Package memory is an in-process PropertyRepository for tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kushmahi07/Rentzy-sub001/internal/domain"
)

type PropertyRepository struct {
	mu         sync.Mutex
	nextID     uint
	nextLogID  uint
	properties map[uint]domain.Property
	logs       []domain.AdminActionLogEntry

	// failLogWrite makes the next CommitTokenAction fail after the state has
	// been staged, which exercises the rollback path.
	failLogWrite error
}

func NewPropertyRepository() *PropertyRepository {
	return &PropertyRepository{properties: make(map[uint]domain.Property)}
}

// FailNextLogWrite arms a one-shot failure of the audit insert.
func (r *PropertyRepository) FailNextLogWrite(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failLogWrite = err
}

func (r *PropertyRepository) CreateProperty(ctx context.Context, value domain.Property) (domain.Property, error) {
	if err := ctx.Err(); err != nil {
		return domain.Property{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	now := time.Now().UTC()
	value.ID = r.nextID
	value.Version = 1
	value.CreatedAt = now
	value.UpdatedAt = now
	r.properties[value.ID] = clone(value)
	return clone(value), nil
}

func (r *PropertyRepository) GetPropertyByID(ctx context.Context, id uint) (domain.Property, error) {
	if err := ctx.Err(); err != nil {
		return domain.Property{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.properties[id]
	if !ok {
		return domain.Property{}, fmt.Errorf("property %d: %w", id, domain.ErrNotFound)
	}
	return clone(p), nil
}

func (r *PropertyRepository) ListProperties(ctx context.Context, query domain.PropertyQuery) ([]domain.Property, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	needle := strings.ToLower(strings.TrimSpace(query.Query))
	name := strings.TrimSpace(query.Name)
	result := make([]domain.Property, 0, len(r.properties))
	for _, p := range r.properties {
		if needle != "" && !strings.Contains(strings.ToLower(p.Name), needle) && !strings.Contains(strings.ToLower(p.Location), needle) {
			continue
		}
		if name != "" && !strings.EqualFold(p.Name, name) {
			continue
		}
		result = append(result, clone(p))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	if query.Limit > 0 && len(result) > query.Limit {
		result = result[:query.Limit]
	}
	return result, nil
}

func (r *PropertyRepository) CommitTokenAction(ctx context.Context, propertyID uint, expectedVersion int64, state domain.PropertyTokenState, entry domain.AdminActionLogEntry) (domain.Property, domain.AdminActionLogEntry, error) {
	if err := ctx.Err(); err != nil {
		return domain.Property{}, domain.AdminActionLogEntry{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.properties[propertyID]
	if !ok {
		return domain.Property{}, domain.AdminActionLogEntry{}, fmt.Errorf("property %d: %w", propertyID, domain.ErrNotFound)
	}
	if current.Version != expectedVersion {
		return domain.Property{}, domain.AdminActionLogEntry{}, domain.ErrConflict
	}

	staged := current
	staged.Token = state
	staged.Version++
	staged.UpdatedAt = time.Now().UTC()

	if r.failLogWrite != nil {
		err := r.failLogWrite
		r.failLogWrite = nil
		// staged state is dropped together with the failed entry
		return domain.Property{}, domain.AdminActionLogEntry{}, fmt.Errorf("%w: insert action log: %v", domain.ErrPersistence, err)
	}

	r.nextLogID++
	entry.ID = r.nextLogID
	r.properties[propertyID] = clone(staged)
	r.logs = append(r.logs, entry)
	return clone(staged), entry, nil
}

func (r *PropertyRepository) ListActionLogs(ctx context.Context, query domain.ActionLogQuery) ([]domain.AdminActionLogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]domain.AdminActionLogEntry, 0)
	for i := len(r.logs) - 1; i >= 0; i-- {
		e := r.logs[i]
		if query.EntityID != nil && e.EntityID != *query.EntityID {
			continue
		}
		if query.Action != "" && e.Action != query.Action {
			continue
		}
		result = append(result, e)
		if query.Limit > 0 && len(result) == query.Limit {
			break
		}
	}
	return result, nil
}

func clone(p domain.Property) domain.Property {
	if p.Token.LastActionAt != nil {
		at := *p.Token.LastActionAt
		p.Token.LastActionAt = &at
	}
	if p.Token.LastActionBy != nil {
		by := *p.Token.LastActionBy
		p.Token.LastActionBy = &by
	}
	return p
}
