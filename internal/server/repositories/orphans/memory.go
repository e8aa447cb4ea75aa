package orphans

import (
	"context"
	"sort"
	"sync"

	"github.com/dmitrijs2005/drivegate/internal/common"
	"github.com/dmitrijs2005/drivegate/internal/server/models"
)

// MemoryRepository keeps orphans in process memory. Contents are lost on
// restart, so it suits development and tests only.
type MemoryRepository struct {
	mu    sync.Mutex
	items map[string]models.Orphan
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[string]models.Orphan)}
}

func (r *MemoryRepository) Record(_ context.Context, o *models.Orphan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[o.ID] = *o
	return nil
}

func (r *MemoryRepository) List(_ context.Context, limit int) ([]*models.Orphan, error) {
	r.mu.Lock()
	res := make([]*models.Orphan, 0, len(r.items))
	for _, o := range r.items {
		o := o
		res = append(res, &o)
	}
	r.mu.Unlock()
	return newestFirst(res, limit), nil
}

func (r *MemoryRepository) Resolve(_ context.Context, id string) (*models.Orphan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.items[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(r.items, id)
	return &o, nil
}

// newestFirst sorts by CreatedAt descending and applies limit.
func newestFirst(res []*models.Orphan, limit int) []*models.Orphan {
	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].ID < res[j].ID
		}
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res
}
