package order

import (
	"context"
	"sort"
	"sync"
)

// memoryRepository keeps orders in process. Reads and inserts share one
// RWMutex for the maps; Update additionally takes a mutex keyed by order id.
type memoryRepository struct {
	mu     sync.RWMutex
	orders map[string]*Order
	byKey  map[string]string

	locks sync.Map // order id -> *sync.Mutex
}

func NewMemoryRepository() Repository {
	return &memoryRepository{
		orders: make(map[string]*Order),
		byKey:  make(map[string]string),
	}
}

func (r *memoryRepository) Create(_ context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if o.IdempotencyKey != "" {
		if _, ok := r.byKey[o.IdempotencyKey]; ok {
			return ErrDuplicateIdempotencyKey
		}
		r.byKey[o.IdempotencyKey] = o.ID
	}
	r.orders[o.ID] = o.Clone()
	return nil
}

func (r *memoryRepository) GetByID(_ context.Context, id string) (*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return o.Clone(), nil
}

func (r *memoryRepository) GetByIdempotencyKey(ctx context.Context, key string) (*Order, error) {
	r.mu.RLock()
	id, ok := r.byKey[key]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrOrderNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *memoryRepository) List(_ context.Context, filter OrderFilter) ([]*Order, error) {
	r.mu.RLock()
	out := make([]*Order, 0, len(r.orders))
	for _, o := range r.orders {
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		if filter.PaymentStatus != nil && o.PaymentStatus != *filter.PaymentStatus {
			continue
		}
		out = append(out, o.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Update only creates a lock for stored orders. Orders are never removed, so
// an id that exists here still exists once the lock is held.
func (r *memoryRepository) Update(ctx context.Context, id string, fn UpdateFunc) (*Order, error) {
	r.mu.RLock()
	_, ok := r.orders[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrOrderNotFound
	}

	l, _ := r.locks.LoadOrStore(id, &sync.Mutex{})
	lock := l.(*sync.Mutex)
	lock.Lock()
	defer lock.Unlock()

	o, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	changed, err := fn(o)
	if err != nil {
		return nil, err
	}
	if !changed {
		return o, nil
	}

	r.mu.Lock()
	r.orders[id] = o.Clone()
	r.mu.Unlock()
	return o, nil
}
