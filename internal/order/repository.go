package order

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/storage"
	"go.uber.org/zap"
)

const DefaultKey = "orders"

var ErrOrderNotFound = errors.New("order not found")

// Repository is the append-only order history.
type Repository struct {
	mu        sync.RWMutex
	orders    []domain.Order
	persister *storage.Persister
	key       string
	log       *zap.Logger
}

func NewRepository(ctx context.Context, p *storage.Persister, key string, log *zap.Logger) *Repository {
	orders, res := storage.Load(ctx, p, key, []domain.Order{})
	if res.Degraded() {
		log.Warn("order history restored with degraded storage", zap.Error(res.Err))
	}
	if orders == nil {
		orders = []domain.Order{}
	}

	return &Repository{
		orders:    orders,
		persister: p,
		key:       key,
		log:       log,
	}
}

func (r *Repository) Append(ctx context.Context, o domain.Order) storage.Result {
	record, commit := r.Stage(o)
	res := r.persister.SaveAll(ctx, record)
	commit(!errors.Is(res.Err, storage.ErrEncode))
	if res.Degraded() {
		r.log.Warn("order not persisted", zap.String("order_id", o.ID), zap.Error(res.Err))
	}
	return res
}

// Stage locks the repository and returns the record holding the history with o
// appended. commit releases the lock and must always be called; o becomes
// visible only when applied is true.
func (r *Repository) Stage(o domain.Order) (storage.Record, func(applied bool)) {
	r.mu.Lock()

	next := make([]domain.Order, len(r.orders), len(r.orders)+1)
	copy(next, r.orders)
	next = append(next, o)

	var once sync.Once
	commit := func(applied bool) {
		once.Do(func() {
			if applied {
				r.orders = next
			}
			r.mu.Unlock()
		})
	}
	return storage.Record{Key: r.key, Value: next}, commit
}

func (r *Repository) FindByID(id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, o := range r.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return domain.Order{}, ErrOrderNotFound
}

// Search returns orders whose id or any line item title contains term,
// ignoring case, in creation order. An empty term matches everything.
func (r *Repository) Search(term string) []domain.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(term)
	out := make([]domain.Order, 0, len(r.orders))
	for _, o := range r.orders {
		if needle == "" || matches(o, needle) {
			out = append(out, o)
		}
	}
	return out
}

func (r *Repository) List() []domain.Order {
	return r.Search("")
}

func matches(o domain.Order, needle string) bool {
	if strings.Contains(strings.ToLower(o.ID), needle) {
		return true
	}
	for _, item := range o.LineItemsSnapshot {
		if strings.Contains(strings.ToLower(item.Title), needle) {
			return true
		}
	}
	return false
}
