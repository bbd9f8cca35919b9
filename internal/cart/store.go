package cart

import (
	"context"
	"errors"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/storage"
	"go.uber.org/zap"
)

const DefaultKey = "cart"

// Snapshot is a read-only view of the cart with its derived totals.
type Snapshot struct {
	Items     []domain.CartLineItem `json:"items"`
	Total     float64               `json:"total"`
	ItemCount int                   `json:"item_count"`
}

// Store holds the shopper's cart. Every mutation writes the full cart through
// the persister before returning; persistence trouble never blocks a mutation.
type Store struct {
	mu        sync.Mutex
	items     []domain.CartLineItem
	persister *storage.Persister
	key       string
	log       *zap.Logger
}

// NewStore restores the cart saved under key. Unreadable data yields an empty cart.
func NewStore(ctx context.Context, p *storage.Persister, key string, log *zap.Logger) *Store {
	items, res := storage.Load(ctx, p, key, []domain.CartLineItem{})
	if res.Degraded() {
		log.Warn("cart restored with degraded storage", zap.Error(res.Err))
	}

	return &Store{
		items:     sanitize(items, log),
		persister: p,
		key:       key,
		log:       log,
	}
}

// sanitize drops lines with a non-positive quantity and merges duplicate product ids.
func sanitize(items []domain.CartLineItem, log *zap.Logger) []domain.CartLineItem {
	out := make([]domain.CartLineItem, 0, len(items))
	index := make(map[int64]int, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			log.Warn("dropping cart line with invalid quantity", zap.Int64("product_id", item.ProductID), zap.Int("quantity", item.Quantity))
			continue
		}
		if i, ok := index[item.ProductID]; ok {
			out[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(out)
		out = append(out, item)
	}
	return out
}

// AddItem puts one unit of product in the cart, incrementing an existing line.
func (s *Store) AddItem(ctx context.Context, product domain.Product) storage.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(product.ID); i >= 0 {
		s.items[i].Quantity++
	} else {
		s.items = append(s.items, product.LineItem())
	}
	return s.persist(ctx)
}

// UpdateQuantity sets the quantity of an existing line. A quantity of zero or
// less removes the line; unknown products are ignored.
func (s *Store) UpdateQuantity(ctx context.Context, productID int64, quantity int) storage.Result {
	if quantity <= 0 {
		return s.RemoveItem(ctx, productID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(productID)
	if i < 0 {
		return storage.Result{Outcome: storage.OutcomeOK}
	}
	s.items[i].Quantity = quantity
	return s.persist(ctx)
}

func (s *Store) RemoveItem(ctx context.Context, productID int64) storage.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(productID)
	if i < 0 {
		return storage.Result{Outcome: storage.OutcomeOK}
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return s.persist(ctx)
}

func (s *Store) Clear(ctx context.Context) storage.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = []domain.CartLineItem{}
	return s.persist(ctx)
}

// Checkout removes the ordered quantities from the cart and writes the
// remaining lines together with the record from stage in one atomic write.
// Lines added or increased after the order was built stay in the cart.
// stage runs under the cart lock; its commit learns whether the write applied.
func (s *Store) Checkout(ctx context.Context, ordered []domain.CartLineItem, stage func() (storage.Record, func(applied bool))) storage.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	remaining := subtract(s.items, ordered)
	record, commit := stage()

	res := s.persister.SaveAll(ctx, storage.Record{Key: s.key, Value: remaining}, record)
	applied := !errors.Is(res.Err, storage.ErrEncode)
	if applied {
		s.items = remaining
	}
	commit(applied)

	if res.Degraded() {
		s.log.Warn("checkout not persisted", zap.Bool("applied", applied), zap.Error(res.Err))
	}
	return res
}

func (s *Store) Items() []domain.CartLineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneItems(s.items)
}

func (s *Store) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return total(s.items)
}

func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return itemCount(s.items)
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Items:     domain.CloneItems(s.items),
		Total:     total(s.items),
		ItemCount: itemCount(s.items),
	}
}

func (s *Store) indexOf(productID int64) int {
	for i, item := range s.items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

// persist must be called with mu held.
func (s *Store) persist(ctx context.Context) storage.Result {
	res := s.persister.Save(ctx, s.key, domain.CloneItems(s.items))
	if res.Degraded() {
		s.log.Warn("cart change not persisted", zap.Error(res.Err))
	}
	return res
}

// subtract returns items minus the ordered quantity of each product, dropping
// lines that reach zero.
func subtract(items, ordered []domain.CartLineItem) []domain.CartLineItem {
	taken := make(map[int64]int, len(ordered))
	for _, item := range ordered {
		taken[item.ProductID] += item.Quantity
	}

	out := make([]domain.CartLineItem, 0, len(items))
	for _, item := range items {
		item.Quantity -= taken[item.ProductID]
		if item.Quantity > 0 {
			out = append(out, item)
		}
	}
	return out
}

func total(items []domain.CartLineItem) float64 {
	var sum float64
	for _, item := range items {
		sum += item.LineTotal()
	}
	return sum
}

func itemCount(items []domain.CartLineItem) int {
	n := 0
	for _, item := range items {
		n += item.Quantity
	}
	return n
}
