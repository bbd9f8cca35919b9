package publisher

import (
	"context"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"go.uber.org/zap"
)

const EventTypeOrderPlaced = "order.placed"

type EventItem struct {
	ProductID int64   `json:"product_id"`
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// OrderPlaced is emitted once an order has been finalized.
type OrderPlaced struct {
	OrderID   string      `json:"order_id"`
	CreatedAt time.Time   `json:"created_at"`
	Total     float64     `json:"total"`
	ItemCount int         `json:"item_count"`
	Items     []EventItem `json:"items"`
}

func NewOrderPlaced(o domain.Order) OrderPlaced {
	items := make([]EventItem, len(o.LineItemsSnapshot))
	for i, item := range o.LineItemsSnapshot {
		items[i] = EventItem{
			ProductID: item.ProductID,
			Title:     item.Title,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}
	return OrderPlaced{
		OrderID:   o.ID,
		CreatedAt: o.CreatedAt,
		Total:     o.Total,
		ItemCount: o.ItemCount(),
		Items:     items,
	}
}

type Publisher interface {
	PublishOrderPlaced(ctx context.Context, event OrderPlaced) error
	Close() error
}

// LogPublisher only logs events. Used when no broker is configured.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) PublishOrderPlaced(_ context.Context, event OrderPlaced) error {
	p.log.Info("order placed",
		zap.String("order_id", event.OrderID),
		zap.Float64("total", event.Total),
		zap.Int("item_count", event.ItemCount),
	)
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
