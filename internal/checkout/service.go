package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/order"
	"github.com/fjod/go_cart/storefront/internal/payment"
	"github.com/fjod/go_cart/storefront/internal/publisher"
	"github.com/fjod/go_cart/storefront/internal/storage"
	"github.com/fjod/go_cart/storefront/pkg/logger"
	"go.uber.org/zap"
)

// Outcomes reported to the outcome hook.
const (
	OutcomePlaced    = "placed"
	OutcomeInvalid   = "invalid"
	OutcomeEmptyCart = "empty_cart"
	OutcomeDeclined  = "declined"
	OutcomeBusy      = "busy"
)

// CartStore is the part of the cart the checkout needs.
type CartStore interface {
	Items() []domain.CartLineItem
	Checkout(ctx context.Context, ordered []domain.CartLineItem, stage func() (storage.Record, func(applied bool))) storage.Result
}

// OrderStore is the part of the order history the checkout needs.
type OrderStore interface {
	Stage(o domain.Order) (storage.Record, func(applied bool))
}

type Option func(*Service)

func WithOutcomeHook(fn func(outcome string)) Option {
	return func(s *Service) {
		s.observe = fn
	}
}

func WithPublishTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.publishTimeout = d
	}
}

type Service struct {
	cart      CartStore
	orders    OrderStore
	factory   *order.Factory
	gateway   payment.Gateway
	publisher publisher.Publisher
	log       *zap.Logger

	processing     atomic.Bool
	observe        func(outcome string)
	publishTimeout time.Duration
}

func NewService(cart CartStore, orders OrderStore, factory *order.Factory, gateway payment.Gateway, pub publisher.Publisher, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		cart:           cart,
		orders:         orders,
		factory:        factory,
		gateway:        gateway,
		publisher:      pub,
		log:            log,
		observe:        func(string) {},
		publishTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Processing reports whether a checkout is waiting on the payment gateway.
func (s *Service) Processing() bool {
	return s.processing.Load()
}

// PlaceOrder validates form, charges the cart total once and finalizes the order.
func (s *Service) PlaceOrder(ctx context.Context, form domain.CheckoutForm) (domain.Order, error) {
	log := logger.FromContext(ctx, s.log)

	form = Normalize(form)
	if errs := Validate(form); len(errs) > 0 {
		s.observe(OutcomeInvalid)
		return domain.Order{}, &ValidationError{Fields: errs}
	}

	if !s.processing.CompareAndSwap(false, true) {
		s.observe(OutcomeBusy)
		return domain.Order{}, ErrCheckoutInProgress
	}
	defer s.processing.Store(false)

	o, err := s.factory.Create(s.cart.Items(), form.Customer(), form.ShippingAddress())
	if err != nil {
		if errors.Is(err, order.ErrEmptyCart) {
			s.observe(OutcomeEmptyCart)
		}
		return domain.Order{}, err
	}

	charge, err := s.gateway.Charge(ctx, payment.ChargeRequest{
		OrderID:    o.ID,
		Amount:     o.Total,
		CardNumber: form.CardNumber,
		CardName:   form.CardName,
	})
	if err != nil {
		reason := string(charge.Refusal)
		if reason == "" {
			reason = err.Error()
		}
		log.Warn("payment failed", zap.String("order_id", o.ID), zap.String("reason", reason))
		s.observe(OutcomeDeclined)
		return domain.Order{}, &GatewayError{Reason: reason, Err: err}
	}

	res := s.FinalizeOrder(ctx, o)
	if errors.Is(res.Err, storage.ErrEncode) {
		log.Error("order charged but not recorded", zap.String("order_id", o.ID), zap.String("transaction_id", charge.TransactionID), zap.Error(res.Err))
		return domain.Order{}, fmt.Errorf("failed to record order %s: %w", o.ID, res.Err)
	}
	if res.Degraded() {
		log.Warn("order finalized in memory only", zap.String("order_id", o.ID), zap.Error(res.Err))
	}
	log.Info("order placed",
		zap.String("order_id", o.ID),
		zap.String("transaction_id", charge.TransactionID),
		zap.Float64("total", o.Total),
	)
	s.observe(OutcomePlaced)

	s.publish(ctx, o)
	return o, nil
}

// FinalizeOrder appends o to the order history and removes its lines from the
// cart in one atomic write. Either both changes are persisted or neither is.
// The cart lock is taken before the order lock.
func (s *Service) FinalizeOrder(ctx context.Context, o domain.Order) storage.Result {
	return s.cart.Checkout(ctx, o.LineItemsSnapshot, func() (storage.Record, func(bool)) {
		return s.orders.Stage(o)
	})
}

func (s *Service) publish(ctx context.Context, o domain.Order) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()

	if err := s.publisher.PublishOrderPlaced(ctx, publisher.NewOrderPlaced(o)); err != nil {
		logger.FromContext(ctx, s.log).Error("failed to publish order placed event",
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
	}
}
