// Package pipeline turns a Shopify order into exactly one Wooacry manufacturing order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/joao-fontenele/wooacry-bridge/internal/address"
	"github.com/joao-fontenele/wooacry-bridge/internal/apperr"
	"github.com/joao-fontenele/wooacry-bridge/internal/customization"
	"github.com/joao-fontenele/wooacry-bridge/internal/domain"
	"github.com/joao-fontenele/wooacry-bridge/internal/ledger"
	"github.com/joao-fontenele/wooacry-bridge/internal/shipping"
	"github.com/joao-fontenele/wooacry-bridge/internal/wooacry"
)

var tracer = otel.Tracer("pipeline")

const (
	DefaultCreateTimeout = 30 * time.Second
	lockMargin           = 30 * time.Second
	guestUser            = "guest"
)

type Gateway interface {
	Preorder(ctx context.Context, req wooacry.PreorderRequest) (*wooacry.PreorderResult, error)
	CreateOrder(ctx context.Context, req wooacry.CreateOrderRequest) (*wooacry.CreateOrderResult, error)
}

type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type Config struct {
	// CreateTimeout bounds the order submission, which is detached from the caller's context.
	CreateTimeout time.Duration
	// LockTTL defaults to CreateTimeout plus a margin.
	LockTTL time.Duration
	// RunTimeout bounds a whole run, which is detached from the callers sharing it.
	// Defaults to LockTTL so a run never outlives its claim.
	RunTimeout time.Duration
}

type Deps struct {
	Gateway   Gateway
	Ledger    ledger.Ledger
	Locker    ledger.Locker
	Publisher Publisher
	Logger    *slog.Logger
	Meter     metric.Meter
	Now       func() time.Time
}

type Service struct {
	cfg       Config
	gateway   Gateway
	ledger    ledger.Ledger
	locker    ledger.Locker
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
	group     singleflight.Group

	outcomes   metric.Int64Counter
	duplicates metric.Int64Counter
}

func New(cfg Config, deps Deps) (*Service, error) {
	if deps.Gateway == nil {
		return nil, errors.New("pipeline: gateway is required")
	}
	if deps.Ledger == nil {
		return nil, errors.New("pipeline: ledger is required")
	}
	if deps.Logger == nil {
		return nil, errors.New("pipeline: logger is required")
	}

	if cfg.CreateTimeout <= 0 {
		cfg.CreateTimeout = DefaultCreateTimeout
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = cfg.CreateTimeout + lockMargin
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = cfg.LockTTL
	}
	if deps.Locker == nil {
		deps.Locker = ledger.NopLocker{}
	}
	if deps.Meter == nil {
		deps.Meter = otel.Meter("pipeline")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	outcomes, err := deps.Meter.Int64Counter("bridge.pipeline.outcomes",
		metric.WithDescription("Pipeline runs by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("create outcomes counter: %w", err)
	}

	duplicates, err := deps.Meter.Int64Counter("bridge.pipeline.duplicate_orders",
		metric.WithDescription("Wooacry orders created after another run had already recorded one"),
	)
	if err != nil {
		return nil, fmt.Errorf("create duplicates counter: %w", err)
	}

	return &Service{
		cfg:        cfg,
		gateway:    deps.Gateway,
		ledger:     deps.Ledger,
		locker:     deps.Locker,
		publisher:  deps.Publisher,
		logger:     deps.Logger,
		now:        deps.Now,
		outcomes:   outcomes,
		duplicates: duplicates,
	}, nil
}

// Process runs the order through the pipeline. Concurrent calls for the same order id
// in this process share one run, and that run does not stop when the caller that
// started it goes away.
func (s *Service) Process(ctx context.Context, order domain.InboundOrder) (Result, error) {
	orderID := order.ID.String()
	if orderID == "" {
		err := &StepError{Step: StepValidate, Err: apperr.Validation("id", "missing order id")}
		s.count(ctx, Result{Outcome: OutcomeFailed}, err)
		return Result{Outcome: OutcomeFailed}, err
	}

	v, err, shared := s.group.Do(orderID, func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.RunTimeout)
		defer cancel()

		res, err := s.process(runCtx, orderID, order)
		s.count(ctx, res, err)
		return res, err
	})
	if shared {
		s.logger.InfoContext(ctx, "joined in-flight run", "order_id", orderID)
	}

	res, _ := v.(Result)
	return res, err
}

func (s *Service) process(ctx context.Context, orderID string, order domain.InboundOrder) (res Result, err error) {
	ctx, span := tracer.Start(ctx, "pipeline.process", trace.WithAttributes(
		attribute.String("shopify.order_id", orderID),
	))
	defer func() {
		span.SetAttributes(attribute.String("pipeline.outcome", string(res.Outcome)))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	logger := s.logger.With("order_id", orderID)
	res = Result{Outcome: OutcomeFailed, OrderID: orderID}

	if done, ok, err := s.checkLedger(ctx, orderID, logger); err != nil {
		return res, err
	} else if ok {
		return done, nil
	}

	var items []domain.CustomizationItem
	_ = s.step(ctx, StepExtract, func(context.Context) error {
		items = customization.Extract(order.LineItems)
		return nil
	})
	if len(items) == 0 {
		logger.InfoContext(ctx, "no customize_no items, skipping")
		return Result{Outcome: OutcomeSkipped, OrderID: orderID}, nil
	}
	res.Items = items

	var addr domain.NormalizedAddress
	if err := s.step(ctx, StepAddress, func(context.Context) error {
		raw, err := address.FromShopify(order)
		if err != nil {
			return err
		}
		addr, err = address.Normalize(raw)
		return err
	}); err != nil {
		logger.WarnContext(ctx, "address rejected", "step", StepAddress, "error", err)
		return res, err
	}

	var unlock ledger.Unlock
	if err := s.step(ctx, StepLock, func(ctx context.Context) error {
		var err error
		unlock, err = s.locker.Acquire(ctx, orderID, s.cfg.LockTTL)
		if errors.Is(err, ledger.ErrLockHeld) {
			return apperr.ErrInProgress
		}
		return err
	}); err != nil {
		logger.WarnContext(ctx, "order is locked", "step", StepLock, "error", err)
		return res, err
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			logger.ErrorContext(ctx, "failed to release order lock", "error", err)
		}
	}()

	// another replica may have finished between the first lookup and the lock
	if done, ok, err := s.checkLedger(ctx, orderID, logger); err != nil {
		return res, err
	} else if ok {
		return done, nil
	}

	user := BuyerIdentity(order)
	res.ThirdPartyUser = user

	var pre *wooacry.PreorderResult
	if err := s.step(ctx, StepPreorder, func(ctx context.Context) error {
		var err error
		pre, err = s.gateway.Preorder(ctx, wooacry.PreorderRequest{
			ThirdPartyUser: user,
			Skus:           items,
			Address:        addr,
		})
		return err
	}); err != nil {
		logger.ErrorContext(ctx, "wooacry preorder failed", "step", StepPreorder, "error", err)
		s.annotate(ctx, orderID, domain.PartnerOrderStatusFailedPreorder, user, logger)
		return res, err
	}

	if err := s.step(ctx, StepSelect, func(context.Context) error {
		var err error
		res.ShippingMethodID, err = shipping.SelectCheapest(pre.ShippingMethods)
		return err
	}); err != nil {
		logger.ErrorContext(ctx, "no shipping method to select", "step", StepSelect, "error", err)
		s.annotate(ctx, orderID, domain.PartnerOrderStatusFailedPreorder, user, logger)
		return res, err
	}

	// Once sent, the submission must finish even if the caller goes away, or Wooacry may
	// hold an order the ledger never hears about.
	detached := context.WithoutCancel(ctx)

	var created *wooacry.CreateOrderResult
	if err := s.step(detached, StepCreate, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, s.cfg.CreateTimeout)
		defer cancel()

		var err error
		created, err = s.gateway.CreateOrder(ctx, wooacry.CreateOrderRequest{
			ThirdPartyOrderSN:        orderID,
			ThirdPartyOrderCreatedAt: order.CreatedAtUnix(s.now()),
			ThirdPartyUser:           user,
			ShippingMethodID:         res.ShippingMethodID,
			Skus:                     items,
			Address:                  addr,
		})
		return err
	}); err != nil {
		logger.ErrorContext(ctx, "wooacry order creation failed", "step", StepCreate, "error", err)
		s.annotate(detached, orderID, domain.PartnerOrderStatusFailedCreate, user, logger)
		return res, err
	}

	res.OrderSN = created.OrderSN
	res.CreateResponse = created.Response

	var recorded domain.PartnerOrderRecord
	if err := s.step(detached, StepRecord, func(ctx context.Context) error {
		var err error
		recorded, err = s.ledger.Record(ctx, orderID, domain.PartnerOrderRecord{
			OrderSN:        created.OrderSN,
			Status:         domain.PartnerOrderStatusCreated,
			ThirdPartyUser: user,
		})
		return err
	}); err != nil {
		logger.ErrorContext(ctx, "wooacry order created but not recorded",
			"step", StepRecord, "wooacry_order_sn", created.OrderSN, "error", err)
		return res, err
	}

	if recorded.OrderSN != created.OrderSN {
		logger.ErrorContext(ctx, "duplicate wooacry order, another run recorded first",
			"wooacry_order_sn", recorded.OrderSN, "duplicate_order_sn", created.OrderSN)
		s.duplicates.Add(detached, 1)

		res.Outcome = OutcomeAlreadyProcessed
		res.DuplicateOrderSN = created.OrderSN
		res.OrderSN = recorded.OrderSN
		return res, nil
	}

	res.Outcome = OutcomeCreated
	logger.InfoContext(ctx, "wooacry order created",
		"wooacry_order_sn", res.OrderSN, "shipping_method_id", res.ShippingMethodID, "items", len(items))

	s.publish(detached, res, logger)
	return res, nil
}

// checkLedger reports ok when the order already has a Wooacry order.
func (s *Service) checkLedger(ctx context.Context, orderID string, logger *slog.Logger) (Result, bool, error) {
	var rec *domain.PartnerOrderRecord
	if err := s.step(ctx, StepLookup, func(ctx context.Context) error {
		var err error
		rec, err = s.ledger.Lookup(ctx, orderID)
		return err
	}); err != nil {
		logger.ErrorContext(ctx, "ledger lookup failed", "step", StepLookup, "error", err)
		return Result{}, false, err
	}

	if !rec.Processed() {
		return Result{}, false, nil
	}

	logger.InfoContext(ctx, "wooacry order already exists", "wooacry_order_sn", rec.OrderSN)
	return Result{
		Outcome:        OutcomeAlreadyProcessed,
		OrderID:        orderID,
		OrderSN:        rec.OrderSN,
		ThirdPartyUser: rec.ThirdPartyUser,
	}, true, nil
}

// step runs fn in its own span and tags any error with the step name.
func (s *Service) step(ctx context.Context, step Step, fn func(context.Context) error) error {
	ctx, span := tracer.Start(ctx, "pipeline."+string(step))
	defer span.End()

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("error.kind", apperr.Kind(err)))
		return &StepError{Step: step, Err: err}
	}
	return nil
}

// annotate leaves a failure marker without an order_sn. It never blocks a redelivery.
func (s *Service) annotate(ctx context.Context, orderID string, status domain.PartnerOrderStatus, user string, logger *slog.Logger) {
	_, err := s.ledger.Record(context.WithoutCancel(ctx), orderID, domain.PartnerOrderRecord{
		Status:         status,
		ThirdPartyUser: user,
	})
	if err != nil {
		logger.WarnContext(ctx, "failed to annotate order failure", "status", status, "error", err)
	}
}

func (s *Service) publish(ctx context.Context, res Result, logger *slog.Logger) {
	if s.publisher == nil {
		return
	}

	event := domain.ManufacturingOrderSubmittedEvent{
		EventID:          uuid.NewString(),
		ShopifyOrderID:   res.OrderID,
		WooacryOrderSN:   res.OrderSN,
		ShippingMethodID: res.ShippingMethodID,
		Items:            res.Items,
		Timestamp:        s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, res.OrderID, event); err != nil {
		logger.ErrorContext(ctx, "failed to publish order submitted event", "error", err)
	}
}

func (s *Service) count(ctx context.Context, res Result, err error) {
	outcome := string(res.Outcome)
	if err != nil {
		outcome = string(OutcomeFailed) + ":" + apperr.Kind(err)
	}
	s.outcomes.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// BuyerIdentity is the third_party_user sent to Wooacry: the order email, trimmed and
// lowercased, or "guest".
func BuyerIdentity(order domain.InboundOrder) string {
	if email := strings.ToLower(order.Email.String()); email != "" {
		return email
	}
	return guestUser
}
