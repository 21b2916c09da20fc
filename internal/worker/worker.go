package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/broker"
	"storefront/internal/ledger"
	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// EventLog remembers which events a consumer already applied
type EventLog interface {
	IsEventProcessed(ctx context.Context, consumer, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, consumer, eventID string) error
}

// StockAdjuster is the part of the store the inventory worker needs
type StockAdjuster interface {
	AdjustStock(ctx context.Context, productID string, delta int) (int, error)
}

// SalesRecorder is the part of the ledger the ledger worker needs
type SalesRecorder interface {
	RecordSale(ctx context.Context, sale ledger.Sale) error
	UpdateSaleStatus(ctx context.Context, orderID, status string, at time.Time) error
}

const (
	inventoryConsumer = "inventory"
	ledgerConsumer    = "ledger"
)

// InventoryWorker decrements catalog stock after an order is placed
type InventoryWorker struct {
	source       broker.Source
	eventHandler *broker.EventHandler
	stock        StockAdjuster
	events       EventLog
}

// NewInventoryWorker creates a new inventory worker. events may be nil.
func NewInventoryWorker(source broker.Source, stock StockAdjuster, events EventLog) *InventoryWorker {
	w := &InventoryWorker{
		source:       source,
		eventHandler: broker.NewEventHandler(),
		stock:        stock,
		events:       events,
	}
	w.eventHandler.OnOrderPlaced(w.HandleOrderPlaced)
	return w
}

// Start blocks until ctx is cancelled
func (w *InventoryWorker) Start(ctx context.Context) error {
	util.GetLogger().Info("Starting inventory worker")
	return w.source.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *InventoryWorker) Stop() error {
	util.GetLogger().Info("Stopping inventory worker")
	return w.source.Close()
}

// HandleOrderPlaced subtracts each item quantity from the product stock.
// Products deleted since checkout are skipped.
func (w *InventoryWorker) HandleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	ctx, span := util.StartSpan(ctx, "InventoryWorker.HandleOrderPlaced")
	defer span.End()

	logger := util.GetLogger().With(zap.String("order_id", event.OrderID), zap.String("event_id", event.EventID))

	return once(ctx, w.events, inventoryConsumer, event.EventID, func() error {
		for i, item := range event.Items {
			item := item
			// each line is recorded on its own so a redelivery after a partial failure
			// does not decrement the lines that already succeeded
			err := once(ctx, w.events, inventoryConsumer, lineKey(event.EventID, i), func() error {
				stock, err := w.stock.AdjustStock(ctx, item.ProductID, -item.Quantity)
				if errors.Is(err, store.ErrProductNotFound) {
					util.StockAdjustmentsTotal.WithLabelValues("missing").Inc()
					logger.Warn("Product vanished before stock decrement", zap.String("product_id", item.ProductID))
					return nil
				}
				if err != nil {
					util.StockAdjustmentsTotal.WithLabelValues("error").Inc()
					return fmt.Errorf("failed to adjust stock for %s: %w", item.ProductID, err)
				}

				util.StockAdjustmentsTotal.WithLabelValues("ok").Inc()
				logger.Info("Stock decremented",
					zap.String("product_id", item.ProductID),
					zap.Int("quantity", item.Quantity),
					zap.Int("stock", stock))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// lineKey names one order line of an event in the event log
func lineKey(eventID string, line int) string {
	if eventID == "" {
		return ""
	}
	return fmt.Sprintf("%s#%d", eventID, line)
}

// LedgerWorker mirrors orders into the relational sales ledger
type LedgerWorker struct {
	source       broker.Source
	eventHandler *broker.EventHandler
	sales        SalesRecorder
	events       EventLog
}

// NewLedgerWorker creates a new ledger worker. events may be nil.
func NewLedgerWorker(source broker.Source, sales SalesRecorder, events EventLog) *LedgerWorker {
	w := &LedgerWorker{
		source:       source,
		eventHandler: broker.NewEventHandler(),
		sales:        sales,
		events:       events,
	}
	w.eventHandler.OnOrderPlaced(w.HandleOrderPlaced)
	w.eventHandler.OnOrderStatusChanged(w.HandleOrderStatusChanged)
	return w
}

// Start blocks until ctx is cancelled
func (w *LedgerWorker) Start(ctx context.Context) error {
	util.GetLogger().Info("Starting ledger worker")
	return w.source.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *LedgerWorker) Stop() error {
	util.GetLogger().Info("Stopping ledger worker")
	return w.source.Close()
}

func (w *LedgerWorker) HandleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	ctx, span := util.StartSpan(ctx, "LedgerWorker.HandleOrderPlaced")
	defer span.End()

	return once(ctx, w.events, ledgerConsumer, event.EventID, func() error {
		count := 0
		for _, item := range event.Items {
			count += item.Quantity
		}
		return w.sales.RecordSale(ctx, ledger.Sale{
			OrderID:     event.OrderID,
			Email:       event.Email,
			TotalAmount: event.TotalAmount,
			ItemCount:   count,
			Status:      string(models.OrderStatusProcessing),
			PlacedAt:    event.Timestamp,
			UpdatedAt:   event.Timestamp,
		})
	})
}

func (w *LedgerWorker) HandleOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	ctx, span := util.StartSpan(ctx, "LedgerWorker.HandleOrderStatusChanged")
	defer span.End()

	return once(ctx, w.events, ledgerConsumer, event.EventID, func() error {
		err := w.sales.UpdateSaleStatus(ctx, event.OrderID, string(event.Status), event.Timestamp)
		if errors.Is(err, ledger.ErrSaleNotFound) {
			// orders placed before the ledger existed
			util.GetLogger().Warn("Status change for order missing from ledger", zap.String("order_id", event.OrderID))
			return nil
		}
		return err
	})
}

// once applies fn unless the event log says consumer already did
func once(ctx context.Context, events EventLog, consumer, eventID string, fn func() error) error {
	if events == nil || eventID == "" {
		return fn()
	}

	done, err := events.IsEventProcessed(ctx, consumer, eventID)
	if err != nil {
		return err
	}
	if done {
		util.GetLogger().Debug("Skipping already processed event", zap.String("consumer", consumer), zap.String("event_id", eventID))
		return nil
	}

	if err := fn(); err != nil {
		return err
	}
	return events.MarkEventProcessed(ctx, consumer, eventID)
}
