// Package projection applies change events to the product materialized view.
package projection

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/product-view/internal/decode"
	"github.com/example/product-view/internal/domain/product"
	"github.com/example/product-view/internal/events"
	"github.com/example/product-view/internal/metrics"
	"github.com/example/product-view/internal/store"
)

// unknownKind tags decode failures in the metrics, where no change kind is
// available yet.
const unknownKind = "UNKNOWN"

// Projector is the change-event state machine: it decides and performs
// create, version-gated update or delete against the store, and emits domain
// events. It holds no locks across decode and persist; ordering per key is
// the transport's responsibility and the version gate is the backstop
// against duplicates and stale redelivery.
type Projector struct {
	store     store.Store
	publisher events.Publisher
	counters  *metrics.Counters
	log       *zap.Logger
}

func New(s store.Store, publisher events.Publisher, counters *metrics.Counters, log *zap.Logger) *Projector {
	return &Projector{
		store:     s,
		publisher: publisher,
		counters:  counters,
		log:       log,
	}
}

// HandleMessage decodes one raw change-event payload and applies it. This is
// the handler the transport consumer dispatches to.
func (p *Projector) HandleMessage(ctx context.Context, key, value []byte) error {
	ev, err := decode.ChangeEvent(value)
	if err != nil {
		p.counters.EventFailed(unknownKind, string(product.Classify(err).Kind))
		p.log.Warn("discarding undecodable message",
			zap.String("key", string(key)), zap.Error(err))
		return err
	}
	return p.Apply(ctx, ev)
}

// Apply performs one projection step.
func (p *Projector) Apply(ctx context.Context, ev *product.ChangeEvent) error {
	var err error
	switch ev.Kind {
	case product.ChangeCreate:
		err = p.create(ctx, ev)
	case product.ChangeUpdate:
		err = p.update(ctx, ev)
	case product.ChangeDelete:
		err = p.delete(ctx, ev)
	default:
		err = product.NewError(product.KindInvalidMessage, fmt.Sprintf("unknown change type: %q", ev.Kind))
	}

	if err != nil {
		p.counters.EventFailed(string(ev.Kind), string(product.Classify(err).Kind))
		return err
	}
	p.counters.EventProcessed(string(ev.Kind))
	return nil
}

func (p *Projector) create(ctx context.Context, ev *product.ChangeEvent) error {
	exists, err := p.store.ExistsByID(ctx, ev.ProductID)
	if err != nil {
		return product.WrapStoreError("checking product existence", err)
	}
	if exists {
		return product.NewError(product.KindConflict,
			fmt.Sprintf("product %s already exists", ev.ProductID))
	}

	prod, err := product.New(ev.ProductID, ev.Name, ev.Description, ev.Price, ev.Category, ev.Timestamp, ev.Version)
	if err != nil {
		return err
	}
	if err := p.store.Save(ctx, prod); err != nil {
		return product.WrapStoreError("saving created product", err)
	}

	p.publish(ctx, product.Created{Product: prod})
	return nil
}

func (p *Projector) update(ctx context.Context, ev *product.ChangeEvent) error {
	existing, err := p.store.FindByID(ctx, ev.ProductID)
	if err != nil {
		return product.WrapStoreError("loading product for update", err)
	}
	if existing == nil {
		return product.NewError(product.KindNotFound,
			fmt.Sprintf("product %s not found for update", ev.ProductID))
	}
	// Stale or duplicate delivery: rejecting is the idempotent outcome.
	if ev.Version <= existing.Version {
		return product.NewError(product.KindConflict,
			"product version must be higher than existing version")
	}

	next := existing.Update(ev.Name, ev.Description, ev.Price, ev.Category, ev.Timestamp, ev.Version)
	if err := p.store.Save(ctx, next); err != nil {
		return product.WrapStoreError("saving updated product", err)
	}

	p.publish(ctx, product.Updated{Product: next})
	return nil
}

func (p *Projector) delete(ctx context.Context, ev *product.ChangeEvent) error {
	exists, err := p.store.ExistsByID(ctx, ev.ProductID)
	if err != nil {
		return product.WrapStoreError("checking product existence", err)
	}
	if !exists {
		return product.NewError(product.KindNotFound,
			fmt.Sprintf("product %s not found for delete", ev.ProductID))
	}

	if err := p.store.DeleteByID(ctx, ev.ProductID); err != nil {
		return product.WrapStoreError("deleting product", err)
	}

	p.publish(ctx, product.Deleted{ProductID: ev.ProductID})
	return nil
}

// publish is fire-and-forget: the projection step already succeeded, so a
// publish failure is logged and the message still acknowledges.
func (p *Projector) publish(ctx context.Context, event product.Event) {
	if err := p.publisher.Publish(ctx, event); err != nil {
		p.log.Warn("publishing domain event",
			zap.String("event", event.EventName()),
			zap.String("product_id", event.ProductKey()),
			zap.Error(err))
	}
}
