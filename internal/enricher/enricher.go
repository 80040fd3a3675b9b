// Package enricher turns raw store widgets into export-ready records joined
// with each store's contact details.
package enricher

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/divar-cli/internal/metrics"
	"github.com/sells-group/divar-cli/internal/model"
	"github.com/sells-group/divar-cli/internal/store"
)

// ContactLookup fetches a store's contact block. *marketplace.Client implements it.
type ContactLookup interface {
	Contact(ctx context.Context, slug string) (*model.ContactResponse, error)
}

// Result summarizes one enrichment pass.
type Result struct {
	Seen    int `json:"seen" yaml:"seen"`
	Cleaned int `json:"cleaned" yaml:"cleaned"`
	Skipped int `json:"skipped" yaml:"skipped"`
}

// Enricher reads NamedCollection[category] and appends one CleanedRecord per
// recognized widget to NamedCollection[category-cleaned].
type Enricher struct {
	contacts   ContactLookup
	store      store.Store
	widgetType string
}

// New creates an Enricher. An empty widgetType selects EVENT_ROW.
func New(contacts ContactLookup, st store.Store, widgetType string) *Enricher {
	if widgetType == "" {
		widgetType = model.EventRowWidget
	}
	return &Enricher{contacts: contacts, store: st, widgetType: widgetType}
}

// ToCleanedRecord projects a widget onto a CleanedRecord. ok is false when the
// widget is not of the recognized type. PhoneNumber is left empty.
func (e *Enricher) ToCleanedRecord(w model.Widget) (model.CleanedRecord, bool) {
	return ToCleanedRecord(w, e.widgetType)
}

// ToCleanedRecord projects a widget of the given type onto a CleanedRecord.
// Missing or non-string fields become "".
func ToCleanedRecord(w model.Widget, widgetType string) (model.CleanedRecord, bool) {
	if w.WidgetType != widgetType {
		return model.CleanedRecord{}, false
	}
	return model.CleanedRecord{
		Title:    w.String("title"),
		Slug:     w.String("action", "payload", "slug"),
		Subtitle: w.String("subtitle"),
		ImageURL: w.String("image_url"),
		Label:    w.String("label"),
	}, true
}

// Enrich runs the enrichment stage for one category. Records are appended one
// at a time, so an aborted run keeps every record produced before the failure.
func (e *Enricher) Enrich(ctx context.Context, category string) (Result, error) {
	log := zap.L().With(zap.String("category", category))
	target := model.CleanedCollection(category)

	items, err := e.store.Read(ctx, category)
	if err != nil {
		return Result{}, eris.Wrapf(err, "enricher: read %s", category)
	}

	var res Result
	for i, raw := range items {
		res.Seen++

		// Only the type is decoded up front; other widgets may carry any payload.
		var head struct {
			WidgetType string `json:"widget_type"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			return res, eris.Wrapf(err, "enricher: decode item %d of %s", i, category)
		}
		if head.WidgetType != e.widgetType {
			res.Skipped++
			continue
		}

		var w model.Widget
		if err := json.Unmarshal(raw, &w); err != nil {
			return res, eris.Wrapf(err, "enricher: decode %s item %d of %s", head.WidgetType, i, category)
		}
		rec, _ := e.ToCleanedRecord(w)

		if rec.Slug != "" {
			contact, err := e.contacts.Contact(ctx, rec.Slug)
			if err != nil {
				return res, eris.Wrapf(err, "enricher: contact for %s", rec.Slug)
			}
			rec.PhoneNumber = contact.PhoneNumber()
		}

		if err := store.AppendItems(ctx, e.store, target, rec); err != nil {
			return res, eris.Wrapf(err, "enricher: append %s", target)
		}
		res.Cleaned++
		metrics.ObserveAppend(target, 1)
	}

	log.Info("enrichment complete",
		zap.Int("seen", res.Seen),
		zap.Int("cleaned", res.Cleaned),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}
