package notifier

import (
	"context"
	"log/slog"

	"github.com/amishk599/jobscout/internal/model"
)

// Ensure DedupeNotifier implements model.Deliverer.
var _ model.Deliverer = (*DedupeNotifier)(nil)

// DedupeNotifier drops listings whose link was already delivered for the
// same search, then marks the rest once the inner deliverer succeeds.
type DedupeNotifier struct {
	inner  model.Deliverer
	links  model.LinkStore
	logger *slog.Logger
}

// NewDedupeNotifier wraps inner with delivered-link suppression backed by links.
func NewDedupeNotifier(inner model.Deliverer, links model.LinkStore, logger *slog.Logger) *DedupeNotifier {
	return &DedupeNotifier{inner: inner, links: links, logger: logger}
}

// Deliver forwards only unseen listings. A store lookup failure lets the
// listing through rather than losing it.
func (n *DedupeNotifier) Deliver(ctx context.Context, d model.Delivery) error {
	fresh := make([]model.EnrichedListing, 0, len(d.Listings))
	seen := make(map[string]bool, len(d.Listings))
	for _, l := range d.Listings {
		if seen[l.Link] {
			continue
		}
		seen[l.Link] = true

		delivered, err := n.links.HasDelivered(ctx, d.SearchID, l.Link)
		if err != nil {
			n.logger.Warn("delivered-link lookup failed", "search_id", d.SearchID, "link", l.Link, "error", err)
		}
		if delivered {
			continue
		}
		fresh = append(fresh, l)
	}

	if skipped := len(d.Listings) - len(fresh); skipped > 0 {
		n.logger.Debug("suppressed already delivered listings", "search_id", d.SearchID, "skipped", skipped)
	}

	d.Listings = fresh
	if err := n.inner.Deliver(ctx, d); err != nil {
		return err
	}

	for _, l := range fresh {
		if err := n.links.MarkDelivered(ctx, d.SearchID, l.Link); err != nil {
			n.logger.Warn("failed to mark link delivered", "search_id", d.SearchID, "link", l.Link, "error", err)
		}
	}
	return nil
}
