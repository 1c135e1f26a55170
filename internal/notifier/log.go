package notifier

import (
	"context"
	"log/slog"

	"github.com/amishk599/jobscout/internal/model"
)

// Ensure LogNotifier implements model.Deliverer.
var _ model.Deliverer = (*LogNotifier)(nil)

// LogNotifier writes delivered listings to the given logger as structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a deliverer that logs each listing via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Deliver logs each listing with search, title, company, score and link.
// Returns nil (stdout logging does not fail).
func (n *LogNotifier) Deliver(_ context.Context, d model.Delivery) error {
	if len(d.Listings) == 0 {
		n.logger.Info("no new listings", "search_id", d.SearchID, "user_id", d.UserID)
		return nil
	}
	for _, l := range d.Listings {
		args := []any{
			"search_id", d.SearchID,
			"user_id", d.UserID,
			"company", l.Company,
			"title", l.Title,
			"location", l.Location,
			"url", l.Link,
			"posted", l.PostedAgo,
		}
		if l.Score != nil {
			args = append(args, "score", *l.Score)
		}
		if len(l.TechStack) > 0 {
			args = append(args, "stack", l.TechStack)
		}
		n.logger.Info("new listing", args...)
	}
	return nil
}
