package store

import (
	"context"
	"time"

	"github.com/amishk599/jobscout/internal/model"
)

var _ model.LinkStore = (*NopStore)(nil)

// NopStore is a no-op link store used in dry-run mode. It never marks links
// as delivered, so every listing appears new on each run.
type NopStore struct{}

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) HasDelivered(context.Context, string, string) (bool, error) { return false, nil }
func (s *NopStore) MarkDelivered(context.Context, string, string) error        { return nil }
func (s *NopStore) Cleanup(context.Context, time.Duration) error               { return nil }
