package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/amishk599/jobscout/internal/model"
)

// searchRow is the flat column form of a ScheduledSearch shared by the SQL stores.
type searchRow struct {
	ID          string
	UserID      string
	Keywords    string
	Location    string
	JobTypes    string // comma-separated canonical names
	RemoteTypes string
	Recency     string
	FilterText  string
	Frequency   string
	Active      bool
	CreatedAt   int64 // unix seconds
}

func encodeSearch(s model.ScheduledSearch) searchRow {
	created := s.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return searchRow{
		ID:          s.ID,
		UserID:      s.UserID,
		Keywords:    s.Criteria.Keywords,
		Location:    s.Criteria.Location,
		JobTypes:    joinNames(s.Criteria.JobTypes),
		RemoteTypes: joinNames(s.Criteria.RemoteTypes),
		Recency:     s.Criteria.Recency.String(),
		FilterText:  s.Criteria.FilterText,
		Frequency:   s.Frequency.String(),
		Active:      s.Active,
		CreatedAt:   created.Unix(),
	}
}

func decodeSearch(r searchRow) (model.ScheduledSearch, error) {
	jobTypes, err := model.ParseJobTypes(splitNames(r.JobTypes))
	if err != nil {
		return model.ScheduledSearch{}, fmt.Errorf("search %s: %w", r.ID, err)
	}
	remoteTypes, err := model.ParseRemoteTypes(splitNames(r.RemoteTypes))
	if err != nil {
		return model.ScheduledSearch{}, fmt.Errorf("search %s: %w", r.ID, err)
	}
	recency, err := model.ParseRecency(r.Recency)
	if err != nil {
		return model.ScheduledSearch{}, fmt.Errorf("search %s: %w", r.ID, err)
	}
	freq, err := model.ParseFrequency(r.Frequency)
	if err != nil {
		return model.ScheduledSearch{}, fmt.Errorf("search %s: %w", r.ID, err)
	}
	return model.ScheduledSearch{
		ID:     r.ID,
		UserID: r.UserID,
		Criteria: model.SearchCriteria{
			Keywords:    r.Keywords,
			Location:    r.Location,
			JobTypes:    jobTypes,
			RemoteTypes: remoteTypes,
			Recency:     recency,
			FilterText:  r.FilterText,
		},
		Frequency: freq,
		Active:    r.Active,
		CreatedAt: time.Unix(r.CreatedAt, 0),
	}, nil
}

func joinNames[T fmt.Stringer](vs []T) string {
	names := make([]string, len(vs))
	for i, v := range vs {
		names[i] = v.String()
	}
	return strings.Join(names, ",")
}

func splitNames(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
