package ai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"text/template"

	"golang.org/x/sync/errgroup"

	"github.com/amishk599/jobscout/internal/model"
)

// EnricherOptions sizes batches and the dispatch width.
type EnricherOptions struct {
	MaxInputTokens         int
	ReservedResponseTokens int
	DescriptionMaxChars    int
	Concurrency            int
}

// Enricher scores short listings against search criteria in token-bounded
// batches.
type Enricher struct {
	provider   LLMProvider
	tmpl       *template.Template
	normalizer *Normalizer
	opts       EnricherOptions
	logger     *slog.Logger
}

// NewEnricher returns an Enricher. normalizer may be nil to skip translation.
func NewEnricher(provider LLMProvider, tmpl *template.Template, normalizer *Normalizer, opts EnricherOptions, logger *slog.Logger) *Enricher {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Enricher{
		provider:   provider,
		tmpl:       tmpl,
		normalizer: normalizer,
		opts:       opts,
		logger:     logger,
	}
}

// Enrich never fails. When scoring is unavailable every input comes back
// once, unscored, in input order; otherwise the result is sorted by score,
// highest first, with unscored listings last.
func (e *Enricher) Enrich(ctx context.Context, criteria model.SearchCriteria, listings []model.ShortListing) []model.EnrichedListing {
	if len(listings) == 0 {
		return []model.EnrichedListing{}
	}
	out, err := e.enrich(ctx, criteria, listings)
	if err != nil {
		e.logger.Warn("llm filtering unavailable, passing listings through unscored",
			"stage", "llm", "keywords", criteria.Keywords, "listings", len(listings), "error", err)
		return Unscored(listings)
	}
	return out
}

// Unscored wraps listings with no score, tech stack or reason.
func Unscored(listings []model.ShortListing) []model.EnrichedListing {
	out := make([]model.EnrichedListing, len(listings))
	for i, l := range listings {
		out[i] = model.EnrichedListing{ShortListing: l, TechStack: []string{}}
	}
	return out
}

type batchOutcome struct {
	results []scoredResult
	err     error
}

func (e *Enricher) enrich(ctx context.Context, criteria model.SearchCriteria, listings []model.ShortListing) ([]model.EnrichedListing, error) {
	normalized := e.normalizer.Normalize(ctx, listings)

	base, err := e.render(criteria, "")
	if err != nil {
		return nil, err
	}
	budget := BatchBudget{
		MaxInputTokens:         e.opts.MaxInputTokens,
		ReservedResponseTokens: e.opts.ReservedResponseTokens,
		BaseTokens:             EstimateTokens(base),
		DescriptionMaxChars:    e.opts.DescriptionMaxChars,
	}
	batches := SplitBatches(normalized, budget)
	e.logger.Debug("split listings into batches", "stage", "llm", "listings", len(normalized), "batches", len(batches), "available_tokens", budget.Available())

	outcomes := make([]batchOutcome, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)
	for i, b := range batches {
		g.Go(func() error {
			res, err := e.runBatch(gctx, criteria, b)
			outcomes[i] = batchOutcome{results: res, err: err}
			// Without a credential no batch can succeed.
			if errors.Is(err, model.ErrNoCredential) {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	failed := 0
	for i, o := range outcomes {
		if o.err != nil {
			failed++
			e.logger.Warn("llm batch failed, leaving its listings unscored",
				"stage", "llm", "batch", i, "offset", batches[i].Offset, "size", len(batches[i].Listings), "error", o.err)
		}
	}
	if failed == len(batches) {
		return nil, fmt.Errorf("all %d llm batches failed: %w", failed, outcomes[0].err)
	}

	return merge(normalized, batches, outcomes), nil
}

func (e *Enricher) runBatch(ctx context.Context, criteria model.SearchCriteria, b Batch) ([]scoredResult, error) {
	prompt, err := e.render(criteria, renderListings(b, e.opts.DescriptionMaxChars))
	if err != nil {
		return nil, err
	}
	raw, err := e.provider.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return parseBatchResponse(raw, len(b.Listings))
}

func (e *Enricher) render(c model.SearchCriteria, listingBlock string) (string, error) {
	data := struct {
		Keywords, Location, JobTypes, RemoteTypes, Recency, FilterText, Listings string
	}{
		Keywords:    c.Keywords,
		Location:    c.Location,
		JobTypes:    joinNames(c.JobTypes),
		RemoteTypes: joinNames(c.RemoteTypes),
		Recency:     c.Recency.String(),
		FilterText:  c.FilterText,
		Listings:    listingBlock,
	}
	var buf bytes.Buffer
	if err := e.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render filter prompt: %w", err)
	}
	return buf.String(), nil
}

// merge maps batch-local results back onto the input sequence. Listings in a
// failed batch stay unscored; listings the model skipped score 0.
func merge(listings []model.ShortListing, batches []Batch, outcomes []batchOutcome) []model.EnrichedListing {
	out := Unscored(listings)
	for i, b := range batches {
		o := outcomes[i]
		if o.err != nil {
			continue
		}
		for j := range b.Listings {
			zero := 0
			out[b.Offset+j].Score = &zero
		}
		for _, r := range o.results {
			score := r.Score
			el := &out[b.Offset+r.Index]
			el.Score = &score
			el.TechStack = r.TechStack
			el.FilterReason = r.Reason
		}
	}

	sort.SliceStable(out, func(a, b int) bool {
		sa, sb := out[a].Score, out[b].Score
		switch {
		case sa == nil:
			return false
		case sb == nil:
			return true
		default:
			return *sa > *sb
		}
	})
	return out
}

func joinNames[T fmt.Stringer](vals []T) string {
	names := make([]string, len(vals))
	for i, v := range vals {
		names[i] = v.String()
	}
	return strings.Join(names, ", ")
}
