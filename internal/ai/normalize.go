package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/sync/errgroup"

	"github.com/amishk599/jobscout/internal/model"
)

// Normalizer translates non-English listings to English.
type Normalizer struct {
	provider    LLMProvider
	tmpl        *template.Template
	concurrency int
	logger      *slog.Logger
}

// NewNormalizer returns a Normalizer. A nil provider disables translation.
func NewNormalizer(provider LLMProvider, tmpl *template.Template, concurrency int, logger *slog.Logger) *Normalizer {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Normalizer{provider: provider, tmpl: tmpl, concurrency: concurrency, logger: logger}
}

// Normalize returns listings with title and description in English where
// translation succeeded. A failed translation keeps the original text.
func (n *Normalizer) Normalize(ctx context.Context, listings []model.ShortListing) []model.ShortListing {
	out := make([]model.ShortListing, len(listings))
	copy(out, listings)
	if n == nil || n.provider == nil {
		return out
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.concurrency)
	for i := range out {
		lang, ok := detectLanguage(out[i])
		if !ok || lang == whatlanggo.Eng {
			continue
		}
		g.Go(func() error {
			t, err := n.translate(gctx, out[i])
			if err != nil {
				n.logger.Debug("translation failed, keeping original",
					"listing_id", string(out[i].ID), "lang", lang.Iso6391(), "error", err)
				return nil
			}
			out[i].Title, out[i].Description = t.Title, t.Description
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// detectLanguage reports the listing's language when detection is reliable.
func detectLanguage(l model.ShortListing) (whatlanggo.Lang, bool) {
	text := l.Title + "\n" + truncateRunes(l.Description, 600)
	if strings.TrimSpace(text) == "" {
		return 0, false
	}
	info := whatlanggo.Detect(text)
	return info.Lang, info.IsReliable()
}

type translation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (n *Normalizer) translate(ctx context.Context, l model.ShortListing) (translation, error) {
	var buf bytes.Buffer
	if err := n.tmpl.Execute(&buf, struct{ Title, Description string }{l.Title, l.Description}); err != nil {
		return translation{}, fmt.Errorf("render translate prompt: %w", err)
	}

	raw, err := n.provider.Complete(ctx, buf.String())
	if err != nil {
		return translation{}, err
	}
	body, err := sliceJSON(raw, '{', '}')
	if err != nil {
		return translation{}, err
	}
	var t translation
	if err := json.Unmarshal(body, &t); err != nil {
		return translation{}, fmt.Errorf("unmarshal translation: %w", err)
	}
	t.Title = strings.TrimSpace(t.Title)
	t.Description = strings.TrimSpace(t.Description)
	if t.Title == "" {
		return translation{}, fmt.Errorf("empty translated title")
	}
	if t.Description == "" {
		t.Description = l.Description
	}
	return t, nil
}
