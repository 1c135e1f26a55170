package browser

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/playwright-community/playwright-go"
)

// RandomDelay sleeps for a uniform duration in [min, max].
func RandomDelay(ctx context.Context, min, max time.Duration) error {
	d := min
	if max > min {
		d += time.Duration(rand.Int64N(int64(max - min)))
	}
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// MoveMouseRandomly drifts the cursor through a few points inside the viewport.
func MoveMouseRandomly(page playwright.Page) error {
	w, h := 1280, 720
	if vp := page.ViewportSize(); vp != nil {
		w, h = vp.Width, vp.Height
	}
	moves := 2 + rand.IntN(3)
	for i := 0; i < moves; i++ {
		x := float64(w) * (0.1 + 0.8*rand.Float64())
		y := float64(h) * (0.1 + 0.8*rand.Float64())
		if err := page.Mouse().Move(x, y, playwright.MouseMoveOptions{
			Steps: playwright.Int(5 + rand.IntN(15)),
		}); err != nil {
			return fmt.Errorf("mouse move: %w", err)
		}
	}
	return nil
}

// ClickWithJitter clicks el at a random point off its exact centre.
func ClickWithJitter(page playwright.Page, el playwright.Locator) error {
	box, err := el.BoundingBox()
	if err != nil {
		return fmt.Errorf("bounding box: %w", err)
	}
	if box == nil {
		return el.Click()
	}
	x, y := jitterPoint(*box, rand.Float64)
	if err := page.Mouse().Move(x, y, playwright.MouseMoveOptions{Steps: playwright.Int(8)}); err != nil {
		return fmt.Errorf("mouse move: %w", err)
	}
	return page.Mouse().Click(x, y)
}

// jitterPoint returns a point within the middle 60% of box on each axis.
func jitterPoint(box playwright.Rect, rnd func() float64) (x, y float64) {
	x = box.X + box.Width*(0.2+0.6*rnd())
	y = box.Y + box.Height*(0.2+0.6*rnd())
	return x, y
}

// CardList is a scrollable list of result cards.
type CardList interface {
	// IDs returns the ids of cards currently rendered, in DOM order.
	IDs() ([]string, error)
	// ScrollTo brings the card at index into view.
	ScrollTo(index int) error
}

// ScrollOptions tunes ScrollCardList.
type ScrollOptions struct {
	StableRounds      int     // stop after this many scrolls reveal nothing new
	MaxAttempts       int     // hard cap on scrolls
	MiddleProbability float64 // chance of scrolling to a middle card instead of the last
	MinPause          time.Duration
	MaxPause          time.Duration
}

// DefaultScrollOptions suits a lazily rendered list of ten to a few dozen cards.
func DefaultScrollOptions() ScrollOptions {
	return ScrollOptions{
		StableRounds:      3,
		MaxAttempts:       25,
		MiddleProbability: 0.15,
		MinPause:          400 * time.Millisecond,
		MaxPause:          1200 * time.Millisecond,
	}
}

// ScrollCardList scrolls until the list stops growing and returns every card
// id observed along the way, first-seen order. Ids seen earlier are kept even
// if a virtualised list has since unmounted them.
func ScrollCardList(ctx context.Context, list CardList, opts ScrollOptions) ([]string, error) {
	seen := make(map[string]bool)
	var order []string
	collect := func(ids []string) int {
		added := 0
		for _, id := range ids {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			order = append(order, id)
			added++
		}
		return added
	}

	ids, err := list.IDs()
	if err != nil {
		return nil, err
	}
	collect(ids)

	stale := 0
	for attempt := 0; attempt < opts.MaxAttempts && stale < opts.StableRounds; attempt++ {
		if len(ids) == 0 {
			break
		}
		target := len(ids) - 1
		if rand.Float64() < opts.MiddleProbability {
			target = len(ids) / 2
		}
		if err := list.ScrollTo(target); err != nil {
			return order, fmt.Errorf("scroll to card %d: %w", target, err)
		}
		if err := RandomDelay(ctx, opts.MinPause, opts.MaxPause); err != nil {
			return order, err
		}
		if ids, err = list.IDs(); err != nil {
			return order, err
		}
		if collect(ids) == 0 {
			stale++
		} else {
			stale = 0
		}
	}
	return order, nil
}

// LocatorCardList reads card ids from an attribute on every element matching
// a locator.
type LocatorCardList struct {
	Cards     playwright.Locator
	Attribute string
}

func (l LocatorCardList) IDs() ([]string, error) {
	n, err := l.Cards.Count()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		v, err := l.Cards.Nth(i).GetAttribute(l.Attribute)
		if err != nil {
			continue
		}
		ids = append(ids, v)
	}
	return ids, nil
}

func (l LocatorCardList) ScrollTo(index int) error {
	return l.Cards.Nth(index).ScrollIntoViewIfNeeded()
}
