package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
)

type fakeStream struct {
	args []*redis.XAddArgs
	err  error
}

func (f *fakeStream) XAdd(_ context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.args = append(f.args, a)
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	return redis.NewStringResult("1700000000000-0", nil)
}

func TestRedisNotifier_PublishesDelivery(t *testing.T) {
	fs := &fakeStream{}
	n := NewRedisNotifier(fs, "jobscout:deliveries", discardLogger())

	reason := "requires on-site"
	rejected := sampleListing("Ops Engineer", "Beta", 0)
	rejected.FilterReason = &reason
	rejected.TechStack = nil

	if err := n.Deliver(context.Background(), delivery(sampleListing("Go Engineer", "Acme", 90), rejected)); err != nil {
		t.Fatalf("Deliver() = %v", err)
	}
	if len(fs.args) != 1 {
		t.Fatalf("XADD calls = %d, want 1", len(fs.args))
	}

	a := fs.args[0]
	if a.Stream != "jobscout:deliveries" || !a.Approx || a.MaxLen == 0 {
		t.Errorf("xadd args = %+v", a)
	}
	values := a.Values.(map[string]any)
	if values["search_id"] != "s1" || values["user_id"] != "u1" || values["count"] != 2 {
		t.Errorf("values = %v", values)
	}

	var got []map[string]any
	if err := json.Unmarshal([]byte(values["listings"].(string)), &got); err != nil {
		t.Fatalf("listings payload: %v", err)
	}
	if got[0]["compatibility_score"] != float64(90) || got[1]["filter_reason"] != "requires on-site" {
		t.Errorf("payload = %v", got)
	}
	if stack, ok := got[1]["techstack"].([]any); !ok || len(stack) != 0 {
		t.Errorf("nil techstack should encode as [], got %v", got[1]["techstack"])
	}
}

func TestRedisNotifier_EmptyDeliveryStillPublished(t *testing.T) {
	fs := &fakeStream{}
	if err := NewRedisNotifier(fs, "s", discardLogger()).Deliver(context.Background(), delivery()); err != nil {
		t.Fatalf("Deliver() = %v", err)
	}
	if len(fs.args) != 1 {
		t.Fatal("empty delivery should still be published")
	}
	if v := fs.args[0].Values.(map[string]any)["listings"]; v != "[]" {
		t.Errorf("listings = %v, want []", v)
	}
}

func TestRedisNotifier_Error(t *testing.T) {
	fs := &fakeStream{err: errors.New("connection refused")}
	err := NewRedisNotifier(fs, "s", discardLogger()).Deliver(context.Background(), delivery(sampleListing("A", "B", 1)))
	if err == nil {
		t.Fatal("expected error")
	}
}
