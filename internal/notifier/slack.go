package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/jobscout/internal/model"
)

// Ensure SlackNotifier implements model.Deliverer.
var _ model.Deliverer = (*SlackNotifier)(nil)

// SlackNotifier sends listing alerts to a Slack channel via Incoming Webhooks.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	pause      time.Duration
	logger     *slog.Logger
}

// NewSlackNotifier returns a deliverer that posts each listing to Slack via webhook.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		pause:      500 * time.Millisecond,
		logger:     logger,
	}
}

// Deliver sends each listing as a separate Slack message using Block Kit.
// Returns an error only if ALL messages fail. Individual failures are logged.
func (s *SlackNotifier) Deliver(ctx context.Context, d model.Delivery) error {
	if len(d.Listings) == 0 {
		return nil
	}

	failures := 0
	for i, l := range d.Listings {
		if i > 0 {
			if err := sleep(ctx, s.pause); err != nil {
				return err
			}
		}

		if err := s.sendMessage(ctx, l); err != nil {
			s.logger.Error("slack notification failed",
				"search_id", d.SearchID, "company", l.Company, "title", l.Title, "error", err)
			failures++
		}
	}

	sent := len(d.Listings) - failures
	if failures == len(d.Listings) {
		return fmt.Errorf("all %d slack notifications failed", failures)
	}
	s.logger.Info("slack notifications complete", "search_id", d.SearchID, "sent", sent, "failed", failures)
	return nil
}

func (s *SlackNotifier) sendMessage(ctx context.Context, l model.EnrichedListing) error {
	body, err := json.Marshal(buildPayload(l))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	status, retryAfter, err := s.post(ctx, body)
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}

	if status == http.StatusTooManyRequests {
		secs, _ := strconv.Atoi(retryAfter)
		if secs <= 0 {
			secs = 1
		}
		s.logger.Warn("slack rate limited, retrying", "retry_after_secs", secs)
		if err := sleep(ctx, time.Duration(secs)*time.Second); err != nil {
			return err
		}

		status, _, err = s.post(ctx, body)
		if err != nil {
			return fmt.Errorf("post to slack (retry): %w", err)
		}
		if status != http.StatusOK {
			return fmt.Errorf("slack returned %d on retry", status)
		}
		s.logger.Info("slack message sent", "company", l.Company, "title", l.Title, "retried", true)
		return nil
	}

	if status != http.StatusOK {
		return fmt.Errorf("slack returned %d", status)
	}
	s.logger.Info("slack message sent", "company", l.Company, "title", l.Title)
	return nil
}

func (s *SlackNotifier) post(ctx context.Context, body []byte) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	return resp.StatusCode, resp.Header.Get("Retry-After"), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Block Kit payload types.

type slackPayload struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string         `json:"type"`
	Text     *slackText     `json:"text,omitempty"`
	Fields   []slackText    `json:"fields,omitempty"`
	Elements []slackElement `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackElement struct {
	Type  string    `json:"type"`
	Text  slackText `json:"text"`
	URL   string    `json:"url"`
	Style string    `json:"style"`
}

// SendTestMessage sends a dummy delivery to verify the integration works.
func SendTestMessage(ctx context.Context, d model.Deliverer) error {
	score := 88
	return d.Deliver(ctx, model.Delivery{
		SearchID: "test",
		UserID:   "test",
		Listings: []model.EnrichedListing{{
			ShortListing: model.ShortListing{
				ID:        "test-001",
				Title:     "Test Notification: Integration Verified",
				Company:   "JobScout Test",
				Location:  "Everywhere",
				Link:      "https://www.linkedin.com/jobs/",
				PostedAgo: "just now",
			},
			TechStack: []string{"Go"},
			Score:     &score,
		}},
	})
}

func buildPayload(l model.EnrichedListing) slackPayload {
	posted := l.PostedAgo
	if posted == "" {
		posted = "Just detected"
	}
	score := "Unscored"
	if l.Score != nil {
		score = fmt.Sprintf("%d/100", *l.Score)
	}

	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: "🚀 " + l.Company + ": " + l.Title},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*Company:*\n" + l.Company},
				{Type: "mrkdwn", Text: "*Location:*\n" + l.Location},
			},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*Posted:*\n" + posted},
				{Type: "mrkdwn", Text: "*Match:*\n" + score},
			},
		},
	}

	if len(l.TechStack) > 0 || l.FilterReason != nil {
		var lines []string
		if len(l.TechStack) > 0 {
			lines = append(lines, "*Stack:* "+strings.Join(l.TechStack, ", "))
		}
		if l.FilterReason != nil {
			lines = append(lines, "*Note:* "+*l.FilterReason)
		}
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: strings.Join(lines, "\n")},
		})
	}

	blocks = append(blocks,
		slackBlock{
			Type: "actions",
			Elements: []slackElement{
				{
					Type:  "button",
					Text:  slackText{Type: "plain_text", Text: "Apply Now"},
					URL:   l.Link,
					Style: "primary",
				},
			},
		},
		slackBlock{Type: "divider"},
	)

	return slackPayload{Blocks: blocks}
}
