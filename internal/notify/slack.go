package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/slack-go/slack"
)

// Slack posts to a Slack incoming webhook.
type Slack struct {
	url    string
	client *http.Client
}

// NewSlack creates a Slack sink. A nil client uses http.DefaultClient.
func NewSlack(webhookURL string, client *http.Client) *Slack {
	if client == nil {
		client = http.DefaultClient
	}
	return &Slack{url: webhookURL, client: client}
}

func (s *Slack) Name() string { return "slack" }

// Send converts markdown to mrkdwn and posts it.
func (s *Slack) Send(ctx context.Context, markdown string) error {
	msg := &slack.WebhookMessage{Text: MarkdownToMrkdwn(markdown)}
	if err := slack.PostWebhookCustomHTTPContext(ctx, s.url, s.client, msg); err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	return nil
}

// MarkdownToMrkdwn converts the Markdown subset used in notifications
// to Slack's mrkdwn: **bold** becomes *bold*, *italic* becomes _italic_.
// Code spans are left alone.
func MarkdownToMrkdwn(md string) string {
	var b strings.Builder
	inCode := false
	for i := 0; i < len(md); i++ {
		switch ch := md[i]; {
		case ch == '`':
			inCode = !inCode
			b.WriteByte(ch)
		case ch == '*' && !inCode:
			if i+1 < len(md) && md[i+1] == '*' {
				b.WriteByte('*')
				i++
			} else {
				b.WriteByte('_')
			}
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}
