// Package ops sends operator notifications (sweep digests, store failure
// warnings) to Slack. Strictly one-way and best-effort: a failed post is the
// operator's loss, never the caller's error.
package ops

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// SlackNotifier posts notifications to a single ops channel.
type SlackNotifier struct {
	client    slackClient
	channelID string
}

// SlackOpts holds parameters for creating a SlackNotifier.
type SlackOpts struct {
	BotToken  string // xoxb-... Slack bot token
	ChannelID string
	// For testing: inject a mock client instead of the real Slack API.
	Client slackClient
}

// NewSlackNotifier creates a SlackNotifier.
func NewSlackNotifier(opts SlackOpts) (*SlackNotifier, error) {
	if opts.Client == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("ops: slack bot token is required")
	}
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("ops: slack channel is required")
	}
	client := opts.Client
	if client == nil {
		client = slackapi.New(opts.BotToken)
	}
	return &SlackNotifier{client: client, channelID: opts.ChannelID}, nil
}

// Notify posts a titled message to the ops channel.
func (n *SlackNotifier) Notify(ctx context.Context, title, body string) error {
	_, _, err := n.client.PostMessageContext(ctx, n.channelID,
		slackapi.MsgOptionText(fmt.Sprintf("*%s*\n%s", title, body), false))
	if err != nil {
		return fmt.Errorf("ops: slack post: %w", err)
	}
	return nil
}
