// Package chat integrates the presence pipeline with the Slack Events API:
// inbound app mentions trigger a presence check, and results are reported
// back as channel messages.
package chat

import (
	"context"

	"github.com/slack-go/slack"

	"github.com/officewatch/officewatch/internal/errors"
)

// Sender posts a text message to a chat channel. The dispatcher only sees
// this interface so it can be tested with a fake.
type Sender interface {
	PostMessage(ctx context.Context, channelID, text string) error
}

// SlackSender sends messages through the Slack Web API.
type SlackSender struct {
	client *slack.Client
}

// NewSlackSender creates a sender for the given bot token.
func NewSlackSender(botToken string) *SlackSender {
	return &SlackSender{client: slack.New(botToken)}
}

// PostMessage implements Sender.
func (s *SlackSender) PostMessage(ctx context.Context, channelID, text string) error {
	_, _, err := s.client.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false))
	if err != nil {
		return &errors.ChatError{
			Code:    errors.CodeChatSend,
			Message: "Failed to post chat message",
			Channel: channelID,
			Cause:   err,
		}
	}
	return nil
}
