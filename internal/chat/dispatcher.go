package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/slack-go/slack/slackevents"

	"github.com/officewatch/officewatch/internal/errors"
	"github.com/officewatch/officewatch/internal/logging"
	"github.com/officewatch/officewatch/internal/metrics"
	"github.com/officewatch/officewatch/internal/presence"
)

// pipelineTimeout bounds the detached scan-and-report task. The double scan
// alone runs over a minute; five minutes leaves room for slow subnets
// without letting a wedged subprocess pin a goroutine forever.
const pipelineTimeout = 5 * time.Minute

// ackMessage is posted synchronously before the scan starts so the mention
// gets an immediate response; the scan itself takes over a minute.
const ackMessage = "在席状況を確認します。スキャンに1分ほどかかるので少々お待ちください。"

// Checker runs one presence check. Satisfied by *presence.Service.
type Checker interface {
	Check(ctx context.Context, trigger string) (*presence.Result, error)
}

// Dispatcher routes inbound Slack event payloads: URL-verification
// challenges are answered, and app mentions containing the trigger keyword
// start the presence pipeline.
type Dispatcher struct {
	sender  Sender
	checker Checker
	keyword string
	logger  *logging.Logger

	// wg tracks detached pipeline tasks so tests can wait for them.
	wg sync.WaitGroup
}

// NewDispatcher creates a dispatcher triggering on mentions that contain
// keyword.
func NewDispatcher(sender Sender, checker Checker, keyword string, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		sender:  sender,
		checker: checker,
		keyword: keyword,
		logger:  logger.WithComponent("chat"),
	}
}

// HandleEventPayload processes one raw Events API payload. For a URL
// verification request it returns the challenge token to echo; for
// everything else challenge is empty and the event has been dispatched.
func (d *Dispatcher) HandleEventPayload(ctx context.Context, body []byte) (challenge string, err error) {
	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		return "", errors.WrapChatError(errors.CodeChatDispatch, "Failed to parse event payload", err)
	}

	switch event.Type {
	case slackevents.URLVerification:
		var resp slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", errors.WrapChatError(errors.CodeChatDispatch, "Failed to parse challenge", err)
		}
		return resp.Challenge, nil

	case slackevents.CallbackEvent:
		metrics.Counter(metrics.MetricChatEvents, metrics.Labels{"type": event.InnerEvent.Type})
		if mention, ok := event.InnerEvent.Data.(*slackevents.AppMentionEvent); ok {
			d.handleMention(ctx, mention)
		}
		return "", nil

	default:
		d.logger.Debug("Ignoring event", "type", event.Type)
		return "", nil
	}
}

// handleMention acknowledges a triggering mention synchronously, then runs
// the scan pipeline as a detached task. The webhook response cycle must not
// wait on the pipeline: its worst case exceeds any webhook budget.
func (d *Dispatcher) handleMention(ctx context.Context, mention *slackevents.AppMentionEvent) {
	if !strings.Contains(mention.Text, d.keyword) {
		d.logger.Debug("Mention without trigger keyword ignored", "user", mention.User)
		return
	}

	d.logger.InfoChat("Presence check triggered by mention",
		"user", mention.User, "channel", mention.Channel)

	if err := d.post(ctx, mention.Channel, ackMessage); err != nil {
		d.logger.ErrorChat("Failed to acknowledge mention", err)
		// Still run the pipeline; the follow-up may succeed even if the
		// ack did not.
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		taskCtx, cancel := context.WithTimeout(context.Background(), pipelineTimeout)
		defer cancel()
		d.runPipeline(taskCtx, mention.Channel)
	}()
}

// runPipeline executes the presence check and posts the follow-up message.
// Every failure is converted to a follow-up error message; the channel is
// never left waiting silently.
func (d *Dispatcher) runPipeline(ctx context.Context, channelID string) {
	result, err := d.checker.Check(ctx, "chat")
	if err != nil {
		d.logger.ErrorChat("Presence pipeline failed", err)
		text := fmt.Sprintf("%s（%v）", presence.CheckFailedMessage(), err)
		if sendErr := d.post(ctx, channelID, text); sendErr != nil {
			d.logger.ErrorChat("Failed to report pipeline error", sendErr)
		}
		return
	}

	if err := d.post(ctx, channelID, formatPresenceMessage(result)); err != nil {
		d.logger.ErrorChat("Failed to post presence report", err)
	}
}

// Wait blocks until all detached pipeline tasks finish. Used on shutdown
// and by tests.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) post(ctx context.Context, channelID, text string) error {
	err := d.sender.PostMessage(ctx, channelID, text)
	if err == nil {
		metrics.Counter(metrics.MetricChatMessages, nil)
	}
	return err
}

// formatPresenceMessage renders the follow-up report, mentioning each
// present user by their platform identity.
func formatPresenceMessage(result *presence.Result) string {
	if len(result.PresentUsers) == 0 {
		return presence.NobodyPresentMessage()
	}
	mentions := make([]string, len(result.PresentUsers))
	for i, user := range result.PresentUsers {
		mentions[i] = fmt.Sprintf("<@%s>", user.ID)
	}
	return "オフィスにいるのは：" + strings.Join(mentions, "、")
}
