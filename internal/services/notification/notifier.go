// Package notification fans a message out to independent delivery channels.
// Each channel succeeds or fails on its own; a failing channel never stops
// the others.
package notification

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Channel names a delivery channel
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
)

var ErrChannelNotConfigured = errors.New("notification channel not configured")

// Notification is one message to deliver. An empty Channels list means every
// configured channel. Recipients are email addresses; Tokens are push device
// tokens.
type Notification struct {
	Recipients []string          `json:"recipients,omitempty"`
	Tokens     []string          `json:"tokens,omitempty"`
	Subject    string            `json:"subject" binding:"required"`
	Body       string            `json:"message" binding:"required"`
	Location   string            `json:"location"`
	Channels   []Channel         `json:"channels,omitempty"`
	Data       map[string]string `json:"data,omitempty"`
}

// Sender delivers notifications over one channel
type Sender interface {
	Channel() Channel
	Send(ctx context.Context, n Notification) error
}

// Result is the outcome of one channel
type Result struct {
	Channel   Channel `json:"channel"`
	Delivered bool    `json:"delivered"`
	Error     string  `json:"error,omitempty"`
}

// Report collects the per-channel results of a Notify call
type Report struct {
	Results []Result `json:"results"`
}

// Delivered reports whether at least one channel succeeded
func (r Report) Delivered() bool {
	for _, res := range r.Results {
		if res.Delivered {
			return true
		}
	}
	return false
}

// Failed lists the channels that did not deliver
func (r Report) Failed() []Channel {
	var out []Channel
	for _, res := range r.Results {
		if !res.Delivered {
			out = append(out, res.Channel)
		}
	}
	return out
}

// Notifier is the fan-out over the configured senders
type Notifier struct {
	senders map[Channel]Sender
	timeout time.Duration
	logger  zerolog.Logger
}

func NewNotifier(timeout time.Duration, logger zerolog.Logger, senders ...Sender) *Notifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	n := &Notifier{
		senders: make(map[Channel]Sender, len(senders)),
		timeout: timeout,
		logger:  logger,
	}
	for _, s := range senders {
		n.senders[s.Channel()] = s
	}
	return n
}

// Channels lists the configured channels, sorted by name
func (n *Notifier) Channels() []Channel {
	out := make([]Channel, 0, len(n.senders))
	for c := range n.senders {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Notify delivers msg on every requested channel concurrently, each bounded
// by the notifier timeout, and reports every channel's outcome.
func (n *Notifier) Notify(ctx context.Context, msg Notification) Report {
	channels := msg.Channels
	if len(channels) == 0 {
		channels = n.Channels()
	}

	results := make([]Result, len(channels))

	// errgroup without WithContext: one channel's failure must not cancel the rest
	var g errgroup.Group
	for i, ch := range channels {
		g.Go(func() error {
			results[i] = n.deliver(ctx, ch, msg)
			return nil
		})
	}
	g.Wait()

	return Report{Results: results}
}

func (n *Notifier) deliver(ctx context.Context, ch Channel, msg Notification) Result {
	res := Result{Channel: ch}
	logger := n.logger.With().Str("channel", string(ch)).Str("subject", msg.Subject).Logger()

	sender, ok := n.senders[ch]
	if !ok {
		res.Error = ErrChannelNotConfigured.Error()
		logger.Warn().Msg("Notification channel not configured")
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in %s sender: %v", ch, r)
			}
		}()
		return sender.Send(ctx, msg)
	}()
	if err != nil {
		res.Error = err.Error()
		logger.Error().Err(err).Msg("❌ Notification delivery failed")
		return res
	}

	res.Delivered = true
	logger.Info().Str("location", msg.Location).Msg("📣 Notification delivered")
	return res
}
