package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/farehunter/pkg/logger"
	"github.com/Domenick1991/farehunter/pkg/metrics"
)

// ErrNotConfigured is returned by a channel whose credentials are missing.
var ErrNotConfigured = errors.New("notification channel not configured")

// Message is one report ready for delivery. Channels with a size limit send
// Short instead of Body.
type Message struct {
	Subject        string
	Body           string
	Short          string
	AttachmentName string
	Attachment     []byte
}

type Notifier interface {
	Channel() string
	Send(ctx context.Context, msg Message) error
}

// Dispatcher fans a message out to every channel. One channel failing does not
// stop the others.
type Dispatcher struct {
	notifiers []Notifier
	logger    logger.Logger
	metrics   *metrics.Metrics
}

func NewDispatcher(log logger.Logger, m *metrics.Metrics, notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{
		notifiers: notifiers,
		logger:    log.With("component", "notify"),
		metrics:   m,
	}
}

func (d *Dispatcher) Len() int {
	return len(d.notifiers)
}

// Send reports the joined errors of the channels that failed. Unconfigured
// channels are skipped with a warning.
func (d *Dispatcher) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range d.notifiers {
		err := n.Send(ctx, msg)
		switch {
		case err == nil:
			d.count(n.Channel(), "sent")
			d.logger.Info("report sent", "channel", n.Channel(), "subject", msg.Subject)
		case errors.Is(err, ErrNotConfigured):
			d.count(n.Channel(), "skipped")
			d.logger.Warn("channel not configured", "channel", n.Channel(), "error", err)
		default:
			d.count(n.Channel(), "failed")
			d.logger.Error("report delivery failed", "channel", n.Channel(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", n.Channel(), err))
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) count(channel, outcome string) {
	if d.metrics != nil {
		d.metrics.Notifications.WithLabelValues(channel, outcome).Inc()
	}
}
