package telegram

import (
	"context"
	"log/slog"
	"time"
)

// HandlerFunc processes one inbound update. The poller dispatches each
// update on its own goroutine with a bounded context.
type HandlerFunc func(ctx context.Context, update Update)

// HandleTimeout bounds the processing of one update. In-process claim
// locks must live at least this long: a lock reaped while its handler
// is still running would let a same-user double-tap claim twice.
const HandleTimeout = 30 * time.Second

type Poller struct {
	client        *Client
	handler       HandlerFunc
	pollTimeout   int
	handleTimeout time.Duration
}

func NewPoller(client *Client, handler HandlerFunc) *Poller {
	return &Poller{
		client:        client,
		handler:       handler,
		pollTimeout:   50,
		handleTimeout: HandleTimeout,
	}
}

// Run long-polls until ctx is canceled. Poll failures back off and
// retry; a failing transport never brings the process down.
func (p *Poller) Run(ctx context.Context) error {
	slog.Info("Update poller started",
		slog.String("type", "tg"),
		slog.Int("poll_timeout", p.pollTimeout))

	var offset int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		updates, err := p.client.GetUpdates(ctx, offset, p.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Error("getUpdates failed",
				slog.String("type", "tg"),
				slog.Any("error", err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(3 * time.Second):
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			go func(u Update) {
				hctx, cancel := context.WithTimeout(ctx, p.handleTimeout)
				defer cancel()
				p.handler(hctx, u)
			}(update)
		}
	}
}
