package portal

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/prajeetp/bhbatch/pkg/abort"
	"github.com/prajeetp/bhbatch/pkg/batch"
	"github.com/prajeetp/bhbatch/pkg/client"
)

// Updater applies per-record actions to existing blackholes: description,
// auto-close time, ticket association and immediate close. Each action is a
// form POST to view.cgi?id=<record>; bulk variants fan out through the batch
// executor.
type Updater struct {
	client *client.Client
	exec   *batch.Executor
	retry  client.RetryConfig
	logger zerolog.Logger
}

func NewUpdater(c *client.Client, cfg batch.Config) *Updater {
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = client.DefaultRetryConfig()
	}
	return &Updater{
		client: c,
		exec:   batch.NewExecutor(c, cfg),
		retry:  cfg.Retry,
		logger: log.With().Str("component", "updater").Logger(),
	}
}

// ViewDetails fetches the record page for one blackhole ID.
func (u *Updater) ViewDetails(ctx context.Context, id string, sig *abort.Signal) (string, error) {
	out := u.client.GetWithRetry(ctx, endpointView, url.Values{"id": {id}}, u.retry, sig)
	if !out.Succeeded {
		if out.Err != nil {
			return "", fmt.Errorf("view id=%s: %w", id, out.Err)
		}
		return "", fmt.Errorf("view id=%s: status %d", id, out.StatusCode)
	}
	return out.Body, nil
}

// SetDescription replaces the description on every listed record.
func (u *Updater) SetDescription(ctx context.Context, ids []string, description string, sig *abort.Signal) []batch.Result {
	return u.run(ctx, "description", ids, sig, func(id string) url.Values {
		return url.Values{
			"id":          {id},
			"action":      {"description"},
			"description": {description},
			"Set":         {"Set"},
		}
	})
}

// SetAutoclose sets the auto-close time on every listed record. An empty
// closeText clears the auto-close.
func (u *Updater) SetAutoclose(ctx context.Context, ids []string, closeText string, sig *abort.Signal) []batch.Result {
	return u.run(ctx, "autoclose", ids, sig, func(id string) url.Values {
		return url.Values{
			"id":                  {id},
			"action":              {"autoclose"},
			"close_text":          {closeText},
			"Set auto-close time": {"Set auto-close time"},
		}
	})
}

// AssociateTicket links every listed record to a ticket.
func (u *Updater) AssociateTicket(ctx context.Context, ids []string, ticketSystem, ticketNumber string, sig *abort.Signal) []batch.Result {
	system := NormalizeTicketSystem(ticketSystem)
	return u.run(ctx, "ticket", ids, sig, func(id string) url.Values {
		return url.Values{
			"id":                    {id},
			"action":                {"ticket"},
			"ticket_system":         {system},
			"ticket_number":         {ticketNumber},
			"Associate with ticket": {"Associate with ticket"},
		}
	})
}

// CloseNow closes every listed record immediately.
func (u *Updater) CloseNow(ctx context.Context, ids []string, sig *abort.Signal) []batch.Result {
	return u.run(ctx, "close", ids, sig, func(id string) url.Values {
		return url.Values{
			"id":        {id},
			"action":    {"close"},
			"Close Now": {"Close Now"},
		}
	})
}

func (u *Updater) run(ctx context.Context, action string, ids []string, sig *abort.Signal, form func(id string) url.Values) []batch.Result {
	if len(ids) == 0 {
		return nil
	}

	u.logger.Info().
		Str("action", action).
		Int("records", len(ids)).
		Msg("Running bulk update")

	ops := make([]batch.Operation, len(ids))
	for i, id := range ids {
		ops[i] = batch.Operation{
			TargetID: id,
			Kind:     batch.KindUpdate,
			Method:   http.MethodPost,
			Endpoint: endpointView,
			Params:   url.Values{"id": {id}},
			Form:     form(id),
		}
	}
	return u.exec.Run(ctx, ops, sig)
}
