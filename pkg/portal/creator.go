package portal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/prajeetp/bhbatch/pkg/abort"
	"github.com/prajeetp/bhbatch/pkg/batch"
	"github.com/prajeetp/bhbatch/pkg/client"
)

// Markers the portal emits on a successful create. Responses without any of
// them still count as submitted when the status was OK.
var createSuccessMarkers = []string{"successfully created", "blackhole created", "success"}

// CreateRequest describes a bulk blackhole create: one POST to new.cgi per IP.
type CreateRequest struct {
	IPs           []string
	TicketSystem  string
	TicketNumber  string
	AutocloseTime string
	Description   string
}

func (r *CreateRequest) normalize() error {
	if len(r.IPs) == 0 {
		return errors.New("no IPs provided")
	}
	if r.TicketNumber == "" && r.AutocloseTime == "" {
		return errors.New("either ticket number or auto-close time must be provided")
	}
	if r.TicketSystem == "" {
		r.TicketSystem = "NTM-Remedy"
	}
	r.TicketSystem = NormalizeTicketSystem(r.TicketSystem)
	if r.Description == "" && r.TicketNumber != "" {
		r.Description = fmt.Sprintf("CASE #%s", r.TicketNumber)
	}
	return nil
}

// CreateResult reports the outcome of one per-IP create.
type CreateResult struct {
	IP         string
	Succeeded  bool
	Aborted    bool
	StatusCode int
	Attempts   int
	Elapsed    time.Duration
	Message    string
}

// Creator submits blackhole creates through the batch executor.
type Creator struct {
	exec   *batch.Executor
	logger zerolog.Logger
}

func NewCreator(c *client.Client, cfg batch.Config) *Creator {
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = client.DefaultRetryConfig()
	}
	return &Creator{
		exec:   batch.NewExecutor(c, cfg),
		logger: log.With().Str("component", "creator").Logger(),
	}
}

// Submit validates the request and posts one create per IP concurrently.
// Results come back in the same order as req.IPs.
func (c *Creator) Submit(ctx context.Context, req CreateRequest, sig *abort.Signal) ([]CreateResult, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}

	c.logger.Info().
		Int("ips", len(req.IPs)).
		Str("ticket_system", req.TicketSystem).
		Str("ticket_number", req.TicketNumber).
		Msg("Submitting blackhole creates")

	ops := make([]batch.Operation, len(req.IPs))
	for i, ip := range req.IPs {
		ops[i] = batch.Operation{
			TargetID: ip,
			Kind:     batch.KindCreate,
			Method:   http.MethodPost,
			Endpoint: endpointNew,
			Form: url.Values{
				"ipaddress":      {ip},
				"ticket_system":  {req.TicketSystem},
				"ticket_number":  {req.TicketNumber},
				"autoclose_time": {req.AutocloseTime},
				"description":    {req.Description},
			},
		}
	}

	results := c.exec.Run(ctx, ops, sig)
	out := make([]CreateResult, len(results))
	for i, res := range results {
		out[i] = CreateResult{
			IP:         res.TargetID,
			Succeeded:  res.Succeeded,
			Aborted:    res.Aborted,
			StatusCode: res.StatusCode,
			Attempts:   res.Attempts,
			Elapsed:    res.Elapsed,
			Message:    createMessage(res),
		}
	}
	return out, nil
}

func createMessage(res batch.Result) string {
	switch {
	case res.Aborted:
		return "aborted"
	case !res.Succeeded:
		if res.StatusCode > 0 {
			return fmt.Sprintf("failed with status %d after %d attempts", res.StatusCode, res.Attempts)
		}
		return res.Body
	}
	body := strings.ToLower(res.Body)
	for _, marker := range createSuccessMarkers {
		if strings.Contains(body, marker) {
			return "blackhole created successfully"
		}
	}
	return "submitted (no error detected)"
}
