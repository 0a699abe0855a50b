package portal

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/prajeetp/bhbatch/pkg/abort"
	"github.com/prajeetp/bhbatch/pkg/batch"
	"github.com/prajeetp/bhbatch/pkg/client"
	"github.com/prajeetp/bhbatch/pkg/htmltable"
)

// Retriever runs portal searches and normalizes the returned HTML tables.
// Single searches go through the pooled client directly; multi-IP retrieval
// fans out through the batch executor.
type Retriever struct {
	client *client.Client
	exec   *batch.Executor
	retry  client.RetryConfig
	logger zerolog.Logger
}

func NewRetriever(c *client.Client, cfg batch.Config) *Retriever {
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = client.DefaultRetryConfig()
	}
	return &Retriever{
		client: c,
		exec:   batch.NewExecutor(c, cfg),
		retry:  cfg.Retry,
		logger: log.With().Str("component", "retriever").Logger(),
	}
}

// Search runs one filtered search and returns the normalized table rows.
func (r *Retriever) Search(ctx context.Context, f SearchFilters, sig *abort.Signal) ([]htmltable.Row, error) {
	endpoint, method, payload := buildSearchQuery(f)

	r.logger.Debug().
		Str("endpoint", endpoint).
		Str("searchby", payload.Get("searchby")).
		Msg("Running search")

	var out client.Outcome
	if method == http.MethodGet {
		out = r.client.GetWithRetry(ctx, endpoint, payload, r.retry, sig)
	} else {
		out = r.client.PostWithRetry(ctx, endpoint, nil, payload, r.retry, sig)
	}
	if !out.Succeeded {
		if out.Err != nil {
			return nil, fmt.Errorf("search %s: %w", endpoint, out.Err)
		}
		return nil, fmt.Errorf("search %s: status %d", endpoint, out.StatusCode)
	}
	return htmltable.Normalize(out.Body), nil
}

// IPSearchResult is the outcome of one per-IP search within a bulk retrieval.
type IPSearchResult struct {
	IP        string
	Succeeded bool
	Aborted   bool
	Attempts  int
	Rows      []htmltable.Row
	Err       string
}

// SearchIPs retrieves records for every IP in the list concurrently. CIDR
// values are searched as-is; bare addresses are stripped of any /32 suffix
// first. Results come back in the order the IPs were given.
func (r *Retriever) SearchIPs(ctx context.Context, ips []string, view string, sig *abort.Signal) []IPSearchResult {
	if len(ips) == 0 {
		return nil
	}

	ops := make([]batch.Operation, len(ips))
	for i, ip := range ips {
		query := ip
		if !IsCIDR(ip) {
			query = SanitizeIPForSearch(ip)
		}
		ops[i] = searchOperation(ip, SearchFilters{IPAddress: query, View: view})
	}

	results := r.exec.Run(ctx, ops, sig)
	out := make([]IPSearchResult, len(results))
	for i, res := range results {
		ir := IPSearchResult{
			IP:        res.TargetID,
			Succeeded: res.Succeeded,
			Aborted:   res.Aborted,
			Attempts:  res.Attempts,
		}
		if res.Succeeded {
			ir.Rows = htmltable.Normalize(res.Body)
		} else {
			ir.Err = res.Body
		}
		out[i] = ir
	}
	return out
}
