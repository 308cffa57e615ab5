package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
)

// Dispatcher tries engines in order, escalating to the next tier when the
// current one fails, and remembers per domain which tier worked last.
//
// Escalation is strictly sequential, never a race: a scrape run hits the
// same site dozens of times in a row, and firing a browser and a
// fingerprinted HTTP request at the same URL concurrently would double the
// request volume and present two different client identities to one
// session. Remembered engines skip the tiers below them on later fetches
// to the same domain.
type Dispatcher struct {
	engines []Engine
	memory  *DomainMemory
}

// NewDispatcher creates a Dispatcher. Engines must be ordered cheapest
// first; memory may be nil to disable per-domain stickiness.
func NewDispatcher(engines []Engine, memory *DomainMemory) *Dispatcher {
	return &Dispatcher{engines: engines, memory: memory}
}

func (d *Dispatcher) Name() string { return "dispatcher" }

// Fetch implements Engine by walking the escalation ladder.
func (d *Dispatcher) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	domain := extractDomain(req.URL)

	start := 0
	if d.memory != nil {
		if remembered := d.memory.Get(domain); remembered != "" {
			for i, eng := range d.engines {
				if eng.Name() == remembered {
					start = i
					slog.Debug("domain memory hit", "domain", domain, "engine", remembered)
					break
				}
			}
		}
	}

	var lastErr error
	for i := start; i < len(d.engines); i++ {
		eng := d.engines[i]
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := eng.Fetch(ctx, req)
		if err == nil {
			if d.memory != nil {
				d.memory.Set(domain, eng.Name())
			}
			return result, nil
		}
		lastErr = err

		if i+1 < len(d.engines) {
			slog.Info("engine failed, escalating",
				"engine", eng.Name(),
				"next", d.engines[i+1].Name(),
				"url", req.URL,
				"error", err,
			)
		}
		// The remembered tier stopped working; forget it so the next fetch
		// starts from the bottom again.
		if d.memory != nil && i == start && start > 0 {
			d.memory.Delete(domain)
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("dispatcher: no engines configured for %s", req.URL)
	}
	return nil, lastErr
}

// extractDomain parses the hostname from a URL string.
func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
