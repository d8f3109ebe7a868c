package route

import (
	"context"
	"fmt"
	"log"
	"time"
)

type PlannerConfig struct {
	APIKey string
	// Live enables provider calls; outside production every request is
	// answered by the simulator.
	Live bool
	// Timeout bounds planning for one HTTP request. Zero means no deadline.
	Timeout time.Duration
}

// Planner answers route requests from the live provider when it can and
// from the simulator otherwise.
type Planner struct {
	provider  Provider
	cache     *Cache
	simulator Simulator
	cfg       PlannerConfig
}

func NewPlanner(provider Provider, cache *Cache, cfg PlannerConfig) *Planner {
	return &Planner{provider: provider, cache: cache, cfg: cfg}
}

// Plan never fails for provider problems; those degrade to simulated routes.
// The only error returned is the context's when the caller gives up.
func (p *Planner) Plan(ctx context.Context, req Request) (Result, error) {
	req.Mode = ParseMode(string(req.Mode))
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	switch {
	case !ValidAPIKey(p.cfg.APIKey):
		return p.simulated(req, "no valid api key"), nil
	case p.provider == nil:
		return p.simulated(req, "no provider configured"), nil
	case !p.cfg.Live:
		return p.simulated(req, "non-production environment"), nil
	}

	if routes, ok := p.cache.Get(ctx, req); ok {
		return Result{Source: SourceLive, Provider: p.provider.Name(), Cached: true, Routes: routes}, nil
	}

	routes, err := p.provider.Routes(ctx, req)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{}, ctxErr
	}
	if err != nil {
		return p.simulated(req, fmt.Sprintf("provider error: %v", err)), nil
	}
	if len(routes) == 0 {
		return p.simulated(req, "provider returned no routes"), nil
	}

	p.cache.Set(ctx, req, routes)
	return Result{Source: SourceLive, Provider: p.provider.Name(), Routes: routes}, nil
}

// RequestContext derives the context an HTTP request plans under.
func (p *Planner) RequestContext(parent context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, p.cfg.Timeout)
}

func (p *Planner) simulated(req Request, reason string) Result {
	name := "none"
	if p.provider != nil {
		name = p.provider.Name()
	}
	log.Printf("route planner: simulated routes (provider=%s key=%s mode=%s): %s",
		name, MaskAPIKey(p.cfg.APIKey), req.Mode, reason)
	return Result{
		Source:   SourceSimulated,
		Provider: "simulator",
		Reason:   reason,
		Routes:   p.simulator.Routes(req),
	}
}
