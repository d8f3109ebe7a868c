package route

import (
	"log"
	"strings"

	"backend-bikerental/internal/config"

	"github.com/redis/go-redis/v9"
)

// FromConfig wires a planner from configuration. ROUTING_PROVIDER selects
// "routes" (Routes API v2, the default) or "directions". A provider that
// cannot be built leaves the planner in simulated mode.
func FromConfig(cfg config.Config, redisClient *redis.Client) *Planner {
	client := NewHTTPClient(cfg.HTTPConnectTimeout, cfg.HTTPReadTimeout)

	var provider Provider
	switch strings.ToLower(cfg.RoutingProvider) {
	case "directions":
		p, err := NewDirectionsProvider(cfg.MapsAPIKey, cfg.DirectionsBaseURL, client)
		if err != nil {
			log.Printf("route planner: %v", err)
		} else {
			provider = p
		}
	default:
		provider = NewRoutesProvider(cfg.MapsAPIKey, cfg.RoutesBaseURL, client)
	}

	return NewPlanner(provider, NewCache(redisClient, cfg.RouteCacheTTL), PlannerConfig{
		APIKey:  cfg.MapsAPIKey,
		Live:    cfg.Production(),
		Timeout: cfg.RouteTimeout,
	})
}
