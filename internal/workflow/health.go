package workflow

import (
	"context"

	"epub2audio/internal/stage"
)

// Health reports the readiness of every configured stage in pipeline order.
func (p *Pipeline) Health(ctx context.Context) []stage.Health {
	results := make([]stage.Health, 0, len(p.stages))
	for _, stg := range p.stages {
		if stg.handler == nil {
			results = append(results, stage.Unhealthy(stg.name, "handler not configured"))
			continue
		}
		health := stg.handler.HealthCheck(ctx)
		if health.Name == "" {
			health.Name = stg.name
		}
		results = append(results, health)
	}
	return results
}
