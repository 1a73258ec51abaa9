package dependency_container

import (
	"context"
	"errors"

	"github.com/NeuralTrust/CareGuard/pkg/handlers/http/response"
	"github.com/NeuralTrust/CareGuard/pkg/server"
)

var errNoSnapshot = errors.New("no dictionary snapshot loaded")

// HealthChecks lists the readiness probes for this container. The store
// probe only exists for the postgres driver.
func (c *Container) HealthChecks() []server.HealthCheck {
	checks := []server.HealthCheck{
		{
			Name: "dictionary",
			Check: func(context.Context) (interface{}, error) {
				snap := c.Dictionary.Current()
				if snap == nil {
					return nil, errNoSnapshot
				}
				return response.NewDictionaryOutput(snap, "", false), nil
			},
		},
		{
			Name: "redis",
			Check: func(ctx context.Context) (interface{}, error) {
				return nil, c.Cache.RedisClient().Ping(ctx).Err()
			},
		},
	}
	if c.DB != nil {
		checks = append(checks, server.HealthCheck{
			Name: "store",
			Check: func(ctx context.Context) (interface{}, error) {
				return nil, c.DB.Ping(ctx)
			},
		})
	}
	return checks
}
