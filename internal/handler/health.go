package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Check probes one dependency.
type Check func(ctx context.Context) error

func DBCheck(db *gorm.DB) Check {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

func RedisCheck(rdb *redis.Client) Check {
	return func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
}

// Health reports each dependency as "connected" or "error" and answers 503
// if any probe fails. The SMTP breaker state is informative only; an open
// breaker delays notifications but does not make the API unhealthy.
func Health(checks map[string]Check, breakerState func() string) gin.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		body := gin.H{}
		status := http.StatusOK
		for _, name := range names {
			if checks[name](ctx) != nil {
				body[name] = "error"
				status = http.StatusServiceUnavailable
				continue
			}
			body[name] = "connected"
		}
		if breakerState != nil {
			body["smtp_breaker"] = breakerState()
		}
		body["ok"] = status == http.StatusOK
		c.JSON(status, body)
	}
}
