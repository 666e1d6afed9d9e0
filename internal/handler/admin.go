package handler

import (
	"net/http"
	"strconv"

	"clinicapos/internal/apierror"
	"clinicapos/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// DLQ lists parked notification jobs (?limit=, default 50). With
// ?requeue=true it moves them back onto the live queue instead.
func DLQ(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if c.Query("requeue") == "true" {
			n, err := worker.Requeue(ctx, rdb, worker.QueueNotificaciones)
			if err != nil {
				respondError(c, apierror.ErrInternal.Wrap(err))
				return
			}
			c.JSON(http.StatusOK, gin.H{"reencolados": n})
			return
		}

		limit, err := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
		if err != nil || limit < 1 || limit > 500 {
			respondError(c, apierror.ErrBadRequest.WithDetail("limit", c.Query("limit")))
			return
		}
		entries, err := worker.ListDLQ(ctx, rdb, worker.QueueNotificaciones, limit)
		if err != nil {
			respondError(c, apierror.ErrInternal.Wrap(err))
			return
		}
		c.JSON(http.StatusOK, entries)
	}
}
