package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/sachero10/backend-tienda-ropa/internal/infra"
	"github.com/sachero10/backend-tienda-ropa/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health checks DB and Redis connectivity and reports the mailer circuit and
// dead-letter backlog. Redis and mailer are optional; only the database is
// required for a 200.
func Health(db *gorm.DB, rdb *redis.Client, mailer *infra.Mailer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		body := gin.H{}

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}
		body["db"] = dbStatus

		if rdb == nil {
			body["redis"] = "disabled"
		} else if rdb.Ping(ctx).Err() != nil {
			body["redis"] = "error"
		} else {
			body["redis"] = "connected"
			if n, err := worker.NewDeadLetters(rdb).Len(ctx, worker.QueueSales); err == nil {
				body["dead_letters"] = n
			}
		}

		if mailer.Enabled() {
			body["mailer"] = mailer.BreakerState().String()
		} else {
			body["mailer"] = "disabled"
		}

		status := http.StatusOK
		if dbStatus != "connected" {
			status = http.StatusServiceUnavailable
		}
		body["ok"] = status == http.StatusOK
		c.JSON(status, body)
	}
}
