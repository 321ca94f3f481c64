package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gatherly/web/internal/middleware"
	pkgcron "github.com/gatherly/web/internal/pkg/cron"
	pkgredis "github.com/gatherly/web/internal/pkg/redis"
	"github.com/gatherly/web/internal/session"
)

// Session records untouched for this long are considered abandoned.
const staleSessionAge = 30 * 24 * time.Hour

// registerCronJobs registers all scheduled background jobs.
func registerCronJobs(sched *pkgcron.Scheduler, persister session.Persister, rc *pkgredis.Client, logger *zap.Logger) {
	cronLogger := logger.Named("CronService")

	sched.Register(pkgcron.Job{
		Name:        "purge_stale_sessions",
		Description: "Remove session records that have not been verified in 30 days",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			purged, err := persister.PurgeStale(ctx, time.Now().Add(-staleSessionAge))
			if err != nil {
				cronLogger.Warn("purging stale sessions failed", zap.Error(err))
				return err
			}
			cronLogger.Info(fmt.Sprintf("purged %d stale session records", purged))
			return nil
		},
	})

	sched.Register(pkgcron.Job{
		Name:        "purge_listing_cache",
		Description: "Drop cached event listings so out-of-band backend changes surface",
		Interval:    time.Hour,
		Fn: func(ctx context.Context) error {
			deleted, err := middleware.PurgeHTTPCache(ctx, rc.Raw())
			if err != nil {
				cronLogger.Warn("purging listing cache failed", zap.Error(err))
				return err
			}
			if deleted > 0 {
				cronLogger.Info(fmt.Sprintf("purged %d cached responses", deleted))
			}
			return nil
		},
	})
}
