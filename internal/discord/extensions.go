package discord

import (
	"time"

	"github.com/keshon/appcmd/internal/commands/core"
	"github.com/keshon/appcmd/internal/commands/docs"
	"github.com/keshon/appcmd/internal/config"
	"github.com/keshon/appcmd/internal/middleware"
	"github.com/keshon/appcmd/internal/storage"
	"github.com/keshon/appcmd/pkg/appcmd"
	"github.com/keshon/appcmd/pkg/retrylimit"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Middlewares returns the chain every command runs through, outermost first.
func Middlewares(cfg *config.Config, store *storage.Storage, log zerolog.Logger) []appcmd.Middleware {
	return []appcmd.Middleware{
		appcmd.WithRecover(),
		appcmd.WithCommandLog(log, store),
		appcmd.WithGuildOnly(),
		middleware.WithDisabledCheck(store, log),
		middleware.WithUserPermissionCheck(cfg.DeveloperID),
	}
}

// ClientOptions configures a client the way the bot runs it.
func ClientOptions(cfg *config.Config, store *storage.Storage, log zerolog.Logger) []appcmd.ClientOption {
	limit := rate.Limit(cfg.RegisterRate)
	limiter := retrylimit.NewAdaptiveLimiter(limit, 1, limit*4, 1, 0.5)
	return []appcmd.ClientOption{
		appcmd.WithLogger(log),
		appcmd.WithMiddleware(Middlewares(cfg, store, log)...),
		appcmd.WithSyncOnReady(cfg.SyncOnReady),
		appcmd.WithSyncOptions(appcmd.WithRateLimiter(limiter)),
		appcmd.WithSyncObserver(func(report *appcmd.SyncReport, err error) {
			if rerr := store.RecordSync(report, err); rerr != nil {
				log.Error().Err(rerr).Msg("failed to record sync")
			}
		}),
	}
}

// Extensions returns the bundled extensions. latency may be nil.
func Extensions(cfg *config.Config, catalog core.Catalog, store *storage.Storage, latency func() time.Duration, log zerolog.Logger) ([]appcmd.Extension, error) {
	sites, err := docs.ParseSites(cfg.DocsIndex)
	if err != nil {
		return nil, err
	}
	scope := appcmd.GuildScope(cfg.DevGuildIDs...)

	coreOpts := []core.Option{core.WithScope(scope)}
	if latency != nil {
		coreOpts = append(coreOpts, core.WithLatency(latency))
	}
	return []appcmd.Extension{
		core.New(catalog, store, coreOpts...),
		docs.New(sites,
			docs.WithScope(scope),
			docs.WithLogger(log.With().Str("extension", "docs").Logger()),
		),
	}, nil
}
