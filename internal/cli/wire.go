package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/ppiankov/wikipub/internal/cache"
	"github.com/ppiankov/wikipub/internal/logging"
	"github.com/ppiankov/wikipub/internal/metrics"
	"github.com/ppiankov/wikipub/internal/model"
	"github.com/ppiankov/wikipub/internal/pipeline"
	"github.com/ppiankov/wikipub/internal/prompt"
	"github.com/ppiankov/wikipub/internal/wiki"
)

// stores are the live wiki connections of one command
type stores struct {
	pages *wiki.Pages
	items wiki.ItemStore
	raw   *wiki.Items
}

// connect builds the API client and the page and item stores. The item store
// is wrapped in a dry run when writes are disabled, and logged in when a bot
// username is configured.
func connect(ctx context.Context, cfg *model.Config, m *metrics.Metrics, log zerolog.Logger) (*stores, error) {
	limiter := wiki.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	client, err := wiki.NewClient(cfg.HTTP, limiter, m, log)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	var pageCache cache.Cache
	if cfg.Cache.Enabled {
		pageCache = cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
	}

	s := &stores{
		pages: wiki.NewPages(client, cfg.Wiki.SourceAPI, pageCache, cfg.Cache.DiskTTL, log),
		raw:   wiki.NewItems(client, cfg.Wiki, log),
	}
	s.items = s.raw

	if cfg.Auth.Username != "" && !cfg.Session.DryRun {
		if err := s.raw.Login(ctx, cfg.Auth.Username, cfg.Auth.Password); err != nil {
			return nil, fmt.Errorf("login as %s: %w", cfg.Auth.Username, err)
		}
		log.Info().Str("user", cfg.Auth.Username).Msg("logged in")
	}
	if cfg.Session.DryRun {
		s.items = wiki.NewDryRun(s.raw, log)
	}
	return s, nil
}

// responder picks the terminal when someone is there to answer. Without a
// terminal every edit is declined unless the run started in apply-all mode.
func responder(cfg *model.Config) (pipeline.Responder, pipeline.Opener) {
	if cfg.Session.Interactive && logging.IsTerminal(os.Stdin) && logging.IsTerminal(os.Stderr) {
		return prompt.NewTerminal(cfg.Template.Name), prompt.Browser{}
	}
	return prompt.Auto{Answer: model.AnswerNo}, prompt.Printer{W: os.Stderr}
}
