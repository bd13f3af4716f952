// Package poller periodically re-checks registered file watches for new
// commits, as the fallback path for repositories without webhooks.
package poller

import (
	"context"
	"log/slog"
	"time"

	"github.com/apitest/gitbridge/internal/integrations/github"
	"github.com/apitest/gitbridge/internal/store"
)

// Poller drives the polling change-detection path: per stored watch it
// resolves the latest commit touching the watched path and, when that commit
// is new, extracts its added lines.
type Poller struct {
	store    store.Store
	client   *github.Client
	interval time.Duration
	logger   *slog.Logger
}

// New creates a new Poller.
func New(st store.Store, client *github.Client, interval time.Duration, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		store:    st,
		client:   client,
		interval: interval,
		logger:   logger,
	}
}

// Run polls on the configured interval until the context is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("poller started", "interval", p.interval.String())

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return ctx.Err()
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick processes every registered watch once. Per-watch failures are
// isolated: one broken watch never blocks the rest.
func (p *Poller) Tick(ctx context.Context) {
	watches, err := p.store.Watches().List(ctx)
	if err != nil {
		p.logger.Error("failed to list watches", "error", err)
		return
	}

	for _, watch := range watches {
		if err := p.checkWatch(ctx, watch.ID); err != nil {
			p.logger.Error("watch check failed", "watch_id", watch.ID, "error", err)
		}
	}
}

func (p *Poller) checkWatch(ctx context.Context, id string) error {
	watch, err := p.store.Watches().Get(ctx, id)
	if err != nil {
		return err
	}
	if watch == nil {
		return nil
	}

	sha, err := p.client.LatestCommitSHAForPath(ctx, watch.OAuthToken, watch.Owner, watch.Repo, watch.Branch, watch.Path)
	if err != nil {
		return err
	}
	if sha == "" || sha == watch.LastCommitSHA {
		return nil
	}

	lines, err := p.client.AddedLinesForPath(ctx, watch.OAuthToken, watch.Owner, watch.Repo, sha, watch.Path)
	if err != nil {
		return err
	}

	p.logger.Info("change detected",
		"watch_id", watch.ID,
		"repository", watch.Owner+"/"+watch.Repo,
		"ref", watch.Branch,
		"path", watch.Path,
		"sha", sha,
		"added_lines", len(lines),
	)
	for _, line := range lines {
		p.logger.Debug("added line", "watch_id", watch.ID, "sha", sha, "line", line)
	}

	return p.store.Watches().UpdateLastCommitSHA(ctx, watch.ID, sha)
}
