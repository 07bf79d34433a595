package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jgivc/emojifetch/internal/adapter/catalog"
	"github.com/jgivc/emojifetch/internal/adapter/report"
	fetchclient "github.com/jgivc/emojifetch/internal/client/fetch"
	"github.com/jgivc/emojifetch/internal/config"
	"github.com/jgivc/emojifetch/internal/entity"
	"github.com/jgivc/emojifetch/internal/repository/outcome"
	srvfetch "github.com/jgivc/emojifetch/internal/service/fetch"
	"github.com/jgivc/emojifetch/internal/storage/image"
	"github.com/jgivc/emojifetch/internal/util"
	"github.com/redis/go-redis/v9"
)

const (
	redisTimeout = 3 * time.Second
)

type App struct {
	cfgPath string
	cfg     *config.Config
	out     io.Writer
	rdb     *redis.Client
	log     *slog.Logger
}

func New(cfgPath string) *App {
	return &App{
		cfgPath: cfgPath,
		out:     os.Stdout,
	}
}

// Run performs one batch. Only a broken output dir or catalog is returned as an error.
func (a *App) Run(ctx context.Context) error {
	a.cfg = config.MustLoad(a.cfgPath)
	a.log = newLogger(a.cfg.LogLevel, os.Stderr)

	return a.run(ctx)
}

func (a *App) run(ctx context.Context) error {
	log := a.log

	defer a.closeJournal()

	svc := srvfetch.NewBatchService(
		a.cfg.CatalogPath,
		catalog.NewCatalogAdapter(log),
		image.NewImageStorage(a.cfg.OutputDir, log),
		fetchclient.NewHTTPClient(a.cfg.RequestTimeout, log),
		a.journalOpener,
		a.out,
		log,
	)

	summary, err := svc.DownloadImages(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Done. Downloaded: %d, skipped: %d, missing url: %d, failed: %d\n",
		summary.Downloaded, summary.Skipped, summary.Missing, summary.Failed)

	if a.cfg.ReportFileName != "" {
		if err := report.NewReportAdapter(log).Write(a.cfg.ReportFileName, summary); err != nil {
			log.Error("Cannot write report", slog.String("file", a.cfg.ReportFileName), slog.Any("error", err))
		}
	}

	return nil
}

type journalRepository interface {
	srvfetch.OutcomeJournal
	LastRun(ctx context.Context) (*entity.Summary, error)
	FailedKeys(ctx context.Context, runID string) ([]string, error)
}

func (a *App) journalOpener(ctx context.Context) srvfetch.OutcomeJournal {
	if repo := a.openJournal(ctx); repo != nil {
		return repo
	}

	return nil
}

func (a *App) closeJournal() {
	if a.rdb == nil {
		return
	}

	if err := a.rdb.Close(); err != nil {
		a.log.Error("Cannot close redis client", slog.Any("error", err))
	}
	a.rdb = nil
}

// openJournal returns nil when the journal is disabled or redis is unreachable.
func (a *App) openJournal(ctx context.Context) journalRepository {
	if a.cfg.RedisURL == "" {
		return nil
	}

	opt, err := redis.ParseURL(a.cfg.RedisURL)
	if err != nil {
		a.log.Error("Cannot parse redis url, journal disabled", slog.Any("error", err))

		return nil
	}

	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	if _, err := rdb.Ping(pingCtx).Result(); err != nil {
		a.log.Error("Cannot connect to redis, journal disabled", slog.Any("error", err))
		rdb.Close()

		return nil
	}

	catalogPath, err := filepath.Abs(a.cfg.CatalogPath)
	if err != nil {
		catalogPath = a.cfg.CatalogPath
	}

	a.rdb = rdb
	repo := outcome.NewOutcomeRepository(rdb, util.GetIDFromString(catalogPath), a.log)
	a.logLastRun(ctx, repo)

	return repo
}

func (a *App) logLastRun(ctx context.Context, repo journalRepository) {
	last, err := repo.LastRun(ctx)
	if err != nil {
		if !errors.Is(err, outcome.ErrRunNotFound) {
			a.log.Error("Cannot get last run", slog.Any("error", err))
		}

		return
	}

	failed, err := repo.FailedKeys(ctx, last.RunID)
	if err != nil {
		a.log.Error("Cannot get failed entries", slog.String("run_id", last.RunID), slog.Any("error", err))
	}

	a.log.Info("Last run",
		slog.String("run_id", last.RunID),
		slog.Time("finished", last.Finished),
		slog.Int("downloaded", last.Downloaded),
		slog.Int("failed", last.Failed),
		slog.Any("retry", failed),
	)
}

func newLogger(level string, w io.Writer) *slog.Logger {
	lo := &slog.HandlerOptions{}
	switch level {
	case config.LogLevelInfo:
		lo.Level = slog.LevelInfo
	case config.LogLevelWarn:
		lo.Level = slog.LevelWarn
	case config.LogLevelError:
		lo.Level = slog.LevelError
	case config.LogLevelDebug:
		lo.Level = slog.LevelDebug
	default:
		panic("unknown log level")
	}

	return slog.New(slog.NewTextHandler(w, lo))
}
