package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jgivc/emojifetch/internal/common"
	"github.com/jgivc/emojifetch/internal/entity"
)

const (
	DefaultExtension = ".png"
)

type CatalogLoader interface {
	Load(path string) (*entity.Catalog, error)
}

type ImageStorage interface {
	EnsureDir() error
	Path(fileName string) string
	Exists(fileName string) (bool, error)
	Write(fileName string, r io.Reader) (int64, error)
}

type Fetcher interface {
	Open(ctx context.Context, url string) (io.ReadCloser, error)
}

type OutcomeJournal interface {
	Begin(ctx context.Context, summary *entity.Summary) error
	Record(ctx context.Context, runID string, outcome *entity.Outcome) error
	Finish(ctx context.Context, summary *entity.Summary) error
}

// JournalOpener connects the journal. It is called only after the catalog
// is loaded and may return nil to run without one.
type JournalOpener func(ctx context.Context) OutcomeJournal

type BatchService struct {
	catalogPath string
	loader      CatalogLoader
	store       ImageStorage
	fetcher     Fetcher
	openJournal JournalOpener
	out         io.Writer
	log         *slog.Logger
}

// NewBatchService returns the batch fetcher. openJournal may be nil.
func NewBatchService(catalogPath string, loader CatalogLoader, store ImageStorage, fetcher Fetcher, openJournal JournalOpener, out io.Writer, log *slog.Logger) *BatchService {
	return &BatchService{
		catalogPath: catalogPath,
		loader:      loader,
		store:       store,
		fetcher:     fetcher,
		openJournal: openJournal,
		out:         out,
		log:         log.With(slog.String("item", "BatchService")),
	}
}

// DownloadImages makes one pass over the catalog in file order.
// The output dir is created before the catalog is parsed and the journal is
// opened after it, so a broken catalog never reaches the network. Only the
// first two steps return an error; every entry failure ends up in the summary.
func (s *BatchService) DownloadImages(ctx context.Context) (*entity.Summary, error) {
	summary := &entity.Summary{
		RunID:   uuid.NewString(),
		Started: time.Now(),
	}

	log := s.log.With(slog.String("run_id", summary.RunID))

	if err := s.store.EnsureDir(); err != nil {
		log.Error("Cannot prepare output dir", slog.Any("error", err))

		return nil, fmt.Errorf("cannot prepare output dir: %w", err)
	}

	catalog, err := s.loader.Load(s.catalogPath)
	if err != nil {
		log.Error("Cannot load catalog", slog.String("path", s.catalogPath), slog.Any("error", err))

		return nil, fmt.Errorf("cannot load catalog: %w", err)
	}

	log.Info("Start", slog.String("catalog", s.catalogPath), slog.Int("entries", catalog.Len()))

	var journal OutcomeJournal
	if s.openJournal != nil {
		journal = s.openJournal(ctx)
	}

	if journal != nil {
		if err := journal.Begin(ctx, summary); err != nil {
			log.Error("Cannot begin journal", slog.Any("error", err))
		}
	}

	for _, e := range catalog.Entries {
		outcome := s.ProcessEntry(ctx, e)
		s.report(log, outcome)
		summary.Add(outcome)

		if journal != nil {
			if err := journal.Record(ctx, summary.RunID, outcome); err != nil {
				log.Error("Cannot record outcome", slog.String("key", e.Key), slog.Any("error", err))
			}
		}
	}

	summary.Finished = time.Now()

	if journal != nil {
		if err := journal.Finish(ctx, summary); err != nil {
			log.Error("Cannot finish journal", slog.Any("error", err))
		}
	}

	log.Info("Done",
		slog.Int("downloaded", summary.Downloaded),
		slog.Int("skipped", summary.Skipped),
		slog.Int("missing", summary.Missing),
		slog.Int("failed", summary.Failed),
		slog.Int64("bytes", summary.Bytes),
		slog.Duration("elapsed", summary.Finished.Sub(summary.Started)),
	)

	return summary, nil
}

// ProcessEntry moves one entry to its terminal state. It never returns an error,
// failures are carried by the outcome.
func (s *BatchService) ProcessEntry(ctx context.Context, e *entity.Entry) *entity.Outcome {
	outcome := &entity.Outcome{
		Key:  e.Key,
		Name: e.DisplayName(),
	}

	if e.Image == "" {
		outcome.Kind = entity.OutcomeMissingURL
		outcome.Err = common.ErrMissingURL

		return outcome
	}

	fileName := DeriveFilename(e.Key, e.Image)
	outcome.Path = s.store.Path(fileName)

	exists, err := s.store.Exists(fileName)
	if err != nil {
		outcome.Kind = entity.OutcomeFailed
		outcome.Err = err

		return outcome
	}

	if exists {
		outcome.Kind = entity.OutcomeSkipped

		return outcome
	}

	fmt.Fprintf(s.out, "⬇️ Downloading %s → %s\n", outcome.Name, fileName)

	n, err := s.download(ctx, e.Image, fileName)
	if err != nil {
		outcome.Kind = entity.OutcomeFailed
		outcome.Err = err

		return outcome
	}

	outcome.Kind = entity.OutcomeDownloaded
	outcome.Bytes = n

	return outcome
}

func (s *BatchService) download(ctx context.Context, imageURL, fileName string) (int64, error) {
	body, err := s.fetcher.Open(ctx, imageURL)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	return s.store.Write(fileName, body)
}

func (s *BatchService) report(log *slog.Logger, o *entity.Outcome) {
	switch o.Kind {
	case entity.OutcomeSkipped:
		fmt.Fprintf(s.out, "✅ Skipping (already exists): %s\n", filepath.Base(o.Path))
		log.Debug("Skipped", slog.String("key", o.Key), slog.String("path", o.Path))
	case entity.OutcomeMissingURL:
		fmt.Fprintf(s.out, "⚠️ No image URL for %s\n", o.Name)
		log.Warn("Missing image url", slog.String("key", o.Key))
	case entity.OutcomeFailed:
		fmt.Fprintf(s.out, "❌ Failed to download %s: %s\n", o.Name, o.Err)
		log.Error("Cannot download", slog.String("key", o.Key), slog.Any("error", o.Err))
	case entity.OutcomeDownloaded:
		log.Info("Downloaded", slog.String("key", o.Key), slog.String("path", o.Path), slog.Int64("bytes", o.Bytes))
	}
}

// DeriveFilename returns key plus the extension of the url path.
// The query and fragment are ignored. Without an extension it falls back to .png.
func DeriveFilename(key, rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	} else if idx := strings.IndexAny(rawURL, "?#"); idx >= 0 {
		p = rawURL[:idx]
	}

	ext := path.Ext(p)
	if ext == "" || ext == "." {
		ext = DefaultExtension
	}

	return key + ext
}
