package outcome

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jgivc/emojifetch/internal/entity"
	"github.com/redis/go-redis/v9"
)

const (
	KeyLastRun  = "last_run" // STRING. last_run:{catalog_id} ID of the latest run of the catalog.
	KeyRun      = "run"      // HASH. run:{run_id} field: value. Run metadata and counters.
	KeyOutcomes = "oc"       // HASH. oc:{run_id} entry_key: outcome kind.
	KeyErrors   = "oe"       // HASH. oe:{run_id} entry_key: error message. Failed entries only.

	FieldCatalog    = "catalog"
	FieldStarted    = "started"
	FieldFinished   = "finished"
	FieldDownloaded = "downloaded"
	FieldSkipped    = "skipped"
	FieldMissing    = "missing"
	FieldFailed     = "failed"
	FieldBytes      = "bytes"

	KeySeparator = ":"

	defaultRunExpiration = 30 * 24 * time.Hour
)

var (
	ErrRunNotFound = errors.New("run not found")
)

type outcomeRepository struct {
	cl         *redis.Client
	catalogID  string
	expiration time.Duration
	log        *slog.Logger
}

// NewOutcomeRepository keeps per-run outcomes in redis. catalogID identifies
// the catalog the runs were made from.
func NewOutcomeRepository(cl *redis.Client, catalogID string, log *slog.Logger) *outcomeRepository {
	return &outcomeRepository{
		cl:         cl,
		catalogID:  catalogID,
		expiration: defaultRunExpiration,
		log:        log.With(slog.String("item", "OutcomeRepository")),
	}
}

func (r *outcomeRepository) Begin(ctx context.Context, summary *entity.Summary) error {
	key := getKey(KeyRun, summary.RunID)

	pipe := r.cl.TxPipeline()
	pipe.HSet(ctx, key,
		FieldCatalog, r.catalogID,
		FieldStarted, summary.Started.Format(time.RFC3339),
	)
	pipe.Expire(ctx, key, r.expiration)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cannot begin run %s: %w", summary.RunID, err)
	}

	r.log.Debug("Run started", slog.String("run_id", summary.RunID))

	return nil
}

func (r *outcomeRepository) Record(ctx context.Context, runID string, o *entity.Outcome) error {
	pipe := r.cl.Pipeline()

	keyOutcomes := getKey(KeyOutcomes, runID)
	pipe.HSet(ctx, keyOutcomes, o.Key, o.Kind.String())
	pipe.Expire(ctx, keyOutcomes, r.expiration)

	if o.Kind == entity.OutcomeFailed && o.Err != nil {
		keyErrors := getKey(KeyErrors, runID)
		pipe.HSet(ctx, keyErrors, o.Key, o.Err.Error())
		pipe.Expire(ctx, keyErrors, r.expiration)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cannot record outcome %s: %w", o.Key, err)
	}

	return nil
}

func (r *outcomeRepository) Finish(ctx context.Context, summary *entity.Summary) error {
	pipe := r.cl.TxPipeline()
	pipe.HSet(ctx, getKey(KeyRun, summary.RunID),
		FieldFinished, summary.Finished.Format(time.RFC3339),
		FieldDownloaded, summary.Downloaded,
		FieldSkipped, summary.Skipped,
		FieldMissing, summary.Missing,
		FieldFailed, summary.Failed,
		FieldBytes, summary.Bytes,
	)
	pipe.Set(ctx, getKey(KeyLastRun, r.catalogID), summary.RunID, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cannot finish run %s: %w", summary.RunID, err)
	}

	r.log.Info("Run saved", slog.String("run_id", summary.RunID))

	return nil
}

// LastRun returns the latest finished run of the catalog without its outcomes list.
func (r *outcomeRepository) LastRun(ctx context.Context) (*entity.Summary, error) {
	runID, err := r.cl.Get(ctx, getKey(KeyLastRun, r.catalogID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRunNotFound
		}

		return nil, fmt.Errorf("cannot get last run: %w", err)
	}

	fields, err := r.cl.HGetAll(ctx, getKey(KeyRun, runID)).Result()
	if err != nil {
		return nil, fmt.Errorf("cannot get run %s: %w", runID, err)
	}

	if len(fields) < 1 {
		return nil, ErrRunNotFound
	}

	return parseSummary(runID, fields), nil
}

// FailedKeys returns entries which ended up failed in the given run.
func (r *outcomeRepository) FailedKeys(ctx context.Context, runID string) ([]string, error) {
	outcomes, err := r.cl.HGetAll(ctx, getKey(KeyOutcomes, runID)).Result()
	if err != nil {
		return nil, fmt.Errorf("cannot get run %s outcomes: %w", runID, err)
	}

	var keys []string
	for key, kind := range outcomes {
		if kind == entity.OutcomeFailed.String() {
			keys = append(keys, key)
		}
	}

	return keys, nil
}

func parseSummary(runID string, fields map[string]string) *entity.Summary {
	s := &entity.Summary{RunID: runID}

	s.Started, _ = time.Parse(time.RFC3339, fields[FieldStarted])
	s.Finished, _ = time.Parse(time.RFC3339, fields[FieldFinished])
	s.Downloaded, _ = strconv.Atoi(fields[FieldDownloaded])
	s.Skipped, _ = strconv.Atoi(fields[FieldSkipped])
	s.Missing, _ = strconv.Atoi(fields[FieldMissing])
	s.Failed, _ = strconv.Atoi(fields[FieldFailed])
	s.Bytes, _ = strconv.ParseInt(fields[FieldBytes], 10, 64)

	return s
}

func getKey(keys ...string) string {
	return strings.Join(keys, KeySeparator)
}
