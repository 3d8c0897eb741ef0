// Package ingest runs a sync: every configured journal listing is fetched,
// parsed and stored, one after another.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pevans/papersync/articles"
	"github.com/pevans/papersync/config"
	"github.com/pevans/papersync/fetch"
	"github.com/pevans/papersync/journals"
	"github.com/pevans/papersync/sources"
)

// ErrUnknownSource is returned when a sync is limited to a source that isn't
// configured.
var ErrUnknownSource = errors.New("unknown source")

// Stages at which a source can fail.
const (
	StageSetup = "setup"
	StageFetch = "fetch"
	StageParse = "parse"
	StageStore = "store"
)

// slowSync is the duration above which a source sync is logged as a warning.
const slowSync = 60 * time.Second

// Source is one journal listing to sync.
type Source struct {
	Name string
	Kind journals.Kind
	URL  string
	Mode fetch.Mode
}

// SourcesFromConfig converts the enabled configured sources.
func SourcesFromConfig(cfg *config.FileConfig) ([]Source, error) {
	var out []Source
	for _, sc := range cfg.Sources {
		if !sc.IsEnabled() {
			continue
		}

		kind, err := journals.ParseKind(sc.Kind)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", sc.Name, err)
		}
		mode, err := fetch.ParseMode(sc.Mode)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", sc.Name, err)
		}

		out = append(out, Source{Name: sc.Name, Kind: kind, URL: sc.URL, Mode: mode})
	}
	return out, nil
}

// Fetchers hands out the fetcher for a mode. *fetch.Pool implements it.
type Fetchers interface {
	For(mode fetch.Mode) fetch.Fetcher
}

// SyncError records why one source failed.
type SyncError struct {
	Source string
	Stage  string
	Err    error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Stage, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// SourceResult is the outcome for one source.
type SourceResult struct {
	Name     string
	Parsed   int
	Added    int
	Problems []journals.FieldError
	Duration time.Duration
	Err      *SyncError // nil on success
}

// SyncResult summarizes a run.
type SyncResult struct {
	RunID          uuid.UUID
	StartedAt      time.Time
	FinishedAt     time.Time
	Sources        []SourceResult
	SourcesSynced  int
	SourcesFailed  int
	ArticlesParsed int
	ArticlesAdded  int
	Problems       int
	Errors         []*SyncError
}

func (r *SyncResult) add(sr SourceResult) {
	r.Sources = append(r.Sources, sr)
	r.ArticlesParsed += sr.Parsed
	r.ArticlesAdded += sr.Added
	r.Problems += len(sr.Problems)
	if sr.Err != nil {
		r.SourcesFailed++
		r.Errors = append(r.Errors, sr.Err)
		return
	}
	r.SourcesSynced++
}

// Options configures a SyncService.
type Options struct {
	// Per-article requests per second for parsers that follow links
	AbstractRate float64
	Logger       *slog.Logger
}

// SyncService moves articles from journal listings into the article store.
type SyncService struct {
	fetchers Fetchers
	store    *articles.ArticleStore
	status   *sources.SourceStore
	sources  []Source
	opts     Options
	logger   *slog.Logger
}

// NewSyncService creates a sync service. status may be nil, in which case no
// per-source history is kept.
func NewSyncService(
	fetchers Fetchers,
	store *articles.ArticleStore,
	status *sources.SourceStore,
	srcs []Source,
	opts Options,
) *SyncService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &SyncService{
		fetchers: fetchers,
		store:    store,
		status:   status,
		sources:  srcs,
		opts:     opts,
		logger:   logger,
	}
}

// Sources returns the configured sources in sync order.
func (s *SyncService) Sources() []Source {
	return s.sources
}

// SyncSources syncs every source, or only the one named only when it is not
// empty. Sources run strictly in order. A failing source is recorded in the
// result and the run moves on to the next one; the returned error is only
// for an unknown only name or a cancelled context.
func (s *SyncService) SyncSources(ctx context.Context, only string) (*SyncResult, error) {
	selected, err := s.selectSources(only)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{
		RunID:     uuid.New(),
		StartedAt: time.Now(),
	}
	logger := s.logger.With("run_id", result.RunID.String())
	logger.Info("sync started", "sources", len(selected))

	for _, src := range selected {
		if err := ctx.Err(); err != nil {
			result.FinishedAt = time.Now()
			return result, fmt.Errorf("sync interrupted: %w", err)
		}

		s.register(logger, src)
		sr := s.syncSource(ctx, logger.With("source", src.Name), src)
		s.recordStatus(logger, src, sr)
		result.add(sr)
	}

	result.FinishedAt = time.Now()
	logger.Info("sync finished",
		"synced", result.SourcesSynced,
		"failed", result.SourcesFailed,
		"parsed", result.ArticlesParsed,
		"added", result.ArticlesAdded,
		"duration", result.FinishedAt.Sub(result.StartedAt))

	return result, nil
}

func (s *SyncService) selectSources(only string) ([]Source, error) {
	if only == "" {
		return s.sources, nil
	}
	for _, src := range s.sources {
		if src.Name == only {
			return []Source{src}, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSource, only)
}

// syncSource runs fetch, parse and store for one source.
func (s *SyncService) syncSource(ctx context.Context, logger *slog.Logger, src Source) SourceResult {
	startTime := time.Now()
	sr := SourceResult{Name: src.Name}

	fail := func(stage string, err error) SourceResult {
		sr.Err = &SyncError{Source: src.Name, Stage: stage, Err: err}
		sr.Duration = time.Since(startTime)
		if stage == StageStore {
			logger.Error("source failed", "stage", stage, "error", err)
		} else {
			logger.Warn("source failed", "stage", stage, "error", err)
		}
		return sr
	}

	fetcher := s.fetchers.For(src.Mode)
	parser, err := journals.New(src.Kind, journals.Options{
		Journal:      src.Name,
		Fetcher:      fetcher,
		AbstractRate: s.opts.AbstractRate,
		Logger:       logger,
	})
	if err != nil {
		return fail(StageSetup, err)
	}

	raw, err := fetcher.Fetch(ctx, src.URL)
	if err != nil {
		return fail(StageFetch, err)
	}

	parsed, err := parser.Parse(ctx, raw)
	if err != nil {
		return fail(StageParse, err)
	}
	sr.Parsed = len(parsed.Records)
	sr.Problems = parsed.Problems

	added, err := s.store.InsertIfAbsent(parser.Journal(), parsed.Records)
	if err != nil {
		return fail(StageStore, err)
	}
	sr.Added = added
	sr.Duration = time.Since(startTime)

	if sr.Duration > slowSync {
		logger.Warn("slow sync", "parsed", sr.Parsed, "added", sr.Added, "duration", sr.Duration)
	} else {
		logger.Info("synced", "parsed", sr.Parsed, "added", sr.Added,
			"problems", len(sr.Problems), "duration", sr.Duration)
	}

	return sr
}

func (s *SyncService) register(logger *slog.Logger, src Source) {
	if s.status == nil {
		return
	}
	if _, err := s.status.Register(src.Name, string(src.Kind), src.URL, string(src.Mode)); err != nil {
		logger.Error("failed to register source", "source", src.Name, "error", err)
	}
}

func (s *SyncService) recordStatus(logger *slog.Logger, src Source, sr SourceResult) {
	if s.status == nil {
		return
	}

	var err error
	if sr.Err != nil {
		err = s.status.RecordFailure(src.Name, sr.Err.Err)
	} else {
		err = s.status.RecordSuccess(src.Name, sr.Added)
	}
	if err != nil {
		logger.Error("failed to update source status", "source", src.Name, "error", err)
	}
}
