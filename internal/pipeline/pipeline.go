// Package pipeline runs one load: download (optional), connect, load, clean,
// validate and persist, in that order, with a single repository acquired up
// front and released on every exit path.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"salesload/internal/config"
	"salesload/internal/datasource/file"
	"salesload/internal/datasource/httpds"
	"salesload/internal/metrics"
	csvparser "salesload/internal/parser/csv"
	"salesload/internal/storage"
	"salesload/internal/table"
	"salesload/internal/transformer/builtin"
)

// Downloader fetches a dataset URL into a directory.
type Downloader interface {
	Download(ctx context.Context, url, dir string) (httpds.Download, error)
}

// Opener opens a storage repository; storage.New in production.
type Opener func(ctx context.Context, cfg storage.Config) (storage.Repository, error)

// Options wires the dependencies of a run. Only Config is required.
type Options struct {
	Config *config.Config

	// Logger defaults to log.Default().
	Logger *log.Logger

	// Metrics defaults to a no-op recorder.
	Metrics *metrics.Recorder

	// RunID tags log lines; a random UUID when empty.
	RunID string

	// Now is the clock used for the future-date check and loaded_at.
	// Defaults to time.Now.
	Now func() time.Time

	// Downloader defaults to an httpds.Client.
	Downloader Downloader

	// Open defaults to storage.New.
	Open Opener
}

// Result summarizes a run.
type Result struct {
	RunID string

	// Reached is the last stage completed before the run closed.
	Reached State

	Input         string
	Loaded        int
	Filled        int
	Dropped       int
	NegativeSales int
	FutureDates   int
	Rows          int64
}

type runner struct {
	opt    Options
	cfg    *config.Config
	logger *log.Logger
	rec    *metrics.Recorder
	res    Result
}

// Run executes one pipeline run. Any failure is returned as a *StageError
// naming the stage that failed; the repository, once opened, is always
// closed before Run returns.
func Run(ctx context.Context, opt Options) (res Result, err error) {
	r := &runner{opt: opt, cfg: opt.Config, logger: opt.Logger, rec: opt.Metrics}
	if r.logger == nil {
		r.logger = log.Default()
	}
	if r.rec == nil {
		r.rec = metrics.NewRecorder("salesload", nil)
	}
	if r.opt.Now == nil {
		r.opt.Now = time.Now
	}
	if r.opt.Open == nil {
		r.opt.Open = storage.New
	}
	r.res.RunID = opt.RunID
	if r.res.RunID == "" {
		r.res.RunID = uuid.NewString()
	}

	start := time.Now()
	r.logger.Printf("pipeline: run_id=%s state=%s", r.res.RunID, Start)
	defer func() {
		r.logger.Printf("pipeline: run_id=%s state=%s reached=%s elapsed=%s",
			r.res.RunID, Closed, r.res.Reached, time.Since(start).Truncate(time.Millisecond))
		res = r.res
	}()

	if r.cfg == nil {
		return r.res, &StageError{Stage: EnvLoaded, Err: fmt.Errorf("no configuration")}
	}

	if err := r.step(EnvLoaded, r.cfg.Validate); err != nil {
		return r.res, err
	}
	if err := r.step(Downloaded, func() error { return r.download(ctx) }); err != nil {
		return r.res, err
	}

	var repo storage.Repository
	err = r.step(Connected, func() error {
		var err error
		repo, err = r.opt.Open(ctx, storage.Config{
			Kind:    r.cfg.DBDriver,
			DSN:     r.cfg.DSN(),
			Logger:  r.logger,
			OnBatch: func(int64) { r.rec.RecordBatches(1) },
		})
		if err != nil {
			return err
		}
		if err := repo.Ping(ctx); err != nil {
			repo.Close()
			return fmt.Errorf("%w: ping: %w", storage.ErrConnect, err)
		}
		r.logger.Printf("pipeline: connected driver=%s dsn=%s", r.cfg.DBDriver, r.cfg.Redacted())
		return nil
	})
	if err != nil {
		return r.res, err
	}
	defer func() {
		repo.Close()
		r.logger.Printf("pipeline: database connection closed")
	}()

	var batch *table.Batch
	err = r.step(Loaded, func() error {
		p := csvparser.NewParser(csvparser.Options{TrimSpace: true, Logger: r.logger})
		var err error
		batch, err = p.Load(ctx, file.NewLocal(r.res.Input))
		if err != nil {
			return err
		}
		r.res.Loaded = batch.Len()
		r.rec.RecordRows(metrics.KindLoaded, int64(r.res.Loaded))
		r.logger.Printf("pipeline: loaded %s rows with columns %v from %s",
			humanize.Comma(int64(r.res.Loaded)), batch.Names(), r.res.Input)
		return nil
	})
	if err != nil {
		return r.res, err
	}

	err = r.step(Cleaned, func() error {
		c := &builtin.Clean{Logger: r.logger}
		var err error
		batch, err = c.Apply(batch)
		r.res.Filled, r.res.Dropped = c.Stats.Filled, c.Stats.Dropped
		r.rec.RecordRows(metrics.KindFilled, int64(c.Stats.Filled))
		r.rec.RecordRows(metrics.KindDroppedDates, int64(c.Stats.Dropped))
		return err
	})
	if err != nil {
		return r.res, err
	}

	err = r.step(Validated, func() error {
		v := &builtin.Validate{Now: r.opt.Now, Logger: r.logger}
		var err error
		batch, err = v.Apply(batch)
		r.res.NegativeSales, r.res.FutureDates = v.Stats.NegativeSales, v.Stats.FutureDates
		r.rec.RecordRows(metrics.KindNegativeSales, int64(v.Stats.NegativeSales))
		r.rec.RecordRows(metrics.KindFutureDates, int64(v.Stats.FutureDates))
		return err
	})
	if err != nil {
		return r.res, err
	}

	err = r.step(Persisted, func() error {
		p := &storage.Persister{
			Schema:     r.cfg.Schema,
			Table:      r.cfg.Table,
			SourceFile: r.res.Input,
			BatchSize:  r.cfg.BatchSize,
			Now:        r.opt.Now,
			Logger:     r.logger,
		}
		n, err := p.Persist(ctx, repo, batch)
		r.res.Rows = n
		if err != nil {
			return err
		}
		r.rec.RecordRows(metrics.KindInserted, n)
		return nil
	})
	return r.res, err
}

// step runs fn as the transition into s, records its metrics and wraps any
// failure in a *StageError.
func (r *runner) step(s State, fn func() error) error {
	start := time.Now()
	err := fn()
	r.rec.RecordStep(s.String(), err, time.Since(start))
	if err != nil {
		r.logger.Printf("pipeline: %s failed: %v", s, err)
		return &StageError{Stage: s, Err: err}
	}
	r.logger.Printf("pipeline: %s -> %s", r.res.Reached, s)
	r.res.Reached = s
	return nil
}

func (r *runner) download(ctx context.Context) error {
	r.res.Input = r.cfg.InputFile
	if r.cfg.DatasetURL == "" {
		r.logger.Printf("pipeline: no dataset URL configured, using %s", r.cfg.InputFile)
		return nil
	}
	d := r.opt.Downloader
	if d == nil {
		d = httpds.NewClient(httpds.Config{Logger: r.logger})
	}
	got, err := d.Download(ctx, r.cfg.DatasetURL, r.cfg.DatasetDir)
	if err != nil {
		return err
	}
	r.res.Input = got.Path
	return nil
}
