package scheduler

import (
	"context"
	"fmt"
	"time"

	"calltriage/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Job is a unit of periodic work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type Cron struct {
	c       *cron.Cron
	logger  *logger.Logger
	timeout time.Duration
}

// NewCron builds a scheduler whose jobs recover from panics and never
// overlap with their own previous run.
func NewCron(log *logger.Logger, timeout time.Duration) *Cron {
	if log == nil {
		log = logger.NewNop()
	}
	c := cron.New(cron.WithChain(
		cron.Recover(cron.DefaultLogger),
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))
	return &Cron{c: c, logger: log, timeout: timeout}
}

func (cr *Cron) Start() { cr.c.Start() }

// Stop waits for running jobs to finish.
func (cr *Cron) Stop() {
	ctx := cr.c.Stop()
	<-ctx.Done()
}

func (cr *Cron) Add(spec string, job Job) (cron.EntryID, error) {
	id, err := cr.c.AddFunc(spec, func() { cr.run(job) })
	if err != nil {
		return 0, fmt.Errorf("invalid schedule %q for job %s: %w", spec, job.Name(), err)
	}
	return id, nil
}

func (cr *Cron) Entries() []cron.Entry { return cr.c.Entries() }

func (cr *Cron) run(job Job) {
	ctx := context.Background()
	if cr.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cr.timeout)
		defer cancel()
	}

	start := time.Now()
	log := cr.logger.WithField("job", job.Name())
	if err := job.Run(ctx); err != nil {
		log.WithError(err).Warn("Scheduled job failed")
		return
	}
	log.LogPerformanceMetric("job_duration", float64(time.Since(start).Milliseconds()), "ms", map[string]string{"job": job.Name()})
}
