package alerts

import (
	"context"
	"time"

	"github.com/0xpr03/nitter-status/pkg/common"
	"github.com/0xpr03/nitter-status/pkg/config"
)

// Job adapts Evaluator to the common.PeriodicJob contract so it runs on the
// same job-runner idiom as every other background task.
type Job struct {
	eval *Evaluator
	cfg  common.ConfigStore
}

func NewJob(eval *Evaluator, cfg common.ConfigStore) *Job {
	return &Job{eval: eval, cfg: cfg}
}

func (j *Job) Name() string { return "alerts" }

func (j *Job) NewParams() any { return nil }

func (j *Job) RunOnce(ctx context.Context, _ any) error {
	return j.eval.Run(ctx)
}

func (j *Job) Interval() time.Duration {
	return config.AsSeconds(context.Background(), j.cfg.Get(common.InstanceStatsIntervalKey), 10*time.Minute)
}

func (j *Job) Jitter() time.Duration { return 1 }

func (j *Job) Timeout() time.Duration { return 2 * time.Minute }

func (j *Job) Trigger() <-chan struct{} { return nil }
