package cron

import (
	"context"
	"fmt"
	"time"
)

// Job is a unit of work the cron worker runs on each tick.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// periodicJob is implemented by jobs that run less often than the service tick.
type periodicJob interface {
	Every() time.Duration
}

// Registry holds jobs in registration order. Names are unique because they
// key the last-run bookkeeping and the job metrics.
type Registry struct {
	jobs  []Job
	names map[string]struct{}
}

// NewRegistry registers jobs in order and panics on a duplicate name, which
// is a wiring bug in main.
func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{names: make(map[string]struct{}, len(jobs))}
	for _, job := range jobs {
		if err := r.Register(job); err != nil {
			panic(err)
		}
	}
	return r
}

// Register appends job. Nil jobs are skipped.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return nil
	}
	if r.names == nil {
		r.names = map[string]struct{}{}
	}
	name := job.Name()
	if _, dup := r.names[name]; dup {
		return fmt.Errorf("cron: job %q registered twice", name)
	}
	r.names[name] = struct{}{}
	r.jobs = append(r.jobs, job)
	return nil
}

// Jobs returns a copy of the registered jobs.
func (r *Registry) Jobs() []Job {
	return append([]Job(nil), r.jobs...)
}
