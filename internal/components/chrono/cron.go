// Package chrono runs jobs on cron schedules.
package chrono

import (
	"context"
	"fmt"
	"time"

	"xstream-backend/internal/components/assert"
	"xstream-backend/internal/components/telemetry"

	"github.com/robfig/cron/v3"
)

const report_cron_job = "cron.job"

// CronAPI is what anything that repeats on a schedule depends on.
type CronAPI interface {
	// Cron registers callback to run on spec, a standard 5 field cron expression or a
	// descriptor like `@every 15m`.
	Cron(spec string, callback func()) error
}

// StandardCron implements CronAPI with `github.com/robfig/cron/v3`. Schedules are evaluated in
// UTC and a job that is still running when its next activation comes around is skipped.
type StandardCron struct {
	cron *cron.Cron
}

func NewStandardCron(tel telemetry.API) StandardCron {
	assert.NotNil(tel)

	logger := cronLogger{tel: telemetry.NewScopedAPI("chrono", tel)}
	return StandardCron{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
	}
}

func (s StandardCron) Cron(spec string, callback func()) error {
	_, err := s.cron.AddFunc(spec, callback)
	if err != nil {
		return fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return nil
}

// Start begins running the registered jobs in the background.
func (s StandardCron) Start() {
	s.cron.Start()
}

// Stop stops scheduling jobs, the returned context is done once running jobs have finished.
func (s StandardCron) Stop() context.Context {
	return s.cron.Stop()
}

// Next is when the job registered first will run next, the zero time when nothing is
// scheduled or the scheduler isn't running.
func (s StandardCron) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// cronLogger forwards the logs of the cron scheduler to telemetry.
type cronLogger struct {
	tel telemetry.API
}

func (l cronLogger) formatParams(keysAndValues []any) []any {
	params := make([]any, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		params = append(params, fmt.Sprintf("%v: %v", keysAndValues[i], keysAndValues[i+1]))
	}
	return params
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.tel.ReportDebug(fmt.Sprintf("cron: %s", msg), l.formatParams(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.tel.ReportBroken(
		report_cron_job,
		append([]any{fmt.Errorf("%s: %w", msg, err)}, l.formatParams(keysAndValues)...)...,
	)
}
