package chrono

import (
	"errors"
	"testing"
	"time"

	"xstream-backend/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

func TestCron(t *testing.T) {
	recorder := &telemetry.Recorder{}
	scheduler := NewStandardCron(recorder)

	require.ErrorContains(t, scheduler.Cron("every now and then", func() {}), "parse schedule")
	require.True(t, scheduler.Next().IsZero())

	ran := make(chan struct{}, 1)
	require.NoError(t, scheduler.Cron("@every 1s", func() {
		select {
		case ran <- struct{}{}:
		default:
		}
	}))

	scheduler.Start()
	require.False(t, scheduler.Next().IsZero())
	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("job never ran")
	}
	<-scheduler.Stop().Done()
}

func TestCronLogger(t *testing.T) {
	recorder := &telemetry.Recorder{}
	logger := cronLogger{tel: recorder}

	logger.Info("wake", "now", 1, "dangling")
	logger.Error(errors.New("boom"), "job failed", "entry", 2)

	debug := recorder.Find(telemetry.KindDebug, "cron: wake")
	require.Len(t, debug, 1)
	require.Equal(t, []any{"now: 1"}, debug[0].Params)

	broken := recorder.Find(telemetry.KindBroken, report_cron_job)
	require.Len(t, broken, 1)
	require.ErrorContains(t, broken[0].Params[0].(error), "job failed: boom")
	require.Equal(t, "entry: 2", broken[0].Params[1])
}
