package async

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gathering/gatekeeper/pkg/observability"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestSafeGo_RunsTask(t *testing.T) {
	var ran atomic.Bool

	SafeGo(context.Background(), nil, time.Second, "test task", func(context.Context) error {
		ran.Store(true)
		return nil
	})

	waitFor(t, ran.Load)
}

func TestSafeGo_RecoversPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewLogger(observability.ErrorLevel, &buf)
	done := make(chan struct{})

	SafeGo(context.Background(), logger, time.Second, "panicky task", func(context.Context) error {
		defer close(done)
		panic("boom")
	})

	<-done
	waitFor(t, func() bool { return buf.Len() > 0 })
	assert.Contains(t, buf.String(), "panicky task")
}

func TestSafeGo_LogsError(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewLogger(observability.WarnLevel, &buf)

	SafeGo(context.Background(), logger, time.Second, "failing task", func(context.Context) error {
		return errors.New("task error")
	})

	waitFor(t, func() bool { return buf.Len() > 0 })
	assert.Contains(t, buf.String(), "background task failed")
	assert.Contains(t, buf.String(), "task error")
}

func TestSafeGo_EnforcesTimeout(t *testing.T) {
	expired := make(chan struct{})

	SafeGo(context.Background(), nil, 10*time.Millisecond, "slow task", func(ctx context.Context) error {
		<-ctx.Done()
		close(expired)
		return nil
	})

	select {
	case <-expired:
	case <-time.After(2 * time.Second):
		t.Fatal("task context never expired")
	}
}

func TestSafeGoNoError(t *testing.T) {
	var ran atomic.Bool

	SafeGoNoError(context.Background(), nil, time.Second, "test task", func(context.Context) {
		ran.Store(true)
	})

	waitFor(t, ran.Load)
}
