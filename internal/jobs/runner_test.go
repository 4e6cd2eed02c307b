package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mail-organizer/internal/model"
)

func TestRunReturnsJobValue(t *testing.T) {
	r := NewRunner()

	v, err := r.Run(context.Background(), model.RunAnalysis, func(context.Context) (any, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	st := r.Status()
	assert.Equal(t, Idle, st.State)
	assert.Equal(t, model.RunAnalysis, st.Kind)
	assert.False(t, r.Busy())
}

func TestRunRecordsFailure(t *testing.T) {
	r := NewRunner()
	boom := errors.New("connection reset")

	_, err := r.Run(context.Background(), model.RunProcessing, func(context.Context) (any, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Failed, r.Status().State)
	assert.ErrorIs(t, r.Status().Err, boom)
}

func TestSecondScanIsRefusedWhileBusy(t *testing.T) {
	r := NewRunner()
	release := make(chan struct{})
	started := make(chan struct{})

	require.NoError(t, r.Go(model.RunProcessing, func(context.Context) (any, error) {
		close(started)
		<-release
		return "done", nil
	}))
	<-started

	_, err := r.Run(context.Background(), model.RunAnalysis, func(context.Context) (any, error) {
		t.Error("second scan must not run")
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrBusy)

	assert.ErrorIs(t, r.Go(model.RunSearch, func(context.Context) (any, error) { return nil, nil }), ErrBusy)
	assert.Equal(t, model.RunProcessing, r.Status().Kind)

	close(release)
	res := <-r.Results()
	assert.Equal(t, model.RunProcessing, res.Kind)
	assert.Equal(t, "done", res.Value)
	assert.False(t, r.Busy())
}

func TestGoDeliversResultMsg(t *testing.T) {
	r := NewRunner()

	require.NoError(t, r.Go(model.RunSearch, func(context.Context) (any, error) {
		return []string{"hit"}, nil
	}))
	msg := r.WaitForResult()()
	res, ok := msg.(ResultMsg)
	require.True(t, ok)
	assert.Equal(t, model.RunSearch, res.Kind)
	assert.Equal(t, []string{"hit"}, res.Value)
	assert.NoError(t, res.Err)
	assert.False(t, res.Finished.Before(res.Started))
}

func TestJobTimeout(t *testing.T) {
	r := NewRunner(WithTimeout(10 * time.Millisecond))

	_, err := r.Run(context.Background(), model.RunAnalysis, func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestShutdownReleasesWaiters(t *testing.T) {
	r := NewRunner()
	r.Shutdown()
	assert.Nil(t, r.WaitForResult()())
}
