package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-transit-api/internal/service"
	"github.com/noah-isme/campus-transit-api/pkg/clock"
)

type stubNotifier struct {
	events []service.JobEvent
}

func (n *stubNotifier) Notify(ev service.JobEvent) {
	n.events = append(n.events, ev)
}

func TestRunDatesEventInServiceTimezone(t *testing.T) {
	// Just before midnight in the service timezone is already the next day in
	// UTC; the event must carry the service-local date.
	loc := time.FixedZone("UTC+7", 7*3600)
	clk := clock.NewFixed(time.Date(2026, 3, 2, 23, 45, 0, 0, loc))
	notifier := &stubNotifier{}
	s := New(clk, time.Second, nil, notifier, zap.NewNop())

	s.run("absence-sweep", func(ctx context.Context) (int, error) { return 4, nil })

	require.Len(t, notifier.events, 1)
	ev := notifier.events[0]
	assert.Equal(t, "absence-sweep", ev.Job)
	assert.Equal(t, "2026-03-02", ev.Date)
	assert.Equal(t, 4, ev.Count)
}

func TestRunSkipsNotifyOnFailure(t *testing.T) {
	clk := clock.NewFixed(time.Date(2026, 3, 2, 23, 45, 0, 0, time.UTC))
	notifier := &stubNotifier{}
	s := New(clk, time.Second, nil, notifier, zap.NewNop())

	s.run("forecast-build", func(ctx context.Context) (int, error) {
		return 0, errors.New("upstream unavailable")
	})

	assert.Empty(t, notifier.events)
}
