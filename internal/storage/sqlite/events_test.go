package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andromedus24/ledgerstore/internal/types"
)

func TestEventRepository_CreateEvent_DefaultsLevel(t *testing.T) {
	mgr := newTestManager(t)
	jobs := NewJobRepository(mgr, nil, NewEventRepository(mgr), nil)
	events := NewEventRepository(mgr)
	ctx := context.Background()

	job, err := jobs.CreateJob(ctx, types.CreateJobRequest{Type: types.JobTypeVision, Title: "classify image"})
	require.NoError(t, err)

	evt, err := events.CreateEvent(ctx, types.CreateEventRequest{
		JobID:     job.ID,
		EventType: types.EventTypeProgress,
	})
	require.NoError(t, err)
	assert.Equal(t, types.LevelInfo, evt.Level)
}

func TestEventRepository_CreateBatchEvents_SkipsInvalidWithoutAborting(t *testing.T) {
	mgr := newTestManager(t)
	jobs := NewJobRepository(mgr, nil, NewEventRepository(mgr), nil)
	events := NewEventRepository(mgr)
	ctx := context.Background()

	job, err := jobs.CreateJob(ctx, types.CreateJobRequest{Type: types.JobTypeAutomation, Title: "automation job"})
	require.NoError(t, err)

	inserted, failed := events.CreateBatchEvents(ctx, []types.CreateEventRequest{
		{JobID: job.ID, EventType: types.EventTypeStarted},
		{JobID: job.ID, EventType: "not-a-real-type"},
		{JobID: job.ID, EventType: types.EventTypeCompleted},
	})
	assert.Equal(t, 2, inserted)
	assert.Equal(t, 1, failed)

	all, err := events.GetEventsByJob(ctx, job.ID, 10)
	require.NoError(t, err)
	// +1 for the "created" event JobRepository.CreateJob emits.
	assert.Len(t, all, 3)
}

func TestEventRepository_GetJobTimeline_OldestFirst(t *testing.T) {
	mgr := newTestManager(t)
	jobs := NewJobRepository(mgr, nil, NewEventRepository(mgr), nil)
	events := NewEventRepository(mgr)
	ctx := context.Background()

	job, err := jobs.CreateJob(ctx, types.CreateJobRequest{Type: types.JobTypeChat, Title: "chat"})
	require.NoError(t, err)

	_, err = events.CreateEvent(ctx, types.CreateEventRequest{JobID: job.ID, EventType: types.EventTypeStarted})
	require.NoError(t, err)
	_, err = events.CreateEvent(ctx, types.CreateEventRequest{JobID: job.ID, EventType: types.EventTypeCompleted})
	require.NoError(t, err)

	timeline, err := events.GetJobTimeline(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, timeline, 3)
	assert.Equal(t, types.EventTypeCreated, timeline[0].Event)
	assert.Equal(t, types.EventTypeStarted, timeline[1].Event)
	assert.Equal(t, types.EventTypeCompleted, timeline[2].Event)
}
