// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package workers

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// recordingWorker appends its start and stop events to a shared log.
type recordingWorker struct {
	id  int
	log *[]string
}

func (r *recordingWorker) Start(context.Context) {
	*r.log = append(*r.log, fmt.Sprintf("start %d", r.id))
}

func (r *recordingWorker) Stop() {
	*r.log = append(*r.log, fmt.Sprintf("stop %d", r.id))
}

func TestWorkers_StartStopOrder(t *testing.T) {
	var log []string
	ws := New(&recordingWorker{1, &log}, &recordingWorker{2, &log}, &recordingWorker{3, &log})

	ws.Start(context.Background())
	ws.Stop()

	assert.Equal(t, []string{"start 1", "start 2", "start 3", "stop 3", "stop 2", "stop 1"}, log)
}

func TestWorkers_StartStopAreIdempotent(t *testing.T) {
	var log []string
	ws := New(&recordingWorker{1, &log})

	ws.Stop()
	ws.Start(context.Background())
	ws.Start(context.Background())
	ws.Stop()
	ws.Stop()

	assert.Equal(t, []string{"start 1", "stop 1"}, log)
}

func TestWorkers_AddWhileRunning(t *testing.T) {
	var log []string
	ws := New()

	ws.Add(context.Background(), &recordingWorker{1, &log})
	assert.Empty(t, log, "not started yet")

	ws.Start(context.Background())
	ws.Add(context.Background(), &recordingWorker{2, &log})
	ws.Stop()

	assert.Equal(t, []string{"start 1", "start 2", "stop 2", "stop 1"}, log)
}

func TestWorkers_Empty(t *testing.T) {
	ws := &Workers{}
	assert.NotPanics(t, func() {
		ws.Start(context.Background())
		ws.Stop()
	})
}

func TestFunc(t *testing.T) {
	var started, stopped bool
	f := Func{
		StartFn: func(context.Context) { started = true },
		StopFn:  func() { stopped = true },
	}

	f.Start(context.Background())
	f.Stop()
	assert.True(t, started)
	assert.True(t, stopped)

	assert.NotPanics(t, func() {
		Func{}.Start(context.Background())
		Func{}.Stop()
	})
}
