package jobs

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsign/internal/model"
)

type countingJob struct {
	schedule string
	runs     atomic.Int32
	block    chan struct{}
}

func (c *countingJob) Name() string     { return "counting" }
func (c *countingJob) Schedule() string { return c.schedule }
func (c *countingJob) Run() {
	c.runs.Add(1)
	if c.block != nil {
		<-c.block
	}
}

func TestTaskExecutor_SkipsDisabledJobs(t *testing.T) {
	ex := NewTaskExecutor(nil, &countingJob{schedule: ""})

	n, err := ex.Start()

	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTaskExecutor_InvalidSchedule(t *testing.T) {
	ex := NewTaskExecutor(nil, &countingJob{schedule: "not a schedule"})

	_, err := ex.Start()

	assert.Error(t, err)
}

func TestTaskExecutor_NoOverlap(t *testing.T) {
	job := &countingJob{block: make(chan struct{})}
	ex := NewTaskExecutor(nil, job)
	run := ex.wrap(job)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		run()
	}()
	require.Eventually(t, func() bool { return job.runs.Load() == 1 }, time.Second, 5*time.Millisecond)

	run()
	assert.Equal(t, int32(1), job.runs.Load())

	close(job.block)
	wg.Wait()

	job.block = nil
	run()
	assert.Equal(t, int32(2), job.runs.Load())
}

type stubSource struct {
	docs []model.Document
	scan model.StoreScan
}

func (s stubSource) ListAll(context.Context) ([]model.Document, error) { return s.docs, nil }
func (s stubSource) ScanStore(context.Context) model.StoreScan       { return s.scan }

func TestReconcileJob_LogsDiff(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	src := stubSource{
		docs: []model.Document{{ID: 1, Filename: "a.pdf"}},
		scan: model.StoreScan{Root: "/data", Files: []string{"b.pdf"}, Status: model.StoreScanOK},
	}
	job := NewReconcileJob("@every 10m", src, log)

	assert.Equal(t, "@every 10m", job.Schedule())
	job.Run()

	out := buf.String()
	assert.Contains(t, out, `"level":"warning"`)
	assert.Contains(t, out, `"missing_files":["a.pdf"]`)
	assert.Contains(t, out, `"orphan_files":["b.pdf"]`)
}
