package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"cliphub/internal/logging"
	"cliphub/internal/metrics"
)

var (
	// ErrAlreadyScheduled is returned when the clip already has a run
	// queued or in progress.
	ErrAlreadyScheduled = errors.New("thumbnail generation already scheduled for clip")
	// ErrQueueFull is returned when the job buffer is full.
	ErrQueueFull = errors.New("thumbnail queue is full")
	// ErrQueueStopped is returned after Stop has been called.
	ErrQueueStopped = errors.New("thumbnail queue is stopped")
)

// DefaultQueueSize is the job buffer used when none is configured.
const DefaultQueueSize = 64

// Runner executes pipeline runs; *Orchestrator implements it.
type Runner interface {
	RunObserved(ctx context.Context, job Job, observe func(State)) Result
}

// Gate holds workers back before they take the next job; *memory.Monitor
// implements it. Wait returns false once the gate has stopped, after which
// the worker stops consulting it.
type Gate interface {
	Wait() bool
}

// QueueConfig configures a Queue.
type QueueConfig struct {
	Workers int
	Size    int
	// Gate, if set, is consulted before each job is dequeued.
	Gate Gate
	// OnResult, if set, is called from the worker after every run.
	OnResult func(Result)
}

// Queue runs pipeline jobs on a fixed pool of workers. At most one run per
// clip is queued or in flight at a time, and Submit never blocks the
// caller. Runs are not cancelled once started.
type Queue struct {
	runner Runner
	config QueueConfig
	jobs   chan Job

	mu      sync.Mutex
	states  map[int64]State
	stopped bool

	wg        sync.WaitGroup
	inFlight  atomic.Int64
	processed atomic.Int64
	log       *logging.Logger
}

// NewQueue creates a queue; call Start to launch the workers.
func NewQueue(runner Runner, config QueueConfig) *Queue {
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.Size < 1 {
		config.Size = DefaultQueueSize
	}

	return &Queue{
		runner: runner,
		config: config,
		jobs:   make(chan Job, config.Size),
		states: make(map[int64]State),
		log:    logging.For("pipeline"),
	}
}

// Start launches the workers.
func (q *Queue) Start() {
	q.log.Info("Starting thumbnail queue with %d workers (buffer %d)", q.config.Workers, q.config.Size)
	metrics.PipelineWorkers.Set(float64(q.config.Workers))

	for i := 0; i < q.config.Workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
}

// Submit schedules job without blocking. It fails with ErrAlreadyScheduled,
// ErrQueueFull or ErrQueueStopped.
func (q *Queue) Submit(job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		metrics.PipelineRejectedTotal.WithLabelValues("stopped").Inc()
		return ErrQueueStopped
	}
	if _, busy := q.states[job.ClipID]; busy {
		metrics.PipelineRejectedTotal.WithLabelValues("duplicate").Inc()
		return ErrAlreadyScheduled
	}

	select {
	case q.jobs <- job:
		q.states[job.ClipID] = NoThumbnail
		metrics.PipelineQueueDepth.Set(float64(len(q.jobs)))
		q.log.Debug("Queued clip %d", job.ClipID)
		return nil
	default:
		metrics.PipelineRejectedTotal.WithLabelValues("queue_full").Inc()
		return ErrQueueFull
	}
}

// Status returns the state of the clip's queued or running job.
func (q *Queue) Status(clipID int64) (State, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	s, ok := q.states[clipID]
	return s, ok
}

// Pending returns the number of clips queued or in flight.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.states)
}

// InFlight returns the number of runs currently executing.
func (q *Queue) InFlight() int {
	return int(q.inFlight.Load())
}

// Processed returns the number of completed runs.
func (q *Queue) Processed() int64 {
	return q.processed.Load()
}

// Stop refuses new jobs and waits for queued and running jobs to finish,
// or for ctx to expire.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.stopped {
		q.stopped = true
		close(q.jobs)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.log.Info("Thumbnail queue drained (%d runs processed)", q.processed.Load())
		return nil
	case <-ctx.Done():
		q.log.Warn("Thumbnail queue stop timed out with %d pending", q.Pending())
		return ctx.Err()
	}
}

func (q *Queue) setState(clipID int64, s State) {
	q.mu.Lock()
	if _, ok := q.states[clipID]; ok {
		q.states[clipID] = s
	}
	q.mu.Unlock()
}

// worker processes jobs until the channel is closed and drained.
func (q *Queue) worker(id int) {
	defer q.wg.Done()

	q.log.Debug("Worker %d started", id)

	gate := q.config.Gate
	for {
		// A gate that reports false has shut down; drain without it
		if gate != nil && !gate.Wait() {
			q.log.Debug("Worker %d: gate stopped, no longer waiting on it", id)
			gate = nil
		}

		job, ok := <-q.jobs
		if !ok {
			break
		}

		metrics.PipelineQueueDepth.Set(float64(len(q.jobs)))
		metrics.PipelineInFlight.Set(float64(q.inFlight.Add(1)))

		// Runs outlive the request that scheduled them
		result := q.runner.RunObserved(context.Background(), job, func(s State) {
			q.setState(job.ClipID, s)
		})

		metrics.PipelineInFlight.Set(float64(q.inFlight.Add(-1)))
		q.processed.Add(1)

		q.mu.Lock()
		delete(q.states, job.ClipID)
		q.mu.Unlock()

		if q.config.OnResult != nil {
			q.config.OnResult(result)
		}
	}

	q.log.Debug("Worker %d finished", id)
}
