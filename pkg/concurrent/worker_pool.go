package concurrent

import (
	"runtime"
	"sync"
)

type JobFunc[T any, G any] func(job T) G

// WorkerPool runs a job function over queued jobs on a fixed number of goroutines.
// Results are delivered in completion order.
type WorkerPool[T any, G any] struct {
	numWorkers int
	jobQueue   chan T
	results    chan G
	wg         sync.WaitGroup
}

func NewWorkerPool[T any, G any](numWorkers, jobQueueSize int) *WorkerPool[T, G] {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	return &WorkerPool[T, G]{
		numWorkers: numWorkers,
		jobQueue:   make(chan T, jobQueueSize),
		results:    make(chan G, jobQueueSize),
	}
}

func (wp *WorkerPool[T, G]) worker(jobFunc JobFunc[T, G]) {
	defer wp.wg.Done()
	for job := range wp.jobQueue {
		wp.results <- jobFunc(job)
	}
}

func (wp *WorkerPool[T, G]) Start(jobFunc JobFunc[T, G]) {
	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(jobFunc)
	}
}

// Wait blocks until every worker has exited, then closes the results channel. Call Close first.
func (wp *WorkerPool[T, G]) Wait() {
	wp.wg.Wait()
	close(wp.results)
}

func (wp *WorkerPool[T, G]) AddJob(job T) {
	wp.jobQueue <- job
}

func (wp *WorkerPool[T, G]) CollectResults() chan G {
	return wp.results
}

func (wp *WorkerPool[T, G]) Close() {
	close(wp.jobQueue)
}

type indexed[G any] struct {
	idx int
	val G
}

// Map applies fn to every element of jobs on numWorkers goroutines and returns the results in input order.
func Map[T any, G any](jobs []T, numWorkers int, fn func(T) G) []G {
	out := make([]G, len(jobs))
	if len(jobs) == 0 {
		return out
	}

	wp := NewWorkerPool[int, indexed[G]](numWorkers, len(jobs))
	wp.Start(func(i int) indexed[G] {
		return indexed[G]{idx: i, val: fn(jobs[i])}
	})
	for i := range jobs {
		wp.AddJob(i)
	}
	wp.Close()
	wp.Wait()

	for r := range wp.CollectResults() {
		out[r.idx] = r.val
	}
	return out
}
