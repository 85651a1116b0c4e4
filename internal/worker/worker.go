// Package worker реализует пул воркеров для фоновой обработки импортов.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrQueueFull возвращается, если очередь задач заполнена
	ErrQueueFull = errors.New("job queue is full")
	// ErrPoolStopped возвращается при отправке задачи в остановленный пул
	ErrPoolStopped = errors.New("worker pool is stopped")
)

// PoolInterface определяет интерфейс для пула воркеров
type PoolInterface interface {
	Start()
	Stop()
	Submit(job Job) error
	GetMetrics() Metrics
	GetQueueSize() int
}

// Job представляет задачу для обработки
type Job struct {
	Name   string
	UserID int64
	Run    func(ctx context.Context) error
}

// Metrics снимок метрик пула
type Metrics struct {
	ProcessedJobs  int64         `json:"processed"`
	FailedJobs     int64         `json:"failed"`
	ProcessingTime time.Duration `json:"processing_time"`
	QueueSize      int           `json:"queue_size"`
	QueueCapacity  int           `json:"queue_capacity"`
}

// Pool пул воркеров с ограниченной очередью
type Pool struct {
	workers  int
	jobQueue chan Job
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	logger   *zap.Logger

	metricsMu sync.RWMutex
	metrics   Metrics

	mu      sync.RWMutex
	stopped bool
	once    sync.Once
}

var _ PoolInterface = (*Pool)(nil)

// NewWorkerPool создает новый пул воркеров
func NewWorkerPool(workers int, queueSize int, logger *zap.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		workers:  workers,
		jobQueue: make(chan Job, queueSize),
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger,
		metrics:  Metrics{QueueCapacity: queueSize},
	}
}

// Start запускает воркеры
func (wp *Pool) Start() {
	wp.logger.Info("Starting worker pool", zap.Int("workers", wp.workers), zap.Int("queue", cap(wp.jobQueue)))

	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop закрывает очередь и дожидается выполнения оставшихся задач
func (wp *Pool) Stop() {
	wp.once.Do(func() {
		wp.logger.Info("Stopping worker pool")

		wp.mu.Lock()
		wp.stopped = true
		close(wp.jobQueue)
		wp.mu.Unlock()

		wp.wg.Wait()
		wp.cancel()
		wp.logger.Info("Worker pool stopped")
	})
}

// Submit добавляет задачу в очередь без ожидания
func (wp *Pool) Submit(job Job) error {
	if job.Run == nil {
		return fmt.Errorf("job %q has no handler", job.Name)
	}

	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.stopped {
		return ErrPoolStopped
	}

	select {
	case wp.jobQueue <- job:
		wp.setQueueSize()
		return nil
	default:
		return ErrQueueFull
	}
}

func (wp *Pool) worker(id int) {
	defer wp.wg.Done()

	wp.logger.Debug("Worker started", zap.Int("worker_id", id))

	for {
		select {
		case job, ok := <-wp.jobQueue:
			if !ok {
				wp.logger.Debug("Worker stopping", zap.Int("worker_id", id))
				return
			}
			wp.setQueueSize()
			wp.processJob(job, id)

		case <-wp.ctx.Done():
			wp.logger.Debug("Worker context cancelled", zap.Int("worker_id", id))
			return
		}
	}
}

func (wp *Pool) processJob(job Job, workerID int) {
	startTime := time.Now()

	wp.logger.Debug("Processing job",
		zap.Int("worker_id", workerID),
		zap.String("job", job.Name),
		zap.Int64("user_id", job.UserID))

	err := wp.run(job)
	elapsed := time.Since(startTime)

	wp.metricsMu.Lock()
	if err != nil {
		wp.metrics.FailedJobs++
	} else {
		wp.metrics.ProcessedJobs++
	}
	wp.metrics.ProcessingTime += elapsed
	wp.metricsMu.Unlock()

	if err != nil {
		wp.logger.Error("Job processing failed",
			zap.Int("worker_id", workerID),
			zap.String("job", job.Name),
			zap.Int64("user_id", job.UserID),
			zap.Duration("duration", elapsed),
			zap.Error(err))
		return
	}

	wp.logger.Debug("Job processed successfully",
		zap.Int("worker_id", workerID),
		zap.String("job", job.Name),
		zap.Duration("duration", elapsed))
}

// run выполняет задачу, превращая панику в ошибку
func (wp *Pool) run(job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			wp.logger.Error("Panic recovered in job",
				zap.String("job", job.Name),
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())))
			err = fmt.Errorf("job %q panicked: %v", job.Name, r)
		}
	}()
	return job.Run(wp.ctx)
}

func (wp *Pool) setQueueSize() {
	wp.metricsMu.Lock()
	wp.metrics.QueueSize = len(wp.jobQueue)
	wp.metricsMu.Unlock()
}

// GetMetrics возвращает текущие метрики
func (wp *Pool) GetMetrics() Metrics {
	wp.metricsMu.RLock()
	defer wp.metricsMu.RUnlock()
	return wp.metrics
}

// GetQueueSize возвращает текущий размер очереди
func (wp *Pool) GetQueueSize() int {
	return len(wp.jobQueue)
}
