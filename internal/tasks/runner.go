// Package tasks выполняет отложенную работу вне пути ответа:
// пополнение кэша и инкременты счётчика переходов.
package tasks

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// taskTimeout ограничивает выполнение одной фоновой задачи,
// чтобы зависший вызов не держал воркера вечно.
const taskTimeout = 10 * time.Second

type task struct {
	name string
	fn   func(ctx context.Context) error
}

// Runner — пул воркеров с буферизованной очередью задач.
// Ошибки задач логируются и проглатываются: к уже отправленному
// ответу они не имеют отношения.
type Runner struct {
	tasks   chan task
	wg      sync.WaitGroup
	logger  *zap.Logger
	mu      sync.RWMutex
	stopped bool
}

// NewRunner создаёт раннер с workers воркерами и очередью queueSize.
func NewRunner(workers, queueSize int, logger *zap.Logger) *Runner {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 1024
	}

	r := &Runner{
		tasks:  make(chan task, queueSize),
		logger: logger,
	}

	for i := 0; i < workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}

	return r
}

func (r *Runner) worker() {
	defer r.wg.Done()
	for t := range r.tasks {
		ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
		if err := t.fn(ctx); err != nil {
			r.logger.Warn("Фоновая задача завершилась с ошибкой",
				zap.String("task", t.name),
				zap.Error(err),
			)
		}
		cancel()
	}
}

// Submit ставит задачу в очередь, не блокируя вызывающего.
// Задача запускается с собственным контекстом: отключение клиента
// после ответа её не отменяет. При переполненной очереди или после
// остановки задача отбрасывается — раннер работает по принципу
// best-effort.
func (r *Runner) Submit(name string, fn func(ctx context.Context) error) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.stopped {
		return false
	}

	select {
	case r.tasks <- task{name: name, fn: fn}:
		return true
	default:
		r.logger.Warn("Очередь фоновых задач переполнена, задача отброшена",
			zap.String("task", name),
		)
		return false
	}
}

// Stop закрывает приём задач и дожидается, пока воркеры доработают
// очередь. Уже принятые задачи выполняются до конца.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	close(r.tasks)
	r.mu.Unlock()

	r.wg.Wait()
}
