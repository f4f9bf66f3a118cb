package app

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

const workerStopTimeout = 5 * time.Second

// worker - фоновая горутина с собственной отменой.
type worker struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// startWorker запускает run в отдельной горутине с дочерним контекстом.
func startWorker(ctx context.Context, run func(context.Context)) *worker {
	workerCtx, cancel := context.WithCancel(ctx)
	w := &worker{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(w.done)
		run(workerCtx)
	}()
	return w
}

// shutdownWorker отменяет воркер и ждёт его завершения не дольше workerStopTimeout.
func shutdownWorker(w *worker, name string, logger *log.Entry) {
	if w == nil {
		return
	}
	w.cancel()
	select {
	case <-w.done:
		logger.WithField("worker", name).Info("worker stopped")
	case <-time.After(workerStopTimeout):
		logger.WithField("worker", name).Warn("worker stop timeout exceeded")
	}
}
