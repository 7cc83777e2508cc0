package render

import (
	"sync"

	"github.com/arobinet/sonavis/logging"
)

// workItem is one submitted render: the computation plus the callbacks
// to invoke when it finishes.
type workItem struct {
	run          func() error
	onCompletion func()
	onError      func(err error)
}

// pipelineWorker runs renders one at a time on a dedicated goroutine.
// The mailbox is one deep: submitting while a render is queued replaces
// the queued item, so a burst of requests collapses to the latest one
// and the UI never falls behind.
type pipelineWorker struct {
	name   string
	logger logging.Logger

	mu           sync.Mutex
	cond         *sync.Cond
	pending      *workItem
	shuttingDown bool
	done         chan struct{}
}

func newPipelineWorker(name string) *pipelineWorker {
	w := &pipelineWorker{
		name:   name,
		logger: logging.WithFields(logging.Fields{"pipeline": name}),
		done:   make(chan struct{}),
	}
	w.cond = sync.NewCond(&w.mu)
	go w.loop()
	return w
}

// submit queues an item, displacing any not yet started item.
func (w *pipelineWorker) submit(item *workItem) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.shuttingDown {
		return
	}
	if w.pending != nil {
		w.logger.Debug("dropping superseded render request")
	}
	w.pending = item
	w.cond.Signal()
}

// shutdown discards any queued item, waits for an in-flight render to
// finish, and stops the worker goroutine.
func (w *pipelineWorker) shutdown() {
	w.mu.Lock()
	w.shuttingDown = true
	w.pending = nil
	w.cond.Signal()
	w.mu.Unlock()
	<-w.done
}

func (w *pipelineWorker) loop() {
	defer close(w.done)
	for {
		w.mu.Lock()
		for w.pending == nil && !w.shuttingDown {
			w.cond.Wait()
		}
		if w.shuttingDown {
			w.mu.Unlock()
			w.logger.Debug("pipeline worker exiting")
			return
		}
		item := w.pending
		w.pending = nil
		w.mu.Unlock()

		err := item.run()
		switch {
		case err == nil:
			if item.onCompletion != nil {
				item.onCompletion()
			}
		case isGraceful(err):
			// A benign abort: the pipeline has already recorded an
			// aborted completion, and nobody needs a callback.
			w.logger.Debug("render abandoned", logging.Fields{"reason": err.Error()})
		default:
			w.logger.Error(err, "render failed")
			if item.onError != nil {
				item.onError(err)
			}
		}
	}
}
