package render

import (
	"errors"
	"sync"
)

// gracefulError aborts a pipeline run without reporting a failure. The
// worker stores an aborted completion and skips the completion callback.
type gracefulError struct {
	reason string
}

func (e *gracefulError) Error() string {
	return "rendering abandoned: " + e.reason
}

// failGracefully builds an abort error for a benign condition.
func failGracefully(reason string) error {
	return &gracefulError{reason: reason}
}

func isGraceful(err error) bool {
	var ge *gracefulError
	return errors.As(err, &ge)
}

// stepCache memoizes the most recent output of a pipeline step. A step
// recomputes only when its input parameters or its snapshot of relevant
// settings differ from the previous call; otherwise the cached output is
// returned. Identical requests are therefore nearly free, and a change to
// one setting recomputes only the steps whose snapshot includes it.
//
// The cache also serializes access, so a step shared between pipelines
// computes once and hands the same output to both.
type stepCache[P comparable, S comparable, O any] struct {
	mu       sync.Mutex
	valid    bool
	params   P
	settings S
	output   O
	serial   uint64
	computes uint64
}

// process returns the cached output when params and settings both match
// the previous call, otherwise invokes compute under the step lock. The
// returned serial increments on every recompute; downstream steps chain
// it into their own params so invalidation propagates.
func (c *stepCache[P, S, O]) process(params P, settings S, compute func() (O, error)) (output O, serial uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.valid && params == c.params && settings == c.settings {
		return c.output, c.serial, nil
	}

	output, err = compute()
	if err != nil {
		var zero O
		return zero, c.serial, err
	}

	c.params = params
	c.settings = settings
	c.output = output
	c.valid = true
	c.serial++
	c.computes++
	return output, c.serial, nil
}

// cached returns the most recent output without recomputing.
func (c *stepCache[P, S, O]) cached() (O, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.output, c.valid
}

// computeCount returns how many times the step has actually computed.
func (c *stepCache[P, S, O]) computeCount() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.computes
}
