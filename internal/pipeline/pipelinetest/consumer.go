package pipelinetest

import (
	"bytes"
	"sync"

	"github.com/jsamuelsen11/showexceptions/internal/pipeline"
)

// Consumer is a pipeline.Sink that records everything it receives. In async
// mode every Write signals back-pressure and the chunk is only acknowledged
// when Consume calls the stored resume function.
type Consumer struct {
	async bool

	mu           sync.Mutex
	data         bytes.Buffer
	writes       int
	resume       func()
	completed    bool
	err          error
	terminations int
	cancel       pipeline.CancelFunc
	done         chan struct{}
}

// NewConsumer returns a Consumer. async selects back-pressure mode.
func NewConsumer(async bool) *Consumer {
	return &Consumer{async: async, done: make(chan struct{})}
}

// Consume starts body and pumps pending resumes until the producer stops
// asking for them.
func (c *Consumer) Consume(body pipeline.BodyStream) {
	if body == nil {
		c.Complete()
		return
	}
	cancel := body.Stream(c)

	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.resume
		c.resume = nil
		c.mu.Unlock()

		if next == nil {
			return
		}
		next()
	}
}

// Write implements pipeline.Sink.
func (c *Consumer) Write(chunk []byte, resume func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data.Write(chunk)
	c.writes++
	if !c.async || resume == nil {
		return false
	}
	c.resume = resume
	return true
}

// Fail implements pipeline.Sink.
func (c *Consumer) Fail(err error) {
	c.terminate(err, false)
}

// Complete implements pipeline.Sink.
func (c *Consumer) Complete() {
	c.terminate(nil, true)
}

func (c *Consumer) terminate(err error, completed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.terminations++
	if c.terminations > 1 {
		return
	}
	c.err = err
	c.completed = completed
	close(c.done)
}

// Cancel invokes the cancel function returned by the body stream.
func (c *Consumer) Cancel() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Done is closed on the first Fail or Complete.
func (c *Consumer) Done() <-chan struct{} { return c.done }

// Data returns a copy of the bytes written so far.
func (c *Consumer) Data() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return bytes.Clone(c.data.Bytes())
}

// Writes returns the number of Write calls.
func (c *Consumer) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

// Completed reports whether the stream completed normally.
func (c *Consumer) Completed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed
}

// Err returns the error passed to Fail, if any.
func (c *Consumer) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Terminations returns how many terminal events were received. A well
// behaved stream delivers exactly one.
func (c *Consumer) Terminations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.terminations
}
