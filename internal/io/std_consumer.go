package io

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/stephenfox/image2qtree/tools"
)

type Consumer interface {
	Consume(workchan chan *WorkUnit, errchan chan error, waitGroup *sync.WaitGroup)
}

type StandardConsumer struct{}

func NewStandardConsumer() *StandardConsumer {
	return &StandardConsumer{}
}

// Continually consumes WorkUnits submitted to a work channel, persisting each
// to disk. Continues working until the work channel is closed or an error is
// raised. In this last case submits the error to an error channel before
// quitting.
func (c *StandardConsumer) Consume(workchan chan *WorkUnit, errchan chan error, waitGroup *sync.WaitGroup) {
	failed := false
	for {
		work, ok := <-workchan
		if !ok {
			// channel was closed by producer, quit infinite loop
			break
		}

		// after a failure keep draining so the producer never blocks
		if failed {
			continue
		}

		err := c.doWork(work)

		if err != nil {
			errchan <- err
			failed = true
		}
	}

	waitGroup.Done()
}

func (c *StandardConsumer) doWork(workUnit *WorkUnit) error {
	err := tools.CreateDirectoryIfDoesNotExist(filepath.Dir(workUnit.FilePath))
	if err != nil {
		return err
	}
	return os.WriteFile(workUnit.FilePath, workUnit.Data, 0666)
}
