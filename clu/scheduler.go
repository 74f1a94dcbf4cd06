package clu

import "github.com/sirupsen/logrus"

// Scheduler drives a Clusterer's tick loop against a StreamSource. The loop
// terminates once the stream source returns two consecutive empty batches,
// so a source with an occasional idle tick is not mistaken for exhaustion.
type Scheduler struct {
	clusterer *Clusterer
}

// NewScheduler builds a Scheduler that will pull from clusterer's own
// configured StreamSource.
func NewScheduler(clusterer *Clusterer) *Scheduler {
	return &Scheduler{clusterer: clusterer}
}

// Run executes the tick loop to completion: each tick pulls a batch,
// processes every sequence in arrival order, and stops after two
// consecutive empty batches. If buffering is enabled, a final forced flush
// runs once the loop ends.
func (s *Scheduler) Run() {
	c := s.clusterer
	consecutiveEmpty := 0
	iteration := 0

	for !c.finish {
		iteration++
		c.tick++
		logrus.Debugf("scheduler tick %d (iteration %d)", c.tick, iteration)

		batch := c.source.AdvanceTick()
		if len(batch) == 0 {
			consecutiveEmpty++
			if consecutiveEmpty >= 2 {
				c.finish = true
				logrus.Infof("stream exhausted at tick %d after %d consecutive empty batches", c.tick, consecutiveEmpty)
				break
			}
			continue
		}
		consecutiveEmpty = 0

		for _, item := range batch {
			hash := item.Hash
			if hash == "" {
				hash = c.hashFn.Hash(item.Sequence)
			}
			c.ProcessSequence(RefBoth(hash, item.Sequence), true)
		}
	}

	if c.config.BufferingEnabled {
		logrus.Debugf("final buffer flush at tick %d", c.tick)
		c.FlushBuffer(true, c.tick)
	}
}
