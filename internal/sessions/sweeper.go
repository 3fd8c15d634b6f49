// Copyright 2026 Robert Macrae. All rights reserved.
// SPDX-License-Identifier: LicenseRef-Proprietary

package sessions

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper periodically destroys sessions past their expiry deadline. It
// carries no state of its own; correctness lives in the registry (destroy is
// idempotent), so a delayed or overlapping sweep cannot destroy early or
// double-destroy.
type Sweeper struct {
	cron *cron.Cron
}

// StartSweeper schedules SweepExpired on the registry every interval.
func StartSweeper(reg *Registry, interval time.Duration) (*Sweeper, error) {
	c := cron.New()
	_, err := c.AddFunc("@every "+interval.String(), func() {
		if ids := reg.SweepExpired(time.Now()); len(ids) > 0 {
			log.Printf("[sweeper] destroyed %d expired session(s): %v", len(ids), ids)
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	log.Printf("[sweeper] started (interval=%s)", interval)
	return &Sweeper{cron: c}, nil
}

// Stop cancels the schedule and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
