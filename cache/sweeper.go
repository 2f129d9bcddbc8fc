package cache

import (
	"context"
	"sync"
	"time"
)

// sweeper periodically reclaims expired entries nobody reads again.
//
// A single ticker-driven full scan per cache keeps ownership simple: the
// cache starts it in New and stops it in Close.
type sweeper struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func startSweeper(every time.Duration, pass func()) *sweeper {
	ctx, cancel := context.WithCancel(context.Background())
	s := &sweeper{cancel: cancel}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(every)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pass()
			}
		}
	}()
	return s
}

// stop cancels the loop and waits for an in-flight pass to finish.
func (s *sweeper) stop() {
	s.cancel()
	s.wg.Wait()
}
