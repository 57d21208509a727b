package annotate

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/inodb/oncokb-transcript/internal/cache"
)

// WorkItem is one alteration queued for annotation.
type WorkItem struct {
	Seq   int
	Raw   string
	Genes []*cache.Gene
	Patch Patch
}

// WorkResult is the outcome for one WorkItem. Exactly one of Alteration
// and Err is set.
type WorkResult struct {
	Seq        int
	Raw        string
	Alteration *Alteration
	Err        error
}

// ParallelAnnotate fans items out to workers goroutines (runtime.NumCPU()
// when workers <= 0). Results arrive in completion order; pass the channel
// to OrderedCollect to restore input order. Once ctx is done the remaining
// items are answered with ctx.Err() without being annotated. The channel is
// closed after items is closed and drained.
func (a *Annotator) ParallelAnnotate(ctx context.Context, items <-chan WorkItem, workers int) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	results := make(chan WorkResult, 2*workers)

	// Workers always return nil: an item's failure belongs to that item's
	// WorkResult and must not stop the others.
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for item := range items {
				r := WorkResult{Seq: item.Seq, Raw: item.Raw}
				if err := ctx.Err(); err != nil {
					r.Err = err
				} else {
					r.Alteration, r.Err = a.Annotate(ctx, item.Raw, item.Genes, item.Patch)
				}
				results <- r
			}
			return nil
		})
	}

	go func() {
		g.Wait()
		close(results)
	}()
	return results
}

// sequencer releases results in Seq order starting from 0.
type sequencer struct {
	next    int
	pending map[int]WorkResult
}

// push buffers r and calls emit for every result that is now in order.
func (s *sequencer) push(r WorkResult, emit func(WorkResult) error) error {
	s.pending[r.Seq] = r
	for {
		ready, ok := s.pending[s.next]
		if !ok {
			return nil
		}
		delete(s.pending, s.next)
		s.next++
		if err := emit(ready); err != nil {
			return err
		}
	}
}

// OrderedCollect calls fn for each result in Seq order and blocks until
// results is closed. If fn fails, the rest of the channel is drained so
// producers can finish, and the error is returned.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	s := sequencer{pending: make(map[int]WorkResult)}
	for r := range results {
		if err := s.push(r, fn); err != nil {
			for range results {
			}
			return err
		}
	}
	return nil
}
