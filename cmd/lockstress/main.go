// Package main provides the lockstress CLI entry point.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/dijkstracula/lockgraph"
)

var (
	flagRefs      int
	flagWorkers   int
	flagDuration  time.Duration
	flagJoinOneIn int
	flagMaxLock   int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "lockstress",
		Short: "Hammer a lockgraph population with concurrent LockOne/LockMany/Join/Split",
		Long: `lockstress drives a population of lockgraph.Reference values with several
concurrent workers, each repeatedly choosing between a single LockOne and a
LockMany over a random subset of the population, occasionally Joining two of
the References it holds together and Splitting them back apart on a later
pass. It exits nonzero if any worker observes an invariant violation.`,
		RunE: runStress,
	}

	rootCmd.Flags().IntVar(&flagRefs, "refs", 150, "number of References in the population")
	rootCmd.Flags().IntVar(&flagWorkers, "workers", 8, "number of concurrent workers")
	rootCmd.Flags().DurationVar(&flagDuration, "duration", 15*time.Second, "how long to run")
	rootCmd.Flags().IntVar(&flagJoinOneIn, "join-one-in", 32, "roughly 1-in-N LockMany calls attempt a Join")
	rootCmd.Flags().IntVar(&flagMaxLock, "max-lock", 20, "exclusive upper bound on the number of References per LockMany")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type counters struct {
	one, many, join, split atomic.Int64
}

type worker struct {
	id   int
	refs []*lockgraph.Reference
	rng  *rand.Rand
	link *lockgraph.Link
	ctr  *counters
}

func (w *worker) lockOne() {
	i := w.rng.Intn(len(w.refs))
	lock, err := lockgraph.LockOne(w.refs[i])
	if err != nil {
		return
	}
	lockgraph.UnlockOne(lock)
	w.ctr.one.Add(1)
}

func (w *worker) lockMany() error {
	w.ctr.many.Add(1)

	if w.link != nil {
		lk, err := lockgraph.NewLocker(w.link.A, w.link.B)
		if err != nil {
			return fmt.Errorf("worker %d: %w", w.id, err)
		}
		lk.Lock()
		lk.Split(w.link)
		lk.Unlock()
		lk.Free()
		w.link = nil
		w.ctr.split.Add(1)
	}

	nlock := w.rng.Intn(flagMaxLock)
	if nlock == 0 {
		return nil
	}

	picks := make([]*lockgraph.Reference, nlock)
	for i := range picks {
		picks[i] = w.refs[w.rng.Intn(len(w.refs))]
	}

	lk, err := lockgraph.NewLocker(picks...)
	if err != nil {
		return fmt.Errorf("worker %d: %w", w.id, err)
	}
	lk.Lock()

	if nlock >= 2 && picks[0] != picks[1] && w.rng.Intn(flagJoinOneIn) == 0 {
		link, err := lk.Join(picks[0], picks[1])
		if err != nil {
			lk.Unlock()
			lk.Free()
			return fmt.Errorf("worker %d: join: %w", w.id, err)
		}
		w.link = link
		w.ctr.join.Add(1)
	}

	lk.Unlock()
	lk.Free()
	return nil
}

func (w *worker) run(stop <-chan struct{}, errs chan<- error) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		if w.rng.Intn(32) != 0 {
			w.lockOne()
		} else if err := w.lockMany(); err != nil {
			errs <- err
			return
		}
	}
}

func runStress(cmd *cobra.Command, args []string) error {
	fmt.Printf("lockstress: %d refs, %d workers, %s\n", flagRefs, flagWorkers, flagDuration)

	refs := make([]*lockgraph.Reference, flagRefs)
	for i := range refs {
		r, err := lockgraph.NewReference()
		if err != nil {
			return fmt.Errorf("NewReference: %w", err)
		}
		refs[i] = r
	}

	ctr := &counters{}
	workers := make([]*worker, flagWorkers)
	for i := range workers {
		workers[i] = &worker{
			id:   i,
			refs: refs,
			rng:  rand.New(rand.NewSource(time.Now().UnixNano() + int64(i))),
			ctr:  ctr,
		}
	}

	stop := make(chan struct{})
	errs := make(chan error, flagWorkers)
	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(w *worker) {
			defer wg.Done()
			w.run(stop, errs)
		}(w)
	}

	timer := time.NewTimer(flagDuration)
	select {
	case <-timer.C:
	case err := <-errs:
		close(stop)
		wg.Wait()
		return err
	}
	close(stop)
	wg.Wait()

	for _, r := range refs {
		r.Clean()
	}
	for _, w := range workers {
		if w.link != nil {
			var nilLocker *lockgraph.Locker
			nilLocker.Split(w.link)
		}
	}

	fmt.Printf("LockOne: %d  LockMany: %d  Join: %d  Split: %d\n",
		ctr.one.Load(), ctr.many.Load(), ctr.join.Load(), ctr.split.Load())
	return nil
}
