package lockgraph

import (
	"io"
	"log"
	"math/rand"
	"testing"
)

// workloads enumerates the concurrency/write-ratio matrix the benchmarks
// below are driven against; "write" here means "drives a LockMany that
// also Joins".
var workloads = []struct {
	name        string
	concurrency int
	writeRatio  float32
}{
	{"Serial", 1, 0.10},
	{"Serial, heavy writes", 1, 0.50},
	{"Low concurrency", 2, 0.10},
	{"Medium concurrency", 10, 0.10},
	{"High concurrency", 20, 0.10},
	{"High concurrency, heavy writes", 20, 0.50},
}

const (
	serialConcurrency = 1
	lowConcurrency    = 2
	mediumConcurrency = 10
	highConcurrency   = 20

	writeFrac      = 0.1
	heavyWriteFrac = 0.5
)

func BenchmarkSerial(b *testing.B) {
	benchmarkLocking(b, serialConcurrency, writeFrac)
}

func BenchmarkSerialHeavyJoins(b *testing.B) {
	benchmarkLocking(b, serialConcurrency, heavyWriteFrac)
}

func BenchmarkLowConcurrency(b *testing.B) {
	benchmarkLocking(b, lowConcurrency, writeFrac)
}

func BenchmarkMediumConcurrency(b *testing.B) {
	benchmarkLocking(b, mediumConcurrency, writeFrac)
}

func BenchmarkHighConcurrency(b *testing.B) {
	benchmarkLocking(b, highConcurrency, writeFrac)
}

func BenchmarkHighConcurrencyHeavyJoins(b *testing.B) {
	benchmarkLocking(b, highConcurrency, heavyWriteFrac)
}

// benchmarkLocking drives `concurrency` goroutines against a fixed
// population of References, each either taking a single LockOne or, with
// probability writeFrac, building a two-Reference Locker and Joining (then
// Splitting) its two References before releasing. The debug logger is discarded by
// default; goroutines are fanned out through a buffered channel barrier
// rather than an errgroup.
func benchmarkLocking(b *testing.B, concurrency int, writeFrac float32) {
	l := log.New(io.Discard, "", 0)

	const nrefs = 10
	refs := make([]*Reference, nrefs)
	for i := range refs {
		r, err := NewReference()
		if err != nil {
			b.Fatalf("NewReference: %v", err)
		}
		refs[i] = r
	}

	// sem bounds the number of simultaneously in-flight handlers to
	// `concurrency`.
	sem := make(chan struct{}, concurrency)
	done := make(chan struct{})

	worker := func(seed int64) {
		defer func() { <-sem; done <- struct{}{} }()
		rng := rand.New(rand.NewSource(seed))

		i := rng.Intn(nrefs)
		if rng.Float32() >= writeFrac {
			lock, err := LockOne(refs[i])
			if err != nil {
				l.Printf("LockOne failed: %v", err)
				return
			}
			UnlockOne(lock)
			return
		}

		j := rng.Intn(nrefs)
		lk, err := NewLocker(refs[i], refs[j])
		if err != nil {
			l.Printf("NewLocker failed: %v", err)
			return
		}
		lk.Lock()
		if refs[i] != refs[j] {
			if link, err := lk.Join(refs[i], refs[j]); err == nil {
				lk.Split(link)
			}
		}
		lk.Unlock()
		lk.Free()
	}

	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		sem <- struct{}{}
		go worker(int64(n))
	}
	for n := 0; n < b.N; n++ {
		<-done
	}

	for _, r := range refs {
		r.Clean()
	}
}
