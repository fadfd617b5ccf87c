// Command forkjoindemo exercises the scheduler and allocator together:
// fib via pardo, a parallel prefix-sum via parfor, and an allocator
// churn pass, all driven off flags.
package main

import (
	"flag"
	"fmt"
	"os"

	"forkjoin/alloc"
	"forkjoin/sched"
)

func main() {
	mode := flag.String("mode", "fib", "Demo to run: fib, prefixsum, or churn")
	n := flag.Int("n", 30, "Problem size (fib index, prefix-sum length, or churn iterations per worker)")
	threads := flag.Int("threads", 0, "Number of worker threads (0 = NUM_THREADS env or hardware concurrency)")
	backend := flag.String("backend", "lifeline", "Scheduler backend: lifeline or simple")
	stats := flag.Bool("stats", false, "Print allocator stats after the run")

	flag.Parse()

	b := sched.BackendLifeline
	if *backend == "simple" {
		b = sched.BackendSimple
	}

	s := sched.New(sched.PoolOptions{NumWorkers: *threads, Backend: b})
	defer s.Destroy()

	alloc.SetScheduler(s.NumWorkers(), s.WorkerID, s.Parfor)

	switch *mode {
	case "fib":
		runFib(s, *n)
	case "prefixsum":
		runPrefixSum(s, *n)
	case "churn":
		runChurn(s, *n)
	default:
		fmt.Fprintf(os.Stderr, "forkjoindemo: unknown mode %q\n", *mode)
		os.Exit(1)
	}

	if *stats {
		alloc.Default().PrintStats()
	}
}

func runFib(s *sched.Scheduler, n int) {
	var fib func(int) int
	fib = func(n int) int {
		if n < 2 {
			return n
		}
		var a, b int
		s.Pardo(
			func() { a = fib(n - 1) },
			func() { b = fib(n - 2) },
			false,
		)
		return a + b
	}
	fmt.Printf("fib(%d) = %d\n", n, fib(n))
}

func runPrefixSum(s *sched.Scheduler, n int) {
	a := alloc.NewArrayNoInit[int64](alloc.Default(), n)
	s.Parfor(0, n, func(i int) { a[i] = int64(i) }, 0, false)

	var sum int64
	for _, v := range a {
		sum += v
	}
	fmt.Printf("sum(a[0..%d)) = %d\n", n, sum)
	alloc.DeleteArray(alloc.Default(), a)
}

func runChurn(s *sched.Scheduler, itersPerWorker int) {
	sizes := []int{8, 64, 512, 4096, 65536}
	a := alloc.Default()
	s.Parfor(0, s.NumWorkers(), func(w int) {
		for i := 0; i < itersPerWorker; i++ {
			n := uintptr(sizes[i%len(sizes)])
			ptr := a.Allocate(n)
			a.Deallocate(ptr, n)
		}
	}, 1, false)
	a.Clear()
	fmt.Printf("churn complete, large_allocated = %d\n", a.LargeAllocated())
}
