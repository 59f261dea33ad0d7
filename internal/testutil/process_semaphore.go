// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"runtime"
	"strconv"
	"sync"
)

// ProcessSemaphore returns a process-wide buffered channel that limits how
// many tests spawn probe worker processes at once. Acquire a slot by
// sending, release by receiving:
//
//	sem := testutil.ProcessSemaphore()
//	sem <- struct{}{}
//	defer func() { <-sem }()
//
// The capacity is PLUGCHECK_TEST_PROCESS_PARALLEL when set, otherwise
// min(GOMAXPROCS, 4).
var ProcessSemaphore = sync.OnceValue(func() chan struct{} {
	return make(chan struct{}, processParallelism())
})

func processParallelism() int {
	if v := os.Getenv("PLUGCHECK_TEST_PROCESS_PARALLEL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return min(runtime.GOMAXPROCS(0), 4)
}
