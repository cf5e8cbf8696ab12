package parser

import (
	"fmt"
	"runtime"
	"sync"
)

// ErrorPolicy decides what happens when a log line or file cannot be parsed.
type ErrorPolicy string

const (
	// PolicySkip silently drops bad lines. This is the default: usage logs
	// routinely contain non-usage entries.
	PolicySkip ErrorPolicy = "skip"
	// PolicyCollect keeps going but reports every bad line as an Issue.
	PolicyCollect ErrorPolicy = "collect"
	// PolicyFail aborts the load on the first bad line.
	PolicyFail ErrorPolicy = "fail"
)

// ParsePolicy validates a policy name from a flag or config value.
// An empty value means PolicySkip.
func ParsePolicy(s string) (ErrorPolicy, error) {
	switch ErrorPolicy(s) {
	case "":
		return PolicySkip, nil
	case PolicySkip, PolicyCollect, PolicyFail:
		return ErrorPolicy(s), nil
	}
	return "", fmt.Errorf("invalid on-parse-error policy %q (want skip, collect or fail)", s)
}

// parallelFiles runs fn over the file list with bounded concurrency.
func parallelFiles(files []string, workers int, fn func(i int, path string)) {
	if workers <= 0 {
		workers = defaultWorkers()
	}
	if workers > len(files) {
		workers = len(files)
	}
	if len(files) == 0 {
		return
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, path := range files {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, path string) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(i, path)
		}(i, path)
	}
	wg.Wait()
}

func defaultWorkers() int {
	n := runtime.NumCPU()
	if n > 8 {
		return 8 // file I/O stops scaling well past this
	}
	return n
}
