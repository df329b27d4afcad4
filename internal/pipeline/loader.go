package pipeline

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/theirongolddev/bopt/internal/source"
)

// LoadResult holds the output of the import loading pipeline.
type LoadResult struct {
	Records     []source.Record
	TotalFiles  int
	ParsedFiles int
	ParseErrors int
	FileErrors  int
	BatchCount  int
}

// ProgressFunc is called during loading to report progress.
// current is the number of units processed so far, total is the total count.
type ProgressFunc func(current, total int)

// Load discovers and parses every import file under path. defaultBudget
// applies to expense lines that name no budget. Files are parsed by a
// bounded worker pool; records keep file order.
func Load(path, defaultBudget string, progressFn ProgressFunc) (*LoadResult, error) {
	files, err := source.ScanDir(path)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	if len(files) == 0 {
		return &LoadResult{}, nil
	}
	for i := range files {
		files[i].BudgetID = defaultBudget
	}

	result := &LoadResult{
		TotalFiles: len(files),
		BatchCount: source.CountBatches(files),
	}

	numWorkers := workers(len(files))
	work := make(chan int, len(files))
	results := make([]source.ParseResult, len(files))
	var wg sync.WaitGroup
	var processed atomic.Int64

	for i := range files {
		work <- i
	}
	close(work)

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				results[idx] = source.ParseFile(files[idx])
				n := processed.Add(1)
				if progressFn != nil {
					progressFn(int(n), len(files))
				}
			}
		}()
	}

	wg.Wait()

	for _, pr := range results {
		if pr.Err != nil {
			result.FileErrors++
			continue
		}
		result.ParsedFiles++
		result.ParseErrors += pr.ParseErrors
		result.Records = append(result.Records, pr.Records...)
	}
	return result, nil
}

// workers sizes a pool for n units of work.
func workers(n int) int {
	w := runtime.GOMAXPROCS(0)
	if w < 1 {
		w = 4
	}
	if w > n {
		w = n
	}
	return w
}
