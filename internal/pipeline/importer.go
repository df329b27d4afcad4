package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/theirongolddev/bopt/internal/ledger"
	"github.com/theirongolddev/bopt/internal/model"
	"github.com/theirongolddev/bopt/internal/source"
)

// maxImportErrors caps the rejection messages kept in an ImportResult.
const maxImportErrors = 50

// Poster posts and retracts expenses. *ledger.Service satisfies it.
type Poster interface {
	Post(ctx context.Context, in ledger.NewExpense) (model.Expense, error)
	Retract(ctx context.Context, expenseID string) error
}

// ImportResult counts what an import did.
type ImportResult struct {
	Posted     int
	Retracted  int
	Duplicates int // expense ids already on the ledger
	Missing    int // retractions of unknown expenses
	Rejected   int
	Errors     []string
}

// Import posts loaded records to the ledger. Budgets are imported in
// parallel, each budget's expenses in file order. Retractions run after
// every post. Re-importing the same file is harmless: known ids count as
// duplicates.
func Import(ctx context.Context, p Poster, records []source.Record, progressFn ProgressFunc) ImportResult {
	var (
		order    []string
		byBudget = make(map[string][]source.Record)
		retracts []source.Record
	)
	for _, r := range records {
		if r.Type == source.TypeRetract {
			retracts = append(retracts, r)
			continue
		}
		if _, ok := byBudget[r.BudgetID]; !ok {
			order = append(order, r.BudgetID)
		}
		byBudget[r.BudgetID] = append(byBudget[r.BudgetID], r)
	}

	var (
		posted, dupes, rejected, retracted, missing atomic.Int64
		processed                                   atomic.Int64
		mu                                          sync.Mutex
		errs                                        []string
	)
	total := len(records)
	reject := func(r source.Record, err error) {
		rejected.Add(1)
		mu.Lock()
		if len(errs) < maxImportErrors {
			errs = append(errs, fmt.Sprintf("%s:%d: %v", r.File, r.Line, err))
		}
		mu.Unlock()
	}
	tick := func() {
		n := processed.Add(1)
		if progressFn != nil {
			progressFn(int(n), total)
		}
	}

	if len(order) > 0 {
		work := make(chan string, len(order))
		for _, id := range order {
			work <- id
		}
		close(work)

		var wg sync.WaitGroup
		numWorkers := workers(len(order))
		wg.Add(numWorkers)
		for w := 0; w < numWorkers; w++ {
			go func() {
				defer wg.Done()
				for budgetID := range work {
					for _, r := range byBudget[budgetID] {
						if ctx.Err() != nil {
							return
						}
						_, err := p.Post(ctx, ledger.NewExpense{
							ID:         r.ID,
							BudgetID:   r.BudgetID,
							Category:   r.Category,
							OwnerID:    r.OwnerID,
							BusinessID: r.BusinessID,
							Amount:     r.Amount,
							Method:     r.Method,
							At:         r.At,
							Note:       r.Note,
						})
						switch {
						case err == nil:
							posted.Add(1)
						case isDuplicate(err):
							dupes.Add(1)
						default:
							reject(r, err)
						}
						tick()
					}
				}
			}()
		}
		wg.Wait()
	}

	for _, r := range retracts {
		if ctx.Err() != nil {
			break
		}
		err := p.Retract(ctx, r.ID)
		switch {
		case err == nil:
			retracted.Add(1)
		case errors.Is(err, model.ErrNotFound):
			missing.Add(1)
		default:
			reject(r, err)
		}
		tick()
	}

	return ImportResult{
		Posted:     int(posted.Load()),
		Retracted:  int(retracted.Load()),
		Duplicates: int(dupes.Load()),
		Missing:    int(missing.Load()),
		Rejected:   int(rejected.Load()),
		Errors:     errs,
	}
}

func isDuplicate(err error) bool {
	var ve *model.ValidationError
	return errors.As(err, &ve) && ve.Field == "id"
}
