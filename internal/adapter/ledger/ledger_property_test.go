package ledger

import (
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"rtb-bidder/internal/core/domain"
)

// op is one step of a random ledger workload. kind selects the operation,
// arg is its amount or the index of the reservation it targets.
type op struct {
	kind int
	arg  int64
}

func genOp() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(0, 4),
		gen.Int64Range(0, 40),
	).Map(func(v []any) op {
		return op{kind: v[0].(int), arg: v[1].(int64)}
	})
}

// TestLedgerAccountingProperties replays random workloads against a simple
// model and checks that committed funds never exceed the budget, spend only
// grows, and the ledger agrees with the model after every step.
func TestLedgerAccountingProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("ledger matches model and never overspends", prop.ForAll(
		func(total int64, ops []op) bool {
			l, clk := newTestLedger(t, Options{TTL: 10 * time.Second})
			if err := l.Open("c", total, 0); err != nil {
				return false
			}

			var (
				ids         []domain.ReservationID
				amounts     = map[domain.ReservationID]int64{}
				open        = map[domain.ReservationID]bool{}
				spent, held int64
			)
			pick := func(arg int64) (domain.ReservationID, bool) {
				if len(ids) == 0 {
					return "", false
				}
				return ids[int(arg)%len(ids)], true
			}

			for _, o := range ops {
				prevSpent := spent
				switch o.kind {
				case 0, 1:
					res, err := l.Reserve("c", o.arg)
					wantOK := o.arg > 0 && o.arg <= total-spent-held
					if (err == nil) != wantOK {
						return false
					}
					if err == nil {
						ids = append(ids, res.ID)
						amounts[res.ID] = o.arg
						open[res.ID] = true
						held += o.arg
					}
				case 2:
					id, ok := pick(o.arg)
					if !ok {
						continue
					}
					price := o.arg % (amounts[id] + 1)
					_, err := l.Confirm(id, price)
					if (err == nil) != open[id] {
						return false
					}
					if open[id] {
						open[id] = false
						held -= amounts[id]
						spent += price
					}
				case 3:
					id, ok := pick(o.arg)
					if !ok {
						continue
					}
					if _, err := l.Release(id); err != nil {
						return false
					}
					if open[id] {
						open[id] = false
						held -= amounts[id]
					}
				case 4:
					clk.Add(time.Duration(o.arg) * 100 * time.Millisecond)
					now := clk.Now()
					l.Sweep()
					for id, isOpen := range open {
						if isOpen {
							e, _ := l.lookup(id)
							if !now.Before(e.res.ExpiresAt) {
								open[id] = false
								held -= amounts[id]
							}
						}
					}
				}

				bal, err := l.Balance("c")
				if err != nil {
					return false
				}
				if bal.Spent != spent || bal.Outstanding != held {
					return false
				}
				if bal.Spent+bal.Outstanding > bal.Total || bal.Spent < prevSpent {
					return false
				}
			}
			return true
		},
		gen.Int64Range(1, 200),
		gen.SliceOf(genOp()),
	))

	properties.TestingRun(t)
}

// TestConcurrentReservationsProperties fans random amounts out over
// goroutines that reserve and then confirm, release or abandon their hold.
// Committed funds never exceed the budget, and once the TTL has passed a
// sweep leaves nothing pending.
func TestConcurrentReservationsProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("concurrent reservations never overspend or leak", prop.ForAll(
		func(total int64, amounts []int64) bool {
			l, clk := newTestLedger(t, Options{TTL: 10 * time.Second})
			if err := l.Open("c", total, 0); err != nil {
				return false
			}

			var (
				wg       sync.WaitGroup
				mu       sync.Mutex
				violated bool
			)
			check := func() {
				bal, err := l.Balance("c")
				if err != nil || bal.Spent+bal.Outstanding > bal.Total || bal.Available() < 0 {
					mu.Lock()
					violated = true
					mu.Unlock()
				}
			}
			for i, amount := range amounts {
				wg.Add(1)
				go func() {
					defer wg.Done()
					res, err := l.Reserve("c", amount)
					check()
					if err != nil {
						return
					}
					switch i % 3 {
					case 0:
						_, _ = l.Confirm(res.ID, amount/2)
					case 1:
						_, _ = l.Release(res.ID)
					}
					check()
				}()
			}
			wg.Wait()
			if violated {
				return false
			}

			clk.Add(11 * time.Second)
			l.Sweep()
			bal, err := l.Balance("c")
			if err != nil {
				return false
			}
			return bal.Outstanding == 0 && bal.Pending == 0 && bal.Spent <= bal.Total
		},
		gen.Int64Range(1, 500),
		gen.SliceOf(gen.Int64Range(1, 60)),
	))

	properties.TestingRun(t)
}
