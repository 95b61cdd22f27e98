package mailprobe

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// VerifyMany verifies multiple addresses concurrently and returns exactly
// one result per input. The result order matches the input slice order.
// Addresses are sorted by domain internally for better MX cache reuse.
//
// If ctx ends first, the error is ctx.Err() and the slots of addresses
// that were not finished hold the zero Result.
func (v *Verifier) VerifyMany(ctx context.Context, emails []string, opts ...ConcurrencyOptions) ([]Result, error) {
	if v.err != nil {
		return nil, v.err
	}

	order := make([]int, len(emails))
	domains := make([]string, len(emails))
	for i, e := range emails {
		order[i] = i
		if atIdx := strings.LastIndex(e, "@"); atIdx >= 0 {
			domains[i] = strings.ToLower(e[atIdx+1:])
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return domains[order[a]] < domains[order[b]]
	})

	results := make([]Result, len(emails))
	err := v.run(ctx, emails, order, firstOpt(opts).workers(len(emails)), func(idx int, r Result) {
		results[idx] = r
	})
	return results, err
}

// VerifyEach verifies addresses concurrently and calls fn once per address,
// strictly in input order, as soon as every earlier address is done.
// fn runs on the calling goroutine; idx is the position in emails.
// If ctx ends first, fn has seen the finished prefix of emails and the
// error is ctx.Err().
func (v *Verifier) VerifyEach(ctx context.Context, emails []string, fn func(idx int, r Result), opts ...ConcurrencyOptions) error {
	if v.err != nil {
		return v.err
	}

	order := make([]int, len(emails))
	for i := range emails {
		order[i] = i
	}

	type item struct {
		idx int
		res Result
	}
	out := make(chan item, len(emails))
	var runErr error
	go func() {
		runErr = v.run(ctx, emails, order, firstOpt(opts).workers(len(emails)), func(idx int, r Result) {
			out <- item{idx, r}
		})
		close(out)
	}()

	// reorder buffer: hold results until their predecessors are emitted
	pending := make(map[int]Result)
	next := 0
	for it := range out {
		pending[it.idx] = it.res
		for {
			r, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			fn(next, r)
			next++
		}
	}
	return runErr
}

// run feeds jobs in the given order to a bounded worker pool. emit may be
// called from several goroutines at once, but never twice for one index.
// Once ctx ends no new job is started, and addresses left without a
// verdict make run return ctx.Err().
func (v *Verifier) run(ctx context.Context, emails []string, order []int, workers int, emit func(idx int, r Result)) error {
	if len(emails) == 0 {
		return nil
	}

	bufSize := len(order)
	if bufSize > 1000 {
		bufSize = 1000
	}
	jobs := make(chan int, bufSize)
	go func() {
		defer close(jobs)
		for _, idx := range order {
			select {
			case jobs <- idx:
			case <-ctx.Done():
				return
			}
		}
	}()

	var emitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if ctx.Err() != nil {
					continue
				}
				r, err := v.verify(ctx, emails[idx])
				if err != nil {
					continue
				}
				emit(idx, r)
				emitted.Add(1)
			}
		}()
	}
	wg.Wait()

	if int(emitted.Load()) < len(emails) {
		return ctx.Err()
	}
	return nil
}

func firstOpt(opts []ConcurrencyOptions) ConcurrencyOptions {
	if len(opts) > 0 {
		return opts[0]
	}
	return ConcurrencyOptions{}
}
