/*
Copyright © 2025 Jayson Grace <jayson.e.grace@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/

package builder

import (
	"golang.org/x/sync/errgroup"
)

// DefaultMaxConcurrency is the default number of images processed at once
// in concurrent mode.
const DefaultMaxConcurrency = 4

// Executor runs units of work. Sequential and concurrent dispatch share
// one algorithm and differ only in the Executor they use.
type Executor interface {
	// Go schedules fn. It may block until a worker is free.
	Go(fn func())
	// Wait blocks until every scheduled fn has returned.
	Wait()
}

// InlineExecutor runs each unit immediately on the calling goroutine. It
// is a worker pool of size one.
type InlineExecutor struct{}

// Go implements Executor.
func (InlineExecutor) Go(fn func()) { fn() }

// Wait implements Executor.
func (InlineExecutor) Wait() {}

// PoolExecutor runs units on at most a fixed number of goroutines. Units
// never cancel each other.
type PoolExecutor struct {
	g errgroup.Group
}

// NewPoolExecutor creates a pool with the given worker limit. A limit of
// zero or less selects DefaultMaxConcurrency.
func NewPoolExecutor(limit int) *PoolExecutor {
	if limit <= 0 {
		limit = DefaultMaxConcurrency
	}
	p := &PoolExecutor{}
	p.g.SetLimit(limit)
	return p
}

// Go implements Executor.
func (p *PoolExecutor) Go(fn func()) {
	p.g.Go(func() error {
		fn()
		return nil
	})
}

// Wait implements Executor.
func (p *PoolExecutor) Wait() {
	_ = p.g.Wait()
}

// NewExecutor returns a PoolExecutor when concurrent is set and an
// InlineExecutor otherwise.
func NewExecutor(concurrent bool, limit int) Executor {
	if concurrent {
		return NewPoolExecutor(limit)
	}
	return InlineExecutor{}
}
