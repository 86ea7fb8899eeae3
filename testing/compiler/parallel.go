package compiler

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Parallel compiles several binaries at once into the same directory.
type Parallel struct {
	*Compiler
	parallelism int
	work        []Work
}

func NewParallel(parallelism int) *Parallel {
	return &Parallel{
		Compiler:    New(),
		parallelism: parallelism,
	}
}

func (p *Parallel) Add(work Work) {
	p.work = append(p.work, work)
}

// Run compiles everything added, returning the first failure.
func (p *Parallel) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.parallelism)
	for _, w := range p.work {
		w := w
		g.Go(func() error {
			_, err := p.Compile(ctx, w)
			return err
		})
	}
	return g.Wait()
}
