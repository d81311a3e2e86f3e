// Copyright © 2026 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package like implements a command to compute
// the log likelihood of the loci of a coalmig project
// under its demographic model.
package like

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/js-arias/coalmig/genealogy"
	"github.com/js-arias/coalmig/project"
	"github.com/js-arias/command"
)

var Command = &command.Command{
	Usage: `like [--scale <value>] [--heredity <value>]
	[--cpu <number>] <project-file>`,
	Short: "compute the log likelihood of a project",
	Long: `
Command like reads a CoalMig project, embeds the gene tree of each locus in
the population tree, and computes the log likelihood of each locus under the
coalescent with migration, using the population sizes and migration rates
stored in the project.

The flag --scale sets the number of years per unit of mutational time used to
scale the ages of the gene trees. Its default value is 1.

The flag --heredity sets the heredity multiplier of the loci. Its default
value is 1.

Loci are independent, so they are processed in parallel. By default all
available CPUs will be used; set the flag --cpu to use a different number.

The argument of the command is the name of the project file.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var scaleFlag float64
var heredityFlag float64
var numCPU int

func setFlags(c *command.Command) {
	c.Flags().Float64Var(&scaleFlag, "scale", 1, "")
	c.Flags().Float64Var(&heredityFlag, "heredity", 1, "")
	c.Flags().IntVar(&numCPU, "cpu", runtime.GOMAXPROCS(0), "")
}

type locusLike struct {
	lnL float64
	err error
}

func run(c *command.Command, args []string) error {
	if len(args) < 1 {
		return c.UsageError("expecting project file")
	}

	p, err := project.Read(args[0])
	if err != nil {
		return err
	}
	pt, loci, err := p.Loci(scaleFlag, heredityFlag)
	if err != nil {
		return err
	}

	total := genealogy.NewTotal(pt.NumPops(), pt.NumBands())
	res := make([]locusLike, len(loci))

	jobs := make(chan int, numCPU)
	var wg sync.WaitGroup
	for w := 0; w < numCPU; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				res[i] = likeLocus(loci[i].Locus, total)
			}
		}()
	}
	for i := range loci {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var sum float64
	for i, r := range res {
		if r.err != nil {
			return r.err
		}
		fmt.Fprintf(c.Stdout(), "locus %d (%s): logLike %.6f\n", i, loci[i].Name, r.lnL)
		sum += r.lnL
	}
	fmt.Fprintf(c.Stdout(), "total logLike: %.6f\n", sum)

	st := total.Stats()
	for pop := 0; pop < pt.NumPops(); pop++ {
		fmt.Fprintf(c.Stdout(), "pop %2d (%s): coals %d, coal-stat %.6f\n", pop, pt.PopName(pop), st.NumCoals[pop], st.CoalStats[pop])
	}
	for id := 0; id < pt.NumBands(); id++ {
		b, _ := pt.Band(id)
		fmt.Fprintf(c.Stdout(), "band %2d (%s -> %s): migs %d, mig-stat %.6f\n", id, pt.PopName(b.Source), pt.PopName(b.Target), st.NumMigs[id], st.MigStats[id])
	}
	return nil
}

// likeLocus computes the statistics of a locus
// and commits them into the totals.
func likeLocus(l *genealogy.Locus, total *genealogy.Total) locusLike {
	if err := l.ComputeGenetreeStats(); err != nil {
		return locusLike{err: err}
	}
	total.Add(l.Stats())
	return locusLike{lnL: l.LogLikelihood(nil)}
}
