// Copyright © 2026 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package stats implements a command to print
// the embedded genealogy and the sufficient statistics
// of the loci of a coalmig project.
package stats

import (
	"fmt"

	"github.com/js-arias/coalmig/genealogy"
	"github.com/js-arias/coalmig/poptree"
	"github.com/js-arias/coalmig/project"
	"github.com/js-arias/command"
)

var Command = &command.Command{
	Usage: "stats [--scale <value>] <project-file>",
	Short: "print the genealogy statistics of a project",
	Long: `
Command stats reads a CoalMig project, embeds the gene tree of each locus in
the population tree, and prints the interval chains and the sufficient
statistics of each locus in the standard output.

The flag --scale sets the number of years per unit of mutational time used to
scale the ages of the gene trees. Its default value is 1.

The argument of the command is the name of the project file.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var scaleFlag float64

func setFlags(c *command.Command) {
	c.Flags().Float64Var(&scaleFlag, "scale", 1, "")
}

func run(c *command.Command, args []string) error {
	if len(args) < 1 {
		return c.UsageError("expecting project file")
	}

	p, err := project.Read(args[0])
	if err != nil {
		return err
	}
	pt, loci, err := p.Loci(scaleFlag, 1)
	if err != nil {
		return err
	}

	for i, ld := range loci {
		if err := ld.Locus.ComputeGenetreeStats(); err != nil {
			return err
		}

		fmt.Fprintf(c.Stdout(), "locus %d (%s):\n", i, ld.Name)
		ld.Locus.Print(c.Stdout())
		printStats(c, pt, ld.Locus)
		fmt.Fprintf(c.Stdout(), "\n")
	}
	return nil
}

func printStats(c *command.Command, pt *poptree.Tree, l *genealogy.Locus) {
	st := l.Stats()

	fmt.Fprintf(c.Stdout(), "statistics:\n")
	for pop := 0; pop < pt.NumPops(); pop++ {
		fmt.Fprintf(c.Stdout(), "  pop %2d (%s): coals %d, coal-stat %.6f\n", pop, pt.PopName(pop), st.NumCoals[pop], st.CoalStats[pop])
	}
	for id := 0; id < pt.NumBands(); id++ {
		b, _ := pt.Band(id)
		fmt.Fprintf(c.Stdout(), "  band %2d (%s -> %s): migs %d, mig-stat %.6f\n", id, pt.PopName(b.Source), pt.PopName(b.Target), st.NumMigs[id], st.MigStats[id])
	}
	fmt.Fprintf(c.Stdout(), "logLike: %.6f\n", l.LogLikelihood(nil))
}
