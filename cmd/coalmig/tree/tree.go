// Copyright © 2026 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package tree implements a command to print
// the population tree of a coalmig project.
package tree

import (
	"github.com/js-arias/coalmig/project"
	"github.com/js-arias/command"
)

var Command = &command.Command{
	Usage: "tree <project-file>",
	Short: "print the population tree of a project",
	Long: `
Command tree reads the population tree from a CoalMig project and prints the
populations and the migration bands in the standard output.

The argument of the command is the name of the project file.
	`,
	Run: run,
}

func run(c *command.Command, args []string) error {
	if len(args) < 1 {
		return c.UsageError("expecting project file")
	}

	p, err := project.Read(args[0])
	if err != nil {
		return err
	}

	pt, err := p.PopTree()
	if err != nil {
		return err
	}
	pt.Print(c.Stdout())
	return nil
}
