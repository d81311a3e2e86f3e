// Copyright © 2026 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// CoalMig is a tool for coalescent analysis
// of multiple populations with migration.
package main

import (
	"github.com/js-arias/coalmig/cmd/coalmig/like"
	"github.com/js-arias/coalmig/cmd/coalmig/stats"
	"github.com/js-arias/coalmig/cmd/coalmig/tree"
	"github.com/js-arias/command"
)

var app = &command.Command{
	Usage: "coalmig <command> [<argument>...]",
	Short: "a tool for coalescent analysis with migration",
}

func init() {
	app.Add(tree.Command)
	app.Add(stats.Command)
	app.Add(like.Command)
}

func main() {
	app.Main()
}
