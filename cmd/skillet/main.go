/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package main is a command-line tool for running and examining
// skillets.
//
//	skillet run -d skillets -s hostname_check -c running.toml
//	skillet analyze -f skillets/hostname
//	skillet history -db runs.db -s hostname_check
//
// Set SKILLET_DEBUG=true for debug logging.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
)

// Cmd is a subcommand.
type Cmd interface {
	// F runs the subcommand after its flags have been parsed.
	F(ctx context.Context) error

	Doc() string

	// Flags binds the subcommand's flags.
	Flags() *flag.FlagSet
}

var Cmds = map[string]Cmd{
	"run":     &Runner{},
	"stdio":   &StdioCmd{},
	"report":  &Reporter{},
	"analyze": &Analyzer{},
	"graph":   &Grapher{},
	"dump":    &Dumper{},
	"list":    &Lister{},
	"history": &History{},
	"expect":  &Expecter{},
}

// Failed is returned by subcommands that worked but found problems.
var Failed = errors.New("failed")

func main() {
	if len(os.Args) < 2 {
		Usage()
		os.Exit(1)
	}

	cmd, have := Cmds[os.Args[1]]
	if !have {
		fmt.Printf("Unknown subcommand \"%s\"\n", os.Args[1])
		Usage()
		os.Exit(1)
	}

	if err := cmd.Flags().Parse(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := cmd.F(ctx); err != nil {
		if err == Failed {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func Usage() {
	fmt.Printf("Subcommands:\n\n")
	names := make([]string, 0, len(Cmds))
	for name := range Cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cmd := Cmds[name]
		cmd.Flags().Usage()
		fmt.Println("  " + cmd.Doc())
		fmt.Println()
	}
}
