/* Copyright 2019 Comcast Cable Communications Management, LLC
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

// Package main is a command-line tool for curve libraries.
//
//	curvetool SUBCOMMAND [FLAGS] [LIBRARY]
//
// The library is read from stdin when not given.  %inline("NAME")
// directives are resolved relative to the library's directory (or
// the current directory for stdin).
package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/Comcast/fcurve/library"
	"github.com/Comcast/fcurve/tools"
	"github.com/Comcast/fcurve/util"
)

func main() {
	if len(os.Args) < 2 {
		Usage()
		os.Exit(1)
	}

	name := os.Args[1]
	switch name {
	case "-h", "help", "-help", "--help":
		Usage()
		os.Exit(0)
	}

	cmd, have := Cmds[name]
	if !have {
		fmt.Fprintf(os.Stderr, "Unknown subcommand \"%s\"\n", name)
		Usage()
		os.Exit(1)
	}

	if err := run(context.Background(), cmd, os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd Cmd, args []string) error {
	fs := cmd.Flags()
	verbose := fs.Bool("v", false, "verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	util.Logging = *verbose

	var (
		l   *library.Library
		err error
	)
	if cmd.NeedsLibrary() {
		if 0 < fs.NArg() {
			l, err = tools.LoadLibrary(fs.Arg(0))
		} else {
			l, err = readLibrary()
		}
		if err != nil {
			return err
		}
	}

	return cmd.F(ctx, l, fs.Args())
}

func readLibrary() (*library.Library, error) {
	bs, err := tools.ReadAllWithInlines(os.Stdin, ".")
	if err != nil {
		return nil, err
	}
	return library.Parse(bs)
}

func Usage() {
	fmt.Fprintf(os.Stderr, "Usage: curvetool SUBCOMMAND [FLAGS] [LIBRARY]\n\nSubcommands:\n\n")
	names := make([]string, 0, len(Cmds))
	for name := range Cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cmd := Cmds[name]
		fmt.Fprintf(os.Stderr, "%s: %s\n", name, cmd.Doc())
		cmd.Flags().PrintDefaults()
		fmt.Fprintln(os.Stderr)
	}
}
