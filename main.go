package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"tally/cell"
	"tally/engine"
	"tally/kernel"
	"tally/parser"
	"tally/repl"
	"tally/server"
	"tally/sheet"
	"tally/value"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	sub := os.Args[1]
	switch sub {
	case "-h", "--help", "help":
		usage()
		return
	case "parse":
		os.Exit(parseCommand(os.Args[2:]))
	case "eval":
		os.Exit(evalCommand(os.Args[2:]))
	case "repl":
		repl.Start(os.Stdin, os.Stdout)
	case "serve":
		os.Exit(serveCommand(os.Args[2:]))
	case "kernel":
		os.Exit(kernelCommand(os.Args[2:]))
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand: %s\n", sub)
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("usage: tally <command> [args]")
	fmt.Println()
	fmt.Println("commands:")
	fmt.Println("  parse <formula>              print the AST and dependency list")
	fmt.Println("  eval <formula> [A1=v ...]    evaluate against inline cell values")
	fmt.Println("  repl                         interactive formula shell")
	fmt.Println("  serve [-addr :8080]          HTTP + websocket service")
	fmt.Println("  kernel [-addr tcp://127.0.0.1:5555]")
	fmt.Println("                               ZeroMQ compute service")
}

func parseCommand(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: tally parse <formula>")
		return 2
	}
	source := args[0]
	expr, deps, err := parser.Compile(source)
	if err != nil {
		if pe, ok := err.(*parser.ParseError); ok {
			fmt.Fprintln(os.Stderr, parser.FormatParseErrors([]parser.ParseError{*pe}, source))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		return 1
	}
	fmt.Println(expr.String())
	if len(deps) > 0 {
		parts := make([]string, len(deps))
		for i, dep := range deps {
			parts[i] = dep.String()
		}
		fmt.Println("deps:", strings.Join(parts, ", "))
	}
	return 0
}

func evalCommand(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: tally eval <formula> [A1=value ...]")
		return 2
	}

	s := sheet.New()
	for _, assign := range args[1:] {
		eq := strings.Index(assign, "=")
		if eq <= 0 {
			fmt.Fprintf(os.Stderr, "bad cell assignment %q (want A1=value)\n", assign)
			return 2
		}
		if err := s.SetA1(assign[:eq], assign[eq+1:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	eng := engine.New()
	compiled, err := eng.Compile(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	result := eng.Evaluate(compiled, sheetResolver{s})
	fmt.Println(result.Inspect())
	return 0
}

// sheetResolver adapts a sheet to the one-shot engine read path, with no
// base cell set.
type sheetResolver struct {
	s *sheet.Sheet
}

func (r sheetResolver) GetCell(addr cell.Address) value.Value { return r.s.Get(addr) }

func (r sheetResolver) GetRange(rng cell.Range) []value.Value {
	n := rng.Normalized()
	rows := make([]value.Value, 0, n.Rows())
	for row := n.Start.Row; row <= n.End.Row; row++ {
		cols := make([]value.Value, 0, n.Cols())
		for col := n.Start.Col; col <= n.End.Col; col++ {
			cols = append(cols, r.s.Get(cell.Address{Row: row, Col: col}))
		}
		rows = append(rows, &value.Array{Elements: cols})
	}
	return rows
}

func (r sheetResolver) GetSheetCell(_ string, addr cell.Address) value.Value {
	return r.GetCell(addr)
}

func (r sheetResolver) GetSheetRange(_ string, rng cell.Range) []value.Value {
	return r.GetRange(rng)
}

func (r sheetResolver) CurrentCell() (cell.Address, bool) {
	return cell.Address{}, false
}

func serveCommand(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", ":8080", "listen address")
	fs.Parse(args)

	srv := server.New()
	if err := srv.ListenAndServe(*addr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func kernelCommand(args []string) int {
	fs := flag.NewFlagSet("kernel", flag.ExitOnError)
	addr := fs.String("addr", "tcp://127.0.0.1:5555", "bind address")
	fs.Parse(args)

	k := kernel.New()
	if err := k.Start(*addr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
