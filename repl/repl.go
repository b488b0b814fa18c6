package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"golang.org/x/term"

	"tally/sheet"
	"tally/value"
)

const PROMPT = "tally> "

// Start runs the interactive shell over a fresh sheet.
func Start(in io.Reader, out io.Writer) {
	s := sheet.New()

	interactive := false
	if f, ok := in.(*os.File); ok {
		interactive = term.IsTerminal(int(f.Fd()))
	}

	if interactive {
		fmt.Fprintln(out, "tally - formula shell")
		fmt.Fprintln(out, "Commands: <ref> = <text>, eval <formula>, show, deps <ref>, clear, quit")
	}

	scanner := bufio.NewScanner(in)
	for {
		if interactive {
			fmt.Fprint(out, PROMPT)
		}
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "quit" || line == "exit":
			return
		case line == "show":
			printSheet(out, s)
		case line == "clear":
			s.Clear()
		case strings.HasPrefix(line, "deps "):
			ref := strings.TrimSpace(line[len("deps "):])
			deps, err := s.Precedents(ref)
			if err != nil {
				fmt.Fprintln(out, "error:", err)
				continue
			}
			fmt.Fprintln(out, strings.Join(deps, ", "))
		case strings.HasPrefix(line, "eval "):
			text := strings.TrimSpace(line[len("eval "):])
			evalOnce(out, s, text)
		default:
			handleAssign(out, s, line)
		}
	}
}

// handleAssign processes "<ref> = <text>" lines.
func handleAssign(out io.Writer, s *sheet.Sheet, line string) {
	eq := strings.Index(line, "=")
	if eq <= 0 {
		fmt.Fprintln(out, "expected '<ref> = <text>' or a command")
		return
	}
	ref := strings.TrimSpace(line[:eq])
	text := strings.TrimSpace(line[eq+1:])
	if err := s.SetA1(ref, text); err != nil {
		fmt.Fprintln(out, "error:", err)
		return
	}
	v, err := s.GetA1(ref)
	if err != nil {
		fmt.Fprintln(out, "error:", err)
		return
	}
	fmt.Fprintf(out, "%s = %s\n", strings.ToUpper(ref), render(v))
}

// evalOnce evaluates a formula against the current sheet without storing it.
func evalOnce(out io.Writer, s *sheet.Sheet, text string) {
	if !strings.HasPrefix(text, "=") {
		text = "=" + text
	}
	if err := s.SetA1("ZZ1048576", text); err != nil {
		fmt.Fprintln(out, "error:", err)
		return
	}
	v, _ := s.GetA1("ZZ1048576")
	fmt.Fprintln(out, render(v))
	_ = s.SetA1("ZZ1048576", "")
}

func printSheet(out io.Writer, s *sheet.Sheet) {
	snapshot := s.Snapshot()
	refs := make([]string, 0, len(snapshot))
	for ref := range snapshot {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	for _, ref := range refs {
		c := snapshot[ref]
		fmt.Fprintf(out, "%-8s %-24s %s\n", ref, c.Raw, c.Display)
	}
}

func render(v value.Value) string {
	if _, ok := v.(*value.Empty); ok {
		return "(empty)"
	}
	return v.Inspect()
}
