package cli

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

type Printer struct {
	out  io.Writer
	bold func(format string, a ...any) string
}

// NewPrinter returns a printer for out. Labels are only styled when out is
// a terminal.
func NewPrinter(out io.Writer) *Printer {
	bold := color.New(color.Bold)
	if isTerminal(out) {
		bold.EnableColor()
	} else {
		bold.DisableColor()
	}
	return &Printer{
		out:  out,
		bold: bold.SprintfFunc(),
	}
}

func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *Printer) Println(a ...any) {
	fmt.Fprintln(p.out, a...)
}

func (p *Printer) Printf(format string, a ...any) {
	fmt.Fprintf(p.out, format, a...)
}

// PrintField prints an indented "label: value" line with a bold label.
func (p *Printer) PrintField(label string, value any) {
	p.Printf("  %s %v\n", p.bold(label+":"), value)
}

// PrintProperties prints a property map as fields in key order.
func (p *Printer) PrintProperties(properties map[string]any) {
	for _, key := range slices.Sorted(maps.Keys(properties)) {
		p.PrintField(key, properties[key])
	}
}
