package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// ValidFormat reports whether format is supported by Printer
func ValidFormat(format string) bool {
	return format == FormatText || format == FormatJSON
}

// Printer renders results either as colored tables or as indented JSON
type Printer struct {
	out    io.Writer
	format string

	header  *color.Color
	success *color.Color
	muted   *color.Color
}

func NewPrinter(out io.Writer, format string) *Printer {
	if !ValidFormat(format) {
		format = FormatText
	}
	return &Printer{
		out:     out,
		format:  format,
		header:  color.New(color.Bold, color.FgCyan),
		success: color.New(color.FgGreen),
		muted:   color.New(color.Faint),
	}
}

func (p *Printer) JSON() bool { return p.format == FormatJSON }

// Result prints v as JSON, or calls text to render it for humans
func (p *Printer) Result(v interface{}, text func()) error {
	if p.JSON() {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(p.out, string(data))
		return err
	}
	text()
	return nil
}

// Table writes aligned columns with a highlighted header row
func (p *Printer) Table(headers []string, rows [][]string) {
	if len(rows) == 0 {
		p.muted.Fprintln(p.out, "(none)")
		return
	}
	tw := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	for i, h := range headers {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		p.header.Fprint(tw, h)
	}
	fmt.Fprintln(tw)
	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, cell)
		}
		fmt.Fprintln(tw)
	}
	_ = tw.Flush()
}

// KeyValues prints label: value lines in order
func (p *Printer) KeyValues(pairs ...string) {
	tw := tabwriter.NewWriter(p.out, 0, 0, 1, ' ', 0)
	for i := 0; i+1 < len(pairs); i += 2 {
		p.header.Fprint(tw, pairs[i]+":")
		fmt.Fprintf(tw, "\t%s\n", pairs[i+1])
	}
	_ = tw.Flush()
}

func (p *Printer) Success(format string, args ...interface{}) {
	if p.JSON() {
		return
	}
	p.success.Fprintf(p.out, format+"\n", args...)
}

func (p *Printer) Section(title string) {
	if p.JSON() {
		return
	}
	color.New(color.Bold).Fprintln(p.out, title)
}
