package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"golang.org/x/term"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00a0cc"))
	keepStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00cc6a"))
	deleteStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444"))
	warnStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f59e0b"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#737373"))
)

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// FormatReduction renders the disk usage reduction of a summary
func FormatReduction(s Summary) string {
	if ratio, ok := s.Reduction(); ok {
		return fmt.Sprintf("%.2fx", ratio)
	}
	if s.Total == 0 {
		return "n/a"
	}
	return "all data removed"
}

// Text writes a human readable report. Styling is applied only when styled is true.
func Text(w io.Writer, summaries []Summary, styled bool) error {
	render := func(style lipgloss.Style, s string) string {
		if !styled {
			return s
		}
		return style.Render(s)
	}

	for _, s := range summaries {
		title := "Collection: " + s.Group
		if s.DryRun {
			title += " (dry run)"
		}

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, render(headerStyle, title))
		_, _ = fmt.Fprintf(tw, "Total backups:\t%d\n", s.Total)
		_, _ = fmt.Fprintf(tw, "Modified backups:\t%d\n", s.Modified)
		_, _ = fmt.Fprintf(tw, "Untouched backups:\t%d\n", s.Untouched)
		_, _ = fmt.Fprintf(tw, "To keep:\t%s\n", render(keepStyle, fmt.Sprint(s.Keep)))
		_, _ = fmt.Fprintf(tw, "To delete:\t%s\n", render(deleteStyle, fmt.Sprint(s.Delete)))
		if !s.DryRun {
			_, _ = fmt.Fprintf(tw, "Deleted:\t%d\n", s.Deleted)
		}
		if s.Failed > 0 {
			_, _ = fmt.Fprintf(tw, "Failed deletions:\t%s\n", render(warnStyle, fmt.Sprint(s.Failed)))
		}
		_, _ = fmt.Fprintf(tw, "Disk usage:\t%s\t%s\n", formatSize(s.Size), render(mutedStyle, fmt.Sprintf("(%d bytes)", s.Size)))
		_, _ = fmt.Fprintf(tw, "Disk usage after actions:\t%s\t%s\n", formatSize(s.SizeAfter), render(mutedStyle, fmt.Sprintf("(%d bytes)", s.SizeAfter)))
		_, _ = fmt.Fprintf(tw, "Disk usage reduction:\t%s\n", FormatReduction(s))
		if err := tw.Flush(); err != nil {
			return err
		}

		if _, err := fmt.Fprintln(w, render(mutedStyle, "==========")); err != nil {
			return err
		}
	}

	return nil
}

type jsonSummary struct {
	Summary
	Reduction *float64 `json:"reduction"`
	Reclaimed int64    `json:"reclaimed"`
}

type jsonReport struct {
	Groups []jsonSummary `json:"groups"`
	Totals jsonSummary   `json:"totals"`
}

func toJSON(s Summary) jsonSummary {
	js := jsonSummary{Summary: s, Reclaimed: s.Reclaimed()}
	if ratio, ok := s.Reduction(); ok {
		js.Reduction = &ratio
	}
	return js
}

// JSON writes the report as a JSON document. An undefined reduction is null.
func JSON(w io.Writer, summaries []Summary) error {
	doc := jsonReport{
		Groups: make([]jsonSummary, 0, len(summaries)),
		Totals: toJSON(Totals(summaries)),
	}
	for _, s := range summaries {
		doc.Groups = append(doc.Groups, toJSON(s))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func formatSize(bytes int64) string {
	if bytes < 0 {
		return "-" + humanize.IBytes(uint64(-bytes))
	}
	return humanize.IBytes(uint64(bytes))
}
