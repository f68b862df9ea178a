package ui

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bcnelson/guacamole-csv-importer/internal/domain"
	"github.com/bcnelson/guacamole-csv-importer/internal/tree"
	"github.com/charmbracelet/lipgloss"
)

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#CA8A04"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#16A34A"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")).Italic(true)
	boldStyle    = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
)

// FormatError returns a styled multi-line error message.
func FormatError(title, detail, suggestion string) string {
	out := errorStyle.Render("Error: "+title) + "\n"
	if detail != "" {
		out += "  " + detail + "\n"
	}
	if suggestion != "" {
		out += "  " + hintStyle.Render("Hint: "+suggestion) + "\n"
	}
	return out
}

// Success prints a green success message.
func Success(w io.Writer, msg string) {
	fmt.Fprintln(w, successStyle.Render(msg))
}

// Warn prints a yellow warning message.
func Warn(w io.Writer, msg string) {
	fmt.Fprintln(w, warnStyle.Render("Warning: "+msg))
}

// Bold renders text in bold.
func Bold(s string) string {
	return boldStyle.Render(s)
}

// Summary prints the import ratio styled by run status.
func Summary(w io.Writer, status string, successful, skipped, failed, total int) {
	msg := fmt.Sprintf("Imported %d/%d connections", successful, total)
	if skipped > 0 || failed > 0 {
		msg += dimStyle.Render(fmt.Sprintf(" (%d skipped, %d failed)", skipped, failed))
	}
	switch status {
	case domain.RunStatusSuccess:
		fmt.Fprintln(w, successStyle.Render(msg))
	case domain.RunStatusPartial:
		fmt.Fprintln(w, warnStyle.Render(msg))
	default:
		fmt.Fprintln(w, errorStyle.Render(msg))
	}
}

// Outcomes prints the failed entries of a run.
func Outcomes(w io.Writer, outcomes []domain.EntryOutcome) {
	for _, o := range outcomes {
		if o.Status != domain.OutcomeFailed {
			continue
		}
		loc := o.Path + " / " + o.DeviceName
		if o.Line > 0 {
			loc = fmt.Sprintf("line %d: %s", o.Line, loc)
		}
		fmt.Fprintf(w, "  %s %s\n", errorStyle.Render("ERR"), loc)
		if o.Error != "" {
			fmt.Fprintf(w, "      %s\n", hintStyle.Render(o.Error))
		}
	}
}

// Tree prints the hierarchy with group lines in bold.
func Tree(w io.Writer, t *tree.Tree) error {
	var buf bytes.Buffer
	if err := t.Render(&buf); err != nil {
		return err
	}
	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		trimmed := strings.TrimLeft(line, " ")
		indent := line[:len(line)-len(trimmed)]
		if strings.HasPrefix(trimmed, "- ") {
			trimmed = boldStyle.Render(trimmed)
		} else {
			trimmed = dimStyle.Render(trimmed)
		}
		if _, err := fmt.Fprintln(w, indent+trimmed); err != nil {
			return err
		}
	}
	return nil
}

// History prints recorded runs, one per line.
func History(w io.Writer, runs []*domain.ImportRun) {
	if len(runs) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No import runs recorded."))
		return
	}
	fmt.Fprintln(w, boldStyle.Render(fmt.Sprintf("%-36s  %-20s  %-8s  %-9s  %s", "ID", "STARTED", "STATUS", "IMPORTED", "SOURCE")))
	for _, r := range runs {
		source := r.Source
		if r.DryRun {
			source += " " + dimStyle.Render("(dry run)")
		}
		fmt.Fprintf(w, "%-36s  %-20s  %s  %-9s  %s\n",
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			statusStyle(r.Status).Render(fmt.Sprintf("%-8s", r.Status)),
			fmt.Sprintf("%d/%d", r.Successful, r.Total),
			source)
	}
}

func statusStyle(status string) lipgloss.Style {
	switch status {
	case domain.RunStatusSuccess:
		return successStyle
	case domain.RunStatusPartial:
		return warnStyle
	case domain.RunStatusPending:
		return dimStyle
	default:
		return errorStyle
	}
}
