package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"dropout/internal/job"
)

func printStart(w io.Writer, dryRun bool) {
	color.New(color.FgCyan).Fprintln(w, "Processing enrollments dropout...")
	if dryRun {
		color.New(color.FgYellow).Fprintln(w, "Dry run: all changes will be rolled back")
	}
}

func printSummary(w io.Writer, r job.Report) {
	fmt.Fprintf(w, "Cutoff:   %s\n", r.Cutoff.Format(time.RFC3339))
	fmt.Fprintf(w, "Checked:  %d\n", r.Checked)
	color.New(color.FgYellow).Fprintf(w, "Excluded: %d\n", r.Excluded())
	color.New(color.FgGreen).Fprintf(w, "Dropped:  %d\n", r.Dropped)
	fmt.Fprintf(w, "Elapsed:  %s\n", r.Elapsed.Round(time.Millisecond))
	if r.DryRun {
		color.New(color.FgYellow).Fprintln(w, "Rolled back (dry run)")
	}
}

func printFailure(w io.Writer, err error) {
	color.New(color.FgRed).Fprintf(w, "Dropout run failed: %v\n", err)
}
