package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/roach88/badgify/internal/badge"
	"github.com/roach88/badgify/internal/engine"
)

func printBadgeReport(w io.Writer, r *engine.BadgeReport) {
	fmt.Fprintf(w, "Badges: %d created, %d updated, %d unchanged\n",
		len(r.Created), len(r.Updated), len(r.Unchanged))
	printSlugs(w, "created", r.Created)
	printSlugs(w, "updated", r.Updated)
	printTail(w, nil, r.Invalid, r.Failed)
}

func printAwardReport(w io.Writer, r *engine.AwardReport) {
	fmt.Fprintf(w, "Awards: %d created, %d revoked\n", r.Created(), r.Revoked())
	if len(r.Recipes) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  BADGE\tQUALIFYING\tALREADY\tCREATED\tREVOKED\tDUPLICATES")
		for _, ra := range r.Recipes {
			fmt.Fprintf(tw, "  %s\t%d\t%d\t%d\t%d\t%d\n",
				ra.Slug, ra.Qualifying, ra.Already, ra.Created, ra.Revoked, ra.Duplicates)
		}
		tw.Flush()
	}
	printTail(w, r.Skipped, r.Invalid, r.Failed)
}

func printCountReport(w io.Writer, r *engine.CountReport) {
	fmt.Fprintf(w, "Counts: %d updated, %d unchanged\n", len(r.Updated), len(r.Unchanged))
	printSlugs(w, "updated", r.Updated)
	printTail(w, r.Skipped, r.Invalid, r.Failed)
}

func printResetReport(w io.Writer, r *engine.ResetReport) {
	var total int64
	for _, e := range r.Reset {
		total += e.Deleted
	}
	fmt.Fprintf(w, "Reset: %d badge(s), %d award(s) deleted\n", len(r.Reset), total)
	for _, e := range r.Reset {
		fmt.Fprintf(w, "  %s: %d\n", e.Slug, e.Deleted)
	}
	printTail(w, r.Skipped, r.Invalid, r.Failed)
}

func printStats(w io.Writer, stats []badge.Stat) {
	if len(stats) == 0 {
		fmt.Fprintln(w, "No badges.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "BADGE\tNAME\tLIVE\tSTORED\t")
	for _, s := range stats {
		mark := ""
		if !s.InSync() {
			mark = "out of sync"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", s.Slug, s.Name, s.LiveCount, s.StoredCount, mark)
	}
	tw.Flush()
}

func printSlugs(w io.Writer, label string, slugs []string) {
	if len(slugs) > 0 {
		fmt.Fprintf(w, "  %s: %s\n", label, strings.Join(slugs, ", "))
	}
}

func printTail(w io.Writer, skipped []engine.Skip, invalid []string, failed []engine.Failure) {
	for _, s := range skipped {
		fmt.Fprintf(w, "  skipped %s: %s\n", s.Slug, s.Reason)
	}
	for _, slug := range invalid {
		fmt.Fprintf(w, "  unknown badge %s\n", slug)
	}
	for _, f := range failed {
		fmt.Fprintf(w, "  FAILED %s: %s\n", f.Slug, f.Error)
	}
}
