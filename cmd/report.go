package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spigell/cv-tailor/internal/keywords"
)

func joinOrDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}

func ratingLabel(r keywords.Rating) string {
	return strings.ReplaceAll(string(r), "_", " ")
}

// writeReport prints a human readable match report.
func writeReport(w io.Writer, report *keywords.Report, details bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Match:\t%.2f%% (%s)\n", report.MatchPercentage, ratingLabel(report.Rating()))
	fmt.Fprintf(tw, "Keywords:\t%d in resume, %d in job\n", report.ResumeKeywordCount, report.JobKeywordCount)
	fmt.Fprintf(tw, "Matching:\t%s\n", joinOrDash(report.MatchingKeywords))
	fmt.Fprintf(tw, "Missing:\t%s\n", joinOrDash(report.MissingKeywords))
	fmt.Fprintf(tw, "High priority:\t%s\n", joinOrDash(report.HighPriorityMissing))
	fmt.Fprintf(tw, "Also missing:\t%s\n", joinOrDash(report.OtherMissing()))
	if advice := report.Advice(); advice != "" {
		fmt.Fprintf(tw, "Advice:\t%s\n", advice)
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	if !details {
		return nil
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEYWORD\tWEIGHT\tIN RESUME")
	for _, row := range report.Breakdown(keywords.DefaultBreakdownLimit) {
		mark := "no"
		if row.Matched {
			mark = "yes"
		}
		fmt.Fprintf(tw, "%s\t%.2f\t%s\n", row.Term, row.Weight, mark)
	}
	return tw.Flush()
}

// writeComparison prints the before and after scores of a tailored CV.
func writeComparison(w io.Writer, before, after *keywords.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tBEFORE\tAFTER")
	fmt.Fprintf(tw, "Match\t%.2f%%\t%.2f%%\n", before.MatchPercentage, after.MatchPercentage)
	fmt.Fprintf(tw, "Rating\t%s\t%s\n", ratingLabel(before.Rating()), ratingLabel(after.Rating()))
	fmt.Fprintf(tw, "Missing\t%d\t%d\n", len(before.MissingKeywords), len(after.MissingKeywords))
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "Improvement: %+.2f points\n", after.MatchPercentage-before.MatchPercentage)
	return err
}
