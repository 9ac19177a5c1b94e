package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/jdziat/compliscan"
	"github.com/jdziat/compliscan/pkg/fanout"
)

func printJob(w io.Writer, job *compliscan.Job) {
	fmt.Fprintf(w, "%s  %s", job.JobID, job.Status)
	if job.UpdatedAt != "" {
		fmt.Fprintf(w, "  updated %s", job.UpdatedAt)
	}
	fmt.Fprintln(w)
}

func printSummary(w io.Writer, s *compliscan.Summary) {
	if s == nil {
		return
	}
	fmt.Fprintf(w, "Total %d  High %d  Medium %d  Low %d\n", s.Total, s.High, s.Medium, s.Low)
	if s.Truncated {
		fmt.Fprintln(w, "Results were truncated by the server.")
	}
}

func printOutcome(w io.Writer, r fanout.Result, view compliscan.View) {
	fmt.Fprintf(w, "\n== %s\n", r.JobID)
	if r.Job != nil {
		printJob(w, r.Job)
	}
	if r.Err != nil {
		fmt.Fprintf(w, "Error: %s\n", compliscan.Message(r.Err))
		return
	}
	printSummary(w, r.Job.Summary)
	printItems(w, view.Apply(r.Items))
}

func printItems(w io.Writer, items []compliscan.ResultItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No results.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RECORD\tNAME\tCOUNTRY\tMATCH\tSCORE\tBAND\tPROCESSED")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			it.RecordID, it.Name, dash(it.Country), dash(it.MatchName),
			score(it.RiskScore), band(it.RiskScore), dash(it.ProcessedAt))
	}
	_ = tw.Flush()
}

func printJobs(w io.Writer, jobs []compliscan.Job) {
	if len(jobs) == 0 {
		fmt.Fprintln(w, "No jobs yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "JOB\tSTATUS\tTOTAL\tHIGH\tCREATED")
	for _, j := range jobs {
		total, high := "-", "-"
		if j.Summary != nil {
			total, high = strconv.Itoa(j.Summary.Total), strconv.Itoa(j.Summary.High)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", j.JobID, j.Status, total, high, dash(j.CreatedAt))
	}
	_ = tw.Flush()
}

func printMatches(w io.Writer, matches []compliscan.MatchResult) {
	if len(matches) == 0 {
		fmt.Fprintln(w, "No matches.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tLIST\tSCORE\tCOUNTRY")
	for _, m := range matches {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", m.ID, m.Name, m.List,
			strconv.FormatFloat(m.RiskScore, 'f', -1, 64), dash(m.Country))
	}
	_ = tw.Flush()
}

func score(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func band(v *float64) string {
	if v == nil {
		return "-"
	}
	return strings.ToUpper(string(compliscan.BandOf(*v)))
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
