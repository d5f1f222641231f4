package main

import (
	"fmt"
	"io"
	"strings"

	"schoolcal/internal/view"
)

func printCard(w io.Writer, indent string, c view.EventCard) {
	fmt.Fprintf(w, "%s- %s [%s] (%s)\n", indent, c.Title, c.Subject, strings.ToLower(c.Badge.Label))
	if c.Notes != "" {
		fmt.Fprintf(w, "%s    %s\n", indent, c.Notes)
	}
}

func printDay(w io.Writer, snap view.Snapshot) {
	h := snap.Header
	fmt.Fprintf(w, "%s  (%s)\n", h.DayHeading, h.EventCount)
	if snap.Day.Count == 0 {
		fmt.Fprintln(w, view.EmptyDay)
	}
	for _, c := range snap.Day.Events {
		printCard(w, "", c)
	}
	fmt.Fprintln(w, h.LastUpdated)
}

func printTerm(w io.Writer, snap view.Snapshot) {
	h := snap.Header
	fmt.Fprintln(w, h.WorkspaceTitle)
	if len(snap.Term.Weeks) == 0 {
		fmt.Fprintln(w, view.EmptyTerm)
		return
	}
	fmt.Fprintf(w, "%s  %s\n", h.WorkspaceSubtitle, h.LetterToggle)
	for _, wk := range snap.Term.Weeks {
		fmt.Fprintf(w, "\n%s  %s\n", wk.Title, wk.Range)
		for _, d := range wk.Days {
			marker := " "
			if d.Selected {
				marker = "*"
			}
			fmt.Fprintf(w, "%s %s\n", marker, d.Label)
			if len(d.Events) == 0 {
				fmt.Fprintf(w, "    %s\n", view.EmptyCell)
			}
			for _, c := range d.Events {
				printCard(w, "    ", c)
			}
		}
	}
	fmt.Fprintln(w, h.LastUpdated)
}
