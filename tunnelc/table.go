package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// tabulate lays items out in columns, one row per item, using f to produce
// each row's cells. With header set, the first two lines are the headers and
// a dashed separator.
func tabulate[T any](items []T, headers []string, header bool, f func(T) []string) ([]string, error) {
	columnWidths := make([]int, len(headers))
	if header {
		for i, h := range headers {
			columnWidths[i] = len(h)
		}
	}

	cells := make([][]string, len(items))

	for i, item := range items {
		cells[i] = f(item)

		if len(cells[i]) != len(headers) {
			return nil, fmt.Errorf("invalid number of columns for item %d", i)
		}

		for j, cell := range cells[i] {
			if len(cell) > columnWidths[j] {
				columnWidths[j] = len(cell)
			}
		}
	}

	line := func(row []string) string {
		return formatLine(row, columnWidths)
	}

	table := make([]string, 0, len(items)+2)

	if header {
		table = append(table, line(headers), line(separator(columnWidths)))
	}

	for _, row := range cells {
		table = append(table, line(row))
	}

	return table, nil
}

// formatLine pads each cell to its column width plus a three space gutter.
// Cells wider than their column push the rest of the line right.
func formatLine(row []string, widths []int) string {
	var b strings.Builder
	for j, cell := range row {
		fmt.Fprintf(&b, "%-*s", widths[j]+3, cell)
	}
	return strings.TrimRight(b.String(), " ")
}

// separator returns a dashed line under headers of the given widths.
func separator(widths []int) []string {
	dashes := make([]string, len(widths))
	for i, w := range widths {
		dashes[i] = strings.Repeat("-", w)
	}
	return dashes
}

func printTable[T any](w io.Writer, items []T, headers []string, f func(T) []string) error {
	table, err := tabulate(items, headers, isTerminal(w), f)
	if err != nil {
		return err
	}

	for _, row := range table {
		fmt.Fprintf(w, "%s\n", row)
	}

	return nil
}

// Headers are for people. Piped output is just rows.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return term.IsTerminal(int(f.Fd()))
}
