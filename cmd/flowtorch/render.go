package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kbukum/flowtorch/plugin"
	"github.com/kbukum/flowtorch/transpiler"
)

var (
	styleTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	styleOK    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleFail  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	styleWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	styleMuted = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	styleHead  = lipgloss.NewStyle().Bold(true).Underline(true)
)

// printCode writes every artifact to w in terminal order. Several
// artifacts are separated by a comment naming their terminal.
func printCode(w io.Writer, res *transpiler.Result) {
	first := true
	for _, term := range res.Terminals {
		art, ok := res.Artifacts[term]
		if !ok {
			continue
		}
		if len(res.Artifacts) > 1 {
			if !first {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "# --- terminal: %s ---\n", term)
		}
		first = false
		fmt.Fprint(w, art.Code)
		if !strings.HasSuffix(art.Code, "\n") {
			fmt.Fprintln(w)
		}
	}
}

// printReport writes the per-terminal outcome of res to w.
func printReport(w io.Writer, res *transpiler.Result, written map[string]string) {
	fmt.Fprintln(w, styleTitle.Render(fmt.Sprintf("%s run %s", appName, res.RunID)))
	for _, term := range res.Terminals {
		switch {
		case res.Artifacts[term] != nil:
			line := styleOK.Render("ok  ") + " " + term
			if res.Artifacts[term].Formatted {
				line += styleMuted.Render(" (formatted)")
			}
			if key, ok := written[term]; ok {
				line += styleMuted.Render(" -> " + key)
			}
			fmt.Fprintln(w, line)
		case res.Failures[term] != nil:
			f := res.Failures[term]
			fmt.Fprintf(w, "%s %s %s\n", styleFail.Render("fail"), term, styleMuted.Render(fmt.Sprintf("[%s] %s", f.Code, f.Message)))
		}
		for _, warning := range res.Warnings[term] {
			fmt.Fprintf(w, "     %s %s\n", styleWarn.Render("warn"), warning)
		}
	}
}

// printPlugins writes defs as an aligned table.
func printPlugins(w io.Writer, defs []*plugin.Definition) {
	if len(defs) == 0 {
		fmt.Fprintln(w, "no plugins registered")
		return
	}
	sorted := append([]*plugin.Definition(nil), defs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Category != sorted[j].Category {
			return sorted[i].Category < sorted[j].Category
		}
		return sorted[i].Slug < sorted[j].Slug
	})

	headers := []string{"TYPE", "VERSION", "CATEGORY", "FIELDS", "DESCRIPTION"}
	rows := make([][]string, 0, len(sorted))
	for _, d := range sorted {
		fields := make([]string, 0, len(d.Fields))
		for _, f := range d.Fields {
			fields = append(fields, f.Key)
		}
		rows = append(rows, []string{
			"@" + d.Namespace + "/" + d.Slug,
			d.Version,
			d.Category,
			strings.Join(fields, ","),
			d.Description,
		})
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, r := range rows {
		for i, c := range r {
			widths[i] = max(widths[i], lipgloss.Width(c))
		}
	}
	cell := func(i int, s string) string {
		if i == len(widths)-1 {
			return s
		}
		return s + strings.Repeat(" ", widths[i]-lipgloss.Width(s)) + "  "
	}

	var b strings.Builder
	for i, h := range headers {
		b.WriteString(cell(i, styleHead.Render(h)))
	}
	fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	for _, r := range rows {
		b.Reset()
		for i, c := range r {
			b.WriteString(cell(i, c))
		}
		fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}
	fmt.Fprintln(w, styleMuted.Render(fmt.Sprintf("%d plugins", len(rows))))
}
