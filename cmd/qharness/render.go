package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/theapemachine/qharness"
)

func newTable(title string, header ...any) table.Writer {
	w := table.NewWriter()
	w.SetStyle(table.StyleLight)
	w.SetTitle(title)
	w.AppendHeader(table.Row(header))
	return w
}

// rightAlign right-aligns the given 1-based columns.
func rightAlign(w table.Writer, columns ...int) {
	cfgs := make([]table.ColumnConfig, len(columns))
	for i, n := range columns {
		cfgs[i] = table.ColumnConfig{Number: n, Align: text.AlignRight}
	}
	w.SetColumnConfigs(cfgs)
}

func render(out io.Writer, w table.Writer) {
	if rootFlags.markdown {
		fmt.Fprintln(out, w.RenderMarkdown())
		return
	}
	fmt.Fprintln(out, w.Render())
}

func counts(t qharness.Tally) string {
	return fmt.Sprintf("%d/%d", t.Zero, t.One)
}

func percent(rate float64) string {
	return fmt.Sprintf("%.1f%%", 100*rate)
}

// describe is a one-cell rendering of a summary for mixed plans.
func describe(s qharness.AggregateSummary) string {
	switch rule := s.Rule.(type) {
	case qharness.AgreementRule:
		return fmt.Sprintf("agreement %d/%d (%s)", s.Agreements, s.Trials, percent(s.AgreementRate()))
	case qharness.FidelityRule:
		return fmt.Sprintf("fidelity %d/%d against %s", s.Agreements, s.Trials, rule.Expected)
	case qharness.ClassificationRule:
		return fmt.Sprintf("%s (%d of %d votes balanced, %d inputs)",
			s.Verdict, s.BalancedVotes, s.Trials, s.InputQubits)
	}
	return fmt.Sprintf("%d trials", s.Trials)
}
