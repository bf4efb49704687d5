package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mvrcel/stride/internal/collections"
	"github.com/mvrcel/stride/internal/ledger"
	"github.com/mvrcel/stride/internal/store"
)

const reportWeeks = 8

// reportsModel charts redemptions per week plus a todo completion summary.
// Week buckets follow the configured week start, Monday by default.
type reportsModel struct {
	store  *store.Store
	cols   *collections.Set
	width  int
	height int

	weekLabels []string
	weekCounts []float64
	doneTodos  int
	openTodos  int
	offset     int // weeks back from the current one (0 = now)

	chart barchart.Model
}

func newReportsModel(s *store.Store, cols *collections.Set) reportsModel {
	return reportsModel{
		store: s,
		cols:  cols,
		chart: barchart.New(60, 12),
	}
}

func (r *reportsModel) setSize(w, h int) {
	r.width = w
	r.height = h
}

func (r reportsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		todos, _, _ := r.cols.Todos.WorkingView(ctx)

		ws := time.Monday
		if d, err := r.store.WeekStart(); err == nil {
			ws = d
		}
		end := ledger.NextBoundaryOn(ledger.Weekly, time.Now().AddDate(0, 0, -7*r.offset), ws)
		redemptions, _ := r.store.ListRedemptionsBetween(ctx, end.AddDate(0, 0, -7*reportWeeks), end)
		labels := make([]string, reportWeeks)
		counts := make([]float64, reportWeeks)
		for i := 0; i < reportWeeks; i++ {
			weekEnd := end.AddDate(0, 0, -7*(reportWeeks-1-i))
			weekStart := weekEnd.AddDate(0, 0, -7)
			labels[i] = weekStart.Format("Jan 2")
			for _, e := range redemptions {
				if !e.At.Before(weekStart) && e.At.Before(weekEnd) {
					counts[i] += float64(e.Quantity)
				}
			}
		}

		done, open := 0, 0
		for _, t := range todos {
			if t.Done {
				done++
			} else {
				open++
			}
		}

		return reportsDataMsg{
			weekLabels: labels,
			weekCounts: counts,
			doneTodos:  done,
			openTodos:  open,
		}
	}
}

func (r reportsModel) update(msg tea.Msg) (reportsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case reportsDataMsg:
		r.weekLabels = msg.weekLabels
		r.weekCounts = msg.weekCounts
		r.doneTodos = msg.doneTodos
		r.openTodos = msg.openTodos
		r.rebuildChart()
		return r, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			r.offset++
			return r, r.refresh()
		case key.Matches(msg, keys.Right):
			if r.offset > 0 {
				r.offset--
				return r, r.refresh()
			}
		}
	}
	return r, nil
}

func (r *reportsModel) rebuildChart() {
	w := r.width - 10
	if w < 20 {
		w = 20
	}
	r.chart = barchart.New(w, 12)
	for i, label := range r.weekLabels {
		r.chart.Push(barchart.BarData{
			Label: label,
			Values: []barchart.BarValue{
				{Name: "redemptions", Value: r.weekCounts[i], Style: successStyle},
			},
		})
	}
	r.chart.Draw()
}

func (r reportsModel) view() string {
	title := titleStyle.Render("Redemptions per week")
	if r.offset > 0 {
		title += subtitleStyle.Render(fmt.Sprintf("  (%d weeks back)", r.offset))
	}

	summary := fmt.Sprintf("%s done · %s open",
		successStyle.Render(fmt.Sprintf("%d todos", r.doneTodos)),
		warningStyle.Render(fmt.Sprintf("%d", r.openTodos)))

	body := lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		r.chart.View(),
		"",
		summary,
		mutedStyle.Render("←/→ shift weeks"),
	)
	return panelStyle.Width(r.width - 4).Render(body)
}
