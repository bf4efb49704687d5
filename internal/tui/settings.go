package tui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/mvrcel/stride/internal/store"
)

type settingsModel struct {
	store  *store.Store
	width  int
	height int

	settings   []store.Setting
	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	graceMS     *string
	horizonDays *string
	weekStart   *string
}

func newSettingsModel(s *store.Store) settingsModel {
	g, h, w := "", "", ""
	return settingsModel{
		store:       s,
		graceMS:     &g,
		horizonDays: &h,
		weekStart:   &w,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

func (s settingsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		settings, _ := s.store.GetAllSettings()
		return settingsDataMsg{settings: settings}
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case settingsDataMsg:
		s.settings = msg.settings
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.Edit):
			return s.showForm()
		}
	}
	return s, nil
}

func (s settingsModel) getVal(key, fallback string) string {
	for _, st := range s.settings {
		if st.Key == key {
			return st.Value
		}
	}
	return fallback
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	*s.graceMS = s.getVal("grace_ms", "2500")
	*s.horizonDays = s.getVal("horizon_days", "3")
	*s.weekStart = s.getVal("week_start", "monday")

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Undo window (ms)").Value(s.graceMS),
			huh.NewInput().Title("Coming-up horizon (days)").Value(s.horizonDays),
			huh.NewSelect[string]().Title("Week starts on").
				Options(
					huh.NewOption("Monday", "monday"),
					huh.NewOption("Sunday", "sunday"),
				).Value(s.weekStart),
		),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		return s.save()
	}
	return s, cmd
}

func (s settingsModel) save() (settingsModel, tea.Cmd) {
	if _, err := strconv.Atoi(*s.graceMS); err != nil {
		return s, statusCmd("Undo window must be a number of milliseconds", true)
	}
	if _, err := strconv.Atoi(*s.horizonDays); err != nil {
		return s, statusCmd("Horizon must be a number of days", true)
	}

	s.store.SetSetting("grace_ms", *s.graceMS)
	s.store.SetSetting("horizon_days", *s.horizonDays)
	s.store.SetSetting("week_start", *s.weekStart)

	return s, tea.Batch(s.refresh(),
		statusCmd("Settings saved. The undo window applies after restart.", false))
}

func (s settingsModel) view() string {
	if s.formActive && s.form != nil {
		return activePanelStyle.Width(s.width - 4).Render(s.form.View())
	}

	var rows []string
	rows = append(rows, titleStyle.Render("Settings"), "")
	for _, st := range s.settings {
		rows = append(rows, fmt.Sprintf("  %s %s",
			normalItemStyle.Render(fmt.Sprintf("%-14s", st.Key)),
			highlightStyle.Render(st.Value)))
	}
	rows = append(rows, "", mutedStyle.Render("enter/e: edit"))

	return panelStyle.Width(s.width - 4).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
