package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/mvrcel/stride/internal/collections"
	"github.com/mvrcel/stride/internal/engine"
	"github.com/mvrcel/stride/internal/ledger"
	"github.com/mvrcel/stride/internal/store"
)

// rewardAction remembers the most recent redeem or admit-defeat so it can be
// deleted outright while still inside the undo window.
type rewardAction struct {
	kind     string // "redeem" or "defeat"
	id       string
	itemType string
	deadline time.Time
}

// rewardsModel shows the derived ledger view and drives redeem, admit-defeat
// and allotment configuration. Allotment rows are staged through the same
// engine as every other collection.
type rewardsModel struct {
	store  *store.Store
	cols   *collections.Set
	width  int
	height int

	led         *ledger.Ledger
	ledgerView  ledger.View
	allotments  []store.Allotment
	redemptions []ledger.Redemption
	horizon     int
	cursor      int
	loadErr     error

	lastAction *rewardAction

	formActive bool
	form       *huh.Form
	editingID  string

	formType       *string
	formQuota      *string
	formCadence    *string
	formMultiplier *string
}

func newRewardsModel(s *store.Store, cols *collections.Set) rewardsModel {
	ft, fq, fc, fm := "", "", "", ""
	return rewardsModel{
		store:          s,
		cols:           cols,
		horizon:        3,
		formType:       &ft,
		formQuota:      &fq,
		formCadence:    &fc,
		formMultiplier: &fm,
	}
}

func (r *rewardsModel) setSize(w, h int) {
	r.width = w
	r.height = h
}

func (r rewardsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()

		allotments, _, err := r.cols.Allotments.WorkingView(ctx)
		if err != nil {
			return rewardsDataMsg{err: err}
		}
		redemptions, err := r.store.ListRedemptions(ctx)
		if err != nil {
			return rewardsDataMsg{err: err}
		}
		overages, err := r.store.ListOverages(ctx)
		if err != nil {
			return rewardsDataMsg{err: err}
		}

		items := make([]ledger.Item, 0, len(allotments))
		for _, a := range allotments {
			cadence, err := ledger.ParseCadence(a.Cadence)
			if err != nil {
				continue
			}
			items = append(items, ledger.Item{
				Type:       a.ItemType,
				Quota:      a.Quota,
				Cadence:    cadence,
				Multiplier: a.Multiplier,
			})
		}

		led := ledger.New(items, redemptions, overages)
		if ws, err := r.store.WeekStart(); err == nil {
			led.SetWeekStart(ws)
		}
		horizon := 3
		if n, err := r.store.HorizonDays(); err == nil {
			horizon = n
		}

		return rewardsDataMsg{
			led:         led,
			view:        led.View(horizon),
			allotments:  allotments,
			redemptions: redemptions,
			horizon:     horizon,
		}
	}
}

// flattened returns the cursor-addressable items: available first, then
// unavailable, matching render order.
func (r rewardsModel) flattened() []ledger.ItemStatus {
	out := make([]ledger.ItemStatus, 0, len(r.ledgerView.Available)+len(r.ledgerView.Unavailable))
	out = append(out, r.ledgerView.Available...)
	out = append(out, r.ledgerView.Unavailable...)
	return out
}

func (r rewardsModel) selected() (ledger.ItemStatus, bool) {
	items := r.flattened()
	if r.cursor >= len(items) {
		return ledger.ItemStatus{}, false
	}
	return items[r.cursor], true
}

func (r rewardsModel) update(msg tea.Msg) (rewardsModel, tea.Cmd) {
	if r.formActive && r.form != nil {
		return r.updateForm(msg)
	}

	switch msg := msg.(type) {
	case rewardsDataMsg:
		if msg.err != nil {
			r.loadErr = msg.err
			return r, nil
		}
		r.loadErr = nil
		r.led = msg.led
		r.ledgerView = msg.view
		r.allotments = msg.allotments
		r.redemptions = msg.redemptions
		r.horizon = msg.horizon
		if n := len(r.flattened()); r.cursor >= n && r.cursor > 0 {
			r.cursor = n - 1
		}
		return r, nil

	case tea.KeyMsg:
		return r.updateKeys(msg)
	}
	return r, nil
}

func (r rewardsModel) updateKeys(msg tea.KeyMsg) (rewardsModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if r.cursor > 0 {
			r.cursor--
		}
	case key.Matches(msg, keys.Down):
		if r.cursor < len(r.flattened())-1 {
			r.cursor++
		}
	case key.Matches(msg, keys.Redeem):
		return r.redeemSelected()
	case key.Matches(msg, keys.Defeat):
		return r.admitDefeatSelected()
	case key.Matches(msg, keys.Undo):
		return r.undoLast()
	case key.Matches(msg, keys.New):
		return r.showForm(store.Allotment{})
	case key.Matches(msg, keys.Edit):
		if st, ok := r.selected(); ok {
			if a, ok := r.allotmentFor(st.Type); ok {
				return r.showForm(a)
			}
		}
	case key.Matches(msg, keys.Delete):
		if st, ok := r.selected(); ok {
			if a, ok := r.allotmentFor(st.Type); ok {
				r.cols.Allotments.StageRemoval(a.ID)
				return r, tea.Batch(r.refresh(), statusCmd(fmt.Sprintf("Removing %q", a.ItemType), false))
			}
		}
	}
	return r, nil
}

func (r rewardsModel) allotmentFor(itemType string) (store.Allotment, bool) {
	for _, a := range r.allotments {
		if a.ItemType == itemType {
			return a, true
		}
	}
	return store.Allotment{}, false
}

func (r rewardsModel) redeemSelected() (rewardsModel, tea.Cmd) {
	st, ok := r.selected()
	if !ok || r.led == nil {
		return r, nil
	}
	event, err := r.led.Redeem(st.Type)
	if err != nil {
		if errors.Is(err, ledger.ErrQuotaExceeded) {
			return r, statusCmd(fmt.Sprintf("%q is used up for this window. Press a to admit defeat.", st.Type), true)
		}
		return r, statusCmd(err.Error(), true)
	}
	if err := r.store.AppendRedemption(context.Background(), event); err != nil {
		r.led.UndoRedeem(st.Type)
		return r, statusCmd(fmt.Sprintf("Redeem failed: %v", err), true)
	}
	r.lastAction = &rewardAction{
		kind:     "redeem",
		id:       event.ID,
		itemType: st.Type,
		deadline: time.Now().Add(r.cols.Allotments.Grace()),
	}
	return r, tea.Batch(r.refresh(), statusCmd(fmt.Sprintf("Redeemed %q, press u to undo", st.Type), false))
}

func (r rewardsModel) admitDefeatSelected() (rewardsModel, tea.Cmd) {
	st, ok := r.selected()
	if !ok || r.led == nil {
		return r, nil
	}
	record, err := r.led.AdmitDefeat(st.Type)
	if err != nil {
		return r, statusCmd(err.Error(), true)
	}
	if err := r.store.AppendOverage(context.Background(), record); err != nil {
		r.led.UndoAdmitDefeat(st.Type)
		return r, statusCmd(fmt.Sprintf("Could not record overage: %v", err), true)
	}
	r.lastAction = &rewardAction{
		kind:     "defeat",
		id:       record.ID,
		itemType: st.Type,
		deadline: time.Now().Add(r.cols.Allotments.Grace()),
	}
	return r, tea.Batch(r.refresh(), statusCmd(fmt.Sprintf("Defeat admitted for %q, press u to undo", st.Type), false))
}

// undoLast deletes the just-created event outright. Past the undo window the
// entry is committed history and stays.
func (r rewardsModel) undoLast() (rewardsModel, tea.Cmd) {
	a := r.lastAction
	if a == nil {
		return r, statusCmd("Nothing to undo", false)
	}
	r.lastAction = nil
	if time.Now().After(a.deadline) {
		return r, statusCmd("Too late to undo, already part of history", false)
	}

	ctx := context.Background()
	var err error
	if a.kind == "redeem" {
		r.led.UndoRedeem(a.itemType)
		err = r.store.DeleteRedemption(ctx, a.id)
	} else {
		r.led.UndoAdmitDefeat(a.itemType)
		err = r.store.DeleteOverage(ctx, a.id)
	}
	if err != nil {
		return r, statusCmd(fmt.Sprintf("Undo failed: %v", err), true)
	}
	return r, tea.Batch(r.refresh(), statusCmd("Undone", false))
}

// --- Allotment form ---

func (r rewardsModel) showForm(a store.Allotment) (rewardsModel, tea.Cmd) {
	*r.formType = a.ItemType
	*r.formQuota = strconv.Itoa(a.Quota)
	*r.formCadence = a.Cadence
	*r.formMultiplier = strconv.Itoa(a.Multiplier)
	if a.ID == "" {
		*r.formQuota = "1"
		*r.formCadence = string(ledger.Weekly)
		*r.formMultiplier = "1"
	}
	r.editingID = a.ID

	r.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Reward").Value(r.formType),
			huh.NewInput().Title("Quota per window").Value(r.formQuota),
			huh.NewSelect[string]().Title("Cadence").
				Options(
					huh.NewOption("Weekly", string(ledger.Weekly)),
					huh.NewOption("Monthly", string(ledger.Monthly)),
					huh.NewOption("Quarterly", string(ledger.Quarterly)),
					huh.NewOption("Yearly", string(ledger.Yearly)),
				).Value(r.formCadence),
			huh.NewInput().Title("Multiplier").Value(r.formMultiplier),
		),
	).WithShowHelp(true).WithShowErrors(true)

	r.formActive = true
	return r, r.form.Init()
}

func (r rewardsModel) updateForm(msg tea.Msg) (rewardsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			r.formActive = false
			r.form = nil
			return r, nil
		}
	}

	form, cmd := r.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		r.form = f
	}

	if r.form.State == huh.StateCompleted {
		r.formActive = false
		return r.submitForm()
	}
	return r, cmd
}

func (r rewardsModel) submitForm() (rewardsModel, tea.Cmd) {
	if err := engine.ValidateRequired("reward", *r.formType); err != nil {
		return r, statusCmd(err.Error(), true)
	}
	quota, err := strconv.Atoi(strings.TrimSpace(*r.formQuota))
	if err != nil {
		return r, statusCmd("Quota must be a whole number", true)
	}
	multiplier, err := strconv.Atoi(strings.TrimSpace(*r.formMultiplier))
	if err != nil {
		return r, statusCmd("Multiplier must be a whole number", true)
	}
	if err := engine.ValidateMin("quota", quota, 0); err != nil {
		return r, statusCmd(err.Error(), true)
	}
	if err := engine.ValidateMin("multiplier", multiplier, 1); err != nil {
		return r, statusCmd(err.Error(), true)
	}

	fields := engine.Fields{
		"item_type":  strings.TrimSpace(*r.formType),
		"quota":      quota,
		"cadence":    *r.formCadence,
		"multiplier": multiplier,
	}
	if r.editingID == "" {
		r.cols.Allotments.StageNew(fields)
	} else {
		r.cols.Allotments.Stage(r.editingID, fields)
	}
	return r, r.refresh()
}

// --- View ---

func (r rewardsModel) view() string {
	if r.formActive && r.form != nil {
		return activePanelStyle.Width(r.width - 4).Render(r.form.View())
	}
	if r.loadErr != nil {
		return panelStyle.Width(r.width - 4).Render(
			errorStyle.Render(fmt.Sprintf("Load failed: %v", r.loadErr)))
	}

	var rows []string
	idx := 0

	rows = append(rows, titleStyle.Render("Available"))
	if len(r.ledgerView.Available) == 0 {
		rows = append(rows, mutedStyle.Render("  nothing redeemable right now"))
	}
	for _, st := range r.ledgerView.Available {
		rows = append(rows, r.itemLine(idx, st, successStyle.Render(fmt.Sprintf("%d left", st.Remaining))))
		idx++
	}

	rows = append(rows, "", titleStyle.Render("Used up"))
	if len(r.ledgerView.Unavailable) == 0 {
		rows = append(rows, mutedStyle.Render("  none"))
	}
	for _, st := range r.ledgerView.Unavailable {
		note := errorStyle.Render("0 left")
		if st.LastRedeemed != nil {
			note += subtitleStyle.Render(fmt.Sprintf("  last %s", st.LastRedeemed.Local().Format("Jan 2")))
		}
		note += subtitleStyle.Render(fmt.Sprintf("  %d this year", st.CountThisYear))
		rows = append(rows, r.itemLine(idx, st, note))
		idx++
	}

	if len(r.ledgerView.ComingUp) > 0 {
		rows = append(rows, "", titleStyle.Render("Coming up"))
		for _, st := range r.ledgerView.ComingUp {
			rows = append(rows, "  "+highlightStyle.Render(st.Type)+
				subtitleStyle.Render(fmt.Sprintf("  %d back in %dd", st.QuotaAvailable, st.DaysUntil)))
		}
	}

	rows = append(rows, "", mutedStyle.Render("r redeem · a admit defeat · u undo · n/e/d configure"))
	return panelStyle.Width(r.width - 4).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (r rewardsModel) itemLine(idx int, st ledger.ItemStatus, note string) string {
	cursor := "  "
	name := normalItemStyle.Render(st.Type)
	if idx == r.cursor {
		cursor = highlightStyle.Render("> ")
		name = selectedItemStyle.Render(st.Type)
	}
	cadence := subtitleStyle.Render(fmt.Sprintf(" (%s)", st.Cadence))
	return fmt.Sprintf("%s%s%s  %s", cursor, name, cadence, note)
}
