// Package tui is the terminal storefront. It drives a workflow.Workflow from
// bubbletea key events; searches run as commands and report back through
// resultMsg so the event loop never waits on the network.
package tui

import (
	"context"
	"fmt"
	"strings"

	"budgetbite/pkg/models"
	"budgetbite/pkg/validate"
	"budgetbite/pkg/workflow"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type field int

const (
	fieldProduct field = iota
	fieldZip
	fieldRadius
	fieldStores
	fieldCount
)

type resultMsg struct {
	ticket  workflow.Ticket
	payload any
	err     error
}

type Model struct {
	ctx      context.Context
	searcher workflow.Searcher
	wf       *workflow.Workflow

	product textinput.Model
	zip     textinput.Model
	focus   field
	width   int
	styles  Styles
}

func New(ctx context.Context, searcher workflow.Searcher, opts ...workflow.Option) Model {
	product := textinput.New()
	product.Placeholder = "Enter a grocery item to search..."
	product.CharLimit = 64
	product.Width = 40
	product.Focus()

	zip := textinput.New()
	zip.Placeholder = "Zip Code"
	zip.CharLimit = 10
	zip.Width = 12

	return Model{
		ctx:      ctx,
		searcher: searcher,
		wf:       workflow.New(searcher, opts...),
		product:  product,
		zip:      zip,
		focus:    fieldProduct,
		width:    80,
		styles:   DefaultStyles(),
	}
}

// Run starts the terminal storefront and blocks until the user quits.
func Run(ctx context.Context, searcher workflow.Searcher, opts ...workflow.Option) error {
	p := tea.NewProgram(New(ctx, searcher, opts...), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m Model) Workflow() *workflow.Workflow {
	return m.wf
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case resultMsg:
		m.wf.Complete(msg.ticket, msg.payload, msg.err)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m.updateInputs(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "tab":
		return m, m.moveFocus(1)
	case "shift+tab":
		return m, m.moveFocus(-1)
	case "enter":
		t, err := m.wf.Begin()
		if err != nil {
			return m, nil
		}
		return m, m.search(t)
	case "ctrl+r":
		t, err := m.wf.BeginRetry()
		if err != nil {
			return m, nil
		}
		return m, m.search(t)
	case "ctrl+l":
		m.wf.Clear()
		m.syncInputs()
		return m, nil
	case "ctrl+x":
		m.wf.ClearSearch()
		m.syncInputs()
		return m, nil
	case "pgdown":
		m.wf.NextPage()
		return m, nil
	case "pgup":
		m.wf.PrevPage()
		return m, nil
	case "ctrl+s":
		m.wf.CyclePageSize()
		return m, nil
	case "left", "right":
		step := 1
		if msg.String() == "left" {
			step = -1
		}
		in := m.wf.Input()
		switch m.focus {
		case fieldRadius:
			m.wf.SetRadius(in.RadiusMiles + step)
			return m, nil
		case fieldStores:
			m.wf.SetStoreCount(in.StoreCount + step)
			return m, nil
		}
	}
	return m.updateInputs(msg)
}

func (m *Model) moveFocus(delta int) tea.Cmd {
	if m.focus == fieldProduct || m.focus == fieldZip {
		m.wf.Validate()
	}
	m.product.Blur()
	m.zip.Blur()
	m.focus = (m.focus + field(delta) + fieldCount) % fieldCount
	switch m.focus {
	case fieldProduct:
		return m.product.Focus()
	case fieldZip:
		return m.zip.Focus()
	}
	return nil
}

// updateInputs forwards msg to the focused text input and offers the
// resulting value to the workflow. A refused edit is rolled back.
func (m Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		in   *textinput.Model
		edit func(string) bool
	)
	switch m.focus {
	case fieldProduct:
		in, edit = &m.product, m.wf.EditProductName
	case fieldZip:
		in, edit = &m.zip, m.wf.EditZipCode
	default:
		return m, nil
	}

	prev, pos := in.Value(), in.Position()
	var cmd tea.Cmd
	*in, cmd = in.Update(msg)
	if in.Value() != prev && !edit(in.Value()) {
		in.SetValue(prev)
		in.SetCursor(pos)
	}
	return m, cmd
}

func (m *Model) syncInputs() {
	in := m.wf.Input()
	m.product.SetValue(in.ProductName)
	m.zip.SetValue(in.ZipCode)
}

func (m Model) search(t workflow.Ticket) tea.Cmd {
	ctx, searcher := m.ctx, m.searcher
	return func() tea.Msg {
		payload, err := searcher.Search(ctx, t.Request)
		return resultMsg{ticket: t, payload: payload, err: err}
	}
}

func (m Model) View() string {
	v := m.wf.View()
	s := m.styles
	var b strings.Builder

	b.WriteString(s.Title.Render("BudgetBite"))
	b.WriteString("\n")
	b.WriteString(m.row(fieldProduct, "Product", m.product.View()))
	b.WriteString(m.fieldError(v, validate.FieldProductName))
	b.WriteString(m.row(fieldZip, "ZIP code", m.zip.View()))
	b.WriteString(m.fieldError(v, validate.FieldZipCode))
	b.WriteString(m.row(fieldRadius, "Radius", fmt.Sprintf("‹ %s ›", workflow.Miles(v.Input.RadiusMiles))))
	b.WriteString(m.row(fieldStores, "Stores", fmt.Sprintf("‹ %d ›", v.Input.StoreCount)))
	if v.Summary != "" {
		b.WriteString(s.FieldErr.UnsetPaddingLeft().Render(v.Summary))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch v.Status {
	case workflow.Loading:
		b.WriteString(s.StoreName.Render(workflow.TitleLoading))
		b.WriteString("\n")
		b.WriteString(s.Muted.Render(v.LoadingText()))
	case workflow.Failed:
		b.WriteString(s.Banner.Render(workflow.TitleFailed + "\n" + v.Error))
		b.WriteString("\n")
		b.WriteString(s.Muted.Render("ctrl+r try again"))
	case workflow.Success:
		b.WriteString(m.results(v))
	}

	b.WriteString(s.Help.Render("tab focus • ←/→ adjust • enter search • pgup/pgdn page • ctrl+s page size • ctrl+x clear search • ctrl+l clear all • esc quit"))
	return b.String()
}

func (m Model) row(f field, label, value string) string {
	style := m.styles.Label
	if m.focus == f {
		style = m.styles.Focused
	}
	return style.Render(label) + value + "\n"
}

func (m Model) fieldError(v workflow.View, key string) string {
	msg, ok := v.FieldErrors[key]
	if !ok {
		return ""
	}
	return m.styles.FieldErr.Render(msg) + "\n"
}

func (m Model) results(v workflow.View) string {
	s := m.styles
	if v.Empty {
		return s.StoreName.Render(workflow.TitleEmpty) + "\n" + s.Muted.Render(v.EmptyText()) + "\n"
	}

	cards := make([]string, 0, len(v.Listings))
	for _, l := range v.Listings {
		cards = append(cards, m.card(l))
	}
	perRow := max(1, m.width/s.Card.GetWidth())
	var rows []string
	for i := 0; i < len(cards); i += perRow {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards[i:min(i+perRow, len(cards))]...))
	}

	return lipgloss.JoinVertical(lipgloss.Left, rows...) + "\n" +
		s.Muted.Render(fmt.Sprintf("Page %d of %d • %d per page • %s", v.Page, v.TotalPages, v.PageSize, v.Window)) + "\n"
}

func (m Model) card(l models.Listing) string {
	s := m.styles
	lines := []string{
		s.StoreName.Render(l.Store.Name),
		l.ProductName,
		s.Price.Render(l.ProductPrice) + " " + s.Muted.Render(l.UnitQuantity),
		s.Muted.Render(l.Store.DistanceLabel),
	}
	if l.Store.Address != "" {
		lines = append(lines, s.Muted.Render(l.Store.Address))
	}
	if l.Store.WebsiteURL != "" {
		lines = append(lines, s.Muted.Render(l.Store.WebsiteURL))
	}
	return s.Card.Render(strings.Join(lines, "\n"))
}
