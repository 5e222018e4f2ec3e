// Package tui provides the interactive Bubble Tea front-end for cashflow.
package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/theirongolddev/cashflow/internal/cli"
	"github.com/theirongolddev/cashflow/internal/config"
	"github.com/theirongolddev/cashflow/internal/export"
	"github.com/theirongolddev/cashflow/internal/model"
	"github.com/theirongolddev/cashflow/internal/pipeline"
	"github.com/theirongolddev/cashflow/internal/tui/components"
	"github.com/theirongolddev/cashflow/internal/tui/theme"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// ExportDoneMsg is sent when a background export finishes.
type ExportDoneMsg struct {
	Paths []string
	Err   error
}

// Options configures a new App.
type Options struct {
	Catalog config.Catalog
	// Input pre-fills the form, or is projected straight away with SkipForm.
	Input      pipeline.Input
	SkipForm   bool
	ExportPath string
	ChartPath  string
}

// App is the root Bubble Tea model.
type App struct {
	cat        config.Catalog
	exportPath string
	chartPath  string

	// Simulation form
	vals    *formValues
	form    *huh.Form
	editing bool

	// Last projection
	input     pipeline.Input
	proj      model.Projection
	stats     model.Stats
	tables    [4]table.Model
	hasResult bool

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool
	showChart bool

	status    string
	statusErr bool
	exporting bool
}

const (
	minTerminalWidth = 80
	maxContentWidth  = 160

	// Rows taken by everything except the table body: tab bar, info line,
	// metric cards, sparkline card, table header and status bar.
	chromeHeight     = 16
	minContentHeight = 5
	chartHeight      = 8
)

// NewApp creates a new TUI app model.
func NewApp(opts Options) App {
	a := App{
		cat:        opts.Catalog,
		exportPath: opts.ExportPath,
		chartPath:  opts.ChartPath,
		input:      opts.Input,
	}
	if opts.SkipForm {
		a.run(opts.Input)
		if a.hasResult {
			return a
		}
	}
	a.openForm()
	return a
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{tea.EnableMouseCellMotion}
	if a.editing && a.form != nil {
		cmds = append(cmds, a.form.Init())
	}
	return tea.Batch(cmds...)
}

func (a *App) openForm() {
	a.vals = newFormValues(a.input, a.cat)
	a.form = newSimulationForm(a.vals)
	if a.width > 0 {
		a.form = a.form.WithWidth(min(a.width, 100)).WithHeight(a.height - 2)
	}
	a.editing = true
}

// run projects in and swaps the result in, leaving the previous result
// untouched on error.
func (a *App) run(in pipeline.Input) {
	p, err := pipeline.Project(a.cat, in)
	if err != nil {
		a.setStatus(err.Error(), true)
		return
	}
	a.input = in
	a.proj = p
	a.stats = pipeline.ComputeStats(p)
	a.hasResult = true
	a.editing = false
	a.form = nil
	a.rebuildTables()
	a.setStatus(fmt.Sprintf("%d días proyectados", a.stats.Days), false)
}

func (a *App) rebuildTables() {
	if !a.hasResult {
		return
	}
	cursors := [4]int{}
	for i := range a.tables {
		cursors[i] = a.tables[i].Cursor()
	}
	a.tables = buildTables(a.proj, a.contentWidth(), a.tableHeight())
	for i := range a.tables {
		if cursors[i] < len(a.tables[i].Rows()) {
			a.tables[i].SetCursor(cursors[i])
		}
	}
}

func (a *App) setStatus(msg string, isErr bool) {
	a.status = msg
	a.statusErr = isErr
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.form != nil {
			a.form = a.form.WithWidth(min(a.width, 100)).WithHeight(a.height - 2)
		}
		a.rebuildTables()
		return a, nil

	case ExportDoneMsg:
		a.exporting = false
		if msg.Err != nil {
			a.setStatus("Error al exportar: "+msg.Err.Error(), true)
		} else {
			a.setStatus("Exportado: "+strings.Join(msg.Paths, ", "), false)
		}
		return a, nil
	}

	if a.editing && a.form != nil {
		if key, ok := msg.(tea.KeyMsg); ok && key.String() == "ctrl+c" {
			return a, tea.Quit
		}
		return a.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.updateKey(msg)
	case tea.MouseMsg:
		return a.updateMouse(msg)
	}
	return a, nil
}

func (a App) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.form = f
	}

	switch a.form.State {
	case huh.StateCompleted:
		in, err := a.vals.input(a.input.SettleFirstDay)
		if err != nil {
			a.setStatus(err.Error(), true)
			a.openForm()
			return a, a.form.Init()
		}
		a.run(in)
		if !a.hasResult || a.editing {
			a.openForm()
			return a, a.form.Init()
		}
		return a, nil

	case huh.StateAborted:
		if !a.hasResult {
			return a, tea.Quit
		}
		a.editing = false
		a.form = nil
		return a, nil
	}

	return a, cmd
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" || key == "q" {
		return a, tea.Quit
	}

	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	switch key {
	case "n":
		a.openForm()
		return a, a.form.Init()
	case "e":
		if a.exporting || !a.hasResult {
			return a, nil
		}
		a.exporting = true
		a.setStatus("Exportando...", false)
		return a, exportCmd(a.proj, a.exportPath, a.chartPath, a.cat.Threshold)
	case "g":
		a.showChart = !a.showChart
		a.rebuildTables()
		return a, nil
	case "left", "shift+tab":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
		return a, nil
	case "right", "tab":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
		return a, nil
	}

	if len(msg.Runes) == 1 {
		if idx := components.TabIdxByKey(msg.Runes[0]); idx >= 0 {
			a.activeTab = idx
			return a, nil
		}
	}

	if !a.hasResult {
		return a, nil
	}
	var cmd tea.Cmd
	a.tables[a.activeTab], cmd = a.tables[a.activeTab].Update(msg)
	return a, cmd
}

func (a App) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft && msg.Y == 0:
		if idx := a.tabAtX(msg.X - a.contentOffset()); idx >= 0 {
			a.activeTab = idx
		}
	case msg.Button == tea.MouseButtonWheelUp && a.hasResult:
		a.tables[a.activeTab].MoveUp(1)
	case msg.Button == tea.MouseButtonWheelDown && a.hasResult:
		a.tables[a.activeTab].MoveDown(1)
	}
	return a, nil
}

func (a App) contentWidth() int {
	return max(min(a.width, maxContentWidth), minTerminalWidth)
}

// contentOffset is the left margin when the content is centered in a
// terminal wider than maxContentWidth.
func (a App) contentOffset() int {
	return max((a.width-a.contentWidth())/2, 0)
}

func (a App) tableHeight() int {
	h := a.height - chromeHeight
	if a.showChart {
		h -= chartHeight + 3
	}
	return max(h, minContentHeight)
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if a.editing && a.form != nil {
		return a.viewForm()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := max(a.height, 5)
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  cashflow needs at least %d columns.\n",
		a.width,
		minTerminalWidth,
	)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewForm() string {
	t := theme.Active

	titleStyle := lipgloss.NewStyle().
		Foreground(t.AccentBright).
		Bold(true).
		Padding(0, 1)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Cashflow interactivo"))
	b.WriteString("\n")
	if a.status != "" && a.statusErr {
		b.WriteString(lipgloss.NewStyle().Foreground(t.Critical).Padding(0, 1).Render(a.status))
		b.WriteString("\n")
	}
	b.WriteString(a.form.View())

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Top, b.String())
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)

	titleStyle := lipgloss.NewStyle().
		Foreground(t.AccentBright).
		Background(t.Surface).
		Bold(true)

	keyStyle := lipgloss.NewStyle().
		Foreground(t.Accent).
		Background(t.Surface).
		Bold(true)

	descStyle := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Atajos de teclado"))
	b.WriteString("\n\n")

	bindings := []struct{ key, desc string }{
		{"1 2 3 4", "Ir a pestaña"},
		{"← → tab", "Pestaña anterior / siguiente"},
		{"↑ ↓ j k", "Moverse por la tabla"},
		{"g", "Gráfico de gastos diarios"},
		{"n", "Nueva simulación"},
		{"e", "Exportar a Excel"},
		{"?", "Mostrar / ocultar ayuda"},
		{"q", "Salir"},
	}
	for _, bind := range bindings {
		fmt.Fprintf(&b, "  %s  %s\n",
			keyStyle.Render(fmt.Sprintf("%-8s", bind.key)),
			descStyle.Render(bind.desc))
	}

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center,
		cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	infoStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	accentStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	info := infoStyle.Render(" ") +
		accentStyle.Render(cli.FormatDate(a.input.Start)+" → "+cli.FormatDate(a.input.End)) +
		infoStyle.Render("  saldo inicial ") +
		accentStyle.Render(cli.FormatMoney(a.input.InitialBalance))
	header := components.RenderTabBar(a.activeTab, cw) + "\n" +
		lipgloss.NewStyle().Background(t.Surface).Width(cw).Render(info)

	statusBar := components.RenderStatusBar(cw, a.status, a.statusErr)

	contentH := max(h-lipgloss.Height(header)-lipgloss.Height(statusBar), minContentHeight)

	var content string
	if a.hasResult {
		content = a.renderResult(cw)
	}
	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) renderResult(cw int) string {
	t := theme.Active
	s := a.stats
	threshold := a.cat.Threshold

	cards := components.MetricCardRow([]components.Metric{
		{Label: "Saldo inicial", Value: cli.FormatMoney(s.OpeningBalance)},
		{
			Label: "Saldo final",
			Value: cli.FormatMoney(s.ClosingBalance),
			Color: t.BalanceColor(s.ClosingBalance, threshold),
		},
		{
			Label: "Saldo mínimo",
			Value: cli.FormatMoney(s.MinBalance),
			Note:  cli.FormatDate(s.MinBalanceDate),
			Color: t.BalanceColor(s.MinBalance, threshold),
		},
		{
			Label: "Días críticos",
			Value: fmt.Sprintf("%d / %d", s.CriticalDays, s.Days),
			Note:  "saldo < " + cli.FormatMoney(threshold),
		},
		{Label: "Ahorro por reducciones", Value: cli.FormatMoney(s.TotalReduced), Color: t.Income},
	}, cw)

	inner := components.CardInnerWidth(cw)
	balances := components.Resample(pipeline.BalanceSeries(a.proj.Ledger), inner)
	spark := components.ContentCard("Saldo diario",
		components.Sparkline(balances, t.BalanceColor(s.MinBalance, threshold)), cw)

	parts := []string{cards, spark}

	switch a.activeTab {
	case tabLedger:
		if a.showChart {
			expenses := make([]float64, len(a.proj.Ledger))
			for i, d := range a.proj.Ledger {
				expenses[i] = d.Expense
			}
			parts = append(parts, components.ContentCard("Gastos diarios",
				components.BarChart(expenses, t.Expense, inner, chartHeight), cw))
		}
	case tabSummary:
		parts = append(parts, a.renderFactors(inner))
	}

	parts = append(parts, a.tables[a.activeTab].View())
	if len(a.tables[a.activeTab].Rows()) == 0 {
		parts = append(parts, lipgloss.NewStyle().Foreground(t.TextMuted).Render("  Sin filas"))
	}
	return strings.Join(parts, "\n")
}

// renderFactors shows the reduction factor applied to each category.
func (a App) renderFactors(inner int) string {
	t := theme.Active
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	var b strings.Builder
	for i, name := range a.cat.VariableNames() {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-14s ", name)))
		b.WriteString(components.ReductionBar(a.input.Reductions[name], min(inner-22, 40)))
	}
	return components.ContentCard("Factores de reducción", b.String(), a.contentWidth())
}

// ─── Helpers ────────────────────────────────────────────────────

// exportCmd writes the workbook, and the chart when a path is set, off the
// UI goroutine.
func exportCmd(p model.Projection, path, chartPath string, threshold float64) tea.Cmd {
	return func() tea.Msg {
		if err := export.SaveWorkbook(path, p); err != nil {
			return ExportDoneMsg{Err: err}
		}
		written := []string{path}

		if chartPath != "" {
			if err := export.SaveBalanceChart(chartPath, p.Ledger, threshold); err != nil {
				if errors.Is(err, export.ErrTooFewDays) {
					return ExportDoneMsg{Paths: written}
				}
				return ExportDoneMsg{Paths: written, Err: err}
			}
			written = append(written, chartPath)
		}
		return ExportDoneMsg{Paths: written}
	}
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")

	var result strings.Builder
	for i, line := range lines {
		result.WriteString(lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg)))
		if i < len(lines)-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}

// ─── Mouse Support ──────────────────────────────────────────────

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes follow the same widths RenderTabBar uses.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW

		// Separator is one column between tabs.
		if i < len(components.Tabs)-1 {
			pos++
		}
	}
	return -1
}
