package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nor2/wasi-harness/engine"
	"github.com/nor2/wasi-harness/imports"
	"github.com/nor2/wasi-harness/runtime"
	"github.com/nor2/wasi-harness/wasi"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	importStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	sourceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#C792EA"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// importRow is one imported function of the loaded module, annotated with
// which side of the merged import set will satisfy it.
type importRow struct {
	namespace string
	name      string
	sig       string
	source    string
}

type inspectorModel struct {
	filename string
	env      wasi.EnvironmentConfig
	entry    string
	workers  int
	cacheDir string

	rt   *runtime.Runtime
	mod  *engine.Module
	rows []importRow

	spin    spinner.Model
	output  viewport.Model
	running bool
	runs    int
	res     *runtime.Result
	runErr  error
	loadErr error
}

type loadedMsg struct {
	err  error
	rt   *runtime.Runtime
	mod  *engine.Module
	rows []importRow
}

type ranMsg struct {
	err error
	res *runtime.Result
}

func newInspectorModel(filename string, env wasi.EnvironmentConfig, entry string, workers int, cacheDir string) *inspectorModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	return &inspectorModel{
		filename: filename,
		env:      env,
		entry:    entry,
		workers:  workers,
		cacheDir: cacheDir,
		spin:     s,
		output:   viewport.New(80, 12),
	}
}

func (m *inspectorModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.load)
}

func (m *inspectorModel) load() tea.Msg {
	ctx := context.Background()

	data, err := os.ReadFile(m.filename)
	if err != nil {
		return loadedMsg{err: err}
	}

	rt, err := runtime.NewWithConfig(ctx, &runtime.Config{
		Engine: &engine.Config{
			Features:  engine.AllFeatures(),
			CacheDir:  m.cacheDir,
			DebugInfo: true,
		},
		Workers: m.workers,
	})
	if err != nil {
		return loadedMsg{err: err}
	}

	mod, err := rt.Load(ctx, data)
	if err != nil {
		rt.Close(ctx)
		return loadedMsg{err: err}
	}

	table, err := hostImports(wasi.AllowAll(), rt.Tasks())
	if err != nil {
		rt.Close(ctx)
		return loadedMsg{err: err}
	}

	var rows []importRow
	for _, def := range mod.ImportedFunctions() {
		ns, name, ok := def.Import()
		if !ok {
			continue
		}
		row := importRow{
			namespace: ns,
			name:      name,
			sig: imports.FormatTypes(def.ParamTypes()) + " -> " +
				imports.FormatTypes(def.ResultTypes()),
			source: "unresolved",
		}
		if ns == engine.WASIPreview1 || ns == engine.WASIUnstable {
			row.source = "wasi"
		}
		if _, ok := table.Lookup(ns, name); ok {
			row.source = "custom"
		}
		rows = append(rows, row)
	}

	return loadedMsg{rt: rt, mod: mod, rows: rows}
}

func (m *inspectorModel) runModule() tea.Msg {
	res, err := executeOnce(context.Background(), m.rt, m.mod, m.env, m.entry)
	return ranMsg{res: res, err: err}
}

func (m *inspectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.rt != nil {
				m.rt.Close(context.Background())
			}
			return m, tea.Quit

		case "r":
			if m.rt != nil && !m.running {
				m.running = true
				return m, tea.Batch(m.spin.Tick, m.runModule)
			}
		}

	case tea.WindowSizeMsg:
		m.output.Width = msg.Width - 4
		h := msg.Height - len(m.rows) - 12
		if h < 4 {
			h = 4
		}
		m.output.Height = h

	case spinner.TickMsg:
		if m.rt == nil && m.loadErr == nil || m.running {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			return m, cmd
		}

	case loadedMsg:
		if msg.err != nil {
			m.loadErr = msg.err
			return m, nil
		}
		m.rt = msg.rt
		m.mod = msg.mod
		m.rows = msg.rows

	case ranMsg:
		m.running = false
		m.runs++
		m.res = msg.res
		m.runErr = msg.err
		m.output.SetContent(m.renderOutcome())
		m.output.GotoTop()
	}

	if m.res != nil || m.runErr != nil {
		var cmd tea.Cmd
		m.output, cmd = m.output.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *inspectorModel) renderOutcome() string {
	var b strings.Builder

	if m.runErr != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.runErr)))
		return b.String()
	}

	if len(m.res.Stdout) > 0 {
		b.WriteString(streamLabelStyle.Render("Std out:"))
		b.WriteString("\n")
		b.Write(m.res.Stdout)
		b.WriteString("\n")
	}
	if len(m.res.Stderr) > 0 {
		b.WriteString(streamLabelStyle.Render("Std err:"))
		b.WriteString("\n")
		b.Write(m.res.Stderr)
		b.WriteString("\n")
	}

	if m.res.Success() {
		b.WriteString(successStyle.Render("Success"))
	} else {
		detail := "unknown trap"
		if m.res.Trap != nil {
			detail = m.res.Trap.Trace
		}
		b.WriteString(failureStyle.Render("Runtime Error: " + detail))
	}

	return b.String()
}

func (m *inspectorModel) View() string {
	if m.loadErr != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.loadErr))
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("WASI Harness"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	if m.rt == nil {
		b.WriteString(m.spin.View())
		b.WriteString(" Loading module...")
		return b.String()
	}

	b.WriteString(fmt.Sprintf("Size: %d bytes • Imports: %d • Runs: %d\n\n",
		m.mod.Size(), len(m.rows), m.runs))

	if len(m.rows) > 0 {
		b.WriteString("Imported functions:\n")
		for _, row := range m.rows {
			b.WriteString("  ")
			b.WriteString(importStyle.Render(row.namespace + "." + row.name))
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(row.sig))
			b.WriteString(" ")
			b.WriteString(sourceStyle.Render("[" + row.source + "]"))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	switch {
	case m.running:
		b.WriteString(m.spin.View())
		b.WriteString(" Running...\n")

	case m.res != nil || m.runErr != nil:
		b.WriteString(m.output.View())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("r run • ↑/↓ scroll output • q quit"))

	return b.String()
}

func runInteractive(filename string, env wasi.EnvironmentConfig, entry string, workers int, cacheDir string) error {
	p := tea.NewProgram(newInspectorModel(filename, env, entry, workers, cacheDir), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
