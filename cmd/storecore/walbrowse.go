package main

import (
	"fmt"
	"strings"

	"storecore/pkg/log/record"
	"storecore/pkg/log/wal"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	primaryColor = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}
	accentColor  = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}
	successColor = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}
	warningColor = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}
	errorColor   = lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#F87171"}
	mutedColor   = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}

	titleStyle    = lipgloss.NewStyle().Foreground(primaryColor).Bold(true).Padding(0, 1).MarginBottom(1)
	headerStyle   = lipgloss.NewStyle().Foreground(accentColor).Bold(true).BorderStyle(lipgloss.RoundedBorder()).BorderForeground(primaryColor).Padding(0, 1)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(primaryColor).Bold(true)
	itemStyle     = lipgloss.NewStyle().Padding(0, 1)
	labelStyle    = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	detailStyle   = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(primaryColor).Padding(1, 2)
	helpStyle     = lipgloss.NewStyle().Foreground(mutedColor).MarginTop(1).Padding(0, 1)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(primaryColor).Padding(0, 1).MarginTop(1)
	errorStyle    = lipgloss.NewStyle().Foreground(errorColor).Bold(true).Padding(1)
)

type browseKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Back   key.Binding
	Quit   key.Binding
}

var browseKeys = browseKeyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "move up")),
	Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "move down")),
	Select: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
	Back:   key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("esc", "back")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func newWALBrowseCommand(g *globals) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse a log file interactively.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				path = g.cfg.WAL.Path
			}
			p := tea.NewProgram(newBrowseModel(path), tea.WithAltScreen())
			final, err := p.Run()
			if err != nil {
				return err
			}
			return final.(browseModel).err
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "Log file to read (default: wal.path from the config).")
	return cmd
}

type browseModel struct {
	logPath    string
	records    []*record.LogRecord
	loaded     bool
	cursor     int
	detailMode bool
	viewport   viewport.Model
	err        error
}

func newBrowseModel(logPath string) browseModel {
	return browseModel{logPath: logPath, viewport: viewport.New(80, 20)}
}

type recordsLoadedMsg struct {
	records []*record.LogRecord
	err     error
}

func loadRecords(logPath string) tea.Cmd {
	return func() tea.Msg {
		reader, err := wal.NewLogReader(logPath)
		if err != nil {
			return recordsLoadedMsg{err: err}
		}
		defer reader.Close()

		records, err := reader.ReadAll()
		return recordsLoadedMsg{records: records, err: err}
	}
}

func (m browseModel) Init() tea.Cmd {
	return loadRecords(m.logPath)
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case recordsLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.records = msg.records
		m.loaded = true
		return m, nil

	case tea.WindowSizeMsg:
		m.viewport = viewport.New(max(20, msg.Width-4), max(5, msg.Height-10))
		if m.detailMode {
			m.viewport.SetContent(m.renderDetail())
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, browseKeys.Quit) {
			return m, tea.Quit
		}
		if m.detailMode {
			if key.Matches(msg, browseKeys.Back) {
				m.detailMode = false
				return m, nil
			}
			break
		}
		switch {
		case key.Matches(msg, browseKeys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, browseKeys.Down):
			if m.cursor < len(m.records)-1 {
				m.cursor++
			}
		case key.Matches(msg, browseKeys.Select):
			if m.cursor < len(m.records) {
				m.detailMode = true
				m.viewport.SetContent(m.renderDetail())
				m.viewport.GotoTop()
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m browseModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if !m.loaded {
		return "Loading log records...\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("storecore write-ahead log") + "\n")

	if m.detailMode {
		b.WriteString(m.viewport.View())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("esc: back | q: quit"))
	} else {
		b.WriteString(m.renderList())
	}

	mode := "List"
	if m.detailMode {
		mode = "Detail"
	}
	position := fmt.Sprintf("%d/%d", min(m.cursor+1, len(m.records)), len(m.records))
	b.WriteString("\n" + statusStyle.Render(fmt.Sprintf(" %s | %s | %s ", mode, position, m.logPath)))
	return b.String()
}

func (m browseModel) renderList() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf(" Total Records: %d ", len(m.records))) + "\n\n")

	start := max(0, m.cursor-10)
	end := min(len(m.records), start+20)
	for i := start; i < end; i++ {
		line := formatRecordLine(m.records[i], i)
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("▶ "+line) + "\n")
		} else {
			b.WriteString(itemStyle.Render("  "+line) + "\n")
		}
	}

	b.WriteString(helpStyle.Render("↑/↓: navigate | enter: details | q: quit"))
	return b.String()
}

func formatRecordLine(rec *record.LogRecord, index int) string {
	line := fmt.Sprintf("[%3d] %s │ LSN %d │ %s", index+1, recordTypeLabel(rec.Type), rec.LSN, rec.TransactionID())
	if rec.Type == record.UpdateRecord {
		line += " │ " + rec.PageID().String()
	}
	return line + " │ " + lipgloss.NewStyle().Foreground(mutedColor).Render(rec.Time().Format("15:04:05"))
}

func recordTypeLabel(t record.LogRecordType) string {
	var color lipgloss.AdaptiveColor
	var icon string
	switch t {
	case record.BeginRecord:
		color, icon = successColor, "▶"
	case record.CommitRecord:
		color, icon = successColor, "✓"
	case record.AbortRecord:
		color, icon = errorColor, "✗"
	case record.UpdateRecord:
		color, icon = warningColor, "⟳"
	default:
		color, icon = mutedColor, "?"
	}
	return lipgloss.NewStyle().Foreground(color).Render(fmt.Sprintf("%s %-7s", icon, t))
}

func (m browseModel) renderDetail() string {
	if m.cursor >= len(m.records) {
		return "No record selected"
	}
	rec := m.records[m.cursor]

	var b strings.Builder
	kv := func(k, v string) {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render(k+":"), v)
	}

	b.WriteString(labelStyle.Render("Type: ") + recordTypeLabel(rec.Type) + "\n\n")
	kv("LSN", fmt.Sprintf("%d", rec.LSN))
	kv("Previous LSN", fmt.Sprintf("%d", rec.PrevLSN))
	kv("Transaction", rec.TransactionID().String())
	kv("Timestamp", rec.Time().Format("2006-01-02 15:04:05.000"))

	if rec.Type == record.UpdateRecord {
		b.WriteString("\n")
		kv("Table", rec.TableID.String())
		kv("Page", fmt.Sprintf("%d", rec.PageNo))
		kv("Before image", fmt.Sprintf("%d bytes", len(rec.BeforeImage)))
		kv("After image", fmt.Sprintf("%d bytes", len(rec.AfterImage)))
		kv("Changed bytes", fmt.Sprintf("%d", changedBytes(rec.BeforeImage, rec.AfterImage)))
	}
	return detailStyle.Render(b.String())
}

func changedBytes(before, after []byte) int {
	n := 0
	for i := 0; i < max(len(before), len(after)); i++ {
		if i >= len(before) || i >= len(after) || before[i] != after[i] {
			n++
		}
	}
	return n
}

