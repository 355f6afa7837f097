package cli

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"dvamodel/internal/core/ports"
	"dvamodel/internal/engine/parser"
	"dvamodel/internal/shared/util"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	reducerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	effectStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)

	codeStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#334155")).
			Padding(0, 1)
)

type item struct {
	title, desc string
	idx         int
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title + i.desc }

// entry is one row of the action list.
type entry struct {
	actionType string
	kind       parser.MethodKind
	file       string
	method     parser.MethodInfo
}

type model struct {
	actionList list.Model
	entries    []entry
	root       string
	showCode   bool
	lastUpdate time.Time
	fileCount  int
	modelCount int
	status     string
}

type updateMsg struct {
	files      []ports.FileModels
	fileCount  int
	modelCount int
}

type sourceJumpResultMsg struct {
	target string
	err    error
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return handleKeyActions(msg, m)
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		height := msg.Height - v - 6
		if height < 5 {
			height = 5
		}
		m.actionList.SetSize(msg.Width-h, height)
	case updateMsg:
		m.entries = buildEntries(msg.files)
		m.fileCount = msg.fileCount
		m.modelCount = msg.modelCount
		m.lastUpdate = time.Now()

		items := make([]list.Item, 0, len(m.entries))
		for i, e := range m.entries {
			items = append(items, item{
				title: e.actionType,
				desc:  fmt.Sprintf("%s  %s", e.kind, m.location(e)),
				idx:   i,
			})
		}
		m.actionList.SetItems(items)
	case sourceJumpResultMsg:
		if msg.err != nil {
			m.status = statusStyle.Render(fmt.Sprintf("Source jump failed: %v", msg.err))
		} else {
			m.status = statusStyle.Render(fmt.Sprintf("Opened source: %s", msg.target))
		}
	}

	var cmd tea.Cmd
	m.actionList, cmd = m.actionList.Update(msg)
	return m, cmd
}

func (m model) View() string {
	status := statusStyle.Render(fmt.Sprintf("Last update: %v | %d files | %d models | %d actions",
		m.lastUpdate.Format("15:04:05"), m.fileCount, m.modelCount, len(m.entries)))

	header := fmt.Sprintf("%s\n%s\n", titleStyle("dva Model Explorer"), status)
	help := statusStyle.Render("enter: show code | o: open in $EDITOR | esc: back | /: filter | q: quit")

	body := m.actionList.View()
	if m.showCode {
		body = renderCode(m)
	}
	if m.status != "" {
		body += "\n\n" + m.status
	}
	return docStyle.Render(header + "\n" + help + "\n\n" + body)
}

func (m model) location(e entry) string {
	file := e.file
	if m.root != "" {
		if rel, err := filepath.Rel(m.root, e.file); err == nil && !strings.HasPrefix(rel, "..") {
			file = filepath.ToSlash(rel)
		}
	}
	if e.method.Loc == nil {
		return file
	}
	return fmt.Sprintf("%s:%d", file, e.method.Loc.Start.Line)
}

func (m model) selected() (entry, bool) {
	sel, ok := m.actionList.SelectedItem().(item)
	if !ok || sel.idx < 0 || sel.idx >= len(m.entries) {
		return entry{}, false
	}
	return m.entries[sel.idx], true
}

func renderCode(m model) string {
	e, ok := m.selected()
	if !ok {
		return statusStyle.Render("Nothing selected.")
	}
	kind := reducerStyle.Render(string(e.kind))
	if e.kind == parser.KindEffect {
		kind = effectStyle.Render(string(e.kind))
	}
	return fmt.Sprintf("%s %s\n%s\n\n%s", titleStyle(e.actionType), kind,
		statusStyle.Render(m.location(e)), codeStyle.Render(e.method.Code))
}

// buildEntries flattens files into action rows sorted by action type, with
// reducers ahead of effects for the same type.
func buildEntries(files []ports.FileModels) []entry {
	var out []entry
	for _, f := range files {
		for _, md := range f.Models {
			for _, kind := range []parser.MethodKind{parser.KindReducer, parser.KindEffect} {
				group := md.Group(kind)
				for _, name := range util.SortedStringKeys(group) {
					out = append(out, entry{
						actionType: parser.ActionType(md.Namespace, name),
						kind:       kind,
						file:       f.File,
						method:     group[name],
					})
				}
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].actionType != out[j].actionType {
			return out[i].actionType < out[j].actionType
		}
		return out[i].kind == parser.KindReducer && out[j].kind != parser.KindReducer
	})
	return out
}

func initialModel(root string) model {
	actionList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	actionList.Title = "Action Types"
	actionList.SetShowStatusBar(false)
	actionList.SetFilteringEnabled(true)

	return model{
		actionList: actionList,
		root:       root,
		lastUpdate: time.Now(),
	}
}
