package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	listHeight   = 8
	defaultWidth = 40
)

var (
	messageStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).MarginLeft(2)
	headingStyle      = lipgloss.NewStyle().MarginLeft(2).Bold(true)
	itemStyle         = lipgloss.NewStyle().PaddingLeft(4)
	selectedItemStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("170"))
	helpStyle         = list.DefaultStyles().HelpStyle.PaddingLeft(4).PaddingBottom(1)
)

// Action is what the user picked in the menu.
type Action int

const (
	ActionCommit Action = iota
	ActionCopy
	ActionRegenerate
	ActionCancel
)

func (a Action) String() string {
	switch a {
	case ActionCommit:
		return "commit"
	case ActionCopy:
		return "copy"
	case ActionRegenerate:
		return "regenerate"
	default:
		return "cancel"
	}
}

type menuItem struct {
	title  string
	action Action
}

func (i menuItem) FilterValue() string { return i.title }

type itemDelegate struct{}

func (d itemDelegate) Height() int                             { return 1 }
func (d itemDelegate) Spacing() int                            { return 0 }
func (d itemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, li list.Item) {
	i, ok := li.(menuItem)
	if !ok {
		return
	}
	if index == m.Index() {
		fmt.Fprint(w, selectedItemStyle.Render("> "+i.title))
		return
	}
	fmt.Fprint(w, itemStyle.Render(i.title))
}

type menuModel struct {
	list    list.Model
	message string
	choice  Action
	done    bool
}

func newMenuModel(message string) menuModel {
	items := []list.Item{
		menuItem{title: "Commit", action: ActionCommit},
		menuItem{title: "Copy to clipboard", action: ActionCopy},
		menuItem{title: "Regenerate", action: ActionRegenerate},
		menuItem{title: "Cancel", action: ActionCancel},
	}
	l := list.New(items, itemDelegate{}, defaultWidth, listHeight)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowPagination(false)
	l.Styles.HelpStyle = helpStyle
	return menuModel{list: l, message: message, choice: ActionCancel}
}

func (m menuModel) Init() tea.Cmd { return nil }

func (m menuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetWidth(msg.Width)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.choice = ActionCancel
			m.done = true
			return m, tea.Quit
		case "enter":
			if i, ok := m.list.SelectedItem().(menuItem); ok {
				m.choice = i.action
			}
			m.done = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m menuModel) View() string {
	if m.done {
		return ""
	}
	var b strings.Builder
	b.WriteString(headingStyle.Render("Generated commit message:"))
	b.WriteString("\n")
	b.WriteString(messageStyle.Render(m.message))
	b.WriteString("\n\n")
	b.WriteString(m.list.View())
	return b.String()
}

// Choose shows message with a Commit / Copy / Regenerate / Cancel menu and
// returns the picked action. The menu renders on out; cancelling ctx or
// pressing q, esc or ctrl+c yields ActionCancel.
func Choose(ctx context.Context, message string, out io.Writer) (Action, error) {
	p := tea.NewProgram(newMenuModel(message), tea.WithContext(ctx), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		if ctx.Err() != nil {
			return ActionCancel, nil
		}
		return ActionCancel, fmt.Errorf("action menu: %w", err)
	}
	if m, ok := final.(menuModel); ok {
		return m.choice, nil
	}
	return ActionCancel, nil
}
