package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/ghostcanvas/pkg/scene"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// SceneTreeModel - Interactive scene browser
// =============================================================================

// treeRow is one visible node of the flattened tree.
type treeRow struct {
	node  *scene.Node
	depth int
}

// SceneTreeModel is the bubbletea model for browsing a snapshot. Enter
// picks a node, whose id ends up in Chosen.
type SceneTreeModel struct {
	snap      *scene.Snapshot
	rows      []treeRow
	collapsed map[string]bool

	Cursor int
	Offset int
	Height int
	Chosen string
}

// NewSceneTreeModel creates a browser with every container expanded.
func NewSceneTreeModel(snap *scene.Snapshot) SceneTreeModel {
	m := SceneTreeModel{snap: snap, collapsed: map[string]bool{}, Height: 15}
	m.rebuild()
	return m
}

// rebuild flattens the tree, skipping the children of collapsed nodes.
func (m *SceneTreeModel) rebuild() {
	m.rows = m.rows[:0]
	var visit func(id string, depth int)
	visit = func(id string, depth int) {
		n, ok := m.snap.Nodes[id]
		if !ok {
			return
		}
		m.rows = append(m.rows, treeRow{node: n, depth: depth})
		if m.collapsed[id] {
			return
		}
		for _, c := range n.Children {
			visit(c, depth+1)
		}
	}
	for _, r := range m.snap.Roots {
		visit(r, 0)
	}
	if m.Cursor >= len(m.rows) {
		m.Cursor = max(len(m.rows)-1, 0)
	}
}

func (m SceneTreeModel) Init() tea.Cmd {
	return nil
}

func (m SceneTreeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.rows)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "left", "h", "right", "l", " ":
			if len(m.rows) == 0 {
				return m, nil
			}
			n := m.rows[m.Cursor].node
			if len(n.Children) > 0 {
				m.collapsed[n.ID] = !m.collapsed[n.ID]
				m.rebuild()
			}
		case "enter":
			if len(m.rows) > 0 {
				m.Chosen = m.rows[m.Cursor].node.ID
			}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-6, 5)
	}
	return m, nil
}

func (m SceneTreeModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Scene"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  space fold  ⏎ synthesize  q quit"))
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		b.WriteString(listDimStyle.Render("  (empty scene)"))
		return b.String()
	}

	end := min(m.Offset+m.Height, len(m.rows))
	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		r := m.rows[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		fold := "  "
		if len(r.node.Children) > 0 {
			fold = "▾ "
			if m.collapsed[r.node.ID] {
				fold = "▸ "
			}
		}
		selected := ""
		if m.snap.Selection.Primary == r.node.ID {
			selected = "●"
		} else if m.snap.Selection.Contains(r.node.ID) {
			selected = "○"
		}
		rows = append(rows, []string{
			cursor,
			strings.Repeat("  ", r.depth) + fold + nodeLabel(r.node),
			string(r.node.Kind),
			fmt.Sprintf("%g,%g %gx%g", r.node.X, r.node.Y, r.node.Width, r.node.Height),
			selected,
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Node", "Kind", "Geometry", "Sel").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			idx := m.Offset + row
			if idx == m.Cursor {
				return listSelectedStyle
			}
			if idx < len(m.rows) && m.rows[idx].node.IsContainer() {
				return lipgloss.NewStyle().Foreground(colorWhite)
			}
			if col == 2 || col == 3 {
				return listDimStyle
			}
			return lipgloss.NewStyle()
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d] %s", m.Cursor+1, len(m.rows), m.rows[m.Cursor].node.ID)))

	return b.String()
}

// nodeLabel names a node by its component, falling back to its kind.
func nodeLabel(n *scene.Node) string {
	if n.Component != "" {
		return n.Component
	}
	return string(n.Kind)
}
