package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/Iron-Ham/feedview/internal/i18n"
	"github.com/Iron-Ham/feedview/internal/tui/styles"
)

// View renders the model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return m.spinner.View() + " " + m.app.Catalog.Loading("feedview")
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderSidebar(),
		strings.Repeat(" ", sidebarGap),
		styles.ContentBox.Render(m.viewport.View()),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderFooter(),
	)
}

func (m Model) renderHeader() string {
	title := m.app.Doc.Title()
	if title == "" {
		title = "feedview"
	}
	if m.loading() {
		title += " " + m.spinner.View()
	}
	return styles.Header.Width(m.width).Render(ansi.Truncate(title, m.width, "…"))
}

// renderSidebar lists one entry per view. The active view is highlighted;
// the cursor marks the entry enter would open.
func (m Model) renderSidebar() string {
	_, active := m.app.Highlighter.Active()
	width := m.app.Config.UI.SidebarWidth

	lines := []string{styles.SidebarTitle.Render("Views")}
	for i, item := range m.items {
		label := i18n.Title(item.ViewID)
		if i < 9 {
			label = fmt.Sprintf("%d %s", i+1, label)
		}
		cursor := "  "
		if i == m.selected {
			cursor = styles.Primary.Render("> ")
		}
		label = ansi.Truncate(label, width-6, "…")

		style := styles.SidebarItem
		if item.ViewID == active {
			style = styles.SidebarItemActive
		}
		lines = append(lines, cursor+style.Render(label))
	}
	if n := m.app.Visits.Count(active); n > 0 {
		lines = append(lines, "", styles.Muted.Render(m.app.Catalog.N(i18n.MsgVisits, n)))
	}

	_, height := m.contentSize()
	return styles.Sidebar.Width(width).Height(height).Render(strings.Join(lines, "\n"))
}

func (m Model) renderFooter() string {
	announce := styles.Announcement.Render(ansi.Truncate(m.app.Doc.Announcement(), m.width, "…"))

	status := m.status
	if status != "" {
		style := styles.Muted
		if m.statusErr {
			style = styles.ErrorMsg
		}
		status = style.Render(ansi.Truncate(status, m.width, "…"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, announce, status, m.help.View(m.keys))
}
