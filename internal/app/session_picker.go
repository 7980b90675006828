package app

import (
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/v2/list"
	tea "github.com/charmbracelet/bubbletea/v2"

	"github.com/aprsa/phoebe-lab/internal/types"
)

type sessionItem struct {
	info types.SessionInfo
}

func (i sessionItem) Title() string {
	name := i.info.ProjectName
	if name == "" {
		name = i.info.SessionID
	}
	return name
}

func (i sessionItem) Description() string {
	desc := sessionOwnerStyle.Render(i.info.OwnerName())
	if t := i.info.LastActivityTime(); !t.IsZero() {
		desc += statusStyle.Render("  active " + formatAge(time.Since(t)))
	}
	if i.info.MemUsedMB > 0 {
		desc += statusStyle.Render(fmt.Sprintf("  %.0f MB", i.info.MemUsedMB))
	}
	return desc
}

func (i sessionItem) FilterValue() string {
	return i.info.ProjectName + " " + i.info.OwnerName()
}

// SessionPicker lists the sessions the worker currently holds so the user
// can resume one or start fresh.
type SessionPicker struct {
	list list.Model
}

func NewSessionPicker() *SessionPicker {
	delegate := list.NewDefaultDelegate()
	mlist := list.New([]list.Item{}, delegate, 48, 16)
	mlist.Title = "Sessions"
	mlist.SetShowHelp(false)
	mlist.SetShowStatusBar(false)
	mlist.SetFilteringEnabled(false)
	mlist.Styles.Title = headerStyle
	return &SessionPicker{list: mlist}
}

func (c *SessionPicker) SetSize(width, height int) {
	c.list.SetSize(width, height)
}

// SetSessions sorts newest activity first; the previously stored session,
// when present, is preselected.
func (c *SessionPicker) SetSessions(sessions map[string]types.SessionInfo, storedID string) {
	infos := make([]types.SessionInfo, 0, len(sessions))
	for _, info := range sessions {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(a, b int) bool {
		return infos[a].LastActivity > infos[b].LastActivity
	})
	items := make([]list.Item, 0, len(infos))
	selected := 0
	for i, info := range infos {
		if info.SessionID == storedID {
			selected = i
		}
		items = append(items, sessionItem{info: info})
	}
	c.list.SetItems(items)
	if len(items) > 0 {
		c.list.Select(selected)
	}
}

func (c *SessionPicker) Update(msg tea.Msg) tea.Cmd {
	updated, cmd := c.list.Update(msg)
	c.list = updated
	return cmd
}

func (c *SessionPicker) Selected() *types.SessionInfo {
	item, ok := c.list.SelectedItem().(sessionItem)
	if !ok {
		return nil
	}
	info := item.info
	return &info
}

func (c *SessionPicker) Empty() bool {
	return len(c.list.Items()) == 0
}

func (c *SessionPicker) View() string {
	return c.list.View()
}

func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
