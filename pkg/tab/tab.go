package tab

import (
	"time"
)

// Tab is one browser tab as reported by the host.
type Tab struct {
	// ID uniquely identifies the tab within a snapshot.
	ID int `json:"id" jsonschema:"title=Tab ID"`
	// URL is the full tab URL, including query and fragment.
	URL string `json:"url" jsonschema:"title=URL"`
	// Title is the page title.
	Title string `json:"title" jsonschema:"title=Title"`
	// WindowID identifies the window owning this tab.
	WindowID int `json:"windowId" jsonschema:"title=Window ID"`
	// GroupID identifies the tab group, or -1 when the tab is ungrouped.
	GroupID int `json:"groupId" jsonschema:"title=Group ID"`
	// Pinned reports whether the tab is pinned.
	Pinned bool `json:"pinned"`
	// Muted reports whether the tab is muted.
	Muted bool `json:"muted"`
	// Audible reports whether the tab is currently playing audio.
	Audible bool `json:"audible"`
	// Discarded reports whether the tab has been unloaded by the host.
	Discarded bool `json:"discarded"`
	// Active reports whether the tab is the active tab of its window.
	Active bool `json:"active"`
	// LastAccessed is the time the tab was last focused, in Unix milliseconds.
	LastAccessed int64 `json:"lastAccessed" jsonschema:"title=Last Accessed"`
}

// Grouped reports whether the tab belongs to a tab group.
func (t Tab) Grouped() bool {
	return t.GroupID > 0
}

// LastAccessedTime converts the millisecond timestamp to a [time.Time].
// The zero value is returned when the host never reported an access time.
func (t Tab) LastAccessedTime() time.Time {
	if t.LastAccessed <= 0 {
		return time.Time{}
	}

	return time.UnixMilli(t.LastAccessed)
}

// Window is one browser window as reported by the host.
type Window struct {
	ID        int    `json:"id" jsonschema:"title=Window ID"`
	State     string `json:"state" jsonschema:"title=State"`
	Type      string `json:"type" jsonschema:"title=Type"`
	Focused   bool   `json:"focused"`
	Incognito bool   `json:"incognito"`
}
