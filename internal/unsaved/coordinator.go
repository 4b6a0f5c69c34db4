// Package unsaved coordinates draft state across independently-updated
// settings panels.
//
// Each panel registers itself with the Coordinator on every update cycle,
// pushing its current dirty flag and fresh callbacks. When a navigation is
// attempted while any panel is dirty, the Coordinator surfaces a warning,
// records the blocked destination, and routes the user's save-or-discard
// decision to exactly one panel: the first dirty tab in first-registration
// order. Other dirty tabs stay dirty until the user visits them directly.
//
// The Coordinator is an explicitly-owned object constructed once by the
// application shell and handed to panels through mode.Services. It is never
// a package-level variable; calling methods on a nil Coordinator is a
// programming error and panics immediately rather than losing edits to a
// silent no-op.
package unsaved

import (
	"context"
	"sync"

	"github.com/sbrink/flowdash/internal/log"
)

// TabID identifies a settings panel. Stable for the panel's lifetime.
type TabID string

// Tab is one registered panel. Callback fields are replaced wholesale on
// every registration so they always close over the panel's latest state.
type Tab struct {
	ID    TabID
	Dirty bool

	// Focus brings the panel's save control into view. May be nil.
	Focus func()
	// Save persists the panel's current draft and leaves it clean on
	// success. Runs off the update loop; may be nil for read-only panels.
	Save func(ctx context.Context) error
	// Discard synchronously reverts the panel to its last-saved snapshot.
	// May be nil.
	Discard func()
}

// Coordinator is the process-wide tab registry and decision point.
type Coordinator struct {
	mu      sync.Mutex
	entries map[TabID]Tab
	order   []TabID // first-registration order; survives re-registration

	warningVisible bool
	pendingTab     TabID  // blocked in-page tab switch, "" when none
	pendingNav     string // blocked route change, "" when none

	// navigate is the Navigation Bridge cell: installed once by the shell,
	// invoked only from SaveAndProceed.
	navigate func(route string)
}

// New creates an empty coordinator.
func New() *Coordinator {
	return &Coordinator{
		entries: make(map[TabID]Tab),
	}
}

// Register upserts a tab entry. Safe to call on every update cycle of the
// caller: the same ID never accumulates entries, the entry's callbacks are
// fully replaced, and the tab keeps its original position in registration
// order.
func (c *Coordinator) Register(t Tab) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, known := c.entries[t.ID]; !known {
		c.order = append(c.order, t.ID)
	}
	c.entries[t.ID] = t
}

// Unregister removes a tab. A removed tab can never be selected as the
// blocking tab. Unknown IDs are ignored.
func (c *Coordinator) Unregister(id TabID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, known := c.entries[id]; !known {
		return
	}
	delete(c.entries, id)
	for i, o := range c.order {
		if o == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// HasDirtyTabs reports whether any registered tab is dirty. Always derived
// from the per-tab flags, never stored.
func (c *Coordinator) HasDirtyTabs() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.entries {
		if t.Dirty {
			return true
		}
	}
	return false
}

// DirtyTabs returns the dirty tab IDs in first-registration order.
func (c *Coordinator) DirtyTabs() []TabID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirtyTabsLocked()
}

func (c *Coordinator) dirtyTabsLocked() []TabID {
	var dirty []TabID
	for _, id := range c.order {
		if t, ok := c.entries[id]; ok && t.Dirty {
			dirty = append(dirty, id)
		}
	}
	return dirty
}

// CurrentDirtyTab returns the blocking tab: the first dirty tab in
// registration order. Recomputed fresh on every call so reads during an
// in-flight save see the newest state.
func (c *Coordinator) CurrentDirtyTab() (Tab, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentDirtyLocked()
}

func (c *Coordinator) currentDirtyLocked() (Tab, bool) {
	for _, id := range c.order {
		if t, ok := c.entries[id]; ok && t.Dirty {
			return t, true
		}
	}
	return Tab{}, false
}

// TriggerWarning surfaces the unsaved-changes warning. If a blocking tab
// exists its save control is brought into view first. Callers are expected
// to have checked HasDirtyTabs; with no dirty tab the warning has nothing to
// act on and resolution calls become no-ops.
func (c *Coordinator) TriggerWarning() {
	c.mu.Lock()
	blocking, ok := c.currentDirtyLocked()
	c.warningVisible = true
	c.mu.Unlock()

	if ok && blocking.Focus != nil {
		blocking.Focus()
	}
	log.Debug(log.CatUnsaved, "warning triggered", "blocking", string(blocking.ID))
}

// DismissWarning hides the warning and clears both pending-destination
// slots. Tab dirty state is untouched; nothing proceeds.
func (c *Coordinator) DismissWarning() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warningVisible = false
	c.pendingTab = ""
	c.pendingNav = ""
}

// WarningVisible reports whether a blocking decision is currently requested
// and unresolved.
func (c *Coordinator) WarningVisible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.warningVisible
}

// SaveAndProceed resolves the warning by saving the blocking tab.
//
// The blocking tab is re-read at invocation time, not at warning time, so an
// edit that arrived while the warning was showing is saved rather than a
// stale draft. The save callback is invoked exactly once per resolution. On
// success the warning is cleared and any pending navigation is handed to the
// Navigation Bridge (which defers the route change until after the panel's
// own post-save update settles) and that slot is cleared. On failure the
// error is returned and warning and pending slots are left untouched so the
// user can retry or cancel.
func (c *Coordinator) SaveAndProceed(ctx context.Context) error {
	c.mu.Lock()
	blocking, ok := c.currentDirtyLocked()
	c.mu.Unlock()

	if ok && blocking.Save != nil {
		if err := c.saveWithLog(ctx, blocking); err != nil {
			return err
		}
	}

	c.mu.Lock()
	c.warningVisible = false
	route := c.pendingNav
	c.pendingNav = ""
	navigate := c.navigate
	c.mu.Unlock()

	if route != "" {
		if navigate == nil {
			log.Error(log.CatUnsaved, "pending navigation with no bridge installed", "route", route)
			return nil
		}
		navigate(route)
	}
	return nil
}

func (c *Coordinator) saveWithLog(ctx context.Context, blocking Tab) error {
	log.Debug(log.CatUnsaved, "saving blocking tab", "tab", string(blocking.ID))
	if err := blocking.Save(ctx); err != nil {
		log.ErrorErr(log.CatUnsaved, "save failed", err, "tab", string(blocking.ID))
		return err
	}
	return nil
}

// DiscardAndProceed resolves the warning by reverting the blocking tab to
// its last-saved snapshot and hiding the warning. Pending slots are left
// alone: the caller re-attempts the original action, which now finds the tab
// clean and proceeds without re-blocking.
func (c *Coordinator) DiscardAndProceed() {
	c.mu.Lock()
	blocking, ok := c.currentDirtyLocked()
	c.warningVisible = false
	c.mu.Unlock()

	if ok && blocking.Discard != nil {
		blocking.Discard()
		log.Debug(log.CatUnsaved, "discarded blocking tab", "tab", string(blocking.ID))
	}
}

// SetPendingTabChange records (or clears, with "") the in-page tab switch to
// perform once the warning resolves. At most one pending slot is meaningful
// per resolution cycle.
func (c *Coordinator) SetPendingTabChange(id TabID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingTab = id
}

// PendingTabChange returns the recorded tab switch target, "" when none.
func (c *Coordinator) PendingTabChange() TabID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingTab
}

// SetPendingNavigation records (or clears, with "") the route change to
// perform once the warning resolves.
func (c *Coordinator) SetPendingNavigation(route string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingNav = route
}

// PendingNavigation returns the recorded route, "" when none.
func (c *Coordinator) PendingNavigation() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingNav
}

// SetNavigate installs (or clears, with nil) the Navigation Bridge function.
// Called once by the application shell at startup and again with nil on
// teardown. SaveAndProceed is the sole caller of the installed function.
func (c *Coordinator) SetNavigate(fn func(route string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.navigate = fn
}
