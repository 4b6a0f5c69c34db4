package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sbrink/flowdash/internal/draft"
	"github.com/sbrink/flowdash/internal/ui/styles"
	"github.com/sbrink/flowdash/internal/unsaved"
)

const loadTimeout = 10 * time.Second

// panelLoadedMsg carries a panel's fetched settings section.
type panelLoadedMsg struct {
	id    unsaved.TabID
	value any
	err   error
}

// SavedMsg reports the outcome of an explicit in-panel save.
type SavedMsg struct {
	Tab unsaved.TabID
	Err error
}

// panel is the interface the page model drives. All implementations are
// pointer types so callbacks handed to the unsaved coordinator always see
// the panel's latest state.
type panel interface {
	ID() unsaved.TabID
	Label() string
	Init() tea.Cmd
	HandleLoaded(msg panelLoadedMsg)
	HandleKey(msg tea.KeyMsg) tea.Cmd
	View(width int) string
	Dirty() bool
	Loaded() bool
	Editing() bool
	Save(ctx context.Context) error
	Discard()
	FocusSave()
	TakeFocusRequest() bool
	Preview() (before, after string, ok bool)
}

// field binds one text input to a getter/setter pair on the section value.
type field[T any] struct {
	label string
	get   func(v *T) string
	set   func(v *T, s string) error
}

// formPanel is a settings section rendered as a small form. Values typed
// into a focused input are committed to the working value on every
// keystroke, so the dirty flag tracks live edits the way the tab markers
// expect.
type formPanel[T any] struct {
	id     unsaved.TabID
	label  string
	fields []field[T]
	inputs []textinput.Model

	working *T
	tracker draft.Tracker[T]

	focus          int
	editing        bool
	loadErr        error
	fieldErr       string
	focusRequested bool

	load func(ctx context.Context) (*T, error)
	put  func(ctx context.Context, v T) error
}

func newFormPanel[T any](
	id unsaved.TabID,
	label string,
	fields []field[T],
	load func(ctx context.Context) (*T, error),
	put func(ctx context.Context, v T) error,
) *formPanel[T] {
	inputs := make([]textinput.Model, len(fields))
	for i := range fields {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 64
		in.Width = 24
		inputs[i] = in
	}
	return &formPanel[T]{
		id:     id,
		label:  label,
		fields: fields,
		inputs: inputs,
		load:   load,
		put:    put,
	}
}

func (p *formPanel[T]) ID() unsaved.TabID { return p.id }
func (p *formPanel[T]) Label() string     { return p.label }

// Init fetches the section from the server.
func (p *formPanel[T]) Init() tea.Cmd {
	id, load := p.id, p.load
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		v, err := load(ctx)
		return panelLoadedMsg{id: id, value: v, err: err}
	}
}

// HandleLoaded adopts the fetched value as both working value and baseline.
// A load failure stays local to this panel: the panel renders the error and
// can never report dirty.
func (p *formPanel[T]) HandleLoaded(msg panelLoadedMsg) {
	if msg.err != nil {
		p.loadErr = msg.err
		return
	}
	v, ok := msg.value.(*T)
	if !ok || v == nil {
		p.loadErr = fmt.Errorf("unexpected payload for %s panel", p.id)
		return
	}
	p.loadErr = nil
	p.working = v
	p.tracker.ResetOriginal(*v)
	p.syncInputs()
}

// syncInputs refreshes the text inputs from the working value.
func (p *formPanel[T]) syncInputs() {
	if p.working == nil {
		return
	}
	for i, f := range p.fields {
		p.inputs[i].SetValue(f.get(p.working))
	}
}

// HandleKey processes a key for this panel.
func (p *formPanel[T]) HandleKey(msg tea.KeyMsg) tea.Cmd {
	if p.loadErr != nil {
		if msg.String() == "r" {
			return p.Init()
		}
		return nil
	}
	if p.working == nil {
		return nil
	}

	if p.editing {
		return p.handleEditingKey(msg)
	}

	switch msg.String() {
	case "up", "k":
		if p.focus > 0 {
			p.focus--
		}
	case "down", "j":
		if p.focus < len(p.fields)-1 {
			p.focus++
		}
	case "enter", "e":
		p.editing = true
		p.inputs[p.focus].Focus()
		return textinput.Blink
	case "ctrl+s":
		return p.saveCmd()
	}
	return nil
}

func (p *formPanel[T]) handleEditingKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc", "enter":
		p.editing = false
		p.inputs[p.focus].Blur()
		return nil
	case "ctrl+s":
		p.editing = false
		p.inputs[p.focus].Blur()
		return p.saveCmd()
	}

	var cmd tea.Cmd
	p.inputs[p.focus], cmd = p.inputs[p.focus].Update(msg)
	p.commitInput(p.focus)
	return cmd
}

// commitInput pushes one input's text into the working value. An unparsable
// value keeps the previous committed value and surfaces inline.
func (p *formPanel[T]) commitInput(i int) {
	if err := p.fields[i].set(p.working, p.inputs[i].Value()); err != nil {
		p.fieldErr = fmt.Sprintf("%s: %v", p.fields[i].label, err)
		return
	}
	p.fieldErr = ""
}

func (p *formPanel[T]) saveCmd() tea.Cmd {
	id := p.id
	save := p.Save
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		return SavedMsg{Tab: id, Err: save(ctx)}
	}
}

// Dirty reports whether the committed working value differs from the
// last-saved baseline. An unloaded panel is never dirty.
func (p *formPanel[T]) Dirty() bool {
	return p.tracker.HasUnsavedChanges(p.working)
}

func (p *formPanel[T]) Loaded() bool  { return p.tracker.Loaded() }
func (p *formPanel[T]) Editing() bool { return p.editing }

// Save persists the working value as read at invocation time and promotes
// it to the new baseline on success.
func (p *formPanel[T]) Save(ctx context.Context) error {
	if p.working == nil {
		return nil
	}
	v := *p.working
	if err := p.put(ctx, v); err != nil {
		return err
	}
	p.tracker.ResetOriginal(v)
	return nil
}

// Discard reverts the working value to the baseline.
func (p *formPanel[T]) Discard() {
	v := p.tracker.DiscardChanges()
	if v == nil {
		return
	}
	p.working = v
	p.fieldErr = ""
	p.editing = false
	if p.focus < len(p.inputs) {
		p.inputs[p.focus].Blur()
	}
	p.syncInputs()
}

// FocusSave asks the page to bring this panel into view. Consumed by the
// page model via TakeFocusRequest on its next update.
func (p *formPanel[T]) FocusSave() {
	p.focusRequested = true
}

func (p *formPanel[T]) TakeFocusRequest() bool {
	req := p.focusRequested
	p.focusRequested = false
	return req
}

// Preview returns pretty-printed baseline and working values for the
// unsaved-changes dialog.
func (p *formPanel[T]) Preview() (string, string, bool) {
	base := p.tracker.DiscardChanges()
	if base == nil || p.working == nil {
		return "", "", false
	}
	before, err := json.MarshalIndent(base, "", "  ")
	if err != nil {
		return "", "", false
	}
	after, err := json.MarshalIndent(p.working, "", "  ")
	if err != nil {
		return "", "", false
	}
	return string(before), string(after), true
}

// View renders the form.
func (p *formPanel[T]) View(width int) string {
	if p.loadErr != nil {
		return styles.ErrorStyle.Render("Failed to load: "+p.loadErr.Error()) + "\n" +
			styles.HelpStyle.Render("press r to retry")
	}
	if p.working == nil {
		return styles.HelpStyle.Render("Loading…")
	}

	labelWidth := 0
	for _, f := range p.fields {
		if len(f.label) > labelWidth {
			labelWidth = len(f.label)
		}
	}

	var b strings.Builder
	for i, f := range p.fields {
		label := fmt.Sprintf("%-*s", labelWidth, f.label)
		line := styles.LabelStyle.Render(label) + "  "
		switch {
		case i == p.focus && p.editing:
			line += p.inputs[i].View()
		case i == p.focus:
			line += styles.TitleStyle.Render(p.inputs[i].Value())
		default:
			line += p.inputs[i].Value()
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if p.fieldErr != "" {
		b.WriteString(styles.ErrorStyle.Render(p.fieldErr))
		b.WriteString("\n")
	}
	if p.Dirty() {
		b.WriteString(styles.WarningStyle.Render("unsaved changes"))
		b.WriteString("\n")
	}
	b.WriteString(styles.HelpStyle.Render("e edit · ctrl+s save"))
	return b.String()
}
