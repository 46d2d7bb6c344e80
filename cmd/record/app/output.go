package app

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Formatter prints the user-facing lines of the interactive flow.
type Formatter struct {
	w io.Writer

	title   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	muted   lipgloss.Style
}

func NewFormatter(w io.Writer) *Formatter {
	r := lipgloss.NewRenderer(w)
	return &Formatter{
		w:       w,
		title:   r.NewStyle().Bold(true),
		success: r.NewStyle().Foreground(lipgloss.Color("10")),
		warning: r.NewStyle().Foreground(lipgloss.Color("11")),
		failure: r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		muted:   r.NewStyle().Faint(true),
	}
}

// Clear wipes the terminal and homes the cursor.
func (f *Formatter) Clear() {
	fmt.Fprint(f.w, "\x1b[H\x1b[2J")
}

func (f *Formatter) Banner(title string) {
	fmt.Fprintf(f.w, "%s\n\n", f.title.Render(title))
}

func (f *Formatter) AppList(apps []string, drm func(string) bool) {
	fmt.Fprintln(f.w, "Available applications:")
	for i, app := range apps {
		label := ""
		if drm(app) {
			label = f.warning.Render(" (DRM Protected)")
		}
		fmt.Fprintf(f.w, "  %d. %s%s\n", i+1, app, label)
	}
	fmt.Fprintf(f.w, "  %d. %s\n", len(apps)+1, f.muted.Render(entireScreen))
	fmt.Fprintln(f.w)
}

func (f *Formatter) DRMWarning() {
	f.Warning("Applications marked (DRM Protected) may record as a black screen.")
	fmt.Fprintln(f.w, f.muted.Render("   Streaming services block screen capture of protected video."))
	fmt.Fprintln(f.w)
}

func (f *Formatter) Info(msg string) {
	fmt.Fprintf(f.w, "ℹ️  %s\n", msg)
}

func (f *Formatter) Tip(msg string) {
	fmt.Fprintf(f.w, "💡 %s\n", f.muted.Render(msg))
}

func (f *Formatter) Success(msg string) {
	fmt.Fprintf(f.w, "✅ %s\n", f.success.Render(msg))
}

func (f *Formatter) Warning(msg string) {
	fmt.Fprintf(f.w, "⚠️  %s\n", f.warning.Render(msg))
}

func (f *Formatter) Error(msg string) {
	fmt.Fprintf(f.w, "❌ %s\n", f.failure.Render(msg))
}

func (f *Formatter) Hint(msg string) {
	if msg == "" {
		return
	}
	fmt.Fprintf(f.w, "   %s\n", f.muted.Render(msg))
}

func (f *Formatter) SetupCheck(name string, ok bool, detail string) {
	if ok {
		fmt.Fprintf(f.w, "  ✅ %s: %s\n", name, detail)
	} else {
		fmt.Fprintf(f.w, "  ❌ %s: %s\n", name, f.failure.Render(detail))
	}
}
