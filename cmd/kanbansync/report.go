package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"kanbansync/pkg/reconcile"
)

// styles are the text report styles. Plain output uses zero styles.
type styles struct {
	Title lipgloss.Style
	OK    lipgloss.Style
	Warn  lipgloss.Style
	Error lipgloss.Style
	Muted lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		Title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		OK:    lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Warn:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Error: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		Muted: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

// reporter prints operation results as text or JSON.
type reporter struct {
	w      io.Writer
	json   bool
	styled bool
	st     styles
}

func newReporter(w io.Writer, asJSON bool) *reporter {
	r := &reporter{w: w, json: asJSON}
	if !asJSON && isTerminal(w) {
		r.styled = true
		r.st = defaultStyles()
	}
	return r
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (r *reporter) paint(s lipgloss.Style, text string) string {
	if !r.styled {
		return text
	}
	return s.Render(text)
}

func (r *reporter) title(text string) {
	fmt.Fprintln(r.w, r.paint(r.st.Title, text))
}

func (r *reporter) line(format string, args ...any) {
	fmt.Fprintf(r.w, "  "+format+"\n", args...)
}

func (r *reporter) encode(v any) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func dryRunPrefix(dry bool) string {
	if dry {
		return "[dry-run] "
	}
	return ""
}

func (r *reporter) status(rep *reconcile.StatusReport) error {
	if r.json {
		return r.encode(rep)
	}
	r.title("Status")
	r.line("local tasks:   %d (linked %d, unlinked %d)", rep.LocalTasks, rep.LinkedTasks, rep.UnlinkedTasks)
	r.line("remote issues: %d", rep.RemoteIssues)

	if len(rep.Diverged) > 0 {
		r.title("Diverged statuses")
		for _, d := range rep.Diverged {
			r.line("%s #%d: %s -> %s", d.TaskID, d.IssueNumber, d.Local, r.paint(r.st.Warn, d.Remote))
		}
	}
	if len(rep.Content) > 0 {
		r.title("Detail content")
		for _, c := range rep.Content {
			r.line("%s #%d: %s", c.TaskID, c.IssueNumber, r.contentState(c.State))
		}
	}
	if len(rep.MissingRemote) > 0 {
		r.title("Linked issues missing on remote")
		for _, m := range rep.MissingRemote {
			r.line("%s -> #%d", m.TaskID, m.IssueNumber)
		}
	}
	if len(rep.InvalidLinks) > 0 {
		r.title("Unrecognized external ids")
		for _, l := range rep.InvalidLinks {
			r.line("%s: %s", l.TaskID, l.ExternalID)
		}
	}
	if rep.RemoteOnlyTotal > 0 {
		r.title(fmt.Sprintf("Remote-only issues (%d)", rep.RemoteOnlyTotal))
		for _, i := range rep.RemoteOnly {
			r.line("#%d [%s] %s", i.Number, i.State, i.Title)
		}
		if more := rep.RemoteOnlyTotal - len(rep.RemoteOnly); more > 0 {
			r.line("%s", r.paint(r.st.Muted, fmt.Sprintf("... and %d more", more)))
		}
	}
	if len(rep.PendingConflicts) > 0 {
		r.title("Pending conflicts")
		for _, p := range rep.PendingConflicts {
			r.line("%s", r.paint(r.st.Error, p))
		}
	}
	return nil
}

func (r *reporter) contentState(s reconcile.ContentState) string {
	text := string(s)
	switch s {
	case reconcile.ContentClean:
		return r.paint(r.st.OK, text)
	case reconcile.ContentConflict:
		return r.paint(r.st.Error, text)
	case reconcile.ContentLocalAhead, reconcile.ContentRemoteAhead, reconcile.ContentNoBaseline:
		return r.paint(r.st.Warn, text)
	default:
		return text
	}
}

func (r *reporter) pull(res *reconcile.PullResult) error {
	if r.json {
		return r.encode(res)
	}
	r.title(fmt.Sprintf("%sPull: %d linked, %d status change(s), %d task(s) updated",
		dryRunPrefix(res.DryRun), res.Linked, len(res.StatusChanges), len(res.UpdatedTasks)))
	for _, c := range res.StatusChanges {
		r.line("%s #%d: %s -> %s", c.TaskID, c.IssueNumber, c.Local, c.Remote)
	}
	for _, m := range res.MissingRemote {
		r.line("%s", r.paint(r.st.Warn, fmt.Sprintf("%s: issue #%d not found", m.TaskID, m.IssueNumber)))
	}
	for _, l := range res.InvalidLinks {
		r.line("%s", r.paint(r.st.Warn, fmt.Sprintf("%s: unrecognized externalId %s", l.TaskID, l.ExternalID)))
	}
	return nil
}

func (r *reporter) push(res *reconcile.PushResult) error {
	if res == nil {
		return nil
	}
	if r.json {
		return r.encode(res)
	}
	r.title(fmt.Sprintf("%sPush: %d created, %d updated, %d body unchanged, %d skipped",
		dryRunPrefix(res.DryRun), len(res.Created), len(res.Updated), len(res.BodySkipped), len(res.Skipped)))
	for _, a := range res.Actions {
		r.line("%s", a)
	}
	for _, s := range res.Skipped {
		r.line("%s", r.paint(r.st.Error, s.TaskID+": "+firstLine(s.Reason)))
	}
	return nil
}

func (r *reporter) bootstrap(res *reconcile.BootstrapResult) error {
	if res == nil {
		return nil
	}
	if r.json {
		return r.encode(res)
	}
	switch res.Direction {
	case reconcile.FromRemote:
		r.title(fmt.Sprintf("%sBootstrap from remote: %d imported, %d refreshed",
			dryRunPrefix(res.DryRun), len(res.CreatedLocal), len(res.UpdatedLocal)))
		for _, c := range res.CreatedLocal {
			r.line("%s <- #%d", c.TaskID, c.IssueNumber)
		}
	default:
		if err := r.push(res.Push); err != nil {
			return err
		}
	}
	if len(res.DetailFiles) > 0 {
		r.line("detail stubs created: %s", strings.Join(res.DetailFiles, ", "))
	}
	return nil
}

func (r *reporter) reconcile(res *reconcile.ReconcileResult) error {
	if r.json {
		return r.encode(res)
	}
	if !res.Resolved {
		r.title(fmt.Sprintf("Conflict artifact for %s (issue #%d)", res.TaskID, res.IssueNumber))
		r.line("%s", res.ArtifactPath)
		r.line("Review it, then run: kanbansync reconcile %s --accept <local|remote>", res.TaskID)
		return nil
	}
	r.title(fmt.Sprintf("Resolved %s: kept %s version", res.TaskID, res.Accepted))
	r.line("Next: kanbansync push")
	return nil
}

func (r *reporter) conflicts(paths []string) error {
	if r.json {
		if paths == nil {
			paths = []string{}
		}
		return r.encode(map[string][]string{"conflicts": paths})
	}
	if len(paths) == 0 {
		fmt.Fprintln(r.w, r.paint(r.st.OK, "No pending conflicts"))
		return nil
	}
	r.title(fmt.Sprintf("Pending conflicts (%d)", len(paths)))
	for _, p := range paths {
		r.line("%s", p)
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
