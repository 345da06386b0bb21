package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Canonical short status messages used across the app.
const (
	MsgLoadingFeed    = "Loading articles…"
	MsgLoadingArticle = "Loading article…"
	MsgLoadingProfile = "Loading profile…"
	MsgSigningIn      = "Signing in…"
	MsgSaving         = "Saving…"
	MsgPublishing     = "Publishing…"
	MsgDeleting       = "Deleting…"
	MsgPosting        = "Posting comment…"
	MsgNoResults      = "No results"
	MsgSignedOut      = "Signed out"
	MsgSessionExpired = "Session expired, please sign in again"
	MsgSignInRequired = "Sign in to do that"
	MsgDraftRestored  = "Restored unsaved draft"
	MsgDraftSaved     = "Draft saved"
	MsgSettingsSaved  = "Settings updated"
	MsgArticleDeleted = "Article deleted"
)

func MsgWelcome(username string) string {
	return fmt.Sprintf("Signed in as %s", strings.TrimSpace(username))
}

func MsgResultsCount(n int) string {
	if n == 1 {
		return "1 result"
	}
	return fmt.Sprintf("%d results", n)
}

func MsgPage(page, pages, total int) string {
	if pages == 0 {
		return "no articles"
	}
	return fmt.Sprintf("page %d/%d • %d articles", page+1, pages, total)
}

// setStatus shows text in the status bar. Anything but an info message
// stops the spinner.
func (a *App) setStatus(text string, kind StatusKind) {
	a.status = text
	a.statusKind = kind
	if kind != StatusInfo || text == "" {
		a.spinning = false
	}
}

func (a *App) clearStatus() {
	a.status = ""
	a.statusKind = StatusInfo
	a.spinning = false
}

// startSpinner shows text with a spinner until the next setStatus or
// clearStatus call.
func (a *App) startSpinner(text string) tea.Cmd {
	a.status = text
	a.statusKind = StatusInfo
	a.err = nil
	if a.spinning {
		return nil
	}
	a.spinning = true
	return a.spinner.Tick
}

func (a *App) renderStatus() string {
	text := a.status
	if a.spinning {
		text = a.spinner.View() + " " + text
	}
	return a.statusKind.style().Render(text)
}

// StatusKind is the severity of a status bar message.
type StatusKind int

const (
	StatusInfo StatusKind = iota
	StatusSuccess
	StatusWarn
	StatusError
)

func (k StatusKind) style() lipgloss.Style {
	switch k {
	case StatusSuccess:
		return StatusSuccessStyle
	case StatusWarn:
		return StatusWarnStyle
	case StatusError:
		return StatusErrorStyle
	default:
		return StatusInfoStyle
	}
}
