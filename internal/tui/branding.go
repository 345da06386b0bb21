package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/blogify/internal/config"
)

// LogoLines spell the wordmark in block glyphs.
var LogoLines = []string{
	"█▀▀▄ █    █▀▀█ █▀▀▀ ▀█▀ █▀▀▀ █  █",
	"█▀▀▄ █    █  █ █ ▀█  █  █▀▀  ▀▄▄▀",
	"▀▀▀  ▀▀▀▀ ▀▀▀▀ ▀▀▀▀ ▀▀▀ ▀     ▀▀ ",
}

const (
	CompactLogo = `blogify ›`
	tagline     = "A place to share your knowledge"
)

// Palette. ApplyTheme replaces these from the config's [ui.colors].
var (
	PrimaryColor   = lipgloss.Color("#5CB85C")
	SecondaryColor = lipgloss.Color("#4ECDC4")
	AccentColor    = lipgloss.Color("#95E1D3")

	BackgroundColor = lipgloss.Color("#1A1A2E")
	SurfaceColor    = lipgloss.Color("#16213E")
	TextColor       = lipgloss.Color("#EAEAEA")
	MutedColor      = lipgloss.Color("#94A3B8")

	HighlightColor = lipgloss.Color("#FFE66D")
	ErrorColor     = lipgloss.Color("#F87171")
	SuccessColor   = lipgloss.Color("#4ADE80")
	FavoriteColor  = lipgloss.Color("#F472B6")
)

// Styles derived from the palette. buildStyles recomputes them.
var (
	LogoStyle          lipgloss.Style
	TitleStyle         lipgloss.Style
	HeaderStyle        lipgloss.Style
	LabelStyle         lipgloss.Style
	HelpStyle          lipgloss.Style
	SeparatorStyle     lipgloss.Style
	ErrorMessageStyle  lipgloss.Style
	ResultTitleStyle   lipgloss.Style
	FavoritedStyle     lipgloss.Style
	AuthorStyle        lipgloss.Style
	MetaStyle          lipgloss.Style
	ModalTextStyle     lipgloss.Style
	ModalStressStyle   lipgloss.Style
	StatusInfoStyle    lipgloss.Style
	StatusSuccessStyle lipgloss.Style
	StatusWarnStyle    lipgloss.Style
	StatusErrorStyle   lipgloss.Style
	ActiveTabStyle     lipgloss.Style
	InactiveTabStyle   lipgloss.Style
)

func init() {
	buildStyles()
}

func fg(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

func buildStyles() {
	LogoStyle = fg(PrimaryColor).Bold(true)
	TitleStyle = fg(TextColor).Background(SurfaceColor).Bold(true).Padding(0, 2)
	HeaderStyle = fg(SecondaryColor).Bold(true)
	LabelStyle = fg(MutedColor).Bold(true)
	HelpStyle = fg(MutedColor).Italic(true)
	SeparatorStyle = fg(MutedColor)
	ErrorMessageStyle = fg(ErrorColor).Bold(true)

	ResultTitleStyle = fg(HighlightColor).Bold(true)
	FavoritedStyle = fg(FavoriteColor).Bold(true)
	AuthorStyle = fg(SecondaryColor).Bold(true)
	MetaStyle = fg(MutedColor).Faint(true)

	ModalTextStyle = fg(TextColor).Background(BackgroundColor)
	ModalStressStyle = fg(HighlightColor).Background(BackgroundColor).Bold(true)

	StatusInfoStyle = fg(MutedColor)
	StatusSuccessStyle = fg(SuccessColor)
	StatusWarnStyle = fg(HighlightColor)
	StatusErrorStyle = fg(ErrorColor).Bold(true)

	ActiveTabStyle = fg(PrimaryColor).Bold(true).Underline(true)
	InactiveTabStyle = fg(MutedColor)
}

// ApplyTheme replaces the palette with the configured colors. Empty entries
// keep their default.
func ApplyTheme(colors config.UIColors) {
	for _, c := range []struct {
		dst *lipgloss.Color
		v   string
	}{
		{&PrimaryColor, colors.Primary},
		{&SecondaryColor, colors.Secondary},
		{&AccentColor, colors.Accent},
		{&BackgroundColor, colors.Background},
		{&SurfaceColor, colors.Surface},
		{&TextColor, colors.Text},
		{&MutedColor, colors.Muted},
		{&ErrorColor, colors.Error},
		{&SuccessColor, colors.Success},
	} {
		if c.v != "" {
			*c.dst = lipgloss.Color(c.v)
		}
	}
	buildStyles()
}

// contentBox clips rendered content to the body area.
func contentBox(width, height int) lipgloss.Style {
	return lipgloss.NewStyle().Width(width).Height(height).MaxHeight(height)
}

// CompactBanner stacks the logo over a muted message.
func CompactBanner(message string) string {
	logo := make([]string, len(LogoLines))
	for i, line := range LogoLines {
		logo[i] = LogoStyle.Render(line)
	}
	return lipgloss.JoinVertical(lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center, logo...),
		"",
		HelpStyle.Render(message),
	)
}

func emptyFeedBanner() string {
	return CompactBanner("No articles are here... yet. Press tab for the global feed")
}

// versionTag prefixes release versions with v. Dev builds get no tag.
func versionTag(version string) string {
	switch {
	case version == "" || version == "dev":
		return ""
	case version[0] == 'v' || version[0] == 'V':
		return version
	default:
		return "v" + version
	}
}

// Banner renders the startup banner for version.
func Banner(version string) string {
	gradient := []lipgloss.Color{PrimaryColor, SecondaryColor, AccentColor}

	lines := make([]string, 0, len(LogoLines)+2)
	for i, line := range LogoLines {
		lines = append(lines, fg(gradient[i%len(gradient)]).Bold(true).Render(line))
	}
	caption := tagline
	if tag := versionTag(version); tag != "" {
		caption += " " + tag
	}
	lines = append(lines, "", fg(AccentColor).Render("  "+caption))

	frame := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(SecondaryColor).
		Padding(1, 3).
		MarginTop(1).
		Render(lipgloss.JoinVertical(lipgloss.Center, lines...))

	return lipgloss.PlaceHorizontal(70, lipgloss.Center, frame)
}

func ShowBanner(version string) {
	fmt.Println(Banner(version))
}
