package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/blogify/internal/api"
)

type formField struct {
	// name matches the API's field name so server and client field errors
	// land on the same input.
	name  string
	label string
	input textinput.Model
}

// form is a column of single-line inputs, optionally followed by a
// multi-line body. Focus cycles through all of them.
type form struct {
	title  string
	fields []formField
	body   *textarea.Model
	focus  int
	errs   map[string][]string
}

func newInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Prompt = ""
	return ti
}

func newForm(title string, fields ...formField) *form {
	f := &form{title: title, fields: fields}
	f.focusIndex(0)
	return f
}

func field(name, label, placeholder string) formField {
	return formField{name: name, label: label, input: newInput(placeholder, 256)}
}

func passwordField(name, label string) formField {
	ff := field(name, label, "••••••")
	ff.input.EchoMode = textinput.EchoPassword
	ff.input.EchoCharacter = '•'
	return ff
}

func newLoginForm() *form {
	return newForm("› sign in",
		field("email", "Email", "you@example.org"),
		passwordField("password", "Password"),
	)
}

func newRegisterForm() *form {
	return newForm("› sign up",
		field("username", "Username", "your name"),
		field("email", "Email", "you@example.org"),
		passwordField("password", "Password"),
	)
}

func newSettingsForm(user *api.User) *form {
	f := newForm("› your settings",
		field("image", "Picture", "URL of profile picture"),
		field("username", "Username", "your name"),
		field("bio", "Bio", "short bio about you"),
		field("email", "Email", "you@example.org"),
		passwordField("password", "New password"),
	)
	if user != nil {
		f.setValue("image", user.Image)
		f.setValue("username", user.Username)
		f.setValue("bio", user.Bio)
		f.setValue("email", user.Email)
	}
	return f
}

func newEditorForm() *form {
	f := newForm("› new article",
		field("title", "Title", "Article title"),
		field("description", "About", "What's this article about?"),
		field("tagList", "Tags", "comma separated, e.g. go, tui"),
	)
	ta := textarea.New()
	ta.Placeholder = "Write your article (in markdown)"
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	f.body = &ta
	return f
}

func (f *form) size() int {
	n := len(f.fields)
	if f.body != nil {
		n++
	}
	return n
}

func (f *form) onBody() bool {
	return f.body != nil && f.focus == len(f.fields)
}

func (f *form) onLast() bool {
	return f.focus == f.size()-1
}

func (f *form) focusIndex(i int) tea.Cmd {
	n := f.size()
	if n == 0 {
		return nil
	}
	f.focus = ((i % n) + n) % n

	var cmd tea.Cmd
	for j := range f.fields {
		if j == f.focus {
			cmd = f.fields[j].input.Focus()
		} else {
			f.fields[j].input.Blur()
		}
	}
	if f.body != nil {
		if f.onBody() {
			cmd = f.body.Focus()
		} else {
			f.body.Blur()
		}
	}
	return cmd
}

func (f *form) next() tea.Cmd { return f.focusIndex(f.focus + 1) }
func (f *form) prev() tea.Cmd { return f.focusIndex(f.focus - 1) }

func (f *form) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if f.onBody() {
		*f.body, cmd = f.body.Update(msg)
		return cmd
	}
	if f.focus < len(f.fields) {
		f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
	}
	return cmd
}

func (f *form) value(name string) string {
	if name == "body" && f.body != nil {
		return f.body.Value()
	}
	for _, ff := range f.fields {
		if ff.name == name {
			return ff.input.Value()
		}
	}
	return ""
}

func (f *form) setValue(name, v string) {
	if name == "body" && f.body != nil {
		f.body.SetValue(v)
		return
	}
	for i := range f.fields {
		if f.fields[i].name == name {
			f.fields[i].input.SetValue(v)
			return
		}
	}
}

// empty reports whether nothing has been typed into f.
func (f *form) empty() bool {
	for _, ff := range f.fields {
		if strings.TrimSpace(ff.input.Value()) != "" {
			return false
		}
	}
	return f.body == nil || strings.TrimSpace(f.body.Value()) == ""
}

func (f *form) setWidth(width int) {
	w := width - 20
	if w < 20 {
		w = 20
	}
	for i := range f.fields {
		f.fields[i].input.Width = w
	}
	if f.body != nil {
		f.body.SetWidth(w + 14)
	}
}

func (f *form) setBodyHeight(h int) {
	if f.body == nil {
		return
	}
	if h < 3 {
		h = 3
	}
	f.body.SetHeight(h)
}

func (f *form) view(width int) string {
	rows := []string{TitleStyle.Render(f.title), ""}

	for i, ff := range f.fields {
		label := LabelStyle.Render(padRight(ff.label, 12))
		rows = append(rows, label+" "+renderInputFrame(ff.input.View(), i == f.focus, ff.input.Width))
		for _, msg := range f.errs[ff.name] {
			rows = append(rows, ErrorMessageStyle.Render("             "+ff.label+" "+msg))
		}
	}

	if f.body != nil {
		rows = append(rows, "", LabelStyle.Render("Body"), f.body.View())
		for _, msg := range f.errs["body"] {
			rows = append(rows, ErrorMessageStyle.Render("Body "+msg))
		}
	}

	// Errors for fields this form does not render, e.g. "email or password".
	for _, line := range api.FieldMessages(f.unplacedErrors()) {
		rows = append(rows, ErrorMessageStyle.Render(line))
	}

	return lipgloss.NewStyle().MaxWidth(width).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (f *form) unplacedErrors() map[string][]string {
	out := make(map[string][]string)
	for name, msgs := range f.errs {
		if name == "body" && f.body != nil {
			continue
		}
		placed := false
		for _, ff := range f.fields {
			if ff.name == name {
				placed = true
				break
			}
		}
		if !placed {
			out[name] = msgs
		}
	}
	return out
}
