// Package launcher hands articles and profiles to the web frontend in the
// user's browser.
package launcher

import (
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"

	"github.com/pders01/blogify/internal/config"
	"github.com/pders01/blogify/internal/debuglog"
	"github.com/pders01/blogify/internal/validation"
)

var ErrNoOpener = errors.New("no application found to open URLs")

type Launcher struct {
	opener []string
	webURL string
	err    error

	// start runs the opener. Replaced in tests.
	start func(*exec.Cmd) error
}

func New(cfg *config.Config) *Launcher {
	l := &Launcher{start: startDetached}

	if cmd := strings.Fields(cfg.Open.Command); len(cmd) > 0 {
		l.opener = cmd
	} else {
		l.opener = platformOpener(runtime.GOOS)
	}

	web := cfg.Open.WebURL
	if web == "" {
		web = strings.TrimSuffix(strings.TrimRight(cfg.API.BaseURL, "/"), "/api")
	}
	normalized, err := validation.NewAPIURLValidator().ValidateAndNormalize(web)
	if err != nil {
		l.err = fmt.Errorf("invalid open.web_url: %w", err)
	}
	l.webURL = normalized

	return l
}

// platformOpener picks the first opener installed for goos.
func platformOpener(goos string) []string {
	switch goos {
	case "darwin":
		return []string{"open"}
	case "windows":
		return []string{"rundll32", "url.dll,FileProtocolHandler"}
	default:
		if name := findCommand("xdg-open", "gio", "sensible-browser", "x-www-browser"); name != "" {
			if name == "gio" {
				return []string{"gio", "open"}
			}
			return []string{name}
		}
		return nil
	}
}

func findCommand(commands ...string) string {
	for _, cmd := range commands {
		if _, err := exec.LookPath(cmd); err == nil {
			return cmd
		}
	}
	return ""
}

// ArticleURL is the frontend page for slug.
func (l *Launcher) ArticleURL(slug string) (string, error) {
	return l.page("article", slug)
}

// ProfileURL is the frontend page for username.
func (l *Launcher) ProfileURL(username string) (string, error) {
	return l.page("profile", username)
}

func (l *Launcher) page(kind, name string) (string, error) {
	if l.err != nil {
		return "", l.err
	}
	if name == "" {
		return "", fmt.Errorf("empty %s name", kind)
	}
	return l.webURL + "/" + kind + "/" + url.PathEscape(name), nil
}

// Open starts the opener on target without waiting for it to exit.
func (l *Launcher) Open(target string) error {
	if len(l.opener) == 0 {
		return ErrNoOpener
	}

	args := append(append([]string(nil), l.opener[1:]...), target)
	cmd := exec.Command(l.opener[0], args...)
	if err := l.start(cmd); err != nil {
		return fmt.Errorf("failed to start %s: %w", l.opener[0], err)
	}
	debuglog.Debugf("opened %s with %s", target, l.opener[0])
	return nil
}

// OpenArticle opens the frontend page for slug.
func (l *Launcher) OpenArticle(slug string) (string, error) {
	u, err := l.ArticleURL(slug)
	if err != nil {
		return "", err
	}
	return u, l.Open(u)
}

// OpenProfile opens the frontend page for username.
func (l *Launcher) OpenProfile(username string) (string, error) {
	u, err := l.ProfileURL(username)
	if err != nil {
		return "", err
	}
	return u, l.Open(u)
}

func startDetached(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}
