package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	apiclient "github.com/splax/moviegate/pkg/api/client"
)

const requestTimeout = 15 * time.Second

// Globals carries flags and IO shared by every command.
type Globals struct {
	API          string
	ConfigPath   string
	Out          io.Writer
	ReadPassword func() (string, error)
}

// session loads the saved config and returns a client seeded with the saved
// session cookie.
func (g *Globals) session() (*apiclient.Client, cliConfig, string, error) {
	path := g.ConfigPath
	if path == "" {
		var err error
		if path, err = defaultConfigPath(); err != nil {
			return nil, cliConfig{}, "", err
		}
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, cliConfig{}, "", fmt.Errorf("load config: %w", err)
	}
	if api := strings.TrimSpace(g.API); api != "" {
		cfg.APIBaseURL = api
	}
	client, err := apiclient.New(cfg.APIBaseURL)
	if err != nil {
		return nil, cliConfig{}, "", err
	}
	client.SetSessionToken(cfg.SessionToken)
	return client, cfg, path, nil
}

func (g *Globals) persist(client *apiclient.Client, cfg cliConfig, path string) error {
	cfg.SessionToken = client.SessionToken()
	if err := saveConfig(path, cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

func (g *Globals) password(given string) (string, error) {
	if given != "" {
		return given, nil
	}
	if g.ReadPassword == nil {
		return "", errors.New("--password is required")
	}
	return g.ReadPassword()
}

func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		bytes, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(bytes), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func displayName(u *apiclient.User) string {
	if u.Name != nil && *u.Name != "" {
		return fmt.Sprintf("%s <%s>", *u.Name, u.Email)
	}
	return u.Email
}

type signupCmd struct {
	Email    string `help:"Email address." required:""`
	Name     string `help:"Display name (optional)."`
	Password string `help:"Password (prompted when omitted)."`
}

func (c *signupCmd) Run(ctx context.Context, g *Globals) error {
	client, cfg, path, err := g.session()
	if err != nil {
		return err
	}
	secret, err := g.password(c.Password)
	if err != nil {
		return err
	}
	var name *string
	if trimmed := strings.TrimSpace(c.Name); trimmed != "" {
		name = &trimmed
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	user, err := client.Signup(ctx, c.Email, secret, name)
	if err != nil {
		return err
	}
	if err := g.persist(client, cfg, path); err != nil {
		return err
	}
	fmt.Fprintf(g.Out, "signed up as %s\n", displayName(user))
	return nil
}

type loginCmd struct {
	Email    string `help:"Email address." required:""`
	Password string `help:"Password (prompted when omitted)."`
}

func (c *loginCmd) Run(ctx context.Context, g *Globals) error {
	client, cfg, path, err := g.session()
	if err != nil {
		return err
	}
	secret, err := g.password(c.Password)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	user, err := client.Login(ctx, c.Email, secret)
	if err != nil {
		return err
	}
	if err := g.persist(client, cfg, path); err != nil {
		return err
	}
	fmt.Fprintf(g.Out, "logged in as %s\n", displayName(user))
	return nil
}

type logoutCmd struct{}

func (logoutCmd) Run(ctx context.Context, g *Globals) error {
	client, cfg, path, err := g.session()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	if err := client.Logout(ctx); err != nil {
		return err
	}
	cfg.SessionToken = ""
	if err := saveConfig(path, cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	fmt.Fprintln(g.Out, "logged out")
	return nil
}

type whoamiCmd struct{}

func (whoamiCmd) Run(ctx context.Context, g *Globals) error {
	client, _, _, err := g.session()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	store := apiclient.NewSessionStore(client)
	if err := store.FetchMe(ctx); err != nil {
		return err
	}
	state := store.Get()
	if state.User == nil {
		fmt.Fprintln(g.Out, "not logged in")
		return nil
	}
	fmt.Fprintln(g.Out, displayName(state.User))
	return nil
}

type popularCmd struct {
	Page int `help:"Result page." default:"1"`
}

func (c *popularCmd) Run(ctx context.Context, g *Globals) error {
	client, _, _, err := g.session()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	page, err := client.Popular(ctx, c.Page)
	if err != nil {
		return explainAuth(err)
	}
	printMovies(g.Out, page)
	return nil
}

type searchCmd struct {
	Query string `arg:"" help:"Title to search for."`
	Page  int    `help:"Result page." default:"1"`
}

func (c *searchCmd) Run(ctx context.Context, g *Globals) error {
	client, _, _, err := g.session()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	page, err := client.Search(ctx, c.Query, c.Page)
	if err != nil {
		return explainAuth(err)
	}
	printMovies(g.Out, page)
	return nil
}

func explainAuth(err error) error {
	if apiclient.IsStatus(err, http.StatusUnauthorized) {
		return errors.New("not logged in, run `moviectl login` first")
	}
	return err
}

func printMovies(w io.Writer, page *apiclient.MoviePage) {
	if len(page.Results) == 0 {
		fmt.Fprintln(w, "no movies found")
		return
	}
	for _, m := range page.Results {
		year := ""
		if len(m.ReleaseDate) >= 4 {
			year = " (" + m.ReleaseDate[:4] + ")"
		}
		fmt.Fprintf(w, "%-8d %s%s  %.1f\n", m.ID, m.Title, year, m.VoteAverage)
	}
	if page.HasNext {
		fmt.Fprintf(w, "page %d of %d, use --page %d for more\n", page.Page, page.TotalPages, page.Page+1)
	}
}
