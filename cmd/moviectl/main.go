package main

import (
	"context"
	"os"

	"github.com/alecthomas/kong"
)

var (
	version = "dev"
	cli     struct {
		API     string           `help:"API base URL (overrides the saved one)." env:"MOVIEGATE_API"`
		Config  string           `help:"Path to the CLI config file." type:"path" env:"MOVIECTL_CONFIG"`
		Version kong.VersionFlag `help:"Print version and exit."`

		Signup  signupCmd  `cmd:"" help:"Create an account and sign in."`
		Login   loginCmd   `cmd:"" help:"Sign in with email and password."`
		Logout  logoutCmd  `cmd:"" help:"Sign out and forget the saved session."`
		Whoami  whoamiCmd  `cmd:"" help:"Show the signed-in user."`
		Popular popularCmd `cmd:"" help:"List popular movies."`
		Search  searchCmd  `cmd:"" help:"Search movies by title."`
	}
)

func main() {
	ctx := context.Background()
	kctx := kong.Parse(&cli,
		kong.Name("moviectl"),
		kong.Description("Command line client for moviegate."),
		kong.Vars{"version": version},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	err := kctx.Run(&Globals{
		API:          cli.API,
		ConfigPath:   cli.Config,
		Out:          os.Stdout,
		ReadPassword: promptPassword,
	})
	kctx.FatalIfErrorf(err)
}
