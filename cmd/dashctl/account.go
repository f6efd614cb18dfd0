package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"
)

// registerCmd creates an account on the trading API.
type registerCmd struct {
	username string
	email    string
	password string
}

func (*registerCmd) Name() string     { return "register" }
func (*registerCmd) Synopsis() string { return "create an account on the trading API" }
func (*registerCmd) Usage() string {
	return `dashctl register -u <username> -e <email> [-p <password>]

  Creates an account. The password is read from stdin when -p is omitted.
  Registering does not log in; run 'dashctl login' afterwards.
`
}

func (c *registerCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.username, "u", "", "username")
	f.StringVar(&c.email, "e", "", "email address")
	f.StringVar(&c.password, "p", "", "password (prompted when empty)")
}

func (c *registerCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	password, err := passwordOrPrompt(c.password, os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading password: %v\n", err)
		return subcommands.ExitUsageError
	}

	return withEnv(ctx, func(e *env) subcommands.ExitStatus {
		user, err := e.accounts.Register(ctx, c.username, c.email, password)
		if err != nil {
			return fail(err)
		}
		fmt.Printf("Registered %s. Run 'dashctl login -u %s' to log in.\n", user.Username, user.Username)
		return subcommands.ExitSuccess
	})
}

// loginCmd exchanges credentials for a token and keeps it for later
// invocations.
type loginCmd struct {
	username string
	password string
}

func (*loginCmd) Name() string     { return "login" }
func (*loginCmd) Synopsis() string { return "log in and remember the access token" }
func (*loginCmd) Usage() string {
	return `dashctl login -u <username> [-p <password>]

  Logs in and stores the access token encrypted in the local database.
  The password is read from stdin when -p is omitted.
`
}

func (c *loginCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.username, "u", "", "username")
	f.StringVar(&c.password, "p", "", "password (prompted when empty)")
}

func (c *loginCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	password, err := passwordOrPrompt(c.password, os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading password: %v\n", err)
		return subcommands.ExitUsageError
	}

	return withEnv(ctx, func(e *env) subcommands.ExitStatus {
		token, err := e.accounts.Authenticate(ctx, c.username, password)
		if err != nil {
			return fail(err)
		}

		if err := e.session.Login(ctx, token, nil); err != nil {
			return fail(err)
		}

		fmt.Printf("Logged in as %s.\n", e.session.User().Username)
		return subcommands.ExitSuccess
	})
}

// logoutCmd forgets the stored token.
type logoutCmd struct{}

func (*logoutCmd) Name() string             { return "logout" }
func (*logoutCmd) Synopsis() string         { return "forget the stored access token" }
func (*logoutCmd) Usage() string            { return "dashctl logout\n" }
func (*logoutCmd) SetFlags(_ *flag.FlagSet) {}

func (*logoutCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withEnv(ctx, func(e *env) subcommands.ExitStatus {
		if err := e.session.Logout(ctx); err != nil {
			return fail(err)
		}
		fmt.Println("Logged out.")
		return subcommands.ExitSuccess
	})
}

// whoamiCmd prints the user of the stored token.
type whoamiCmd struct{}

func (*whoamiCmd) Name() string             { return "whoami" }
func (*whoamiCmd) Synopsis() string         { return "show the logged-in user" }
func (*whoamiCmd) Usage() string            { return "dashctl whoami\n" }
func (*whoamiCmd) SetFlags(_ *flag.FlagSet) {}

func (*whoamiCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withEnv(ctx, func(e *env) subcommands.ExitStatus {
		snap := e.session.Snapshot()
		if !snap.IsAuthenticated() || snap.User == nil {
			fmt.Println("Not logged in.")
			return subcommands.ExitFailure
		}
		fmt.Printf("%s <%s> (user %d)\n", snap.User.Username, snap.User.Email, snap.User.ID)
		return subcommands.ExitSuccess
	})
}

// passwordOrPrompt returns given, or the first line of r when given is empty.
func passwordOrPrompt(given string, r io.Reader) (string, error) {
	if given != "" {
		return given, nil
	}
	fmt.Fprint(os.Stderr, "Password: ")
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
