package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/session"
)

func loginCmd(ctx context.Context, g globals, args []string) error {
	fs := pflag.NewFlagSet("login", pflag.ContinueOnError)
	fs.SetOutput(g.stderr)
	email := fs.String("email", "", "account email (required)")
	passwordFile := fs.String("password-file", "", "read the password from a file instead of prompting")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *email == "" {
		fmt.Fprintln(g.stderr, "login requires --email")
		return errUsage
	}

	password, err := readPassword(*passwordFile)
	if err != nil {
		return err
	}

	engine, err := g.openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	sess, err := engine.Login(ctx, *email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(g.stdout, "logged in as %s (%s)\n", sess.Email, sess.DisplayName)
	return nil
}

func logoutCmd(ctx context.Context, g globals, args []string) error {
	if err := parseNoArgs("logout", g, args); err != nil {
		return err
	}
	engine, err := g.openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	if _, err := engine.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(g.stdout, "logged out")
	return nil
}

func statusCmd(ctx context.Context, g globals, args []string) error {
	if err := parseNoArgs("status", g, args); err != nil {
		return err
	}
	engine, err := g.openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	st, err := engine.SessionStatus(ctx)
	if err != nil {
		return err
	}
	if !st.LoggedIn {
		fmt.Fprintln(g.stdout, "not logged in")
		return nil
	}
	sess, err := engine.CurrentSession(ctx)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			fmt.Fprintln(g.stdout, "not logged in")
			return nil
		}
		return err
	}
	fmt.Fprintf(g.stdout, "logged in as %s (%s, id %s)\n", sess.Email, sess.DisplayName, sess.UserID)
	fmt.Fprintf(g.stdout, "last active %s, expires %s (%s left)\n",
		st.LastActive.UTC().Format(time.RFC3339), st.ExpiresAt.UTC().Format(time.RFC3339),
		st.Remaining().Round(time.Second))
	return nil
}

func validateCmd(ctx context.Context, g globals, args []string) error {
	if err := parseNoArgs("validate", g, args); err != nil {
		return err
	}
	engine, err := g.openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	valid, err := engine.ValidateToken(ctx)
	if err != nil {
		return err
	}
	if !valid {
		fmt.Fprintln(g.stdout, "token rejected, session cleared")
		return nil
	}
	fmt.Fprintln(g.stdout, "token valid")
	return nil
}

func touchCmd(ctx context.Context, g globals, args []string) error {
	if err := parseNoArgs("touch", g, args); err != nil {
		return err
	}
	engine, err := g.openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	if !engine.IsLoggedIn(ctx) {
		fmt.Fprintln(g.stdout, "not logged in")
		return nil
	}
	return engine.TouchActivity(ctx)
}

// watchCmd prints every state the controller publishes until ctx ends.
func watchCmd(ctx context.Context, g globals, args []string) error {
	fs := pflag.NewFlagSet("watch", pflag.ContinueOnError)
	fs.SetOutput(g.stderr)
	every := fs.Duration("validate-every", 0, "re-validate the token at this interval (0 disables)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	engine, err := g.openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	ctrl := goSession.NewControllerFromEngine(ctx, engine)
	defer ctrl.Close()

	states, cancel := ctrl.Subscribe()
	defer cancel()

	var tick <-chan time.Time
	if *every > 0 {
		ticker := time.NewTicker(*every)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case s, ok := <-states:
			if !ok {
				return nil
			}
			fmt.Fprintf(g.stdout, "%s %s\n", time.Now().UTC().Format(time.RFC3339), s)
		case <-tick:
			if err := ctrl.ValidateToken(); err != nil {
				return err
			}
		}
	}
}

func keygenCmd(g globals, args []string) error {
	fs := pflag.NewFlagSet("keygen", pflag.ContinueOnError)
	fs.SetOutput(g.stderr)
	out := fs.String("out", "", "identity file (default session.key_file from the config)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	path := *out
	if path == "" {
		cfg, err := g.config()
		if err != nil {
			return err
		}
		path = cfg.Session.KeyFile
	}
	identity, err := session.LoadOrCreateIdentity(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(g.stdout, "%s\n", identity.Recipient())
	return nil
}

// readPassword reads from passwordFile when set, otherwise prompts on the
// terminal with echo disabled.
func readPassword(passwordFile string) (string, error) {
	if passwordFile != "" && passwordFile != "-" {
		data, err := os.ReadFile(passwordFile)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", passwordFile, err)
		}
		for len(data) > 0 && (data[len(data)-1] == '\n' || data[len(data)-1] == '\r') {
			data = data[:len(data)-1]
		}
		return string(data), nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no terminal available for the password prompt (use --password-file)")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	data, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(data), nil
}
