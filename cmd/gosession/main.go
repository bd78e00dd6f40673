// gosession drives a goSession engine from the command line.
//
// Usage:
//
//	gosession [--config path] [--log-level level] <command> [flags]
//
// Commands:
//
//	login     authenticate and store the session
//	logout    notify the server and clear the stored session
//	status    print the stored session
//	validate  check the stored token with the server
//	touch     refresh the activity timestamp
//	watch     run the state machine and print each state change
//	keygen    create the age identity that seals the session store
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	goSession "github.com/MrEthical07/goSession"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "gosession: %v\n", err)
		os.Exit(1)
	}
}

var errUsage = errors.New("usage")

type globals struct {
	configPath string
	logLevel   string
	stdout     io.Writer
	stderr     io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("gosession", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SetInterspersed(false)
	g := globals{stdout: stdout, stderr: stderr}
	fs.StringVar(&g.configPath, "config", "", "YAML config file (default $"+goSession.ConfigEnv+")")
	fs.StringVar(&g.logLevel, "log-level", "", "override log.level from the config")
	fs.Usage = func() { printUsage(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return errUsage
	}
	if fs.NArg() == 0 {
		printUsage(stderr, fs)
		return errUsage
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "login":
		return loginCmd(ctx, g, rest)
	case "logout":
		return logoutCmd(ctx, g, rest)
	case "status":
		return statusCmd(ctx, g, rest)
	case "validate":
		return validateCmd(ctx, g, rest)
	case "touch":
		return touchCmd(ctx, g, rest)
	case "watch":
		return watchCmd(ctx, g, rest)
	case "keygen":
		return keygenCmd(g, rest)
	case "help":
		printUsage(stdout, fs)
		return nil
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", cmd)
		printUsage(stderr, fs)
		return errUsage
	}
}

func printUsage(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprint(w, `gosession - manage a locally stored login session

USAGE
    gosession [global flags] <command> [flags]

COMMANDS
    login      --email <addr> [--password-file <path>]
    logout
    status
    validate
    touch
    watch      [--validate-every <duration>]
    keygen     [--out <path>]

GLOBAL FLAGS
`)
	fmt.Fprint(w, fs.FlagUsages())
}

func (g globals) config() (goSession.Config, error) {
	cfg, err := goSession.LoadConfig(g.configPath)
	if err != nil {
		return goSession.Config{}, err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	return cfg, nil
}

// openEngine loads the config and builds an engine logging to stderr.
func (g globals) openEngine() (*goSession.Engine, error) {
	cfg, err := g.config()
	if err != nil {
		return nil, err
	}
	logger, err := goSession.NewLogger(g.stderr, cfg.Log)
	if err != nil {
		return nil, err
	}
	return goSession.Open(cfg, logger)
}

func parseNoArgs(name string, g globals, args []string) error {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(g.stderr)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 0 {
		fmt.Fprintf(g.stderr, "%s takes no arguments\n", name)
		return errUsage
	}
	return nil
}
