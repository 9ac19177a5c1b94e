// Command compliscan watches screening jobs and browses their results.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jdziat/compliscan"
)

type env struct {
	cfg    compliscan.Config
	logger *slog.Logger
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

func (e *env) service() (compliscan.Service, error) {
	return compliscan.NewService(e.cfg, e.logger)
}

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, e *env, args []string) error
}

var commands = []command{
	{"watch", "poll a job until it settles and show its results", cmdWatch},
	{"results", "show results of a finished job", cmdResults},
	{"export", "write a job's results to CSV or XLSX", cmdExport},
	{"recent", "list recently submitted jobs", cmdRecent},
	{"upload", "upload a CSV of names for screening", cmdUpload},
	{"search", "search the watchlists by name", cmdSearch},
	{"login", "sign in and save the token", cmdLogin},
	{"logout", "remove the saved token", cmdLogout},
	{"whoami", "show the saved token's identity", cmdWhoami},
	{"health", "check the API is reachable", cmdHealth},
	{"mock-server", "serve the mock API over HTTP", cmdMockServer},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		usage(errOut)
		return 2
	}

	var cmd *command
	for i := range commands {
		if commands[i].name == args[0] {
			cmd = &commands[i]
			break
		}
	}
	if cmd == nil {
		printError(errOut, "Error: unknown command %q\n\n", args[0])
		usage(errOut)
		return 2
	}

	cfg, err := compliscan.LoadConfig()
	if err != nil {
		printError(errOut, "Error: %v\n", err)
		return 1
	}
	logger := cfg.Logger(errOut)
	slog.SetDefault(logger)

	e := &env{cfg: cfg, logger: logger, in: in, out: out, errOut: errOut}
	if err := cmd.run(ctx, e, args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 2
		}
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return 130
		}
		logger.Debug("command failed", "command", cmd.name, "error", err)
		printError(errOut, "Error: %s\n", compliscan.Message(err))
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: compliscan <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-12s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Without COMPLISCAN_API_URL every command runs against a built-in mock.")
}

// printError writes to w, falling back to stdout if that fails.
func printError(w io.Writer, format string, args ...any) {
	if _, err := fmt.Fprintf(w, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func newFlagSet(e *env, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.errOut)
	return fs
}

// parseArgs parses flags that may come before or after positional arguments.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

func jobIDArg(fs *flag.FlagSet, args []string) (string, error) {
	pos, err := parseArgs(fs, args)
	if err != nil {
		return "", err
	}
	if len(pos) != 1 {
		return "", fmt.Errorf("%w: %s needs exactly one job id", compliscan.ErrInvalidArgument, fs.Name())
	}
	if err := compliscan.ValidateJobID(pos[0]); err != nil {
		return "", err
	}
	return pos[0], nil
}
