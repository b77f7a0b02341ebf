// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

// ilo runs a single RIBCL command against an iLO management processor and
// prints the result.
//
// Usage:
//
//	ilo [flags] <command> [key=value ...]
//
// The projected value is printed by default. --json prints the full
// decoded reply, --query a gjson path into it.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/netascode/go-ilo"
)

// exit codes by error kind
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
	exitAuth    = 3
)

type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func main() {
	err := run(os.Args[1:], os.Stdout)
	if err == nil {
		os.Exit(exitOK)
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	var ue *usageError
	switch {
	case errors.As(err, &ue), errors.Is(err, ilo.ErrInvalidParameter):
		os.Exit(exitUsage)
	case errors.Is(err, ilo.ErrAuth):
		os.Exit(exitAuth)
	default:
		os.Exit(exitFailure)
	}
}

func run(args []string, stdout io.Writer) error {
	var (
		configPath string
		address    string
		port       int
		username   string
		dialect    string
		verbosity  int
		timeout    time.Duration
		query      string
		asJSON     bool
		refresh    bool
		listCmds   bool
	)

	flagSet := pflag.NewFlagSet("ilo", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	flagSet.StringVarP(&address, "address", "a", "", "iLO host name or IP (overrides config)")
	flagSet.IntVarP(&port, "port", "p", 0, "TLS port (default 443)")
	flagSet.StringVarP(&username, "username", "u", "", "login name (overrides config)")
	flagSet.StringVar(&dialect, "dialect", "", "protocol dialect: legacy, current (default: probe)")
	flagSet.CountVarP(&verbosity, "verbose", "v", "log exchanges (-v summaries, -vv redacted XML)")
	flagSet.DurationVar(&timeout, "timeout", 0, "read timeout for this command")
	flagSet.StringVarP(&query, "query", "q", "", "gjson path into the decoded reply")
	flagSet.BoolVar(&asJSON, "json", false, "print the decoded reply as JSON")
	flagSet.BoolVar(&refresh, "refresh", false, "bypass the result cache")
	flagSet.BoolVar(&listCmds, "list", false, "list known commands and exit")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return &usageError{err.Error()}
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if listCmds {
		for _, name := range ilo.CommandNames() {
			fmt.Fprintln(stdout, name)
		}
		return nil
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		printHelp(flagSet)
		return &usageError{"missing command"}
	}
	params, err := parseParams(rest[1:])
	if err != nil {
		return err
	}

	cfg := &ilo.Config{}
	if configPath != "" {
		if cfg, err = ilo.LoadConfig(configPath); err != nil {
			return err
		}
	} else if pw := os.Getenv(ilo.PasswordEnv); pw != "" {
		cfg.Password = pw
	}
	if address != "" {
		cfg.Address = address
	}
	if port != 0 {
		cfg.Port = port
	}
	if username != "" {
		cfg.Username = username
	}
	if dialect != "" {
		cfg.Dialect = dialect
	}
	if verbosity > ilo.VerbosityBodies {
		verbosity = ilo.VerbosityBodies
	}
	if verbosity > cfg.Verbosity {
		cfg.Verbosity = verbosity
	}
	if cfg.Address == "" {
		return &usageError{"no address given (use --address or a config file)"}
	}
	if cfg.Password == "" && cfg.Username != "" {
		if cfg.Password, err = promptPassword(); err != nil {
			return err
		}
	}

	level := ilo.LogLevelWarn
	if cfg.Verbosity > 0 {
		level = ilo.LogLevelDebug
	}
	client, err := ilo.NewClientFromConfig(cfg, ilo.WithLogger(ilo.NewDefaultLogger(level)))
	if err != nil {
		return err
	}

	var mods []func(*ilo.Req)
	if timeout > 0 {
		mods = append(mods, ilo.Timeout(timeout))
	}
	if refresh {
		mods = append(mods, ilo.Refresh())
	}

	res, err := client.Execute(context.Background(), rest[0], params, mods...)
	if err != nil {
		return err
	}
	return printResult(stdout, res, query, asJSON)
}

// parseParams turns key=value arguments into command parameters
func parseParams(args []string) ([]ilo.Param, error) {
	builder := ilo.Params{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, &usageError{fmt.Sprintf("parameter %q is not key=value", arg)}
		}
		builder = builder.Set(key, value)
	}
	params, err := builder.List()
	if err != nil {
		return nil, &usageError{err.Error()}
	}
	return params, nil
}

func printResult(w io.Writer, res ilo.Result, query string, asJSON bool) error {
	switch {
	case query != "":
		v := res.GetValue(query)
		if !v.Exists() {
			return fmt.Errorf("query %q matched nothing", query)
		}
		fmt.Fprintln(w, v.String())
	case asJSON:
		fmt.Fprintln(w, res.JSON())
	case res.Value() != "":
		fmt.Fprintln(w, res.Value())
	default:
		fmt.Fprintln(w, "OK")
	}
	return nil
}

// promptPassword reads the password from the terminal with echo disabled
func promptPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", &usageError{"no terminal available for password prompt (set " + ilo.PasswordEnv + ")"}
	}
	fmt.Fprint(os.Stderr, "Password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(pw), nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `ilo runs one RIBCL command against an HPE iLO.

Usage:
  ilo [flags] <command> [key=value ...]

Examples:
  ilo -a 10.0.0.5 -u Administrator power_status
  ilo -c ilo.yaml uid_control state=on
  ilo -c ilo.yaml --query GET_NETWORK_SETTINGS.DNS_NAME.VALUE network

Flags:
`)
	flagSet.PrintDefaults()
}
