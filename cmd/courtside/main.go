package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/five82/courtside/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	flags := flag.NewFlagSet("courtside", flag.ContinueOnError)
	configPath := flags.String("config", "", "config file path (default ~/.config/courtside/config.toml)")
	prefsPath := flags.String("prefs", "", "preferences file path (default ~/.config/courtside/prefs.toml)")
	server := flags.String("server", "", "booking server address, overrides config")
	user := flags.String("user", "", "username to log in as, overrides config")
	admin := flags.Bool("admin", false, "log in with admin rights")
	once := flags.Bool("once", false, "print the booking grid and exit")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: courtside [flags]\n       courtside [flags] admin COMMAND ARGS...\n\n")
		flags.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n%s\n", app.AdminUsage)
	}
	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath: *configPath,
		PrefsPath:  *prefsPath,
		Server:     *server,
		Username:   *user,
		Admin:      *admin,
		Once:       *once,
	}

	var err error
	switch args := flags.Args(); {
	case len(args) > 0 && args[0] == "admin":
		err = app.RunAdmin(ctx, opts, args[1:])
	case len(args) > 0:
		fmt.Fprintf(os.Stderr, "courtside: unexpected argument %q\n", args[0])
		flags.Usage()
		return 2
	default:
		err = app.Run(ctx, opts)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "courtside: %v\n", err)
		return 1
	}
	return 0
}
