// Command studio writes and publishes posts on the blog platform from the
// terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/debemdeboas/archive-studio/internal/config"
)

type command struct {
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"login":     {"check the configured credentials", runLogin},
	"sign":      {"sign server challenges with the ed25519 key", runSign},
	"sites":     {"list your sites", runSites},
	"use":       {"select the site later commands act on", runUse},
	"posts":     {"list posts of the selected site", runPosts},
	"new":       {"create a post from a markdown file", runNew},
	"edit":      {"edit a markdown file with auto-save and live preview", runEdit},
	"publish":   {"publish a post", runPublish},
	"unpublish": {"move a post back to draft", runUnpublish},
	"delete":    {"delete a post", runDelete},
	"import":    {"create posts from every markdown file in a directory", runImport},
	"upload":    {"upload an image", runUpload},
	"backups":   {"list or restore local draft backups", runBackups},
	"click":     {"report a call-to-action click", runClick},
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: studio [-config file] <command> [flags]\n\ncommands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", name, commands[name].usage)
	}
}

func main() {
	configPath := flag.String("config", envOr(config.EnvConfigPath, "config.yaml"), "path to the config file")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	cmd, ok := commands[flag.Arg(0)]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", flag.Arg(0))
		usage()
		os.Exit(2)
	}

	a, err := newApp(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
	defer a.Close()

	// edit installs its own handling to ask about unsaved changes.
	ctx := context.Background()
	if flag.Arg(0) != "edit" {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
	}

	if err := cmd.run(ctx, a, flag.Args()[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		a.log.Debug().Err(err).Str("command", flag.Arg(0)).Msg("Command failed")
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		a.Close()
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
