// Command mailflow is a mail automation toolkit: it sends single and
// bulk messages over SMTP, traverses folders and extracts message
// metadata over IMAP, saves attachments, and keeps a local send log.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/mhoang/mailflow/internal/model"
)

const usage = `mailflow — mail automation toolkit

Usage:
  mailflow [-config path] [-account name] <command> [flags]

Commands:
  setup        add a mail account interactively
  send         compose and send a single message
  bulk         mass-send to a recipient list with batching/throttling
  folders      list the account's folder tree
  messages     list message metadata for a folder
  organize     flag, move, or archive a message
  export       export stored message metadata as CSV
  attachments  save a message's attachments to a directory

Run "mailflow <command> -h" for command flags.
`

func main() {
	// A .env next to the binary can override config/env settings
	// during development; absence is not an error.
	_ = godotenv.Load()

	var (
		cfgPath string
		account string
	)
	flag.StringVar(&cfgPath, "config", model.DefaultConfigPath(), "path to config yaml")
	flag.StringVar(&account, "account", "", "account name (optional with a single account)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := model.LoadConfig(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app := &app{
		cfgPath: cfgPath,
		cfg:     cfg,
		account: account,
		log:     log,
	}

	cmd, args := flag.Arg(0), flag.Args()[1:]

	var runErr error
	switch cmd {
	case "setup":
		runErr = app.runSetup(ctx, args)
	case "send":
		runErr = app.runSend(ctx, args)
	case "bulk":
		runErr = app.runBulk(ctx, args)
	case "folders":
		runErr = app.runFolders(ctx, args)
	case "messages":
		runErr = app.runMessages(ctx, args)
	case "organize":
		runErr = app.runOrganize(ctx, args)
	case "export":
		runErr = app.runExport(ctx, args)
	case "attachments":
		runErr = app.runAttachments(ctx, args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		flag.Usage()
		os.Exit(2)
	}

	if runErr != nil {
		log.Error().Err(runErr).Str("command", cmd).Msg("command failed")
		os.Exit(1)
	}
}

// newLogger builds the console logger used by every command.
func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}
