// Copyright 2024 The Comunidad Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// The comunichat command is a chat client for the Comunidad services
// marketplace with a terminal user interface.
//
// It keeps the conversation inbox, the open conversation, and the
// notification bell in sync with the backend over REST and realtime push
// channels.
package main // import "comunidad.app/comunichat"

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rivo/tview"
	"golang.org/x/text/message"

	apiclient "comunidad.app/comunichat/internal/api"
	"comunidad.app/comunichat/internal/client"
	"comunidad.app/comunichat/internal/logwriter"
	"comunidad.app/comunichat/internal/realtime"
	"comunidad.app/comunichat/internal/session"
	"comunidad.app/comunichat/internal/storage"
	"comunidad.app/comunichat/internal/ui"
)

const appName = "comunichat"

// Set at build time while linking.
var (
	Version = "devel"
	Commit  = "unknown commit"
)

func printHelp(flags *flag.FlagSet, w io.Writer) {
	flags.SetOutput(w)
	fmt.Fprint(w, `Usage of comunichat:

`)
	flags.PrintDefaults()
}

// dataDir returns the directory where the session and database live.
func dataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	u, err := user.Current()
	if err != nil || u.HomeDir == "" {
		return filepath.Join(".", appName)
	}
	return filepath.Join(u.HomeDir, ".local", "share", appName)
}

func pollInterval(s string, def time.Duration, logger *log.Logger) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		logger.Printf("error parsing poll interval %q, defaulting to %s: %v", s, def, err)
		return def
	}
	return d
}

func main() {
	earlyLogs := &bytes.Buffer{}
	logger := log.New(io.MultiWriter(os.Stderr, earlyLogs), "", log.LstdFlags)
	debug := log.New(io.Discard, "DEBUG ", log.LstdFlags)
	recvLog := log.New(io.Discard, "RECV ", log.LstdFlags)
	sentLog := log.New(io.Discard, "SENT ", log.LstdFlags)

	var (
		configPath string
		defAcct    string
		h          bool
		help       bool
		genConfig  bool
	)
	flags := flag.NewFlagSet(appName, flag.ContinueOnError)
	flags.StringVar(&configPath, "f", configPath, "the config file to load")
	flags.StringVar(&defAcct, "account", defAcct, "override the account set in the config file")
	flags.BoolVar(&h, "h", h, "print this help message")
	flags.BoolVar(&help, "help", help, "print this help message")
	flags.BoolVar(&genConfig, "config", genConfig, "print a default config file to stdout")
	// Even with ContinueOnError set, it still prints for some reason. Discard
	// the first defaults so we can write our own.
	flags.SetOutput(io.Discard)
	err := flags.Parse(os.Args[1:])
	if err != nil {
		logger.Println(err)
		printHelp(flags, os.Stderr)
		os.Exit(2)
	}

	if help || h {
		printHelp(flags, os.Stdout)
		return
	}

	if genConfig {
		err = printConfig(os.Stdout)
		if err != nil {
			logger.Fatalf("Error encoding default config as TOML: %v", err)
		}
		return
	}

	f, fpath, err := configFile(configPath)
	if err != nil {
		logger.Fatalf(`%v

Try running '%s -config' to generate a default config file.`, err, os.Args[0])
	}
	cfg := config{}
	_, err = toml.NewDecoder(f).Decode(&cfg)
	if err != nil {
		logger.Printf("error parsing config file: %v", err)
	}
	if err = f.Close(); err != nil {
		logger.Printf("error closing config file: %v", err)
	}

	if cfg.Log.Verbose {
		debug.SetOutput(io.MultiWriter(earlyLogs, os.Stderr))
	}

	if defAcct != "" {
		cfg.DefaultAcct = defAcct
	}

	var acct account
	for _, a := range cfg.Account {
		if a.Name == cfg.DefaultAcct {
			acct = a
			break
		}
	}
	if acct.Name == "" {
		logger.Fatalf("account %q not found in config file %q", cfg.DefaultAcct, fpath)
	}
	if acct.Server == "" {
		logger.Fatalf("account %q has no server URL", acct.Name)
	}

	p := message.NewPrinter(message.MatchLanguage("en"))

	timeout := 30 * time.Second
	if cfg.Timeout != "" {
		timeout, err = time.ParseDuration(cfg.Timeout)
		if err != nil {
			logger.Printf("error parsing timeout, defaulting to 30s: %q", err)
		}
	}

	// Open the database.
	dbCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := storage.OpenDB(dbCtx, appName, acct.Name, acct.DB, expectedDBVersion, Migrations(), p, debug)
	if err != nil {
		logger.Fatalf("error opening database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Printf("error closing database: %v", err)
		}
	}()

	sess, err := session.Open(filepath.Join(dataDir(), acct.Name))
	if err != nil {
		logger.Fatalf("error loading session: %v", err)
	}

	// Setup the global tview styles. I hate this.
	var cfgTheme *theme
	for i := range cfg.Theme {
		t := cfg.Theme[i]
		if t.Name == cfg.UI.Theme {
			cfgTheme = &t
			break
		}
	}
	if cfgTheme != nil {
		tview.Styles.PrimitiveBackgroundColor = getColor(cfgTheme.PrimitiveBackgroundColor)
		tview.Styles.ContrastBackgroundColor = getColor(cfgTheme.ContrastBackgroundColor)
		tview.Styles.MoreContrastBackgroundColor = getColor(cfgTheme.MoreContrastBackgroundColor)
		tview.Styles.BorderColor = getColor(cfgTheme.BorderColor)
		tview.Styles.TitleColor = getColor(cfgTheme.TitleColor)
		tview.Styles.GraphicsColor = getColor(cfgTheme.GraphicsColor)
		tview.Styles.PrimaryTextColor = getColor(cfgTheme.PrimaryTextColor)
		tview.Styles.SecondaryTextColor = getColor(cfgTheme.SecondaryTextColor)
		tview.Styles.TertiaryTextColor = getColor(cfgTheme.TertiaryTextColor)
		tview.Styles.InverseTextColor = getColor(cfgTheme.InverseTextColor)
		tview.Styles.ContrastSecondaryTextColor = getColor(cfgTheme.ContrastSecondaryTextColor)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGQUIT, syscall.SIGTERM)

	pane := ui.New(
		ui.Debug(debug),
		ui.InboxWidth(cfg.UI.Width),
		ui.Printer(p),
	)
	uiShutdown = pane.Stop

	if cfg.Log.Frames {
		recvLog.SetOutput(pane)
		sentLog.SetOutput(pane)
	}

	_, err = fmt.Fprintf(pane, `%s %s (%s)
Go %s %s

`, string(appName[0]^0x20)+appName[1:], Version, Commit, runtime.Version(), runtime.Compiler)
	if err != nil {
		debug.Printf("error logging to pane: %v", err)
	}

	_, err = io.Copy(pane, earlyLogs)
	logger.SetOutput(pane)
	if cfg.Log.Verbose {
		debug.SetOutput(pane)
	}
	if err != nil {
		debug.Printf("error copying early log data to output buffer: %q", err)
	}

	if len(acct.TokenCmd) > 0 {
		tok := &bytes.Buffer{}
		args := strings.Fields(acct.TokenCmd)
		debug.Printf("running command: %q", acct.TokenCmd)
		// The config file is considered a safe source since it is never
		// written except by the user, so consider this use of exec to be
		// safe.
		/* #nosec */
		cmd := exec.Command(args[0], args[1:]...)
		cmd.Stdin = os.Stdin
		cmd.Stderr = io.MultiWriter(os.Stderr, pane)
		cmd.Stdout = tok
		/* #nosec */
		err := cmd.Run()
		if err != nil {
			debug.Printf("error running token command, falling back to stored session: %v", err)
		} else if t := strings.TrimSpace(tok.String()); t != "" {
			if err := sess.Set(t, sess.Role(), sess.Name(), sess.Email()); err != nil {
				logger.Printf("error persisting session: %v", err)
			}
		}
	}
	if !sess.Active() {
		logger.Printf(`no session token found, edit %q and add:

	token_eval="pass show comunidad/token"

`, fpath)
	}

	rt := realtime.NewManager(acct.Server, sess.Token, debug,
		realtime.Tee(logwriter.New(recvLog), logwriter.New(sentLog)),
	)
	apic := apiclient.New(acct.Server, sess.Token, debug)

	c := client.New(apic, rt, sess, logger, debug,
		client.Timeout(timeout),
		client.Storage(db),
		client.Printer(p),
		client.ConversationInterval(pollInterval(cfg.Poll.Conversation, 5*time.Second, logger)),
		client.InboxInterval(pollInterval(cfg.Poll.Inbox, 30*time.Second, logger)),
		client.BellInterval(pollInterval(cfg.Poll.Bell, 30*time.Second, logger)),
	)
	c.Handler(newClientHandler(c, pane, logger, debug))
	pane.Handle(newUIHandler(pane, c, logger, debug))

	go func() {
		defer panicHandler()
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := c.RefreshInbox(ctx); err != nil {
			logger.Print(p.Sprintf("initial inbox load failed: %v", err))
		}
		if err := c.RefreshNotifications(ctx); err != nil {
			debug.Print(p.Sprintf("initial notification load failed: %v", err))
		}
		c.Start()
	}()

	go func() {
		defer panicHandler()
		s := <-sigs
		debug.Printf("got signal: %v", s)
		pane.Stop()
	}()

	defer pane.Stop()
	defer c.Stop()
	if err := pane.Run(); err != nil {
		panic(err)
	}
}
