// ABOUTME: Entry point for the chatsync CLI
// ABOUTME: Records chat sessions locally and mirrors them to the remote store

package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/2389/chatsync/internal/analytics"
	"github.com/2389/chatsync/internal/auth"
	"github.com/2389/chatsync/internal/breaker"
	"github.com/2389/chatsync/internal/config"
	"github.com/2389/chatsync/internal/remote"
	"github.com/2389/chatsync/internal/remotecfg"
	"github.com/2389/chatsync/internal/replicate"
	"github.com/2389/chatsync/internal/session"
	"github.com/2389/chatsync/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
       _           _
   ___| |__   __ _| |_ ___ _   _ _ __   ___
  / __| '_ \ / _' | __/ __| | | | '_ \ / __|
 | (__| | | | (_| | |_\__ \ |_| | | | | (__
  \___|_| |_|\__,_|\__|___/\__, |_| |_|\___|
                           |___/
`

// getConfigPath returns the path to the chatsync config file.
// Priority: CHATSYNC_CONFIG env var > XDG_CONFIG_HOME/chatsync/config.yaml > ~/.config/chatsync/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("CHATSYNC_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "chatsync", "config.yaml")
}

// getDataPath returns the path to the chatsync data directory.
// Priority: XDG_DATA_HOME/chatsync > ~/.local/share/chatsync
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "chatsync")
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "chat":
		err = runChat(ctx)
	case "history":
		err = runHistory(os.Args[2:])
	case "sync":
		err = runSync(ctx)
	case "health":
		err = runHealth(ctx)
	case "init":
		err = runInit()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: chatsync <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  chat              Start an interactive chat session")
	fmt.Println("  history           List days with recorded sessions")
	fmt.Println("  history <date>    List sessions recorded on a day (YYYY-MM-DD)")
	fmt.Println("  sync              Pull remote history into the local store")
	fmt.Println("  health            Check remote store health")
	fmt.Println("  init              Create a default config file")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  CHATSYNC_CONFIG   Config file path (default: ~/.config/chatsync/config.yaml)")
	fmt.Println()
}

// app wires the session stack together for a single CLI invocation.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	kv      store.KV
	local   *store.LocalStore
	auth    auth.Provider
	client  remote.Client // nil when no remote is configured
	breaker *breaker.Breaker
	repl    *replicate.Replicator
	manager *session.Manager
	remCfg  *remotecfg.Fetcher // nil when no remote is configured
	respond responder
}

func newApp() (*app, error) {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	kv, err := store.NewSQLiteKV(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	local := store.NewLocalStore(kv, logger)
	if err := local.MigrateLegacyFormat(); err != nil {
		logger.Warn("legacy history migration failed", "error", err)
	}

	var authp auth.Provider = auth.Anonymous()
	var token string
	if cfg.Credentials.Path != "" {
		fp := auth.NewFileProvider(cfg.Credentials.Path)
		authp = fp
		token = fp.Token()
	}

	var client remote.Client
	var remCfg *remotecfg.Fetcher
	brk := breaker.New(breaker.Options{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		Cooldown:         cfg.Breaker.Cooldown,
	})
	if cfg.Remote.BaseURL != "" {
		client = remote.NewHTTPClient(remote.HTTPOptions{
			BaseURL:   cfg.Remote.BaseURL,
			AuthToken: token,
			Timeout:   cfg.Remote.Timeout,
		})
		// Config fetches get their own breaker so a flaky config
		// endpoint cannot trip replication, and vice versa.
		cfgBreaker := breaker.New(breaker.Options{
			FailureThreshold: cfg.Breaker.FailureThreshold,
			Cooldown:         cfg.Breaker.Cooldown,
		})
		remCfg = remotecfg.NewFetcher(
			remotecfg.NewHTTPSource(cfg.Remote.BaseURL, cfg.Remote.Timeout),
			cfgBreaker, logger,
		)
	}

	repl := replicate.New(replicate.Options{
		Client:   client,
		Store:    local,
		Breaker:  brk,
		Logger:   logger,
		PageSize: cfg.Replication.PageSize,
	})

	var emitter *analytics.Emitter
	if cfg.Analytics.Enabled {
		emitter = analytics.New(client, brk, authp, logger)
	}

	manager := session.NewManager(session.Options{
		Store:      local,
		Replicator: repl,
		Auth:       authp,
		Analytics:  emitter,
		Logger:     logger,
	})

	return &app{
		cfg:     cfg,
		logger:  logger,
		kv:      kv,
		local:   local,
		auth:    authp,
		client:  client,
		breaker: brk,
		repl:    repl,
		manager: manager,
		remCfg:  remCfg,
		respond: echoResponder{},
	}, nil
}

// Close drains background replication and releases the database.
func (a *app) Close() {
	a.manager.Wait()
	if err := a.kv.Close(); err != nil {
		a.logger.Warn("closing database", "error", err)
	}
}

func runChat(ctx context.Context) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)
	green := color.New(color.FgGreen)

	cyan.Print(banner)
	gray.Printf("    version: %s\n\n", version)

	if userID, ok := a.auth.UserID(); ok {
		green.Print("    ▶ ")
		fmt.Printf("User:    %s\n", userID)
	} else {
		gray.Print("    ▶ ")
		fmt.Println("User:    (not signed in, local-only)")
	}
	green.Print("    ▶ ")
	fmt.Printf("Store:   %s\n", a.cfg.Database.Path)
	if a.cfg.Remote.BaseURL != "" {
		green.Print("    ▶ ")
		fmt.Printf("Remote:  %s\n", a.cfg.Remote.BaseURL)
	}
	fmt.Println()

	// Server-driven greeting, when one is published
	if a.remCfg != nil {
		if motd, ok := a.remCfg.Get(ctx, "welcome_message"); ok && motd != "" {
			cyan.Printf("%s\n\n", motd)
		}
	}

	// Catch up on remote history in the background while the user types
	var pull sync.WaitGroup
	if userID, ok := a.auth.UserID(); ok && a.client != nil {
		pull.Add(1)
		go func() {
			defer pull.Done()
			if err := a.repl.PullRemoteHistory(ctx, userID); err != nil {
				a.logger.Debug("history pull failed", "error", err)
			}
		}()
	}
	defer pull.Wait()

	return chatREPL(ctx, a)
}

func newStdinScanner() *bufio.Scanner {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), 1024*1024) // 1MB max input
	return scanner
}

// chatREPL reads user messages from stdin until EOF or /end.
func chatREPL(ctx context.Context, a *app) error {
	green := color.New(color.FgGreen)
	gray := color.New(color.FgHiBlack)

	gray.Println("Type a message and press enter. /new starts a fresh session,")
	gray.Println("/end closes the current one, Ctrl+D exits.")
	fmt.Println()

	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := newStdinScanner()
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		errc <- scanner.Err()
	}()

	for {
		green.Print("> ")
		var line string
		var open bool
		select {
		case <-ctx.Done():
			fmt.Println()
			return a.manager.EndSession()
		case line, open = <-lines:
			if !open {
				fmt.Println()
				if err := a.manager.EndSession(); err != nil {
					return err
				}
				return <-errc
			}
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == "/end":
			if err := a.manager.EndSession(); err != nil {
				return err
			}
			gray.Println("session ended")
		case line == "/new":
			sess, err := a.manager.StartSession()
			if err != nil {
				return err
			}
			gray.Printf("new session %s\n", sess.ID)
		default:
			err := a.manager.AddMessage(store.ChatMessage{
				Sender: store.SenderUser,
				Text:   line,
			})
			if err != nil {
				return fmt.Errorf("saving message: %w", err)
			}
			if reply := a.respond.Respond(ctx, a.manager.Current(), line); reply != "" {
				fmt.Println(reply)
				err := a.manager.AddMessage(store.ChatMessage{
					Sender: store.SenderAssistant,
					Text:   reply,
				})
				if err != nil {
					return fmt.Errorf("saving reply: %w", err)
				}
			}
			if cur := a.manager.Current(); cur != nil {
				gray.Printf("  ✓ saved (%d in session)\n", len(cur.Messages))
			}
		}
	}
}

func runHistory(args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cyan := color.New(color.FgCyan)

	if len(args) >= 1 {
		date := args[0]
		sessions := a.local.ListSessionsForDate(date)
		if len(sessions) == 0 {
			fmt.Printf("no sessions on %s\n", date)
			return nil
		}

		cyan.Printf("Sessions on %s\n\n", date)
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "  STARTED\tMESSAGES\tTITLE")
		for _, sess := range sessions {
			fmt.Fprintf(w, "  %s\t%d\t%s\n",
				sess.StartedAt.Local().Format("15:04"),
				len(sess.Messages),
				sess.Title,
			)
		}
		return w.Flush()
	}

	dates := a.local.ListDatesWithHistory()
	if len(dates) == 0 {
		fmt.Println("no recorded sessions")
		return nil
	}

	stats := a.local.HistoryStats()
	cyan.Printf("History: %d sessions, %d messages\n\n", stats.Sessions, stats.Messages)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "  DATE\tSESSIONS")
	for _, date := range dates {
		fmt.Fprintf(w, "  %s\t%d\n", date, len(a.local.ListSessionsForDate(date)))
	}
	return w.Flush()
}

func runSync(ctx context.Context) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if a.client == nil {
		return fmt.Errorf("no remote configured (set remote.base_url)")
	}
	userID, ok := a.auth.UserID()
	if !ok {
		return fmt.Errorf("not signed in (set credentials.path to a valid credentials file)")
	}

	// Push anything the background mirror missed, then pull
	if cur := a.manager.Current(); cur != nil && cur.HasMessages() {
		if err := a.repl.SyncFullSession(ctx, cur); err != nil {
			a.logger.Warn("sweeping current session", "error", err)
		}
	}

	fmt.Printf("pulling history for %s...\n", userID)
	if err := a.repl.PullRemoteHistory(ctx, userID); err != nil {
		return fmt.Errorf("pulling remote history: %w", err)
	}

	green := color.New(color.FgGreen)
	stats := a.local.HistoryStats()
	green.Printf("✓ synced: %d sessions, %d messages local\n", stats.Sessions, stats.Messages)
	if last, ok := a.local.LastSyncTime(); ok {
		fmt.Printf("last sync: %s\n", last.Local().Format(time.RFC822))
	}
	fmt.Printf("replication breaker: %s\n", a.breaker.Metrics().State)
	return nil
}

func runHealth(ctx context.Context) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if a.client == nil {
		return fmt.Errorf("no remote configured (set remote.base_url)")
	}

	health, err := a.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if !health.Initialized {
		return fmt.Errorf("unhealthy: %s", health.Error)
	}

	fmt.Println("healthy")
	return nil
}

// runInit writes a default config file so chat works out of the box in
// local-only mode.
func runInit() error {
	configPath := getConfigPath()
	dataPath := getDataPath()
	dbPath := filepath.Join(dataPath, "chatsync.db")

	green := color.New(color.FgGreen)

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config already exists: %s", configPath)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	configContent := fmt.Sprintf(`# chatsync configuration
# Generated by chatsync init

# Uncomment to mirror sessions to a remote chat store:
# remote:
#   base_url: "https://chat.example.com"
#   timeout: "10s"
#
# credentials:
#   path: "%s"

database:
  path: "%s"

breaker:
  failure_threshold: 3
  cooldown: "30s"

logging:
  level: "info"
  format: "text"
`, filepath.Join(filepath.Dir(configPath), "credentials.toml"), dbPath)

	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	green.Printf("✓ Created config: %s\n", configPath)
	fmt.Println("Run 'chatsync chat' to start a session.")
	return nil
}
