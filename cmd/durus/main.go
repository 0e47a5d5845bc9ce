package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/muwahhidun/durus/internal/api"
	"github.com/muwahhidun/durus/internal/bookmark"
	"github.com/muwahhidun/durus/internal/config"
	"github.com/muwahhidun/durus/internal/domain"
	"github.com/muwahhidun/durus/internal/download"
	"github.com/muwahhidun/durus/internal/log"
	"github.com/muwahhidun/durus/internal/player"
	"github.com/muwahhidun/durus/internal/quiz"
	"github.com/muwahhidun/durus/internal/search"
	"github.com/muwahhidun/durus/internal/session"
	"github.com/muwahhidun/durus/internal/store"
	"github.com/muwahhidun/durus/internal/sync"
	"github.com/muwahhidun/durus/internal/tui"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	var (
		showVersion bool
		doSync      bool
		doLogout    bool
	)
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.BoolVar(&doSync, "sync", false, "sync the catalog and exit")
	flag.BoolVar(&doLogout, "logout", false, "log out and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("durus %s\n", Version)
		return
	}

	if err := run(doSync, doLogout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(doSync, doLogout bool) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := log.SetupLogger(&cfg.Logging)
	if err != nil {
		logger = log.NullLogger()
	}
	slog.SetDefault(logger)

	logger.Info("starting durus", "version", Version)

	if !cfg.IsConfigured() {
		if err := runSetupFlow(cfg); err != nil {
			return err
		}
		// Reload so the rest of the run sees the saved values.
		if cfg, err = config.LoadConfig(); err != nil {
			return fmt.Errorf("failed to reload config: %w", err)
		}
	}

	cache, err := store.NewCacheStore(config.DataPath(), cfg.Server.URL)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer cache.Close()

	client := api.NewClient(cfg.Server.URL, cfg.Server.APIPrefix, logger)
	sess := session.NewManager(cache, client, logger)
	client.SetTokenSource(sess)

	if doLogout {
		sess.Logout()
		fmt.Println("Logged out.")
		return nil
	}

	if !sess.IsLoggedIn() {
		if err := runLoginFlow(sess); err != nil {
			return err
		}
	}

	engine := sync.NewEngine(client, cache, logger)

	if doSync {
		res, err := engine.SyncAll(context.Background())
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		fmt.Printf("Synced %d items in %s", res.ItemsSynced, res.Duration.Round(10*time.Millisecond))
		if res.SeriesSkipped > 0 {
			fmt.Printf(" (%d series skipped)", res.SeriesSkipped)
		}
		fmt.Println()
		return nil
	}

	launcher := player.NewLauncher(cfg.Player.Command, cfg.Player.Args, logger)

	svc := tui.Services{
		Store:     cache,
		Client:    client,
		Session:   sess,
		Sync:      engine,
		Downloads: download.NewManager(client, cache, cfg.Download.Dir, logger),
		Bookmarks: bookmark.NewReconciler(client, cache, logger),
		Quiz:      quiz.NewEngine(client, logger),
		Search:    search.NewIndex(logger),
		Player:    launcher,
	}

	p := tea.NewProgram(tui.NewModel(svc), tea.WithAltScreen())

	logger.Info("starting TUI")
	if _, err := p.Run(); err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	logger.Info("shutting down")
	return nil
}

// runSetupFlow handles the initial setup when no server is configured
func runSetupFlow(cfg *config.Config) error {
	fmt.Println()
	fmt.Println("Welcome to Durus!")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("Enter the lessons server URL (e.g. https://lessons.example.com): ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		serverURL := strings.TrimSpace(input)
		if serverURL == "" {
			fmt.Println("Server URL cannot be empty. Please try again.")
			continue
		}
		cfg.Server.URL = strings.TrimRight(serverURL, "/")
		break
	}

	if err := config.SaveConfig(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println("✓ Configuration saved!")
	fmt.Println()
	return nil
}

// runLoginFlow prompts for credentials and logs in, offering registration
// when the account does not exist yet.
func runLoginFlow(sess *session.Manager) error {
	fmt.Println()
	fmt.Println("Sign in to continue.")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)
	ctx := context.Background()

	for {
		fmt.Print("Username or email: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		login := strings.TrimSpace(input)
		if login == "" {
			continue
		}

		fmt.Print("Password: ")
		pwBytes, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}

		err = sess.Login(ctx, login, string(pwBytes))
		if err == nil {
			fmt.Println("✓ Signed in.")
			fmt.Println()
			return nil
		}

		switch {
		case isAuthError(err):
			fmt.Println("✗ Invalid credentials. Try again, or press Ctrl+C to quit.")
			fmt.Println()
		default:
			return fmt.Errorf("login failed: %w", err)
		}
	}
}

func isAuthError(err error) bool {
	return errors.Is(err, domain.ErrAuthFailed) || errors.Is(err, domain.ErrValidation)
}
