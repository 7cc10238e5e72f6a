package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/eovidiu/personal-q-tui/internal/app"
	"github.com/eovidiu/personal-q-tui/internal/auth"
	"github.com/eovidiu/personal-q-tui/internal/cache"
	"github.com/eovidiu/personal-q-tui/internal/client"
	"github.com/eovidiu/personal-q-tui/internal/config"
	"github.com/eovidiu/personal-q-tui/internal/mockserver"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "Path to config file")
	apiURL := flag.String("url", "", "Backend base URL (overrides config)")
	token := flag.String("token", "", "Bearer token (overrides config)")
	askToken := flag.Bool("ask-token", false, "Prompt for a token before starting")
	demo := flag.Bool("demo", false, "Run against a built-in demo backend")
	flag.Parse()

	// A .env in the working directory feeds the PERSONALQ_* overrides.
	godotenv.Load()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *apiURL != "" {
		cfg.API.BaseURL = *apiURL
	}
	if *token != "" {
		cfg.API.Token = *token
	}
	if *askToken {
		tok, err := promptToken()
		if err != nil {
			log.Fatalf("read token: %v", err)
		}
		cfg.API.Token = tok
	}

	var demoSrv *mockserver.Server
	if *demo {
		demoSrv = mockserver.New()
		base, err := demoSrv.Start("")
		if err != nil {
			log.Fatalf("start demo backend: %v", err)
		}
		defer demoSrv.Close()
		cfg.API.BaseURL = base
		cfg.API.Token = ""
	}

	// The stdlib logger must not write to the terminal once the alt
	// screen is up; the feed client and demo backend both use it.
	if os.Getenv("PERSONALQ_DEBUG") != "" {
		f, err := tea.LogToFile("personalq-debug.log", "personalq")
		if err != nil {
			log.Fatalf("open debug log: %v", err)
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}

	api := client.New(cfg.API.BaseURL)
	api.SetTimeout(cfg.API.Timeout)

	if !*demo {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := api.Health(ctx)
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "backend %s is not reachable: %v\nrun with --demo to try the dashboard without one\n",
				cfg.API.BaseURL, err)
			os.Exit(1)
		}
	}

	events := client.NewEventClient(api)
	mgr := auth.NewManager(api)
	store := cache.New()
	sync := cache.NewSynchronizer(store, events)
	unbind := sync.Bind(mgr)
	defer unbind()

	deps := app.Deps{
		API:    api,
		Events: events,
		Auth:   mgr,
		Cache:  store,
		Sync:   sync,
		Config: cfg,
		Demo:   *demo,
	}

	p := tea.NewProgram(app.New(deps), tea.WithAltScreen())
	_, runErr := p.Run()
	sync.Stop()
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
}

// promptToken reads a token from the terminal without echoing it.
func promptToken() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, "API token: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
