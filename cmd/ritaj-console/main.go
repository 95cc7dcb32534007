// Command ritaj-console chats with the ordering assistant from a terminal.
// Each line typed is one customer utterance; exit, quit or q stops.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/calendar"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/flow"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/genai"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/ordering"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/store"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/util"
)

// defaultIdentity is the customer phone the console session orders as.
const defaultIdentity = "971500000000"

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}
	level := slog.LevelWarn
	if util.ParseBoolEnv("CONSOLE_DEBUG", false) {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	model, err := genai.NewClient(
		genai.WithAPIKey(util.FirstEnv("", "GEMINI_API_KEY", "OPENAI_API_KEY")),
		genai.WithBaseURL(util.FirstEnv(genai.DefaultBaseURL, "MODEL_BASE_URL")),
		genai.WithModel(util.FirstEnv(genai.DefaultModel, "MODEL_NAME")),
		genai.WithTimeout(util.ParseDurationEnv("MODEL_TIMEOUT", genai.DefaultTimeout)),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, "model client:", err)
		os.Exit(1)
	}

	st, err := openStore(context.Background(), os.Getenv("DATABASE_URL"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "store:", err)
		os.Exit(1)
	}
	defer st.Close()

	session, err := newSession(context.Background(), st, model, util.FirstEnv(defaultIdentity, "CONSOLE_PHONE"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "session:", err)
		os.Exit(1)
	}

	if err := repl(context.Background(), session, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openStore opens dsn, or an in-memory store when dsn is empty, and seeds the demo menu.
func openStore(ctx context.Context, dsn string) (store.Store, error) {
	var st store.Store = store.NewInMemoryStore()
	if dsn != "" {
		var err error
		if st, err = store.Open(dsn); err != nil {
			return nil, err
		}
	}
	if _, err := store.SeedMenu(ctx, st, store.DemoMenu()); err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to seed menu: %w", err)
	}
	return st, nil
}

// newSession assembles the same dispatcher and loop the service uses around one identity.
func newSession(ctx context.Context, st store.Store, model genai.ClientInterface, identity string) (*flow.Session, error) {
	days, err := calendar.NewZoneResolver(util.FirstEnv(calendar.DefaultTimeZone, "RESTAURANT_TIMEZONE"))
	if err != nil {
		return nil, err
	}
	ledger := ordering.NewLedger(st, ordering.WithDisplayLocation(days.Location()))
	catalog := ordering.NewCatalog(st, days)
	loop := flow.NewLoop(model, flow.NewDispatcher(ledger, days), flow.WithStepTimeout(util.ParseDurationEnv("CONSOLE_STEP_TIMEOUT", time.Minute)))
	return flow.NewSession(ctx, identity, loop, flow.NewMenuPrompt(catalog))
}

// repl reads utterances from in until EOF or an exit word and writes each reply to out.
func repl(ctx context.Context, session *flow.Session, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "Ritaj Cafe assistant. Type exit, quit or q to stop.")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "You: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch strings.ToLower(line) {
		case "exit", "quit", "q":
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}
		fmt.Fprintf(out, "Assistant: %s\n", session.Chat(ctx, line))
	}
}
