package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"golang.org/x/term"

	"github.com/blevlabs/TuningTracker/internal/config"
	"github.com/blevlabs/TuningTracker/internal/embeddings"
	"github.com/blevlabs/TuningTracker/internal/tracker"
	"github.com/blevlabs/TuningTracker/internal/ui"
)

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// openTracker connects to the configured server, with the configured
// vectorizer when one is enabled.
func openTracker(ctx context.Context) (*tracker.Tracker, error) {
	cfg := config.Get()

	emb, err := embeddings.NewService(cfg.Vectorizer)
	if err != nil {
		return nil, fmt.Errorf("failed to create vectorizer: %w", err)
	}

	opts := tracker.Options{
		URL:       cfg.Server.URL,
		Username:  cfg.Server.Username,
		Password:  cfg.Server.Password,
		Timeout:   cfg.Server.Timeout,
		Certainty: &cfg.Search.Certainty,
		PageSize:  cfg.Export.PageSize,
	}
	if emb != nil {
		log.Debug("Using client-side vectorizer", "provider", emb.Provider(), "model", emb.ModelName())
		opts.Embedder = emb
	}

	return tracker.New(ctx, opts)
}

// readProperties decodes a JSON object given inline, as @file, or as "-" for stdin.
func readProperties(arg string, stdin io.Reader) (map[string]any, error) {
	var data []byte
	switch {
	case arg == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		data = b
	case strings.HasPrefix(arg, "@"):
		b, err := os.ReadFile(arg[1:])
		if err != nil {
			return nil, fmt.Errorf("failed to read properties file: %w", err)
		}
		data = b
	default:
		data = []byte(arg)
	}

	var props map[string]any
	if err := json.Unmarshal(data, &props); err != nil {
		return nil, fmt.Errorf("properties must be a JSON object: %w", err)
	}
	if props == nil {
		return nil, fmt.Errorf("properties must be a JSON object, got null")
	}
	return props, nil
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// writeJSON writes v indented, colouring it when w is a terminal.
func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	if isTerminal(w) {
		_, err = fmt.Fprintln(w, ui.HighlightJSON(data))
	} else {
		_, err = fmt.Fprintln(w, string(data))
	}
	return err
}
