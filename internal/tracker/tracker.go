// Package tracker is a typed facade over a remote Weaviate vector database.
//
// A Tracker holds one immutable connection and turns method calls into single
// request/response round trips. Apart from assigning object IDs and unwrapping
// responses it adds no behaviour of its own: there is no caching, no retrying
// and no local copy of stored objects.
//
// A Tracker adds no locking. Do not assume that concurrent calls on one
// instance are serialized.
package tracker

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"github.com/blevlabs/TuningTracker/internal/weaviate"
)

const (
	// DefaultURL is used when Options.URL is empty.
	DefaultURL = "https://localhost:8080"

	// DefaultCertainty is the search threshold used when none is configured.
	DefaultCertainty = 0.6

	// DefaultExportPath is where ExportAll writes when no path is given.
	DefaultExportPath = "output.json"

	// DefaultPageSize is the number of objects fetched per export request.
	DefaultPageSize = 100
)

// Embedder computes vectors on the client. When a Tracker has one, objects are
// stored with their own vectors and searches use nearVector instead of nearText.
type Embedder interface {
	// EmbedBatch embeds document texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery embeds a single search concept.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Options configures a Tracker.
type Options struct {
	URL      string
	Username string
	Password string
	Timeout  time.Duration

	// Certainty is the default search threshold. Nil selects DefaultCertainty.
	Certainty *float64

	// PageSize is the export page size. Zero selects DefaultPageSize.
	PageSize int

	// Embedder is optional.
	Embedder Embedder
}

// Tracker is a connection to one vector database server.
type Tracker struct {
	client    *weaviate.Client
	embedder  Embedder
	certainty float64
	pageSize  int
}

// New connects to the server described by opts. With both a username and a
// password it authenticates immediately. Otherwise reachability is only
// checked by the first call.
func New(ctx context.Context, opts Options) (*Tracker, error) {
	url := opts.URL
	if url == "" {
		url = DefaultURL
	}

	client, err := weaviate.New(ctx, weaviate.Options{
		URL:      url,
		Username: opts.Username,
		Password: opts.Password,
		Timeout:  opts.Timeout,
	})
	if err != nil {
		return nil, opError("connect to "+url, ErrConnection, err)
	}

	certainty := DefaultCertainty
	if opts.Certainty != nil {
		certainty = *opts.Certainty
	}
	if certainty < 0 || certainty > 1 {
		return nil, opError("connect to "+url, ErrQuery, fmt.Errorf("certainty %v is outside [0,1]", certainty))
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	log.Debug("Tracker ready", "url", client.BaseURL(), "authenticated", opts.Username != "" && opts.Password != "",
		"vectorizer", opts.Embedder != nil)

	return &Tracker{
		client:    client,
		embedder:  opts.Embedder,
		certainty: certainty,
		pageSize:  pageSize,
	}, nil
}

// URL returns the server address.
func (t *Tracker) URL() string {
	return t.client.BaseURL()
}

// Certainty returns the default search threshold.
func (t *Tracker) Certainty() float64 {
	return t.certainty
}

// Status summarizes the server.
type Status struct {
	Ready    bool     `json:"ready"`
	Version  string   `json:"version"`
	Hostname string   `json:"hostname"`
	Modules  []string `json:"modules"`
	Classes  []string `json:"classes"`
}

// Status reports readiness, build information and the defined classes.
func (t *Tracker) Status(ctx context.Context) (*Status, error) {
	ready, err := t.client.Ready(ctx)
	if err != nil {
		return nil, opError("status", ErrConnection, err)
	}
	if !ready {
		log.Debug("Server not ready", "url", t.URL())
	}
	status := &Status{Ready: ready}

	meta, err := t.client.Meta(ctx)
	if err != nil {
		return nil, opError("status", ErrConnection, err)
	}
	status.Version = meta.Version
	status.Hostname = meta.Hostname
	for name := range meta.Modules {
		status.Modules = append(status.Modules, name)
	}
	sort.Strings(status.Modules)

	schema, err := t.client.GetSchema(ctx)
	if err != nil {
		return nil, opError("status", ErrConnection, err)
	}
	for _, c := range schema.Classes {
		status.Classes = append(status.Classes, c.Class)
	}

	return status, nil
}

func objectRef(class, id string) string {
	return fmt.Sprintf("%s/%s", class, id)
}
