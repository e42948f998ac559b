// Package source resolves document references into trees.
//
// A reference is one of:
//
//	-                 standard input
//	http(s)://...     fetched with GET, retried on network errors and 5xx
//	store:<name|id>   a document from the library
//	anything else     a file path (.json, .yaml, .yml; others are sniffed)
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Mr-Dark-debug/jsonview/internal/database"
	"github.com/Mr-Dark-debug/jsonview/internal/tree"
)

// StorePrefix introduces a library reference.
const StorePrefix = "store:"

// MaxBodySize caps how much a single reference may read.
const MaxBodySize = 64 << 20

var (
	// ErrFetch wraps HTTP transport failures and bad statuses.
	ErrFetch = errors.New("fetch failed")
	// ErrNoStore is returned for store: references when no store is configured.
	ErrNoStore = errors.New("no document library configured")
	// ErrTooLarge is returned when a reference exceeds MaxBodySize.
	ErrTooLarge = errors.New("document too large")
)

// Options controls how references are loaded.
type Options struct {
	// Title names the group a bare array is wrapped in. Defaults to
	// tree.DefaultTitle.
	Title      string
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
	Store      database.Store
	Client     *http.Client
	Stdin      io.Reader
	Logger     *log.Logger
}

func (o Options) title() string {
	if o.Title == "" {
		return tree.DefaultTitle
	}
	return o.Title
}

func (o Options) logger() *log.Logger {
	if o.Logger == nil {
		return log.New(io.Discard)
	}
	return o.Logger
}

// Document is a loaded reference.
type Document struct {
	Ref      string
	Tree     tree.Tree
	Warnings []string
	// Ignored lists extra top-level titles that were dropped.
	Ignored  []string
	Raw      []byte
	LoadedAt time.Time
}

// Load reads and decodes ref.
func Load(ctx context.Context, ref string, opts Options) (*Document, error) {
	raw, err := Read(ctx, ref, opts)
	if err != nil {
		return nil, err
	}
	res, err := tree.DecodeBytes(raw, tree.WithTitle(opts.title()))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", ref, err)
	}
	for _, w := range res.Warnings {
		opts.logger().Warn("document degraded", "ref", ref, "detail", w)
	}
	return &Document{
		Ref:      ref,
		Tree:     res.Tree,
		Warnings: res.Warnings,
		Ignored:  res.Ignored,
		Raw:      raw,
		LoadedAt: time.Now(),
	}, nil
}

// Read returns the raw bytes behind ref without decoding them.
func Read(ctx context.Context, ref string, opts Options) ([]byte, error) {
	switch {
	case ref == "-":
		in := opts.Stdin
		if in == nil {
			in = os.Stdin
		}
		return readLimited(in, "stdin")
	case IsURL(ref):
		return fetch(ctx, ref, opts)
	case strings.HasPrefix(ref, StorePrefix):
		return fromStore(strings.TrimPrefix(ref, StorePrefix), opts)
	default:
		f, err := os.Open(ref)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", ref, err)
		}
		defer f.Close()
		return readLimited(f, ref)
	}
}

// IsURL reports whether ref is fetched over HTTP.
func IsURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// Name derives a library name from ref: the base name without extension
// for files and URLs, the key for store references, "stdin" for "-".
func Name(ref string) string {
	switch {
	case ref == "-":
		return "stdin"
	case strings.HasPrefix(ref, StorePrefix):
		return strings.TrimPrefix(ref, StorePrefix)
	case IsURL(ref):
		u, err := url.Parse(ref)
		if err != nil {
			return "download"
		}
		base := path.Base(strings.TrimRight(u.Path, "/"))
		if base == "." || base == "/" {
			return "download"
		}
		return strings.TrimSuffix(base, path.Ext(base))
	default:
		base := filepath.Base(ref)
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
}

// Supported reports whether a file name has an extension the watcher and
// the daemon pick up.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

func fromStore(key string, opts Options) ([]byte, error) {
	if opts.Store == nil {
		return nil, ErrNoStore
	}
	doc, err := opts.Store.GetDocument(key)
	if err != nil {
		return nil, err
	}
	return doc.Body, nil
}

func readLimited(r io.Reader, name string) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, MaxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	if len(b) > MaxBodySize {
		return nil, fmt.Errorf("%w: %s", ErrTooLarge, name)
	}
	return b, nil
}
