package content

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

//go:embed fallback.json
var fallbackJSON []byte

// Provider loads the sport programs and common phrases.
type Provider interface {
	LoadCatalog(ctx context.Context) (*Catalog, error)
}

// LoaderConfig selects where content comes from. Empty fields are skipped.
type LoaderConfig struct {
	URL     string
	Path    string
	Timeout time.Duration
}

// Loader tries the remote URL, then the local file, then the built-in dataset.
// Callers never see which source answered.
type Loader struct {
	cfg    LoaderConfig
	client *http.Client
	logger logrus.FieldLogger
}

func NewLoader(cfg LoaderConfig, logger logrus.FieldLogger) *Loader {
	if logger == nil {
		panic("Loader: logger cannot be nil")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Loader{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// LoadCatalog returns a validated catalog. It only fails when ctx is done.
func (l *Loader) LoadCatalog(ctx context.Context) (*Catalog, error) {
	if l.cfg.URL != "" {
		catalog, err := l.fetch(ctx, l.cfg.URL)
		if err == nil {
			l.logger.Printf("ContentLoader: loaded %d sports from %s", len(catalog.Sports), l.cfg.URL)
			return catalog, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		l.logger.Warnf("ContentLoader: fetch %s failed: %v", l.cfg.URL, err)
	}

	if l.cfg.Path != "" {
		catalog, err := l.readFile(l.cfg.Path)
		if err == nil {
			l.logger.Printf("ContentLoader: loaded %d sports from %s", len(catalog.Sports), l.cfg.Path)
			return catalog, nil
		}
		l.logger.Warnf("ContentLoader: read %s failed: %v", l.cfg.Path, err)
	}

	catalog, err := Fallback()
	if err != nil {
		// the embedded dataset is part of the binary; this is a build defect
		panic(fmt.Sprintf("ContentLoader: built-in dataset is invalid: %v", err))
	}
	l.logger.Printf("ContentLoader: using built-in dataset (%d sports)", len(catalog.Sports))
	return catalog, nil
}

func (l *Loader) fetch(ctx context.Context, url string) (*Catalog, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	format := FormatJSON
	if ct := resp.Header.Get("Content-Type"); strings.Contains(ct, "yaml") {
		format = FormatYAML
	} else if isYAMLPath(url) {
		format = FormatYAML
	}
	return Decode(body, format)
}

func (l *Loader) readFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	format := FormatJSON
	if isYAMLPath(path) {
		format = FormatYAML
	}
	return Decode(raw, format)
}

type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

func isYAMLPath(p string) bool {
	ext := strings.ToLower(filepath.Ext(p))
	return ext == ".yaml" || ext == ".yml"
}

// Decode parses and validates a catalog document.
func Decode(raw []byte, f Format) (*Catalog, error) {
	var catalog Catalog
	switch f {
	case FormatYAML:
		if err := yaml.Unmarshal(raw, &catalog); err != nil {
			return nil, fmt.Errorf("parsing yaml catalog: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(raw))
		if err := dec.Decode(&catalog); err != nil {
			return nil, fmt.Errorf("parsing json catalog: %w", err)
		}
	}
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return &catalog, nil
}

// Fallback returns the built-in minimal dataset.
func Fallback() (*Catalog, error) {
	return Decode(fallbackJSON, FormatJSON)
}
