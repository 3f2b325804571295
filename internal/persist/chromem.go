package persist

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/governd/internal/memorygate"
	"github.com/fyrsmithlabs/governd/internal/sanitize"
)

// ChromemConfig holds configuration for the chromem-go embedded store.
type ChromemConfig struct {
	// Path is the directory for persistent storage.
	// Default: "~/.config/governd/memorystore"
	Path string

	// Compress enables gzip compression for stored data.
	Compress bool
}

// ApplyDefaults sets default values for unset fields.
func (c *ChromemConfig) ApplyDefaults() {
	if c.Path == "" {
		c.Path = "~/.config/governd/memorystore"
	}
}

// ChromemSink persists validated memory entries to a chromem-go embedded
// database, one collection per proposed destination.
//
// chromem-go is pure Go with no external service dependency, which suits a
// governance core that must not block on I/O to remote systems. Entries are
// stored as documents whose metadata carries the validation provenance.
type ChromemSink struct {
	db     *chromem.DB
	embed  chromem.EmbeddingFunc
	logger *zap.Logger
}

// ChromemOption configures a ChromemSink.
type ChromemOption func(*ChromemSink)

// WithEmbeddingFunc sets the embedding function used for stored entries.
// When unset, chromem's default (OpenAI via environment) applies.
func WithEmbeddingFunc(f chromem.EmbeddingFunc) ChromemOption {
	return func(s *ChromemSink) {
		s.embed = f
	}
}

// NewChromemSink creates a persistent sink at the configured path.
func NewChromemSink(cfg ChromemConfig, logger *zap.Logger, opts ...ChromemOption) (*ChromemSink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg.ApplyDefaults()

	path, err := expandPath(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("expanding path: %w", err)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", path, err)
	}

	db, err := chromem.NewPersistentDB(path, cfg.Compress)
	if err != nil {
		return nil, fmt.Errorf("creating chromem DB: %w", err)
	}

	s := &ChromemSink{
		db:     db,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	logger.Info("chromem sink initialized",
		zap.String("path", path),
		zap.Bool("compress", cfg.Compress))

	return s, nil
}

// Persist writes the entry to the collection derived from its destination.
func (s *ChromemSink) Persist(ctx context.Context, entry *memorygate.MemoryEntry) error {
	if entry == nil {
		return memorygate.ErrInvalidEntry
	}

	name := sanitize.DestinationCollection(entry.Destination.Scope, entry.Destination.Location)

	collection, err := s.db.GetOrCreateCollection(name, nil, s.embed)
	if err != nil {
		return fmt.Errorf("getting/creating collection %s: %w", name, err)
	}

	doc := chromem.Document{
		ID:      entry.ID,
		Content: entry.Content,
		Metadata: map[string]string{
			"kind":           string(entry.Kind),
			"scope":          entry.Destination.Scope,
			"location":       entry.Destination.Location,
			"source_meeting": entry.SourceMeetingID,
			"validated_by":   entry.ValidatedBy,
		},
	}
	if entry.ValidatedAt != nil {
		doc.Metadata["validated_at"] = entry.ValidatedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}

	if err := collection.AddDocuments(ctx, []chromem.Document{doc}, 1); err != nil {
		return fmt.Errorf("adding document to %s: %w", name, err)
	}

	s.logger.Debug("persisted memory entry",
		zap.String("entry_id", entry.ID),
		zap.String("collection", name))

	return nil
}

// expandPath expands a leading ~ to the home directory.
func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}
