// Package knowledge loads the admin-editable markdown knowledge base and
// answers lookups from an in-memory full-text index.
package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/blugelabs/bluge"
)

// Base holds every knowledge-base section plus a bluge index over them.
type Base struct {
	sections map[string]string
	writer   *bluge.Writer
	log      *slog.Logger
}

// Load reads every *.md file under dir and indexes it. A missing or empty
// directory is not an error; lookups then return the fallback notice.
func Load(dir string, log *slog.Logger) (*Base, error) {
	b := &Base{sections: map[string]string{}, log: log}

	paths, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			log.Warn("Could not read knowledge-base file", "path", path, "error", err)
			continue
		}
		name := strings.TrimSuffix(filepath.Base(path), ".md")
		b.sections[name] = string(content)
	}
	log.Info(fmt.Sprintf("Loaded %d knowledge-base file(s)", len(b.sections)), "dir", dir)

	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge index: %w", err)
	}
	b.writer = writer

	batch := bluge.NewBatch()
	for name, content := range b.sections {
		doc := bluge.NewDocument(name).
			AddField(bluge.NewTextField("content", content).StoreValue()).
			AddField(bluge.NewStoredOnlyField("name", []byte(name)))
		batch.Update(doc.ID(), doc)
	}
	if err := writer.Batch(batch); err != nil {
		return nil, fmt.Errorf("failed to index knowledge base: %w", err)
	}
	return b, nil
}

// Lookup returns the best matching sections for a free-text query as one
// markdown snippet.
func (b *Base) Lookup(ctx context.Context, query string) (string, error) {
	if len(b.sections) == 0 {
		return "(No knowledge-base content available.)", nil
	}
	reader, err := b.writer.Reader()
	if err != nil {
		return "", err
	}
	defer func() { _ = reader.Close() }()

	search := bluge.NewTopNSearch(2, bluge.NewMatchQuery(query).SetField("content"))
	iter, err := reader.Search(ctx, search)
	if err != nil {
		return "", err
	}

	var parts []string
	match, err := iter.Next()
	for err == nil && match != nil {
		var name string
		if visitErr := match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "name" {
				name = string(value)
			}
			return true
		}); visitErr != nil {
			return "", visitErr
		}
		if content, ok := b.sections[name]; ok {
			parts = append(parts, sectionHeader(name)+"\n\n"+content)
		}
		match, err = iter.Next()
	}
	if err != nil {
		return "", err
	}
	if len(parts) == 0 {
		return b.All(), nil
	}
	return strings.Join(parts, "\n\n---\n\n"), nil
}

// All returns every section concatenated with headers, in name order.
func (b *Base) All() string {
	if len(b.sections) == 0 {
		return "(No knowledge-base content available.)"
	}
	names := make([]string, 0, len(b.sections))
	for name := range b.sections {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, sectionHeader(name)+"\n\n"+b.sections[name])
	}
	return strings.Join(parts, "\n\n---\n\n")
}

func (b *Base) Close() error {
	if b.writer == nil {
		return nil
	}
	return b.writer.Close()
}

func sectionHeader(name string) string {
	return "### " + strings.ToUpper(strings.ReplaceAll(name, "-", " "))
}
