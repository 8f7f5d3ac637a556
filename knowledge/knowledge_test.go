package knowledge

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

var testLog = logs.GetLoggerFromLevel(slog.LevelError)

func writeKB(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".md"), []byte(content), 0o644))
	}
	return dir
}

func TestBase_LookupFindsRelevantSection(t *testing.T) {
	req := require.New(t)
	dir := writeKB(t, map[string]string{
		"fees":     "The indoor playgroup costs CHF 130 per month for one weekly day. The registration fee is CHF 80.",
		"schedule": "Indoor runs monday, wednesday and thursday mornings. The forest group meets monday only.",
		"team":     "The playgroup is led by experienced staff.",
	})
	base, err := Load(dir, testLog)
	req.NoError(err)
	defer func() { _ = base.Close() }()

	snippet, err := base.Lookup(context.Background(), "how much does the playgroup cost per month")
	req.NoError(err)
	req.Contains(snippet, "CHF 130")
	req.Contains(snippet, "### FEES")
}

func TestBase_LookupWithoutMatchFallsBackToAll(t *testing.T) {
	req := require.New(t)
	dir := writeKB(t, map[string]string{
		"fees": "Indoor costs CHF 130 per month.",
	})
	base, err := Load(dir, testLog)
	req.NoError(err)
	defer func() { _ = base.Close() }()

	snippet, err := base.Lookup(context.Background(), "zzzzqqqq")
	req.NoError(err)
	// No hit: the full knowledge base backs the prompt instead.
	req.Contains(snippet, "CHF 130")
}

func TestBase_EmptyDirectoryIsNotAnError(t *testing.T) {
	req := require.New(t)
	base, err := Load(t.TempDir(), testLog)
	req.NoError(err)
	defer func() { _ = base.Close() }()

	snippet, err := base.Lookup(context.Background(), "anything")
	req.NoError(err)
	req.Equal("(No knowledge-base content available.)", snippet)
	req.Equal("(No knowledge-base content available.)", base.All())
}

func TestBase_AllIsSortedByName(t *testing.T) {
	req := require.New(t)
	dir := writeKB(t, map[string]string{
		"schedule": "days",
		"fees":     "costs",
	})
	base, err := Load(dir, testLog)
	req.NoError(err)
	defer func() { _ = base.Close() }()

	all := base.All()
	req.Contains(all, "### FEES")
	req.Contains(all, "### SCHEDULE")
	req.Less(strings.Index(all, "### FEES"), strings.Index(all, "### SCHEDULE"))
}
