// File: internal/history/history.go
//
// Package history maintains the main.csv index mapping recorded task queries
// to their action folders, and gathers the parsed context those folders hold.
package history

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// reservedPrefix marks auto-assigned query names that a rename must replace,
// never set.
const reservedPrefix = "default_"

// Index reads and writes the main.csv query index under one base folder.
type Index struct {
	base   string
	logger *zap.Logger
}

// NewIndex returns an Index rooted at the given base folder.
func NewIndex(base string, logger *zap.Logger) *Index {
	return &Index{base: base, logger: logger.Named("history")}
}

func (ix *Index) mainCSVPath() string {
	return filepath.Join(ix.base, "main.csv")
}

// Append registers a new action folder under the next free auto-assigned
// query name and returns that name. The file and its header are created on
// first use.
func (ix *Index) Append(actionFolder string) (string, error) {
	path := ix.mainCSVPath()

	nextIndex := 0
	rows, err := ix.readAll()
	switch {
	case err == nil:
		highest := -1
		for _, row := range rows {
			if !strings.HasPrefix(row.Query, reservedPrefix) {
				continue
			}
			if n, err := strconv.Atoi(strings.TrimPrefix(row.Query, reservedPrefix)); err == nil && n > highest {
				highest = n
			}
		}
		nextIndex = highest + 1
	case os.IsNotExist(err):
		// First recording; the header is written below.
	default:
		return "", fmt.Errorf("history: reading %s: %w", path, err)
	}

	needsHeader := os.IsNotExist(err)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("history: opening %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if needsHeader {
		if err := w.Write([]string{"query", "location"}); err != nil {
			return "", fmt.Errorf("history: writing header: %w", err)
		}
	}
	query := fmt.Sprintf("%s%d", reservedPrefix, nextIndex)
	if err := w.Write([]string{query, actionFolder}); err != nil {
		return "", fmt.Errorf("history: appending entry: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("history: flushing %s: %w", path, err)
	}

	ix.logger.Info("Indexed new action folder",
		zap.String("query", query), zap.String("location", actionFolder))
	return query, nil
}

// Rename replaces the query name of the entry pointing at actionFolder. Empty
// names and names carrying the reserved auto-assignment prefix are rejected.
// A missing entry is logged but not an error; the recording may already have
// been renamed.
func (ix *Index) Rename(actionFolder, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return fmt.Errorf("history: new name must not be empty")
	}
	if strings.HasPrefix(newName, reservedPrefix) {
		return fmt.Errorf("history: new name must not start with the reserved prefix %q", reservedPrefix)
	}

	rows, err := ix.readAll()
	if err != nil {
		return fmt.Errorf("history: reading %s: %w", ix.mainCSVPath(), err)
	}

	updated := false
	for i := range rows {
		if rows[i].Location == actionFolder {
			rows[i].Query = newName
			updated = true
		}
	}
	if !updated {
		ix.logger.Warn("No index entry found to rename", zap.String("location", actionFolder))
		return nil
	}

	return ix.writeAll(rows)
}

// Entry is one main.csv row.
type Entry struct {
	Query    string
	Location string
}

func (ix *Index) readAll() ([]Entry, error) {
	f, err := os.Open(ix.mainCSVPath())
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	var rows []Entry
	for i, rec := range records {
		if i == 0 || len(rec) < 2 {
			// Skip the header and malformed rows.
			continue
		}
		rows = append(rows, Entry{Query: rec[0], Location: rec[1]})
	}
	return rows, nil
}

func (ix *Index) writeAll(rows []Entry) error {
	f, err := os.Create(ix.mainCSVPath())
	if err != nil {
		return fmt.Errorf("history: rewriting %s: %w", ix.mainCSVPath(), err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"query", "location"}); err != nil {
		return fmt.Errorf("history: writing header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write([]string{row.Query, row.Location}); err != nil {
			return fmt.Errorf("history: writing entry: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// Match returns the locations whose query shares at least one word with the
// instruction, by case-insensitive substring containment. Order follows the
// index file; duplicates are collapsed.
func (ix *Index) Match(instruction string) ([]string, error) {
	rows, err := ix.readAll()
	if err != nil {
		return nil, fmt.Errorf("history: reading %s: %w", ix.mainCSVPath(), err)
	}

	words := strings.Fields(strings.ToLower(instruction))
	seen := make(map[string]struct{})
	var locations []string
	for _, row := range rows {
		query := strings.ToLower(row.Query)
		for _, word := range words {
			if strings.Contains(query, word) {
				if _, dup := seen[row.Location]; !dup {
					seen[row.Location] = struct{}{}
					locations = append(locations, row.Location)
				}
				break
			}
		}
	}
	return locations, nil
}

// GatherContext concatenates every CSV file under
// <base>/encrypted_csv/<location>/ for the given locations. Unreadable files
// and missing folders are logged and skipped.
func (ix *Index) GatherContext(locations []string) string {
	var b strings.Builder
	for _, location := range locations {
		dir := filepath.Join(ix.base, "encrypted_csv", location)
		entries, err := os.ReadDir(dir)
		if err != nil {
			ix.logger.Warn("Cannot read context folder", zap.String("dir", dir), zap.Error(err))
			continue
		}

		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)

		for _, name := range names {
			path := filepath.Join(dir, name)
			content, err := os.ReadFile(path)
			if err != nil {
				ix.logger.Warn("Cannot read context file", zap.String("path", path), zap.Error(err))
				continue
			}
			fmt.Fprintf(&b, "--- Context from %s ---\n", path)
			b.Write(content)
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

// ContextFor matches the instruction against the index and gathers the
// combined context of every matching location. A missing index file is an
// error; a task runner has nothing to stand on without it.
func (ix *Index) ContextFor(instruction string) (string, error) {
	locations, err := ix.Match(instruction)
	if err != nil {
		return "", err
	}
	if len(locations) == 0 {
		return "", nil
	}
	ix.logger.Info("Matched historical action folders", zap.Strings("locations", locations))
	return ix.GatherContext(locations), nil
}
