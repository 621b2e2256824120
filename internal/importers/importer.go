package importers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/tempohq/tempo/internal/task"
)

// ProgressFunc is called after each file is scanned.
type ProgressFunc func(scanned int, total int, currentFile string)

// Result summarizes one import run.
type Result struct {
	FilesScanned int      `json:"files_scanned"`
	Imported     int      `json:"imported"`
	Skipped      int      `json:"skipped"`
	Errors       []string `json:"errors,omitempty"`
}

// Importer turns unchecked markdown checklist items into tasks.
type Importer struct {
	tasks      task.Store
	onProgress ProgressFunc
}

func New(tasks task.Store) *Importer {
	return &Importer{tasks: tasks}
}

// SetProgressFunc sets the progress callback.
func (im *Importer) SetProgressFunc(fn ProgressFunc) {
	im.onProgress = fn
}

// Import scans every markdown file matching the given glob patterns and
// creates a task per unchecked checklist item. Checked items and items
// whose exact title is already tracked are skipped, so re-running an
// import is safe. Files that cannot be read are recorded in
// Result.Errors without aborting the run.
func (im *Importer) Import(ctx context.Context, patterns []string) (*Result, error) {
	files, err := ExpandGlobs(patterns)
	if err != nil {
		return nil, err
	}

	existing, err := im.existingTitles(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for i, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", file, err))
			continue
		}
		result.FilesScanned++

		for _, item := range ParseChecklist(string(content), file) {
			if item.Checked || existing[item.Title] {
				result.Skipped++
				continue
			}
			created := task.Task{
				Title:       item.Title,
				Description: fmt.Sprintf("Imported from %s", file),
				DueDate:     item.Due,
			}
			if _, err := im.tasks.CreateTask(ctx, created); err != nil {
				return result, fmt.Errorf("creating task %q: %w", item.Title, err)
			}
			existing[item.Title] = true
			result.Imported++
		}

		if im.onProgress != nil {
			im.onProgress(i+1, len(files), file)
		}
	}
	return result, nil
}

// ExpandGlobs resolves doublestar patterns into a sorted, de-duplicated
// list of markdown files. Matches that are not markdown are ignored.
func ExpandGlobs(patterns []string) ([]string, error) {
	seen := map[string]bool{}
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		for _, match := range matches {
			if seen[match] || !isMarkdown(match) {
				continue
			}
			info, err := os.Stat(match)
			if err != nil || info.IsDir() {
				continue
			}
			seen[match] = true
			files = append(files, match)
		}
	}
	sort.Strings(files)
	return files, nil
}

func isMarkdown(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".md" || ext == ".markdown"
}

// existingTitles collects the titles of all stored tasks, archived ones
// included, so an import never resurrects something already tracked.
func (im *Importer) existingTitles(ctx context.Context) (map[string]bool, error) {
	titles := map[string]bool{}
	for _, f := range []task.Filter{{}, {Status: task.StatusArchived}} {
		tasks, err := im.tasks.ListTasks(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("listing tasks: %w", err)
		}
		for _, t := range tasks {
			titles[t.Title] = true
		}
	}
	return titles, nil
}
