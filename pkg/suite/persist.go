package suite

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/camarero-ai/dinerbench/pkg/conversation"
)

// timestampLayout names result files: scenario name + run time + run id.
// The id keeps runs within the same second distinct — the results directory
// is an append-only audit trail and nothing in it is ever overwritten.
const timestampLayout = "20060102_150405"

// persistResult writes one TestResult as JSON immediately after it
// completes. On write failure it retries once in the current working
// directory before giving up.
func (r *Runner) persistResult(runID, name string, res *conversation.TestResult) error {
	if r.ResultsDir == "" {
		return nil
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	file := fmt.Sprintf("%s_%s_%s.json", name, res.Timestamp.Format(timestampLayout), runID[:8])
	if err := writeToDir(r.ResultsDir, file, data); err != nil {
		// Fallback: current working directory.
		if fbErr := writeToDir(".", file, data); fbErr != nil {
			return fmt.Errorf("%v (fallback: %v)", err, fbErr)
		}
		fmt.Fprintf(os.Stderr, "  ⚠ wrote %s to current directory after: %v\n", file, err)
	}
	return nil
}

// persistManifest writes the run-level manifest: scenario list, totals,
// elapsed time.
func (r *Runner) persistManifest(out *Output) error {
	if r.ResultsDir == "" {
		return nil
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	file := fmt.Sprintf("run_%s_%s.json", out.StartedAt.Format(timestampLayout), out.RunID[:8])
	return writeToDir(r.ResultsDir, file, data)
}

func writeToDir(dir, file string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	path := filepath.Join(dir, file)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// LatestManifest returns the most recent run manifest in dir, or "" when
// none exist.
func LatestManifest(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var latest string
	var latestTime time.Time
	for _, e := range entries {
		if e.IsDir() || len(e.Name()) < 4 || e.Name()[:4] != "run_" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latest = filepath.Join(dir, e.Name())
		}
	}
	return latest
}
