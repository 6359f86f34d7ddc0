package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Emitter serializes reports under a reports directory. Each emission is
// timestamped and never overwrites a previous one. On a failed write it
// retries once in the current working directory; persistence failures are
// returned but must be treated as non-fatal by callers.
type Emitter struct {
	ReportsDir string

	// Now is injectable for deterministic file names in tests.
	Now func() time.Time
}

// NewEmitter creates an emitter rooted at dir.
func NewEmitter(dir string) *Emitter {
	return &Emitter{ReportsDir: dir, Now: time.Now}
}

// WriteCompliance writes compliance_report_<timestamp>.json plus the
// parallel .html and .md renderings. Returns the JSON path.
func (e *Emitter) WriteCompliance(rep ComplianceReport) (string, error) {
	return e.write("compliance_report", rep, complianceHTML(rep), complianceMarkdown(rep))
}

// WriteDiagnostics writes diagnostics_report_<timestamp>.json plus the
// parallel .html and .md renderings. Returns the JSON path.
func (e *Emitter) WriteDiagnostics(rep DiagnosticsReport) (string, error) {
	return e.write("diagnostics_report", rep, diagnosticsHTML(rep), diagnosticsMarkdown(rep))
}

func (e *Emitter) write(prefix string, rep any, html, md []byte) (string, error) {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", prefix, err)
	}

	stamp := e.Now().Format("20060102_150405")
	base := fmt.Sprintf("%s_%s", prefix, stamp)

	dir := e.ReportsDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		// Fallback: current working directory.
		fmt.Fprintf(os.Stderr, "  ⚠ create %s: %v — writing to current directory\n", dir, err)
		dir = "."
	}

	jsonPath := filepath.Join(dir, base+".json")
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", jsonPath, err)
	}
	if err := os.WriteFile(filepath.Join(dir, base+".html"), html, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "  ⚠ write html report: %v\n", err)
	}
	if err := os.WriteFile(filepath.Join(dir, base+".md"), md, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "  ⚠ write markdown report: %v\n", err)
	}
	return jsonPath, nil
}

// Latest returns the newest report file with the given prefix and
// extension, or "" when none exist.
func Latest(dir, prefix, ext string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), prefix) && strings.HasSuffix(e.Name(), ext) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return ""
	}
	// Timestamped names sort chronologically.
	sort.Strings(names)
	return filepath.Join(dir, names[len(names)-1])
}
