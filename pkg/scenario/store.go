package scenario

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Sentinel errors returned by Store operations.
var (
	ErrScenarioNotFound = errors.New("scenario not found")
	ErrScenarioExists   = errors.New("scenario already exists")
	ErrScenarioInvalid  = errors.New("scenario invalid")
)

// Store holds scenarios in memory and persists them as one JSON file per
// scenario under Dir (file name = scenario name + ".json", preserved as
// given — the store is permissive, not slugifying).
type Store struct {
	Dir       string
	scenarios map[string]*Scenario
}

// NewStore creates a store rooted at dir. The directory is created lazily on
// first persist; a missing directory is not an error for reads.
func NewStore(dir string) *Store {
	return &Store{
		Dir:       dir,
		scenarios: make(map[string]*Scenario),
	}
}

// Resolve maps a bare name or path to a scenario file. The candidate chain:
// the argument as a literal path, exact name match in the store directory,
// then unique prefix match. Returns false when nothing resolves — absence is
// an expected condition, not an error.
func (s *Store) Resolve(nameOrPath string) (string, bool) {
	if strings.HasSuffix(nameOrPath, ".json") {
		if _, err := os.Stat(nameOrPath); err == nil {
			return nameOrPath, true
		}
	}

	exact := filepath.Join(s.Dir, nameOrPath+".json")
	if _, err := os.Stat(exact); err == nil {
		return exact, true
	}

	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return "", false
	}
	var match string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if strings.HasPrefix(e.Name(), nameOrPath) {
			if match != "" {
				return "", false // ambiguous prefix
			}
			match = filepath.Join(s.Dir, e.Name())
		}
	}
	if match != "" {
		return match, true
	}
	return "", false
}

// Load resolves a name or path to a file, parses it, validates it, and
// caches it in the store. Optional fields are back-filled with defaults.
func (s *Store) Load(nameOrPath string) (*Scenario, error) {
	path, ok := s.Resolve(nameOrPath)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrScenarioNotFound, nameOrPath)
	}

	sc, errs := ValidateFile(path)
	if hasErrors(errs) {
		return nil, fmt.Errorf("%w: %s: %s", ErrScenarioInvalid, path, firstError(errs).Message)
	}
	s.scenarios[sc.Name] = sc
	return sc, nil
}

// LoadAll loads every *.json file in the store directory. A malformed file
// is reported on stderr and skipped; it does not abort the batch. A missing
// directory yields an empty map.
func (s *Store) LoadAll() (map[string]*Scenario, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*Scenario{}, nil
		}
		return nil, fmt.Errorf("read scenarios directory: %w", err)
	}

	out := make(map[string]*Scenario)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(s.Dir, e.Name())
		sc, errs := ValidateFile(path)
		if hasErrors(errs) {
			fmt.Fprintf(os.Stderr, "  ⚠ skipping %s: %s\n", e.Name(), firstError(errs).Message)
			continue
		}
		out[sc.Name] = sc
		s.scenarios[sc.Name] = sc
	}
	return out, nil
}

// Add registers a scenario. Fails if the name is taken or required fields
// are missing. When persist is set, the scenario is written to disk.
func (s *Store) Add(sc *Scenario, persist bool) error {
	if sc == nil {
		return fmt.Errorf("%w: nil scenario", ErrScenarioInvalid)
	}
	if _, exists := s.scenarios[sc.Name]; exists {
		return fmt.Errorf("%w: %q", ErrScenarioExists, sc.Name)
	}
	if sc.Name == "" || sc.Category == "" || sc.Description == "" || sc.Context == nil {
		return fmt.Errorf("%w: name, category, description and context are required", ErrScenarioInvalid)
	}
	sc.ApplyDefaults()
	if errs := ValidateDomain(sc); hasErrors(errs) {
		return fmt.Errorf("%w: %s", ErrScenarioInvalid, firstError(errs).Message)
	}

	s.scenarios[sc.Name] = sc
	if persist {
		return s.save(sc)
	}
	return nil
}

// Update applies partial fields to a stored scenario via a JSON merge and
// persists the result. Unknown fields are rejected.
func (s *Store) Update(name string, fields map[string]any) error {
	sc, ok := s.scenarios[name]
	if !ok {
		if _, err := s.Load(name); err != nil {
			return err
		}
		sc = s.scenarios[name]
	}

	current, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("marshal scenario: %w", err)
	}
	var merged map[string]any
	if err := json.Unmarshal(current, &merged); err != nil {
		return fmt.Errorf("unmarshal scenario: %w", err)
	}
	for k, v := range fields {
		merged[k] = v
	}
	data, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("marshal merged scenario: %w", err)
	}

	updated, err := decodeStrict(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrScenarioInvalid, err)
	}
	updated.ApplyDefaults()
	if errs := ValidateDomain(updated); hasErrors(errs) {
		return fmt.Errorf("%w: %s", ErrScenarioInvalid, firstError(errs).Message)
	}

	if updated.Name != name {
		// Renames move the backing file.
		if err := s.Delete(name); err != nil {
			return err
		}
	}
	s.scenarios[updated.Name] = updated
	return s.save(updated)
}

// Delete removes a scenario from the store and its file from disk.
func (s *Store) Delete(name string) error {
	if _, ok := s.scenarios[name]; !ok {
		return fmt.Errorf("%w: %q", ErrScenarioNotFound, name)
	}
	delete(s.scenarios, name)
	path := filepath.Join(s.Dir, name+".json")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove scenario file: %w", err)
	}
	return nil
}

// Get returns a scenario from the in-memory map.
func (s *Store) Get(name string) (*Scenario, bool) {
	sc, ok := s.scenarios[name]
	return sc, ok
}

// Filter selects scenarios by category, tag, and priority. Empty criteria
// match everything.
type Filter struct {
	Category string
	Tag      string
	Priority string
}

// Filter returns all stored scenarios matching f, sorted by name.
func (s *Store) Filter(f Filter) []*Scenario {
	var out []*Scenario
	for _, sc := range s.scenarios {
		if f.Category != "" && !strings.EqualFold(sc.Category, f.Category) {
			continue
		}
		if f.Priority != "" && !strings.EqualFold(sc.Priority, f.Priority) {
			continue
		}
		if f.Tag != "" && !sc.HasTag(f.Tag) {
			continue
		}
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Random returns a random scenario matching f, or nil when none match.
func (s *Store) Random(f Filter) *Scenario {
	matches := s.Filter(f)
	if len(matches) == 0 {
		return nil
	}
	return matches[rand.Intn(len(matches))]
}

// AddTestResult appends a run record to a scenario's history and persists.
// The history is the only field mutated after creation.
func (s *Store) AddTestResult(name string, entry HistoryEntry) error {
	sc, ok := s.scenarios[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrScenarioNotFound, name)
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	sc.TestHistory = append(sc.TestHistory, entry)
	return s.save(sc)
}

// GenerateDefaults populates an empty store with the built-in scenario set
// and returns how many were created. On a non-empty store it is a no-op and
// returns 0, so repeated invocations are idempotent.
func (s *Store) GenerateDefaults() (int, error) {
	existing, err := s.LoadAll()
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 || len(s.scenarios) > 0 {
		return 0, nil
	}

	count := 0
	for _, sc := range DefaultScenarios() {
		if err := s.Add(sc, true); err != nil {
			return count, fmt.Errorf("add default %q: %w", sc.Name, err)
		}
		count++
	}
	return count, nil
}

// save writes one scenario to its JSON file, creating the directory first.
func (s *Store) save(sc *Scenario) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create scenarios directory: %w", err)
	}
	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal scenario: %w", err)
	}
	path := filepath.Join(s.Dir, sc.Name+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write scenario file: %w", err)
	}
	return nil
}

// decodeStrict parses a scenario rejecting unknown fields.
func decodeStrict(data []byte) (*Scenario, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		return nil, err
	}
	return &sc, nil
}
