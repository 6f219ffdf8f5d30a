package parquetsink

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ManifestName is written at the output root after every table of a run is
// in place. Its presence marks the run complete.
const ManifestName = "_manifest.json"

// Manifest describes the tables currently published under a root. Tables a
// run did not write are carried over from the previous manifest, so RunID
// names the latest run only; each table records the run that wrote it.
type Manifest struct {
	RunID       string       `json:"run_id"`
	Job         string       `json:"job"`
	Compression string       `json:"compression"`
	StartedAt   time.Time    `json:"started_at"`
	FinishedAt  time.Time    `json:"finished_at"`
	Tables      []TableEntry `json:"tables"`
}

// TableEntry lists the files of one table.
type TableEntry struct {
	Name        string      `json:"name"`
	RunID       string      `json:"run_id,omitempty"`
	Rows        int64       `json:"rows"`
	Columns     []string    `json:"columns"`
	PartitionBy []string    `json:"partition_by,omitempty"`
	Files       []FileEntry `json:"files"`
}

// FileEntry is one data file. Path is slash-separated and relative to the
// output root.
type FileEntry struct {
	Path  string `json:"path"`
	Rows  int64  `json:"rows"`
	Bytes int64  `json:"bytes"`
	XXH3  string `json:"xxh3"`
}

// Files returns every data file path in the manifest, in table order.
func (m *Manifest) Files() []string {
	var out []string
	for _, t := range m.Tables {
		for _, f := range t.Files {
			out = append(out, f.Path)
		}
	}
	return out
}

// Carry appends the tables of prev that m does not contain, keeping prev's
// order for them ahead of the tables m wrote. keep filters which carried
// tables are still present; nil keeps all of them.
func (m *Manifest) Carry(prev *Manifest, keep func(TableEntry) bool) {
	if prev == nil {
		return
	}
	written := make(map[string]bool, len(m.Tables))
	for _, t := range m.Tables {
		written[t.Name] = true
	}
	var carried []TableEntry
	for _, t := range prev.Tables {
		if written[t.Name] || (keep != nil && !keep(t)) {
			continue
		}
		if t.RunID == "" {
			t.RunID = prev.RunID
		}
		carried = append(carried, t)
	}
	m.Tables = append(carried, m.Tables...)
}

// ReadManifest loads the manifest under root.
func ReadManifest(root string) (*Manifest, error) {
	b, err := os.ReadFile(filepath.Join(root, ManifestName))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	return &m, nil
}

// WriteManifest writes m to root atomically.
func WriteManifest(root string, m *Manifest) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	tmp := filepath.Join(root, ManifestName+".tmp")
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(root, ManifestName))
}
