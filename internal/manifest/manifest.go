package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/tagdist-cli/internal/utils"
)

const fileName = "manifest.json"

// Manifest lists every figure written for one dataset split.
type Manifest struct {
	ID        string           `json:"id"`
	Dataset   string           `json:"dataset"`
	Split     string           `json:"split"`
	Rows      int              `json:"rows"`
	Charts    map[string]Chart `json:"charts"`
	Summary   string           `json:"summary,omitempty"`
	Warnings  []string         `json:"warnings,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`

	// Not serialized: directory holding manifest.json
	rootDir string `json:"-"`
}

// Chart describes one written figure.
type Chart struct {
	Attribute string    `json:"attribute"`
	Path      string    `json:"path"`
	Format    string    `json:"format"`
	Segments  int       `json:"segments"`
	Others    bool      `json:"others"`
	WrittenAt time.Time `json:"written_at"`
}

// New constructs an in-memory manifest. Call Save to persist.
func New(dataset, split, rootDir string) *Manifest {
	now := time.Now()
	return &Manifest{
		ID:        uuid.NewString(),
		Dataset:   dataset,
		Split:     split,
		Charts:    make(map[string]Chart),
		CreatedAt: now,
		UpdatedAt: now,
		rootDir:   rootDir,
	}
}

// Load reads manifest.json from dir.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, fileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("manifest not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Charts == nil {
		m.Charts = make(map[string]Chart)
	}
	m.rootDir = dir
	return &m, nil
}

// LoadOrNew loads an existing manifest from dir, or starts a new one when
// none exists. Reruns over the same split keep the original id.
func LoadOrNew(dataset, split, dir string) (*Manifest, error) {
	m, err := Load(dir)
	if err == nil {
		m.Dataset = dataset
		m.Split = split
		return m, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return New(dataset, split, dir), nil
	}
	return nil, err
}

// RootDir returns the directory holding manifest.json.
func (m *Manifest) RootDir() string { return m.rootDir }

// AddChart records a written figure, replacing any earlier entry for the
// same attribute. path is stored relative to the manifest directory when
// possible.
func (m *Manifest) AddChart(c Chart) {
	if rel, err := filepath.Rel(m.rootDir, c.Path); err == nil && m.rootDir != "" {
		c.Path = filepath.ToSlash(rel)
	}
	if c.WrittenAt.IsZero() {
		c.WrittenAt = time.Now()
	}
	if m.Charts == nil {
		m.Charts = make(map[string]Chart)
	}
	m.Charts[c.Attribute] = c
	m.UpdatedAt = time.Now()
}

// Attributes returns the charted attributes in sorted order.
func (m *Manifest) Attributes() []string {
	out := make([]string, 0, len(m.Charts))
	for a := range m.Charts {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Save writes manifest.json using atomic write.
func (m *Manifest) Save() error {
	if m.rootDir == "" {
		return errors.New("manifest directory not set")
	}
	m.UpdatedAt = time.Now()
	data, err := utils.PrettyJSON(m)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(filepath.Join(m.rootDir, fileName), data)
}
