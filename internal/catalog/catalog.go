package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lgrbic/progressor/internal/progression"

	log "github.com/sirupsen/logrus"
)

var ErrProgramNotFound = errors.New("program not found")

// Catalog is the in-memory registry of program definitions, loaded once at
// startup from a directory of JSON documents and immutable afterwards.
type Catalog struct {
	programs map[string]*progression.Definition
	ids      []string
}

// Load reads every *.json document in dir, decodes it strictly and
// validates it. A single bad document fails the whole load.
func Load(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read programs dir: %w", err)
	}

	c := &Catalog{programs: make(map[string]*progression.Definition)}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read program file %s: %w", path, err)
		}
		def, err := progression.DecodeDefinition(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("program file %s: %w", entry.Name(), err)
		}
		if err := progression.ValidateDefinition(def); err != nil {
			return nil, fmt.Errorf("program file %s: %w", entry.Name(), err)
		}
		if _, ok := c.programs[def.ID]; ok {
			return nil, fmt.Errorf("program file %s: duplicate program id %s", entry.Name(), def.ID)
		}

		c.programs[def.ID] = def
		c.ids = append(c.ids, def.ID)
		log.Tracef("catalog: loaded program %s [%s], %d workouts", def.ID, def.Name, def.TotalWorkouts)
	}

	if len(c.ids) == 0 {
		log.Warnf("catalog: no program definitions found in %s", dir)
	}
	sort.Strings(c.ids)

	log.Debugf("catalog: %d programs loaded from %s", len(c.ids), dir)
	return c, nil
}

// Get returns the definition registered under id.
func (c *Catalog) Get(id string) (*progression.Definition, error) {
	def, ok := c.programs[id]
	if !ok {
		return nil, ErrProgramNotFound
	}
	return def, nil
}

// IDs returns all program ids, sorted.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.ids))
	copy(ids, c.ids)
	return ids
}

// All returns all definitions ordered by program id.
func (c *Catalog) All() []*progression.Definition {
	defs := make([]*progression.Definition, 0, len(c.ids))
	for _, id := range c.ids {
		defs = append(defs, c.programs[id])
	}
	return defs
}

// Size returns the number of loaded programs.
func (c *Catalog) Size() int {
	return len(c.ids)
}
