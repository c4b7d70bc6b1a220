// Package scripts ships the reference test corpora and parses pasted batch
// payloads into input texts. Corpora are YAML files; the banking and general
// scripts are embedded so a fresh deployment has something to run against.
package scripts

import (
	"context"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AltairaLabs/speechbench/logger"
	"github.com/AltairaLabs/speechbench/repository"
)

//go:embed corpora/*.yaml
var defaultCorpora embed.FS

// Corpus is one reference script: a named set of test phrases.
type Corpus struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Tags        string `yaml:"tags"`
	Items       []Item `yaml:"items"`
}

// Item is a single test phrase within a corpus.
type Item struct {
	ID   string `yaml:"id"`
	Text string `yaml:"text"`
	Lang string `yaml:"lang"`
	Tags string `yaml:"tags"`
}

func (c *Corpus) validate() error {
	if c.ID == "" {
		return fmt.Errorf("corpus is missing an id")
	}
	if c.Name == "" {
		return fmt.Errorf("corpus %s is missing a name", c.ID)
	}
	if len(c.Items) == 0 {
		return fmt.Errorf("corpus %s has no items", c.ID)
	}
	for i, item := range c.Items {
		if strings.TrimSpace(item.Text) == "" {
			return fmt.Errorf("corpus %s: item %d has empty text", c.ID, i)
		}
	}
	return nil
}

// fill assigns deterministic item IDs where the file omits them.
func (c *Corpus) fill() {
	for i := range c.Items {
		if c.Items[i].ID == "" {
			c.Items[i].ID = fmt.Sprintf("%s_%d", c.ID, i+1)
		}
	}
}

func parseCorpus(data []byte) (*Corpus, error) {
	var c Corpus
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse corpus: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	c.fill()
	return &c, nil
}

// LoadFile reads a single corpus YAML file.
func LoadFile(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", path, err)
	}
	c, err := parseCorpus(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// LoadDir reads all corpus files (*.yaml, *.yml) in a directory, sorted by
// filename.
func LoadDir(dir string) ([]*Corpus, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read corpus directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	corpora := make([]*Corpus, 0, len(names))
	for _, name := range names {
		c, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		corpora = append(corpora, c)
	}
	return corpora, nil
}

// Defaults returns the embedded reference corpora.
func Defaults() ([]*Corpus, error) {
	entries, err := defaultCorpora.ReadDir("corpora")
	if err != nil {
		return nil, fmt.Errorf("read embedded corpora: %w", err)
	}

	corpora := make([]*Corpus, 0, len(entries))
	for _, entry := range entries {
		data, err := defaultCorpora.ReadFile("corpora/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read embedded corpus %s: %w", entry.Name(), err)
		}
		c, err := parseCorpus(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		corpora = append(corpora, c)
	}
	return corpora, nil
}

// Seeder persists corpora; satisfied by the repository store.
type Seeder interface {
	SeedScript(ctx context.Context, script repository.Script, items []repository.ScriptItem) error
}

// Seed writes corpora into the repository. Existing scripts are left
// untouched, so seeding at every startup is safe.
func Seed(ctx context.Context, store Seeder, corpora []*Corpus) error {
	for _, c := range corpora {
		script := repository.Script{
			ID:          c.ID,
			Name:        c.Name,
			Description: c.Description,
			Tags:        c.Tags,
		}
		items := make([]repository.ScriptItem, len(c.Items))
		for i, item := range c.Items {
			items[i] = repository.ScriptItem{
				ID:       item.ID,
				ScriptID: c.ID,
				Text:     strings.TrimSpace(item.Text),
				Lang:     item.Lang,
				Tags:     item.Tags,
			}
		}
		if err := store.SeedScript(ctx, script, items); err != nil {
			return fmt.Errorf("seed script %s: %w", c.ID, err)
		}
		logger.Debug("seeded reference script", "script", c.ID, "items", len(items))
	}
	return nil
}

// SeedDefaults seeds the embedded banking and general corpora.
func SeedDefaults(ctx context.Context, store Seeder) error {
	corpora, err := Defaults()
	if err != nil {
		return err
	}
	return Seed(ctx, store, corpora)
}
