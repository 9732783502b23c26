package kb

import (
	"bytes"
	_ "embed"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/amigazen/insight/internal/alert"
	"github.com/amigazen/insight/internal/errors"
)

// DataVersion is the data file layout this package reads.
const DataVersion = 1

//go:embed data/alerts.yaml
var defaultData []byte

// dataFile mirrors the YAML layout: ordered groups of ordered rows.
type dataFile struct {
	Version int         `yaml:"version"`
	Groups  []dataGroup `yaml:"groups"`
}

type dataGroup struct {
	Name   string    `yaml:"name"`
	Alerts []dataRow `yaml:"alerts"`
}

type dataRow struct {
	Code        string `yaml:"code"`
	Description string `yaml:"description"`
	Hint        string `yaml:"hint"`
}

// Parse decodes a YAML data file into rows, preserving file order.
func Parse(data []byte) ([]Entry, error) {
	var f dataFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil, fmt.Errorf("knowledge base data is empty")
		}
		return nil, fmt.Errorf("decode knowledge base: %w", err)
	}
	if f.Version != DataVersion {
		return nil, fmt.Errorf("unsupported knowledge base version %d (want %d)", f.Version, DataVersion)
	}

	var entries []Entry
	for gi, g := range f.Groups {
		for ri, row := range g.Alerts {
			code, err := alert.Parse(row.Code)
			if err != nil {
				return nil, fmt.Errorf("group %d (%q) row %d: %w", gi, g.Name, ri, err)
			}
			entries = append(entries, Entry{
				Code:        code,
				Description: row.Description,
				Hint:        row.Hint,
				Group:       g.Name,
			})
		}
	}
	return entries, nil
}

// Load reads a YAML data file from r and builds a Base.
func Load(r io.Reader, opts Options) (*Base, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read knowledge base: %w", err)
	}
	entries, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return New(entries, opts), nil
}

// LoadFile builds a Base from the YAML data file at path.
func LoadFile(path string, opts Options) (*Base, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewFileNotFound(path)
		}
		return nil, fmt.Errorf("open knowledge base: %w", err)
	}
	defer f.Close()
	return Load(f, opts)
}

var (
	defaultOnce    sync.Once
	defaultEntries []Entry
	defaultErr     error
)

// DefaultEntries returns the embedded rows. They are parsed once.
func DefaultEntries() ([]Entry, error) {
	defaultOnce.Do(func() {
		defaultEntries, defaultErr = Parse(defaultData)
	})
	if defaultErr != nil {
		return nil, defaultErr
	}
	out := make([]Entry, len(defaultEntries))
	copy(out, defaultEntries)
	return out, nil
}

// Default builds a Base over the embedded data file.
func Default(opts Options) (*Base, error) {
	entries, err := DefaultEntries()
	if err != nil {
		return nil, err
	}
	return New(entries, opts), nil
}
