package faq

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is the on-disk FAQ document for one tenant.
type File struct {
	TenantID string  `yaml:"tenant_id"`
	Entries  []Entry `yaml:"entries"`
}

// LoadFile reads and validates a tenant FAQ YAML file.
func LoadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("faq: open %s: %w", path, err)
	}
	defer f.Close()
	ff, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("faq: %s: %w", path, err)
	}
	return ff, nil
}

// LoadFromReader parses FAQ YAML from an [io.Reader]. The reader is consumed
// entirely; the caller is responsible for closing it.
func LoadFromReader(r io.Reader) (*File, error) {
	var ff File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true) // reject unknown keys to catch typos
	if err := dec.Decode(&ff); err != nil {
		return nil, fmt.Errorf("faq: decode yaml: %w", err)
	}
	if err := validate(&ff); err != nil {
		return nil, err
	}
	return &ff, nil
}

func validate(ff *File) error {
	var errs []error
	if strings.TrimSpace(ff.TenantID) == "" {
		errs = append(errs, errors.New("faq: tenant_id is required"))
	}
	seen := make(map[string]struct{}, len(ff.Entries))
	for i, e := range ff.Entries {
		if strings.TrimSpace(e.ID) == "" {
			errs = append(errs, fmt.Errorf("faq: entry %d: id is required", i))
			continue
		}
		if _, dup := seen[e.ID]; dup {
			errs = append(errs, fmt.Errorf("faq: entry %q: duplicate id", e.ID))
		}
		seen[e.ID] = struct{}{}
		if strings.TrimSpace(e.Question) == "" {
			errs = append(errs, fmt.Errorf("faq: entry %q: question is required", e.ID))
		}
		if strings.TrimSpace(e.Answer) == "" {
			errs = append(errs, fmt.Errorf("faq: entry %q: answer is required", e.ID))
		}
	}
	return errors.Join(errs...)
}

// LoadDir loads every *.yaml file under dir and returns entries keyed by
// tenant ID, ready for [NewLexical].
func LoadDir(dir string) (map[string][]Entry, error) {
	glob, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("faq: read dir %s: %w", dir, err)
	}
	out := make(map[string][]Entry)
	for _, de := range glob {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".yaml") {
			continue
		}
		ff, err := LoadFile(dir + "/" + de.Name())
		if err != nil {
			return nil, err
		}
		out[ff.TenantID] = append(out[ff.TenantID], ff.Entries...)
	}
	return out, nil
}
