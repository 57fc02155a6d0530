// Package program loads candidate and solution sources and derives their
// identity and import prelude.
package program

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"

	"github.com/ormasoftchile/grader/pkg/errors"
)

// Program is a loaded source unit. It is immutable once built.
type Program struct {
	path       string
	name       string
	hash       string
	source     string
	executable string
	aliases    map[string]string
}

// Load reads a program from disk. An unreadable file is a LoadFailed error.
func Load(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.LoadFailed, "File not found: %s", path)
	}
	p := FromSource(filepath.Base(path), string(data))
	p.path = path
	return p, nil
}

// FromSource builds a program from text. name is used for diagnostics.
func FromSource(name, src string) *Program {
	sum := sha256.Sum256([]byte(src))
	exec, aliases := rewriteImports(src)
	return &Program{
		name:       name,
		hash:       hex.EncodeToString(sum[:]),
		source:     src,
		executable: exec,
		aliases:    aliases,
	}
}

// Path is the originating path, empty for in-memory programs.
func (p *Program) Path() string { return p.path }

// Name is the file base name or the name given to FromSource.
func (p *Program) Name() string { return p.name }

// Hash is the hex SHA-256 of the raw source.
func (p *Program) Hash() string { return p.hash }

// Source is the raw text as submitted.
func (p *Program) Source() string { return p.source }

// Executable is the source with recognized import lines neutralized.
func (p *Program) Executable() string { return p.executable }

// Identity is a short display identity, name@hash-prefix.
func (p *Program) Identity() string {
	return p.name + "@" + p.hash[:12]
}

// Aliases returns a copy of the alias → module map bound by import lines.
func (p *Program) Aliases() map[string]string {
	out := make(map[string]string, len(p.aliases))
	for k, v := range p.aliases {
		out[k] = v
	}
	return out
}

// AliasNames returns the bound alias names in sorted order.
func (p *Program) AliasNames() []string {
	names := make([]string, 0, len(p.aliases))
	for k := range p.aliases {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
