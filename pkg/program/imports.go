package program

import (
	"regexp"
	"strings"
)

// Modules the sandbox can bind, keyed by the Python import path.
var KnownModules = map[string]bool{
	"numpy":             true,
	"matplotlib.pyplot": true,
	"math":              true,
	"random":            true,
	"json":              true,
}

// DefaultAliases are always bound, whether or not the program imports them.
var DefaultAliases = map[string]string{
	"np":     "numpy",
	"plt":    "matplotlib.pyplot",
	"math":   "math",
	"random": "random",
	"json":   "json",
}

var (
	importRe     = regexp.MustCompile(`^(\s*)import\s+([A-Za-z_][\w.]*)(?:\s+as\s+([A-Za-z_]\w*))?\s*(?:#.*)?$`)
	fromImportRe = regexp.MustCompile(`^(\s*)from\s+([A-Za-z_][\w.]*)\s+import\s+([A-Za-z_]\w*)(?:\s+as\s+([A-Za-z_]\w*))?\s*(?:#.*)?$`)
)

// rewriteImports replaces recognized import lines with "pass" at the same
// indentation so line numbers survive, and collects the aliases they bind.
func rewriteImports(src string) (string, map[string]string) {
	aliases := make(map[string]string)
	lines := strings.Split(src, "\n")
	for i, line := range lines {
		trimmed := strings.TrimRight(line, "\r")
		if m := importRe.FindStringSubmatch(trimmed); m != nil {
			module, alias := m[2], m[3]
			if !KnownModules[module] {
				continue
			}
			if alias == "" {
				if strings.Contains(module, ".") {
					continue
				}
				alias = module
			}
			aliases[alias] = module
			lines[i] = m[1] + "pass"
			continue
		}
		if m := fromImportRe.FindStringSubmatch(trimmed); m != nil {
			module := m[2] + "." + m[3]
			if !KnownModules[module] {
				continue
			}
			alias := m[4]
			if alias == "" {
				alias = m[3]
			}
			aliases[alias] = module
			lines[i] = m[1] + "pass"
		}
	}
	return strings.Join(lines, "\n"), aliases
}
