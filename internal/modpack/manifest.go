package modpack

import (
	"bufio"
	"regexp"
	"strings"
)

// manifest holds the main attributes of a MANIFEST.MF.
type manifest map[string]string

func parseManifest(text string) manifest {
	m := make(manifest)
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		// Continuation lines and section separators.
		if line == "" || strings.HasPrefix(line, " ") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if _, seen := m[key]; !seen {
			m[key] = strings.TrimSpace(value)
		}
	}
	return m
}

var placeholder = regexp.MustCompile(`\$\{([^}]+)\}`)

// jarVersionKeys are tried in order for ${file.jarVersion}.
var jarVersionKeys = []string{"Implementation-Version", "Specification-Version", "Manifest-Version"}

// constantPlaceholders resolve to fixed values.
var constantPlaceholders = map[string]string{
	"forge_version_range":     "*",
	"minecraft_version_range": "*",
}

// expand replaces known ${...} placeholders in s. Unknown placeholders are left
// verbatim. A known placeholder that cannot be resolved is returned in missing.
func (m manifest) expand(s string) (out string, missing []string) {
	out = placeholder.ReplaceAllStringFunc(s, func(match string) string {
		name := placeholder.FindStringSubmatch(match)[1]
		if v, ok := constantPlaceholders[name]; ok {
			return v
		}
		if name != "file.jarVersion" {
			return match
		}
		for _, key := range jarVersionKeys {
			if v := m[key]; v != "" {
				return v
			}
		}
		missing = append(missing, match)
		return match
	})
	return out, missing
}
