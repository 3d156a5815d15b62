// Package version parses the loose version strings found in mod metadata and
// answers the one question the rest of the system asks of them: does this
// installed version satisfy that requirement?
//
// Mod versions are rarely semantic versions. A single string often carries
// the game version, the loader name and the mod's own version
// ("1.20.1-forge-47.1.3", "0.5.1a+mc1.19"), so a Version is an ordered list of
// numeric parts rather than a major/minor/patch triple. Pre-release words are
// mapped onto numbers (alpha < beta < pre/rc/snapshot < release), which orders
// qualified versions among themselves. A missing part counts as 0, so a bare
// "1.0" sorts below "1.0-beta"; only "1.0-release" ranks above the
// pre-releases.
package version

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrBadVersion is returned when no numeric part can be extracted from a string.
var ErrBadVersion = errors.New("invalid version string")

// Version is a parsed, comparable version. The zero value is the wildcard
// version "*", which compares equal to everything.
type Version struct {
	raw   string
	parts [][]uint64
}

var (
	wordPart      = regexp.MustCompile(`^[0-9]*[a-z]+[0-9a-z]*$`)
	dottedPart    = regexp.MustCompile(`^[a-z0-9.]+$`)
	dottedWord    = regexp.MustCompile(`[a-z]+\.+`)
	letterSuffix  = regexp.MustCompile(`([0-9])([a-z])`)
	strayLetters  = regexp.MustCompile(`[a-z]+`)
	qualifierRepl = strings.NewReplacer(
		"alpha", "0",
		"beta", "1",
		"pre-release", "2",
		"pre", "2",
		"rc", "2",
		"snapshot", "2",
		"release", "3",
		"+", "-",
		"_", "-",
		":", "-",
	)
)

// Any is the wildcard version.
var Any = Version{raw: "*"}

// Parse converts raw into a Version.
func Parse(raw string) (Version, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "*" {
		return Any, nil
	}

	text := qualifierRepl.Replace(strings.ToLower(trimmed))

	var parts [][]uint64
	for _, candidate := range strings.Split(text, "-") {
		if candidate == "" || wordPart.MatchString(candidate) {
			// loader names and commit refs carry no ordering information
			continue
		}
		if !dottedPart.MatchString(candidate) {
			continue
		}
		candidate = dottedWord.ReplaceAllString(candidate, "")
		candidate = letterSuffix.ReplaceAllStringFunc(candidate, func(m string) string {
			return fmt.Sprintf("%c.%d", m[0], m[1]-'a'+1)
		})
		candidate = strayLetters.ReplaceAllString(candidate, "")

		var comps []uint64
		for _, c := range strings.Split(candidate, ".") {
			if c == "" {
				continue
			}
			n, err := strconv.ParseUint(c, 10, 64)
			if err != nil {
				return Version{}, fmt.Errorf("%w: %q: %v", ErrBadVersion, raw, err)
			}
			comps = append(comps, n)
		}
		if len(comps) > 0 {
			parts = append(parts, comps)
		}
	}

	if len(parts) == 0 {
		return Version{}, fmt.Errorf("%w: %q", ErrBadVersion, raw)
	}
	return Version{raw: trimmed, parts: parts}, nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(raw string) Version {
	v, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// IsAny reports whether v is the wildcard version.
func (v Version) IsAny() bool {
	return len(v.parts) == 0
}

// Raw returns the string v was parsed from.
func (v Version) Raw() string {
	if v.IsAny() {
		return "*"
	}
	return v.raw
}

// String renders the normalized numeric form, parts joined by '-'.
func (v Version) String() string {
	if v.IsAny() {
		return "*"
	}
	segs := make([]string, len(v.parts))
	for i, p := range v.parts {
		nums := make([]string, len(p))
		for j, n := range p {
			nums[j] = strconv.FormatUint(n, 10)
		}
		segs[i] = strings.Join(nums, ".")
	}
	return strings.Join(segs, "-")
}

// Compare returns -1, 0 or 1 as a is less than, equal to or greater than b.
// Missing parts and components count as zero, so "1.2" equals "1.2.0".
// The wildcard compares equal to every version.
func Compare(a, b Version) int {
	if a.IsAny() || b.IsAny() {
		return 0
	}
	n := max(len(a.parts), len(b.parts))
	for i := 0; i < n; i++ {
		if c := comparePart(partAt(a.parts, i), partAt(b.parts, i)); c != 0 {
			return c
		}
	}
	return 0
}

func partAt(parts [][]uint64, i int) []uint64 {
	if i < len(parts) {
		return parts[i]
	}
	return nil
}

func comparePart(a, b []uint64) int {
	n := max(len(a), len(b))
	for i := 0; i < n; i++ {
		var x, y uint64
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	return 0
}

// semverString returns the leading major.minor.patch of v, for evaluating
// semver constraints.
func (v Version) semverString() string {
	if v.IsAny() {
		return "0.0.0"
	}
	first := v.parts[0]
	nums := make([]string, 3)
	for i := range nums {
		var n uint64
		if i < len(first) {
			n = first[i]
		}
		nums[i] = strconv.FormatUint(n, 10)
	}
	return strings.Join(nums, ".")
}
