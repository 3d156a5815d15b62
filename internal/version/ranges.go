package version

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ErrBadRange is returned when a range string matches none of the accepted syntaxes.
var ErrBadRange = errors.New("invalid version range")

// Bound is one end of an interval. A wildcard Version means unbounded.
type Bound struct {
	Version   Version
	Inclusive bool
}

// Range is either a Maven-style interval or a semver constraint.
type Range struct {
	Lower Bound
	Upper Bound

	constraint *semver.Constraints
	raw        string
}

// Ranges is a union of ranges: a version satisfies it if any member contains it.
type Ranges []Range

var (
	bareVersion = regexp.MustCompile(`^[a-zA-Z0-9\-+:_.]+$`)
	interval    = regexp.MustCompile(`[\[(][^\[\]()]*[\])]`)
)

// AnyRange accepts every version.
func AnyRange() Ranges {
	return Ranges{{Lower: Bound{Any, true}, Upper: Bound{Any, true}, raw: "*"}}
}

// Exact accepts v and nothing else.
func Exact(v Version) Ranges {
	b := Bound{Version: v, Inclusive: true}
	return Ranges{{Lower: b, Upper: b, raw: "[" + v.Raw() + "]"}}
}

// ParseRanges parses a requirement range. Accepted forms:
//
//	""  "*"                      any version
//	"1.2.3"                      exactly that version
//	"[1.0,2.0)" "(,1.5]" "[1,)"  Maven intervals; several may be listed
//	">=1.2 <2" "^1.0"            semver constraints
func ParseRanges(raw string) (Ranges, error) {
	text := strings.TrimSpace(raw)
	if text == "" || text == "*" || text == "," {
		return AnyRange(), nil
	}

	if bareVersion.MatchString(text) {
		v, err := Parse(text)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrBadRange, raw, err)
		}
		return Exact(v), nil
	}

	if matches := interval.FindAllString(text, -1); len(matches) > 0 {
		ranges := make(Ranges, 0, len(matches))
		for _, m := range matches {
			r, err := parseInterval(m)
			if err != nil {
				return nil, fmt.Errorf("%w %q: %w", ErrBadRange, raw, err)
			}
			ranges = append(ranges, r)
		}
		return ranges, nil
	}

	c, err := semver.NewConstraint(text)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrBadRange, raw, err)
	}
	return Ranges{{constraint: c, raw: text}}, nil
}

// MustParseRanges is like ParseRanges but panics on error.
func MustParseRanges(raw string) Ranges {
	r, err := ParseRanges(raw)
	if err != nil {
		panic(err)
	}
	return r
}

func parseInterval(text string) (Range, error) {
	lowerInclusive := text[0] == '['
	upperInclusive := text[len(text)-1] == ']'
	inner := text[1 : len(text)-1]

	lowerRaw, upperRaw, hasComma := strings.Cut(inner, ",")
	if !hasComma {
		upperRaw = lowerRaw
	}

	lower, err := Parse(lowerRaw)
	if err != nil {
		return Range{}, err
	}
	upper, err := Parse(upperRaw)
	if err != nil {
		return Range{}, err
	}
	return Range{
		Lower: Bound{Version: lower, Inclusive: lowerInclusive},
		Upper: Bound{Version: upper, Inclusive: upperInclusive},
		raw:   text,
	}, nil
}

// Contains reports whether v falls inside r.
func (r Range) Contains(v Version) bool {
	if r.constraint != nil {
		sv, err := semver.NewVersion(v.semverString())
		if err != nil {
			return false
		}
		return r.constraint.Check(sv)
	}

	if !r.Lower.Version.IsAny() {
		c := Compare(r.Lower.Version, v)
		if c > 0 || (c == 0 && !r.Lower.Inclusive) {
			return false
		}
	}
	if !r.Upper.Version.IsAny() {
		c := Compare(r.Upper.Version, v)
		if c < 0 || (c == 0 && !r.Upper.Inclusive) {
			return false
		}
	}
	return true
}

func (r Range) String() string {
	if r.constraint != nil {
		return r.raw
	}
	if r.Lower.Version.IsAny() && r.Upper.Version.IsAny() {
		return "*"
	}
	if r.Lower.Inclusive && r.Upper.Inclusive && r.Lower.Version.Raw() == r.Upper.Version.Raw() {
		return "[" + r.Lower.Version.Raw() + "]"
	}
	var b strings.Builder
	if r.Lower.Inclusive {
		b.WriteByte('[')
	} else {
		b.WriteByte('(')
	}
	if !r.Lower.Version.IsAny() {
		b.WriteString(r.Lower.Version.Raw())
	}
	b.WriteByte(',')
	if !r.Upper.Version.IsAny() {
		b.WriteString(r.Upper.Version.Raw())
	}
	if r.Upper.Inclusive {
		b.WriteByte(']')
	} else {
		b.WriteByte(')')
	}
	return b.String()
}

// Contains reports whether any member range contains v.
func (rs Ranges) Contains(v Version) bool {
	for _, r := range rs {
		if r.Contains(v) {
			return true
		}
	}
	return false
}

func (rs Ranges) String() string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = r.String()
	}
	return strings.Join(parts, ",")
}
