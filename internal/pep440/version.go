// SPDX-License-Identifier: MIT

// Package pep440 implements PEP 440 version identifiers and version
// specifiers as used by Python package manifests. Versions carry epoch,
// release, pre/post/dev qualifiers and an optional local label; ordering
// follows the PEP 440 total order, which semver-style comparison cannot
// express (post and dev releases, calendar versions, epochs).
package pep440

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrInvalidVersion reports input that is not a valid PEP 440 version.
	ErrInvalidVersion = errors.New("pep440: invalid version")
	// ErrInvalidSpecifier reports input that is not a valid PEP 440 specifier.
	ErrInvalidSpecifier = errors.New("pep440: invalid specifier")
)

// Tag is a pre-release qualifier (a, b or rc) with its number.
type Tag struct {
	Label string
	N     int
}

// Version is a parsed PEP 440 version identifier.
type Version struct {
	Epoch   int
	Release []int
	Pre     *Tag
	Post    *int
	Dev     *int
	Local   string

	original string
}

// Appendix B of PEP 440, trimmed to the parts manifests actually carry.
var versionPattern = regexp.MustCompile(`(?i)^v?` +
	`(?:(?P<epoch>[0-9]+)!)?` +
	`(?P<release>[0-9]+(?:\.[0-9]+)*)` +
	`(?:[-_.]?(?P<prelabel>alpha|beta|preview|pre|rc|a|b|c)[-_.]?(?P<pren>[0-9]+)?)?` +
	`(?P<post>(?:-(?P<postn1>[0-9]+))|(?:[-_.]?(?:post|rev|r)[-_.]?(?P<postn2>[0-9]+)?))?` +
	`(?P<dev>[-_.]?dev[-_.]?(?P<devn>[0-9]+)?)?` +
	`(?:\+(?P<local>[a-z0-9]+(?:[-_.][a-z0-9]+)*))?$`)

// ParseVersion parses a version identifier, accepting the normalisation
// forms PEP 440 permits (case, leading v, alternate separators).
func ParseVersion(s string) (Version, error) {
	trimmed := strings.TrimSpace(s)
	m := versionPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}

	group := func(name string) string {
		return m[versionPattern.SubexpIndex(name)]
	}

	v := Version{original: trimmed}

	if epoch := group("epoch"); epoch != "" {
		n, err := strconv.Atoi(epoch)
		if err != nil {
			return Version{}, fmt.Errorf("%w: epoch in %q", ErrInvalidVersion, s)
		}
		v.Epoch = n
	}

	for _, part := range strings.Split(group("release"), ".") {
		n, err := strconv.Atoi(part)
		if err != nil {
			return Version{}, fmt.Errorf("%w: release segment in %q", ErrInvalidVersion, s)
		}
		v.Release = append(v.Release, n)
	}

	if label := group("prelabel"); label != "" {
		v.Pre = &Tag{Label: normalizePreLabel(label), N: atoiDefault(group("pren"))}
	}

	if group("post") != "" {
		n := atoiDefault(group("postn1"))
		if group("postn1") == "" {
			n = atoiDefault(group("postn2"))
		}
		v.Post = &n
	}

	if group("dev") != "" {
		n := atoiDefault(group("devn"))
		v.Dev = &n
	}

	if local := group("local"); local != "" {
		v.Local = normalizeLocal(local)
	}

	return v, nil
}

// MustVersion parses s and panics on error. For tests and constants.
func MustVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

func normalizePreLabel(label string) string {
	switch strings.ToLower(label) {
	case "a", "alpha":
		return "a"
	case "b", "beta":
		return "b"
	default: // c, rc, pre, preview
		return "rc"
	}
}

func normalizeLocal(local string) string {
	replacer := strings.NewReplacer("-", ".", "_", ".")
	return replacer.Replace(strings.ToLower(local))
}

func atoiDefault(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// Original returns the version text as given, surrounding space trimmed.
func (v Version) Original() string {
	if v.original != "" {
		return v.original
	}
	return v.String()
}

// String renders the canonical normalised form.
func (v Version) String() string {
	var b strings.Builder
	if v.Epoch != 0 {
		fmt.Fprintf(&b, "%d!", v.Epoch)
	}
	for i, r := range v.Release {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.Itoa(r))
	}
	if v.Pre != nil {
		b.WriteString(v.Pre.Label)
		b.WriteString(strconv.Itoa(v.Pre.N))
	}
	if v.Post != nil {
		b.WriteString(".post")
		b.WriteString(strconv.Itoa(*v.Post))
	}
	if v.Dev != nil {
		b.WriteString(".dev")
		b.WriteString(strconv.Itoa(*v.Dev))
	}
	if v.Local != "" {
		b.WriteByte('+')
		b.WriteString(v.Local)
	}
	return b.String()
}

// WithoutLocal returns the version stripped of its local label.
func (v Version) WithoutLocal() Version {
	v.Local = ""
	v.original = ""
	return v
}

// IsPrerelease reports whether the version carries a pre or dev qualifier.
func (v Version) IsPrerelease() bool {
	return v.Pre != nil || v.Dev != nil
}

// IsPostrelease reports whether the version carries a post qualifier.
func (v Version) IsPostrelease() bool {
	return v.Post != nil
}

// Compare returns -1, 0 or 1 ordering v against o per PEP 440.
func (v Version) Compare(o Version) int {
	if v.Epoch != o.Epoch {
		return cmpInt(v.Epoch, o.Epoch)
	}
	if c := cmpIntSlices(v.Release, o.Release); c != 0 {
		return c
	}

	vRank, vN := preKey(v)
	oRank, oN := preKey(o)
	if vRank != oRank {
		return cmpInt(vRank, oRank)
	}
	if vN != oN {
		return cmpInt(vN, oN)
	}

	vPost, oPost := -1, -1
	if v.Post != nil {
		vPost = *v.Post
	}
	if o.Post != nil {
		oPost = *o.Post
	}
	if vPost != oPost {
		return cmpInt(vPost, oPost)
	}

	vDev, oDev := math.MaxInt, math.MaxInt
	if v.Dev != nil {
		vDev = *v.Dev
	}
	if o.Dev != nil {
		oDev = *o.Dev
	}
	if vDev != oDev {
		return cmpInt(vDev, oDev)
	}

	return cmpLocal(v.Local, o.Local)
}

// LessThan reports whether v orders strictly before o.
func (v Version) LessThan(o Version) bool {
	return v.Compare(o) < 0
}

// Equal reports whether v and o denote the same version.
func (v Version) Equal(o Version) bool {
	return v.Compare(o) == 0
}

// preKey ranks the pre-release position: a dev-only version sorts below any
// pre-release, which sorts below the final release.
func preKey(v Version) (rank, n int) {
	if v.Pre == nil {
		if v.Post == nil && v.Dev != nil {
			return -1, 0
		}
		return 3, 0
	}
	switch v.Pre.Label {
	case "a":
		rank = 0
	case "b":
		rank = 1
	default:
		rank = 2
	}
	return rank, v.Pre.N
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// cmpIntSlices compares release tuples, padding the shorter with zeros.
func cmpIntSlices(a, b []int) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var av, bv int
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		if c := cmpInt(av, bv); c != 0 {
			return c
		}
	}
	return 0
}

type localSegment struct {
	num     int
	str     string
	numeric bool
}

func localSegments(local string) []localSegment {
	if local == "" {
		return nil
	}
	parts := strings.Split(local, ".")
	segs := make([]localSegment, 0, len(parts))
	for _, p := range parts {
		if n, err := strconv.Atoi(p); err == nil {
			segs = append(segs, localSegment{num: n, numeric: true})
			continue
		}
		segs = append(segs, localSegment{str: p})
	}
	return segs
}

// cmpLocal orders local labels: absent before present, numeric segments
// above alphanumeric ones, prefix before extension.
func cmpLocal(a, b string) int {
	if a == b {
		return 0
	}
	if a == "" {
		return -1
	}
	if b == "" {
		return 1
	}
	as, bs := localSegments(a), localSegments(b)
	n := len(as)
	if len(bs) < n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		av, bv := as[i], bs[i]
		switch {
		case av.numeric && bv.numeric:
			if c := cmpInt(av.num, bv.num); c != 0 {
				return c
			}
		case av.numeric != bv.numeric:
			if av.numeric {
				return 1
			}
			return -1
		default:
			if c := strings.Compare(av.str, bv.str); c != 0 {
				return c
			}
		}
	}
	return cmpInt(len(as), len(bs))
}
