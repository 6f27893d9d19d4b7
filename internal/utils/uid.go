package utils

import (
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"
)

// StepIDMinter creates stable step ids from entity names and resolves
// collisions. A minted id has the shape "<slug>-<hash>" (or
// "<slug>-<hash>-N" when the base collides with a reserved id).
type StepIDMinter struct {
	used    map[string]struct{}
	counter map[string]int
}

// NewStepIDMinter creates a minter with the given ids pre-reserved.
// Seed it with every id already present in the graph so new steps can
// never collide with existing ones.
func NewStepIDMinter(existing ...string) *StepIDMinter {
	m := &StepIDMinter{
		used:    make(map[string]struct{}, len(existing)+8),
		counter: make(map[string]int, len(existing)+8),
	}
	for _, id := range existing {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		m.used[id] = struct{}{}
	}
	return m
}

// Mint returns a unique id derived from name.
func (m *StepIDMinter) Mint(name string) string {
	if m == nil {
		m = NewStepIDMinter()
	}
	base := baseID(name)
	if _, taken := m.used[base]; !taken {
		m.used[base] = struct{}{}
		m.counter[base] = 1
		return base
	}
	n := m.counter[base]
	if n < 1 {
		n = 1
	}
	for {
		n++
		candidate := fmt.Sprintf("%s-%d", base, n)
		if _, taken := m.used[candidate]; taken {
			continue
		}
		m.used[candidate] = struct{}{}
		m.counter[base] = n
		return candidate
	}
}

func baseID(name string) string {
	name = strings.TrimSpace(name)
	slug := slugify(name)
	if slug == "" {
		slug = "step"
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return fmt.Sprintf("%s-%08x", slug, uint32(h.Sum64()&0xffffffff))
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	var b strings.Builder
	lastDash := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}
