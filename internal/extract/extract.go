// Package extract maps a source file's text to an optional structural
// descriptor: the defining entity, its outgoing navigation edges, and an
// inferred category. It makes no attempt to parse the source language; the
// heuristics in rules.go are best-effort and every descriptor-backed step is
// flagged for human review downstream.
package extract

import (
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	"flowmap/internal/types"
)

const defaultCacheSize = 2048

type cacheEntry struct {
	desc *types.Descriptor
	ok   bool
}

// Extractor caches descriptor results by content hash. Parse is a pure
// function of (path, content), so the cache can never serve a stale result.
type Extractor struct {
	cache *lru.Cache[string, cacheEntry]
}

func New() *Extractor {
	// Only errors on a non-positive size.
	cache, _ := lru.New[string, cacheEntry](defaultCacheSize)
	return &Extractor{cache: cache}
}

// Parse returns the structural descriptor for a file, or ok=false when the
// content carries no defining-entity marker. The latter is not an error:
// most files in a tracked tree are not screen definitions.
func (e *Extractor) Parse(path, content string) (*types.Descriptor, bool) {
	if e == nil || e.cache == nil {
		return Parse(path, content)
	}
	key := contentKey(path, content)
	if entry, hit := e.cache.Get(key); hit {
		return entry.desc, entry.ok
	}
	desc, ok := Parse(path, content)
	e.cache.Add(key, cacheEntry{desc: desc, ok: ok})
	return desc, ok
}

// Parse is the uncached extraction function. Identical (path, content)
// always yields an identical descriptor.
func Parse(_ string, content string) (*types.Descriptor, bool) {
	entity := matchEntity(content)
	if entity == "" {
		return nil, false
	}

	desc := &types.Descriptor{
		SourceEntity: entity,
		Category:     inferCategory(content),
	}

	seen := make(map[types.Edge]struct{})
	for _, rule := range edgeRules {
		for _, m := range rule.Pattern.FindAllStringSubmatch(content, -1) {
			edge := types.Edge{Target: m[1], Mechanism: rule.Mechanism}
			if _, dup := seen[edge]; dup {
				continue
			}
			seen[edge] = struct{}{}
			desc.Edges = append(desc.Edges, edge)
		}
	}
	return desc, true
}

func matchEntity(content string) string {
	for _, re := range entityRules {
		if m := re.FindStringSubmatch(content); m != nil {
			return m[1]
		}
	}
	return ""
}

func inferCategory(content string) types.Category {
	for _, rule := range categoryRules {
		if rule.Match(content) {
			return rule.Category
		}
	}
	// Unreachable: the cascade ends with an always-true display rule.
	return types.CategoryDisplay
}

func contentKey(path, content string) string {
	h := sha256.New()
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}
