// Package search maintains an in-memory fuzzy/prefix index over task text
// fields. The index is patched synchronously as part of the same mutation
// that changes the store, never lazily, so it can never serve stale
// results.
package search

import (
	"sort"
	"strings"
	"sync"

	"github.com/farazpawle/agent-flow-sub001/internal/domain"
	"github.com/sahilm/fuzzy"
)

// Field weights: name matches outrank description matches, which outrank
// the remaining text fields.
const (
	weightName        = 3
	weightDescription = 2
	weightBody        = 1
)

// Scope selects which slice of the index a query runs against.
type Scope int

const (
	// ScopeHot covers tasks currently in the active store.
	ScopeHot Scope = iota
	// ScopeArchived covers tasks moved to cold storage. Archived tasks
	// remain findable by query, just not by default listing.
	ScopeArchived
	// ScopeAll covers both.
	ScopeAll
)

// Match is one ranked query result.
type Match struct {
	TaskID string
	Score  int
	// Bucket is the archive bucket holding the task, or empty for hot
	// tasks.
	Bucket string
}

type document struct {
	id     string
	name   string
	body   []string // description, notes, implementation guide, summary
	bucket string   // "" = hot
}

// Index is the fuzzy search index over task content.
type Index struct {
	mu   sync.RWMutex
	docs map[string]*document
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{docs: make(map[string]*document)}
}

// Upsert adds or refreshes a hot-scope entry for the task.
func (ix *Index) Upsert(t *domain.Task) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.docs[t.ID] = docFor(t, "")
}

// Remove drops the task from the index entirely.
func (ix *Index) Remove(id string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.docs, id)
}

// MoveToArchive reclassifies a task into the archived scope under the
// given bucket, keeping it queryable through the archived search path.
func (ix *Index) MoveToArchive(t *domain.Task, bucket string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.docs[t.ID] = docFor(t, bucket)
}

// Lookup resolves an exact ID, bypassing fuzzy matching.
func (ix *Index) Lookup(id string) (Match, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	d, ok := ix.docs[id]
	if !ok {
		return Match{}, false
	}
	return Match{TaskID: d.id, Bucket: d.bucket}, true
}

// Query returns task IDs ranked by relevance for a free-text query,
// tolerating small typos and prefix-only fragments. An empty query matches
// nothing.
func (ix *Index) Query(text string, scope Scope) []Match {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	scores := make(map[string]int)
	ids := make([]string, 0, len(ix.docs))
	for _, d := range ix.docs {
		if inScope(d, scope) {
			ids = append(ids, d.id)
		}
	}
	sort.Strings(ids)

	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = ix.docs[id].name
	}

	for _, m := range fuzzy.Find(text, names) {
		scores[ids[m.Index]] += (clampScore(m.Score) + 1) * weightName
	}

	// Body fields, weighted lower. Each field scored separately so a task
	// matching in several fields accumulates relevance.
	for fieldIdx := 0; fieldIdx < 4; fieldIdx++ {
		field := make([]string, len(ids))
		for i, id := range ids {
			field[i] = ix.docs[id].body[fieldIdx]
		}
		weight := weightBody
		if fieldIdx == 0 {
			weight = weightDescription
		}
		for _, m := range fuzzy.Find(text, field) {
			scores[ids[m.Index]] += (clampScore(m.Score) + 1) * weight
		}
	}

	out := make([]Match, 0, len(scores))
	for id, score := range scores {
		out = append(out, Match{TaskID: id, Score: score, Bucket: ix.docs[id].bucket})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].TaskID < out[j].TaskID
	})
	return out
}

// clampScore floors the fuzzy score at zero so heavily penalized matches
// still contribute a positive weighted hit.
func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	return s
}

func inScope(d *document, scope Scope) bool {
	switch scope {
	case ScopeHot:
		return d.bucket == ""
	case ScopeArchived:
		return d.bucket != ""
	default:
		return true
	}
}

func docFor(t *domain.Task, bucket string) *document {
	return &document{
		id:     t.ID,
		name:   t.Name,
		body:   []string{t.Description, t.Notes, t.ImplementationGuide, t.Summary},
		bucket: bucket,
	}
}
