package cache

import (
	"fmt"

	"github.com/Shift-AC/spreadsheet-plotter/opseq"
	"github.com/Shift-AC/spreadsheet-plotter/storage"
	"github.com/Shift-AC/spreadsheet-plotter/tree"
)

// LineageMismatchError reports an attempt to reuse a cache entry recorded
// against a different original source.
type LineageMismatchError struct {
	Want storage.Lineage
	Got  storage.Lineage
}

func (e *LineageMismatchError) Error() string {
	return fmt.Sprintf("cache lineage %s does not match request lineage %s",
		e.Got, e.Want)
}

// Resolution is the outcome of matching a requested sequence against the
// store. Skip is the number of leading operators already accounted for by
// the entry; zero means recompute from the original source.
type Resolution struct {
	Entry *storage.Entry
	Key   string
	Skip  int
}

// Resolver finds the stored entry whose key is the longest prefix of a
// requested sequence's dump-stripped form. Keys are indexed in a red-black
// tree so the search is a Floor walk rather than a linear scan.
type Resolver struct {
	store   *Store
	lineage storage.Lineage
	index   *tree.RbTree
}

func NewResolver(store *Store, lineage storage.Lineage) (*Resolver, error) {
	keys, err := store.Keys()
	if err != nil {
		return nil, err
	}
	index := tree.NewRbTree()
	for _, key := range keys {
		if key == "" {
			// an empty prefix names the unprocessed source table;
			// it never beats recomputing from the source itself
			continue
		}
		index.Insert(key, nil)
	}
	return &Resolver{
		store:   store,
		lineage: lineage,
		index:   index,
	}, nil
}

// longestPrefix returns the longest indexed key that is a prefix of s.
// Any key that is a prefix of s sorts <= s, so Floor either lands on the
// answer or on a key sharing some shorter prefix with s; trimming s to that
// shared prefix and retrying converges in at most len(s) steps.
func (r *Resolver) longestPrefix(s string) (string, bool) {
	candidate := s
	for len(candidate) > 0 {
		key, _, found := r.index.Floor(candidate)
		if !found {
			return "", false
		}
		if len(key) <= len(candidate) && candidate[:len(key)] == key {
			return key, true
		}
		common := commonPrefixLen(candidate, key)
		if common == 0 {
			return "", false
		}
		candidate = candidate[:common]
	}
	return "", false
}

func commonPrefixLen(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

// longestAligned finds the longest indexed key that is a prefix of search
// and lands on an operator boundary per align. A key can be a string prefix
// while splitting an operator token ("d2" against request "d20"); such a
// key is useless, so the search continues below it with a shorter
// candidate until an aligned key is found or the candidates run out.
func (r *Resolver) longestAligned(search string, align func(key string) (int, bool)) (string, int, bool) {
	candidate := search
	for len(candidate) > 0 {
		key, found := r.longestPrefix(candidate)
		if !found {
			return "", 0, false
		}
		if skipTo, ok := align(key); ok {
			return key, skipTo, true
		}
		candidate = key[:len(key)-1]
	}
	return "", 0, false
}

func (r *Resolver) resolution(key string, skipTo int) (*Resolution, error) {
	entry, err := r.store.Get(key)
	if err != nil {
		return nil, err
	}
	if !entry.Header.Lineage.Equal(r.lineage) {
		return nil, &LineageMismatchError{Want: r.lineage, Got: entry.Header.Lineage}
	}
	return &Resolution{
		Entry: entry,
		Key:   key,
		Skip:  skipTo + 1,
	}, nil
}

// Resolve finds the best reusable entry for seq. No aligned key means no
// match: the caller recomputes from the original source.
//
// Ties are impossible at the key level: one key holds exactly one entry and
// a later write supersedes the earlier one, so "most recently written wins"
// is enforced by the store, not the search.
func (r *Resolver) Resolve(seq *opseq.Seq) (*Resolution, error) {
	key, skipTo, found := r.longestAligned(seq.Stripped(), seq.SkipIndex)
	if !found {
		return &Resolution{}, nil
	}
	return r.resolution(key, skipTo)
}

// ResolveFrom matches a sequence whose input table already embodies the
// operators spelled by consumed. Stored keys always carry the full prefix
// from the original source, so the search runs over consumed plus the
// request's stripped form, and only entries strictly extending consumed can
// save any work.
func (r *Resolver) ResolveFrom(consumed string, seq *opseq.Seq) (*Resolution, error) {
	align := func(key string) (int, bool) {
		if len(key) <= len(consumed) || key[:len(consumed)] != consumed {
			return 0, false
		}
		return seq.SkipIndex(key[len(consumed):])
	}
	key, skipTo, found := r.longestAligned(consumed+seq.Stripped(), align)
	if !found {
		return &Resolution{}, nil
	}
	return r.resolution(key, skipTo)
}
