// Package search filters and ranks the library by title and author.
package search

import (
	"sort"
	"strings"

	lfuzzy "github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mmcdole/zenread/internal/domain"
	"github.com/sahilm/fuzzy"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Result is a filtered book with match metadata for highlighting
type Result struct {
	Book           domain.Book
	MatchedIndexes []int // Byte positions in the title that matched
	Score          int   // Higher is better
}

// bookIndex implements sahilm/fuzzy.Source over "title author" keys
type bookIndex struct {
	books []domain.Book
	keys  []string
}

func (idx *bookIndex) String(i int) string { return idx.keys[i] }
func (idx *bookIndex) Len() int            { return len(idx.books) }

func newBookIndex(books []domain.Book) *bookIndex {
	keys := make([]string, len(books))
	for i, b := range books {
		// ToLower keeps byte offsets of ASCII titles usable for highlighting
		keys[i] = strings.ToLower(b.Title + " " + b.Author)
	}
	return &bookIndex{books: books, keys: keys}
}

// Filter returns books matching query as you type, best match first.
// An empty query returns every book in its original order.
func Filter(query string, books []domain.Book) []Result {
	query = strings.TrimSpace(query)
	if query == "" {
		results := make([]Result, len(books))
		for i, b := range books {
			results[i] = Result{Book: b}
		}
		return results
	}

	idx := newBookIndex(books)
	matches := fuzzy.FindFrom(strings.ToLower(query), idx)

	results := make([]Result, len(matches))
	for i, m := range matches {
		title := len(books[m.Index].Title)
		var inTitle []int
		for _, pos := range m.MatchedIndexes {
			if pos < title {
				inTitle = append(inTitle, pos)
			}
		}
		results[i] = Result{Book: books[m.Index], MatchedIndexes: inTitle, Score: m.Score}
	}
	return results
}

// Rank returns the books whose title or author contains the characters of
// query in order, closest first. Case and diacritics are ignored.
func Rank(query string, books []domain.Book) []domain.Book {
	query = Fold(query)
	if query == "" {
		return books
	}

	targets := make([]string, len(books))
	for i, b := range books {
		targets[i] = Fold(b.Title + " " + b.Author)
	}

	ranks := lfuzzy.RankFindNormalizedFold(query, targets)
	sort.Stable(ranks)

	out := make([]domain.Book, len(ranks))
	for i, r := range ranks {
		out[i] = books[r.OriginalIndex]
	}
	return out
}

// Fold returns the case-folded NFC form of s, trimmed
func Fold(s string) string {
	// Casers carry state and cannot be shared across goroutines
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
}
