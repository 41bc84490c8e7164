package search

import (
	"reflect"
	"testing"

	"github.com/mmcdole/zenread/internal/domain"
)

var shelf = []domain.Book{
	{ID: "1", Title: "The Go Programming Language", Author: "Donovan"},
	{ID: "2", Title: "Crime and Punishment", Author: "Dostoevsky"},
	{ID: "3", Title: "Война и мир", Author: "Толстой"},
	{ID: "4", Title: "Les Misérables", Author: "Hugo"},
}

func ids(books []domain.Book) []string {
	out := make([]string, len(books))
	for i, b := range books {
		out[i] = b.ID
	}
	return out
}

func TestFilterEmptyQueryKeepsOrder(t *testing.T) {
	got := Filter("  ", shelf)
	if len(got) != len(shelf) {
		t.Fatalf("len = %d, want %d", len(got), len(shelf))
	}
	for i, r := range got {
		if r.Book.ID != shelf[i].ID || r.MatchedIndexes != nil {
			t.Errorf("result %d = %+v", i, r)
		}
	}
}

func TestFilter(t *testing.T) {
	tests := []struct {
		query string
		want  string // id of best match
	}{
		{"gopl", "1"},
		{"CRIME", "2"},
		{"война", "3"},
		{"hugo", "4"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := Filter(tt.query, shelf)
			if len(got) == 0 {
				t.Fatalf("no matches for %q", tt.query)
			}
			if got[0].Book.ID != tt.want {
				t.Errorf("best match = %s, want %s", got[0].Book.ID, tt.want)
			}
		})
	}

	if got := Filter("zzzz", shelf); len(got) != 0 {
		t.Errorf("Filter(zzzz) = %+v", got)
	}
}

func TestFilterHighlightsTitleOnly(t *testing.T) {
	got := Filter("crime", shelf)
	if len(got) == 0 {
		t.Fatal("no match")
	}
	if want := []int{0, 1, 2, 3, 4}; !reflect.DeepEqual(got[0].MatchedIndexes, want) {
		t.Errorf("MatchedIndexes = %v, want %v", got[0].MatchedIndexes, want)
	}

	byAuthor := Filter("hugo", shelf)
	if len(byAuthor) == 0 || len(byAuthor[0].MatchedIndexes) != 0 {
		t.Errorf("author-only match highlighted title: %+v", byAuthor)
	}
}

func TestRank(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"1", "2", "3", "4"}},
		{"miserables", []string{"4"}},
		{"ТОЛСТОЙ", []string{"3"}},
		{"dostoevsky", []string{"2"}},
		{"nothing like this", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if got := ids(Rank(tt.query, shelf)); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Rank(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestFold(t *testing.T) {
	tests := map[string]string{
		"  Straße ": "strasse",
		"ВОЙНА":     "война",
		"Café":     "café",
	}
	for in, want := range tests {
		if got := Fold(in); got != want {
			t.Errorf("Fold(%q) = %q, want %q", in, got, want)
		}
	}
}
