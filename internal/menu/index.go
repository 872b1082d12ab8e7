// Package menu parses the restaurant menu and provides approximate search
// over its items.
package menu

import (
	"sort"

	"github.com/google/uuid"
)

// Variant distinguishes a plain item from its meal (combo) version.
type Variant string

const (
	VariantRegular Variant = "regular"
	VariantMeal    Variant = "meal"
)

// DefaultCategory holds items that appear before any category heading.
const DefaultCategory = "GENERAL"

// DefaultThreshold is the minimum score a search hit needs by default.
const DefaultThreshold = 60.0

// itemNamespace seeds deterministic item IDs.
var itemNamespace = uuid.MustParse("5d0f3c8e-4a51-4f2b-9c1e-7b3a2f6d8e90")

// Item is one orderable entry of the menu.
type Item struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	NameLocalized string   `json:"nameLocalized"`
	Category      string   `json:"category"`
	Subcategory   string   `json:"subcategory,omitempty"`
	Size          string   `json:"size,omitempty"`
	PriceRegular  Price    `json:"priceRegular"`
	PriceMeal     Price    `json:"priceMeal,omitempty"`
	Variant       Variant  `json:"variant"`
	Aliases       []string `json:"aliases"`
	Position      int      `json:"position"`
}

// DisplayPrice is the price a customer pays for this entry.
func (it Item) DisplayPrice() Price {
	if it.Variant == VariantMeal && !it.PriceMeal.IsZero() {
		return it.PriceMeal
	}
	return it.PriceRegular
}

// HasMealOption reports whether a regular item has a meal upgrade.
func (it Item) HasMealOption() bool {
	return it.Variant == VariantRegular && !it.PriceMeal.IsZero()
}

func itemID(category, name string, variant Variant) string {
	return uuid.NewSHA1(itemNamespace, []byte(category+"|"+name+"|"+string(variant))).String()
}

// ScoredItem is a search hit.
type ScoredItem struct {
	Item  Item    `json:"item"`
	Score float64 `json:"score"`
}

// Stats summarizes a build.
type Stats struct {
	Items      int `json:"items"`
	Categories int `json:"categories"`
	Skipped    int `json:"skipped"`
}

// Index is the immutable, searchable form of a menu.
type Index struct {
	items         []Item
	byCategory    map[string][]Item
	categories    []string
	deliveryPhone string
	warnings      []ParseWarning
}

func newIndex(items []Item, deliveryPhone string, warnings []ParseWarning) *Index {
	idx := &Index{
		items:         items,
		byCategory:    make(map[string][]Item),
		deliveryPhone: deliveryPhone,
		warnings:      warnings,
	}
	for _, it := range items {
		if _, ok := idx.byCategory[it.Category]; !ok {
			idx.categories = append(idx.categories, it.Category)
		}
		idx.byCategory[it.Category] = append(idx.byCategory[it.Category], it)
	}
	return idx
}

// Search returns items whose best alias score is at least threshold, best
// first. Ties keep menu order. The threshold is clamped to [0,100], so a
// threshold of 0 returns every item.
func (idx *Index) Search(query string, threshold float64) []ScoredItem {
	q := Normalize(query)
	if q == "" {
		return []ScoredItem{}
	}
	threshold = min(max(threshold, 0), 100)

	results := []ScoredItem{}
	for _, it := range idx.items {
		score := bestScore(q, it)
		if score >= threshold {
			results = append(results, ScoredItem{Item: it, Score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

func bestScore(query string, it Item) float64 {
	best := 0.0
	for _, term := range it.Aliases {
		if s := WeightedRatio(query, term); s > best {
			best = s
			if best == 100 {
				break
			}
		}
	}
	return best
}

// ByCategory returns the items of a category in menu order.
func (idx *Index) ByCategory(category string) []Item {
	items, ok := idx.byCategory[category]
	if !ok {
		return []Item{}
	}
	return append([]Item(nil), items...)
}

// FindCategory resolves a loosely typed category name to its canonical form.
func (idx *Index) FindCategory(name string) (string, bool) {
	if _, ok := idx.byCategory[name]; ok {
		return name, true
	}
	n := Normalize(name)
	for _, c := range idx.categories {
		if Normalize(c) == n {
			return c, true
		}
	}
	return "", false
}

// Categories returns category names in first-appearance order.
func (idx *Index) Categories() []string {
	return append([]string(nil), idx.categories...)
}

// Items returns every item in menu order.
func (idx *Index) Items() []Item {
	return append([]Item(nil), idx.items...)
}

// Len is the number of items.
func (idx *Index) Len() int {
	return len(idx.items)
}

// DeliveryPhone is the contact number declared by the menu, if any.
func (idx *Index) DeliveryPhone() string {
	return idx.deliveryPhone
}

// Warnings lists the lines skipped during the build.
func (idx *Index) Warnings() []ParseWarning {
	return append([]ParseWarning(nil), idx.warnings...)
}

// Stats summarizes the build that produced the index.
func (idx *Index) Stats() Stats {
	return Stats{
		Items:      len(idx.items),
		Categories: len(idx.categories),
		Skipped:    len(idx.warnings),
	}
}
