package conversation

import (
	"sort"

	"github.com/squareb/menu-chatbot/internal/menu"
)

// Selector defaults.
const (
	DefaultMaxContextItems = 30
	DefaultTopK            = 5
)

// Selector picks the menu items relevant to a message.
type Selector struct {
	MaxContextItems int
	TopK            int
	Threshold       float64
}

// NewSelector creates a selector with the default caps.
func NewSelector() *Selector {
	return &Selector{
		MaxContextItems: DefaultMaxContextItems,
		TopK:            DefaultTopK,
		Threshold:       menu.DefaultThreshold,
	}
}

// Select returns the items for intent. A nil index yields no items.
func (s *Selector) Select(idx *menu.Index, message string, intent Intent) []menu.Item {
	if idx == nil {
		return []menu.Item{}
	}

	switch intent {
	case IntentFullMenu:
		return s.fullMenu(idx)
	case IntentPriceQuery:
		return s.topK(idx.Search(message, s.Threshold))
	case IntentSuggestion:
		hits := s.topK(idx.Search(message, s.Threshold))
		if len(hits) == 0 {
			return s.sampler(idx, s.topKLimit())
		}
		return hits
	case IntentGeneral:
		return s.topK(idx.Search(message, s.Threshold))
	default:
		return []menu.Item{}
	}
}

func (s *Selector) topKLimit() int {
	if s.TopK < 1 {
		return DefaultTopK
	}
	return s.TopK
}

func (s *Selector) topK(hits []menu.ScoredItem) []menu.Item {
	n := min(len(hits), s.topKLimit())
	items := make([]menu.Item, 0, n)
	for _, h := range hits[:n] {
		items = append(items, h.Item)
	}
	return items
}

// fullMenu lists every item the regular rows don't already cover. When the
// cap bites, categories take turns so that each one is represented.
func (s *Selector) fullMenu(idx *menu.Index) []menu.Item {
	limit := s.MaxContextItems
	if limit < 1 {
		limit = DefaultMaxContextItems
	}

	var groups [][]menu.Item
	total := 0
	for _, c := range idx.Categories() {
		var g []menu.Item
		for _, it := range idx.ByCategory(c) {
			if it.Variant == menu.VariantMeal && hasRegularTwin(idx, it) {
				continue
			}
			g = append(g, it)
		}
		total += len(g)
		groups = append(groups, g)
	}

	picked := roundRobin(groups, min(limit, total))
	sort.Slice(picked, func(i, j int) bool { return picked[i].Position < picked[j].Position })
	return picked
}

// sampler takes the first item of each category, then the second, and so on.
func (s *Selector) sampler(idx *menu.Index, limit int) []menu.Item {
	var groups [][]menu.Item
	for _, c := range idx.Categories() {
		groups = append(groups, idx.ByCategory(c))
	}
	return roundRobin(groups, limit)
}

func roundRobin(groups [][]menu.Item, limit int) []menu.Item {
	out := make([]menu.Item, 0, limit)
	for depth := 0; len(out) < limit; depth++ {
		progressed := false
		for _, g := range groups {
			if depth >= len(g) {
				continue
			}
			progressed = true
			out = append(out, g[depth])
			if len(out) == limit {
				break
			}
		}
		if !progressed {
			break
		}
	}
	return out
}

// hasRegularTwin reports whether the regular row carrying meal's price is on
// the menu, in which case rendering the regular row already shows it.
func hasRegularTwin(idx *menu.Index, meal menu.Item) bool {
	for _, it := range idx.ByCategory(meal.Category) {
		if it.HasMealOption() && it.PriceMeal == meal.PriceMeal && it.Subcategory == meal.Subcategory && it.Size == meal.Size {
			return true
		}
	}
	return false
}
