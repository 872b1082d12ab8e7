package conversation

import (
	"fmt"
	"strings"

	"github.com/squareb/menu-chatbot/internal/menu"
)

// NoItemsMarker replaces an empty item listing so the model never sees a
// blank context.
const NoItemsMarker = "لا توجد عناصر محددة في هذا السياق."

const (
	relevantHeader = "عناصر القائمة ذات الصلة:"
	menuHeader     = "قائمة الطعام:"
	phoneLabel     = "رقم التوصيل"
)

// ContextRenderer turns selected items into the text block given to the model.
type ContextRenderer struct {
	Currency string
	MealWord string
}

// NewContextRenderer creates a renderer for the given currency label.
func NewContextRenderer(currency string) *ContextRenderer {
	if currency == "" {
		currency = "دينار"
	}
	return &ContextRenderer{Currency: currency, MealWord: "وجبة"}
}

// Render lists items for intent. Full menus are grouped by category in the
// order the categories first appear; everything else goes under one header.
// A non-empty phone is appended as a contact line.
func (r *ContextRenderer) Render(intent Intent, items []menu.Item, phone string) string {
	var b strings.Builder

	switch {
	case len(items) == 0:
		b.WriteString(NoItemsMarker)
		b.WriteString("\n")
	case intent == IntentFullMenu:
		b.WriteString(menuHeader)
		b.WriteString("\n")
		var order []string
		groups := make(map[string][]menu.Item)
		for _, it := range items {
			if _, ok := groups[it.Category]; !ok {
				order = append(order, it.Category)
			}
			groups[it.Category] = append(groups[it.Category], it)
		}
		for _, c := range order {
			fmt.Fprintf(&b, "\n%s:\n", c)
			for _, it := range groups[c] {
				b.WriteString(r.line(it))
			}
		}
	default:
		b.WriteString(relevantHeader)
		b.WriteString("\n")
		for _, it := range items {
			b.WriteString(r.line(it))
		}
	}

	if phone != "" {
		fmt.Fprintf(&b, "\n%s: %s\n", phoneLabel, phone)
	}
	return b.String()
}

func (r *ContextRenderer) line(it menu.Item) string {
	name := it.Name
	if it.NameLocalized != "" && it.NameLocalized != it.Name {
		name += " / " + it.NameLocalized
	}
	s := fmt.Sprintf("  - %s — %s %s", name, it.DisplayPrice(), r.Currency)
	if it.HasMealOption() {
		s += fmt.Sprintf(" (%s %s %s)", r.MealWord, it.PriceMeal, r.Currency)
	}
	return s + "\n"
}
