package menu

import "strings"

// AliasFamily is a group of interchangeable words for one kind of food.
// An item whose name, subcategory or category contains any trigger gets
// every alias of the family.
type AliasFamily struct {
	Canonical string
	Triggers  []string
	Aliases   []string
}

// MealAliases are attached to the meal variant of combo items.
var MealAliases = []string{"وجبة", "meal", "ميل", "كومبو", "combo"}

// AliasFamilies is the default synonym table.
var AliasFamilies = []AliasFamily{
	{
		Canonical: "beef",
		Triggers:  []string{"beef", "بيف", "لحم"},
		Aliases:   []string{"بيف", "لحم", "لحمة", "beef", "لحم بقري"},
	},
	{
		Canonical: "chicken",
		Triggers:  []string{"chicken", "دجاج"},
		Aliases:   []string{"دجاج", "شكن", "جاج", "chicken", "فراخ"},
	},
	{
		Canonical: "triple",
		Triggers:  []string{"triple"},
		Aliases:   []string{"تريبل", "triple"},
	},
	{
		Canonical: "fire",
		Triggers:  []string{"fire", "spicy", "حار"},
		Aliases:   []string{"حار", "فاير", "fire", "حراق", "سبايسي"},
	},
	{
		Canonical: "burger",
		Triggers:  []string{"burger", "برجر"},
		Aliases:   []string{"برجر", "برقر", "burger", "ساندوتش"},
	},
	{
		Canonical: "fries",
		Triggers:  []string{"fries", "بطاطا"},
		Aliases:   []string{"بطاطا", "بطاطس", "فرايز", "fries", "بطاط"},
	},
	{
		Canonical: "cheese",
		Triggers:  []string{"cheese"},
		Aliases:   []string{"جبنة", "جبن", "cheese", "تشيز"},
	},
	{
		Canonical: "mozzarella",
		Triggers:  []string{"mozzarella"},
		Aliases:   []string{"موزاريلا", "موزريلا", "mozzarella"},
	},
	{
		Canonical: "jalapeno",
		Triggers:  []string{"jalapeno", "jalapeño"},
		Aliases:   []string{"هالابينو", "جلابينو", "jalapeno", "هلابينو"},
	},
	{
		Canonical: "popcorn",
		Triggers:  []string{"popcorn", "pop corn"},
		Aliases:   []string{"بوب كورن", "فشار دجاج", "popcorn"},
	},
	{
		Canonical: "drink",
		Triggers:  []string{"drink", "pepsi", "coca cola", "coke", "soda", "7up", "mirinda"},
		Aliases:   []string{"مشروب", "مشروبات", "بيبسي", "كولا", "drink"},
	},
	{
		Canonical: "water",
		Triggers:  []string{"water"},
		Aliases:   []string{"مية", "مياه", "ماء", "water"},
	},
	{
		Canonical: "kids",
		Triggers:  []string{"kid", "اطفال"},
		Aliases:   []string{"اطفال", "ولاد", "صغار", "kids"},
	},
	{
		Canonical: "sauce",
		Triggers:  []string{"sauce", "صوص"},
		Aliases:   []string{"صوص", "صلصة", "sauce"},
	},
}

// aliasesFor returns the deduplicated, normalized aliases triggered by the
// given descriptive texts, in table order.
func aliasesFor(families []AliasFamily, texts ...string) []string {
	var haystack strings.Builder
	for _, t := range texts {
		haystack.WriteString(strings.ToLower(t))
		haystack.WriteByte(' ')
	}
	hay := haystack.String()
	normHay := Normalize(hay)

	var out []string
	for _, fam := range families {
		if !familyTriggered(fam, hay, normHay) {
			continue
		}
		out = append(out, fam.Aliases...)
	}
	return out
}

func familyTriggered(fam AliasFamily, hay, normHay string) bool {
	for _, trig := range fam.Triggers {
		if strings.Contains(hay, strings.ToLower(trig)) || strings.Contains(normHay, Normalize(trig)) {
			return true
		}
	}
	return false
}

// dedupeNormalized normalizes every term and drops empties and repeats while
// keeping first-seen order.
func dedupeNormalized(terms ...string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		n := Normalize(term)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
