package menu

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"github.com/squareb/menu-chatbot/internal/domain"
)

var (
	// ErrEmptySource is returned when the menu text is blank.
	ErrEmptySource = errors.New("menu source is empty")
	// ErrNoItems is returned when no line of the menu yields an item.
	ErrNoItems = errors.New("no menu items found")
)

var (
	headingRe  = regexp.MustCompile(`^(#{1,6})\s*(.*)$`)
	deliveryRe = regexp.MustCompile(`(?i)(?:delivery|التوصيل)\s*[:：]?\s*(\+?\d[\d -]{4,}\d)`)
	lineItemRe = regexp.MustCompile(`(?i)^(.+?)\s*[-–—:]\s*(\d+(?:\.\d{1,2})?)\s*(?:دينار|jod|jd)?\.?\s*$`)
	cellPrice  = regexp.MustCompile(`(?i)^(\d+(?:\.\d{1,2})?)\s*(?:دينار|jod|jd)?$`)
	anyPrice   = regexp.MustCompile(`(?i)\d+(?:\.\d{1,2})?\s*(?:دينار|jod|jd)`)
	boldRe     = regexp.MustCompile(`\*\*|__`)
)

// ParseWarning records a candidate line that was skipped.
type ParseWarning struct {
	Line   int    `json:"line"`
	Text   string `json:"text"`
	Reason string `json:"reason"`
}

// ParserConfig holds parser configuration.
type ParserConfig struct {
	Families    []AliasFamily
	MealAliases []string
	MealSuffix  string
}

// Parser turns menu text into an Index.
type Parser struct {
	families    []AliasFamily
	mealAliases []string
	mealSuffix  string
}

// NewParser creates a parser. Zero fields fall back to the package defaults.
func NewParser(cfg ParserConfig) *Parser {
	if cfg.Families == nil {
		cfg.Families = AliasFamilies
	}
	if cfg.MealAliases == nil {
		cfg.MealAliases = MealAliases
	}
	if cfg.MealSuffix == "" {
		cfg.MealSuffix = "وجبة"
	}
	return &Parser{
		families:    cfg.Families,
		mealAliases: cfg.MealAliases,
		mealSuffix:  cfg.MealSuffix,
	}
}

// Build parses raw menu text with the default parser.
func Build(raw string) (*Index, error) {
	return NewParser(ParserConfig{}).Parse(raw)
}

// parseState tracks the block structure while walking the lines.
type parseState struct {
	category    string
	subcategory string
	localized   string
	items       []Item
	warnings    []ParseWarning
	phone       string
}

// Parse builds an Index from raw menu text. Malformed lines are skipped and
// reported through Index.Warnings; only a blank source or a source with no
// parsable item fails.
func (p *Parser) Parse(raw string) (*Index, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, domain.ParseError("build menu index", ErrEmptySource)
	}

	st := &parseState{category: DefaultCategory}

	for i, line := range strings.Split(raw, "\n") {
		lineNum := i + 1
		line = strings.TrimSpace(line)

		if line == "" || isRule(line) {
			continue
		}

		if st.phone == "" {
			if m := deliveryRe.FindStringSubmatch(line); m != nil {
				st.phone = strings.NewReplacer(" ", "", "-", "").Replace(m[1])
				continue
			}
		} else if deliveryRe.MatchString(line) {
			continue
		}

		if m := headingRe.FindStringSubmatch(line); m != nil {
			p.handleHeading(st, len(m[1]), cleanTitle(m[2]))
			continue
		}

		switch {
		case strings.HasPrefix(line, "|"):
			p.parseTableRow(st, lineNum, line)
		case isBullet(line):
			p.parseListRow(st, lineNum, stripBullet(line), true)
		case isLocalizedLine(line):
			st.localized = cleanName(line)
		default:
			p.parseListRow(st, lineNum, line, false)
		}
	}

	if len(st.items) == 0 {
		return nil, domain.ParseError("build menu index", ErrNoItems)
	}

	return newIndex(st.items, st.phone, st.warnings), nil
}

func (p *Parser) handleHeading(st *parseState, level int, title string) {
	st.localized = ""
	switch {
	case level == 1:
		// Document title.
	case level == 2:
		if title != "" {
			st.category = title
		}
		st.subcategory = ""
	default:
		st.subcategory = title
	}
}

// parseTableRow handles "| size | regular | meal |" rows.
func (p *Parser) parseTableRow(st *parseState, lineNum int, line string) {
	inner := strings.TrimSuffix(strings.TrimPrefix(line, "|"), "|")
	cells := strings.Split(inner, "|")
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}

	if isSeparatorRow(cells) {
		return
	}
	if len(cells) < 2 {
		st.warn(lineNum, line, "table row has fewer than two cells")
		return
	}

	var meal Price
	if len(cells) > 2 {
		meal, _ = parseCellPrice(cells[2])
	}

	regular, ok := parseCellPrice(cells[1])
	if !ok {
		switch {
		case isEmptyCell(cells[1]) && !meal.IsZero():
			// Meal-only row.
		case anyPrice.MatchString(line):
			st.warn(lineNum, line, "unreadable regular price")
			return
		default:
			// Header rows carry no price at all.
			return
		}
	}

	size := cleanName(cells[0])
	if size == "" {
		st.warn(lineNum, line, "missing size label")
		return
	}

	name := size
	if st.subcategory != "" {
		name = st.subcategory + " " + size
	}
	if Normalize(name) == "" {
		st.warn(lineNum, line, "name has no searchable text")
		return
	}

	if !regular.IsZero() {
		st.items = append(st.items, p.newItem(st, name, name, size, VariantRegular, regular, meal))
	}

	if !meal.IsZero() {
		mealName := name + " " + p.mealSuffix
		st.items = append(st.items, p.newItem(st, mealName, mealName, size, VariantMeal, regular, meal))
	}
}

// parseListRow handles "Name - 1.50 دينار" lines. Bulleted lines that do not
// parse are reported; plain prose is ignored. An unbulleted line without a
// currency word only counts when its name looks like an item name, so
// "Opening hours: 10 - 11" stays prose.
func (p *Parser) parseListRow(st *parseState, lineNum int, line string, bulleted bool) {
	text := cleanName(line)
	m := lineItemRe.FindStringSubmatch(text)
	if m == nil {
		if bulleted || anyPrice.MatchString(text) {
			st.warn(lineNum, line, "no price found")
		}
		st.localized = ""
		return
	}

	name := strings.TrimSpace(m[1])
	if !bulleted && !anyPrice.MatchString(text) && !plainItemName(name) {
		st.localized = ""
		return
	}
	if name != "" && Normalize(name) == "" {
		st.warn(lineNum, line, "name has no searchable text")
		st.localized = ""
		return
	}
	price, err := ParsePrice(m[2])
	if err != nil || name == "" || price.IsZero() {
		st.warn(lineNum, line, "unreadable item")
		st.localized = ""
		return
	}

	localized := name
	if st.localized != "" {
		localized = st.localized
	}
	st.localized = ""

	st.items = append(st.items, p.newItem(st, name, localized, "", VariantRegular, price, 0))
}

func (p *Parser) newItem(st *parseState, name, localized, size string, variant Variant, regular, meal Price) Item {
	terms := []string{name, localized}
	if st.subcategory != "" {
		terms = append(terms, st.subcategory)
	}
	terms = append(terms, aliasesFor(p.families, name, localized, st.subcategory, st.category)...)
	if variant == VariantMeal {
		terms = append(terms, p.mealAliases...)
	}

	return Item{
		ID:            itemID(st.category, name, variant),
		Name:          name,
		NameLocalized: localized,
		Category:      st.category,
		Subcategory:   st.subcategory,
		Size:          size,
		PriceRegular:  regular,
		PriceMeal:     meal,
		Variant:       variant,
		Aliases:       dedupeNormalized(terms...),
		Position:      len(st.items),
	}
}

func (st *parseState) warn(lineNum int, text, reason string) {
	st.warnings = append(st.warnings, ParseWarning{Line: lineNum, Text: text, Reason: reason})
}

func parseCellPrice(cell string) (Price, bool) {
	m := cellPrice.FindStringSubmatch(strings.TrimSpace(cell))
	if m == nil {
		return 0, false
	}
	price, err := ParsePrice(m[1])
	if err != nil || price.IsZero() {
		return 0, false
	}
	return price, true
}

// plainItemName rejects label-like text: a colon, or a trailing bare number
// as in the first half of a range.
func plainItemName(name string) bool {
	if strings.ContainsAny(name, ":：") {
		return false
	}
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return false
	}
	last := fields[len(fields)-1]
	return strings.IndexFunc(last, func(r rune) bool { return !unicode.IsDigit(r) && r != '.' }) >= 0
}

func isEmptyCell(cell string) bool {
	return strings.Trim(cell, "-–— ") == ""
}

func isRule(line string) bool {
	return strings.HasPrefix(line, "---") || strings.HasPrefix(line, "===") || strings.HasPrefix(line, "***")
}

func isSeparatorRow(cells []string) bool {
	for _, c := range cells {
		if strings.Trim(c, "-: ") != "" {
			return false
		}
	}
	return true
}

func isBullet(line string) bool {
	return strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "• ") ||
		strings.HasPrefix(line, "* ") || strings.HasPrefix(line, "•")
}

func stripBullet(line string) string {
	line = strings.TrimLeft(line, "-•* ")
	return strings.TrimSpace(line)
}

// isLocalizedLine reports whether a line is an Arabic-only caption, which
// names the item on the following line.
func isLocalizedLine(line string) bool {
	return hasArabic(line) && !hasLatin(line) && !anyPrice.MatchString(line) && !lineItemRe.MatchString(line)
}

func cleanName(s string) string {
	s = boldRe.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

// cleanTitle drops emoji and markdown decoration from a heading.
func cleanTitle(s string) string {
	s = boldRe.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || strings.ContainsRune("&-'()/", r) {
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
