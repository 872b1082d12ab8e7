// Package conversation turns a customer message into a menu-grounded reply.
//
// The pipeline per message is classify → select → render context → build the
// system prompt → completion → append to the session history.
package conversation

import (
	"strings"
	"unicode/utf8"

	"github.com/squareb/menu-chatbot/internal/menu"
)

// Intent is the classified purpose of a customer message.
type Intent string

const (
	IntentPriceQuery Intent = "price_query"
	IntentFullMenu   Intent = "full_menu"
	IntentSuggestion Intent = "suggestion"
	IntentGreeting   Intent = "greeting"
	IntentDelivery   Intent = "delivery"
	IntentGeneral    Intent = "general"
)

// Intents lists every intent in classification priority order, ending with
// the fallback.
var Intents = []Intent{
	IntentPriceQuery,
	IntentFullMenu,
	IntentSuggestion,
	IntentGreeting,
	IntentDelivery,
	IntentGeneral,
}

// IntentRule maps keywords to an intent. Keywords of two runes or fewer must
// match a whole word of the message; longer keywords match anywhere.
// WholeWords always match whole words only.
type IntentRule struct {
	Intent     Intent
	Keywords   []string
	WholeWords []string
}

// DefaultIntentRules is checked top to bottom; the first rule with a hit wins.
var DefaultIntentRules = []IntentRule{
	{
		Intent: IntentPriceQuery,
		Keywords: []string{
			"سعر", "اسعار", "كم", "بكم", "قديش", "بقديش", "ثمن",
			"price", "cost", "how much",
		},
	},
	{
		Intent: IntentFullMenu,
		Keywords: []string{
			"منيو", "قائمة", "كل", "شو عندكم", "ايش عندكم", "الاصناف",
			"menu",
		},
		WholeWords: []string{"all"},
	},
	{
		Intent: IntentSuggestion,
		Keywords: []string{
			"نصح", "اقترح", "شو بتنصح", "ايش بتنصح", "افضل",
			"suggest", "recommend", "best",
		},
	},
	{
		Intent: IntentGreeting,
		Keywords: []string{
			"مرحب", "هلا", "السلام", "صباح", "مساء",
			"hello", "hi", "hey",
		},
	},
	{
		Intent: IntentDelivery,
		Keywords: []string{
			"توصيل", "رقم", "تواصل", "اتصال",
			"delivery", "phone",
		},
	},
}

type keyword struct {
	text  string
	exact bool
}

type compiledRule struct {
	intent   Intent
	keywords []keyword
}

// IntentClassifier resolves messages to intents with keyword rules.
type IntentClassifier struct {
	rules []compiledRule
}

// NewIntentClassifier compiles rules. Nil rules means DefaultIntentRules.
func NewIntentClassifier(rules []IntentRule) *IntentClassifier {
	if rules == nil {
		rules = DefaultIntentRules
	}
	c := &IntentClassifier{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		cr := compiledRule{intent: r.Intent}
		for _, k := range r.Keywords {
			n := menu.Normalize(k)
			if n == "" {
				continue
			}
			cr.keywords = append(cr.keywords, keyword{text: n, exact: utf8.RuneCountInString(n) <= 2})
		}
		for _, k := range r.WholeWords {
			if n := menu.Normalize(k); n != "" {
				cr.keywords = append(cr.keywords, keyword{text: n, exact: true})
			}
		}
		c.rules = append(c.rules, cr)
	}
	return c
}

// Classify returns the intent of message. It never fails; messages that hit
// no rule are IntentGeneral.
func (c *IntentClassifier) Classify(message string) Intent {
	normalized := menu.Normalize(message)
	if normalized == "" {
		return IntentGeneral
	}
	words := make(map[string]struct{})
	for _, w := range strings.Fields(normalized) {
		words[w] = struct{}{}
	}

	for _, r := range c.rules {
		for _, k := range r.keywords {
			if k.exact {
				if _, ok := words[k.text]; ok {
					return r.intent
				}
				continue
			}
			if strings.Contains(normalized, k.text) {
				return r.intent
			}
		}
	}
	return IntentGeneral
}

var defaultClassifier = NewIntentClassifier(nil)

// ClassifyIntent classifies message with DefaultIntentRules.
func ClassifyIntent(message string) Intent {
	return defaultClassifier.Classify(message)
}
