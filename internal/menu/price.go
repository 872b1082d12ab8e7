package menu

import (
	"fmt"
	"strconv"
	"strings"
)

// Price is a menu price in hundredths of the currency unit. The zero value
// means no price.
type Price int64

// ParsePrice parses decimal text such as "3.5", "3.50" or "4".
func ParsePrice(s string) (Price, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty price")
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units < 0 {
		return 0, fmt.Errorf("invalid price %q", s)
	}

	var cents int64
	if hasFrac {
		if len(frac) == 0 || len(frac) > 2 {
			return 0, fmt.Errorf("invalid price %q", s)
		}
		if len(frac) == 1 {
			frac += "0"
		}
		cents, err = strconv.ParseInt(frac, 10, 64)
		if err != nil || cents < 0 {
			return 0, fmt.Errorf("invalid price %q", s)
		}
	}

	return Price(units*100 + cents), nil
}

// IsZero reports whether the price is absent.
func (p Price) IsZero() bool {
	return p == 0
}

// String renders the price with two decimals, e.g. "3.50".
func (p Price) String() string {
	return fmt.Sprintf("%d.%02d", int64(p)/100, int64(p)%100)
}

// MarshalText renders the price as "3.50" so JSON carries a decimal string.
func (p Price) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a decimal price.
func (p *Price) UnmarshalText(text []byte) error {
	v, err := ParsePrice(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
