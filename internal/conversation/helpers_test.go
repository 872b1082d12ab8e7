package conversation

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/squareb/menu-chatbot/internal/menu"
)

const squareMenu = `# SQUARE B

DELIVERY: 0797920111

## BURGERS

### Beef

| Size | Regular | Meal |
|------|---------|------|
| 1x1 | 3.50 | 4.75 |
| 2x2 | 4.50 | 5.75 |

### Chicken

| Size | Regular | Meal |
|------|---------|------|
| 1x1 | 3.25 | 4.50 |
| 2x2 | 4.25 | 5.50 |

## SIDES

بطاطا
- Fries - 1.00 دينار
بطاطا بالجبنة
- Cheese Fries - 1.75 دينار

## DRINKS

- Pepsi - 0.75 دينار
- Water - 0.35 دينار
`

func buildIndex(t *testing.T, raw string) *menu.Index {
	t.Helper()
	idx, err := menu.Build(raw)
	require.NoError(t, err)
	return idx
}

func loadedStore(t *testing.T, raw string) *menu.Store {
	t.Helper()
	store := menu.NewStore(menu.StaticSource(raw))
	_, err := store.Reload(context.Background())
	require.NoError(t, err)
	return store
}

// bigMenu has categories × perCategory list items.
func bigMenu(categories, perCategory int) string {
	var b strings.Builder
	for c := 0; c < categories; c++ {
		fmt.Fprintf(&b, "## CATEGORY %d\n\n", c+1)
		for i := 0; i < perCategory; i++ {
			fmt.Fprintf(&b, "- Dish %d x %d - %d.25 دينار\n", c+1, i+1, i+1)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func itemNames(items []menu.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}
