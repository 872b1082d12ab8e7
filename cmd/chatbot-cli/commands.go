package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/squareb/menu-chatbot/internal/conversation"
	"github.com/squareb/menu-chatbot/internal/menu"
)

// itemView is the JSON shape of a menu item in CLI output.
type itemView struct {
	Name          string  `json:"name"`
	NameLocalized string  `json:"name_localized,omitempty"`
	Category      string  `json:"category"`
	Price         string  `json:"price"`
	MealPrice     string  `json:"meal_price,omitempty"`
	Variant       string  `json:"variant"`
	Score         float64 `json:"score,omitempty"`
}

func toItemView(it menu.Item) itemView {
	v := itemView{
		Name:     it.Name,
		Category: it.Category,
		Price:    it.DisplayPrice().String(),
		Variant:  string(it.Variant),
	}
	if it.NameLocalized != it.Name {
		v.NameLocalized = it.NameLocalized
	}
	if it.HasMealOption() {
		v.MealPrice = it.PriceMeal.String()
	}
	return v
}

func toItemViews(items []menu.Item) []itemView {
	out := make([]itemView, 0, len(items))
	for _, it := range items {
		out = append(out, toItemView(it))
	}
	return out
}

func itemRows(items []itemView) [][]string {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		row := []string{it.Name, it.NameLocalized, it.Category, it.Price, it.MealPrice}
		if it.Score > 0 {
			row = append(row, strconv.FormatFloat(it.Score, 'f', 1, 64))
		}
		rows = append(rows, row)
	}
	return rows
}

var itemHeaders = []string{"Name", "Arabic", "Category", "Price", "Meal"}

// newSearchCmd creates the search subcommand.
func newSearchCmd(a *app) *cobra.Command {
	var (
		threshold float64
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Fuzzy-search the menu",
		Long: `Search scores every item against the query using the same normalization
and aliases as the chatbot, and prints hits at or above the threshold.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			_, idx, err := a.loadMenu(ctx)
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("threshold") {
				threshold = float64(a.cfg.Menu.DefaultThreshold)
			}
			hits := idx.Search(args[0], threshold)
			if limit > 0 && len(hits) > limit {
				hits = hits[:limit]
			}

			results := make([]itemView, 0, len(hits))
			for _, hit := range hits {
				v := toItemView(hit.Item)
				v.Score = hit.Score
				results = append(results, v)
			}

			if a.outputJSON {
				return a.ui.JSON(map[string]interface{}{
					"query":     args[0],
					"threshold": threshold,
					"results":   results,
				})
			}

			if len(results) == 0 {
				a.ui.Warning("No items match %q at threshold %.0f", args[0], threshold)
				return nil
			}
			a.ui.Table(append(itemHeaders, "Score"), itemRows(results))
			return nil
		},
	}

	cmd.Flags().Float64VarP(&threshold, "threshold", "t", menu.DefaultThreshold, "minimum score (0-100)")
	cmd.Flags().IntVarP(&limit, "limit", "l", 10, "maximum results (0 for all)")

	return cmd
}

// newMenuCmd creates the menu subcommand.
func newMenuCmd(a *app) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "menu",
		Short: "List menu items",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			_, idx, err := a.loadMenu(ctx)
			if err != nil {
				return err
			}

			items := idx.Items()
			if category != "" {
				name, ok := idx.FindCategory(category)
				if !ok {
					return fmt.Errorf("category %q not found; have %v", category, idx.Categories())
				}
				items = idx.ByCategory(name)
			}

			if a.outputJSON {
				return a.ui.JSON(map[string]interface{}{
					"categories":     idx.Categories(),
					"delivery_phone": idx.DeliveryPhone(),
					"items":          toItemViews(items),
				})
			}

			a.ui.Table(itemHeaders, itemRows(toItemViews(items)))
			a.ui.Info("%d items in %d categories", len(items), len(idx.Categories()))
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "only list this category")

	return cmd
}

// newClassifyCmd creates the classify subcommand.
func newClassifyCmd(a *app) *cobra.Command {
	var showPrompt bool

	cmd := &cobra.Command{
		Use:   "classify <message>",
		Short: "Show the intent, items and context a message would produce",
		Long: `Classify runs the pipeline up to the model call: intent detection, item
selection and context rendering. No completion request is made.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			_, idx, err := a.loadMenu(ctx)
			if err != nil {
				return err
			}

			message := args[0]
			intent := conversation.ClassifyIntent(message)
			items := a.selector().Select(idx, message, intent)

			phone := idx.DeliveryPhone()
			if phone == "" {
				phone = a.cfg.Menu.DefaultDeliveryPhone
			}
			menuContext := conversation.NewContextRenderer(a.cfg.Menu.CurrencyLabel).Render(intent, items, phone)

			if a.outputJSON {
				out := map[string]interface{}{
					"intent":  intent,
					"items":   toItemViews(items),
					"context": menuContext,
				}
				if showPrompt {
					out["prompt"] = conversation.NewPromptBuilder(a.cfg.Menu.RestaurantName, a.cfg.Menu.CurrencyLabel).Build(menuContext)
				}
				return a.ui.JSON(out)
			}

			a.ui.KeyValue("Intent", intent)
			a.ui.KeyValue("Items", len(items))
			a.ui.Section("Context")
			fmt.Fprint(cmd.OutOrStdout(), menuContext)
			if showPrompt {
				a.ui.Section("System prompt")
				fmt.Fprint(cmd.OutOrStdout(), conversation.NewPromptBuilder(a.cfg.Menu.RestaurantName, a.cfg.Menu.CurrencyLabel).Build(menuContext))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showPrompt, "prompt", false, "also print the full system prompt")

	return cmd
}

// newValidateCmd creates the validate subcommand.
func newValidateCmd(a *app) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate [menu-file]",
		Short: "Parse a menu file and report skipped lines",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			if len(args) == 1 {
				a.cfg.Menu.Path = args[0]
			}

			start := time.Now()
			_, idx, err := a.loadMenu(ctx)
			if err != nil {
				a.ui.Error("%v", err)
				return err
			}
			elapsed := time.Since(start)

			stats := idx.Stats()
			warnings := idx.Warnings()

			if a.outputJSON {
				if err := a.ui.JSON(map[string]interface{}{
					"path":           a.cfg.Menu.Path,
					"stats":          stats,
					"categories":     idx.Categories(),
					"delivery_phone": idx.DeliveryPhone(),
					"warnings":       warnings,
				}); err != nil {
					return err
				}
			} else {
				a.ui.Success("Parsed %s in %s", a.cfg.Menu.Path, FormatDuration(elapsed))
				a.ui.KeyValue("Items", stats.Items)
				a.ui.KeyValue("Categories", stats.Categories)
				a.ui.KeyValue("Delivery phone", idx.DeliveryPhone())
				a.ui.KeyValue("Skipped lines", stats.Skipped)
				if len(warnings) > 0 {
					rows := make([][]string, 0, len(warnings))
					for _, w := range warnings {
						rows = append(rows, []string{strconv.Itoa(w.Line), truncate(w.Text, 40), w.Reason})
					}
					a.ui.Table([]string{"Line", "Text", "Reason"}, rows)
				}
			}

			if strict && len(warnings) > 0 {
				return fmt.Errorf("%d lines skipped", len(warnings))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "fail when any line is skipped")

	return cmd
}
