// Package handlers provides HTTP handlers for the chatbot API.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/squareb/menu-chatbot/internal/menu"
)

// ItemDTO is a menu item as exposed by the API.
type ItemDTO struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	NameLocalized string  `json:"name_localized,omitempty"`
	Category      string  `json:"category"`
	Subcategory   string  `json:"subcategory,omitempty"`
	Price         string  `json:"price"`
	MealPrice     string  `json:"meal_price,omitempty"`
	Variant       string  `json:"variant"`
	Score         float64 `json:"score,omitempty"`
}

func toItemDTO(it menu.Item) ItemDTO {
	dto := ItemDTO{
		ID:          it.ID,
		Name:        it.Name,
		Category:    it.Category,
		Subcategory: it.Subcategory,
		Price:       it.DisplayPrice().String(),
		Variant:     string(it.Variant),
	}
	if it.NameLocalized != it.Name {
		dto.NameLocalized = it.NameLocalized
	}
	if it.HasMealOption() {
		dto.MealPrice = it.PriceMeal.String()
	}
	return dto
}

func toItemDTOs(items []menu.Item) []ItemDTO {
	out := make([]ItemDTO, 0, len(items))
	for _, it := range items {
		out = append(out, toItemDTO(it))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, detail string) {
	resp := map[string]string{
		"error":   message,
		"message": message,
	}
	if detail != "" {
		resp["detail"] = detail
	}
	writeJSON(w, status, resp)
}
