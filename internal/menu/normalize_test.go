package menu

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase", "Beef BURGER", "beef burger"},
		{"latin accents", "Jalapeño!!", "jalapeno"},
		{"tashkeel and hamza", "أَهْلاً", "اهلا"},
		{"madda", "آخر", "اخر"},
		{"tatweel", "مـــرحبا", "مرحبا"},
		{"taa marbuta", "جبنة", "جبنه"},
		{"alef maqsura", "مستشفى", "مستشفي"},
		{"arabic punctuation", "كم السعر؟ ، شكراً", "كم السعر شكرا"},
		{"whitespace", "  fries \t  large \n", "fries large"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	for _, s := range []string{"بَطاطا مقليّة", "Cheese Fries", "وجبة أطفال"} {
		once := Normalize(s)
		assert.Equal(t, once, Normalize(once))
	}
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 100, Ratio("fries", "fries"), 1e-9)
	assert.InDelta(t, 0, Ratio("", "fries"), 1e-9)
	assert.InDelta(t, 100*(1-3.0/7.0), Ratio("kitten", "sitting"), 1e-9)

	assert.InDelta(t, 100, PartialRatio("بيف", "كم سعر البيف"), 1e-9)
	assert.InDelta(t, 100, TokenSortRatio("fries cheese", "cheese fries"), 1e-9)
	assert.InDelta(t, 100, TokenSetRatio("beef burger", "burger"), 1e-9)
	assert.InDelta(t, 0, TokenSetRatio("", "burger"), 1e-9)

	assert.InDelta(t, 90, WeightedRatio("بكم البيف", "بيف"), 1e-9)
	assert.InDelta(t, 95, WeightedRatio("cheese fries", "fries cheese"), 1e-9)
	assert.InDelta(t, 0, WeightedRatio("", "fries"), 1e-9)
	assert.Less(t, WeightedRatio("pepsi", "mozzarella"), DefaultThreshold)
	// Short aliases only count inside a longer message when spelled exactly.
	assert.Less(t, WeightedRatio("كيف الحال", "بيف"), DefaultThreshold)
	assert.Less(t, WeightedRatio("كيف الحال", "حار"), DefaultThreshold)
	assert.InDelta(t, 90, WeightedRatio("كم سعر البيف", "بيف"), 1e-9)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in      string
		want    Price
		wantErr bool
	}{
		{"3.50", 350, false},
		{"3.5", 350, false},
		{"4", 400, false},
		{".75", 75, false},
		{" 0.35 ", 35, false},
		{"1.234", 0, true},
		{"3.", 0, true},
		{"abc", 0, true},
		{"-1", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePrice(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrice_Format(t *testing.T) {
	assert.Equal(t, "3.50", Price(350).String())
	assert.Equal(t, "0.05", Price(5).String())
	assert.True(t, Price(0).IsZero())

	data, err := json.Marshal(struct {
		Regular Price `json:"regular"`
		Meal    Price `json:"meal,omitempty"`
	}{Regular: 475})
	require.NoError(t, err)
	assert.JSONEq(t, `{"regular":"4.75"}`, string(data))

	var p Price
	require.NoError(t, json.Unmarshal([]byte(`"5.95"`), &p))
	assert.Equal(t, Price(595), p)
}
