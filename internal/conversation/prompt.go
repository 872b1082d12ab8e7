package conversation

import (
	"fmt"
	"strings"
)

// PromptBuilder assembles the system prompt from fixed rules and the menu
// context.
type PromptBuilder struct {
	RestaurantName string
	Currency       string
}

// NewPromptBuilder creates a builder for the named restaurant.
func NewPromptBuilder(restaurant, currency string) *PromptBuilder {
	if restaurant == "" {
		restaurant = "Square B"
	}
	if currency == "" {
		currency = "دينار"
	}
	return &PromptBuilder{RestaurantName: restaurant, Currency: currency}
}

const promptTemplate = `أنت مساعد الطلبات في مطعم %[1]s. مهمتك تساعد الزبون يعرف الأصناف والأسعار ويختار طلبه.

القواعد:
1. اعتمد فقط على عناصر القائمة المذكورة في السياق تحت. لا تخترع أصناف أو أسعار.
2. اكتب السعر دائماً بالشكل "X.XX %[2]s" (مثال: 3.50 %[2]s). لا تستخدم JD أو JOD.
3. رد باللهجة الأردنية حتى لو كتب الزبون بالإنجليزي. خلي الرد قصير وودود ونص عادي بدون تنسيق.
4. إذا الزبون غلط بالإملاء افهم قصده وكمّل بدون ما تصحح له.
5. إذا الصنف مش موجود بالسياق اعتذر بلطف ("للأسف ما عنا هالصنف") واقترح أقرب بديل من القائمة.

حسب نوع الطلب:
- سؤال عن سعر: اعطِ السعر الدقيق، وإذا في وجبة اعرضها. مثال: "برجر البيف 1x1 بـ 3.50 %[2]s. تحب تخليه وجبة بـ 4.75 %[2]s؟"
- طلب القائمة: رتبها حسب الفئة واذكر 3-4 أصناف من كل فئة.
- طلب اقتراح: اقترح 2-3 أصناف من فئات مختلفة واسأل "شو رأيك؟".
- ترحيب: رحب بالزبون واسأله شو بحب يطلب.
- توصيل أو تواصل: اعطِ رقم التوصيل المذكور في السياق.

اقترح إضافات مناسبة (بطاطا، مشروب، صوص) لما يكون الاقتراح طبيعي، بدون إلحاح.

السياق:
`

// Build returns the system prompt for menuContext. It has no side effects.
func (p *PromptBuilder) Build(menuContext string) string {
	var b strings.Builder
	fmt.Fprintf(&b, promptTemplate, p.RestaurantName, p.Currency)
	b.WriteString(menuContext)
	return b.String()
}
