package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMenuPath = "testdata/menu.txt"

func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("MENU_TXT", "")
	var out, errOut bytes.Buffer
	base := []string{"--menu", testMenuPath, "--provider", "mock", "--no-color"}
	err := run(append(base, args...), strings.NewReader(stdin), &out, &errOut)
	return out.String(), errOut.String(), err
}

func decodeJSON(t *testing.T, raw string, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(raw), v), raw)
}

func TestVersion(t *testing.T) {
	out, _, err := runCLI(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "chatbot-cli "+version+"\n", out)

	out, _, err = runCLI(t, "", "version", "--json")
	require.NoError(t, err)
	var v map[string]string
	decodeJSON(t, out, &v)
	assert.Equal(t, version, v["version"])
}

func TestSearch(t *testing.T) {
	out, _, err := runCLI(t, "", "search", "بيبسي", "--json")
	require.NoError(t, err)

	var resp struct {
		Query     string     `json:"query"`
		Threshold float64    `json:"threshold"`
		Results   []itemView `json:"results"`
	}
	decodeJSON(t, out, &resp)
	assert.Equal(t, "بيبسي", resp.Query)
	assert.Equal(t, 60.0, resp.Threshold)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "Pepsi", resp.Results[0].Name)
	assert.Equal(t, "0.75", resp.Results[0].Price)

	out, _, err = runCLI(t, "", "search", "fries", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Fries")
	assert.Contains(t, out, "Score")
}

func TestSearch_NoHits(t *testing.T) {
	out, _, err := runCLI(t, "", "search", "sushi platter", "--threshold", "95")
	require.NoError(t, err)
	assert.Contains(t, out, "No items match")
}

func TestMenu(t *testing.T) {
	out, _, err := runCLI(t, "", "menu", "--category", "drinks", "--json")
	require.NoError(t, err)

	var resp struct {
		Categories    []string   `json:"categories"`
		DeliveryPhone string     `json:"delivery_phone"`
		Items         []itemView `json:"items"`
	}
	decodeJSON(t, out, &resp)
	assert.Equal(t, "0797920111", resp.DeliveryPhone)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "Pepsi", resp.Items[0].Name)
	assert.Equal(t, "Water", resp.Items[1].Name)

	_, _, err = runCLI(t, "", "menu", "--category", "desserts")
	assert.Error(t, err)
}

func TestMenu_Table(t *testing.T) {
	out, _, err := runCLI(t, "", "menu")
	require.NoError(t, err)
	assert.Contains(t, out, "Beef 1x1")
	assert.Contains(t, out, "بطاطا بالجبنة")
	assert.Contains(t, out, "┌")
}

func TestClassify(t *testing.T) {
	out, _, err := runCLI(t, "", "classify", "بكم البيف؟", "--json", "--prompt")
	require.NoError(t, err)

	var resp struct {
		Intent  string     `json:"intent"`
		Items   []itemView `json:"items"`
		Context string     `json:"context"`
		Prompt  string     `json:"prompt"`
	}
	decodeJSON(t, out, &resp)
	assert.Equal(t, "price_query", resp.Intent)
	require.NotEmpty(t, resp.Items)
	assert.True(t, strings.HasPrefix(resp.Items[0].Name, "Beef"))
	assert.Contains(t, resp.Context, "رقم التوصيل: 0797920111")
	assert.Contains(t, resp.Prompt, "Square B")
	assert.Contains(t, resp.Prompt, resp.Context)
}

func TestValidate(t *testing.T) {
	out, _, err := runCLI(t, "", "validate", "--json")
	require.NoError(t, err)

	var resp struct {
		Stats struct {
			Items   int `json:"items"`
			Skipped int `json:"skipped"`
		} `json:"stats"`
		Warnings []struct {
			Line int    `json:"line"`
			Text string `json:"text"`
		} `json:"warnings"`
	}
	decodeJSON(t, out, &resp)
	assert.Positive(t, resp.Stats.Items)
	assert.Equal(t, 1, resp.Stats.Skipped)
	require.Len(t, resp.Warnings, 1)
	assert.Contains(t, resp.Warnings[0].Text, "Onion Rings")

	_, _, err = runCLI(t, "", "validate", "--strict")
	assert.Error(t, err)
}

func TestValidate_MissingFile(t *testing.T) {
	_, _, err := runCLI(t, "", "validate", "testdata/missing.txt")
	assert.Error(t, err)
}

func TestChat(t *testing.T) {
	stdin := "مرحبا\n\nبكم البيبسي؟\n/exit\nnever read\n"
	out, _, err := runCLI(t, stdin, "chat", "--json")
	require.NoError(t, err)

	dec := json.NewDecoder(strings.NewReader(out))
	var turns []turnView
	for dec.More() {
		var tv turnView
		require.NoError(t, dec.Decode(&tv))
		turns = append(turns, tv)
	}

	require.Len(t, turns, 2)
	assert.Equal(t, "greeting", turns[0].Intent)
	assert.Equal(t, "price_query", turns[1].Intent)
	assert.False(t, turns[1].Fallback)
	assert.Contains(t, turns[1].Reply, "Pepsi")
}

func TestChat_Plain(t *testing.T) {
	out, _, err := runCLI(t, "شو عندكم؟\n/reset\n", "chat")
	require.NoError(t, err)
	assert.Contains(t, out, "bot> ")
	assert.Contains(t, out, "New session")
}

func TestReplay(t *testing.T) {
	out, _, err := runCLI(t, "", "replay", "--file", "testdata/messages.txt", "--json")
	require.NoError(t, err)

	var resp struct {
		Messages  int        `json:"messages"`
		Fallbacks int        `json:"fallbacks"`
		Turns     []turnView `json:"turns"`
	}
	decodeJSON(t, out, &resp)
	assert.Equal(t, 4, resp.Messages)
	assert.Zero(t, resp.Fallbacks)

	intents := make([]string, 0, len(resp.Turns))
	for _, tv := range resp.Turns {
		intents = append(intents, tv.Intent)
	}
	assert.Equal(t, []string{"greeting", "price_query", "full_menu", "delivery"}, intents)
}

func TestReplay_RequiresFile(t *testing.T) {
	_, _, err := runCLI(t, "", "replay")
	assert.Error(t, err)

	_, _, err = runCLI(t, "", "replay", "--file", "testdata/missing.txt")
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b", truncate("a\n  b", 10))
	got := truncate(strings.Repeat("x", 20), 10)
	assert.Equal(t, 10, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestTable_AlignsArabic(t *testing.T) {
	var out bytes.Buffer
	ui := NewUI(&out, &out, false, true)
	ui.Table([]string{"Name", "Arabic"}, [][]string{{"Fries", "بطاطا"}, {"Cheese Fries", "بطاطا بالجبنة"}})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, len([]rune(lines[0])), len([]rune(lines[3])))
	assert.Equal(t, len([]rune(lines[3])), len([]rune(lines[4])))
}
