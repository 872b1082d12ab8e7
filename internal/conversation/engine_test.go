package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squareb/menu-chatbot/internal/domain"
	"github.com/squareb/menu-chatbot/internal/llm"
	"github.com/squareb/menu-chatbot/internal/menu"
)

// blockingCompleter waits for the request context to end.
type blockingCompleter struct{}

func (blockingCompleter) Complete(ctx context.Context, _ llm.Request) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func newTestEngine(t *testing.T, raw string, completer llm.Completer) *Engine {
	t.Helper()
	return NewEngine(loadedStore(t, raw), completer, DefaultEngineConfig())
}

func TestRespond_Success(t *testing.T) {
	mock := llm.NewMockClient()
	e := newTestEngine(t, squareMenu, mock)
	sess := NewSession("s1")

	reply, err := e.Respond(context.Background(), sess, "  بكم البيف؟ ")
	require.NoError(t, err)

	assert.False(t, reply.Fallback)
	assert.Equal(t, IntentPriceQuery, reply.Intent)
	assert.Contains(t, reply.Text, "Beef 1x1 — 3.50 دينار")
	require.Len(t, reply.Suggestions, DefaultMaxSuggestions)
	assert.Equal(t, "Beef 1x1", reply.Suggestions[0].Name)

	require.Equal(t, 2, sess.Len())
	assert.Equal(t, llm.RoleUser, sess.History[0].Role)
	assert.Equal(t, "بكم البيف؟", sess.History[0].Text)
	assert.Equal(t, llm.RoleAssistant, sess.History[1].Role)
	assert.Equal(t, reply.Text, sess.History[1].Text)

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "بكم البيف؟", reqs[0].User)
	assert.Equal(t, DefaultMaxTokens, reqs[0].MaxTokens)
	assert.InDelta(t, DefaultTemperature, reqs[0].Temperature, 1e-9)
	assert.Empty(t, reqs[0].History)
	assert.Contains(t, reqs[0].System, "رقم التوصيل: 0797920111")
}

func TestRespond_SendsRecentHistory(t *testing.T) {
	mock := llm.NewMockClient()
	mock.Reply = "تمام"
	e := newTestEngine(t, squareMenu, mock)
	sess := NewSession("s1")

	for i := 0; i < 5; i++ {
		_, err := e.Respond(context.Background(), sess, fmt.Sprintf("message %d", i))
		require.NoError(t, err)
	}

	reqs := mock.Requests()
	require.Len(t, reqs, 5)
	last := reqs[4].History
	require.Len(t, last, DefaultModelHistory)
	assert.Equal(t, llm.RoleUser, last[0].Role)
	assert.Equal(t, "message 1", last[0].Content)
	assert.Equal(t, "تمام", last[5].Content)
}

func TestRespond_FailureIsAbsorbed(t *testing.T) {
	tests := []struct {
		name      string
		completer llm.Completer
	}{
		{"transport error", &llm.MockClient{Err: errors.New("connection refused")}},
		{"malformed", &llm.MockClient{Err: domain.CompletionError("decode response", llm.ErrMalformedResponse)}},
		{"empty reply", &llm.MockClient{Reply: "   "}},
		{"timeout", blockingCompleter{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultEngineConfig()
			cfg.Timeout = 20 * time.Millisecond
			e := NewEngine(loadedStore(t, squareMenu), tt.completer, cfg)

			sess := NewSession("s1")
			sess.Append(cfg.HistoryLimit,
				Turn{Role: llm.RoleUser, Text: "مرحبا"},
				Turn{Role: llm.RoleAssistant, Text: "أهلين"},
			)
			before := append([]Turn(nil), sess.History...)

			reply, err := e.Respond(context.Background(), sess, "بكم البيف؟")
			require.NoError(t, err)
			assert.True(t, reply.Fallback)
			assert.Equal(t, DefaultFallbackReply, reply.Text)
			assert.NotNil(t, reply.Suggestions)
			assert.Empty(t, reply.Suggestions)
			assert.Equal(t, IntentPriceQuery, reply.Intent)
			assert.Equal(t, before, sess.History)
		})
	}
}

func TestRespond_CustomFallback(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.FallbackReply = "sorry"
	e := NewEngine(loadedStore(t, squareMenu), &llm.MockClient{Err: errors.New("down")}, cfg)

	reply, err := e.Respond(context.Background(), NewSession("s"), "hi")
	require.NoError(t, err)
	assert.Equal(t, "sorry", reply.Text)
}

func TestRespond_BlankMessage(t *testing.T) {
	e := newTestEngine(t, squareMenu, llm.NewMockClient())
	sess := NewSession("s1")

	_, err := e.Respond(context.Background(), sess, " \n\t ")
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeValidation))
	assert.Zero(t, sess.Len())
}

func TestRespond_SessionBounded(t *testing.T) {
	mock := llm.NewMockClient()
	mock.Reply = "ok"
	e := newTestEngine(t, squareMenu, mock)
	sess := NewSession("s1")

	for i := 0; i < DefaultHistoryLimit+5; i++ {
		_, err := e.Respond(context.Background(), sess, fmt.Sprintf("fries %d", i))
		require.NoError(t, err)
		assert.LessOrEqual(t, sess.Len(), DefaultHistoryLimit)
	}
	assert.Equal(t, DefaultHistoryLimit, sess.Len())
	assert.Equal(t, fmt.Sprintf("fries %d", DefaultHistoryLimit+4), sess.History[DefaultHistoryLimit-2].Text)
}

func TestRespond_BeefScenario(t *testing.T) {
	e := newTestEngine(t, "BEEF 1x1 - 3.50", llm.NewMockClient())

	reply, err := e.Respond(context.Background(), NewSession("s"), "بيف")
	require.NoError(t, err)
	require.NotEmpty(t, reply.Suggestions)
	assert.Equal(t, "BEEF 1x1", reply.Suggestions[0].Name)
	assert.Equal(t, "3.50", reply.Suggestions[0].PriceRegular.String())
}

func TestRespond_ChickenScenario(t *testing.T) {
	mock := llm.NewMockClient()
	e := newTestEngine(t, squareMenu, mock)

	reply, err := e.Respond(context.Background(), NewSession("s"), "بكم الشكن؟")
	require.NoError(t, err)
	assert.Equal(t, IntentPriceQuery, reply.Intent)
	require.NotEmpty(t, reply.Suggestions)
	for _, it := range reply.Suggestions {
		assert.Equal(t, "Chicken", it.Subcategory)
	}
	assert.Contains(t, mock.Requests()[0].System, "Chicken 1x1 — 3.25 دينار")
}

func TestRespond_GreetingHasNoSuggestions(t *testing.T) {
	e := newTestEngine(t, squareMenu, llm.NewMockClient())

	reply, err := e.Respond(context.Background(), NewSession("s"), "مرحبا")
	require.NoError(t, err)
	assert.Equal(t, IntentGreeting, reply.Intent)
	assert.Empty(t, reply.Suggestions)
	assert.NotEmpty(t, reply.Text)
}

func TestRespond_MenuNotLoaded(t *testing.T) {
	mock := llm.NewMockClient()
	cfg := DefaultEngineConfig()
	cfg.DefaultPhone = "0790000000"
	e := NewEngine(menu.NewStore(menu.StaticSource(squareMenu)), mock, cfg)

	reply, err := e.Respond(context.Background(), NewSession("s"), "بكم البيف؟")
	require.NoError(t, err)
	assert.False(t, reply.Fallback)
	assert.Empty(t, reply.Suggestions)

	system := mock.Requests()[0].System
	assert.Contains(t, system, NoItemsMarker)
	assert.Contains(t, system, "رقم التوصيل: 0790000000")
}

func TestRespond_ConcurrentSessions(t *testing.T) {
	mock := llm.NewMockClient()
	mock.Reply = "ok"
	e := newTestEngine(t, squareMenu, mock)

	var wg sync.WaitGroup
	sessions := make([]*Session, 16)
	for i := range sessions {
		sessions[i] = NewSession(fmt.Sprintf("s%d", i))
		wg.Add(1)
		go func(sess *Session) {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				_, err := e.Respond(context.Background(), sess, "fries")
				assert.NoError(t, err)
			}
		}(sessions[i])
	}
	wg.Wait()

	for _, sess := range sessions {
		assert.Equal(t, 10, sess.Len())
	}
	assert.Len(t, mock.Requests(), 80)
}

func TestEngine_Prepare(t *testing.T) {
	e := newTestEngine(t, squareMenu, llm.NewMockClient())

	intent, items, system := e.Prepare("ايش عندكم")
	assert.Equal(t, IntentFullMenu, intent)
	assert.Len(t, items, 8)
	assert.True(t, strings.Contains(system, "\nDRINKS:\n"))
}

func TestSession_AppendAndRecent(t *testing.T) {
	sess := NewSession("s")
	for i := 0; i < 5; i++ {
		sess.Append(4, Turn{Role: llm.RoleUser, Text: fmt.Sprint(i)})
	}
	require.Equal(t, 4, sess.Len())
	assert.Equal(t, "1", sess.History[0].Text)

	recent := sess.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "3", recent[0].Content)
	assert.Equal(t, "4", recent[1].Content)

	assert.Nil(t, sess.Recent(0))
	assert.Len(t, sess.Recent(100), 4)
}
