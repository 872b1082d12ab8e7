package llm

import (
	"context"
	"strings"
	"sync"
)

// MockClient answers locally without a network call. It echoes the menu
// context lines it was given so the rest of the pipeline can be exercised
// in development and tests.
type MockClient struct {
	mu       sync.Mutex
	requests []Request
	// Reply, when set, is returned verbatim.
	Reply string
	// Err, when set, is returned instead of a reply.
	Err error
}

// NewMockClient creates a mock backend.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Complete records the request and returns a canned reply.
func (m *MockClient) Complete(ctx context.Context, req Request) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	reply, err := m.Reply, m.Err
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", classifyContextErr(ctx, err)
	}
	if err != nil {
		return "", err
	}
	if reply != "" {
		return reply, nil
	}

	var lines []string
	for _, line := range strings.Split(req.System, "\n") {
		// Menu context lines are indented; prompt rules are not.
		if strings.HasPrefix(line, "  - ") {
			lines = append(lines, strings.TrimSpace(line))
		}
		if len(lines) == 3 {
			break
		}
	}
	if len(lines) == 0 {
		return "أهلاً فيك! كيف بقدر أساعدك؟", nil
	}
	return "هاي الأصناف المناسبة:\n" + strings.Join(lines, "\n"), nil
}

// Requests returns a copy of every request seen so far.
func (m *MockClient) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}
