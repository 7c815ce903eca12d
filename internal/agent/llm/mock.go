package llm

import (
	"context"
	"iter"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// MockModel is a scripted model.LLM implementation for router/tool-use
// tests: no network call, no API key, a canned reply (or a queue of
// replies consumed in order) so tests can assert on a known transcript
// the way the teacher's tests exercise repositories with in-memory
// fakes rather than live services.
type MockModel struct {
	replies []string
	next    int
}

// NewMockModel builds a MockModel. With no replies supplied, every call
// returns an empty assistant turn.
func NewMockModel(replies []string) *MockModel {
	return &MockModel{replies: replies}
}

func (m *MockModel) Name() string {
	return "mock"
}

func (m *MockModel) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		text := ""
		if m.next < len(m.replies) {
			text = m.replies[m.next]
			m.next++
		}
		resp := &model.LLMResponse{
			Content: &genai.Content{
				Role:  genai.RoleModel,
				Parts: []*genai.Part{genai.NewPartFromText(text)},
			},
		}
		yield(resp, nil)
	}
}
