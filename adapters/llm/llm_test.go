package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/drx-chat/config"
	"github.com/satriahrh/drx-chat/domain/repositories"
)

func testMessages() []repositories.ChatMessage {
	return []repositories.ChatMessage{
		{Role: repositories.UserRole, Content: "مرحبا"},
		{Role: repositories.AssistantRole, Content: "أهلاً"},
		{Role: repositories.UserRole, Content: "ما هي عاصمة فرنسا؟"},
	}
}

func TestOpenAILLM_Invoke(t *testing.T) {
	var received struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"c1","object":"chat.completion","model":"gpt-test","choices":[{"index":0,"message":{"role":"assistant","content":"باريس"},"finish_reason":"stop"}],"usage":{"total_tokens":12}}`)
	}))
	defer server.Close()

	llm, err := NewOpenAILLM(OpenAIConfig{APIKey: "test", BaseURL: server.URL, Model: "gpt-test"}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewOpenAILLM() error = %v", err)
	}

	result, err := llm.Invoke(context.Background(), repositories.InvokeParams{Messages: testMessages()})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	content, ok := result.FirstContent()
	if !ok || content != "باريس" {
		t.Errorf("Expected باريس, got %q (present=%v)", content, ok)
	}

	if received.Model != "gpt-test" {
		t.Errorf("Expected model gpt-test, got %s", received.Model)
	}
	if len(received.Messages) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(received.Messages))
	}
	wantRoles := []string{"user", "assistant", "user"}
	for i, msg := range received.Messages {
		if msg.Role != wantRoles[i] {
			t.Errorf("Message %d role = %s, want %s", i, msg.Role, wantRoles[i])
		}
	}
}

func TestOpenAILLM_InvokeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":{"message":"boom","type":"server_error"}}`)
	}))
	defer server.Close()

	llm, err := NewOpenAILLM(OpenAIConfig{APIKey: "test", BaseURL: server.URL, Model: "gpt-test"}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewOpenAILLM() error = %v", err)
	}

	if _, err := llm.Invoke(context.Background(), repositories.InvokeParams{Messages: testMessages()}); err == nil {
		t.Error("Expected error from failing upstream")
	}
}

func TestNewOpenAILLM_RequiresKeyAndModel(t *testing.T) {
	if _, err := NewOpenAILLM(OpenAIConfig{Model: "m"}, zap.NewNop()); err == nil {
		t.Error("Expected error for missing key")
	}
	if _, err := NewOpenAILLM(OpenAIConfig{APIKey: "k"}, zap.NewNop()); err == nil {
		t.Error("Expected error for missing model")
	}
}

func TestValidateGeminiConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  GeminiConfig
		wantErr bool
	}{
		{"valid", GeminiConfig{APIKey: "k"}, false},
		{"missing key", GeminiConfig{}, true},
		{"temperature too high", GeminiConfig{APIKey: "k", Temperature: 3}, true},
		{"negative tokens", GeminiConfig{APIKey: "k", MaxOutputTokens: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGeminiConfig(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateGeminiConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConvertToGeminiFormat(t *testing.T) {
	messages := append([]repositories.ChatMessage{
		{Role: repositories.SystemRole, Content: "أنت مساعد مفيد"},
	}, testMessages()...)

	system, contents := convertToGeminiFormat(messages)

	if system == nil || len(system.Parts) != 1 || system.Parts[0].Text != "أنت مساعد مفيد" {
		t.Errorf("Expected system instruction, got %+v", system)
	}
	if len(contents) != 3 {
		t.Fatalf("Expected 3 contents, got %d", len(contents))
	}
	wantRoles := []string{string(genai.RoleUser), string(genai.RoleModel), string(genai.RoleUser)}
	for i, content := range contents {
		if content.Role != wantRoles[i] {
			t.Errorf("Content %d role = %s, want %s", i, content.Role, wantRoles[i])
		}
		if content.Parts[0].Text != testMessages()[i].Content {
			t.Errorf("Content %d text = %s", i, content.Parts[0].Text)
		}
	}
}

func TestConvertFromGeminiResponse(t *testing.T) {
	response := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Role: string(genai.RoleModel), Parts: []*genai.Part{{Text: "با"}, {Text: "ريس"}}}},
		},
	}

	content, ok := convertFromGeminiResponse(response).FirstContent()
	if !ok || content != "باريس" {
		t.Errorf("Expected باريس, got %q", content)
	}

	if _, ok := convertFromGeminiResponse(&genai.GenerateContentResponse{}).FirstContent(); ok {
		t.Error("Expected no content for empty response")
	}

	if _, ok := convertFromGeminiResponse(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}).FirstContent(); ok {
		t.Error("Expected no content for candidate without content")
	}
}

func TestGeminiLLM_Invoke(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"باريس"}]}}]}`)
	}))
	defer server.Close()

	llm, err := NewGeminiLLM(context.Background(), GeminiConfig{APIKey: "test", BaseURL: server.URL}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewGeminiLLM() error = %v", err)
	}

	result, err := llm.Invoke(context.Background(), repositories.InvokeParams{Messages: testMessages()})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	if content, _ := result.FirstContent(); content != "باريس" {
		t.Errorf("Expected باريس, got %q", content)
	}
}

func TestMockLLM_Invoke(t *testing.T) {
	result, err := NewMockLLM().Invoke(context.Background(), repositories.InvokeParams{Messages: testMessages()})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	content, ok := result.FirstContent()
	if !ok || !strings.Contains(content, "ما هي عاصمة فرنسا؟") {
		t.Errorf("Expected reply to quote the last message, got %q", content)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewMockLLM().Invoke(ctx, repositories.InvokeParams{}); err == nil {
		t.Error("Expected error for cancelled context")
	}
}

func TestNew_SelectsProvider(t *testing.T) {
	llm, err := New(context.Background(), config.LLM{Provider: config.ProviderMock}, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, ok := llm.(*MockLLM); !ok {
		t.Errorf("Expected *MockLLM, got %T", llm)
	}

	llm, err = New(context.Background(), config.LLM{Provider: config.ProviderOpenAI, OpenAIAPIKey: "k", OpenAIModel: "m"}, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, ok := llm.(*OpenAILLM); !ok {
		t.Errorf("Expected *OpenAILLM, got %T", llm)
	}

	if _, err := New(context.Background(), config.LLM{Provider: "other"}, zap.NewNop()); err == nil {
		t.Error("Expected error for unknown provider")
	}
}
