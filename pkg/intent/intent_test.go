package intent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func TestIntent_Validate(t *testing.T) {
	cases := []struct {
		name    string
		intent  Intent
		wantErr bool
	}{
		{
			name: "valid transfer",
			intent: Intent{Type: TypeTransfer, Request: Request{
				Recipient: "alice.eth", Token: "USDC", Amount: "10", Chain: "sepolia",
			}},
		},
		{
			name: "valid swap",
			intent: Intent{Type: TypeSwap, Request: Request{
				FromToken: "USDC", ToToken: "DAI", Amount: "100", Chain: "mainnet",
			}},
		},
		{
			name:   "valid buy",
			intent: Intent{Type: TypeBuy, Request: Request{Token: "ETH", FiatAmount: "50", Chain: "base"}},
		},
		{
			name:    "transfer missing recipient",
			intent:  Intent{Type: TypeTransfer, Request: Request{Token: "USDC", Amount: "10", Chain: "sepolia"}},
			wantErr: true,
		},
		{
			name:    "swap missing chain",
			intent:  Intent{Type: TypeSwap, Request: Request{FromToken: "USDC", ToToken: "DAI", Amount: "1"}},
			wantErr: true,
		},
		{
			name:    "unknown type",
			intent:  Intent{Type: "stake", Request: Request{Chain: "mainnet"}},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.intent.Validate()
			if tc.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestHTTPClassifier_Classify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/classify" {
			t.Errorf("path = %s, want /classify", r.URL.Path)
		}
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req["question"] == "" {
			t.Error("expected question in request body")
		}
		json.NewEncoder(w).Encode(Intent{
			Type: TypeSwap,
			Request: Request{
				FromToken: "USDC",
				ToToken:   "DAI",
				Amount:    "100",
				Chain:     "sepolia",
			},
		})
	}))
	defer server.Close()

	c := NewHTTPClassifier(server.URL)
	result, err := c.Classify(context.Background(), "swap 100 usdc for dai on sepolia")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if result.Type != TypeSwap {
		t.Errorf("Type = %s, want %s", result.Type, TypeSwap)
	}
	if result.Request.FromToken != "USDC" || result.Request.ToToken != "DAI" {
		t.Errorf("pair = %s -> %s", result.Request.FromToken, result.Request.ToToken)
	}
}

func TestHTTPClassifier_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewHTTPClassifier(server.URL)
	if _, err := c.Classify(context.Background(), "send 1 eth to bob"); err == nil {
		t.Fatal("expected error on server failure")
	}
}

func TestHTTPClassifier_RejectsIncompleteIntent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Intent{Type: TypeTransfer, Request: Request{Amount: "10"}})
	}))
	defer server.Close()

	c := NewHTTPClassifier(server.URL)
	if _, err := c.Classify(context.Background(), "send stuff"); err == nil {
		t.Fatal("expected validation error for incomplete intent")
	}
}

type fakeCompleter struct {
	content string
	err     error
}

func (f *fakeCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.content}},
		},
	}, nil
}

func TestOpenAIClassifier_Classify(t *testing.T) {
	c := &OpenAIClassifier{
		client: &fakeCompleter{content: "```json\n" +
			`{"transaction_type":"transfer","response":{"recipient":"alice.eth","token":"USDC","amount":"25","chain":"mainnet"}}` +
			"\n```"},
		model: openai.GPT4oMini,
	}

	result, err := c.Classify(context.Background(), "send 25 usdc to alice.eth")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if result.Type != TypeTransfer {
		t.Errorf("Type = %s, want %s", result.Type, TypeTransfer)
	}
	if result.Request.Recipient != "alice.eth" {
		t.Errorf("Recipient = %s, want alice.eth", result.Request.Recipient)
	}
}

func TestOpenAIClassifier_RejectsProse(t *testing.T) {
	c := &OpenAIClassifier{
		client: &fakeCompleter{content: "Sure! You want to transfer tokens."},
		model:  openai.GPT4oMini,
	}

	if _, err := c.Classify(context.Background(), "send tokens"); err == nil {
		t.Fatal("expected parse error for non-JSON output")
	}
}
