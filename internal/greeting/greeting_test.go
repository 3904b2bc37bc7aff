package greeting

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/praneethkvs/Memento/internal/model"
	"github.com/praneethkvs/Memento/internal/store"
)

func intPtr(n int) *int { return &n }

func TestBuildPrompt(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{
			name: "birthday with age",
			req: Request{PersonName: "Alice", EventType: model.EventBirthday, Relation: model.RelationFriend,
				Age: intPtr(34), Tone: model.ToneCheerful, Length: model.LengthShort},
			want: "Generate a short cheerful birthday message for Alice who is turning 34. They are my friend. " +
				"Keep it appropriate for sending as a personal message. Make it upbeat and enthusiastic. Keep it to 1-2 sentences.",
		},
		{
			name: "anniversary ordinal",
			req: Request{PersonName: "Sam & Jo", EventType: model.EventAnniversary, Relation: model.RelationFamily,
				Age: intPtr(22), Tone: model.ToneHeartfelt, Length: model.LengthMedium},
			want: "Generate a medium heartfelt anniversary message for Sam & Jo celebrating their 22nd anniversary. " +
				"They are my family. Keep it appropriate for sending as a personal message. Make it warm and sincere. Keep it to 3-4 sentences.",
		},
		{
			name: "unknown year",
			req: Request{PersonName: "Bo", EventType: model.EventBirthday, Relation: model.RelationColleague,
				Tone: model.ToneFormal, Length: model.LengthLong},
			want: "Generate a long formal birthday message for Bo. They are my colleague. " +
				"Keep it appropriate for sending as a personal message. Keep it respectful and professional. Make it 5-6 sentences with more detail.",
		},
		{
			name: "zero age omitted",
			req: Request{PersonName: "Baby", EventType: model.EventBirthday, Relation: model.RelationFamily,
				Age: intPtr(0), Tone: model.ToneFunny, Length: model.LengthShort},
			want: "Generate a short funny birthday message for Baby. They are my family. " +
				"Keep it appropriate for sending as a personal message. Add some light humor appropriate for the relationship. Keep it to 1-2 sentences.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildPrompt(tt.req); got != tt.want {
				t.Errorf("BuildPrompt =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

// generateRequest is the part of the generateContent body the fake server reads.
type generateRequest struct {
	Contents []struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
}

func newGeminiServer(t *testing.T, status int, body string, gotPrompt *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/test-model:generateContent" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("X-goog-api-key"); got != "test-key" {
			t.Errorf("api key = %q, want test-key", got)
		}
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if gotPrompt != nil && len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 {
			*gotPrompt = req.Contents[0].Parts[0].Text
		}
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGeminiGenerate(t *testing.T) {
	var prompt string
	srv := newGeminiServer(t, http.StatusOK,
		`{"candidates":[{"content":{"parts":[{"text":"  Happy birthday, Alice!\n"}]}}]}`, &prompt)

	g := NewGeminiClient("test-key", WithBaseURL(srv.URL+"/"), WithModel("test-model"), WithHTTPClient(srv.Client()))
	text, err := g.Generate(context.Background(), "say hi")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "Happy birthday, Alice!" {
		t.Errorf("text = %q", text)
	}
	if prompt != "say hi" {
		t.Errorf("prompt = %q", prompt)
	}
}

func TestGeminiErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{}`},
		{"no candidates", http.StatusOK, `{"candidates":[]}`},
		{"blank text", http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"   "}]}}]}`},
		{"bad json", http.StatusOK, `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newGeminiServer(t, tt.status, tt.body, nil)
			g := NewGeminiClient("test-key", WithBaseURL(srv.URL), WithModel("test-model"))
			_, err := g.Generate(context.Background(), "x")
			if !IsGenerationError(err) {
				t.Errorf("err = %v, want GenerationError", err)
			}
		})
	}
}

func TestGeminiNotConfigured(t *testing.T) {
	g := NewGeminiClient("")
	if g.Configured() {
		t.Error("expected not configured")
	}
	if _, err := g.Generate(context.Background(), "x"); !IsGenerationError(err) {
		t.Errorf("err = %v, want GenerationError", err)
	}
}

type fakeGenerator struct {
	prompt string
	text   string
	err    error
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.text, f.err
}

func testEvent() model.Event {
	year := 1992
	return model.Event{
		ID:         7,
		PersonName: "Alice",
		EventType:  model.EventBirthday,
		EventDate:  "1992-03-15",
		MonthDay:   "03-15",
		EventYear:  &year,
		HasYear:    true,
		Relation:   model.RelationFriend,
	}
}

func newTestService(gen Generator) (*Service, *store.MemoryMessages) {
	messages := store.NewMemoryMessages()
	return NewService(gen, messages, nil, slog.New(slog.NewTextHandler(io.Discard, nil))), messages
}

func TestRegenerateStoresMessage(t *testing.T) {
	gen := &fakeGenerator{text: "Happy birthday!"}
	svc, messages := newTestService(gen)
	today := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	msg, err := svc.Regenerate(context.Background(), 1, testEvent(), "cheerful", "short", today)
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if msg.Message != "Happy birthday!" || msg.Tone != model.ToneCheerful || msg.Length != model.LengthShort {
		t.Errorf("got %+v", msg)
	}
	if !strings.Contains(gen.prompt, "who is turning 34") {
		t.Errorf("prompt = %q, want age 34", gen.prompt)
	}

	stored, _ := messages.GetMessage(context.Background(), 1, 7)
	if stored == nil || stored.Message != "Happy birthday!" {
		t.Errorf("stored = %+v", stored)
	}
}

func TestRegenerateFailureKeepsPrevious(t *testing.T) {
	gen := &fakeGenerator{text: "first"}
	svc, messages := newTestService(gen)
	ctx := context.Background()
	today := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	if _, err := svc.Regenerate(ctx, 1, testEvent(), "formal", "long", today); err != nil {
		t.Fatalf("first: %v", err)
	}

	gen.err = errors.New("connection refused")
	_, err := svc.Regenerate(ctx, 1, testEvent(), "funny", "short", today)
	if !IsGenerationError(err) {
		t.Fatalf("err = %v, want GenerationError", err)
	}

	stored, _ := messages.GetMessage(ctx, 1, 7)
	if stored == nil || stored.Message != "first" || stored.Tone != model.ToneFormal {
		t.Errorf("stored = %+v, want the first message", stored)
	}
}

func TestRegenerateValidatesOptions(t *testing.T) {
	gen := &fakeGenerator{text: "x"}
	svc, _ := newTestService(gen)
	today := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	if _, err := svc.Regenerate(context.Background(), 1, testEvent(), "sarcastic", "short", today); !model.IsValidation(err) {
		t.Errorf("bad tone err = %v, want validation error", err)
	}
	if _, err := svc.Regenerate(context.Background(), 1, testEvent(), "cheerful", "epic", today); !model.IsValidation(err) {
		t.Errorf("bad length err = %v, want validation error", err)
	}
	if gen.prompt != "" {
		t.Error("generator called for invalid options")
	}
}
