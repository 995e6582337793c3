package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/lehigh-university-libraries/planmarks/internal/providers"
)

func TestAnswerText(t *testing.T) {
	tests := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		want    string
		wantErr bool
	}{
		{
			name: "joined parts",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"bboxes":`), genai.Text(`[]}`)}},
			}}},
			want: `{"bboxes":[]}`,
		},
		{name: "nil", resp: nil, wantErr: true},
		{name: "no candidates", resp: &genai.GenerateContentResponse{}, wantErr: true},
		{
			name: "truncated",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				FinishReason: genai.FinishReasonMaxTokens,
				Content:      &genai.Content{Parts: []genai.Part{genai.Text(`{"bb`)}},
			}}},
			wantErr: true,
		},
		{
			name:    "no text",
			resp:    &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []genai.Part{genai.Blob{MIMEType: "image/png"}}}}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := answerText(tt.resp)
			if (err != nil) != tt.wantErr {
				t.Fatalf("answerText() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("answerText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractTextWithoutKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	if _, err := New().ExtractText(context.Background(), providers.Config{Model: "gemini-1.5-flash"}); err == nil {
		t.Error("Expected an error without an API key")
	}
}
