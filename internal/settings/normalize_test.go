package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "strips trailing comment",
			in:   "CHAT_PROVIDER=anthropic // anthropic | openai\n",
			want: "CHAT_PROVIDER='anthropic'\n",
		},
		{
			name: "keeps url schemes",
			in:   "OPENAI_BASE_URL=https://api.example.com/v1 // proxy\n",
			want: "OPENAI_BASE_URL='https://api.example.com/v1'\n",
		},
		{
			name: "drops comment lines blanks and junk",
			in:   "// header\n# hash comment\n\nnot a setting\nAI_MAX_TOKENS=4096\n",
			want: "AI_MAX_TOKENS='4096'\n",
		},
		{
			name: "comment without leading space",
			in:   "AI_MAX_TOKENS=4096//max\nCHAT_PROVIDER=anthropic//the vendor\n",
			want: "AI_MAX_TOKENS='4096'\nCHAT_PROVIDER='anthropic'\n",
		},
		{
			name: "comment after url",
			in:   "ANTHROPIC_BASE_URL=http://127.0.0.1:9999//local\n",
			want: "ANTHROPIC_BASE_URL='http://127.0.0.1:9999'\n",
		},
		{
			name: "first occurrence wins",
			in:   "AI_TEMPERATURE=0.1\nAI_TEMPERATURE=0.9\n",
			want: "AI_TEMPERATURE='0.1'\n",
		},
		{
			name: "keeps equals signs inside values",
			in:   "OPENAI_API_KEY=abc==\n",
			want: "OPENAI_API_KEY='abc=='\n",
		},
		{
			name: "protects dollar and hash",
			in:   "ANTHROPIC_API_KEY=sk-$HOME#1\n",
			want: "ANTHROPIC_API_KEY='sk-$HOME#1'\n",
		},
		{
			name: "drops invalid keys",
			in:   "1BAD=x\nGOOD KEY=y\nexport PROMPT_STEPS=a.md\n",
			want: "PROMPT_STEPS='a.md'\n",
		},
		{
			name: "empty value",
			in:   "OPENAI_API_KEY=\r\n",
			want: "OPENAI_API_KEY=''\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(Normalize([]byte(tt.in))))
		})
	}
}
