package gerrit

import "testing"

func TestQuoteArg(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "deadbeef", "'deadbeef'"},
		{"spaces", "fix the bug", "'fix the bug'"},
		{"double quotes", `say "hi"`, `'say "hi"'`},
		{"single quote", "it's", `'it'\''s'`},
		{"shell metacharacters", "a;rm -rf $HOME `id`", "'a;rm -rf $HOME `id`'"},
		{"empty", "", "''"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := quoteArg(tc.input); got != tc.want {
				t.Errorf("quoteArg(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}
