package service

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestPreview(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		max  int
		want string
	}{
		{name: "short body untouched", body: "zażółć gęślą jaźń", max: 120, want: "zażółć gęślą jaźń"},
		{name: "whitespace trimmed", body: "  uwaga  ", max: 10, want: "uwaga"},
		{name: "truncates with ellipsis", body: "zażółć gęślą jaźń", max: 9, want: "zażółć..."},
		{name: "tiny max has no ellipsis", body: "gęślą", max: 2, want: "gę"},
		{name: "multibyte run", body: strings.Repeat("ą", 10), max: 7, want: strings.Repeat("ą", 4) + "..."},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := preview(tt.body, tt.max)
			if got != tt.want {
				t.Fatalf("preview(%q, %d) = %q, want %q", tt.body, tt.max, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Fatalf("preview(%q, %d) = %q is not valid UTF-8", tt.body, tt.max, got)
			}
		})
	}
}
