package console

import (
	"strings"
	"testing"
)

func render(links []PageLink) string {
	parts := make([]string, len(links))
	for i, l := range links {
		parts[i] = l.String()
	}
	return strings.Join(parts, " ")
}

func TestPaginationRange(t *testing.T) {
	cases := []struct {
		current, total int
		want           string
	}{
		{1, 0, ""},
		{1, 1, "1"},
		{1, 3, "1 2 3"},
		{1, 10, "1 2 ... 10"},
		{5, 10, "1 ... 4 5 6 ... 10"},
		{3, 10, "1 2 3 4 ... 10"},
		{4, 10, "1 2 3 4 5 ... 10"},
		{10, 10, "1 ... 9 10"},
		{8, 10, "1 ... 7 8 9 10"},
		{99, 5, "1 ... 4 5"},
	}
	for _, tc := range cases {
		if got := render(PaginationRange(tc.current, tc.total)); got != tc.want {
			t.Fatalf("PaginationRange(%d, %d): expected %q, got %q", tc.current, tc.total, tc.want, got)
		}
	}
}

func TestPanelMessageKeys(t *testing.T) {
	if PanelReady.MessageKey() != "" || PanelEmpty.MessageKey() != "empty" || PanelError.MessageKey() != "error" {
		t.Fatal("unexpected panel keys")
	}
	if Describe(nil, 3) != PanelReady {
		t.Fatal("items render ready")
	}
}
