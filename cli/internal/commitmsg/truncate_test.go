package commitmsg

import (
	"strings"
	"testing"
	"unicode/utf8"
)

// section builds one file section of roughly lines*len(name) bytes.
func section(name string, lines int) string {
	return "diff --git a/" + name + " b/" + name + "\n@@ -1 +1 @@\n" +
		strings.Repeat("+"+name+" content\n", lines)
}

func TestTruncate_withinBudget_unchanged(t *testing.T) {
	t.Parallel()
	d := section("a.go", 3)
	if got := Truncate(d, len(d)); got != d {
		t.Errorf("Truncate at exact budget changed input: %q", got)
	}
	once := Truncate(d, 3000)
	if twice := Truncate(once, 3000); twice != once {
		t.Errorf("Truncate not idempotent on small input")
	}
}

func TestTruncate_singleSection(t *testing.T) {
	t.Parallel()
	d := section("big.go", 500)
	const budget = 100
	got := Truncate(d, budget)
	if len(got) != budget+len(TruncatedMarker) {
		t.Fatalf("len = %d, want %d", len(got), budget+len(TruncatedMarker))
	}
	if got[:budget] != d[:budget] {
		t.Errorf("prefix mismatch: %q", got[:budget])
	}
	if !strings.HasSuffix(got, TruncatedMarker) {
		t.Errorf("missing marker: %q", got)
	}
}

func TestTruncate_noHeaders_degradesToSingleSection(t *testing.T) {
	t.Parallel()
	d := "--- a.txt\n+++ b.txt\n" + strings.Repeat("+plain unified diff line\n", 200)
	got := Truncate(d, 50)
	if got != d[:50]+TruncatedMarker {
		t.Errorf("Truncate = %q", got)
	}
}

func TestTruncate_fiveSections_keepsFirstAndLastThree(t *testing.T) {
	t.Parallel()
	names := []string{"f0.go", "f1.go", "f2.go", "f3.go", "f4.go"}
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = section(n, 4)
	}
	d := strings.Join(parts, "")
	kept := parts[0] + parts[2] + parts[3] + parts[4]
	budget := len(kept) + 1 // forces truncation but leaves the kept sections whole
	if len(d) <= budget {
		t.Fatalf("test diff too small: %d <= %d", len(d), budget)
	}

	got := Truncate(d, budget)
	if got != kept+TruncatedSizeMarker {
		t.Fatalf("Truncate =\n%s\nwant\n%s", got, kept+TruncatedSizeMarker)
	}
	if strings.Contains(got, "f1.go") {
		t.Error("middle section f1.go should be dropped")
	}
}

func TestTruncate_fewerThanThreeTrailing(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		parts []string
	}{
		{"two sections", []string{section("a.go", 20), section("b.go", 20)}},
		{"three sections", []string{section("a.go", 20), section("b.go", 20), section("c.go", 20)}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := strings.Join(tt.parts, "")
			const budget = 120
			got := Truncate(d, budget)
			// Every section is retained, so only the hard cut shortens it.
			if got != d[:budget]+TruncatedSizeMarker {
				t.Errorf("Truncate = %q", got)
			}
		})
	}
}

func TestTruncate_retainedStillTooLong_hardCut(t *testing.T) {
	t.Parallel()
	d := section("first.go", 100) + section("mid.go", 5) + section("x.go", 5) + section("y.go", 5) + section("z.go", 5)
	const budget = 200
	got := Truncate(d, budget)
	if len(got) != budget+len(TruncatedSizeMarker) {
		t.Errorf("len = %d, want %d", len(got), budget+len(TruncatedSizeMarker))
	}
	if !strings.HasPrefix(got, "diff --git a/first.go") {
		t.Errorf("first section not at start: %q", got[:40])
	}
}

func TestTruncate_nonPositiveBudget_usesDefault(t *testing.T) {
	t.Parallel()
	d := section("big.go", 1000)
	if got := Truncate(d, 0); len(got) != DefaultBudget+len(TruncatedMarker) {
		t.Errorf("len = %d, want %d", len(got), DefaultBudget+len(TruncatedMarker))
	}
}

func TestTruncate_multibyte_exactRuneLength(t *testing.T) {
	t.Parallel()
	d := "diff --git a/j.txt b/j.txt\n@@ -1 +1 @@\n+x" + strings.Repeat("日本語", 200)
	const budget = 100
	got := Truncate(d, budget)
	if !utf8.ValidString(got) {
		t.Fatalf("result not valid UTF-8: %q", got)
	}
	want := budget + utf8.RuneCountInString(TruncatedMarker)
	if n := utf8.RuneCountInString(got); n != want {
		t.Fatalf("rune length = %d, want %d", n, want)
	}
	if head := []rune(got)[:budget]; string(head) != string([]rune(d)[:budget]) {
		t.Errorf("first %d runes differ: %q", budget, string(head))
	}
	if !strings.HasSuffix(got, TruncatedMarker) {
		t.Errorf("missing marker: %q", got)
	}
}

func TestTruncate_multibyte_withinBudgetUnchanged(t *testing.T) {
	t.Parallel()
	// 40 runes but 120 bytes.
	d := strings.Repeat("日", 40)
	if got := Truncate(d, 40); got != d {
		t.Errorf("Truncate = %q, want input unchanged", got)
	}
}

func TestTruncateRunes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"ascii", "hello world", 5, "hello"},
		{"no truncation", "short", 100, "short"},
		{"exact", "exact", 5, "exact"},
		{"zero limit", "hello", 0, ""},
		{"empty", "", 10, ""},
		{"two-byte rune kept whole", "café!", 4, "café"},
		{"three-byte runes", "a世b", 2, "a世"},
		{"four-byte rune", "x😀y", 2, "x😀"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := truncateRunes(tt.in, tt.limit)
			if got != tt.want {
				t.Errorf("truncateRunes(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("result not valid UTF-8: %q", got)
			}
		})
	}
}
