package commitmsg

import (
	"strings"
	"testing"
)

// fileDiff builds a one-hunk section for path with the given removed and added lines.
func fileDiff(path string, removed, added []string) string {
	var b strings.Builder
	b.WriteString("diff --git a/" + path + " b/" + path + "\n")
	b.WriteString("index 1111111..2222222 100644\n")
	b.WriteString("--- a/" + path + "\n+++ b/" + path + "\n@@ -1 +1 @@\n")
	for _, l := range removed {
		b.WriteString("-" + l + "\n")
	}
	for _, l := range added {
		b.WriteString("+" + l + "\n")
	}
	return b.String()
}

func TestSynthesize(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		diff  string
		style Style
		want  string
	}{
		{
			name:  "fix typo conventional",
			diff:  fileDiff("README", []string{"teh"}, []string{"fix typo"}),
			style: StyleConventional,
			want:  "fix: fix bug (1 files)",
		},
		{
			name:  "two neutral files legacy",
			diff:  fileDiff("a.go", []string{"x := 1"}, []string{"x := 2"}) + fileDiff("b.go", []string{"y"}, []string{"z"}),
			style: StyleLegacy,
			want:  "update code (2 files)",
		},
		{
			name:  "two neutral files conventional defaults to chore",
			diff:  fileDiff("a.go", []string{"x := 1"}, []string{"x := 2"}) + fileDiff("b.go", []string{"y"}, []string{"z"}),
			style: StyleConventional,
			want:  "chore: update code (2 files)",
		},
		{
			name:  "feat literal marker anywhere",
			diff:  fileDiff("c.go", []string{"feat: old note"}, []string{"n := 0"}),
			style: StyleConventional,
			want:  "feat: add new feature (1 files)",
		},
		{
			name:  "feature in added line beats fix",
			diff:  fileDiff("c.go", nil, []string{"// Feature flag to fix startup"}),
			style: StyleConventional,
			want:  "feat: add new feature (1 files)",
		},
		{
			name:  "fix literal marker",
			diff:  fileDiff("c.go", []string{"fix: something"}, []string{"n := 0"}),
			style: StyleLegacy,
			want:  "fix bug (1 files)",
		},
		{
			name:  "test keyword",
			diff:  fileDiff("c_test.go", nil, []string{"func TestParse(t *testing.T) {}"}),
			style: StyleConventional,
			want:  "test: add tests (1 files)",
		},
		{
			name:  "comment opener",
			diff:  fileDiff("c.go", nil, []string{"\t// explains the loop"}),
			style: StyleConventional,
			want:  "docs: update documentation (1 files)",
		},
		{
			name:  "hash comment",
			diff:  fileDiff("run.sh", nil, []string{"# usage: run.sh"}),
			style: StyleConventional,
			want:  "docs: update documentation (1 files)",
		},
		{
			name:  "sql comment",
			diff:  fileDiff("schema.sql", nil, []string{"-- drop old index"}),
			style: StyleLegacy,
			want:  "update documentation (1 files)",
		},
		{
			name:  "docs in path",
			diff:  fileDiff("Docs/guide.md", nil, []string{"hello"}),
			style: StyleConventional,
			want:  "docs: update documentation (1 files)",
		},
		{
			name:  "more removed than added",
			diff:  fileDiff("c.go", []string{"a", "b", "c"}, []string{"d"}),
			style: StyleConventional,
			want:  "refactor: refactor code (1 files)",
		},
		{
			name:  "file markers are not content lines",
			diff:  fileDiff("fix.go", nil, []string{"n := 1"}),
			style: StyleLegacy,
			want:  "update code (1 files)",
		},
		{
			name:  "same path twice counted once",
			diff:  fileDiff("a.go", nil, []string{"x"}) + fileDiff("a.go", nil, []string{"y"}),
			style: StyleLegacy,
			want:  "update code (1 files)",
		},
		{
			name:  "unparsable header counts as files",
			diff:  "diff --git weird\n@@ -1 +1 @@\n+x\n",
			style: StyleLegacy,
			want:  "update code (1 files)",
		},
		{
			name:  "no headers",
			diff:  "--- a.txt\n+++ b.txt\n@@ -1 +1 @@\n-x\n+y\n",
			style: StyleLegacy,
			want:  "update code (0 files)",
		},
		{
			name:  "empty diff",
			diff:  "",
			style: StyleConventional,
			want:  "chore: update code (0 files)",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Synthesize(tt.diff, tt.style); got != tt.want {
				t.Errorf("Synthesize = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSynthesize_deterministic(t *testing.T) {
	t.Parallel()
	d := fileDiff("a.go", nil, []string{"x"}) + fileDiff("b.go", []string{"y"}, nil) + fileDiff("c.go", nil, []string{"z"})
	first := Synthesize(d, StyleConventional)
	for i := 0; i < 10; i++ {
		if got := Synthesize(d, StyleConventional); got != first {
			t.Fatalf("run %d: %q != %q", i, got, first)
		}
	}
}

func TestSynthesize_fixTypoStartsWithFixPrefix(t *testing.T) {
	t.Parallel()
	d := fileDiff("notes.txt", nil, []string{"fix typo"})
	if got := Synthesize(d, StyleConventional); !strings.HasPrefix(got, "fix: ") {
		t.Errorf("Synthesize = %q, want fix: prefix", got)
	}
}
