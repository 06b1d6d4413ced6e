package identity

import "testing"

func TestNormalizeRemote_EquivalentFormsMatch(t *testing.T) {
	cases := []string{
		"https://github.com/acme/widgets.git",
		"https://github.com/acme/widgets",
		"git@github.com:acme/widgets.git",
		"ssh://git@github.com/acme/widgets.git",
		"git://github.com/acme/widgets.git",
	}

	want := normalizeRemote(cases[0])
	for _, c := range cases[1:] {
		got := normalizeRemote(c)
		if got != want {
			t.Errorf("normalizeRemote(%q) = %q, want %q (should match %q)", c, got, want, cases[0])
		}
	}
}

func TestNormalizeRemote_IsCaseInsensitive(t *testing.T) {
	a := normalizeRemote("https://GitHub.com/Acme/Widgets.git")
	b := normalizeRemote("https://github.com/acme/widgets")
	if a != b {
		t.Errorf("expected case-insensitive match, got %q vs %q", a, b)
	}
}

func TestGraphDatabaseName(t *testing.T) {
	if got := GraphDatabaseName("abc123def456"); got != "cv_abc123def456" {
		t.Errorf("GraphDatabaseName = %q", got)
	}
}

func TestVectorCollectionName(t *testing.T) {
	if got := VectorCollectionName("abc123def456"); got != "abc123def456_chunks" {
		t.Errorf("VectorCollectionName = %q", got)
	}
}

func TestRepoID_NoRemote_FallsBackToPath(t *testing.T) {
	id, err := RepoID(t.TempDir())
	if err != nil {
		t.Fatalf("RepoID: %v", err)
	}
	if len(id) != 12 {
		t.Errorf("expected a 12-character id, got %q (len %d)", id, len(id))
	}
}

func TestRepoID_IsDeterministic(t *testing.T) {
	dir := t.TempDir()
	a, err := RepoID(dir)
	if err != nil {
		t.Fatalf("RepoID: %v", err)
	}
	b, err := RepoID(dir)
	if err != nil {
		t.Fatalf("RepoID: %v", err)
	}
	if a != b {
		t.Errorf("RepoID not deterministic: %q != %q", a, b)
	}
}
