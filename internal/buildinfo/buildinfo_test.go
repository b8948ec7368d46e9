package buildinfo

import "testing"

func TestShortPrefersVersionThenCommit(t *testing.T) {
	defer func(v, c string) { Version, Commit = v, c }(Version, Commit)

	tests := []struct {
		version, commit, want string
	}{
		{"v1.2.0", "abc123", "v1.2.0"},
		{"dev", "abc123", "abc123"},
		{"dev", "unknown", "dev"},
		{"", "", "dev"},
	}
	for _, tc := range tests {
		Version, Commit = tc.version, tc.commit
		if got := Short(); got != tc.want {
			t.Fatalf("Short() with version=%q commit=%q = %q, want %q", tc.version, tc.commit, got, tc.want)
		}
	}
}

func TestLongListsEveryField(t *testing.T) {
	defer func(v, c, d string) { Version, Commit, Date = v, c, d }(Version, Commit, Date)

	Version, Commit, Date = "v0.3.0", "abc123", "2026-01-02"
	want := "version=v0.3.0 commit=abc123 date=2026-01-02"
	if got := Long(); got != want {
		t.Fatalf("Long() = %q, want %q", got, want)
	}
}
