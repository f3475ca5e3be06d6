package version

import "testing"

func TestShort(t *testing.T) {
	origVersion, origSHA := Version, GitSHA
	defer func() { Version, GitSHA = origVersion, origSHA }()

	tests := []struct {
		version, sha, want string
	}{
		{"dev", "unknown", "dev"},
		{"v0.3.0", "", "v0.3.0"},
		{"v0.3.0", "abc1234def5678", "v0.3.0+abc1234"},
		{"v0.3.0", "abc12", "v0.3.0+abc12"},
	}
	for _, tt := range tests {
		Version, GitSHA = tt.version, tt.sha
		if got := Short(); got != tt.want {
			t.Errorf("Short() with (%q, %q) = %q, want %q", tt.version, tt.sha, got, tt.want)
		}
	}
}
