package validation

import (
	"errors"
	"strings"
	"testing"

	sftperrors "github.com/input-output-hk/catalyst-forge-libs/sftp/errors"
)

func TestValidateRemotePath(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		wantError bool
	}{
		// Valid paths
		{"absolute", "/srv/data/file.txt", false},
		{"relative", "data/file.txt", false},
		{"single dot", ".", false},
		{"with spaces", "/srv/my data/file.txt", false},
		{"unicode", "/srv/данные/файл", false},
		{"max length", "/" + strings.Repeat("a", MaxPathLength-1), false},

		// Invalid paths
		{"empty", "", true},
		{"too long", "/" + strings.Repeat("a", MaxPathLength), true},
		{"nul byte", "/srv/\x00/file", true},
		{"newline", "/srv/a\nb", true},
		{"tab", "/srv/a\tb", true},
		{"bell", "/srv/a\ab", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRemotePath(tt.path)
			if tt.wantError {
				if err == nil {
					t.Fatalf("expected error for path %q", tt.path)
				}
				if !errors.Is(err, sftperrors.ErrInvalidPath) {
					t.Errorf("expected ErrInvalidPath, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error for path %q: %v", tt.path, err)
			}
		})
	}
}

func TestValidateLocalPath(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		wantError bool
	}{
		{"absolute", "/var/cache/data", false},
		{"relative", "cache/data", false},
		{"empty", "", true},
		{"nul byte", "a\x00b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLocalPath(tt.path)
			if tt.wantError && err == nil {
				t.Fatalf("expected error for path %q", tt.path)
			}
			if !tt.wantError && err != nil {
				t.Fatalf("unexpected error for path %q: %v", tt.path, err)
			}
		})
	}
}

func TestValidateChunkLength(t *testing.T) {
	tests := []struct {
		name      string
		length    uint32
		wantError bool
	}{
		{"default", 32 * 1024, false},
		{"one byte", 1, false},
		{"at limit", MaxChunkLength, false},
		{"zero", 0, true},
		{"above limit", MaxChunkLength + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunkLength(tt.length)
			if tt.wantError {
				if err == nil {
					t.Fatalf("expected error for length %d", tt.length)
				}
				if !errors.Is(err, sftperrors.ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error for length %d: %v", tt.length, err)
			}
		})
	}
}

func TestValidateMaxInFlight(t *testing.T) {
	if err := ValidateMaxInFlight(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateMaxInFlight(48); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateMaxInFlight(0); err == nil {
		t.Fatal("expected error for zero window")
	}
	if err := ValidateMaxInFlight(-1); err == nil {
		t.Fatal("expected error for negative window")
	}
}

func TestValidateConcurrency(t *testing.T) {
	if err := ValidateConcurrency(4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateConcurrency(0); err == nil {
		t.Fatal("expected error for zero concurrency")
	}
}

func TestValidatePatterns(t *testing.T) {
	tests := []struct {
		name      string
		patterns  []string
		wantError bool
	}{
		{"nil", nil, false},
		{"simple globs", []string{"*.log", "*.tmp"}, false},
		{"nested", []string{"src/*.go", "docs/**"}, false},
		{"character class", []string{"file-[0-9].txt"}, false},
		{"empty pattern", []string{"*.log", ""}, true},
		{"unclosed class", []string{"file-[0-9.txt"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePatterns(tt.patterns)
			if tt.wantError && err == nil {
				t.Fatalf("expected error for patterns %v", tt.patterns)
			}
			if !tt.wantError && err != nil {
				t.Fatalf("unexpected error for patterns %v: %v", tt.patterns, err)
			}
		})
	}
}
