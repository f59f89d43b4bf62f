package utils

import (
	"strings"
	"testing"
)

func TestGenerateSlug(t *testing.T) {
	slug, err := GenerateSlug()
	if err != nil {
		t.Fatalf("GenerateSlug() error = %v", err)
	}

	if len(slug) != DefaultSlugLength {
		t.Errorf("GenerateSlug() length = %d, want %d", len(slug), DefaultSlugLength)
	}

	for _, char := range slug {
		if !strings.ContainsRune(alphabet, char) {
			t.Errorf("GenerateSlug() contains invalid character: %c", char)
		}
	}
}

func TestGenerateSlugWithLength(t *testing.T) {
	tests := []struct {
		name   string
		length int
	}{
		{"length 1", 1},
		{"length 4", 4},
		{"length 8", 8},
		{"length 12", 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slug, err := GenerateSlugWithLength(tt.length)
			if err != nil {
				t.Errorf("GenerateSlugWithLength(%d) error = %v", tt.length, err)
				return
			}

			if len(slug) != tt.length {
				t.Errorf("GenerateSlugWithLength(%d) length = %d, want %d", tt.length, len(slug), tt.length)
			}

			for _, char := range slug {
				if !strings.ContainsRune(alphabet, char) {
					t.Errorf("GenerateSlugWithLength(%d) contains invalid character: %c", tt.length, char)
				}
			}
		})
	}
}

func TestGenerateSlugUniqueness(t *testing.T) {
	generated := make(map[string]bool)
	iterations := 1000

	for i := 0; i < iterations; i++ {
		slug, err := GenerateSlug()
		if err != nil {
			t.Fatalf("GenerateSlug() error = %v", err)
		}

		if generated[slug] {
			t.Errorf("GenerateSlug() generated duplicate: %s", slug)
		}
		generated[slug] = true
	}
}
