package labels

import "testing"

func TestAnnotate(t *testing.T) {
	tests := []struct {
		class    string
		expected string
	}{
		{"dog", "🐕"},
		{"sea_waves", "🌊"},
		{"totally_new_class", DefaultGlyph},
		{"", DefaultGlyph},
	}

	for _, tt := range tests {
		if got := Annotate(tt.class); got != tt.expected {
			t.Errorf("Annotate(%q) = %q, expected %q", tt.class, got, tt.expected)
		}
	}
}

func TestEveryGlyphIsNonEmpty(t *testing.T) {
	if len(glyphs) != 50 {
		t.Errorf("Expected 50 classes, got %d", len(glyphs))
	}
	for class, g := range glyphs {
		if g == "" {
			t.Errorf("Class %s has empty glyph", class)
		}
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName("crackling_fire"); got != "crackling fire" {
		t.Errorf("Expected 'crackling fire', got %q", got)
	}
}

func TestFormatConfidence(t *testing.T) {
	tests := []struct {
		confidence float64
		expected   string
	}{
		{0.9134, "91.3%"},
		{1, "100.0%"},
		{0, "0.0%"},
	}

	for _, tt := range tests {
		if got := FormatConfidence(tt.confidence); got != tt.expected {
			t.Errorf("FormatConfidence(%v) = %q, expected %q", tt.confidence, got, tt.expected)
		}
	}
}

func TestClasses(t *testing.T) {
	classes := Classes()
	if len(classes) != 50 {
		t.Fatalf("Expected 50 classes, got %d", len(classes))
	}
	for i := 1; i < len(classes); i++ {
		if classes[i-1] >= classes[i] {
			t.Errorf("Classes not sorted at %d: %q >= %q", i, classes[i-1], classes[i])
		}
	}
	for _, c := range classes {
		if !Known(c) {
			t.Errorf("Class %q is not known", c)
		}
	}
}
