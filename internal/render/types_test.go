package render

import "testing"

func TestParseQuality(t *testing.T) {
	t.Parallel()
	cases := []struct {
		input string
		want  Quality
	}{
		{"draft", QualityDraft},
		{"HIGH", QualityHigh},
		{" standard ", QualityStandard},
		{"ultra", QualityStandard},
		{"", QualityStandard},
	}
	for _, tc := range cases {
		if got := ParseQuality(tc.input); got != tc.want {
			t.Fatalf("ParseQuality(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestParseStyle(t *testing.T) {
	t.Parallel()
	cases := []struct {
		input string
		want  StylePreset
	}{
		{"industrial", StyleIndustrial},
		{"Evening", StyleEvening},
		{"modern", StyleModern},
		{"custom", StyleCustom},
		{"bauhaus", StyleRealEstate},
		{"", StyleRealEstate},
	}
	for _, tc := range cases {
		if got := ParseStyle(tc.input); got != tc.want {
			t.Fatalf("ParseStyle(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestParseMode(t *testing.T) {
	t.Parallel()
	if got := ParseMode("pretty_render"); got != ModePrettyRender {
		t.Fatalf("ParseMode = %q, want %q", got, ModePrettyRender)
	}
	if got := ParseMode("anything else"); got != ModePlanToRender {
		t.Fatalf("ParseMode = %q, want %q", got, ModePlanToRender)
	}
}

func TestStyleLabel(t *testing.T) {
	if got := StyleRealEstate.Label(); got != "Real Estate" {
		t.Fatalf("Label = %q, want %q", got, "Real Estate")
	}
}

func TestClampReferences(t *testing.T) {
	req := Request{References: make([][]byte, 12)}
	req.ClampReferences()
	if len(req.References) != MaxReferenceImages {
		t.Fatalf("references = %d, want %d", len(req.References), MaxReferenceImages)
	}
}
