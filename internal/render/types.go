package render

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Quality selects the speed/fidelity trade-off for a generation call.
type Quality string

const (
	QualityDraft    Quality = "draft"
	QualityStandard Quality = "standard"
	QualityHigh     Quality = "high"
)

// StylePreset names a fixed architectural style fragment injected into prompts.
type StylePreset string

const (
	StyleRealEstate StylePreset = "real_estate"
	StyleIndustrial StylePreset = "industrial"
	StyleEvening    StylePreset = "evening"
	StyleModern     StylePreset = "modern"
	StyleCustom     StylePreset = "custom"
)

// Mode is the negotiation posture: strict geometric fidelity versus creative
// marketing license.
type Mode string

const (
	ModePlanToRender Mode = "plan_to_render"
	ModePrettyRender Mode = "pretty_render"
)

// MaxReferenceImages is the provider cap on style references per call: the
// edit endpoint accepts 10 images total, one of which is the main image.
const MaxReferenceImages = 9

// ParseQuality sanitizes free-form input into a supported quality tier.
func ParseQuality(s string) Quality {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(QualityDraft):
		return QualityDraft
	case string(QualityHigh):
		return QualityHigh
	default:
		return QualityStandard
	}
}

// ParseStyle sanitizes free-form input into a supported style preset.
func ParseStyle(s string) StylePreset {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(StyleIndustrial):
		return StyleIndustrial
	case string(StyleEvening):
		return StyleEvening
	case string(StyleModern):
		return StyleModern
	case string(StyleCustom):
		return StyleCustom
	default:
		return StyleRealEstate
	}
}

// ParseMode sanitizes free-form input into a supported render mode.
func ParseMode(s string) Mode {
	if strings.ToLower(strings.TrimSpace(s)) == string(ModePrettyRender) {
		return ModePrettyRender
	}
	return ModePlanToRender
}

var titleCaser = cases.Title(language.Und)

// Label returns a human-readable form of the preset for chat messages and
// prompt previews, e.g. "real_estate" -> "Real Estate".
func (s StylePreset) Label() string {
	return titleCaser.String(strings.ReplaceAll(string(s), "_", " "))
}

// Request is a normalized generation request handed to a provider adapter.
// Image and Mask carry raw encoded bytes as uploaded by the caller.
type Request struct {
	Image      []byte
	Mask       []byte
	Prompt     string
	Quality    Quality
	Style      StylePreset
	Mode       Mode
	References [][]byte
}

// ClampReferences drops references beyond the provider cap, keeping order.
func (r *Request) ClampReferences() {
	if len(r.References) > MaxReferenceImages {
		r.References = r.References[:MaxReferenceImages]
	}
}

// Result is the terminal artifact of every generation path: a resolvable
// locator (a data URL once the bytes are in hand) plus the raw image bytes.
type Result struct {
	URL  string
	Data []byte
}
