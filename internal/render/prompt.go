package render

import (
	"fmt"
	"strings"
)

// stylePrompts maps each preset to a fixed descriptive fragment. Unknown
// presets resolve to an empty fragment rather than an error.
var stylePrompts = map[StylePreset]string{
	StyleRealEstate: "Bright daylight lighting, clean professional landscaping, clear blue sky with subtle clouds, high-end real estate marketing quality",
	StyleIndustrial: "Overcast sky, utilitarian industrial aesthetic, functional lighting, practical materials visible",
	StyleEvening:    "Golden hour warm lighting, long shadows, warm amber tones, dramatic sky colors",
	StyleModern:     "Clean minimalist aesthetic, neutral tones, contemporary materials like glass and steel, sharp geometric forms",
	StyleCustom:     "",
}

// StyleFragment returns the descriptive fragment for a preset, empty when the
// preset is unknown.
func StyleFragment(style StylePreset) string {
	return stylePrompts[style]
}

// BuildEditPrompt assembles the full instruction sent to the image-edit model.
// Pure and deterministic: the same inputs always yield the identical string.
//
// Two mutually exclusive template families are selected by mode:
// plan_to_render locks camera, geometry, and proportions; pretty_render grants
// creative license for marketing-quality output.
func BuildEditPrompt(description string, style StylePreset, referenceCount int, mode Mode) string {
	styleDesc := StyleFragment(style)

	var refInstruction string
	if referenceCount > 0 {
		refInstruction = fmt.Sprintf(`
REFERENCE IMAGES: You have been provided %d reference image(s).
- Image 1 is the MAIN image to edit
- Images 2-%d are REFERENCE images showing design inspiration
- Match the style, look, and details from the reference images`, referenceCount, referenceCount+1)
	}

	if mode == ModePrettyRender {
		return strings.TrimSpace(fmt.Sprintf(`Create a stunning, professional architectural marketing render inspired by the uploaded photo.

REQUESTED CHANGES: %s
%s

CREATIVE DIRECTION:
- Use the photo as INSPIRATION while keeping the essential design
- Create an aspirational, polished version of this scene
- %s
- Professional marketing/real estate quality
- Beautiful, dramatic lighting

STYLE GOALS:
- Magazine-quality architectural visualization
- Lifestyle imagery that sells the vision
- Polished, aspirational, beautiful
- The kind of render a high-end developer would use

Feel free to:
- Enhance landscaping and surroundings
- Add life and atmosphere to the scene
- Improve materials and finishes
- Create dramatic, beautiful lighting
- Optimize composition for visual impact

OUTPUT: A breathtaking architectural marketing render that makes viewers want to be there.`, description, refInstruction, styleDesc))
	}

	return strings.TrimSpace(fmt.Sprintf(`Transform this architectural plan/photo into a photorealistic render.

REQUESTED CHANGES: %s
%s

CRITICAL ACCURACY REQUIREMENTS:
- Keep the EXACT same camera angle and perspective
- Preserve ALL building geometry, massing, and proportions
- Maintain window placement, rooflines, and architectural details
- Do NOT move, resize, or modify any structural elements

STYLE:
- %s
- Clear, professional lighting
- Sharp, realistic materials
- Clean, well-maintained appearance

DO NOT:
- Change the camera angle or perspective
- Modify building geometry or proportions
- Move or resize any architectural elements
- Distort or warp any structures
- Darken the overall image

OUTPUT: An accurate, photorealistic render that looks exactly like the input, just enhanced to look like a professional architectural visualization.`, description, refInstruction, styleDesc))
}

// BuildRenderPrompt returns the fixed photo-to-render instruction. The preset
// is accepted for interface symmetry; the render path currently uses one
// tuned template regardless of preset.
func BuildRenderPrompt(style StylePreset) string {
	_ = style
	return `Using the uploaded photo as the exact reference, preserve the camera angle, perspective, scale, and building geometry with absolute accuracy.

Do not change the architecture, massing, window placement, rooflines, or site layout.

Transform the photo into a high-end real estate marketing render with:
- Bright, clear, sunny daytime lighting
- Blue sky with soft natural clouds
- Balanced exposure and professional architectural photography color grading
- Clean, modern, well-maintained appearance
- Sharp detail and crisp materials
- Subtle realism with no artificial distortion

Improve the overall visual quality by:
- Enhancing the brick, concrete, and glass so they look freshly cleaned and well maintained
- Removing visual noise, haze, and dullness
- Improving contrast, clarity, and color balance
- Making the scene feel inviting, high-value, and professionally photographed

The final image should look like a premium architectural marketing render of the existing site, not a redesign or a new building.`
}

// CinematicRenderPrompt is the fixed instruction for the diffusion backend's
// photo-to-render path, tuned for the Kontext pipeline.
const CinematicRenderPrompt = `Transform this real-world photograph into a cinematic architectural visualization.

Preserve the exact building shape, geometry, camera angle, perspective, and relative scale of all structures.

Convert the scene into a high-end architectural render with golden hour lighting and soft sunlight.
Clean, idealized environment with lush landscaping and greenery.
Warm reflections and polished materials throughout.

Enhance building surfaces into refined architectural materials.
Glass should be reflective and glowing. Metal should be warm-toned and premium.
Lighting should be dramatic and directional with soft cinematic shadows.

Style: Hyper-realistic architectural visualization, Unreal Engine quality, large-scale development marketing render.
High dynamic range with soft atmospheric haze.

Do NOT change the building design, alter structure, distort proportions, or change camera position.

Final look: A polished real-estate architectural competition render that feels like a billion-dollar development brochure.`
