// Package redpen turns hand-drawn red annotations on a render into concrete
// edits through a three-step pipeline: analyze the marks, fold the user's
// answers into a final instruction, then execute it in two provider passes.
package redpen

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"renderless/internal/domain"
	"renderless/internal/imaging"
	"renderless/internal/infra"
	"renderless/internal/render"
)

// QuestionWithSuggestions is one clarifying question plus clickable answers.
type QuestionWithSuggestions struct {
	Question    string   `json:"question"`
	Suggestions []string `json:"suggestions"`
}

// Analysis is the outcome of step one.
type Analysis struct {
	Analysis        string                    `json:"analysis"`
	Questions       []QuestionWithSuggestions `json:"questions"`
	SuggestedPrompt string                    `json:"suggestedPrompt"`
}

// FinalPrompt is the outcome of step two.
type FinalPrompt struct {
	FinalPrompt string `json:"finalPrompt"`
	Reasoning   string `json:"reasoning"`
}

// Analyzer is the vision-model dependency for steps one and two.
type Analyzer interface {
	Analyze(ctx context.Context, prompt string, image []byte) (string, error)
}

// Editor is the diffusion dependency for step three.
type Editor interface {
	Kontext(ctx context.Context, prompt string, image *imaging.Asset) (*render.Result, error)
}

// Interpreter runs the red-pen pipeline. It is stateless; each step receives
// everything it needs from the caller.
type Interpreter struct {
	analyzer Analyzer
	editor   Editor
	logger   *infra.Logger
}

const analyzeInstruction = `Analyze this architectural render with RED PEN annotations.

The user has drawn/written in red to show what they want to ADD or CHANGE.

Respond in this exact JSON format:
{
    "analysis": "Brief, friendly description of what you see in the red marks",
    "questions": [
        {
            "question": "The clarifying question?",
            "suggestions": ["Option 1", "Option 2", "Option 3"]
        },
        {
            "question": "Another question?",
            "suggestions": ["Option A", "Option B", "Option C"]
        }
    ],
    "suggestedPrompt": "A detailed prompt to implement the changes"
}

Ask 2-4 smart questions with 2-4 clickable suggestions each. Make suggestions specific and helpful.
Examples of good questions with suggestions:
- "What material for the poles?" -> ["Steel/metal", "Wooden", "Concrete"]
- "How many poles?" -> ["3-4 poles", "5-6 poles", "As many as needed"]
- "Cable style?" -> ["Modern industrial", "Traditional utility", "Minimal/clean"]

Be conversational and helpful like a design partner.`

// stageOnePrompt converts the annotated photo into a clean render while
// keeping composition fixed, so stage two edits a render rather than a photo.
const stageOnePrompt = "Transform this photo into a clean professional architectural visualization render. Keep the EXACT same scene, camera angle, perspective, and all elements in their exact positions. Just change the style to a polished 3D architectural render with clean materials and professional lighting."

const stageTwoSuffix = ". Keep everything else exactly the same. Maintain the professional architectural render style."

// NewInterpreter constructs an interpreter around the given dependencies.
func NewInterpreter(analyzer Analyzer, editor Editor, logger *infra.Logger) *Interpreter {
	if logger == nil {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}
	return &Interpreter{analyzer: analyzer, editor: editor, logger: logger}
}

// Analyze inspects the red marks and proposes clarifying questions. An
// unparseable model reply degrades to one generic question instead of
// failing; a remote failure is surfaced.
func (i *Interpreter) Analyze(ctx context.Context, image *imaging.Asset) (*Analysis, error) {
	content, err := i.analyzer.Analyze(ctx, analyzeInstruction, image.Data)
	if err != nil {
		return nil, err
	}
	parsed, err := parseModelPayload[Analysis](content)
	if err != nil || len(parsed.Questions) == 0 {
		i.logger.Warn().Err(err).Msg("redpen: unparseable analysis, degrading")
		return &Analysis{
			Analysis: "I can see red pen annotations on the image.",
			Questions: []QuestionWithSuggestions{
				{Question: "What would you like me to add based on your markings?"},
			},
			SuggestedPrompt: "Add the elements shown in the red pen annotations",
		}, nil
	}
	return &parsed, nil
}

// BuildPrompt folds the ordered question/answer pairs into a finalized edit
// instruction. A parse failure here is fatal; the confirmed instruction feeds
// generation directly and a guessed default would silently produce the wrong
// edit.
func (i *Interpreter) BuildPrompt(ctx context.Context, image *imaging.Asset, analysis string, questions, answers []string) (*FinalPrompt, error) {
	content, err := i.analyzer.Analyze(ctx, buildPromptInstruction(analysis, questions, answers), image.Data)
	if err != nil {
		return nil, err
	}
	parsed, err := parseModelPayload[FinalPrompt](content)
	if err != nil {
		return nil, &domain.ProviderError{Kind: domain.ErrParse, Provider: "openai", Message: "finalize instruction: " + err.Error()}
	}
	if parsed.FinalPrompt == "" {
		return nil, &domain.ProviderError{Kind: domain.ErrParse, Provider: "openai", Message: "finalize instruction: empty finalPrompt"}
	}
	return &parsed, nil
}

// Execute runs the two-stage edit: style conversion first, then the confirmed
// change applied to the converted intermediate.
func (i *Interpreter) Execute(ctx context.Context, image *imaging.Asset, confirmedPrompt string) (*render.Result, error) {
	i.logger.Info().Msg("redpen: stage 1, converting to render")
	intermediate, err := i.editor.Kontext(ctx, stageOnePrompt, image)
	if err != nil {
		return nil, err
	}

	i.logger.Info().Msg("redpen: stage 2, applying annotated changes")
	stageTwoInput := &imaging.Asset{Data: intermediate.Data, Format: "png"}
	final, err := i.editor.Kontext(ctx, confirmedPrompt+stageTwoSuffix, stageTwoInput)
	if err != nil {
		return nil, err
	}
	return final, nil
}

func buildPromptInstruction(analysis string, questions, answers []string) string {
	n := len(questions)
	if len(answers) < n {
		n = len(answers)
	}
	var qa strings.Builder
	for idx := 0; idx < n; idx++ {
		fmt.Fprintf(&qa, "Q: %s\nA: %s\n", questions[idx], answers[idx])
	}
	return fmt.Sprintf(`You analyzed this image with red pen annotations and asked clarifying questions.

Your initial analysis: %s

Questions and user's answers:
%s
Now, based on the image and the user's answers, create the PERFECT prompt for an AI image generator to implement these changes.

Respond in JSON format:
{
    "reasoning": "Brief explanation of how you're incorporating the answers",
    "finalPrompt": "The detailed, specific prompt to generate the changes. Be very precise about what to add, where, sizes, materials, style, etc."
}

The prompt should tell the AI to remove the red pen marks and add the real elements in their place.`, analysis, qa.String())
}
