// Package chat implements the conversational assistant that interviews users
// and turns the conversation into a finalized generation prompt.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"renderless/internal/infra"
	"renderless/internal/providers/openai"
	"renderless/internal/render"
)

// StartSentinel is the utterance that opens a conversation. It is answered
// with a canned greeting and never reaches the language model.
const StartSentinel = "START_CONVERSATION"

// ActionConfirmGenerate marks a reply that carries a finalized prompt.
const ActionConfirmGenerate = "confirm_generate"

// historyWindow bounds how many prior turns are replayed for context.
const historyWindow = 4

// GatheredInfo is the structured intent accumulated over the conversation.
// It is owned by the caller; the negotiator only reads and echoes it.
type GatheredInfo struct {
	Intent                 string   `json:"intent,omitempty"`
	TargetDescription      string   `json:"targetDescription,omitempty"`
	ReplacementDescription string   `json:"replacementDescription,omitempty"`
	Style                  string   `json:"style,omitempty"`
	AdditionalDetails      []string `json:"additionalDetails,omitempty"`
}

// Message is one prior conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Turn is the full input for one negotiation step.
type Turn struct {
	Messages        []Message
	Gathered        GatheredInfo
	UserInput       string
	ImageAnalysis   string
	GenerationCount int
	Mode            render.Mode
}

// Reply is the negotiator's answer. Action is empty until the model decides
// the user is ready to generate.
type Reply struct {
	Message     string         `json:"message"`
	Action      string         `json:"action,omitempty"`
	UpdatedInfo map[string]any `json:"updated_info,omitempty"`
	FinalPrompt string         `json:"final_prompt,omitempty"`
}

// Completer abstracts the language-model call so tests can fake it.
type Completer interface {
	Complete(ctx context.Context, msgs []openai.Message, opts openai.ChatOptions) (string, error)
}

// Negotiator drives the render conversation state machine. All state lives in
// the Turn; the negotiator itself is stateless and safe for concurrent use.
type Negotiator struct {
	completer Completer
	logger    *infra.Logger
}

const systemPrompt = `You are a professional architectural visualization assistant helping users create renders from photos.

You MUST respond with valid JSON format.

## YOUR ROLE

Help users describe what they want, then create detailed prompts for the image generation model.

## TWO RENDER MODES

### PLAN TO RENDER MODE
Transform architectural drawings/plans into realistic renders while keeping EVERYTHING accurate:
- Exact same camera angle, perspective, scale
- Same building geometry, massing, window placement
- Same site layout and proportions
- Just enhance visual quality and make it photorealistic

### PRETTY RENDER MODE
Create polished marketing renders with creative freedom:
- Can adjust composition for better visual impact
- Add atmospheric elements (people, landscaping, dramatic lighting)
- Focus on storytelling and emotional appeal
- Still represents the same project, but optimized for marketing

## RESPONSE FORMAT

Always respond with this JSON structure:
{
    "message": "Your conversational response to the user",
    "action": null or "confirm_generate",
    "updated_info": {
        "intent": "transform|add|remove|modify",
        "replacementDescription": "what to change or add",
        "style": "any style notes"
    },
    "final_prompt": null or "the complete prompt when ready to generate"
}

## CONVERSATION FLOW

1. If user says just "render" or "go" or similar minimal input:
   - Immediately set action: "confirm_generate"
   - Generate appropriate final_prompt based on render_mode

2. If user describes changes they want:
   - Acknowledge and confirm understanding
   - Ask for any missing critical details
   - When ready, set action: "confirm_generate" with final_prompt

3. Keep conversations SHORT - users want quick results

## PROMPT CONSTRUCTION

For PLAN_TO_RENDER mode, the final_prompt should emphasize:
- "Keep exact same camera angle, perspective, geometry"
- "Maintain all architectural details precisely"
- "Transform to photorealistic render while preserving accuracy"
- Any specific changes the user requested

For PRETTY_RENDER mode, the final_prompt should emphasize:
- "Create stunning marketing visualization"
- "Optimize for visual impact and emotional appeal"
- "Professional architectural photography quality"
- "Add life and atmosphere"
- Any specific changes the user requested`

const (
	greetingPlan   = `Ready to create an accurate render of your plan. Describe any changes you'd like, or just say "render" to transform as-is.`
	greetingPretty = `Ready to create a stunning marketing render! Describe any additions or changes you'd like, or say "render" to let me work my magic.`

	fallbackMessage = "I understand. Would you like me to proceed with rendering?"
	defaultMessage  = "Ready when you are!"
)

// NewNegotiator constructs a negotiator around the given completer.
func NewNegotiator(completer Completer, logger *infra.Logger) *Negotiator {
	if logger == nil {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}
	return &Negotiator{completer: completer, logger: logger}
}

// Respond performs one conversation transition. The sentinel short-circuits
// to a mode-specific greeting; everything else goes through the language
// model. A remote failure is surfaced as-is; an unparseable reply degrades to
// a generic fallback so the conversation can continue.
func (n *Negotiator) Respond(ctx context.Context, turn Turn) (*Reply, error) {
	if turn.UserInput == StartSentinel {
		return &Reply{Message: greeting(turn.Mode)}, nil
	}

	msgs := n.buildConversation(turn)
	content, err := n.completer.Complete(ctx, msgs, openai.ChatOptions{
		JSON:        true,
		Temperature: 0.7,
		MaxTokens:   1000,
	})
	if err != nil {
		return nil, err
	}

	var reply Reply
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		n.logger.Warn().Err(err).Msg("chat: unparseable model reply, degrading")
		return &Reply{Message: fallbackMessage}, nil
	}
	if reply.Message == "" {
		reply.Message = defaultMessage
	}
	return &reply, nil
}

func (n *Negotiator) buildConversation(turn Turn) []openai.Message {
	msgs := []openai.Message{
		{Role: "system", Text: systemPrompt},
		{Role: "system", Text: stateContext(turn)},
	}
	history := turn.Messages
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	for _, m := range history {
		msgs = append(msgs, openai.Message{Role: m.Role, Text: m.Content})
	}
	return append(msgs, openai.Message{Role: "user", Text: userContext(turn)})
}

func stateContext(turn Turn) string {
	modeLabel := "PLAN_TO_RENDER"
	if turn.Mode == render.ModePrettyRender {
		modeLabel = "PRETTY_RENDER"
	}
	phase := "the FIRST render"
	if turn.GenerationCount > 0 {
		phase = "a subsequent edit"
	}
	return fmt.Sprintf(`CURRENT STATE:
- render_mode: %s
- generation_count: %d
- This is %s

Use the %s approach for building prompts.`, modeLabel, turn.GenerationCount, phase, modeLabel)
}

func userContext(turn Turn) string {
	gathered, err := json.Marshal(turn.Gathered)
	if err != nil {
		gathered = []byte("{}")
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "User said: %q\n\nCurrent gathered info: %s\n", turn.UserInput, gathered)
	if turn.ImageAnalysis != "" {
		fmt.Fprintf(&sb, "\nImage analysis: %s\n", turn.ImageAnalysis)
	}
	sb.WriteString(`
Respond with appropriate JSON. If user wants to render now (says "render", "go", "generate", etc.), include action: "confirm_generate" with final_prompt.`)
	return sb.String()
}

func greeting(mode render.Mode) string {
	if mode == render.ModePrettyRender {
		return greetingPretty
	}
	return greetingPlan
}
