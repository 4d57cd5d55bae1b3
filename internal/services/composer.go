package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"

	"promptcraft-backend/internal/logger"
	"promptcraft-backend/internal/models"
)

const (
	PromptSeparator   = "---PROMPT-SEPARATOR---"
	NoMatchesSentence = "No matches found."
)

// Composer turns form input into a meta-prompt, asks the model for an
// optimized prompt and post-processes the answer.
type Composer struct {
	model ModelClient
	log   *logger.Logger
}

func NewComposer(model ModelClient, log *logger.Logger) *Composer {
	return &Composer{model: model, log: log.With("component", "composer")}
}

// Generate validates params, calls the model with web grounding and returns
// the prompt, filtered citations and any regex matches.
func (c *Composer) Generate(ctx context.Context, params models.PromptGenerationParams) (*models.PromptResult, error) {
	p, err := NormalizeParams(params)
	if err != nil {
		return nil, err
	}

	req := ModelRequest{
		Model:        ComposerModel,
		Text:         BuildMetaPrompt(p),
		Capabilities: Capabilities{SearchGrounding: true},
	}

	if p.HasFile() && IsImageType(p.File.Type) {
		mimeType, data, err := ParseDataURL(p.File.Content)
		if err != nil {
			return nil, err
		}
		req.Inline = &InlineData{MIMEType: mimeType, Data: data}
	}

	resp, err := c.model.Generate(ctx, req)
	if err != nil {
		aiErr := ClassifyError(err)
		c.log.Error("Prompt generation failed", "kind", aiErr.Kind, "error", err)
		return nil, aiErr
	}

	raw := strings.TrimSpace(resp.Text)
	if raw == "" {
		return nil, &AIError{Kind: KindService, Message: "The model returned an empty response."}
	}

	prompt, matches := ParseGeneration(raw, p.WantsRegex())
	if p.WantsRegex() && !strings.Contains(raw, PromptSeparator) {
		c.log.Warn("Regex grounding requested but separator missing; using whole response as prompt")
	}

	return &models.PromptResult{
		Prompt:       prompt,
		Sources:      FilterSources(resp.Sources),
		RegexMatches: matches,
	}, nil
}

// NormalizeParams rejects invalid input before any network call and fills
// the default tone and format.
func NormalizeParams(p models.PromptGenerationParams) (models.PromptGenerationParams, error) {
	if strings.TrimSpace(p.UserInput) == "" {
		return p, newInvalidInput("User input cannot be empty.")
	}

	if p.Tone == "" {
		p.Tone = models.ToneOptions[0]
	} else if !contains(models.ToneOptions, p.Tone) {
		return p, newInvalidInput("Unsupported tone %q.", p.Tone)
	}
	if p.Format == "" {
		p.Format = models.FormatOptions[0]
	} else if !contains(models.FormatOptions, p.Format) {
		return p, newInvalidInput("Unsupported format %q.", p.Format)
	}

	if p.UseRegexGrounding && p.RegexPattern != "" {
		if _, err := regexp2.Compile(p.RegexPattern, regexp2.ECMAScript); err != nil {
			return p, newInvalidInput("Invalid regular expression: %v", err)
		}
	}

	if p.HasFile() && strings.TrimSpace(p.LinkURL) != "" {
		return p, newInvalidInput("Attach either a file or a link, not both.")
	}

	return p, nil
}

// BuildMetaPrompt renders the instruction block sent to the model.
func BuildMetaPrompt(p models.PromptGenerationParams) string {
	var b strings.Builder

	// Role
	b.WriteString("As an expert prompt engineer, your task is to create a clear, concise, and highly effective prompt for a generative AI model.\n")
	b.WriteString("Use the latest information from the web to ensure the prompt is up-to-date and contextually relevant.\n\n")

	// Form fields
	b.WriteString("**User's Goal:**\n")
	b.WriteString(strings.TrimSpace(p.UserInput))
	b.WriteString("\n\n**Additional Context:**\n")
	if ctx := strings.TrimSpace(p.Context); ctx != "" {
		b.WriteString(ctx)
	} else {
		b.WriteString("None provided.")
	}
	b.WriteString("\n\n**Desired Tone for AI Response:**\n")
	b.WriteString(p.Tone)
	b.WriteString("\n\n**Desired Output Format for AI Response:**\n")
	b.WriteString(p.Format)
	b.WriteString("\n\n")

	// Attachments
	if p.HasFile() {
		if IsImageType(p.File.Type) {
			b.WriteString(fmt.Sprintf("**Attached Image:**\nAn image named %q is attached. Use what it shows as additional context.\n\n", p.File.Name))
		} else {
			b.WriteString(fmt.Sprintf("**Attached File Content (%s):**\n", p.File.Name))
			b.WriteString("---FILE START---\n")
			b.WriteString(p.File.Content)
			b.WriteString("\n---FILE END---\n\n")
		}
	} else if link := strings.TrimSpace(p.LinkURL); link != "" {
		b.WriteString("**Referenced Source:**\n")
		b.WriteString(link)
		b.WriteString("\nConsult this source and use its content as additional context.\n\n")
	}

	// Output instructions
	if p.WantsRegex() {
		b.WriteString("**Regex Grounding:**\n")
		b.WriteString(fmt.Sprintf("While searching the web, find every unique string in the grounded search results that matches this regular expression: `%s`\n\n", p.RegexPattern))
		b.WriteString("Your response MUST consist of exactly two parts:\n")
		b.WriteString(fmt.Sprintf("1. The unique matches, one per line, with no bullets or numbering. If nothing matches, write exactly: %s\n", NoMatchesSentence))
		b.WriteString(fmt.Sprintf("2. A line containing only %s followed by the final optimized prompt.\n\n", PromptSeparator))
		b.WriteString("The final prompt should be self-contained and ready to be used. It must clearly define the AI's role, the specific task, any constraints, the expected format, and provide examples if it would improve clarity. Where relevant, it should make use of the matches found.\n")
	} else {
		b.WriteString("Based on this information, generate an optimized prompt. The prompt should be self-contained and ready to be used. It must clearly define the AI's role, the specific task, any constraints, the expected format, and provide examples if it would improve clarity.\n")
		b.WriteString("Return only the prompt itself.\n")
	}

	return b.String()
}

// ParseGeneration splits a trimmed model answer into the final prompt and
// the regex matches. A missing separator is tolerated: the whole answer
// becomes the prompt.
func ParseGeneration(raw string, wantRegex bool) (string, []string) {
	matches := []string{}
	if !wantRegex {
		return raw, matches
	}

	before, after, found := strings.Cut(raw, PromptSeparator)
	if !found {
		return raw, matches
	}

	for _, line := range strings.Split(before, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isNoMatches(line) {
			continue
		}
		matches = append(matches, line)
	}
	return strings.TrimSpace(after), matches
}

func isNoMatches(line string) bool {
	return strings.EqualFold(strings.TrimSuffix(line, "."), strings.TrimSuffix(NoMatchesSentence, "."))
}

// FilterSources keeps citations that expose a web or maps URI.
func FilterSources(chunks []models.GroundingChunk) []models.GroundingChunk {
	out := make([]models.GroundingChunk, 0, len(chunks))
	for _, c := range chunks {
		if c.Valid() {
			out = append(out, c)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
