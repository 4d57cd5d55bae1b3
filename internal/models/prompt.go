package models

// ToneOptions lists the accepted values for PromptGenerationParams.Tone.
var ToneOptions = []string{
	"Professional",
	"Casual",
	"Enthusiastic",
	"Formal",
	"Humorous",
	"Sarcastic",
	"Empathetic",
	"Direct",
}

// FormatOptions lists the accepted values for PromptGenerationParams.Format.
var FormatOptions = []string{
	"Paragraph",
	"Bulleted List",
	"Numbered List",
	"JSON Object",
	"Markdown Table",
	"Step-by-step instructions",
	"Email",
	"Code Snippet",
}

// AttachedFile is a single user file. Content holds UTF-8 text, or a base64
// data URL when Type is an image.
type AttachedFile struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

// FileDescriptor identifies an attachment without its content.
type FileDescriptor struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type PromptGenerationParams struct {
	UserInput         string          `json:"userInput"`
	Context           string          `json:"context"`
	Tone              string          `json:"tone"`
	Format            string          `json:"format"`
	UseRegexGrounding bool            `json:"useRegexGrounding,omitempty"`
	RegexPattern      string          `json:"regexPattern,omitempty"`
	File              *AttachedFile   `json:"file,omitempty"`
	LinkURL           string          `json:"linkUrl,omitempty"`
	FileInfo          *FileDescriptor `json:"fileInfo,omitempty"`
}

// HasFile reports whether a file with content is attached.
func (p PromptGenerationParams) HasFile() bool {
	return p.File != nil && p.File.Content != ""
}

// WantsRegex reports whether regex grounding applies to this request.
func (p PromptGenerationParams) WantsRegex() bool {
	return p.UseRegexGrounding && p.RegexPattern != ""
}

// WebSource and MapsSource are the two citation flavours a grounded answer
// can carry.
type WebSource struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

type MapsSource struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// GroundingChunk is one citation. At least one of Web or Maps must carry a
// URI for the chunk to be shown.
type GroundingChunk struct {
	Web  *WebSource  `json:"web,omitempty"`
	Maps *MapsSource `json:"maps,omitempty"`
}

func (c GroundingChunk) Valid() bool {
	return (c.Web != nil && c.Web.URI != "") || (c.Maps != nil && c.Maps.URI != "")
}

type PromptResult struct {
	Prompt       string           `json:"prompt"`
	Sources      []GroundingChunk `json:"sources"`
	RegexMatches []string         `json:"regexMatches"`
}

type ExportRequest struct {
	Parameters PromptGenerationParams `json:"parameters"`
	Result     PromptResult           `json:"result"`
}

// ExportArtifact is the downloadable JSON document for a generation.
type ExportArtifact struct {
	Parameters PromptGenerationParams `json:"parameters"`
	Result     PromptResult           `json:"result"`
	ExportedAt string                 `json:"exportedAt"`
}

// GenerateResponse is returned by the generate endpoint. HistoryItem is
// absent when the result could not be persisted.
type GenerateResponse struct {
	Result      PromptResult `json:"result"`
	HistoryItem *HistoryItem `json:"historyItem,omitempty"`
}
