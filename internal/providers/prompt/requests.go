package prompt

import (
	"fmt"
	"strings"

	"assettool/internal/domain"
)

func assetTypeLabel(t domain.AssetType) string {
	if t == "" {
		return "unknown"
	}
	return string(t)
}

func projectStyleLines(project *domain.Project) string {
	if project == nil {
		return ""
	}
	keywords := "none"
	if len(project.ArtStyle.StyleKeywords) > 0 {
		keywords = strings.Join(project.ArtStyle.StyleKeywords, ", ")
	}
	return fmt.Sprintf("\nProject art style: %s\nStyle keywords: %s", project.ArtStyle.Description, keywords)
}

func buildEnhanceRequest(merged string, assetType domain.AssetType, description string, keywords []string) string {
	var b strings.Builder
	b.WriteString("You are an expert prompt engineer specializing in AI content generation. ")
	b.WriteString("Your task is to enhance and improve the following prompt to make it more effective for AI generation.\n\n")
	fmt.Fprintf(&b, "Original prompt: %q", merged)
	if assetType != "" {
		fmt.Fprintf(&b, "\nAsset type: %s", assetType)
	}
	if description != "" {
		fmt.Fprintf(&b, "\nArt style: %s", description)
	}
	if len(keywords) > 0 {
		fmt.Fprintf(&b, "\nStyle keywords: %s", strings.Join(keywords, ", "))
	}
	b.WriteString(`

Please enhance this prompt by:
1. Adding specific details that improve clarity and visual quality
2. Incorporating technical terms that AI models respond well to
3. Ensuring consistency with the specified art style
4. Adding composition, lighting, and quality descriptors
5. Maintaining the original creative intent

Return only the enhanced prompt without explanations or additional text.`)
	return b.String()
}

func buildBreakdownRequest(prompt string, assetType domain.AssetType) string {
	return fmt.Sprintf(`Analyze the following prompt and break it down into specific components. Identify the subject, style, composition, lighting, camera settings, mood, quality descriptors, and technical aspects.

Prompt to analyze: %q
Asset type: %s

Please provide the analysis in this JSON format:
{
  "components": [
    {
      "type": "subject|style|composition|lighting|camera|mood|quality|technical",
      "label": "Brief label",
      "value": "Extracted text",
      "description": "What this component contributes",
      "weight": 1-10
    }
  ]
}

Focus on identifying:
- Subject: Main elements, objects, people, scenes
- Style: Art style, artistic movement, visual style
- Composition: Layout, framing, perspective
- Lighting: Light conditions, shadows, time of day
- Camera: Camera angle, lens, depth of field
- Mood: Emotional tone, atmosphere
- Quality: Resolution, detail level, rendering quality
- Technical: Specific technical parameters

Return only the JSON, no additional text.`, prompt, assetTypeLabel(assetType))
}

func buildSuggestRequest(prompt string, assetType domain.AssetType, project *domain.Project, count int) string {
	var b strings.Builder
	b.WriteString("Analyze this prompt and provide specific suggestions for improvement:\n\n")
	fmt.Fprintf(&b, "Prompt: %q\nAsset type: %s", prompt, assetTypeLabel(assetType))
	b.WriteString(projectStyleLines(project))
	if count > 0 {
		fmt.Fprintf(&b, "\nNumber of suggestions: %d", count)
	}
	b.WriteString(`

Provide suggestions in this JSON format:
{
  "suggestions": [
    {
      "type": "improvement|alternative|component|style",
      "title": "Brief title",
      "description": "Detailed description",
      "suggestedChange": "Specific text to add/change",
      "confidence": 0.0-1.0,
      "category": "subject|style|composition|lighting|technical|quality",
      "reasoning": "Why this suggestion helps"
    }
  ]
}

Focus on:
- Missing important details that would improve generation quality
- Style consistency with project requirements
- Technical improvements for better AI generation
- Composition and visual appeal enhancements
- Clarity and specificity improvements

Return only the JSON, no additional text.`)
	return b.String()
}

func buildScoreRequest(prompt string, assetType domain.AssetType, project *domain.Project) string {
	var b strings.Builder
	b.WriteString("Score this prompt for AI generation quality on a scale of 0-100 and provide specific feedback:\n\n")
	fmt.Fprintf(&b, "Prompt: %q\nAsset type: %s", prompt, assetTypeLabel(assetType))
	b.WriteString(projectStyleLines(project))
	b.WriteString(`

Evaluate based on:
- Clarity and specificity
- Technical detail appropriateness
- Style consistency
- Completeness of description
- AI generation effectiveness

Provide response in this JSON format:
{
  "score": 0-100,
  "feedback": "Detailed explanation of the score",
  "suggestions": ["specific improvement 1", "specific improvement 2", "specific improvement 3"]
}

Return only the JSON, no additional text.`)
	return b.String()
}
