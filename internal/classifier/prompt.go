package classifier

import (
	"strings"

	"github.com/pbaille/laterread/internal/category"
)

func buildPrompt(req Request, reg *category.Registry) string {
	var sb strings.Builder

	sb.WriteString("Analyze this article and provide:\n")
	sb.WriteString("1. A summary (1-2 sentences, at most 80 words)\n")
	sb.WriteString("2. A category (the key of the best matching category below)\n\n")

	sb.WriteString("Article:\n")
	sb.WriteString("Title: " + req.Title + "\n")
	sb.WriteString("URL: " + req.URL + "\n")
	sb.WriteString("Source: " + req.Domain + "\n\n")

	if len(req.Context) > 0 {
		sb.WriteString("Items already in the reading list (keep categories consistent with them):\n")
		for i, line := range req.Context {
			if i == MaxContext {
				break
			}
			sb.WriteString(line)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString(reg.Prompt())
	sb.WriteString(`
Rules:
- Articles on the same topic as existing items (same tool, concept or field) belong in the same category
- Always pick a specific category; use "general" only when nothing fits
- Return the category key (e.g. "ai-tech", "product"), not its label
- Keep the summary short and precise

Return ONLY JSON: {"summary": "...", "category": "category-key"}`)

	return sb.String()
}
