package enrich

import (
	"fmt"
	"strings"
)

// Terminology the translator must follow for Korean traditional spirits.
const termGuidelines = `
- 'Makgeolli' for 막걸리/탁주 (do not use Rice Wine)
- 'Distilled Soju' for 증류식 소주
- 'Yakju' or 'Cheongju' for 약주/청주
- 'Gwasilju' for 과실주
`

// BuildPrompt renders the enrichment request for one spirit.
func BuildPrompt(in Input) string {
	var b strings.Builder

	b.WriteString("You are an expert sommelier and translator specializing in Korean traditional spirits and global liquors.\n\n")
	b.WriteString("**Spirit Details:**\n")
	fmt.Fprintf(&b, "- Name (Korean): %s\n", in.Name)
	fmt.Fprintf(&b, "- Distillery: %s\n", orUnknown(in.Distillery))
	if in.Subcategory != "" {
		fmt.Fprintf(&b, "- Category: %s / %s\n", in.Category, in.Subcategory)
	} else {
		fmt.Fprintf(&b, "- Category: %s\n", in.Category)
	}
	fmt.Fprintf(&b, "- Region: %s\n", orUnknown(in.Region))
	fmt.Fprintf(&b, "- Country: %s\n", orUnknown(in.Country))
	if in.ABV > 0 {
		fmt.Fprintf(&b, "- ABV: %.1f%%\n", in.ABV)
	}
	if note := in.Metadata["tasting_note"]; note != "" {
		fmt.Fprintf(&b, "- Tasting Notes: %s\n", note)
	}

	b.WriteString("\n**Your Tasks:**\n")
	b.WriteString("1. name_en - The official English product name (Title Case, keep brand names romanized) using these terminology rules:\n")
	b.WriteString(termGuidelines)
	b.WriteString("2. description_ko / description_en - An evocative 2-3 sentence sommelier-style description in each language. No medical claims, no generic marketing language.\n")
	b.WriteString("3. nose_tags / palate_tags / finish_tags - 3 to 6 specific flavor tags each (e.g. \"Zesty Lemon\" instead of \"Citrus\").\n")
	b.WriteString("4. pairing_guide_en / pairing_guide_ko - 2-3 globally recognizable food pairings with the reasoning, Korean text conveying the same recommendations.\n")
	b.WriteString("5. tasting_note - A short hashtag summary (e.g. \"#Peaty #Oily #SeaSalt\").\n")

	b.WriteString("\nOutput ONLY valid JSON with exactly these keys:\n")
	b.WriteString(`{"name_en":"","description_ko":"","description_en":"","nose_tags":[],"palate_tags":[],"finish_tags":[],"pairing_guide_ko":"","pairing_guide_en":"","tasting_note":""}`)
	b.WriteString("\n")

	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
