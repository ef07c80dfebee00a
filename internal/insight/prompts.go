package insight

import (
	"fmt"
	"strings"

	"github.com/runnerr0/dreamlog/internal/storage"
)

// Interpretation styles accepted by config.AIConfig.InterpretationStyle.
const (
	StylePsychological = "psychological"
	StyleCultural      = "cultural"
	StyleMixed         = "mixed"
)

func patternPrompt(entries []storage.Entry, excerptChars int) string {
	var b strings.Builder
	b.WriteString("Analyze these dreams to identify patterns:\n\n")
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Dream %d [%s]: %s", i+1, e.Mood, excerpt(e.Body, excerptChars))
	}
	b.WriteString(`

Identify:
1. Recurring Symbols: Which symbols, themes, or elements appear multiple times?
2. Emotional Trends: What emotional patterns or progressions do you notice?
3. Recommendations: What insights or suggestions can help the dreamer understand their dreams better?

Format as JSON with keys: recurringSymbols (array), emotionalTrends (array), recommendations (array).`)
	return b.String()
}

func interpretPrompt(body string, mood storage.Mood, style string) string {
	var focus string
	switch style {
	case StylePsychological:
		focus = "Lean on psychological analysis; keep the cultural section brief."
	case StyleCultural:
		focus = "Lean on cultural and mythological traditions; keep the psychological section brief."
	default:
		focus = "Balance psychological and cultural perspectives."
	}

	return fmt.Sprintf(`You are an expert dream interpreter combining psychology, symbolism, and cultural analysis.

Dream Content: %q
Emotional Tone: %s

Please provide a comprehensive interpretation with:
1. Psychological Analysis: What might this dream reveal about the dreamer's subconscious mind, emotions, or current life situation?
2. Symbolic Meaning: What do the key symbols and themes represent?
3. Cultural Context: How might different cultural traditions interpret these symbols?
4. Possible Meanings: 3-5 different interpretations or insights.

%s Be insightful, empathetic, and thought-provoking. Format as JSON with keys: psychologicalAnalysis, symbolicMeaning, culturalContext, possibleMeanings (array of strings).`,
		body, mood, focus)
}

func symbolPrompt(body string) string {
	return fmt.Sprintf(`Analyze this dream and extract the most important symbols:

%q

Identify 3-8 key symbols and categorize them (e.g., people, animals, nature, objects, emotions, places).
For each symbol, provide:
- name: the symbol name
- category: one of (people, animals, nature, objects, emotions, places, other)
- meaning: brief interpretation of what this symbol typically represents

Format as JSON array with objects containing: name, category, meaning.`, body)
}

func recommendationPrompt(p storage.Pattern) string {
	return fmt.Sprintf(`Based on these dream patterns:

Recurring Symbols: %s
Emotional Trends: %s

Provide 5 personalized, actionable recommendations for:
- Self-reflection and awareness
- Improving dream recall
- Understanding deeper meanings
- Emotional well-being

Format as JSON array of strings.`,
		strings.Join(p.RecurringSymbols, ", "), strings.Join(p.Trends, ", "))
}

// excerpt returns at most n runes of s, with "..." appended when cut.
func excerpt(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
