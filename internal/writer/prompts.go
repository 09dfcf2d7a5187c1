package writer

import (
	"fmt"
	"regexp"
	"strings"
)

// draftPrompt builds the literal-translation prompt for the logic
// model. A custom instruction block from the config replaces the
// default rules; the source text is always appended.
func draftPrompt(source, custom string) string {
	if custom != "" {
		return custom + "\n\nKorean text:\n" + source
	}
	return fmt.Sprintf(
		"Translate the following Korean text into English.\n"+
			"\n"+
			"Absolute rules for translation:\n"+
			"1. Do NOT change action verbs\n"+
			"   - '보다' (to see/check) ≠ 'subscribe'\n"+
			"   - '만들다' (to make) ≠ 'develop'\n"+
			"2. Do NOT add concepts not in the original\n"+
			"   - '번역해서' (by translating) must NOT be omitted\n"+
			"   - '도구' (tool) must NOT be specified as 'Google Translate' etc.\n"+
			"3. If meaning is ambiguous, add clarification in parentheses\n"+
			"   - e.g., 'checked out (by translating)'\n"+
			"- NEVER invent names, tools, or references\n"+
			"- Output ONLY the English translation\n"+
			"\n"+
			"Korean text:\n%s",
		source,
	)
}

// polishPrompt builds the Reddit-tone rewrite prompt for the persona
// model.
func polishPrompt(draft, custom string) string {
	if custom != "" {
		return custom + "\n\nOriginal English:\n" + draft
	}
	return fmt.Sprintf(
		"Rewrite the following English text to sound natural for a Reddit post.\n"+
			"\n"+
			"Rules:\n"+
			"- Use casual, conversational tone appropriate for Reddit\n"+
			"- Add common Reddit expressions where natural (e.g., \"IMO\", \"FWIW\")\n"+
			"- Keep the core meaning intact\n"+
			"- Do not over-use slang - keep it readable\n"+
			"- Match the tone to the subreddit context if provided\n"+
			"- NEVER add facts, details, tool names, or motivations not present in the original\n"+
			"- NEVER invent specific names (e.g., 'Google Translate') unless explicitly mentioned\n"+
			"- Only rephrase existing information - do not expand or embellish\n"+
			"- Output ONLY the rewritten text\n"+
			"\n"+
			"Original English:\n%s",
		draft,
	)
}

// refinePrompt builds the conversational refine prompt.
func refinePrompt(source, current, instruction string) string {
	return fmt.Sprintf(
		"You are helping refine the English translation of a Korean Reddit post.\n"+
			"\n"+
			"Korean original:\n%s\n"+
			"\n"+
			"Current English version:\n%s\n"+
			"\n"+
			"The user asks:\n%s\n"+
			"\n"+
			"Reply briefly and conversationally. If you propose a revised version of\n"+
			"the full text, wrap exactly that revision in [TRANSLATION] and\n"+
			"[/TRANSLATION] tags so it can be applied automatically.",
		source, current, instruction,
	)
}

var suggestionRE = regexp.MustCompile(`(?s)\[TRANSLATION\](.*?)\[/TRANSLATION\]`)

// Suggestion extracts the revised translation offered in a refine
// reply, if any.
func Suggestion(reply string) (string, bool) {
	m := suggestionRE.FindStringSubmatch(reply)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}
