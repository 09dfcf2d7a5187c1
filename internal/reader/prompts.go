package reader

import (
	"fmt"

	"reddiscribe/internal/reddit"
)

// summaryPrompt builds the three-sentence summary prompt for a post. A
// custom instruction block from the config replaces the default rules;
// the post itself is always appended.
func summaryPrompt(post *reddit.Post, targetLanguage, custom string) string {
	if custom != "" {
		return custom + fmt.Sprintf("\n\nTitle: %s\nContent: %s", post.Title, post.SelfText)
	}
	return fmt.Sprintf(
		"You are a summarization assistant. Summarize the following Reddit post in %s.\n"+
			"\n"+
			"Rules:\n"+
			"- Write exactly 3 concise sentences\n"+
			"- Capture the main argument, key details, and conclusion\n"+
			"- Output ONLY in %s. Do not mix languages.\n"+
			"- Do not add commentary or opinions\n"+
			"\n"+
			"Title: %s\n"+
			"Content: %s",
		targetLanguage, targetLanguage, post.Title, post.SelfText,
	)
}
