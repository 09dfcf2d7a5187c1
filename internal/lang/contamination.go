// Package lang detects generation output that drifted away from the
// requested locale and builds the strengthened retry prompt.
package lang

import (
	"unicode/utf8"

	"reddiscribe/internal/config"
)

const (
	// minJudgeLen is the shortest output worth judging. Anything below
	// carries too little signal to call a mismatch.
	minJudgeLen = 20

	// minHangulRatio is the minimum share of Hangul among alphabetic
	// runes for Korean output to count as clean.
	minHangulRatio = 0.3
)

// reinforcePrefix is prepended to the original prompt on the single
// contamination retry.
const reinforcePrefix = "IMPORTANT: You MUST respond entirely in Korean (한국어).\n" +
	"Do not write any English words except proper nouns.\n\n"

// Contaminated reports whether text is in the wrong language for the
// locale. Only Korean output is judged; Latin-script locales always
// pass. Text consisting solely of digits and punctuation also passes,
// since the ratio would be meaningless.
func Contaminated(text, locale string) bool {
	if locale != config.LocaleKorean || utf8.RuneCountInString(text) < minJudgeLen {
		return false
	}

	var hangul, alpha int
	for _, r := range text {
		switch {
		case r >= '가' && r <= '힣':
			hangul++
			alpha++
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			alpha++
		}
	}
	if alpha == 0 {
		return false
	}
	return float64(hangul)/float64(alpha) < minHangulRatio
}

// Reinforce strengthens a prompt with an explicit language directive
// for the contamination retry. Locales that are never judged get the
// prompt back unchanged.
func Reinforce(prompt, locale string) string {
	if locale != config.LocaleKorean {
		return prompt
	}
	return reinforcePrefix + prompt
}
