package pipeline

import "strings"

// Fixed stop-word set for keyword extraction. French and English function
// words, since uploaded documents come in both languages.
var defaultStopwords = []string{
	// English
	"the", "and", "for", "are", "but", "not", "you", "all", "can", "had",
	"her", "was", "one", "our", "out", "day", "get", "has", "him", "his",
	"how", "man", "new", "now", "old", "see", "two", "way", "who", "did",
	"its", "let", "she", "too", "use", "that", "with", "have", "this",
	"will", "your", "from", "they", "been", "were", "which", "their",
	"than", "them", "then", "there", "these", "some", "what", "when",
	"into", "more", "other", "about", "also",
	// French
	"les", "des", "une", "dans", "est", "pour", "par", "sur", "avec",
	"son", "ses", "aux", "ces", "mes", "mais", "comme", "tout", "nous",
	"vous", "ils", "elles", "leur", "leurs", "cette", "ont", "fait",
	"plus", "sont", "afin", "ainsi", "entre", "chez", "sans", "sous",
	"etre", "avoir", "donc", "apres", "avant", "depuis", "pendant",
}

func newStopwordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set
}
