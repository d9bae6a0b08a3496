package textnorm

// stopWords is the English function-word list applied to gloss and concept terms.
var stopWords = map[string]bool{
	"a": true, "about": true, "above": true, "after": true, "again": true, "against": true,
	"all": true, "am": true, "an": true, "and": true, "any": true, "are": true, "as": true,
	"at": true, "be": true, "because": true, "been": true, "before": true, "being": true,
	"below": true, "between": true, "both": true, "but": true, "by": true, "can": true,
	"could": true, "did": true, "do": true, "does": true, "doing": true, "down": true,
	"during": true, "each": true, "either": true, "etc": true, "few": true, "for": true,
	"from": true, "further": true, "had": true, "has": true, "have": true, "having": true,
	"he": true, "her": true, "here": true, "hers": true, "him": true, "his": true, "how": true,
	"i": true, "if": true, "in": true, "into": true, "is": true, "it": true, "its": true,
	"itself": true, "just": true, "may": true, "me": true, "more": true, "most": true,
	"must": true, "my": true, "no": true, "nor": true, "not": true, "of": true, "off": true,
	"often": true, "on": true, "once": true, "one": true, "only": true, "or": true,
	"other": true, "our": true, "out": true, "over": true, "own": true, "same": true,
	"she": true, "should": true, "so": true, "some": true, "such": true, "than": true,
	"that": true, "the": true, "their": true, "them": true, "then": true, "there": true,
	"these": true, "they": true, "this": true, "those": true, "through": true, "to": true,
	"too": true, "under": true, "until": true, "up": true, "usually": true, "very": true,
	"was": true, "we": true, "were": true, "what": true, "when": true, "where": true,
	"which": true, "while": true, "who": true, "whom": true, "why": true, "will": true,
	"with": true, "would": true, "you": true, "your": true,
}

// IsStopWord reports whether w (already folded) is an English function word.
func IsStopWord(w string) bool {
	return stopWords[w]
}

// Terms turns free text or a word list into a set of content-word stems:
// tokens are folded, stop words and bare numbers dropped, the rest stemmed.
func Terms(texts ...string) map[string]bool {
	set := make(map[string]bool)
	for _, text := range texts {
		for _, tok := range Tokenize(Fold(text)) {
			if IsStopWord(tok) || isNumber(tok) {
				continue
			}
			if s := Stem(tok); s != "" {
				set[s] = true
			}
		}
	}
	return set
}

func isNumber(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
