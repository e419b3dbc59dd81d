package seo

// stopWords — служебные английские слова, исключаемые из частотного анализа.
// Список фиксирован: расширение меняет скоринг существующих постов.
var stopWords = map[string]struct{}{
	"about": {}, "after": {}, "again": {}, "against": {}, "because": {},
	"been": {}, "before": {}, "being": {}, "below": {}, "between": {},
	"both": {}, "cannot": {}, "could": {}, "does": {}, "doing": {},
	"down": {}, "during": {}, "each": {}, "from": {}, "further": {},
	"have": {}, "having": {}, "here": {}, "into": {}, "itself": {},
	"just": {}, "more": {}, "most": {}, "once": {}, "only": {},
	"other": {}, "over": {}, "same": {}, "should": {}, "some": {},
	"such": {}, "than": {}, "that": {}, "their": {}, "them": {},
	"then": {}, "there": {}, "these": {}, "they": {}, "this": {},
	"those": {}, "through": {}, "under": {}, "until": {}, "very": {},
	"were": {}, "what": {}, "when": {}, "where": {}, "which": {},
	"while": {}, "will": {}, "with": {}, "would": {}, "your": {},
	"yours": {},
}

func isStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}
