package seo

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"iptv-shop/internal/domain"
)

// Веса подпоказателей в итоговой оценке.
const (
	weightHeadings  = 0.20
	weightKeywords  = 0.25
	weightLength    = 0.20
	weightMeta      = 0.20
	weightStructure = 0.15
)

// readingSpeedWPM — слов в минуту для оценки времени чтения.
const readingSpeedWPM = 200

// Пороговые значения скоринга. Менять нельзя: они часть контракта,
// по которому посчитаны сохранённые оценки постов.
const (
	minTitleCoverageGood = 0.8
	minTitleCoverageOK   = 0.5
	minKeywordShareGood  = 0.7
	minKeywordShareOK    = 0.4
	minDensityHealthy    = 1.0
	maxDensityHealthy    = 3.0
)

// Analyzer реализует domain.SeoAnalyzer. Чистая функция: не делает I/O и
// детерминирована для одинакового входа.
type Analyzer struct {
	scanner *htmlScanner
}

var _ domain.SeoAnalyzer = (*Analyzer)(nil)

// New создаёт анализатор.
func New() *Analyzer {
	return &Analyzer{scanner: newHTMLScanner()}
}

// Analyze оценивает контент по пяти подпоказателям и собирает текстовый разбор.
// Некорректный вход не является ошибкой: пустые строки дают минимальные оценки.
func (a *Analyzer) Analyze(input domain.ContentInput) domain.SeoScore {
	text := a.scanner.Strip(input.Content)
	wordCount := len(strings.Fields(text))

	headingScore, headingNotes := a.scoreHeadings(input.Content)
	keywordScore, keywordNotes := a.scoreKeywords(input, text)
	lengthScore, lengthNotes := a.scoreLength(wordCount)
	metaScore, metaNotes := a.scoreMeta(input)
	structureScore, structureNotes := a.scoreStructure(input.Content)

	overall := int(math.Round(
		float64(headingScore)*weightHeadings +
			float64(keywordScore)*weightKeywords +
			float64(lengthScore)*weightLength +
			float64(metaScore)*weightMeta +
			float64(structureScore)*weightStructure))

	return domain.SeoScore{
		HeadingScore:        headingScore,
		KeywordDensityScore: keywordScore,
		ContentLengthScore:  lengthScore,
		MetaScore:           metaScore,
		StructureScore:      structureScore,
		OverallSeoScore:     overall,
		WordCount:           wordCount,
		ReadTime:            fmt.Sprintf("%d min read", readTimeMinutes(wordCount)),
		SeoAnalysis: assembleAnalysis([]analysisSection{
			{"Heading Structure", headingNotes},
			{"Keyword Usage", keywordNotes},
			{"Content Length", lengthNotes},
			{"Meta Tags", metaNotes},
			{"Content Structure", structureNotes},
		}),
	}
}

func (a *Analyzer) scoreHeadings(html string) (int, []string) {
	h1 := a.scanner.CountHeadings(html, 1)
	h2 := a.scanner.CountHeadings(html, 2)
	h3 := a.scanner.CountHeadings(html, 3)

	score := 0
	var notes []string

	switch {
	case h1 == 1:
		score += 25
		notes = append(notes, "Exactly one H1 heading found.")
	case h1 == 0:
		notes = append(notes, "No H1 heading found. Add a single H1 with your main keyword.")
	default:
		score += 10
		notes = append(notes, fmt.Sprintf("Found %d H1 headings. Use only one H1 per post.", h1))
	}

	switch {
	case h2 >= 2:
		score += 35
		notes = append(notes, fmt.Sprintf("Good use of H2 subheadings (%d found).", h2))
	case h2 == 1:
		score += 20
		notes = append(notes, "Only one H2 subheading. Add more to break the post into sections.")
	default:
		notes = append(notes, "No H2 subheadings found. Structure the post with H2 sections.")
	}

	if h3 >= 1 {
		score += 20
		notes = append(notes, "H3 headings add depth to the structure.")
	}

	total := h1 + h2 + h3
	switch {
	case total >= 4:
		score += 20
		notes = append(notes, "Strong heading hierarchy with 4 or more headings.")
	case total >= 2:
		score += 10
		notes = append(notes, "Basic heading hierarchy present. Aim for 4+ headings on longer posts.")
	}

	return capScore(score), notes
}

func (a *Analyzer) scoreKeywords(input domain.ContentInput, text string) (int, []string) {
	lowered := strings.ToLower(text)
	contentWords := significantWords(lowered)
	wordSet := make(map[string]struct{}, len(contentWords))
	for _, w := range contentWords {
		wordSet[w] = struct{}{}
	}

	score := 0
	var notes []string

	// Покрытие контента словами заголовка.
	titleWords := significantWords(strings.ToLower(input.Title))
	matched := 0
	for _, w := range titleWords {
		if _, ok := wordSet[w]; ok {
			matched++
		}
	}
	coverage := 0.0
	if len(titleWords) > 0 {
		coverage = float64(matched) / float64(len(titleWords))
	}
	switch {
	case coverage >= minTitleCoverageGood:
		score += 40
		notes = append(notes, "Title words are well represented in the content.")
	case coverage >= minTitleCoverageOK:
		score += 25
		notes = append(notes, "Some title words appear in the content. Use them more consistently.")
	default:
		score += 10
		notes = append(notes, "Title words rarely appear in the content. Align the body with the headline.")
	}

	// Явно заданные ключевые слова.
	if len(input.Keywords) > 0 {
		found := 0
		for _, kw := range input.Keywords {
			if strings.Contains(lowered, strings.ToLower(kw)) {
				found++
			}
		}
		share := float64(found) / float64(len(input.Keywords))
		switch {
		case share >= minKeywordShareGood:
			score += 40
			notes = append(notes, fmt.Sprintf("Most target keywords are used (%d of %d).", found, len(input.Keywords)))
		case share >= minKeywordShareOK:
			score += 25
			notes = append(notes, fmt.Sprintf("Only %d of %d target keywords appear in the content.", found, len(input.Keywords)))
		default:
			score += 10
			notes = append(notes, "Target keywords are missing from the content.")
		}
	} else {
		score += 10
		notes = append(notes, "No target keywords set for this post.")
	}

	// Плотность самого частого слова вне стоп-списка. При равной частоте
	// выбирается слово, встретившееся раньше.
	topWord, topCount := mostFrequentWord(contentWords)
	if topWord != "" {
		density := float64(topCount) / float64(len(contentWords)) * 100
		switch {
		case density >= minDensityHealthy && density <= maxDensityHealthy:
			score += 20
			notes = append(notes, fmt.Sprintf("Keyword density for %q is in the healthy 1-3%% range.", topWord))
		case density > maxDensityHealthy:
			score += 10
			notes = append(notes, fmt.Sprintf("Possible keyword stuffing: %q density is above 3%%.", topWord))
		default:
			score += 10
			notes = append(notes, fmt.Sprintf("Low keyword density: %q appears rarely relative to the text.", topWord))
		}
	} else {
		score += 10
		notes = append(notes, "Not enough text to measure keyword density.")
	}

	return capScore(score), notes
}

func (a *Analyzer) scoreLength(wordCount int) (int, []string) {
	switch {
	case wordCount >= 2000:
		return 100, []string{fmt.Sprintf("Excellent length: %d words of in-depth content.", wordCount)}
	case wordCount >= 1500:
		return 90, []string{fmt.Sprintf("Great length: %d words.", wordCount)}
	case wordCount >= 1000:
		return 75, []string{fmt.Sprintf("Good length: %d words. Long-form posts tend to rank better.", wordCount)}
	case wordCount >= 600:
		return 55, []string{fmt.Sprintf("Decent length: %d words. Aim for 1000+ on competitive topics.", wordCount)}
	case wordCount >= 300:
		return 35, []string{fmt.Sprintf("Short post: %d words. Search engines favour more thorough coverage.", wordCount)}
	default:
		return 15, []string{fmt.Sprintf("Very short post: %d words. Add substantially more content.", wordCount)}
	}
}

func (a *Analyzer) scoreMeta(input domain.ContentInput) (int, []string) {
	score := 0
	var notes []string

	title := input.MetaTitle
	if title == "" {
		title = input.Title
	}
	titleLen := utf8.RuneCountInString(title)
	switch {
	case titleLen >= 50 && titleLen <= 60:
		score += 30
		notes = append(notes, "Meta title length is optimal (50-60 characters).")
	case titleLen >= 40 && titleLen <= 70:
		score += 20
		notes = append(notes, fmt.Sprintf("Meta title is %d characters. 50-60 is the sweet spot.", titleLen))
	case titleLen < 40:
		score += 10
		notes = append(notes, fmt.Sprintf("Meta title is too short (%d characters).", titleLen))
	default:
		score += 10
		notes = append(notes, fmt.Sprintf("Meta title is too long (%d characters) and may be truncated.", titleLen))
	}

	desc := input.MetaDescription
	if desc == "" {
		desc = input.Excerpt
	}
	descLen := utf8.RuneCountInString(desc)
	switch {
	case descLen >= 150 && descLen <= 160:
		score += 30
		notes = append(notes, "Meta description length is optimal (150-160 characters).")
	case descLen >= 120 && descLen <= 180:
		score += 20
		notes = append(notes, fmt.Sprintf("Meta description is %d characters. 150-160 is ideal.", descLen))
	case descLen < 120:
		score += 10
		notes = append(notes, fmt.Sprintf("Meta description is too short (%d characters).", descLen))
	default:
		score += 10
		notes = append(notes, fmt.Sprintf("Meta description is too long (%d characters).", descLen))
	}

	keywordCount := len(input.Keywords)
	switch {
	case keywordCount >= 3 && keywordCount <= 8:
		score += 25
		notes = append(notes, fmt.Sprintf("Good number of target keywords (%d).", keywordCount))
	case keywordCount < 3:
		score += 15
		notes = append(notes, "Add more target keywords (3-8 recommended).")
	default:
		score += 15
		notes = append(notes, fmt.Sprintf("Too many target keywords (%d). Focus on 3-8.", keywordCount))
	}

	if utf8.RuneCountInString(input.Excerpt) >= 50 {
		score += 15
		notes = append(notes, "Excerpt is long enough to double as a search snippet.")
	} else {
		notes = append(notes, "Excerpt is too short to serve as a search snippet.")
	}

	return capScore(score), notes
}

func (a *Analyzer) scoreStructure(html string) (int, []string) {
	score := 0
	var notes []string

	paragraphs := a.scanner.CountParagraphs(html)
	switch {
	case paragraphs >= 5:
		score += 25
		notes = append(notes, fmt.Sprintf("Content is split into %d paragraphs.", paragraphs))
	case paragraphs >= 3:
		score += 15
		notes = append(notes, fmt.Sprintf("Only %d paragraphs. Shorter paragraphs improve readability.", paragraphs))
	default:
		notes = append(notes, "Too few paragraphs. Split the content into readable blocks.")
	}

	lists := a.scanner.CountLists(html)
	switch {
	case lists >= 2:
		score += 25
		notes = append(notes, "Multiple lists make the content easy to scan.")
	case lists == 1:
		score += 15
		notes = append(notes, "One list found. Consider adding more for scannability.")
	default:
		notes = append(notes, "No lists found. Bullet points help readers and search engines.")
	}

	bold := a.scanner.CountBold(html)
	emphasis := a.scanner.CountEmphasis(html)
	switch {
	case bold >= 3 || emphasis >= 2:
		score += 20
		notes = append(notes, "Good use of text emphasis.")
	case bold >= 1:
		score += 10
		notes = append(notes, "Some emphasis used. Highlight key phrases more often.")
	default:
		notes = append(notes, "No emphasised text. Bold the key phrases.")
	}

	links := a.scanner.CountLinks(html)
	switch {
	case links >= 3:
		score += 20
		notes = append(notes, fmt.Sprintf("%d links found. Internal and external links boost relevance.", links))
	case links >= 1:
		score += 10
		notes = append(notes, "Only a few links. Add more internal and external references.")
	default:
		notes = append(notes, "No links found. Link to related posts and sources.")
	}

	images := a.scanner.CountImages(html)
	switch {
	case images >= 2:
		score += 10
		notes = append(notes, fmt.Sprintf("%d images enrich the content.", images))
	case images == 1:
		score += 5
		notes = append(notes, "One image found. A second image often helps engagement.")
	default:
		notes = append(notes, "No images found. Visuals improve time on page.")
	}

	return capScore(score), notes
}

// significantWords возвращает слова длиннее трёх символов в исходном порядке.
func significantWords(text string) []string {
	fields := strings.Fields(text)
	words := make([]string, 0, len(fields))
	for _, w := range fields {
		if len(w) > 3 {
			words = append(words, w)
		}
	}
	return words
}

// mostFrequentWord находит самое частое слово вне стоп-списка. Возвращает
// первое встретившееся слово при равенстве частот, чтобы результат был
// детерминирован.
func mostFrequentWord(words []string) (string, int) {
	freq := make(map[string]int, len(words))
	for _, w := range words {
		if isStopWord(w) {
			continue
		}
		freq[w]++
	}
	best := ""
	bestCount := 0
	for _, w := range words {
		if count := freq[w]; count > bestCount {
			best = w
			bestCount = count
		}
	}
	return best, bestCount
}

func readTimeMinutes(wordCount int) int {
	return int(math.Ceil(float64(wordCount) / readingSpeedWPM))
}

func capScore(score int) int {
	if score > 100 {
		return 100
	}
	return score
}

type analysisSection struct {
	title string
	notes []string
}

// assembleAnalysis склеивает разбор: заголовок секции, строки замечаний,
// секции разделены пустой строкой. Порядок секций фиксирован.
func assembleAnalysis(sections []analysisSection) string {
	parts := make([]string, 0, len(sections))
	for _, section := range sections {
		lines := append([]string{section.title + ":"}, section.notes...)
		parts = append(parts, strings.Join(lines, "\n"))
	}
	return strings.Join(parts, "\n\n")
}
