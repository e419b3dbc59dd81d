package seo

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"iptv-shop/internal/domain"
)

func contentWithWords(n int) string {
	var b strings.Builder
	b.WriteString("<p>")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "word%d ", i)
	}
	b.WriteString("</p>")
	return b.String()
}

func TestAnalyzeDeterministic(t *testing.T) {
	a := New()
	input := domain.ContentInput{
		Title:    "Best IPTV Service for 2026",
		Content:  "<h1>Best IPTV Service</h1><p>Streaming with the best iptv service around.</p><ul><li>One</li></ul>",
		Excerpt:  "A short overview of the best IPTV service and how to choose one.",
		Keywords: []string{"IPTV", "streaming"},
	}
	first := a.Analyze(input)
	second := a.Analyze(input)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("ожидали идентичный результат при повторном вызове: %+v != %+v", first, second)
	}
}

func TestAnalyzeScoreBounds(t *testing.T) {
	a := New()
	inputs := []domain.ContentInput{
		{},
		{Title: "x", Content: "   ", Excerpt: " "},
		{Title: "Broken markup", Content: "<h1>open<p>unclosed<ul><li>", Excerpt: "short"},
		{
			Title:    "Best IPTV Service",
			Content:  "<h1>T</h1><h2>A</h2><h2>B</h2><h3>C</h3>" + contentWithWords(2200),
			Excerpt:  strings.Repeat("a", 160),
			Keywords: []string{"iptv", "streaming", "devices"},
		},
	}
	for i, input := range inputs {
		res := a.Analyze(input)
		for name, score := range map[string]int{
			"heading":   res.HeadingScore,
			"keyword":   res.KeywordDensityScore,
			"length":    res.ContentLengthScore,
			"meta":      res.MetaScore,
			"structure": res.StructureScore,
			"overall":   res.OverallSeoScore,
		} {
			if score < 0 || score > 100 {
				t.Fatalf("вход %d: оценка %s вне диапазона: %d", i, name, score)
			}
		}
		if res.WordCount < 0 {
			t.Fatalf("вход %d: отрицательный счётчик слов", i)
		}
	}
}

func TestAnalyzeEmptyContent(t *testing.T) {
	a := New()
	res := a.Analyze(domain.ContentInput{})
	if res.WordCount != 0 {
		t.Fatalf("ожидали 0 слов, получили %d", res.WordCount)
	}
	if res.ReadTime != "0 min read" {
		t.Fatalf("ожидали \"0 min read\", получили %q", res.ReadTime)
	}
	if res.SeoAnalysis == "" {
		t.Fatalf("разбор должен строиться даже для пустого входа")
	}
}

func TestHeadingScoreCeiling(t *testing.T) {
	a := New()
	content := "<h1>Main</h1><h2>First</h2><h2>Second</h2><h3>Detail</h3><p>body</p>"
	res := a.Analyze(domain.ContentInput{Title: "t", Content: content, Excerpt: "e"})
	// 25 за единственный H1, 35 за два H2, 20 за H3, 20 за 4+ заголовков.
	if res.HeadingScore != 100 {
		t.Fatalf("ожидали 100, получили %d", res.HeadingScore)
	}
}

func TestHeadingScoreWarnsOnMultipleH1(t *testing.T) {
	a := New()
	res := a.Analyze(domain.ContentInput{
		Title:   "t",
		Content: "<h1>one</h1><h1>two</h1>",
		Excerpt: "e",
	})
	// 10 за несколько H1, 10 за два заголовка в сумме.
	if res.HeadingScore != 20 {
		t.Fatalf("ожидали 20, получили %d", res.HeadingScore)
	}
	if !strings.Contains(res.SeoAnalysis, "Use only one H1") {
		t.Fatalf("ожидали замечание про несколько H1: %s", res.SeoAnalysis)
	}
}

func TestKeywordHalfFoundTier(t *testing.T) {
	a := New()
	base := domain.ContentInput{
		Title:   "unrelated headline",
		Content: "<p>The alpha protocol appears here with plenty of unrelated filler text around.</p>",
		Excerpt: "excerpt",
	}

	half := base
	half.Keywords = []string{"alpha", "beta"}
	missed := base
	missed.Keywords = []string{"gamma", "beta"}

	halfScore := a.Analyze(half).KeywordDensityScore
	missedScore := a.Analyze(missed).KeywordDensityScore
	// 1 из 2 найденных — ярус >=0.4 (+25), 0 из 2 — минимальный (+10).
	if halfScore-missedScore != 15 {
		t.Fatalf("ожидали разницу 15 между ярусами, получили %d и %d", halfScore, missedScore)
	}

	full := base
	full.Keywords = []string{"alpha"}
	fullScore := a.Analyze(full).KeywordDensityScore
	if fullScore-halfScore != 15 {
		t.Fatalf("ожидали ярус >=0.7 выше на 15, получили %d и %d", fullScore, halfScore)
	}
}

func TestContentLengthMonotonic(t *testing.T) {
	a := New()
	counts := []int{0, 100, 300, 600, 1000, 1500, 2000, 2500}
	prev := -1
	for _, n := range counts {
		res := a.Analyze(domain.ContentInput{Title: "t", Content: contentWithWords(n), Excerpt: "e"})
		if res.ContentLengthScore < prev {
			t.Fatalf("оценка длины упала на %d словах: %d < %d", n, res.ContentLengthScore, prev)
		}
		prev = res.ContentLengthScore
	}
}

func TestContentLengthThresholds(t *testing.T) {
	a := New()
	tests := []struct {
		words int
		want  int
	}{
		{2000, 100},
		{1500, 90},
		{1000, 75},
		{600, 55},
		{300, 35},
		{299, 15},
		{0, 15},
	}
	for _, tt := range tests {
		res := a.Analyze(domain.ContentInput{Title: "t", Content: contentWithWords(tt.words), Excerpt: "e"})
		if res.ContentLengthScore != tt.want {
			t.Fatalf("на %d словах ожидали %d, получили %d", tt.words, tt.want, res.ContentLengthScore)
		}
	}
}

func TestReadTime(t *testing.T) {
	a := New()
	res := a.Analyze(domain.ContentInput{Title: "t", Content: contentWithWords(450), Excerpt: "e"})
	if res.WordCount != 450 {
		t.Fatalf("ожидали 450 слов, получили %d", res.WordCount)
	}
	if res.ReadTime != "3 min read" {
		t.Fatalf("ожидали \"3 min read\", получили %q", res.ReadTime)
	}
}

func TestMetaFallbacks(t *testing.T) {
	a := New()
	title := strings.Repeat("t", 55)
	desc := strings.Repeat("d", 155)

	explicit := a.Analyze(domain.ContentInput{
		Title:           "short",
		Excerpt:         "tiny",
		MetaTitle:       title,
		MetaDescription: desc,
	})
	fallback := a.Analyze(domain.ContentInput{
		Title:   title,
		Excerpt: desc,
	})
	if explicit.MetaScore == fallback.MetaScore {
		// Запасной вариант использует excerpt и как описание, и как сниппет,
		// поэтому оценки различаются только бонусом за длину excerpt.
		t.Fatalf("ожидали расхождение только по бонусу за excerpt")
	}
	if fallback.MetaScore-explicit.MetaScore != 15 {
		t.Fatalf("ожидали разницу 15, получили %d и %d", fallback.MetaScore, explicit.MetaScore)
	}
}

func TestOverallScoreWeighting(t *testing.T) {
	a := New()
	res := a.Analyze(domain.ContentInput{
		Title:    "Best IPTV Service",
		Content:  "<h1>Best IPTV Service</h1><p>Streaming devices and iptv plans.</p>",
		Excerpt:  "Short summary text about iptv streaming devices and subscriptions.",
		Keywords: []string{"IPTV", "streaming"},
	})
	want := int(float64(res.HeadingScore)*0.20 +
		float64(res.KeywordDensityScore)*0.25 +
		float64(res.ContentLengthScore)*0.20 +
		float64(res.MetaScore)*0.20 +
		float64(res.StructureScore)*0.15 + 0.5)
	if res.OverallSeoScore != want {
		t.Fatalf("ожидали взвешенную сумму %d, получили %d", want, res.OverallSeoScore)
	}
}

func TestRicherContentScoresHigher(t *testing.T) {
	a := New()
	rich := domain.ContentInput{
		Title: "Best IPTV Service",
		Content: "<h1>Best IPTV Service</h1>" +
			"<p>Our IPTV streaming lineup covers every device.</p>" +
			"<p>Streaming quality depends on the service backbone.</p>" +
			"<p>Choose the IPTV plan that matches your household.</p>" +
			"<ul><li>4K channels</li><li>Catch-up TV</li></ul>",
		Excerpt:  "Short summary text about choosing an IPTV service.",
		Keywords: []string{"IPTV", "streaming"},
	}
	poor := rich
	poor.Keywords = nil
	poor.Content = "<h1>Best IPTV Service</h1>" +
		"<p>Our IPTV streaming lineup covers every device.</p>" +
		"<p>Streaming quality depends on the service backbone.</p>" +
		"<p>Choose the IPTV plan that matches your household.</p>"

	richScore := a.Analyze(rich).OverallSeoScore
	poorScore := a.Analyze(poor).OverallSeoScore
	if richScore <= poorScore {
		t.Fatalf("ожидали строгий рост оценки: %d <= %d", richScore, poorScore)
	}
}

func TestAnalysisSectionOrder(t *testing.T) {
	a := New()
	res := a.Analyze(domain.ContentInput{Title: "t", Content: "<p>text</p>", Excerpt: "e"})
	order := []string{"Heading Structure:", "Keyword Usage:", "Content Length:", "Meta Tags:", "Content Structure:"}
	last := -1
	for _, header := range order {
		idx := strings.Index(res.SeoAnalysis, header)
		if idx < 0 {
			t.Fatalf("секция %q отсутствует в разборе", header)
		}
		if idx < last {
			t.Fatalf("секция %q не на своём месте", header)
		}
		last = idx
	}
}

func TestScannerCounts(t *testing.T) {
	s := newHTMLScanner()
	html := `<H1 class="hero">Title</H1><p>one</p><P>two</P><ul><li>a</li></ul>` +
		`<ol><li>b</li></ol><strong>x</strong><b>y</b><em>z</em>` +
		`<a href="/a">in</a><a target="_blank" href="https://x">out</a>` +
		`<img src="/i.png" alt=""><br>`
	if got := s.CountHeadings(html, 1); got != 1 {
		t.Fatalf("h1: ожидали 1, получили %d", got)
	}
	if got := s.CountParagraphs(html); got != 2 {
		t.Fatalf("p: ожидали 2, получили %d", got)
	}
	if got := s.CountLists(html); got != 2 {
		t.Fatalf("списки: ожидали 2, получили %d", got)
	}
	if got := s.CountBold(html); got != 2 {
		t.Fatalf("strong/b: ожидали 2, получили %d (<br> не должен считаться)", got)
	}
	if got := s.CountEmphasis(html); got != 1 {
		t.Fatalf("em/i: ожидали 1, получили %d", got)
	}
	if got := s.CountLinks(html); got != 2 {
		t.Fatalf("ссылки: ожидали 2, получили %d", got)
	}
	if got := s.CountImages(html); got != 1 {
		t.Fatalf("изображения: ожидали 1, получили %d", got)
	}
	if got := s.Strip("<p>hello   <b>world</b></p>"); got != "hello world" {
		t.Fatalf("strip: получили %q", got)
	}
}
