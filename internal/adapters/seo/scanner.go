package seo

import (
	"regexp"
	"strings"
)

// htmlScanner считает структурные теги регулярными выражениями. Семантика
// сопоставления (нежадная, без учёта регистра) — часть контракта скоринга,
// поэтому полноценный HTML-парсер здесь не используется.
type htmlScanner struct {
	headings  [3]*regexp.Regexp
	paragraph *regexp.Regexp
	list      *regexp.Regexp
	bold      *regexp.Regexp
	emphasis  *regexp.Regexp
	link      *regexp.Regexp
	image     *regexp.Regexp
	tag       *regexp.Regexp
}

func newHTMLScanner() *htmlScanner {
	return &htmlScanner{
		headings: [3]*regexp.Regexp{
			regexp.MustCompile(`(?is)<h1(?:\s[^>]*)?>.*?</h1>`),
			regexp.MustCompile(`(?is)<h2(?:\s[^>]*)?>.*?</h2>`),
			regexp.MustCompile(`(?is)<h3(?:\s[^>]*)?>.*?</h3>`),
		},
		paragraph: regexp.MustCompile(`(?is)<p(?:\s[^>]*)?>.*?</p>`),
		list:      regexp.MustCompile(`(?is)<(?:ul|ol)(?:\s[^>]*)?>.*?</(?:ul|ol)>`),
		bold:      regexp.MustCompile(`(?is)<(?:strong|b)(?:\s[^>]*)?>.*?</(?:strong|b)>`),
		emphasis:  regexp.MustCompile(`(?is)<(?:em|i)(?:\s[^>]*)?>.*?</(?:em|i)>`),
		link:      regexp.MustCompile(`(?i)<a\s[^>]*href\s*=`),
		image:     regexp.MustCompile(`(?i)<img(?:\s[^>]*)?/?>`),
		tag:       regexp.MustCompile(`(?s)<[^>]*>`),
	}
}

// CountHeadings считает заголовки уровня 1–3.
func (s *htmlScanner) CountHeadings(html string, level int) int {
	if level < 1 || level > 3 {
		return 0
	}
	return len(s.headings[level-1].FindAllStringIndex(html, -1))
}

// CountParagraphs считает абзацы.
func (s *htmlScanner) CountParagraphs(html string) int {
	return len(s.paragraph.FindAllStringIndex(html, -1))
}

// CountLists считает блоки ul/ol.
func (s *htmlScanner) CountLists(html string) int {
	return len(s.list.FindAllStringIndex(html, -1))
}

// CountBold считает strong/b.
func (s *htmlScanner) CountBold(html string) int {
	return len(s.bold.FindAllStringIndex(html, -1))
}

// CountEmphasis считает em/i.
func (s *htmlScanner) CountEmphasis(html string) int {
	return len(s.emphasis.FindAllStringIndex(html, -1))
}

// CountLinks считает ссылки с href.
func (s *htmlScanner) CountLinks(html string) int {
	return len(s.link.FindAllStringIndex(html, -1))
}

// CountImages считает изображения.
func (s *htmlScanner) CountImages(html string) int {
	return len(s.image.FindAllStringIndex(html, -1))
}

// Strip убирает теги и схлопывает пробелы, оставляя только текст.
func (s *htmlScanner) Strip(html string) string {
	return strings.Join(strings.Fields(s.tag.ReplaceAllString(html, " ")), " ")
}
