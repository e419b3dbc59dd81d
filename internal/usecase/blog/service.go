package blog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"iptv-shop/internal/domain"
	"iptv-shop/internal/infra/metrics"
)

// ErrMissingFields возвращается, когда у поста нет заголовка, текста или анонса.
var ErrMissingFields = errors.New("заголовок, текст и анонс обязательны")

// Service реализует бизнес-логику блога: посты, SEO-анализ, генерацию черновиков.
type Service struct {
	posts     domain.BlogRepo
	analyzer  domain.SeoAnalyzer
	generator domain.ContentGenerator
	logger    zerolog.Logger
}

// NewService создаёт сервис блога. generator может быть nil, тогда генерация недоступна.
func NewService(posts domain.BlogRepo, analyzer domain.SeoAnalyzer, generator domain.ContentGenerator, logger zerolog.Logger) *Service {
	return &Service{posts: posts, analyzer: analyzer, generator: generator, logger: logger}
}

// PostInput — данные поста от админки.
type PostInput struct {
	Title           string   `json:"title"`
	Content         string   `json:"content"`
	Excerpt         string   `json:"excerpt"`
	MetaTitle       string   `json:"metaTitle"`
	MetaDescription string   `json:"metaDescription"`
	Keywords        []string `json:"keywords"`
	Published       bool     `json:"published"`
}

func (in PostInput) validate() error {
	if strings.TrimSpace(in.Title) == "" ||
		strings.TrimSpace(in.Content) == "" ||
		strings.TrimSpace(in.Excerpt) == "" {
		return ErrMissingFields
	}
	return nil
}

func (in PostInput) contentInput() domain.ContentInput {
	return domain.ContentInput{
		Title:           in.Title,
		Content:         in.Content,
		Excerpt:         in.Excerpt,
		MetaTitle:       in.MetaTitle,
		MetaDescription: in.MetaDescription,
		Keywords:        in.Keywords,
	}
}

// Analyze проверяет обязательные поля и возвращает SEO-оценку контента.
func (s *Service) Analyze(in PostInput) (domain.SeoScore, error) {
	if err := in.validate(); err != nil {
		return domain.SeoScore{}, err
	}
	start := time.Now()
	score := s.analyzer.Analyze(in.contentInput())
	metrics.SeoAnalysisSeconds.Observe(time.Since(start).Seconds())
	return score, nil
}

// CreatePost сохраняет новый пост, пересчитывая SEO-оценку.
func (s *Service) CreatePost(ctx context.Context, in PostInput) (domain.BlogPost, error) {
	score, err := s.Analyze(in)
	if err != nil {
		return domain.BlogPost{}, err
	}
	post := domain.BlogPost{
		Slug:            Slugify(in.Title),
		Title:           in.Title,
		Excerpt:         in.Excerpt,
		ContentHTML:     in.Content,
		MetaTitle:       in.MetaTitle,
		MetaDescription: in.MetaDescription,
		Keywords:        in.Keywords,
		Published:       in.Published,
		Seo:             score,
	}
	saved, err := s.posts.CreatePost(ctx, post)
	if err != nil {
		return domain.BlogPost{}, fmt.Errorf("сохранение поста: %w", err)
	}
	s.logger.Info().Str("slug", saved.Slug).Int("seo", saved.Seo.OverallSeoScore).Msg("пост создан")
	return saved, nil
}

// UpdatePost обновляет пост по slug, пересчитывая SEO-оценку.
func (s *Service) UpdatePost(ctx context.Context, slug string, in PostInput) (domain.BlogPost, error) {
	existing, err := s.posts.GetPostBySlug(ctx, slug)
	if err != nil {
		return domain.BlogPost{}, err
	}
	score, err := s.Analyze(in)
	if err != nil {
		return domain.BlogPost{}, err
	}
	existing.Title = in.Title
	existing.Excerpt = in.Excerpt
	existing.ContentHTML = in.Content
	existing.MetaTitle = in.MetaTitle
	existing.MetaDescription = in.MetaDescription
	existing.Keywords = in.Keywords
	existing.Published = in.Published
	existing.Seo = score

	saved, err := s.posts.UpdatePost(ctx, existing)
	if err != nil {
		return domain.BlogPost{}, fmt.Errorf("обновление поста: %w", err)
	}
	return saved, nil
}

// GetPost возвращает пост по slug.
func (s *Service) GetPost(ctx context.Context, slug string) (domain.BlogPost, error) {
	return s.posts.GetPostBySlug(ctx, slug)
}

// ListPublished возвращает страницу опубликованных постов.
func (s *Service) ListPublished(ctx context.Context, limit, offset int) ([]domain.BlogPost, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.posts.ListPublished(ctx, limit, offset)
}

// DraftResult — сгенерированный черновик вместе с его SEO-оценкой.
type DraftResult struct {
	Draft domain.BlogDraft
	Seo   domain.SeoScore
}

// ErrGeneratorUnavailable возвращается, если генерация контента не настроена.
var ErrGeneratorUnavailable = errors.New("генерация контента не настроена")

// GenerateDraft строит черновик поста через LLM и оценивает его.
func (s *Service) GenerateDraft(ctx context.Context, topic string, keywords []string) (DraftResult, error) {
	if s.generator == nil {
		return DraftResult{}, ErrGeneratorUnavailable
	}
	if strings.TrimSpace(topic) == "" {
		return DraftResult{}, fmt.Errorf("тема черновика пуста")
	}
	draft, err := s.generator.GenerateDraft(ctx, topic, keywords)
	if err != nil {
		return DraftResult{}, err
	}
	score := s.analyzer.Analyze(domain.ContentInput{
		Title:    draft.Title,
		Content:  draft.ContentHTML,
		Excerpt:  draft.Excerpt,
		Keywords: keywords,
	})
	return DraftResult{Draft: draft, Seo: score}, nil
}

// Slugify приводит заголовок к URL-безопасному slug.
func Slugify(title string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}
