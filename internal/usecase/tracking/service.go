package tracking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"iptv-shop/internal/domain"
	"iptv-shop/internal/infra/metrics"
)

// Service записывает посещения витрины с дедупликацией по посетителю и странице.
type Service struct {
	visits    domain.VisitRepo
	cache     domain.Cache
	dedupeTTL time.Duration
	logger    zerolog.Logger
}

// NewService создаёт сервис трекинга.
func NewService(visits domain.VisitRepo, cache domain.Cache, dedupeTTL time.Duration, logger zerolog.Logger) *Service {
	if dedupeTTL <= 0 {
		dedupeTTL = 30 * time.Minute
	}
	return &Service{visits: visits, cache: cache, dedupeTTL: dedupeTTL, logger: logger}
}

// RecordVisit сохраняет посещение страницы. Повторные заходы того же
// посетителя на ту же страницу в окне dedupeTTL не учитываются.
func (s *Service) RecordVisit(ctx context.Context, path, referrer, userAgent, visitorID string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		path = "/"
	}
	if visitorID == "" {
		visitorID = uuid.NewString()
	}

	key := "visit:" + visitorID + ":" + path
	err := s.cache.Once(key, s.dedupeTTL, func() error {
		event := domain.VisitorEvent{
			ID:         uuid.NewString(),
			Path:       path,
			Referrer:   referrer,
			UserAgent:  userAgent,
			VisitorID:  visitorID,
			OccurredAt: time.Now().UTC(),
		}
		if err := s.visits.SaveVisit(ctx, event); err != nil {
			return fmt.Errorf("сохранение посещения: %w", err)
		}
		metrics.VisitsRecordedTotal.Inc()
		return nil
	})
	if err != nil {
		return err
	}
	return nil
}

// DailyStats возвращает количества посещений по дням за последние days дней.
func (s *Service) DailyStats(ctx context.Context, days int) ([]domain.DailyVisits, error) {
	if days <= 0 || days > 365 {
		days = 30
	}
	from := time.Now().UTC().AddDate(0, 0, -days)
	stats, err := s.visits.CountVisitsByDay(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("выборка статистики посещений: %w", err)
	}
	return stats, nil
}
