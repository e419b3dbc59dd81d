package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"iptv-shop/internal/adapters/stripe"
	"iptv-shop/internal/domain"
	httpinfra "iptv-shop/internal/infra/http"
	"iptv-shop/internal/infra/metrics"
	blogusecase "iptv-shop/internal/usecase/blog"
	ordersusecase "iptv-shop/internal/usecase/orders"
	trackingusecase "iptv-shop/internal/usecase/tracking"
)

const (
	visitorCookie  = "visitor_id"
	maxWebhookBody = 1 << 20
)

type handlers struct {
	orders        *ordersusecase.Service
	blog          *blogusecase.Service
	tracking      *trackingusecase.Service
	products      domain.ProductRepo
	webhookSecret string
	log           zerolog.Logger
}

func (h *handlers) register(r chi.Router, adminToken string) {
	r.Get("/api/products", h.listProducts)
	r.Get("/api/products/{slug}", h.getProduct)
	r.Post("/api/checkout", h.checkout)
	r.Get("/api/orders/{id}", h.getOrder)
	r.Post("/api/webhooks/stripe", h.stripeWebhook)
	r.Get("/api/blog", h.listPosts)
	r.Get("/api/blog/{slug}", h.getPost)
	r.Post("/api/track", h.trackVisit)

	r.Group(func(admin chi.Router) {
		admin.Use(httpinfra.AdminAuthMiddleware(adminToken))
		admin.Post("/api/admin/blog/analyze-seo", h.analyzeSeo)
		admin.Post("/api/admin/blog/posts", h.createPost)
		admin.Put("/api/admin/blog/posts/{slug}", h.updatePost)
		admin.Get("/api/admin/blog/posts/{slug}", h.getPostAdmin)
		admin.Post("/api/admin/blog/generate", h.generateDraft)
		admin.Get("/api/admin/stats/visits", h.visitStats)
	})
}

type productResponse struct {
	Slug       string `json:"slug"`
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	PriceCents int64  `json:"priceCents"`
	Currency   string `json:"currency"`
}

func toProductResponse(p domain.Product) productResponse {
	return productResponse{
		Slug:       p.Slug,
		Name:       p.Name,
		Kind:       string(p.Kind),
		PriceCents: p.PriceCents,
		Currency:   p.Currency,
	}
}

func (h *handlers) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListActive(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("список товаров")
		httpinfra.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, toProductResponse(p))
	}
	httpinfra.WriteJSON(w, http.StatusOK, resp)
}

func (h *handlers) getProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.products.GetProductBySlug(r.Context(), chi.URLParam(r, "slug"))
	if errors.Is(err, domain.ErrProductNotFound) {
		httpinfra.WriteError(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("поиск товара")
		httpinfra.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, toProductResponse(product))
}

type checkoutRequest struct {
	ProductSlug string `json:"productSlug"`
	Email       string `json:"email"`
	Name        string `json:"name"`
}

func (h *handlers) checkout(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpinfra.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProductSlug == "" || req.Email == "" {
		httpinfra.WriteError(w, http.StatusBadRequest, "productSlug and email are required")
		return
	}

	result, err := h.orders.Checkout(r.Context(), req.ProductSlug, req.Email, req.Name)
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		httpinfra.WriteError(w, http.StatusNotFound, "product not found")
		return
	case errors.Is(err, ordersusecase.ErrProductUnavailable):
		httpinfra.WriteError(w, http.StatusConflict, "product is not available")
		return
	case err != nil:
		h.log.Error().Err(err).Str("request_id", httpinfra.RequestID(r)).Msg("оформление заказа")
		httpinfra.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpinfra.WriteJSON(w, http.StatusCreated, map[string]string{
		"orderId":     result.OrderID,
		"checkoutUrl": result.CheckoutURL,
	})
}

func (h *handlers) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.GetOrderStatus(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrOrderNotFound) {
		httpinfra.WriteError(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("поиск заказа")
		httpinfra.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	resp := map[string]any{
		"orderId":     order.ID,
		"status":      string(order.Status),
		"productName": order.ProductName,
	}
	if order.PaidAt != nil {
		resp["paidAt"] = order.PaidAt.UTC().Format(time.RFC3339)
	}
	httpinfra.WriteJSON(w, http.StatusOK, resp)
}

func (h *handlers) stripeWebhook(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		httpinfra.WriteError(w, http.StatusBadRequest, "cannot read body")
		return
	}

	header := r.Header.Get("Stripe-Signature")
	if err := stripe.VerifySignature(payload, header, h.webhookSecret, time.Now()); err != nil {
		metrics.ObserveWebhookEvent("unknown", "rejected")
		h.log.Warn().Err(err).Msg("вебхук с неверной подписью")
		httpinfra.WriteError(w, http.StatusBadRequest, "invalid signature")
		return
	}

	event, err := stripe.ParseEvent(payload)
	if err != nil {
		metrics.ObserveWebhookEvent("unknown", "invalid")
		httpinfra.WriteError(w, http.StatusBadRequest, "invalid event")
		return
	}
	if !event.IsCheckoutCompleted() {
		// Прочие события подтверждаем, не обрабатывая.
		metrics.ObserveWebhookEvent(event.Type, "ignored")
		httpinfra.WriteJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	err = h.orders.HandlePaid(r.Context(), ordersusecase.PaymentEvent{
		EventID:   event.ID,
		OrderID:   event.OrderID,
		SessionID: event.SessionID,
		PaidAt:    time.Now().UTC(),
	})
	if err != nil {
		metrics.ObserveWebhookEvent(event.Type, "error")
		h.log.Error().Err(err).Str("event_id", event.ID).Msg("обработка оплаты")
		// 500 заставит Stripe повторить доставку.
		httpinfra.WriteError(w, http.StatusInternalServerError, "processing failed")
		return
	}
	metrics.ObserveWebhookEvent(event.Type, "ok")
	httpinfra.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type postResponse struct {
	Slug            string          `json:"slug"`
	Title           string          `json:"title"`
	Excerpt         string          `json:"excerpt"`
	Content         string          `json:"content,omitempty"`
	MetaTitle       string          `json:"metaTitle,omitempty"`
	MetaDescription string          `json:"metaDescription,omitempty"`
	Keywords        []string        `json:"keywords,omitempty"`
	Published       bool            `json:"published"`
	Seo             domain.SeoScore `json:"seo"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

func toPostResponse(p domain.BlogPost, withContent bool) postResponse {
	resp := postResponse{
		Slug:            p.Slug,
		Title:           p.Title,
		Excerpt:         p.Excerpt,
		MetaTitle:       p.MetaTitle,
		MetaDescription: p.MetaDescription,
		Keywords:        p.Keywords,
		Published:       p.Published,
		Seo:             p.Seo,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
	if withContent {
		resp.Content = p.ContentHTML
	}
	return resp
}

func (h *handlers) listPosts(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	posts, err := h.blog.ListPublished(r.Context(), limit, offset)
	if err != nil {
		h.log.Error().Err(err).Msg("список постов")
		httpinfra.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	resp := make([]postResponse, 0, len(posts))
	for _, p := range posts {
		resp = append(resp, toPostResponse(p, false))
	}
	httpinfra.WriteJSON(w, http.StatusOK, resp)
}

func (h *handlers) getPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.blog.GetPost(r.Context(), chi.URLParam(r, "slug"))
	if errors.Is(err, domain.ErrPostNotFound) || (err == nil && !post.Published) {
		httpinfra.WriteError(w, http.StatusNotFound, "post not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("поиск поста")
		httpinfra.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, toPostResponse(post, true))
}

func (h *handlers) getPostAdmin(w http.ResponseWriter, r *http.Request) {
	post, err := h.blog.GetPost(r.Context(), chi.URLParam(r, "slug"))
	if errors.Is(err, domain.ErrPostNotFound) {
		httpinfra.WriteError(w, http.StatusNotFound, "post not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("поиск поста")
		httpinfra.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, toPostResponse(post, true))
}

func (h *handlers) analyzeSeo(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var in blogusecase.PostInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpinfra.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	score, err := h.blog.Analyze(in)
	if errors.Is(err, blogusecase.ErrMissingFields) {
		httpinfra.WriteError(w, http.StatusBadRequest, "title, content and excerpt are required")
		return
	}
	if err != nil {
		httpinfra.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, map[string]any{"data": score})
}

func (h *handlers) createPost(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var in blogusecase.PostInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpinfra.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	post, err := h.blog.CreatePost(r.Context(), in)
	if errors.Is(err, blogusecase.ErrMissingFields) {
		httpinfra.WriteError(w, http.StatusBadRequest, "title, content and excerpt are required")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("создание поста")
		httpinfra.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpinfra.WriteJSON(w, http.StatusCreated, toPostResponse(post, true))
}

func (h *handlers) updatePost(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var in blogusecase.PostInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpinfra.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	post, err := h.blog.UpdatePost(r.Context(), chi.URLParam(r, "slug"), in)
	switch {
	case errors.Is(err, domain.ErrPostNotFound):
		httpinfra.WriteError(w, http.StatusNotFound, "post not found")
		return
	case errors.Is(err, blogusecase.ErrMissingFields):
		httpinfra.WriteError(w, http.StatusBadRequest, "title, content and excerpt are required")
		return
	case err != nil:
		h.log.Error().Err(err).Msg("обновление поста")
		httpinfra.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, toPostResponse(post, true))
}

type generateRequest struct {
	Topic    string   `json:"topic"`
	Keywords []string `json:"keywords"`
}

func (h *handlers) generateDraft(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpinfra.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.blog.GenerateDraft(r.Context(), req.Topic, req.Keywords)
	if errors.Is(err, blogusecase.ErrGeneratorUnavailable) {
		httpinfra.WriteError(w, http.StatusServiceUnavailable, "content generation is not configured")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("генерация черновика")
		httpinfra.WriteError(w, http.StatusBadGateway, "generation failed")
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, map[string]any{
		"title":   result.Draft.Title,
		"excerpt": result.Draft.Excerpt,
		"content": result.Draft.ContentHTML,
		"seo":     result.Seo,
	})
}

type trackRequest struct {
	Path     string `json:"path"`
	Referrer string `json:"referrer"`
}

func (h *handlers) trackVisit(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpinfra.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	visitorID := ""
	if cookie, err := r.Cookie(visitorCookie); err == nil {
		visitorID = cookie.Value
	}
	if visitorID == "" {
		visitorID = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     visitorCookie,
			Value:    visitorID,
			Path:     "/",
			MaxAge:   int((365 * 24 * time.Hour).Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	err := h.tracking.RecordVisit(r.Context(), req.Path, req.Referrer, r.UserAgent(), visitorID)
	if err != nil {
		h.log.Error().Err(err).Msg("запись посещения")
		httpinfra.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) visitStats(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	stats, err := h.tracking.DailyStats(r.Context(), days)
	if err != nil {
		h.log.Error().Err(err).Msg("статистика посещений")
		httpinfra.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	type dayResponse struct {
		Day    string `json:"day"`
		Visits int64  `json:"visits"`
	}
	resp := make([]dayResponse, 0, len(stats))
	for _, s := range stats {
		resp = append(resp, dayResponse{Day: s.Day.Format("2006-01-02"), Visits: s.Visits})
	}
	httpinfra.WriteJSON(w, http.StatusOK, resp)
}
