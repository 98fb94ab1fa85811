package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"horse.fit/sportwire/internal/config"
	"horse.fit/sportwire/internal/db"
	"horse.fit/sportwire/internal/globaltime"
	"horse.fit/sportwire/internal/publish"
)

const (
	defaultPageSize = 25
	maxPageSize     = 200
)

var errStoryNotFound = errors.New("story not found")

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	pool   *db.Pool
	cfg    *config.Config
	logger zerolog.Logger
	opts   Options
}

type storyListFilter struct {
	Query    string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

type storyListItem struct {
	StoryID         int64      `json:"story_id"`
	Title           string     `json:"title"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ArticleCount    int        `json:"article_count"`
	LatestPublished *time.Time `json:"latest_published,omitempty"`
}

type storyDetail struct {
	Story    storyListItem          `json:"story"`
	Articles []db.StoryArticleItem  `json:"articles"`
	Publish  *db.PublishMapRecord   `json:"publish,omitempty"`
	Edits    []db.PublishEditRecord `json:"edits,omitempty"`
}

type enqueueRequest struct {
	ItemType string `json:"item_type"`
	ItemID   int64  `json:"item_id"`
	Priority int    `json:"priority"`
}

func NewServer(pool *db.Pool, cfg *config.Config, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8090
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	return &Server{
		pool:   pool,
		cfg:    cfg,
		logger: logger,
		opts: Options{
			Host:            host,
			Port:            port,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := s.buildEcho()

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("admin api started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("admin api stopped")
	return nil
}

func (s *Server) buildEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/stats", s.handleStats)
	api.GET("/articles", s.handleArticles)
	api.GET("/stories", s.handleStories)
	api.GET("/stories/:story_id", s.handleStoryDetail)
	api.GET("/queue", s.handleQueue)
	api.GET("/edits", s.handleEdits)

	admin := api.Group("", s.requireBasicAuth())
	admin.POST("/queue", s.handleEnqueue)

	return e
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service": "sportwire",
		"time":    globaltime.UTC(),
	})
}

func (s *Server) handleStats(c echo.Context) error {
	now := globaltime.UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	stats, err := s.pool.QueryPipelineStats(c.Request().Context(), dayStart, dayEnd)
	if err != nil {
		s.logger.Error().Err(err).Msg("query stats failed")
		return internalError(c, "Failed to load stats")
	}
	return success(c, stats)
}

func (s *Server) handleArticles(c echo.Context) error {
	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultPageSize, 1, maxPageSize)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	from, err := parseTimeFilter(c.QueryParam("from"), false)
	if err != nil {
		return failValidation(c, map[string]string{"from": "must be RFC3339 or YYYY-MM-DD"})
	}
	to, err := parseTimeFilter(c.QueryParam("to"), true)
	if err != nil {
		return failValidation(c, map[string]string{"to": "must be RFC3339 or YYYY-MM-DD"})
	}

	now := globaltime.UTC()
	opts := db.ArticleListOptions{
		From:  now.Add(-24 * time.Hour),
		To:    now,
		Limit: limit,
	}
	if from != nil {
		opts.From = *from
	}
	if to != nil {
		opts.To = *to
	}
	if !opts.From.Before(opts.To) {
		return failValidation(c, map[string]string{"time_range": "from must be < to"})
	}

	items, err := s.pool.ListArticles(c.Request().Context(), opts)
	if err != nil {
		s.logger.Error().Err(err).Msg("query articles failed")
		return internalError(c, "Failed to load articles")
	}

	return success(c, map[string]any{
		"items": items,
		"filters": map[string]any{
			"from":  opts.From,
			"to":    opts.To,
			"limit": limit,
		},
	})
}

func (s *Server) handleStories(c echo.Context) error {
	page, err := parsePositiveInt(c.QueryParam("page"), 1, 1, 1_000_000)
	if err != nil {
		return failValidation(c, map[string]string{"page": err.Error()})
	}

	pageSize, err := parsePositiveInt(c.QueryParam("page_size"), defaultPageSize, 1, maxPageSize)
	if err != nil {
		return failValidation(c, map[string]string{"page_size": err.Error()})
	}

	from, err := parseTimeFilter(c.QueryParam("from"), false)
	if err != nil {
		return failValidation(c, map[string]string{"from": "must be RFC3339 or YYYY-MM-DD"})
	}
	to, err := parseTimeFilter(c.QueryParam("to"), true)
	if err != nil {
		return failValidation(c, map[string]string{"to": "must be RFC3339 or YYYY-MM-DD"})
	}
	if from != nil && to != nil && from.After(*to) {
		return failValidation(c, map[string]string{"time_range": "from must be <= to"})
	}

	filter := storyListFilter{
		Query:    strings.TrimSpace(c.QueryParam("q")),
		From:     from,
		To:       to,
		Page:     page,
		PageSize: pageSize,
	}

	total, rows, err := s.queryStoryList(c.Request().Context(), filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("query stories failed")
		return internalError(c, "Failed to load stories")
	}

	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}

	return success(c, map[string]any{
		"items": rows,
		"pagination": map[string]any{
			"page":        page,
			"page_size":   pageSize,
			"total_items": total,
			"total_pages": totalPages,
		},
		"filters": map[string]any{
			"q":    filter.Query,
			"from": filter.From,
			"to":   filter.To,
		},
	})
}

func (s *Server) handleStoryDetail(c echo.Context) error {
	storyID, err := strconv.ParseInt(strings.TrimSpace(c.Param("story_id")), 10, 64)
	if err != nil || storyID <= 0 {
		return failValidation(c, map[string]string{"story_id": "must be a positive integer"})
	}

	detail, err := s.queryStoryDetail(c.Request().Context(), storyID)
	if err != nil {
		if errors.Is(err, errStoryNotFound) {
			return failNotFound(c, "Story not found")
		}
		s.logger.Error().Err(err).Int64("story_id", storyID).Msg("query story detail failed")
		return internalError(c, "Failed to load story detail")
	}

	return success(c, detail)
}

func (s *Server) handleQueue(c echo.Context) error {
	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultPageSize, 1, maxPageSize)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	status := strings.TrimSpace(strings.ToLower(c.QueryParam("status")))
	switch status {
	case "", "queued", "sent", "error":
	default:
		return failValidation(c, map[string]string{"status": "must be queued, sent or error"})
	}

	items, err := s.pool.ListQueue(c.Request().Context(), db.QueueListOptions{Status: status, Limit: limit})
	if err != nil {
		s.logger.Error().Err(err).Msg("query queue failed")
		return internalError(c, "Failed to load queue")
	}

	return success(c, map[string]any{
		"items":  items,
		"status": status,
		"limit":  limit,
	})
}

func (s *Server) handleEdits(c echo.Context) error {
	itemType := strings.TrimSpace(strings.ToLower(c.QueryParam("item_type")))
	switch itemType {
	case publish.ItemTypeStory, publish.ItemTypeArticle:
	default:
		return failValidation(c, map[string]string{"item_type": "must be story or article"})
	}

	itemID, err := strconv.ParseInt(strings.TrimSpace(c.QueryParam("item_id")), 10, 64)
	if err != nil || itemID <= 0 {
		return failValidation(c, map[string]string{"item_id": "must be a positive integer"})
	}

	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultPageSize, 1, maxPageSize)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	items, err := s.pool.ListPublishEdits(c.Request().Context(), itemType, itemID, limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("query edits failed")
		return internalError(c, "Failed to load edit history")
	}

	return success(c, map[string]any{
		"items":     items,
		"item_type": itemType,
		"item_id":   itemID,
	})
}

func (s *Server) handleEnqueue(c echo.Context) error {
	var req enqueueRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	switch req.ItemType {
	case publish.ItemTypeStory, publish.ItemTypeArticle:
	default:
		return failValidation(c, map[string]string{"item_type": "must be story or article"})
	}
	if req.ItemID <= 0 {
		return failValidation(c, map[string]string{"item_id": "must be a positive integer"})
	}

	ctx := c.Request().Context()
	if req.ItemType == publish.ItemTypeStory {
		if _, err := s.pool.GetStory(ctx, req.ItemID); err != nil {
			if db.IsNoRows(err) {
				return failNotFound(c, "Story not found")
			}
			s.logger.Error().Err(err).Int64("story_id", req.ItemID).Msg("story lookup failed")
			return internalError(c, "Failed to enqueue item")
		}
	} else {
		if _, err := s.pool.GetArticle(ctx, req.ItemID); err != nil {
			if db.IsNoRows(err) {
				return failNotFound(c, "Article not found")
			}
			s.logger.Error().Err(err).Int64("news_id", req.ItemID).Msg("article lookup failed")
			return internalError(c, "Failed to enqueue item")
		}
	}

	dedupKey := fmt.Sprintf("%s:%d", req.ItemType, req.ItemID)
	dedupSince := globaltime.UTC().Add(-time.Duration(s.cfg.DedupWindowDays) * 24 * time.Hour)
	recent, err := s.pool.HasRecentDedup(ctx, dedupKey, dedupSince)
	if err != nil {
		s.logger.Error().Err(err).Str("dedup_key", dedupKey).Msg("dedup lookup failed")
		return internalError(c, "Failed to enqueue item")
	}
	if recent {
		return fail(c, http.StatusConflict, "Item was already queued or sent recently", map[string]any{
			"dedup_key": dedupKey,
		})
	}

	queueID, err := s.pool.EnqueueItem(ctx, req.ItemType, req.ItemID, req.Priority, nil, dedupKey)
	if err != nil {
		s.logger.Error().Err(err).Str("dedup_key", dedupKey).Msg("enqueue failed")
		return internalError(c, "Failed to enqueue item")
	}

	s.logger.Info().
		Int64("queue_id", queueID).
		Str("item_type", req.ItemType).
		Int64("item_id", req.ItemID).
		Msg("item enqueued via admin api")

	return success(c, map[string]any{
		"queue_id":  queueID,
		"item_type": req.ItemType,
		"item_id":   req.ItemID,
		"priority":  req.Priority,
	})
}

func (s *Server) queryStoryList(ctx context.Context, filter storyListFilter) (int64, []storyListItem, error) {
	search := ""
	if filter.Query != "" {
		search = "%" + filter.Query + "%"
	}

	const countQuery = `
SELECT COUNT(*)
FROM sport.stories s
WHERE ($1 = '' OR s.title ILIKE $1)
  AND ($2::timestamptz IS NULL OR s.updated_at >= $2)
  AND ($3::timestamptz IS NULL OR s.updated_at <= $3)
`

	var total int64
	if err := s.pool.QueryRow(ctx, countQuery, search, filter.From, filter.To).Scan(&total); err != nil {
		return 0, nil, fmt.Errorf("count stories: %w", err)
	}

	offset := (filter.Page - 1) * filter.PageSize

	const rowsQuery = `
SELECT
	s.story_id,
	s.title,
	s.created_at,
	s.updated_at,
	COUNT(sa.news_id)::INT AS article_count,
	MAX(n.published_at) AS latest_published
FROM sport.stories s
LEFT JOIN sport.story_articles sa
	ON sa.story_id = s.story_id
LEFT JOIN sport.news n
	ON n.news_id = sa.news_id
WHERE ($1 = '' OR s.title ILIKE $1)
  AND ($2::timestamptz IS NULL OR s.updated_at >= $2)
  AND ($3::timestamptz IS NULL OR s.updated_at <= $3)
GROUP BY s.story_id, s.title, s.created_at, s.updated_at
ORDER BY s.updated_at DESC, s.story_id DESC
LIMIT $4
OFFSET $5
`

	rows, err := s.pool.Query(ctx, rowsQuery, search, filter.From, filter.To, filter.PageSize, offset)
	if err != nil {
		return 0, nil, fmt.Errorf("query stories: %w", err)
	}
	defer rows.Close()

	items := make([]storyListItem, 0, filter.PageSize)
	for rows.Next() {
		var row storyListItem
		if err := rows.Scan(
			&row.StoryID,
			&row.Title,
			&row.CreatedAt,
			&row.UpdatedAt,
			&row.ArticleCount,
			&row.LatestPublished,
		); err != nil {
			return 0, nil, fmt.Errorf("scan story row: %w", err)
		}
		items = append(items, row)
	}

	if err := rows.Err(); err != nil {
		return 0, nil, fmt.Errorf("iterate story rows: %w", err)
	}

	return total, items, nil
}

func (s *Server) queryStoryDetail(ctx context.Context, storyID int64) (*storyDetail, error) {
	story, err := s.pool.GetStory(ctx, storyID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, errStoryNotFound
		}
		return nil, fmt.Errorf("query story: %w", err)
	}

	articles, err := s.pool.ListStoryArticles(ctx, storyID, maxPageSize)
	if err != nil {
		return nil, fmt.Errorf("query story articles: %w", err)
	}

	count, err := s.pool.CountStoryArticles(ctx, storyID)
	if err != nil {
		return nil, fmt.Errorf("count story articles: %w", err)
	}

	var latestPublished *time.Time
	for _, article := range articles {
		if article.PublishedAt == nil {
			continue
		}
		if latestPublished == nil || article.PublishedAt.After(*latestPublished) {
			latestPublished = article.PublishedAt
		}
	}

	detail := &storyDetail{
		Story: storyListItem{
			StoryID:         story.StoryID,
			Title:           story.Title,
			CreatedAt:       story.CreatedAt,
			UpdatedAt:       story.UpdatedAt,
			ArticleCount:    count,
			LatestPublished: latestPublished,
		},
		Articles: articles,
	}

	publishMap, found, err := s.pool.GetPublishMap(ctx, publish.ItemTypeStory, storyID)
	if err != nil {
		return nil, fmt.Errorf("query publish map: %w", err)
	}
	if found {
		detail.Publish = &publishMap

		edits, err := s.pool.ListPublishEdits(ctx, publish.ItemTypeStory, storyID, defaultPageSize)
		if err != nil {
			return nil, fmt.Errorf("query publish edits: %w", err)
		}
		detail.Edits = edits
	}

	return detail, nil
}

func parsePositiveInt(raw string, defaultValue, minValue, maxValue int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if value < minValue || value > maxValue {
		return 0, fmt.Errorf("must be between %d and %d", minValue, maxValue)
	}
	return value, nil
}

func parseTimeFilter(raw string, endOfDay bool) (*time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}

	if ts, err := time.Parse(time.RFC3339, trimmed); err == nil {
		utc := ts.UTC()
		return &utc, nil
	}

	if day, err := time.Parse("2006-01-02", trimmed); err == nil {
		utc := day.UTC()
		if endOfDay {
			utc = utc.Add((24 * time.Hour) - time.Nanosecond)
		}
		return &utc, nil
	}

	return nil, fmt.Errorf("invalid time format")
}
