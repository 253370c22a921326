package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/trendsense/trendsense/internal/storage"
)

type Server struct {
	store *storage.Store
}

func NewServer(store *storage.Store) *Server {
	return &Server{store: store}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/articles", s.listArticles)
		v1.GET("/posts", s.listPosts)
		v1.GET("/topics", s.listTopics)
		v1.GET("/topics/:id/trends", s.listTrends)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listArticles(c *gin.Context) {
	f := filterFromQuery(c)

	items, err := s.store.QueryRecentArticles(f)
	if err != nil {
		internalError(c)
		return
	}
	ok(c, items)
}

func (s *Server) listPosts(c *gin.Context) {
	f := filterFromQuery(c)
	f.MinScore = queryInt(c, "min_score", 0)

	items, err := s.store.QueryRecentPosts(f)
	if err != nil {
		internalError(c)
		return
	}
	ok(c, items)
}

func (s *Server) listTopics(c *gin.Context) {
	topics, err := s.store.ListTopics(queryInt(c, "limit", 100))
	if err != nil {
		internalError(c)
		return
	}
	ok(c, topics)
}

func (s *Server) listTrends(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "bad_request",
			"message": "invalid topic id",
		})
		return
	}

	hours := queryInt(c, "hours", 7*24)
	since := time.Now().Add(-time.Duration(hours) * time.Hour)

	metrics, err := s.store.RecentTrendMetrics(uint(id), since, queryInt(c, "limit", 200))
	if err != nil {
		internalError(c)
		return
	}
	ok(c, metrics)
}

func filterFromQuery(c *gin.Context) storage.QueryFilter {
	hours := queryInt(c, "hours", 24)

	f := storage.QueryFilter{
		Platform: c.Query("platform"),
		Since:    time.Now().Add(-time.Duration(hours) * time.Hour),
		Limit:    queryInt(c, "limit", 50),
	}

	if v := c.Query("min_sentiment"); v != "" {
		if score, err := strconv.ParseFloat(v, 64); err == nil {
			f.MinSentiment = &score
		}
	}
	return f
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.DefaultQuery(key, strconv.Itoa(def)))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    data,
	})
}

func internalError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    "internal_error",
		"message": "internal server error",
	})
}
