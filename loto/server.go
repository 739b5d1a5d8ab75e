package loto

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

const (
	statsCacheTTL   = 10 * time.Minute
	shutdownTimeout = 5 * time.Second
)

// StatsRequest is the body of POST /stats.
type StatsRequest struct {
	Columns    []string `json:"columns" binding:"required,min=1"`
	Categories []string `json:"categories"`
	DateMin    string   `json:"date_min"` // DD/MM/YYYY
	DateMax    string   `json:"date_max"` // DD/MM/YYYY
}

// StatsResponse is returned by POST /stats.
type StatsResponse struct {
	Draws int         `json:"draws"`
	Stats []Frequency `json:"stats"`
}

// DrawResponse is one row of GET /draws.
type DrawResponse struct {
	SourceFile string         `json:"source_file"`
	Category   string         `json:"type_loto"`
	YearIndex  string         `json:"annee_numero_de_tirage"`
	Weekday    string         `json:"jour_de_tirage"`
	Date       string         `json:"date_de_tirage"`
	Balls      map[string]int `json:"balls"`
}

// Server answers read-only queries over one corpus snapshot.
type Server struct {
	corpus *Corpus
	store  *Store
	cache  *cache.Cache
	router *gin.Engine
}

// NewServer builds the HTTP handlers. store is optional and only serves GET /archives.
func NewServer(corpus *Corpus, store *Store, debug bool) *Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	if debug {
		router.Use(gin.Logger())
	}
	s := &Server{
		corpus: corpus,
		store:  store,
		cache:  cache.New(statsCacheTTL, 0),
		router: router,
	}
	router.GET("/health", s.healthHandler)
	router.GET("/draws", s.drawsHandler)
	router.POST("/stats", s.statsHandler)
	router.GET("/archives", s.archivesHandler)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) healthHandler(c *gin.Context) {
	oldest, newest := s.corpus.Period()
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "draws": len(s.corpus.Draws), "oldest": oldest, "newest": newest})
}

// drawsHandler returns the latest draws, optionally for one category.
func (s *Server) drawsHandler(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid limit %q", v)})
			return
		}
		limit = n
	}
	var only Category
	if v := c.Query("category"); v != "" {
		cat, ok := ParseCategory(v)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown category %q", v)})
			return
		}
		only = cat
	}

	out := make([]DrawResponse, 0, min(limit, len(s.corpus.Draws)))
	for _, d := range s.corpus.Draws {
		if len(out) == limit {
			break
		}
		if only != "" && d.Category != only {
			continue
		}
		out = append(out, DrawResponse{
			SourceFile: d.SourceFile,
			Category:   string(d.Category),
			YearIndex:  d.YearIndex,
			Weekday:    d.Weekday,
			Date:       d.Date,
			Balls:      d.Balls,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) statsHandler(c *gin.Context) {
	var req StatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid request format: %v", err)})
		return
	}
	q := StatsQuery{Columns: req.Columns, DateMin: req.DateMin, DateMax: req.DateMax}
	for _, name := range req.Categories {
		cat, ok := ParseCategory(name)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown category %q", name)})
			return
		}
		q.Categories = append(q.Categories, cat)
	}

	key, _ := json.Marshal(q)
	if cached, ok := s.cache.Get(string(key)); ok {
		c.JSON(http.StatusOK, cached)
		return
	}
	freqs, err := ComputeStats(s.corpus, q)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp := StatsResponse{Draws: len(s.corpus.Draws), Stats: freqs}
	s.cache.SetDefault(string(key), resp)
	c.JSON(http.StatusOK, resp)
}

func (s *Server) archivesHandler(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no ledger configured"})
		return
	}
	archives, err := s.store.Archives(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, archives)
}
