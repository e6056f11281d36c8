// Package progress reads and writes lesson progress for the signed-in
// learner.
package progress

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/learnhub/learnhub/src/internal/domain"
	"github.com/learnhub/learnhub/src/internal/observability"
	"github.com/learnhub/learnhub/src/internal/platform/apierr"
	"github.com/learnhub/learnhub/src/internal/platform/logger"
	"github.com/learnhub/learnhub/src/internal/ports"
	"github.com/learnhub/learnhub/src/internal/querycache"
)

// reportTimeout bounds a fire-and-forget write.
const reportTimeout = 15 * time.Second

// CacheKey is the query-cache key of a course's progress.
func CacheKey(courseID int64) string {
	return "lesson-progress:" + strconv.FormatInt(courseID, 10)
}

type Client struct {
	api     ports.ProgressAPI
	tokens  ports.TokenSource
	cache   *querycache.Cache[*domain.CourseLearnData]
	log     *logger.Logger
	metrics *observability.Metrics

	inflight sync.WaitGroup
}

func NewClient(api ports.ProgressAPI, tokens ports.TokenSource, cache *querycache.Cache[*domain.CourseLearnData], log *logger.Logger, metrics *observability.Metrics) *Client {
	if cache == nil {
		cache = querycache.New[*domain.CourseLearnData](0, metrics)
	}
	return &Client{
		api:     api,
		tokens:  tokens,
		cache:   cache,
		log:     log.With("component", "progress"),
		metrics: metrics,
	}
}

// GetLessonProgress returns the course's progress, from cache when fresh.
// Concurrent reads of one course share a single request.
func (c *Client) GetLessonProgress(ctx context.Context, courseID int64) (*domain.CourseLearnData, error) {
	token, ok := c.tokens.Token()
	if !ok {
		return nil, apierr.ErrUnauthenticated
	}
	return c.cache.Get(ctx, CacheKey(courseID), func(ctx context.Context) (*domain.CourseLearnData, error) {
		return c.api.LessonProgressByCourse(ctx, token, courseID)
	})
}

// UpdateLessonProgress writes one report and, on success, drops the cached
// course so the next read goes to the network.
func (c *Client) UpdateLessonProgress(ctx context.Context, courseID, lessonID int64, watchTime int64, completionPercentage float64) error {
	token, ok := c.tokens.Token()
	if !ok {
		return apierr.ErrUnauthenticated
	}
	update := domain.ProgressUpdate{
		LessonID:             lessonID,
		WatchTime:            watchTime,
		CompletionPercentage: completionPercentage,
	}
	if err := c.api.UpdateLessonProgress(ctx, token, update); err != nil {
		return fmt.Errorf("update progress of lesson %d: %w", lessonID, err)
	}
	c.cache.Invalidate(CacheKey(courseID))
	return nil
}

// Report sends an update in the background. Failures are logged and counted,
// never returned.
func (c *Client) Report(courseID int64, update domain.ProgressUpdate) {
	c.report(courseID, update, nil)
}

// report is Report with an optional completion callback.
func (c *Client) report(courseID int64, update domain.ProgressUpdate, done func(error)) {
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()

		ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
		defer cancel()

		err := c.UpdateLessonProgress(ctx, courseID, update.LessonID, update.WatchTime, update.CompletionPercentage)
		if err != nil {
			c.metrics.ProgressWrite("dropped")
			c.log.Warn("Progress report dropped", "course_id", courseID, "lesson_id", update.LessonID, "error", err)
		} else {
			c.metrics.ProgressWrite("ok")
		}
		if done != nil {
			done(err)
		}
	}()
}

// Invalidate drops the cached progress of a course.
func (c *Client) Invalidate(courseID int64) {
	c.cache.Invalidate(CacheKey(courseID))
}

// Reset drops every cached course, e.g. when the learner changes.
func (c *Client) Reset() {
	c.cache.Clear()
}

// Wait blocks until every background report has finished.
func (c *Client) Wait() {
	c.inflight.Wait()
}
