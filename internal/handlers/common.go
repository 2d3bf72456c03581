package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"project-management-api/internal/apperr"
	"project-management-api/internal/handlers/apierr"
	"project-management-api/internal/middleware"
	"project-management-api/internal/models"
	"project-management-api/internal/realtime"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Publisher is the part of the realtime hub the handlers use.
type Publisher interface {
	Publish(evt realtime.Event, recipients ...uint) int
}

type base struct {
	logger *zap.SugaredLogger
	events Publisher
}

func (b base) badRequest(c *gin.Context, err error) {
	b.logger.Warnw("error parsing request", "path", c.FullPath(), "error", err)
	apierr.WriteApiErrJSON(c, http.StatusBadRequest, apierr.BadRequest)
}

// fail writes the mapped error. Unmapped errors are logged loudly.
func (b base) fail(c *gin.Context, op string, err error) {
	if apierr.Handle(c, err) {
		b.logger.Warnw("mapped error", "op", op, "error", err)
		return
	}
	b.logger.Errorw(op+" failed, couldnt map the error", "err", err)
}

func (b base) publish(c *gin.Context, typ string, id uint, data any, audience []uint) {
	if b.events == nil {
		return
	}
	b.events.Publish(realtime.Event{
		Type:    typ,
		ID:      id,
		ActorID: middleware.EmployeeID(c),
		Data:    data,
	}, audience...)
}

// pathID reads a positive integer path parameter. It writes a 400 and
// returns false when the parameter is malformed.
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		apierr.WriteApiErrJSON(c, http.StatusBadRequest, apierr.BadID)
		return 0, false
	}
	return uint(id), true
}

// queryUint reads an optional positive integer query parameter.
func queryUint(c *gin.Context, name string) (*uint, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		return nil, apperr.Validation("query parameter %s must be a positive integer", name)
	}
	id := uint(v)
	return &id, nil
}

func queryStatus(c *gin.Context, name string) (*models.Status, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	st, err := models.ParseStatus(raw)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func queryPriority(c *gin.Context, name string) (*models.Priority, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	p, err := models.ParsePriority(raw)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

var dateLayouts = []string{
	"2006-01-02",  // ISO date
	"2 Jan 2006",  // e.g., 30 Oct 2025
	time.RFC3339,  // full RFC3339
	"02 Jan 2006", // zero-padded day
}

func parseDateFlexible(dateStr string) (time.Time, bool) {
	dateStr = strings.TrimSpace(dateStr)
	if dateStr == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, dateStr); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// optionalDate parses a date field that may be absent. Present but
// unparseable dates are a validation error.
func optionalDate(field string, raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	t, ok := parseDateFlexible(*raw)
	if !ok {
		return nil, apperr.Validation("%s %q is not a recognised date", field, *raw)
	}
	return &t, nil
}

func optionalEnum[T ~string](raw *string, parse func(string) (T, error)) (*T, error) {
	if raw == nil {
		return nil, nil
	}
	v, err := parse(*raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
