package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mikecinchan/calendar/internal/domain"
	"github.com/mikecinchan/calendar/internal/dto"
	"github.com/mikecinchan/calendar/internal/pipeline"
	"github.com/mikecinchan/calendar/internal/query"
	"github.com/mikecinchan/calendar/internal/service"
)

type Handler struct {
	calendarService service.CalendarServicer
	pipeline        pipeline.Manager
	router          *gin.Engine
	log             *zap.Logger
}

func NewHandler(calendarService service.CalendarServicer, pl pipeline.Manager, log *zap.Logger) *Handler {
	h := &Handler{
		calendarService: calendarService,
		pipeline:        pl,
		router:          gin.Default(),
		log:             log,
	}

	h.registerRoutes()

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.GET("/health", h.healthCheck)
	h.router.GET("/events", h.listEvents)
	h.router.GET("/events/day/:date", h.eventsForDay)
	h.router.POST("/events", h.createEvent)
	h.router.PUT("/events/:id", h.updateEvent)
	h.router.DELETE("/events/:id", h.deleteEvent)
	h.router.GET("/export", h.exportEvents)
	h.router.POST("/import", h.importEvents)
	h.router.POST("/backup", h.createBackup)
	h.router.POST("/restore", h.restoreBackup)
	h.router.GET("/state", h.getState)
	h.router.PUT("/state", h.saveState)
}

// healthCheck handles GET /health
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// listEvents handles GET /events with optional filter params
func (h *Handler) listEvents(c *gin.Context) {
	var params dto.EventQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	filters, err := buildFilters(params)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	events := h.calendarService.Query(filters)
	c.JSON(http.StatusOK, dto.ListEventsResponse{
		Events: events,
		Count:  len(events),
	})
}

// eventsForDay handles GET /events/day/:date through the memoized
// per-day index
func (h *Handler) eventsForDay(c *gin.Context) {
	day, err := time.Parse(domain.DateLayout, c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: "date must be YYYY-MM-DD",
		})
		return
	}

	var params dto.EventQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}
	filters, err := buildFilters(params)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	events := h.calendarService.EventsForDay(filters, day.Year(), day.Month(), day.Day())
	c.JSON(http.StatusOK, dto.ListEventsResponse{
		Events: events,
		Count:  len(events),
	})
}

// createEvent handles POST /events
func (h *Handler) createEvent(c *gin.Context) {
	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid create request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	event := domain.Event{
		Title:       req.Title,
		Date:        req.Date,
		Time:        req.Time,
		Category:    domain.Category(req.Category),
		Description: req.Description,
		Recurrence:  domain.RecurrenceType(req.RecurrenceType),
	}

	result, err := h.calendarService.ProcessCreate(c.Request.Context(), event)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.CreateEventResponse{
		Events:      result.Events,
		Count:       len(result.Events),
		SyncWarning: result.SyncWarning,
	})
}

// updateEvent handles PUT /events/:id
func (h *Handler) updateEvent(c *gin.Context) {
	var req dto.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	patch := domain.EventPatch{
		Title:       req.Title,
		Date:        req.Date,
		Time:        req.Time,
		Description: req.Description,
	}
	if req.Category != nil {
		category := domain.Category(*req.Category)
		patch.Category = &category
	}
	if req.RecurrenceType != nil {
		rec := domain.RecurrenceType(*req.RecurrenceType)
		patch.Recurrence = &rec
	}

	result, err := h.calendarService.ProcessUpdate(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.UpdateEventResponse{
		Event:       result.Event,
		SyncWarning: result.SyncWarning,
	})
}

// deleteEvent handles DELETE /events/:id. Deleting a member of a
// recurring family removes the whole family, so a cascade of more than
// one record requires confirmed=true.
func (h *Handler) deleteEvent(c *gin.Context) {
	id := c.Param("id")

	count, err := h.calendarService.CascadePreview(id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if count > 1 && c.Query("confirmed") != "true" {
		c.JSON(http.StatusConflict, dto.ConfirmationRequiredResponse{
			Error:   "confirmation_required",
			Count:   count,
			Message: "deleting this event removes all its recurring instances; retry with confirmed=true",
		})
		return
	}

	result, err := h.calendarService.ProcessDelete(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.DeleteEventResponse{
		Deleted:     result.Deleted,
		SyncWarning: result.SyncWarning,
	})
}

// exportEvents handles GET /export
func (h *Handler) exportEvents(c *gin.Context) {
	c.JSON(http.StatusOK, h.pipeline.Export())
}

// importEvents handles POST /import?mode=merge|replace with an export
// envelope as the body
func (h *Handler) importEvents(c *gin.Context) {
	mode := pipeline.ImportMode(c.DefaultQuery("mode", string(pipeline.ImportMerge)))
	if mode != pipeline.ImportMerge && mode != pipeline.ImportReplace {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: "mode must be merge or replace",
		})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: "failed to read request body",
		})
		return
	}

	imported, err := h.pipeline.Import(c.Request.Context(), body, mode)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ImportResponse{
		Imported: imported,
		Status:   "imported",
	})
}

// createBackup handles POST /backup
func (h *Handler) createBackup(c *gin.Context) {
	backup, err := h.pipeline.Backup(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.BackupResponse{
		BackupDate: backup.BackupDate,
		Events:     len(backup.Events),
	})
}

// restoreBackup handles POST /restore. Restoring replaces the live
// event set, so it always requires confirmed=true.
func (h *Handler) restoreBackup(c *gin.Context) {
	if c.Query("confirmed") != "true" {
		c.JSON(http.StatusConflict, dto.ConfirmationRequiredResponse{
			Error:   "confirmation_required",
			Message: "restoring replaces all current events; retry with confirmed=true",
		})
		return
	}

	backup, err := h.pipeline.Restore(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.RestoreResponse{
		BackupDate: backup.BackupDate,
		Events:     len(backup.Events),
	})
}

// getState handles GET /state
func (h *Handler) getState(c *gin.Context) {
	state, err := h.calendarService.State(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// saveState handles PUT /state
func (h *Handler) saveState(c *gin.Context) {
	var req dto.SaveStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	state := domain.CalendarState{
		CurrentDate:    req.CurrentDate,
		ViewMode:       domain.ViewMode(req.ViewMode),
		SelectedDate:   req.SelectedDate,
		CategoryFilter: domain.Category(req.CategoryFilter),
	}

	if err := h.calendarService.SaveState(c.Request.Context(), state); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}

// respondError maps the error taxonomy onto HTTP statuses.
func (h *Handler) respondError(c *gin.Context, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: validationErr.Error(),
		})
		return
	}

	var notFoundErr *domain.NotFoundError
	if errors.As(err, &notFoundErr) {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   "not_found",
			Message: notFoundErr.Error(),
		})
		return
	}

	h.log.Error("Request failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
		Error:   "internal_error",
		Message: err.Error(),
	})
}

func buildFilters(params dto.EventQueryParams) (query.Filters, error) {
	filters := query.Filters{
		Category: domain.Category(params.Category),
		Search:   params.Search,
	}

	if params.Preset != "" {
		dateRange, ok := query.PresetRange(params.Preset, time.Now())
		if !ok {
			return query.Filters{}, &domain.ValidationError{Field: "preset", Message: "unknown preset: " + params.Preset}
		}
		filters.DateRange = dateRange
		return filters, nil
	}

	if params.Start != "" {
		start, err := time.Parse(domain.DateLayout, params.Start)
		if err != nil {
			return query.Filters{}, &domain.ValidationError{Field: "start", Message: "start must be YYYY-MM-DD"}
		}
		filters.DateRange.Start = &start
	}
	if params.End != "" {
		end, err := time.Parse(domain.DateLayout, params.End)
		if err != nil {
			return query.Filters{}, &domain.ValidationError{Field: "end", Message: "end must be YYYY-MM-DD"}
		}
		filters.DateRange.End = &end
	}

	return filters, nil
}
