package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/openmat-booking/internal/model"
	"github.com/iliyamo/openmat-booking/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// SessionHandler serves session listings and admin session creation.
type SessionHandler struct {
	Sessions repository.SessionRepository
	Cache    CachePurger
}

func NewSessionHandler(sessions repository.SessionRepository, cache CachePurger) *SessionHandler {
	return &SessionHandler{Sessions: sessions, Cache: cache}
}

type sessionReq struct {
	Date        time.Time `json:"date" validate:"required"`
	StartTime   time.Time `json:"startTime" validate:"required"`
	EndTime     time.Time `json:"endTime" validate:"required,gtfield=StartTime"`
	MaxCapacity int64     `json:"maxCapacity" validate:"gt=0,lte=10000"`
	Price       int64     `json:"price" validate:"gte=0,lte=4294967295"`
	IsOpen      *bool     `json:"isOpen"`
}

// ListByClub returns every session of a club ordered by start time.
func (h *SessionHandler) ListByClub(c echo.Context) error {
	clubID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid club id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	sessions, err := h.Sessions.ListByClub(ctx, clubID)
	if err != nil {
		return internalError(c, err, "failed to list sessions")
	}
	if sessions == nil {
		sessions = []model.Session{}
	}
	return c.JSON(http.StatusOK, sessions)
}

// Create schedules a session for a club.  Capacity always starts empty.
func (h *SessionHandler) Create(c echo.Context) error {
	clubID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid club id")
	}
	var req sessionReq
	if msg, ok := bindValid(c, &req, nil); !ok {
		return badRequest(c, msg)
	}
	open := true
	if req.IsOpen != nil {
		open = *req.IsOpen
	}
	s := model.Session{
		ClubID:      clubID,
		Date:        req.Date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		MaxCapacity: uint32(req.MaxCapacity),
		Price:       uint32(req.Price),
		IsOpen:      open,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	err := h.Sessions.Create(ctx, &s)
	if errors.Is(err, repository.ErrClubNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "club not found"})
	}
	if err != nil {
		return internalError(c, err, "failed to create session")
	}
	purge(ctx, h.Cache)
	return c.JSON(http.StatusCreated, s)
}

// Get returns one session.
func (h *SessionHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid session id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	s, err := h.Sessions.GetByID(ctx, id)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
	}
	if err != nil {
		return internalError(c, err, "failed to load session")
	}
	return c.JSON(http.StatusOK, s)
}

// Upcoming is the cross-club feed of sessions that have not started.
//
// Query: club (substring of the club name), open (only bookable sessions),
// page (>= 1) and pageSize (1..100, default 20).
func (h *SessionHandler) Upcoming(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	ps, _ := strconv.Atoi(firstNonEmpty(c.QueryParam("pageSize"), c.QueryParam("page_size")))
	if ps < 1 {
		ps = defaultPageSize
	}
	if ps > maxPageSize {
		ps = maxPageSize
	}
	open, _ := strconv.ParseBool(c.QueryParam("open"))

	q := repository.SessionSearchQuery{
		Club:     strings.TrimSpace(c.QueryParam("club")),
		OpenOnly: open,
		Page:     page,
		PageSize: ps,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	items, total, err := h.Sessions.SearchUpcoming(ctx, q)
	if err != nil {
		return internalError(c, err, "failed to list upcoming sessions")
	}
	if items == nil {
		items = []model.SessionListing{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"data":     items,
		"total":    total,
		"page":     page,
		"pageSize": ps,
	})
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
