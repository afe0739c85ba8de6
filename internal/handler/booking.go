package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/openmat-booking/internal/metrics"
	"github.com/iliyamo/openmat-booking/internal/middleware"
	"github.com/iliyamo/openmat-booking/internal/model"
	"github.com/iliyamo/openmat-booking/internal/queue"
	"github.com/iliyamo/openmat-booking/internal/repository"
	"github.com/iliyamo/openmat-booking/internal/service"
)

// publishTimeout bounds the best-effort event publish after a booking.
const publishTimeout = 3 * time.Second

// BookingHandler books spots in sessions for guests and members.
type BookingHandler struct {
	Bookings  repository.BookingRepository
	Publisher service.EventPublisher
	Cache     CachePurger
	Metrics   *metrics.Metrics
}

func NewBookingHandler(b repository.BookingRepository, p service.EventPublisher, cache CachePurger, m *metrics.Metrics) *BookingHandler {
	return &BookingHandler{Bookings: b, Publisher: p, Cache: cache, Metrics: m}
}

type bookingReq struct {
	Name  string `json:"name" validate:"required,max=255"`
	Email string `json:"email" validate:"omitempty,email,max=255"`
	Phone string `json:"phone" validate:"omitempty,max=64"`
}

func (r *bookingReq) trim() {
	trimmed(&r.Name)
	trimmed(&r.Phone)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Book reserves one spot of the session named in the path.  A valid bearer
// token, when present, links the booking to the caller.
func (h *BookingHandler) Book(c echo.Context) error {
	sessionID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid session id")
	}
	var req bookingReq
	if msg, ok := bindValid(c, &req, req.trim); !ok {
		return badRequest(c, msg)
	}
	if req.Email == "" && req.Phone == "" {
		return badRequest(c, "email or phone is required")
	}

	b := model.Booking{
		SessionID: sessionID,
		Name:      req.Name,
		Email:     optional(req.Email),
		Phone:     optional(req.Phone),
	}
	if uid, ok := middleware.UserID(c); ok {
		b.UserID = &uid
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	session, err := h.Bookings.Create(ctx, &b)
	switch {
	case errors.Is(err, repository.ErrSessionNotFound):
		h.Metrics.ObserveBooking(metrics.BookingNotFound)
		return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
	case errors.Is(err, repository.ErrSessionFull):
		h.Metrics.ObserveBooking(metrics.BookingFull)
		return c.JSON(http.StatusConflict, echo.Map{"error": repository.ErrSessionFull.Error()})
	case errors.Is(err, repository.ErrSessionClosed):
		h.Metrics.ObserveBooking(metrics.BookingClosed)
		return c.JSON(http.StatusConflict, echo.Map{"error": repository.ErrSessionClosed.Error()})
	case err != nil:
		h.Metrics.ObserveBooking(metrics.BookingError)
		return internalError(c, err, "failed to book session")
	}
	h.Metrics.ObserveBooking(metrics.BookingConfirmed)

	purge(ctx, h.Cache)
	h.publishConfirmed(c.Request().Context(), b, session)
	return c.JSON(http.StatusOK, b)
}

// publishConfirmed emits booking.confirmed.  The booking is already
// committed so failures are only logged.
func (h *BookingHandler) publishConfirmed(parent context.Context, b model.Booking, s *model.SessionListing) {
	if h.Publisher == nil {
		return
	}
	ev := queue.BookingConfirmedEvent{
		EventID:     uuid.NewString(),
		BookingID:   b.ID,
		SessionID:   b.SessionID,
		Name:        b.Name,
		ConfirmedAt: b.CreatedAt,
	}
	if b.Email != nil {
		ev.Email = *b.Email
	}
	if b.Phone != nil {
		ev.Phone = *b.Phone
	}
	if s != nil {
		ev.ClubID = s.ClubID
		ev.ClubName = s.ClubName
		ev.StartTime = s.StartTime
		ev.EndTime = s.EndTime
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), publishTimeout)
	defer cancel()
	if err := h.Publisher.PublishBookingConfirmed(ctx, ev); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"booking_id": b.ID,
			"session_id": b.SessionID,
		}).Warn("booking.confirmed not published")
	}
}
