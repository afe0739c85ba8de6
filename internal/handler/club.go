package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/openmat-booking/internal/model"
	"github.com/iliyamo/openmat-booking/internal/repository"
)

// upcomingPreview is how many next sessions the club list attaches per club.
const upcomingPreview = 2

// ClubHandler serves the club directory and its admin writes.
type ClubHandler struct {
	Clubs    repository.ClubRepository
	Sessions repository.SessionRepository
	Cache    CachePurger
}

func NewClubHandler(clubs repository.ClubRepository, sessions repository.SessionRepository, cache CachePurger) *ClubHandler {
	return &ClubHandler{Clubs: clubs, Sessions: sessions, Cache: cache}
}

type clubReq struct {
	Name        string `json:"name" validate:"required,max=255"`
	Address     string `json:"address" validate:"required,max=255"`
	Description string `json:"description" validate:"required"`
	ImageURL    string `json:"imageUrl" validate:"required,url,max=512"`
	Phone       string `json:"phone" validate:"required,max=64"`
	Email       string `json:"email" validate:"required,email,max=255"`
}

func (r *clubReq) trim() {
	for _, f := range []*string{&r.Name, &r.Address, &r.Description, &r.ImageURL, &r.Phone, &r.Email} {
		trimmed(f)
	}
}

func (r clubReq) apply(c *model.Club) {
	c.Name = r.Name
	c.Address = r.Address
	c.Description = r.Description
	c.ImageURL = r.ImageURL
	c.Phone = r.Phone
	c.Email = r.Email
}

// List returns every club with a preview of its next sessions.
func (h *ClubHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	clubs, err := h.Clubs.List(ctx)
	if err != nil {
		return internalError(c, err, "failed to list clubs")
	}
	upcoming, err := h.Sessions.ListUpcomingPerClub(ctx, upcomingPreview)
	if err != nil {
		return internalError(c, err, "failed to list clubs")
	}

	out := make([]model.ClubWithSessions, 0, len(clubs))
	for _, cl := range clubs {
		sessions := upcoming[cl.ID]
		if sessions == nil {
			sessions = []model.Session{}
		}
		out = append(out, model.ClubWithSessions{Club: cl, UpcomingSessions: sessions})
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns a single club.
func (h *ClubHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid club id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	club, err := h.Clubs.GetByID(ctx, id)
	if errors.Is(err, repository.ErrClubNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "club not found"})
	}
	if err != nil {
		return internalError(c, err, "failed to load club")
	}
	return c.JSON(http.StatusOK, club)
}

// Create adds a club.
func (h *ClubHandler) Create(c echo.Context) error {
	var req clubReq
	if msg, ok := bindValid(c, &req, req.trim); !ok {
		return badRequest(c, msg)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	var club model.Club
	req.apply(&club)
	if err := h.Clubs.Create(ctx, &club); err != nil {
		return internalError(c, err, "failed to create club")
	}
	purge(ctx, h.Cache)
	return c.JSON(http.StatusCreated, club)
}

// Update replaces every editable field of a club.
func (h *ClubHandler) Update(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid club id")
	}
	var req clubReq
	if msg, ok := bindValid(c, &req, req.trim); !ok {
		return badRequest(c, msg)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	club := model.Club{ID: id}
	req.apply(&club)
	err := h.Clubs.Update(ctx, &club)
	if errors.Is(err, repository.ErrClubNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "club not found"})
	}
	if err != nil {
		return internalError(c, err, "failed to update club")
	}
	purge(ctx, h.Cache)
	return c.JSON(http.StatusOK, club)
}

// Delete removes a club together with its sessions and bookings.
func (h *ClubHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid club id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	err := h.Clubs.Delete(ctx, id)
	if errors.Is(err, repository.ErrClubNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "club not found"})
	}
	if err != nil {
		return internalError(c, err, "failed to delete club")
	}
	purge(ctx, h.Cache)
	return c.JSON(http.StatusOK, echo.Map{"message": "club deleted"})
}
