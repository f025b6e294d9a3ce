// Package api exposes the operator surface consumed by the dashboard.
// There is no authentication on these routes: keep listen_address on a
// loopback interface or front it with an authenticating proxy.
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tg-promo/promobot/internal/gate"
	"github.com/tg-promo/promobot/internal/storage"
)

type Service struct {
	store *storage.Store
	gate  *gate.Gate
}

func NewService(store *storage.Store, gate *gate.Gate) *Service {
	return &Service{
		store: store,
		gate:  gate,
	}
}

// Register mounts the dashboard routes.
func (s *Service) Register(e *echo.Echo) {
	e.GET("/", s.HandleDashboard())
	e.POST("/approve/:id", s.HandleApprove())
	e.POST("/disapprove/:id", s.HandleDisapprove())
	e.POST("/ban/:userId", s.HandleBan())
	e.POST("/unban/:userId", s.HandleUnban())
}

// HandleDashboard returns the aggregate stats and the full listings.
func (s *Service) HandleDashboard() echo.HandlerFunc {
	return func(c echo.Context) error {
		state := s.store.State()
		return c.JSON(http.StatusOK, echo.Map{
			"stats":    s.store.Stats(),
			"channels": state.Channels,
			"groups":   state.Groups,
			"users":    state.Users,
		})
	}
}

func (s *Service) HandleApprove() echo.HandlerFunc {
	return func(c echo.Context) error {
		s.gate.Approve(c.Request().Context(), c.Param("id"))
		return c.Redirect(http.StatusSeeOther, "/")
	}
}

func (s *Service) HandleDisapprove() echo.HandlerFunc {
	return func(c echo.Context) error {
		s.gate.Disapprove(c.Request().Context(), c.Param("id"))
		return c.Redirect(http.StatusSeeOther, "/")
	}
}

func (s *Service) HandleBan() echo.HandlerFunc {
	return func(c echo.Context) error {
		s.gate.Ban(c.Request().Context(), c.Param("userId"))
		return c.Redirect(http.StatusSeeOther, "/")
	}
}

func (s *Service) HandleUnban() echo.HandlerFunc {
	return func(c echo.Context) error {
		s.gate.Unban(c.Request().Context(), c.Param("userId"))
		return c.Redirect(http.StatusSeeOther, "/")
	}
}
