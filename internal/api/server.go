package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/javiermolinar/courtdesk/internal/booking"
	"github.com/javiermolinar/courtdesk/internal/slot"
)

// Server exposes a booking.Backend under the routes Client consumes.
type Server struct {
	backend booking.Backend
	loc     *time.Location
	log     logrus.FieldLogger
	echo    *echo.Echo
}

// NewServer builds the router. A non-empty token enables bearer auth on
// every route except /health.
func NewServer(backend booking.Backend, loc *time.Location, token string, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if loc == nil {
		loc = time.UTC
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		backend: backend,
		loc:     loc,
		log:     log.WithField("component", "api"),
		echo:    e,
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator:    uuid.NewString,
		TargetHeader: RequestIDHeader,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogError:     true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			entry := s.log.WithFields(logrus.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency,
				"request_id": v.RequestID,
			})
			if v.Error != nil {
				entry.WithError(v.Error).Warn("request failed")
				return nil
			}
			entry.Debug("request")
			return nil
		},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	g := e.Group("")
	if token != "" {
		g.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			Validator: func(key string, c echo.Context) (bool, error) {
				return subtle.ConstantTimeCompare([]byte(key), []byte(token)) == 1, nil
			},
		}))
	}

	g.GET("/venues/:venue/resources", s.listResources)
	g.GET("/resources/:id", s.getResource)
	g.GET("/categories", s.listCategories)
	g.GET("/resources/:id/slots", s.listSlots)
	g.GET("/resources/:id/bookings", s.listBookings)
	g.POST("/resources/:id/blocks", s.block)
	g.DELETE("/resources/:id/blocks", s.unblock)

	g.POST("/games", s.createGame)
	g.DELETE("/games/:id", s.cancelGame)
	g.PUT("/games/:id/schedule", s.rescheduleGame)
	g.DELETE("/bookings/:id", s.cancelBooking)
	g.PUT("/bookings/:id/schedule", s.rescheduleBooking)

	g.GET("/bookings/:id/participants", s.listParticipants)
	g.GET("/users/:id/rooms", s.listRooms)
	g.POST("/rooms/:key/handled", s.markHandled)

	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Mount serves h under path, outside of bearer auth. Used for the realtime
// relay.
func (s *Server) Mount(path string, h http.Handler) {
	s.echo.Any(path, echo.WrapHandler(h))
}

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.log.WithField("addr", addr).Info("listening")
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the listener gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// fail maps domain errors onto status codes.
func (s *Server) fail(c echo.Context, err error) error {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, booking.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, booking.ErrConflict):
		code = http.StatusConflict
	case errors.Is(err, booking.ErrCategoryDenied):
		code = http.StatusForbidden
	case errors.Is(err, booking.ErrEmptyTitle),
		errors.Is(err, booking.ErrInvalidKind),
		errors.Is(err, booking.ErrMissingResource),
		errors.Is(err, booking.ErrMissingCategory),
		errors.Is(err, booking.ErrNothingToCancel),
		errors.Is(err, slot.ErrInvalidInterval):
		code = http.StatusBadRequest
	}
	if code == http.StatusInternalServerError {
		s.log.WithError(err).WithField("uri", c.Request().RequestURI).Error("backend error")
	}
	return c.JSON(code, errorResponse{Error: err.Error()})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}

func (s *Server) date(c echo.Context) (time.Time, error) {
	raw := c.QueryParam("date")
	if raw == "" {
		return time.Time{}, errors.New("date is required")
	}
	d, err := time.ParseInLocation(dateLayout, raw, s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}
	return d, nil
}

func (s *Server) interval(start, end time.Time) (slot.Interval, error) {
	return slot.NewInterval(slot.Normalize(start, s.loc), slot.Normalize(end, s.loc))
}

func (s *Server) listResources(c echo.Context) error {
	resources, err := s.backend.ListResources(c.Request().Context(), c.Param("venue"))
	if err != nil {
		return s.fail(c, err)
	}
	if resources == nil {
		resources = []booking.Resource{}
	}
	return c.JSON(http.StatusOK, resources)
}

func (s *Server) getResource(c echo.Context) error {
	r, err := s.backend.GetResource(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

func (s *Server) listCategories(c echo.Context) error {
	categories, err := s.backend.ListCategories(c.Request().Context())
	if err != nil {
		return s.fail(c, err)
	}
	if categories == nil {
		categories = []booking.Category{}
	}
	return c.JSON(http.StatusOK, categories)
}

func (s *Server) listSlots(c echo.Context) error {
	date, err := s.date(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	slots, err := s.backend.ListSlots(c.Request().Context(), c.Param("id"), date)
	if err != nil {
		return s.fail(c, err)
	}
	out := make([]slotDTO, 0, len(slots))
	for _, sl := range slots {
		out = append(out, slotToDTO(sl))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) listBookings(c echo.Context) error {
	date, err := s.date(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	bookings, err := s.backend.ListBookings(c.Request().Context(), c.Param("id"), date)
	if err != nil {
		return s.fail(c, err)
	}
	out := make([]bookingDTO, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, bookingToDTO(b))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) block(c echo.Context) error {
	var body blockRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	iv, err := s.interval(body.Start, body.End)
	if err != nil {
		return s.fail(c, err)
	}
	if err := s.backend.Block(c.Request().Context(), c.Param("id"), iv); err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusCreated)
}

func (s *Server) unblock(c echo.Context) error {
	start, err := time.Parse(time.RFC3339, c.QueryParam("start"))
	if err != nil {
		return badRequest(c, "invalid start")
	}
	end, err := time.Parse(time.RFC3339, c.QueryParam("end"))
	if err != nil {
		return badRequest(c, "invalid end")
	}
	iv, err := s.interval(start, end)
	if err != nil {
		return s.fail(c, err)
	}
	if err := s.backend.Unblock(c.Request().Context(), c.Param("id"), iv); err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) createGame(c echo.Context) error {
	var body gameRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	game := booking.NewGame{
		ResourceID:     body.ResourceID,
		Category:       body.Category,
		Title:          body.Title,
		Interval:       slot.Interval{Start: slot.Normalize(body.Start, s.loc), End: slot.Normalize(body.End, s.loc)},
		ParticipantIDs: body.ParticipantIDs,
	}
	if err := game.Validate(); err != nil {
		return s.fail(c, err)
	}
	b, err := s.backend.CreateGame(c.Request().Context(), game)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, bookingToDTO(*b))
}

func (s *Server) cancelGame(c echo.Context) error {
	if err := s.backend.CancelGame(c.Request().Context(), c.Param("id")); err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) cancelBooking(c echo.Context) error {
	if err := s.backend.CancelBooking(c.Request().Context(), c.Param("id")); err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) rescheduleGame(c echo.Context) error {
	return s.reschedule(c, s.backend.RescheduleGame)
}

func (s *Server) rescheduleBooking(c echo.Context) error {
	return s.reschedule(c, s.backend.RescheduleBooking)
}

func (s *Server) reschedule(c echo.Context, move func(context.Context, string, string, slot.Interval) error) error {
	var body scheduleRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.ResourceID == "" {
		return s.fail(c, booking.ErrMissingResource)
	}
	iv, err := s.interval(body.Start, body.End)
	if err != nil {
		return s.fail(c, err)
	}
	if err := move(c.Request().Context(), c.Param("id"), body.ResourceID, iv); err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) listParticipants(c echo.Context) error {
	participants, err := s.backend.ListParticipants(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	if participants == nil {
		participants = []booking.Participant{}
	}
	return c.JSON(http.StatusOK, participants)
}

func (s *Server) listRooms(c echo.Context) error {
	rooms, err := s.backend.ListRooms(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	if rooms == nil {
		rooms = []booking.Room{}
	}
	return c.JSON(http.StatusOK, rooms)
}

func (s *Server) markHandled(c echo.Context) error {
	var body handledRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.UserID == "" {
		return badRequest(c, "user_id is required")
	}
	if err := s.backend.MarkHandled(c.Request().Context(), c.Param("key"), body.UserID, body.At, body.Comment); err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
