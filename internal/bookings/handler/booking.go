package handler

import (
	"net/http"
	"time"

	"staybook/internal/bookings/service"
	"staybook/internal/bookings/validator"
	"staybook/pkg/auth"
	apperrors "staybook/pkg/errors"
	httputil "staybook/pkg/http"
	"staybook/pkg/logger"
	"staybook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// BookingResponse is the wire shape of a booking. Dates are YYYY-MM-DD and
// experience times RFC3339.
type BookingResponse struct {
	ID             string            `json:"id"`
	Kind           model.BookingKind `json:"kind"`
	Resource       string            `json:"resource"`
	User           string            `json:"user"`
	Guests         int               `json:"guests"`
	CheckIn        string            `json:"check_in,omitempty"`
	CheckOut       string            `json:"check_out,omitempty"`
	ExperienceTime string            `json:"experience_time,omitempty"`
	ExperienceDone *bool             `json:"experience_done,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

type AvailabilityResponse struct {
	OK bool `json:"ok"`
}

func NewBookingResponse(b *model.Booking) BookingResponse {
	resp := BookingResponse{
		ID:             b.ID,
		Kind:           b.Kind,
		Resource:       b.ResourceID(),
		User:           b.UserID,
		Guests:         b.Guests,
		ExperienceDone: b.ExperienceDone,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
	if b.CheckIn != nil {
		resp.CheckIn = b.CheckIn.Format(validator.DateLayout)
	}
	if b.CheckOut != nil {
		resp.CheckOut = b.CheckOut.Format(validator.DateLayout)
	}
	if b.ExperienceTime != nil {
		resp.ExperienceTime = b.ExperienceTime.Format(time.RFC3339)
	}
	return resp
}

func newBookingResponses(bookings []*model.Booking) []BookingResponse {
	out := make([]BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, NewBookingResponse(b))
	}
	return out
}

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) requireActor(w http.ResponseWriter, r *http.Request, handler string) (auth.Actor, bool) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		h.writeError(w, handler, apperrors.Unauthorized("Authentication credentials were not provided"))
		return auth.Actor{}, false
	}
	return actor, true
}

func (h *BookingHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	bookings, total, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, newBookingResponses(bookings), total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

// ListMine returns the actor's upcoming bookings of one kind.
func (h *BookingHandler) ListMine(kind model.BookingKind) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		actor, ok := h.requireActor(w, r, "ListMine")
		if !ok {
			return
		}

		bookings, err := h.service.ListForUser(r.Context(), actor.ID, kind)
		if err != nil {
			h.writeError(w, "ListMine", err)
			return
		}

		if err := httputil.WriteSuccess(w, newBookingResponses(bookings)); err != nil {
			h.log.Error("failed to write success response", "handler", "ListMine", "operation", "WriteSuccess", "error", err)
		}
	}
}

func (h *BookingHandler) List(kind model.BookingKind) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		bookings, err := h.service.ListForResource(r.Context(), kind, ps.ByName("id"))
		if err != nil {
			h.writeError(w, "List", err)
			return
		}

		if err := httputil.WriteSuccess(w, newBookingResponses(bookings)); err != nil {
			h.log.Error("failed to write success response", "handler", "List", "operation", "WriteSuccess", "error", err)
		}
	}
}

func (h *BookingHandler) Create(kind model.BookingKind) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		actor, ok := h.requireActor(w, r, "Create")
		if !ok {
			return
		}

		var payload model.BookingPayload
		if err := httputil.DecodeJSON(r, &payload); err != nil {
			h.writeError(w, "Create", err)
			return
		}

		var booking *model.Booking
		var err error
		if kind == model.BookingKindRoom {
			booking, err = h.service.CreateRoomBooking(r.Context(), ps.ByName("id"), actor.ID, &payload)
		} else {
			booking, err = h.service.CreateExperienceBooking(r.Context(), ps.ByName("id"), actor.ID, &payload)
		}
		if err != nil {
			h.writeError(w, "Create", err)
			return
		}

		if err := httputil.WriteCreated(w, NewBookingResponse(booking)); err != nil {
			h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
		}
	}
}

func (h *BookingHandler) Get(kind model.BookingKind) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		booking, err := h.service.GetBooking(r.Context(), kind, ps.ByName("id"), ps.ByName("booking_id"))
		if err != nil {
			h.writeError(w, "Get", err)
			return
		}

		if err := httputil.WriteSuccess(w, NewBookingResponse(booking)); err != nil {
			h.log.Error("failed to write success response", "handler", "Get", "operation", "WriteSuccess", "error", err)
		}
	}
}

// Update applies a partial update; PUT and PATCH behave the same.
func (h *BookingHandler) Update(kind model.BookingKind) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if _, ok := h.requireActor(w, r, "Update"); !ok {
			return
		}

		var payload model.BookingPayload
		if err := httputil.DecodeJSON(r, &payload); err != nil {
			h.writeError(w, "Update", err)
			return
		}

		booking, err := h.service.UpdateBooking(r.Context(), kind, ps.ByName("id"), ps.ByName("booking_id"), &payload)
		if err != nil {
			h.writeError(w, "Update", err)
			return
		}

		if err := httputil.WriteSuccess(w, NewBookingResponse(booking)); err != nil {
			h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
		}
	}
}

func (h *BookingHandler) Delete(kind model.BookingKind) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if _, ok := h.requireActor(w, r, "Delete"); !ok {
			return
		}

		if err := h.service.DeleteBooking(r.Context(), kind, ps.ByName("id"), ps.ByName("booking_id")); err != nil {
			h.writeError(w, "Delete", err)
			return
		}

		httputil.WriteNoContent(w)
	}
}

func (h *BookingHandler) CheckAvailability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	query := r.URL.Query()
	checkIn, checkOut := query.Get("check_in"), query.Get("check_out")
	if checkIn == "" || checkOut == "" {
		h.writeError(w, "CheckAvailability", apperrors.InvalidInput("check_in and check_out query parameters are required"))
		return
	}

	available, err := h.service.CheckRoomAvailability(r.Context(), ps.ByName("id"), checkIn, checkOut)
	if err != nil {
		h.writeError(w, "CheckAvailability", err)
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, AvailabilityResponse{OK: available}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "CheckAvailability", "operation", "WriteJSON", "error", err)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/bookings", h.GetAll)
	router.GET("/api/v1/bookings/rooms", h.ListMine(model.BookingKindRoom))
	router.GET("/api/v1/bookings/experiences", h.ListMine(model.BookingKindExperience))

	router.GET("/api/v1/rooms/:id/availability", h.CheckAvailability)

	for prefix, kind := range map[string]model.BookingKind{
		"/api/v1/rooms/:id/bookings":       model.BookingKindRoom,
		"/api/v1/experiences/:id/bookings": model.BookingKindExperience,
	} {
		router.GET(prefix, h.List(kind))
		router.POST(prefix, h.Create(kind))
		router.GET(prefix+"/:booking_id", h.Get(kind))
		router.PUT(prefix+"/:booking_id", h.Update(kind))
		router.PATCH(prefix+"/:booking_id", h.Update(kind))
		router.DELETE(prefix+"/:booking_id", h.Delete(kind))
	}
}
