package service

import (
	"context"
	"staybook/pkg/model"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const TracerName = "staybook/internal/bookings/service"

// tracedBookingService opens a span around each BookingService call.
type tracedBookingService struct {
	next   BookingService
	tracer trace.Tracer
}

// WithTracing wraps svc so every operation is recorded as a span on tp.
func WithTracing(svc BookingService, tp trace.TracerProvider) BookingService {
	return &tracedBookingService{next: svc, tracer: tp.Tracer(TracerName)}
}

func (t *tracedBookingService) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "BookingService."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (t *tracedBookingService) CreateRoomBooking(ctx context.Context, roomID, userID string, payload *model.BookingPayload) (*model.Booking, error) {
	ctx, span := t.startSpan(ctx, "CreateRoomBooking", attribute.String("booking.room_id", roomID))
	b, err := t.next.CreateRoomBooking(ctx, roomID, userID, payload)
	if b != nil {
		span.SetAttributes(attribute.String("booking.id", b.ID))
	}
	endSpan(span, err)
	return b, err
}

func (t *tracedBookingService) CreateExperienceBooking(ctx context.Context, experienceID, userID string, payload *model.BookingPayload) (*model.Booking, error) {
	ctx, span := t.startSpan(ctx, "CreateExperienceBooking", attribute.String("booking.experience_id", experienceID))
	b, err := t.next.CreateExperienceBooking(ctx, experienceID, userID, payload)
	if b != nil {
		span.SetAttributes(attribute.String("booking.id", b.ID))
	}
	endSpan(span, err)
	return b, err
}

func (t *tracedBookingService) UpdateBooking(ctx context.Context, kind model.BookingKind, resourceID, bookingID string, payload *model.BookingPayload) (*model.Booking, error) {
	ctx, span := t.startSpan(ctx, "UpdateBooking", bookingAttrs(kind, resourceID, bookingID)...)
	b, err := t.next.UpdateBooking(ctx, kind, resourceID, bookingID, payload)
	endSpan(span, err)
	return b, err
}

func (t *tracedBookingService) GetBooking(ctx context.Context, kind model.BookingKind, resourceID, bookingID string) (*model.Booking, error) {
	ctx, span := t.startSpan(ctx, "GetBooking", bookingAttrs(kind, resourceID, bookingID)...)
	b, err := t.next.GetBooking(ctx, kind, resourceID, bookingID)
	endSpan(span, err)
	return b, err
}

func (t *tracedBookingService) DeleteBooking(ctx context.Context, kind model.BookingKind, resourceID, bookingID string) error {
	ctx, span := t.startSpan(ctx, "DeleteBooking", bookingAttrs(kind, resourceID, bookingID)...)
	err := t.next.DeleteBooking(ctx, kind, resourceID, bookingID)
	endSpan(span, err)
	return err
}

func (t *tracedBookingService) ListForResource(ctx context.Context, kind model.BookingKind, resourceID string) ([]*model.Booking, error) {
	ctx, span := t.startSpan(ctx, "ListForResource",
		attribute.String("booking.kind", string(kind)),
		attribute.String("booking.resource_id", resourceID),
	)
	list, err := t.next.ListForResource(ctx, kind, resourceID)
	span.SetAttributes(attribute.Int("booking.count", len(list)))
	endSpan(span, err)
	return list, err
}

func (t *tracedBookingService) ListForUser(ctx context.Context, userID string, kind model.BookingKind) ([]*model.Booking, error) {
	ctx, span := t.startSpan(ctx, "ListForUser", attribute.String("booking.kind", string(kind)))
	list, err := t.next.ListForUser(ctx, userID, kind)
	span.SetAttributes(attribute.Int("booking.count", len(list)))
	endSpan(span, err)
	return list, err
}

func (t *tracedBookingService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error) {
	ctx, span := t.startSpan(ctx, "GetAll", attribute.Int("page.limit", limit), attribute.Int64("page.offset", offset))
	list, total, err := t.next.GetAll(ctx, limit, offset)
	span.SetAttributes(attribute.Int64("booking.total", total))
	endSpan(span, err)
	return list, total, err
}

func (t *tracedBookingService) CheckRoomAvailability(ctx context.Context, roomID, checkIn, checkOut string) (bool, error) {
	ctx, span := t.startSpan(ctx, "CheckRoomAvailability", attribute.String("booking.room_id", roomID))
	available, err := t.next.CheckRoomAvailability(ctx, roomID, checkIn, checkOut)
	span.SetAttributes(attribute.Bool("booking.available", available))
	endSpan(span, err)
	return available, err
}

func bookingAttrs(kind model.BookingKind, resourceID, bookingID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("booking.kind", string(kind)),
		attribute.String("booking.resource_id", resourceID),
		attribute.String("booking.id", bookingID),
	}
}
