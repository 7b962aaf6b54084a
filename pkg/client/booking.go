package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"staybook/pkg/model"
)

// Booking mirrors the bookings API response body.
type Booking struct {
	ID             string            `json:"id"`
	Kind           model.BookingKind `json:"kind"`
	Resource       string            `json:"resource"`
	User           string            `json:"user"`
	Guests         int               `json:"guests"`
	CheckIn        string            `json:"check_in,omitempty"`
	CheckOut       string            `json:"check_out,omitempty"`
	ExperienceTime string            `json:"experience_time,omitempty"`
	ExperienceDone *bool             `json:"experience_done,omitempty"`
}

type Metadata struct {
	TotalCount int64 `json:"total_count"`
	Limit      int   `json:"limit"`
	Offset     int64 `json:"offset"`
}

// BookingClient talks to the bookings HTTP API.
type BookingClient struct {
	httpClient *HttpClient
}

func NewBookingClient(baseURL, token string) *BookingClient {
	c := NewHttpClient(baseURL)
	c.Token = token
	return &BookingClient{httpClient: c}
}

func collectionPath(kind model.BookingKind, resourceID string) string {
	if kind == model.BookingKindExperience {
		return "/api/v1/experiences/" + url.PathEscape(resourceID) + "/bookings"
	}
	return "/api/v1/rooms/" + url.PathEscape(resourceID) + "/bookings"
}

func itemPath(kind model.BookingKind, resourceID, id string) string {
	return collectionPath(kind, resourceID) + "/" + url.PathEscape(id)
}

func (c *BookingClient) Create(ctx context.Context, kind model.BookingKind, resourceID string, payload *model.BookingPayload) (*Response, error) {
	return c.httpClient.POST(ctx, collectionPath(kind, resourceID), payload)
}

// CreateIdempotent sends key as the Idempotency-Key header so retries replay
// the first successful response.
func (c *BookingClient) CreateIdempotent(ctx context.Context, kind model.BookingKind, resourceID string, payload *model.BookingPayload, key string) (*Response, error) {
	return c.httpClient.POSTWithHeaders(ctx, collectionPath(kind, resourceID), payload, map[string]string{"Idempotency-Key": key})
}

func (c *BookingClient) List(ctx context.Context, kind model.BookingKind, resourceID string) (*Response, error) {
	return c.httpClient.GET(ctx, collectionPath(kind, resourceID))
}

func (c *BookingClient) ListMine(ctx context.Context, kind model.BookingKind) (*Response, error) {
	if kind == model.BookingKindExperience {
		return c.httpClient.GET(ctx, "/api/v1/bookings/experiences")
	}
	return c.httpClient.GET(ctx, "/api/v1/bookings/rooms")
}

func (c *BookingClient) GetAll(ctx context.Context, limit int, offset int64) (*Response, error) {
	return c.httpClient.GET(ctx, fmt.Sprintf("/api/v1/bookings?limit=%d&offset=%d", limit, offset))
}

func (c *BookingClient) Get(ctx context.Context, kind model.BookingKind, resourceID, id string) (*Response, error) {
	return c.httpClient.GET(ctx, itemPath(kind, resourceID, id))
}

func (c *BookingClient) Update(ctx context.Context, kind model.BookingKind, resourceID, id string, payload *model.BookingPayload) (*Response, error) {
	return c.httpClient.PATCH(ctx, itemPath(kind, resourceID, id), payload)
}

func (c *BookingClient) Delete(ctx context.Context, kind model.BookingKind, resourceID, id string) (*Response, error) {
	return c.httpClient.DELETE(ctx, itemPath(kind, resourceID, id))
}

func (c *BookingClient) CheckAvailability(ctx context.Context, roomID, checkIn, checkOut string) (bool, error) {
	q := url.Values{}
	q.Set("check_in", checkIn)
	q.Set("check_out", checkOut)

	resp, err := c.httpClient.GET(ctx, "/api/v1/rooms/"+url.PathEscape(roomID)+"/availability?"+q.Encode())
	if err != nil {
		return false, err
	}
	if resp.StatusCode != 200 {
		return false, fmt.Errorf("availability check failed: %s", GetErrorMessage(resp))
	}

	var body struct {
		OK bool `json:"ok"`
	}
	if err := resp.DecodeJSON(&body); err != nil {
		return false, fmt.Errorf("could not decode availability: %w", err)
	}
	return body.OK, nil
}

func (c *BookingClient) DecodeBooking(resp *Response) (*Booking, error) {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}

	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return nil, fmt.Errorf("could not decode booking wrapper: %s: %w", resp, err)
	}

	var booking Booking
	if err := json.Unmarshal(wrapper.Data, &booking); err != nil {
		return nil, fmt.Errorf("could not decode booking json: %s: %w", resp, err)
	}

	return &booking, nil
}

func (c *BookingClient) DecodeBookings(resp *Response) ([]*Booking, *Metadata, error) {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
		Metadata
	}

	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return nil, nil, fmt.Errorf("could not decode paginated resp: %s: %w", resp, err)
	}

	var bookings []*Booking
	if err := json.Unmarshal(wrapper.Data, &bookings); err != nil {
		return nil, nil, fmt.Errorf("could not decode booking list: %s: %w", resp, err)
	}

	return bookings, &wrapper.Metadata, nil
}
