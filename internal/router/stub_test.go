package router

import (
	"context"

	"github.com/iliyamo/booking-service/internal/model"
)

type nilBookings struct{}

func (nilBookings) CreateBooking(context.Context, string, string, string) (model.BookingView, error) {
	return model.BookingView{}, nil
}

func (nilBookings) CancelBooking(context.Context, string, string) (model.BookingView, error) {
	return model.BookingView{}, nil
}

func (nilBookings) DeleteBooking(context.Context, string, string) (bool, error) { return true, nil }

func (nilBookings) GetBookings(context.Context, string) ([]model.BookingView, error) {
	return nil, nil
}

func (nilBookings) GetNextBookings(context.Context, string, int) ([]model.BookingView, error) {
	return nil, nil
}

func (nilBookings) GetBooking(context.Context, string, string) (model.BookingView, error) {
	return model.BookingView{}, nil
}

func (nilBookings) CallerLocalID(context.Context, string) (string, error) { return "", nil }
