package service

import (
	"context"
)

type GatewayOrderRequest struct {
	Amount   float64
	Currency string
	Receipt  string
	Notes    map[string]string
}

type GatewayOrder struct {
	ID       string
	Amount   float64
	Currency string
	Receipt  string
	Status   string
}

type PaymentGatewayService interface {
	CreateOrder(ctx context.Context, req GatewayOrderRequest) (*GatewayOrder, error)
	KeyID() string
}
