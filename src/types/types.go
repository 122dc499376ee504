package types

import (
	"github.com/golang-jwt/jwt/v5"
)

type PaymentStatus string

const (
	PAYMENT_IDLE       PaymentStatus = "idle"
	PAYMENT_PROCESSING PaymentStatus = "processing"
	PAYMENT_SUCCESS    PaymentStatus = "success"
	PAYMENT_FAILED     PaymentStatus = "failed"
)

type ApplyPromoRequestBody struct {
	Code string `json:"code" binding:"required,promocode"`
}

type PromoValidateRequestBody struct {
	Code        string  `json:"code"`
	UserEmail   string  `json:"userEmail"`
	OrderAmount float64 `json:"orderAmount"`
}

type PromoValidateResponse struct {
	Success        bool    `json:"success"`
	DiscountAmount float64 `json:"discountAmount"`
	Message        string  `json:"message"`
}

type CreateOrderRequestBody struct {
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	CustomerEmail string  `json:"customerEmail"`
	CustomerName  string  `json:"customerName"`
	CustomerPhone string  `json:"customerPhone"`
	OrderNote     string  `json:"orderNote"`
}

type SendTicketOTPRequestBody struct {
	Email string `json:"email" binding:"required,email"`
}

type VerifyTicketOTPRequestBody struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required"`
}

type TeamByEmailRequestBody struct {
	AccessToken string `json:"accessToken" binding:"required"`
}

type EntryActionRequestBody struct {
	Code string `json:"code" binding:"required"`
}

type AdminEmailDispatchRequestBody struct {
	Subject   string   `json:"subject" binding:"required"`
	Body      string   `json:"body" binding:"required"`
	Html      bool     `json:"html,omitempty"`
	Audience  string   `json:"audience,omitempty"`
	EventIDs  []uint   `json:"eventIds,omitempty"`
	Addresses []string `json:"addresses,omitempty"`
}

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type Claims struct {
	Username    string   `json:"username"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}
