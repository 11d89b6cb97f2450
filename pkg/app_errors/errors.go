package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("caller is not the event organizer")
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrConflict            = errors.New("conflict")
	ErrSoldOut             = errors.New("sold out")
	ErrInsufficientBalance = errors.New("insufficient ticket balance")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrPaymentMismatch     = errors.New("payment does not match price")
	ErrRateLimited         = errors.New("rate limited")
	ErrBidTooLow           = errors.New("bid too low")
	ErrExpired             = errors.New("auction expired")
	ErrNotYetEnded         = errors.New("auction not yet ended")
	ErrClosed              = errors.New("auction closed")
	ErrReentrantCall       = errors.New("reentrant call")

	// ErrEventCapacityExceeded 票種總供應量超過活動上限；仍屬於 ErrInvalidInput
	ErrEventCapacityExceeded = fmt.Errorf("%w: event capacity exceeded", ErrInvalidInput)
)

// Code 回傳錯誤對應的穩定代碼，供 API 回應使用
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal_error"
}

var codes = []struct {
	err  error
	code string
}{
	// 細分的代碼要排在其上層錯誤之前
	{ErrEventCapacityExceeded, "event_capacity_exceeded"},
	{ErrInvalidInput, "invalid_input"},
	{ErrNotFound, "not_found"},
	{ErrUnauthorized, "unauthorized"},
	{ErrUnauthenticated, "unauthenticated"},
	{ErrConflict, "conflict"},
	{ErrSoldOut, "sold_out"},
	{ErrInsufficientBalance, "insufficient_balance"},
	{ErrInsufficientFunds, "insufficient_funds"},
	{ErrPaymentMismatch, "payment_mismatch"},
	{ErrRateLimited, "rate_limited"},
	{ErrBidTooLow, "bid_too_low"},
	{ErrExpired, "expired"},
	{ErrNotYetEnded, "not_yet_ended"},
	{ErrClosed, "closed"},
	{ErrReentrantCall, "reentrant_call"},
}
