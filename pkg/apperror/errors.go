package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Bidding (BID) ----

func ErrAuctionNotActive() *AppError {
	return New("BID_001", "Auction is not accepting bids", http.StatusConflict)
}

func ErrBidTooLow(minAcceptable int64) *AppError {
	return New("BID_002", fmt.Sprintf("Bid amount too low, minimum acceptable bid is %d", minAcceptable), http.StatusUnprocessableEntity)
}

func ErrTierCeilingExceeded(ceiling int64) *AppError {
	return New("BID_003", fmt.Sprintf("Bid exceeds your tier-1 ceiling of %d, account upgrade required", ceiling), http.StatusForbidden)
}

func ErrBidConflict(minAcceptable int64) *AppError {
	return New("BID_004", fmt.Sprintf("Bid amount too low, another bid was accepted first, minimum acceptable bid is %d", minAcceptable), http.StatusConflict)
}

// ---- Auctions (AUC) ----

func ErrAuctionNotFound() *AppError {
	return New("AUC_001", "Auction not found", http.StatusNotFound)
}

// ---- Wallet (WAL) ----

func ErrInsufficientFunds() *AppError {
	return New("WAL_001", "Insufficient available balance", http.StatusPaymentRequired)
}

func ErrInvalidAmount() *AppError {
	return New("WAL_002", "Invalid amount", http.StatusBadRequest)
}

func ErrWalletNotFound() *AppError {
	return New("WAL_003", "Wallet not found", http.StatusNotFound)
}

// ErrWalletInvariant marks a refused write that would break the
// balance = available + frozen invariant. Internal, never a validation error.
func ErrWalletInvariant(err error) *AppError {
	return Wrap("WAL_004", "Wallet balance invariant violated", http.StatusInternalServerError, err)
}

func ErrDuplicateDeposit() *AppError {
	return New("WAL_005", "Duplicate deposit reference", http.StatusConflict)
}

// ---- Payment obligations (PAY) ----

func ErrPaymentNotFound() *AppError {
	return New("PAY_001", "Payment obligation not found", http.StatusNotFound)
}

func ErrDuplicateObligation(err error) *AppError {
	return Wrap("PAY_002", "Auction already has an open payment obligation", http.StatusInternalServerError, err)
}

// ---- OTP (OTP) ----

func ErrOTPInvalid() *AppError {
	return New("OTP_001", "Invalid verification code", http.StatusUnauthorized)
}

func ErrOTPExpired() *AppError {
	return New("OTP_002", "Verification code expired, request a new one", http.StatusUnauthorized)
}

func ErrOTPAttemptsExceeded() *AppError {
	return New("OTP_003", "Too many verification attempts, request a new code", http.StatusTooManyRequests)
}

func ErrOTPRateLimited() *AppError {
	return New("OTP_004", "Too many code requests, try again later", http.StatusTooManyRequests)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_002", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrVendorSuspended() *AppError {
	return New("AUTH_003", "Vendor account is suspended", http.StatusForbidden)
}

func ErrSchedulerSecret() *AppError {
	return New("AUTH_004", "Invalid scheduler credential", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

func ErrLockTimeout(err error) *AppError {
	return Wrap("SYS_002", "Lock acquisition timeout", http.StatusServiceUnavailable, err)
}

// Validation returns a generic request validation error.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}
