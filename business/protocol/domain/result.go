package domain

import "fmt"

// Error types returned by the order API that callers commonly branch on.
const (
	ErrorSameBuyAndSellToken = "SameBuyAndSellToken"
	ErrorInsufficientBalance = "InsufficientBalance"
	ErrorInsufficientFee     = "InsufficientFee"
	ErrorDuplicateOrder      = "DuplicateOrder"
	ErrorUnsupportedToken    = "UnsupportedToken"
)

// ErrorResponse is a business failure reported by the order API.
type ErrorResponse struct {
	ErrorType   string `json:"errorType"`
	Description string `json:"description"`
}

func (e ErrorResponse) String() string {
	return fmt.Sprintf("%s: %s", e.ErrorType, e.Description)
}

// SameBuyAndSellToken is the response to an estimate or order whose tokens match.
func SameBuyAndSellToken() ErrorResponse {
	return ErrorResponse{
		ErrorType:   ErrorSameBuyAndSellToken,
		Description: "Buy token is the same as the sell token.",
	}
}

// Result carries either a value or the API's ErrorResponse.
// Transport failures are Go errors and never appear here.
type Result[T any] struct {
	Value   T
	Failure *ErrorResponse
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Fail wraps a business failure.
func Fail[T any](e ErrorResponse) Result[T] {
	return Result[T]{Failure: &e}
}

// IsError reports whether the API answered with an ErrorResponse.
func (r Result[T]) IsError() bool {
	return r.Failure != nil
}
