package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	CodeConfigurationError: "Configuration error",

	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	CodeEthereumConnectionFailed: "Failed to connect to Ethereum node",
	CodeEthereumRPCError:         "Ethereum RPC call failed",
	CodeContractCallFailed:       "Smart contract call failed",
	CodeContractDecodeFailed:     "Failed to decode contract return data",
	CodeUnsupportedNetwork:       "Network is not supported",
	CodeTokenDecimalsUnavailable: "Token decimals could not be resolved",

	CodeCannotGetPriceFromOracle: "Cannot get price from oracle",
	CodeNoPriceSource:            "No price source could price the pair",
	CodeInconsistentPrice:        "Price and inverse price are inconsistent",

	CodeInvalidOrder:      "Invalid order",
	CodeInvalidOrderUID:   "Invalid order UID",
	CodeInvalidSignerKey:  "Invalid signer key",
	CodeOrderSigningError: "Failed to sign order",
	CodeOrderAPIDecode:    "Failed to decode order API response",

	CodeCircuitOpen: "Circuit breaker is open",
}
