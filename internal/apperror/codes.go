package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Chain access
const (
	CodeEthereumConnectionFailed Code = "ETHEREUM_CONNECTION_FAILED"
	CodeEthereumRPCError         Code = "ETHEREUM_RPC_ERROR"
	CodeContractCallFailed       Code = "CONTRACT_CALL_FAILED"
	CodeContractDecodeFailed     Code = "CONTRACT_DECODE_FAILED"
	CodeUnsupportedNetwork       Code = "UNSUPPORTED_NETWORK"
	CodeTokenDecimalsUnavailable Code = "TOKEN_DECIMALS_UNAVAILABLE"
)

// Pricing
const (
	// CodeCannotGetPriceFromOracle is the business failure of an oracle:
	// no pool exists for the pair, or the pools are empty.
	CodeCannotGetPriceFromOracle Code = "CANNOT_GET_PRICE_FROM_ORACLE"
	CodeNoPriceSource            Code = "NO_PRICE_SOURCE"
	CodeInconsistentPrice        Code = "INCONSISTENT_PRICE"
)

// Protocol
const (
	CodeInvalidOrder      Code = "INVALID_ORDER"
	CodeInvalidOrderUID   Code = "INVALID_ORDER_UID"
	CodeInvalidSignerKey  Code = "INVALID_SIGNER_KEY"
	CodeOrderSigningError Code = "ORDER_SIGNING_FAILED"
	CodeOrderAPIDecode    Code = "ORDER_API_DECODE_FAILED"
)

// Circuit breaker
const (
	CodeCircuitOpen Code = "CIRCUIT_OPEN"
)
