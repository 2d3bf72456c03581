package apierr

var (
	BadRequest = APIError{
		Code:    "INVALID_REQUEST",
		Message: "invalid request body",
	}
	BadID = APIError{
		Code:    "INVALID_REQUEST",
		Message: "id must be a positive integer",
	}
	Unauthorized = APIError{
		Code:    "UNAUTHORIZED",
		Message: "invalid or expired token",
	}
	MissingToken = APIError{
		Code:    "UNAUTHORIZED",
		Message: "authorization token is required",
	}
	Forbidden = APIError{
		Code:    "FORBIDDEN",
		Message: "insufficient role",
	}
	InvalidCredentials = APIError{
		Code:    "INVALID_CREDENTIALS",
		Message: "invalid email or password",
	}
	NotFound = APIError{
		Code:    "NOT_FOUND",
		Message: "resource not found",
	}
	Conflict = APIError{
		Code:    "CONFLICT",
		Message: "resource already exists",
	}
	InvalidState = APIError{
		Code:    "INVALID_STATE",
		Message: "operation violates an invariant",
	}
	ValidationFailed = APIError{
		Code:    "VALIDATION_FAILED",
		Message: "validation failed",
	}
	InternalServerError = APIError{
		Code:    "INTERNAL_SERVER_ERROR",
		Message: "internal server error",
	}
)
