package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"
	ErrStudentOnly   ErrCode = "STUDENT_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Session engine ────────────────────────────────────────────────
	ErrNoActiveModule   ErrCode = "NO_ACTIVE_MODULE"
	ErrAttemptNotFound  ErrCode = "ATTEMPT_NOT_FOUND"
	ErrAttemptMismatch  ErrCode = "ATTEMPT_MISMATCH"
	ErrModuleLocked     ErrCode = "MODULE_LOCKED"
	ErrSubmitInFlight   ErrCode = "SUBMIT_IN_FLIGHT"
	ErrSubmitFailed     ErrCode = "SUBMIT_FAILED"
	ErrRecoveryNoBackup ErrCode = "RECOVERY_NO_BACKUP"
	ErrExamFault        ErrCode = "EXAM_FAULT"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."
	case ErrStudentOnly:
		return "This resource is restricted to students."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid identifier format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Session engine ────────────────────────────────────────────────
	case ErrNoActiveModule:
		return "No exam module is currently active."
	case ErrAttemptNotFound:
		return "The test attempt could not be found."
	case ErrAttemptMismatch:
		return "This request does not match the active attempt."
	case ErrModuleLocked:
		return "The module is being submitted and can no longer be changed."
	case ErrSubmitInFlight:
		return "A submission is already in progress."
	case ErrSubmitFailed:
		return "Submission failed. Your answers are saved. Please try again."
	case ErrRecoveryNoBackup:
		return "No saved session was found to recover."
	case ErrExamFault:
		return "Something went wrong, but your answers are saved."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
