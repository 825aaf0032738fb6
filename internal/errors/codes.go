package errors

// Error code constants.
// Format: CATEGORY_SPECIFIC_DETAIL
// Clients map these codes to their own messages.

const (
	// ==================== Authentication (AUTH_) ====================
	AuthUnauthorized        = "AUTH_UNAUTHORIZED"         // login required or not allowed
	AuthTokenInvalid        = "AUTH_TOKEN_INVALID"        // credential rejected by the identity provider
	AuthProviderUnavailable = "AUTH_PROVIDER_UNAVAILABLE" // identity provider unreachable

	// ==================== Authorization (AUTHZ_) ====================
	AuthzForbidden        = "AUTHZ_FORBIDDEN"          // action not permitted
	AuthzAdminOnly        = "AUTHZ_ADMIN_ONLY"         // admin only
	AuthzReviewInProgress = "AUTHZ_REVIEW_IN_PROGRESS" // another reviewer already owns the request

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput   = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID      = "VALIDATION_INVALID_ID"
	ValidationInvalidFormat  = "VALIDATION_INVALID_FORMAT"
	ValidationInvalidStatus  = "VALIDATION_INVALID_STATUS"
	ValidationInvalidCursor  = "VALIDATION_INVALID_CURSOR"
	ValidationRegionMismatch = "VALIDATION_REGION_MISMATCH"
	ValidationRequired       = "VALIDATION_REQUIRED"

	// ==================== Resources (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"

	// ==================== Directory (REGION_, BUSINESS_, EDIT_) ====================
	RegionNotFound      = "REGION_NOT_FOUND"
	BusinessNotFound    = "BUSINESS_NOT_FOUND"
	EditRequestNotFound = "EDIT_REQUEST_NOT_FOUND"
	EditApplyFailed     = "EDIT_APPLY_FAILED"
	UserNotFound        = "USER_NOT_FOUND"

	// ==================== Export (EXPORT_) ====================
	ExportStorageDisabled = "EXPORT_STORAGE_DISABLED"
	ExportFailed          = "EXPORT_FAILED"

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"
	InternalConfigError   = "INTERNAL_CONFIG_ERROR"
)
