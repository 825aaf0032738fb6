package auth0

// UserInfo is the subset of /userinfo the service relies on.
type UserInfo struct {
	Sub   string `json:"sub"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// AppMetadata holds the application-managed part of a user profile.
type AppMetadata struct {
	Role string `json:"role,omitempty"`
}

// User is a management API user.
type User struct {
	UserID      string      `json:"user_id"`
	Email       string      `json:"email"`
	Name        string      `json:"name"`
	AppMetadata AppMetadata `json:"app_metadata"`
}

// UserUpdate is the PATCH body for a user. Nil fields are omitted.
type UserUpdate struct {
	Email       *string      `json:"email,omitempty"`
	Name        *string      `json:"name,omitempty"`
	AppMetadata *AppMetadata `json:"app_metadata,omitempty"`
}

type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Audience     string `json:"audience"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// ErrorResponse is the error body returned by Auth0.
type ErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}
