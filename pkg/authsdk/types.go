package authsdk

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`

	// ExpiresIn is the token lifetime in seconds.
	ExpiresIn int `json:"expires_in"`
}

// WhoAmIResponse describes the authenticated caller.
type WhoAmIResponse struct {
	Identity string `json:"identity"`
	Role     string `json:"role"`
	Scheme   string `json:"scheme"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime,omitempty"`
	Version string `json:"version,omitempty"`

	// Checks is only set by /readyz.
	Checks map[string]string `json:"checks,omitempty"`
}
