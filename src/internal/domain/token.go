package domain

// TokenGrant is what a credential exchange yields. User is only set by
// exchanges that return the profile inline (federated sign-in).
type TokenGrant struct {
	AccessToken  string       `json:"access_token" validate:"required"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	TokenType    string       `json:"token_type,omitempty"`
	ExpiresIn    int          `json:"expires_in,omitempty"`
	Scope        string       `json:"scope,omitempty"`
	User         *UserProfile `json:"user,omitempty"`
}
