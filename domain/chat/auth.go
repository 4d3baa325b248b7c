package chat

// TokenPair represents access and refresh tokens.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// Claims is the identity proven by a valid access token.
type Claims struct {
	UserID UserID `json:"user_id"`
	Email  string `json:"email"`
}
