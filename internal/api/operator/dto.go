package operator

type LoginRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginResponse struct {
	AccessToken string          `json:"access_token"`
	ExpiresAt   int64           `json:"expires_at"`
	Operator    OperatorPayload `json:"operator"`
}

type OperatorPayload struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}
