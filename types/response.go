package types

type DataResponse struct {
	Status  bool        `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Username    string `json:"username"`
	ExpiresAt   int64  `json:"expires_at"`
}

type PreviewResponse struct {
	Name    string `json:"name"`
	Format  string `json:"format"`
	Length  int    `json:"length"`
	Preview string `json:"preview"`
}
