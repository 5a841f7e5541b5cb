package handler

// errorResponse documents the error envelope rendered by the central error handler.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// --- Auth ---

type registerRequest struct {
	Username string `json:"username" validate:"required,max=50,excludes=@"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required_without=Email"`
	Email    string `json:"email"    validate:"required_without=Username"`
	Password string `json:"password" validate:"required"`
}

// tokenRequest is the OAuth2 password-grant form.
type tokenRequest struct {
	GrantType string `form:"grant_type" validate:"omitempty,eq=password"`
	Username  string `form:"username"   validate:"required"`
	Password  string `form:"password"   validate:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type updateProfileRequest struct {
	Username *string `json:"username" validate:"omitempty,max=50,excludes=@"`
	Email    *string `json:"email"    validate:"omitempty,email"`
}

// --- Posts & comments ---

type createPostRequest struct {
	Title   string `json:"title"   validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
}

type updatePostRequest struct {
	Title   *string `json:"title"   validate:"omitempty,max=200"`
	Content *string `json:"content"`
}

type createCommentRequest struct {
	Text string `json:"text" validate:"required"`
}

// --- Health ---

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}
