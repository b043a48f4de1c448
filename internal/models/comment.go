// Package models defines API request and response types.
package models

// CommentRecord is one extracted comment.
type CommentRecord struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp,omitempty"` // relative, e.g. "3h", "2d"
	Likes     int    `json:"likes"`
}

// DebugInfo carries diagnostic flags for observability.
type DebugInfo struct {
	LoginSuccess  bool `json:"loginSuccess"`
	PageLoaded    bool `json:"pageLoaded"`
	CommentsFound int  `json:"commentsFound"`
}

// CommentsRequest is the body of POST /api/instagram-comments.
type CommentsRequest struct {
	PostURL string `json:"postUrl" doc:"Instagram post URL, e.g. https://instagram.com/p/ABC123/"`
	Filter  string `json:"filter,omitempty" doc:"Case-insensitive substring match on username or text"`
}

// CommentsResponse is the response of POST /api/instagram-comments.
type CommentsResponse struct {
	Status     string          `json:"status"` // "success" | "error"
	Comments   []CommentRecord `json:"comments,omitempty"`
	TotalFound int             `json:"totalFound"`
	Message    string          `json:"message"`
	Error      string          `json:"error,omitempty"`
	Debug      *DebugInfo      `json:"debug,omitempty"`
}

// PoolStatusResponse is the response of GET /api/pool/status.
type PoolStatusResponse struct {
	Total      int `json:"total"`
	Active     int `json:"active"`
	Available  int `json:"available"`
	InCooldown int `json:"inCooldown"`
}

// ReactivateRequest is the body of POST /api/accounts/reactivate.
type ReactivateRequest struct {
	AccountID string `json:"accountId"`
}

// ReactivateResponse is the response of POST /api/accounts/reactivate.
type ReactivateResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// NewErrorResponse creates an error response.
func NewErrorResponse(errKind, message string, debug *DebugInfo) *CommentsResponse {
	return &CommentsResponse{
		Status:  "error",
		Error:   errKind,
		Message: message,
		Debug:   debug,
	}
}

// NewSuccessResponse creates a success response. An empty comment list is a
// valid success, not an error.
func NewSuccessResponse(comments []CommentRecord, message string, debug *DebugInfo) *CommentsResponse {
	return &CommentsResponse{
		Status:     "success",
		Comments:   comments,
		TotalFound: len(comments),
		Message:    message,
		Debug:      debug,
	}
}
