package auth

import (
	"encoding/json"
	"fmt"
	"strings"
)

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError is a credential error returned by Identity Toolkit. Error()
// is human-readable and safe to surface to the user verbatim.
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// friendlyMessages maps Identity Toolkit error codes to user-facing
// text. Codes may carry a trailing detail, e.g.
// "WEAK_PASSWORD : Password should be at least 6 characters".
var friendlyMessages = map[string]string{
	"EMAIL_EXISTS":                "An account with this email already exists.",
	"EMAIL_NOT_FOUND":             "No account found for this email.",
	"INVALID_PASSWORD":            "Wrong password.",
	"INVALID_LOGIN_CREDENTIALS":   "Invalid email or password.",
	"INVALID_EMAIL":               "The email address is badly formatted.",
	"WEAK_PASSWORD":               "Password must be at least 6 characters long.",
	"USER_DISABLED":               "This account has been disabled.",
	"TOO_MANY_ATTEMPTS_TRY_LATER": "Too many attempts. Please try again later.",
}

func parseAPIError(body []byte) error {
	var resp apiErrorResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Error.Message == "" {
		return fmt.Errorf("authentication failed: %s", strings.TrimSpace(string(body)))
	}

	code := resp.Error.Message
	if idx := strings.IndexAny(code, " :"); idx > 0 {
		code = code[:idx]
	}

	msg, ok := friendlyMessages[code]
	if !ok {
		msg = "Authentication failed: " + resp.Error.Message
	}
	return &APIError{Code: code, Message: msg}
}
