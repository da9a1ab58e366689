package models

// SubmitLoginRequest is the visitor submission body.
// The public form posts "username" in some builds and "account" in others;
// both are accepted and Account wins when both are present.
type SubmitLoginRequest struct {
	Platform      string  `json:"platform"`
	Account       string  `json:"account"`
	Username      string  `json:"username"`
	Password      string  `json:"password"`
	Note          *string `json:"note,omitempty"`
	ChromeProfile *string `json:"chromeProfile,omitempty"`
	LinkName      *string `json:"linkName,omitempty"`
}

// AccountName resolves the account/username alias pair
func (r *SubmitLoginRequest) AccountName() string {
	if r.Account != "" {
		return r.Account
	}
	return r.Username
}

// SubmitLoginResponse is the canonical submission response shape
type SubmitLoginResponse struct {
	Success          bool   `json:"success"`
	RequiresApproval bool   `json:"requires_approval"`
	LoginID          string `json:"loginId"`
}

// AdminActionRequest is the body for approve/reject/request-otp commands
type AdminActionRequest struct {
	ID     string `json:"id"`
	Reason string `json:"reason,omitempty"`
}

// SupplyOTPRequest is the body for the OTP branch: the admin stores the
// second-factor code and the request is approved in the same command.
type SupplyOTPRequest struct {
	ID      string `json:"id"`
	OTPCode string `json:"otpCode"`
}

// ActionResponse acknowledges a state-changing admin command
type ActionResponse struct {
	Success bool        `json:"success"`
	Status  LoginStatus `json:"status,omitempty"`
}
