// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import "github.com/phishdrill/phishdrill/internal/model"

// RegisterRequest is the body of POST /register-user.
type RegisterRequest struct {
	Email               string `json:"email"`
	FirstName           string `json:"firstName"`
	LastName            string `json:"lastName"`
	Password            string `json:"password"`
	EnableNotifications *bool  `json:"enableNotifications,omitempty"`
}

// RegisterResponse is returned for a newly registered account.
type RegisterResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// ToRegisterResponse converts an Account to RegisterResponse.
func ToRegisterResponse(a *model.Account) *RegisterResponse {
	return &RegisterResponse{
		ID:        a.ID,
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
	}
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the signed access token.
type LoginResponse struct {
	AccessToken string `json:"accessToken"`
}

// AccountListResponse is a page of accounts for administrators.
type AccountListResponse struct {
	Data       []*model.AccountSummary `json:"data"`
	Pagination OffsetPagination        `json:"pagination"`
}

// OffsetPagination describes a limit/offset page.
type OffsetPagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// SetTierRequest is the body of PUT /api/v1/admin/accounts/{id}/tier.
type SetTierRequest struct {
	Tier model.SubscriptionTier `json:"subscription_tier"`
}

// GrantRoleRequest is the body of POST /api/v1/admin/accounts/{id}/roles.
type GrantRoleRequest struct {
	Role string `json:"role"`
}
