package handler

import (
	"net/http"
	"time"

	"github.com/efreitasn/papertrade/internal/service"
)

// AccountHandler handles registration, login and account endpoints.
type AccountHandler struct {
	accountSvc *service.AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountSvc *service.AccountService) *AccountHandler {
	return &AccountHandler{accountSvc: accountSvc}
}

type registerRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	Confirmation string `json:"confirmation"`
	Email        string `json:"email"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type accountResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	Cash      string `json:"cash"`
	CreatedAt string `json:"created_at"`
}

type loginResponse struct {
	Token     string `json:"token"`
	AccountID int64  `json:"account_id"`
	ExpiresAt string `json:"expires_at"`
}

// Register handles POST /register.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	acct, err := h.accountSvc.Register(r.Context(), service.RegisterRequest{
		Username:     req.Username,
		Password:     req.Password,
		Confirmation: req.Confirmation,
		Email:        req.Email,
	})
	if err != nil {
		mapError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, accountResponse{
		ID:        acct.ID,
		Username:  acct.Username,
		Email:     acct.Email,
		Cash:      money(acct.Cash),
		CreatedAt: acct.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// Login handles POST /login.
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	sess, err := h.accountSvc.Login(r.Context(), service.LoginRequest{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		mapError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, loginResponse{
		Token:     sess.Token,
		AccountID: sess.AccountID,
		ExpiresAt: sess.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Logout handles POST /logout.
func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.accountSvc.Logout(sessionToken(r))
	w.WriteHeader(http.StatusNoContent)
}

// Get handles GET /account.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	acct, err := h.accountSvc.Get(r.Context(), accountID(r))
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, accountResponse{
		ID:        acct.ID,
		Username:  acct.Username,
		Email:     acct.Email,
		Cash:      money(acct.Cash),
		CreatedAt: acct.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// Delete handles DELETE /account. Holdings, transactions and sessions go
// with it.
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.accountSvc.Delete(r.Context(), accountID(r)); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
