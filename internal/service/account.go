package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/efreitasn/papertrade/internal/store"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// maxPasswordBytes is the longest password bcrypt accepts.
const maxPasswordBytes = 72

// RegisterRequest represents the input for account registration.
type RegisterRequest struct {
	Username     string `validate:"required,max=64"`
	Password     string `validate:"required,max=72"`
	Confirmation string `validate:"eqfield=Password"`
	Email        string `validate:"omitempty,email"`
}

// LoginRequest represents the input for login.
type LoginRequest struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

// fieldMessages maps "Field.tag" validation failures to user-facing text.
var fieldMessages = map[string]string{
	"Username.required":    "must provide username",
	"Username.max":         "username must be at most 64 characters",
	"Password.required":    "must provide password",
	"Password.max":         "password must be at most 72 bytes",
	"Confirmation.eqfield": "passwords do not match",
	"Email.email":          "invalid email address",
}

// AccountService handles registration, login and account deletion.
type AccountService struct {
	ledger       store.Ledger
	sessions     *SessionStore
	validate     *validator.Validate
	startingCash decimal.Decimal
	cost         int
	logger       *slog.Logger
}

// NewAccountService creates a new AccountService. New accounts are credited
// startingCash.
func NewAccountService(ledger store.Ledger, sessions *SessionStore, startingCash decimal.Decimal, logger *slog.Logger) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{
		ledger:       ledger,
		sessions:     sessions,
		validate:     validator.New(),
		startingCash: domain.RoundCents(startingCash),
		cost:         bcrypt.DefaultCost,
		logger:       logger,
	}
}

func (s *AccountService) validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	if msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]; ok {
		return &domain.ValidationError{Message: msg}
	}
	return &domain.ValidationError{Message: fmt.Sprintf("invalid %s", strings.ToLower(fe.Field()))}
}

// Register creates an account with the configured starting cash.
func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (*domain.Account, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validate.Struct(req); err != nil {
		return nil, s.validationError(err)
	}
	// validator counts runes; bcrypt's limit is in bytes.
	if len(req.Password) > maxPasswordBytes {
		return nil, &domain.ValidationError{Message: fieldMessages["Password.max"]}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, &domain.ValidationError{Message: fieldMessages["Password.max"]}
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	acct := &domain.Account{
		Username:       req.Username,
		CredentialHash: string(hash),
		Email:          req.Email,
		Cash:           s.startingCash,
	}
	if err := s.ledger.CreateAccount(ctx, acct); err != nil {
		return nil, err
	}
	s.logger.Info("account registered", "account_id", acct.ID, "username", acct.Username)
	return acct, nil
}

// Session is an open login.
type Session struct {
	Token     string
	AccountID int64
	ExpiresAt time.Time
}

// Login verifies the credentials and opens a session.
func (s *AccountService) Login(ctx context.Context, req LoginRequest) (Session, error) {
	req.Username = strings.TrimSpace(req.Username)
	if err := s.validate.Struct(req); err != nil {
		return Session{}, s.validationError(err)
	}

	acct, err := s.ledger.GetAccountByUsername(ctx, req.Username)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return Session{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.CredentialHash), []byte(req.Password)); err != nil {
		return Session{}, domain.ErrInvalidCredentials
	}

	token, expiresAt := s.sessions.Create(acct.ID)
	return Session{Token: token, AccountID: acct.ID, ExpiresAt: expiresAt}, nil
}

// SetHashCost overrides the bcrypt cost used for new passwords.
func (s *AccountService) SetHashCost(cost int) {
	s.cost = cost
}

// Logout ends the session behind token.
func (s *AccountService) Logout(token string) {
	s.sessions.End(token)
}

// Get returns the account without its credential hash.
func (s *AccountService) Get(ctx context.Context, accountID int64) (*domain.Account, error) {
	acct, err := s.ledger.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	acct.CredentialHash = ""
	return acct, nil
}

// Delete removes the account with all its holdings and transactions and
// ends its sessions.
func (s *AccountService) Delete(ctx context.Context, accountID int64) error {
	if err := s.ledger.DeleteAccount(ctx, accountID); err != nil {
		return err
	}
	s.sessions.EndAll(accountID)
	s.logger.Info("account deleted", "account_id", accountID)
	return nil
}
