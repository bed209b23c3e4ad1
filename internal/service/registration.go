package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vutonyhue/warm-hug-backend-sub000/internal/config"
	"github.com/vutonyhue/warm-hug-backend-sub000/internal/models"
	"github.com/vutonyhue/warm-hug-backend-sub000/internal/ratelimit"
	"github.com/vutonyhue/warm-hug-backend-sub000/internal/repository"
)

// WalletProvisioner creates a custodial wallet for a new identity.
type WalletProvisioner interface {
	Provision(ctx context.Context, userID, funID string) (string, error)
}

type RegisterInput struct {
	Email        string          `json:"email" validate:"omitempty,email,max=255"`
	Phone        string          `json:"phone" validate:"omitempty,min=6,max=32"`
	ClientID     string          `json:"client_id" validate:"required,max=120"`
	ClientSecret string          `json:"client_secret"`
	Username     string          `json:"username" validate:"omitempty,min=3,max=64"`
	DisplayName  string          `json:"display_name" validate:"omitempty,max=255"`
	AvatarURL    string          `json:"avatar_url" validate:"omitempty,url,max=2048"`
	Bio          string          `json:"bio" validate:"omitempty,max=1000"`
	Scope        string          `json:"scope" validate:"omitempty,max=512"`
	PlatformData json.RawMessage `json:"platform_data"`
}

type RegisterResult struct {
	TokenResponse
	IsNewUser bool `json:"is_new_user"`
}

// RegistrationBridge creates identities for first-time SSO users and logs in
// existing ones, issuing a credential pair either way.
type RegistrationBridge struct {
	Repo         repository.Repository
	Minter       *CredentialMinter
	Limiter      *ratelimit.Limiter
	RateLimit    config.RateLimitConfig
	Limits       DocumentLimits
	DefaultScope string
	Wallet       WalletProvisioner
	// WalletTimeout bounds the provisioning call.
	WalletTimeout time.Duration
	Logger        *zap.Logger
	Now           func() time.Time
}

var registerValidate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validationDetails(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "body", Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		var msg string
		switch fe.Tag() {
		case "required":
			msg = "is required"
		case "email":
			msg = "must be a valid email address"
		case "url":
			msg = "must be a valid url"
		case "min":
			msg = fmt.Sprintf("must be at least %s characters long", fe.Param())
		case "max":
			msg = fmt.Sprintf("must be at most %s characters long", fe.Param())
		default:
			msg = fmt.Sprintf("failed on %s", fe.Tag())
		}
		out = append(out, FieldError{Field: fe.Field(), Message: msg})
	}
	return out
}

func (s *RegistrationBridge) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	in.ClientID = strings.TrimSpace(in.ClientID)
	if in.ClientID == "" {
		return nil, ErrInvalidRequest("client_id is required")
	}

	now := clock(s.Now)
	window := s.RateLimit.RegisterWindow
	if window <= 0 {
		window = time.Minute
	}
	if r := s.Limiter.Check(ctx, ratelimit.RegisterKey(in.ClientID), s.RateLimit.RegisterLimit, window); !r.Allowed {
		return nil, ErrRateLimited(r.RetryAfter(now))
	}

	if err := registerValidate.Struct(in); err != nil {
		e := ErrInvalidRequest("registration input is invalid")
		e.Details = validationDetails(err)
		return nil, e
	}
	if in.Email == "" && in.Phone == "" {
		return nil, ErrInvalidRequest("email or phone is required")
	}

	var seed map[string]any
	if !isJSONNull(in.PlatformData) {
		doc, err := DecodeDocument(in.PlatformData)
		if err != nil {
			return nil, ErrInvalidRequest("platform_data must be a json object")
		}
		if err := s.Limits.Validate("platform_data", in.PlatformData, doc); err != nil {
			var oe *OAuthError
			if errors.As(err, &oe) {
				e := ErrInvalidRequest(oe.Description)
				e.Details = oe.Details
				return nil, e
			}
			return nil, err
		}
		seed = doc
	}

	client, err := authenticateClient(ctx, s.Repo, in.ClientID, in.ClientSecret)
	if err != nil {
		return nil, err
	}

	scope := ParseScope(in.Scope)
	if len(scope) == 0 {
		scope = ParseScope(s.DefaultScope)
	}

	profile, err := s.Repo.FindProfileByContact(ctx, in.Email, in.Phone)
	if err != nil {
		return nil, ErrServer(err)
	}
	isNew := false
	if profile == nil {
		profile, isNew, err = s.createIdentity(ctx, in, client, seed, now)
		if err != nil {
			return nil, err
		}
	}

	resp, err := s.Minter.Issue(ctx, profile, client, scope)
	if err != nil {
		return nil, ErrServer(err)
	}
	if s.Logger != nil {
		s.Logger.Info("sso registration",
			zap.String("client_id", client.ClientID),
			zap.String("user_id", profile.ID),
			zap.Bool("is_new_user", isNew),
		)
	}
	return &RegisterResult{TokenResponse: *resp, IsNewUser: isNew}, nil
}

func (s *RegistrationBridge) createIdentity(ctx context.Context, in RegisterInput, client *models.OAuthClient, seed map[string]any, now time.Time) (*models.Profile, bool, error) {
	id := uuid.NewString()
	profile := &models.Profile{
		ID:             id,
		FunID:          newFunID(),
		Username:       pickUsername(in),
		DisplayName:    in.DisplayName,
		AvatarURL:      in.AvatarURL,
		Bio:            in.Bio,
		IsVerified:     true,
		RegisteredFrom: platformName(client),
		CreatedAt:      now,
	}
	if in.Email != "" {
		email := in.Email
		profile.Email = &email
	}
	if in.Phone != "" {
		phone := in.Phone
		profile.Phone = &phone
	}
	if err := s.Repo.CreateProfile(ctx, profile); err != nil {
		// Another registration for the same contact may have won the race.
		existing, lookupErr := s.Repo.FindProfileByContact(ctx, in.Email, in.Phone)
		if lookupErr == nil && existing != nil {
			return existing, false, nil
		}
		return nil, false, ErrServer(err)
	}

	if seed != nil {
		s.seedPlatformData(ctx, profile.ID, client.ClientID, seed, now)
	}
	s.provisionWallet(ctx, profile)
	return profile, true, nil
}

func (s *RegistrationBridge) seedPlatformData(ctx context.Context, userID, clientID string, seed map[string]any, now time.Time) {
	raw, err := json.Marshal(seed)
	if err == nil {
		_, err = s.Repo.SavePlatformUserData(ctx, &models.PlatformUserData{
			UserID:       userID,
			ClientID:     clientID,
			Data:         raw,
			SyncCount:    1,
			LastSyncMode: "initial",
			SyncedAt:     now,
		}, 0)
	}
	if err != nil && s.Logger != nil {
		s.Logger.Warn("seed platform data failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// provisionWallet is best effort. Failures are logged and registration
// continues without a custodial wallet.
func (s *RegistrationBridge) provisionWallet(ctx context.Context, profile *models.Profile) {
	if s.Wallet == nil {
		return
	}
	timeout := s.WalletTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	addr, err := s.Wallet.Provision(wctx, profile.ID, profile.FunID)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("wallet provisioning failed", zap.String("user_id", profile.ID), zap.Error(err))
		}
		return
	}
	if err := s.Repo.SetCustodialWallet(ctx, profile.ID, addr); err != nil {
		if s.Logger != nil {
			s.Logger.Warn("store custodial wallet failed", zap.String("user_id", profile.ID), zap.Error(err))
		}
		return
	}
	profile.CustodialWallet = addr
}

func newFunID() string {
	return "FUN" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

func pickUsername(in RegisterInput) string {
	if in.Username != "" {
		return in.Username
	}
	base := "user"
	if in.Email != "" {
		base = strings.SplitN(in.Email, "@", 2)[0]
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return base + "_" + suffix
}
