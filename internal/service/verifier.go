package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vutonyhue/warm-hug-backend-sub000/internal/models"
	"github.com/vutonyhue/warm-hug-backend-sub000/internal/repository"
	"github.com/vutonyhue/warm-hug-backend-sub000/internal/token"
)

// Scopes that unlock an introspection slice.
const (
	ScopeProfile      = "profile"
	ScopeWallet       = "wallet"
	ScopeSoul         = "soul"
	ScopeRewards      = "rewards"
	ScopePlatformData = "platform_data"
	ScopeFinanceWrite = "finance.write"
)

// Identity is the caller resolved from a bearer credential.
type Identity struct {
	UserID          string
	ClientID        string
	FunID           string
	Username        string
	CustodialWallet string
	Scopes          []string
	IssuedAt        time.Time
	ExpiresAt       time.Time
	Kind            token.Kind
	// CredentialID is set on the datastore path only.
	CredentialID uint64
}

func (i *Identity) HasScope(scope string) bool {
	return i != nil && hasScope(i.Scopes, scope)
}

type TokenVerifier struct {
	Repo   repository.Repository
	Signer token.Signer
	Logger *zap.Logger
	Now    func() time.Time
}

// Resolve dispatches on the credential form: signed tokens are trusted on a
// valid signature, opaque ones are looked up in the datastore.
func (v *TokenVerifier) Resolve(ctx context.Context, raw string) (*Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrUnauthorized("missing bearer token")
	}
	cred := v.Signer.Classify(raw)
	switch cred.Kind {
	case token.KindSigned:
		return identityFromClaims(cred.Claims), nil
	case token.KindOpaque:
		return v.resolveOpaque(ctx, cred)
	default:
		return nil, ErrInvalidToken("unrecognized credential")
	}
}

func identityFromClaims(c token.Claims) *Identity {
	id := &Identity{
		UserID:          c.Subject,
		ClientID:        c.ClientID(),
		FunID:           c.FunID,
		Username:        c.Username,
		CustodialWallet: c.CustodialWallet,
		Scopes:          c.Scope,
		Kind:            token.KindSigned,
	}
	if c.IssuedAt != nil {
		id.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		id.ExpiresAt = c.ExpiresAt.Time
	}
	return id
}

func (v *TokenVerifier) resolveOpaque(ctx context.Context, cred token.Credential) (*Identity, error) {
	row, err := v.Repo.GetCredentialByAccessToken(ctx, cred.Raw)
	if err != nil {
		return nil, ErrServer(err)
	}
	if row == nil {
		if cred.Expired {
			return nil, ErrTokenExpired("access token expired")
		}
		return nil, ErrInvalidToken("access token is invalid or revoked")
	}
	now := clock(v.Now)
	if !row.AccessTokenExpiresAt.After(now) {
		return nil, ErrTokenExpired("access token expired")
	}
	profile, err := v.Repo.GetProfile(ctx, row.UserID)
	if err != nil {
		return nil, ErrServer(err)
	}
	if profile == nil {
		return nil, ErrInvalidToken("user no longer exists")
	}
	if err := v.Repo.TouchCredential(ctx, row.ID, now); err != nil && v.Logger != nil {
		v.Logger.Warn("touch credential failed", zap.Uint64("credential_id", row.ID), zap.Error(err))
	}
	return &Identity{
		UserID:          row.UserID,
		ClientID:        row.ClientID,
		FunID:           profile.FunID,
		Username:        profile.Username,
		CustodialWallet: profile.CustodialWallet,
		Scopes:          []string(row.Scope),
		IssuedAt:        row.UpdatedAt,
		ExpiresAt:       row.AccessTokenExpiresAt,
		Kind:            token.KindOpaque,
		CredentialID:    row.ID,
	}, nil
}

// Introspection is the verify response. Slices holds one entry per granted
// enrichment scope; a nil value renders as null.
type Introspection struct {
	Active          bool
	Subject         string
	ClientID        string
	FunID           string
	Username        string
	CustodialWallet string
	Scopes          []string
	IssuedAt        time.Time
	ExpiresAt       time.Time
	TokenKind       string
	Slices          map[string]any
}

func (r Introspection) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"active":           r.Active,
		"sub":              r.Subject,
		"client_id":        r.ClientID,
		"fun_id":           r.FunID,
		"username":         r.Username,
		"custodial_wallet": r.CustodialWallet,
		"scope":            strings.Join(r.Scopes, " "),
		"scopes":           r.Scopes,
		"exp":              r.ExpiresAt.Unix(),
		"token_type":       r.TokenKind,
	}
	if !r.IssuedAt.IsZero() {
		out["iat"] = r.IssuedAt.Unix()
	}
	for k, v := range r.Slices {
		out[k] = v
	}
	return json.Marshal(out)
}

type ProfileSlice struct {
	ID          string    `json:"id"`
	FunID       string    `json:"fun_id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url"`
	Bio         string    `json:"bio"`
	IsVerified  bool      `json:"is_verified"`
	CreatedAt   time.Time `json:"created_at"`
}

type WalletSlice struct {
	WalletAddress   string `json:"wallet_address"`
	CustodialWallet string `json:"custodial_wallet"`
}

type SoulSlice struct {
	TokenID          string     `json:"token_id"`
	SoulElement      string     `json:"soul_element"`
	Level            int        `json:"level"`
	ExperiencePoints int64      `json:"experience_points"`
	MintedAt         *time.Time `json:"minted_at"`
}

// Introspect resolves raw and attaches the slices its scopes unlock.
func (v *TokenVerifier) Introspect(ctx context.Context, raw string) (*Introspection, error) {
	id, err := v.Resolve(ctx, raw)
	if err != nil {
		return nil, asIntrospectionError(err)
	}
	out := &Introspection{
		Active:          true,
		Subject:         id.UserID,
		ClientID:        id.ClientID,
		FunID:           id.FunID,
		Username:        id.Username,
		CustodialWallet: id.CustodialWallet,
		Scopes:          id.Scopes,
		IssuedAt:        id.IssuedAt,
		ExpiresAt:       id.ExpiresAt,
		TokenKind:       id.Kind.String(),
		Slices:          map[string]any{},
	}

	var profile *models.Profile
	if id.HasScope(ScopeProfile) || id.HasScope(ScopeWallet) {
		profile, err = v.Repo.GetProfile(ctx, id.UserID)
		if err != nil {
			return nil, ErrServer(err)
		}
	}
	if id.HasScope(ScopeProfile) {
		out.Slices[ScopeProfile] = profileSlice(profile)
	}
	if id.HasScope(ScopeWallet) {
		out.Slices[ScopeWallet] = walletSlice(profile)
	}
	if id.HasScope(ScopeSoul) {
		soul, err := v.Repo.GetSoulNFT(ctx, id.UserID)
		if err != nil {
			return nil, ErrServer(err)
		}
		out.Slices[ScopeSoul] = soulSlice(soul)
	}
	if id.HasScope(ScopeRewards) {
		rewards, err := v.Repo.SummarizeRewards(ctx, id.UserID)
		if err != nil {
			return nil, ErrServer(err)
		}
		if rewards == nil {
			out.Slices[ScopeRewards] = nil
		} else {
			out.Slices[ScopeRewards] = rewards
		}
	}
	if id.HasScope(ScopePlatformData) {
		// Only the calling client's document is ever exposed.
		data, err := v.Repo.GetPlatformUserData(ctx, id.UserID, id.ClientID)
		if err != nil {
			return nil, ErrServer(err)
		}
		if data == nil || len(data.Data) == 0 {
			out.Slices[ScopePlatformData] = nil
		} else {
			out.Slices[ScopePlatformData] = json.RawMessage(data.Data)
		}
	}
	return out, nil
}

// asIntrospectionError folds every credential failure into invalid_token.
func asIntrospectionError(err error) error {
	var oe *OAuthError
	if errors.As(err, &oe) {
		switch oe.Code {
		case CodeTokenExpired, CodeUnauthorized:
			return ErrInvalidToken(oe.Description)
		}
	}
	return err
}

func profileSlice(p *models.Profile) any {
	if p == nil {
		return nil
	}
	return ProfileSlice{
		ID:          p.ID,
		FunID:       p.FunID,
		Username:    p.Username,
		DisplayName: p.DisplayName,
		AvatarURL:   p.AvatarURL,
		Bio:         p.Bio,
		IsVerified:  p.IsVerified,
		CreatedAt:   p.CreatedAt,
	}
}

func walletSlice(p *models.Profile) any {
	if p == nil || (p.WalletAddress == "" && p.CustodialWallet == "") {
		return nil
	}
	return WalletSlice{WalletAddress: p.WalletAddress, CustodialWallet: p.CustodialWallet}
}

func soulSlice(n *models.SoulNFT) any {
	if n == nil {
		return nil
	}
	return SoulSlice{
		TokenID:          n.TokenID,
		SoulElement:      n.SoulElement,
		Level:            n.Level,
		ExperiencePoints: n.ExperiencePoints,
		MintedAt:         n.MintedAt,
	}
}
