package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vutonyhue/warm-hug-backend-sub000/internal/service"
)

// SSOHandler serves the credential and synchronization endpoints under
// /api/sso.
type SSOHandler struct {
	Issuer       *service.TokenIssuer
	Refresher    *service.TokenRefresher
	Registration *service.RegistrationBridge
	Verifier     *service.TokenVerifier
	Sync         *service.StateSynchronizer
	Ledger       *service.FinancialLedger
	Revoker      *service.TokenRevoker
	// MaxBodyBytes caps every request body before it is decoded.
	MaxBodyBytes int64
	Logger       *zap.Logger
}

func (h *SSOHandler) Register(r *gin.Engine) {
	group := r.Group("/api/sso")
	group.Use(h.limitBody)
	group.POST("/token", h.token)
	group.POST("/refresh", h.refresh)
	group.POST("/register", h.register)
	group.GET("/verify", h.verify)
	group.POST("/verify", h.verify)
	group.POST("/sync", h.sync)
	group.POST("/ledger", h.ledger)
	group.POST("/revoke", h.revoke)
}

func (h *SSOHandler) limitBody(c *gin.Context) {
	if h.MaxBodyBytes > 0 && c.Request.Body != nil {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxBodyBytes)
	}
	c.Next()
}

// bindError maps a body decoding failure to invalid_request, or to
// payload_too_large when the body cap was hit.
func bindError(err error) *service.OAuthError {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return service.ErrPayloadTooLarge("request body is too large")
	}
	return service.ErrInvalidRequest("request body could not be parsed")
}

func (h *SSOHandler) fail(c *gin.Context, err error) {
	writeError(c, h.Logger, err, service.ErrServer)
}

// @Summary Exchange an authorization code
// @Description grant_type=authorization_code exchanges a one-time code (PKCE aware). grant_type=refresh_token is delegated to the refresh flow.
// @Tags sso
// @Accept x-www-form-urlencoded,json
// @Produce json
// @Param request body service.ExchangeInput true "token request"
// @Success 200 {object} service.TokenResponse
// @Failure 400 {object} errorResponse
// @Failure 401 {object} errorResponse
// @Router /api/sso/token [post]
func (h *SSOHandler) token(c *gin.Context) {
	var in service.ExchangeInput
	if err := c.ShouldBind(&in); err != nil {
		h.fail(c, bindError(err))
		return
	}
	noStore(c)
	if in.GrantType == service.GrantRefreshToken {
		resp, err := h.Refresher.Refresh(c.Request.Context(), service.RefreshInput{
			GrantType:    in.GrantType,
			RefreshToken: in.RefreshToken,
			ClientID:     in.ClientID,
			ClientSecret: in.ClientSecret,
		})
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
		return
	}
	resp, err := h.Issuer.Exchange(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Rotate a credential pair
// @Tags sso
// @Accept x-www-form-urlencoded,json
// @Produce json
// @Param request body service.RefreshInput true "refresh request"
// @Success 200 {object} service.TokenResponse
// @Failure 400 {object} errorResponse
// @Failure 401 {object} errorResponse
// @Router /api/sso/refresh [post]
func (h *SSOHandler) refresh(c *gin.Context) {
	var in service.RefreshInput
	if err := c.ShouldBind(&in); err != nil {
		h.fail(c, bindError(err))
		return
	}
	noStore(c)
	resp, err := h.Refresher.Refresh(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Register or log in an SSO user
// @Tags sso
// @Accept json
// @Produce json
// @Param request body service.RegisterInput true "registration request"
// @Success 200 {object} service.RegisterResult "existing user"
// @Success 201 {object} service.RegisterResult "new user"
// @Failure 400 {object} errorResponse
// @Failure 401 {object} errorResponse
// @Failure 429 {object} errorResponse
// @Router /api/sso/register [post]
func (h *SSOHandler) register(c *gin.Context) {
	var in service.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.fail(c, bindError(err))
		return
	}
	noStore(c)
	res, err := h.Registration.Register(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	status := http.StatusOK
	if res.IsNewUser {
		status = http.StatusCreated
	}
	c.JSON(status, res)
}

// @Summary Introspect a bearer credential
// @Tags sso
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Failure 401 {object} errorResponse
// @Router /api/sso/verify [get]
// @Router /api/sso/verify [post]
func (h *SSOHandler) verify(c *gin.Context) {
	out, err := h.Verifier.Introspect(c.Request.Context(), bearerToken(c.GetHeader("Authorization")))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// @Summary Synchronize per-platform state
// @Tags sso
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.SyncInput true "sync request"
// @Success 200 {object} service.SyncResult
// @Failure 401 {object} errorResponse
// @Failure 413 {object} errorResponse
// @Failure 422 {object} errorResponse
// @Failure 429 {object} errorResponse
// @Router /api/sso/sync [post]
func (h *SSOHandler) sync(c *gin.Context) {
	bearer := bearerToken(c.GetHeader("Authorization"))
	var in service.SyncInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.fail(c, bindError(err))
		return
	}
	res, err := h.Sync.Sync(c.Request.Context(), bearer, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary Record a ledger transaction
// @Description Idempotent on (client_id, transaction_id). A replay returns already_processed=true.
// @Tags sso
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.LedgerInput true "ledger entry"
// @Success 200 {object} service.LedgerResult
// @Failure 400 {object} errorResponse
// @Failure 401 {object} errorResponse
// @Failure 403 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /api/sso/ledger [post]
func (h *SSOHandler) ledger(c *gin.Context) {
	bearer := bearerToken(c.GetHeader("Authorization"))
	var in service.LedgerInput
	if err := c.ShouldBindJSON(&in); err != nil {
		oe := bindError(err)
		if oe.Code == service.CodeInvalidRequest {
			oe = service.ErrValidationError("request body could not be parsed", nil)
		}
		writeError(c, h.Logger, oe, service.ErrDatabase)
		return
	}
	res, err := h.Ledger.Record(c.Request.Context(), bearer, in)
	if err != nil {
		writeError(c, h.Logger, err, service.ErrDatabase)
		return
	}
	c.JSON(http.StatusOK, res)
}

type revokeResponse struct {
	Revoked bool `json:"revoked"`
}

// @Summary Revoke a credential pair
// @Tags sso
// @Accept x-www-form-urlencoded,json
// @Produce json
// @Param request body service.RevokeInput true "revocation request"
// @Success 200 {object} revokeResponse
// @Failure 400 {object} errorResponse
// @Failure 401 {object} errorResponse
// @Router /api/sso/revoke [post]
func (h *SSOHandler) revoke(c *gin.Context) {
	var in service.RevokeInput
	if err := c.ShouldBind(&in); err != nil {
		h.fail(c, bindError(err))
		return
	}
	revoked, err := h.Revoker.Revoke(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, revokeResponse{Revoked: revoked})
}
