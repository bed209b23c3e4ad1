package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/vutonyhue/warm-hug-backend-sub000/internal/config"
	"github.com/vutonyhue/warm-hug-backend-sub000/internal/models"
	"github.com/vutonyhue/warm-hug-backend-sub000/internal/ratelimit"
	"github.com/vutonyhue/warm-hug-backend-sub000/internal/repository"
)

type LedgerAction string

const (
	ActionClaimReward   LedgerAction = "CLAIM_REWARD"
	ActionSendMoney     LedgerAction = "SEND_MONEY"
	ActionReceiveMoney  LedgerAction = "RECEIVE_MONEY"
	ActionDeposit       LedgerAction = "DEPOSIT"
	ActionWithdraw      LedgerAction = "WITHDRAW"
	ActionBet           LedgerAction = "BET"
	ActionWin           LedgerAction = "WIN"
	ActionLoss          LedgerAction = "LOSS"
	ActionAdjustmentAdd LedgerAction = "ADJUSTMENT_ADD"
	ActionAdjustmentSub LedgerAction = "ADJUSTMENT_SUB"
)

// ActionDelta maps an action to the change it makes to the six aggregates.
func ActionDelta(action LedgerAction, amount int64) (models.FinancialTotals, bool) {
	var d models.FinancialTotals
	switch action {
	case ActionDeposit, ActionClaimReward, ActionReceiveMoney:
		d.TotalDeposit = amount
	case ActionWithdraw, ActionSendMoney:
		d.TotalWithdraw = amount
	case ActionBet:
		d.TotalBet = amount
	case ActionWin:
		d.TotalWin = amount
		d.TotalProfit = amount
	case ActionLoss:
		d.TotalLoss = amount
		d.TotalProfit = -amount
	case ActionAdjustmentAdd:
		d.TotalProfit = amount
	case ActionAdjustmentSub:
		d.TotalProfit = -amount
	default:
		return d, false
	}
	return d, true
}

type LedgerInput struct {
	Action        string           `json:"action"`
	Amount        *decimal.Decimal `json:"amount"`
	Currency      string           `json:"currency"`
	TransactionID string           `json:"transaction_id"`
	Metadata      json.RawMessage  `json:"metadata"`
}

type TransactionEcho struct {
	ID            uint64          `json:"id"`
	Action        string          `json:"action"`
	Amount        int64           `json:"amount"`
	Currency      string          `json:"currency"`
	TransactionID string          `json:"transaction_id"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

type LedgerResult struct {
	Success          bool              `json:"success"`
	AlreadyProcessed bool              `json:"already_processed"`
	ID               uint64            `json:"id"`
	Transaction      TransactionEcho   `json:"transaction"`
	Balance          FinancialSnapshot `json:"balance"`
}

// FinancialLedger records immutable, deduplicated transactions and keeps the
// derived totals in step.
type FinancialLedger struct {
	Repo      repository.Repository
	Verifier  *TokenVerifier
	Limiter   *ratelimit.Limiter
	RateLimit config.RateLimitConfig
	Config    config.LedgerConfig
	Limits    DocumentLimits
	Logger    *zap.Logger
	Now       func() time.Time
}

func (s *FinancialLedger) Record(ctx context.Context, bearer string, in LedgerInput) (*LedgerResult, error) {
	id, err := s.Verifier.Resolve(ctx, bearer)
	if err != nil {
		return nil, err
	}
	if !id.HasScope(ScopeFinanceWrite) {
		if s.Config.RequireFinanceScope {
			return nil, ErrInsufficientScope("finance.write scope is required")
		}
		if s.Logger != nil {
			s.Logger.Warn("ledger write without finance.write scope",
				zap.String("user_id", id.UserID),
				zap.String("client_id", id.ClientID),
			)
		}
	}

	now := clock(s.Now)
	if r := s.Limiter.Check(ctx, ratelimit.LedgerClientKey(id.ClientID), s.RateLimit.LedgerClientLimit, s.RateLimit.Window); !r.Allowed {
		return nil, ErrRateLimited(r.RetryAfter(now))
	}

	item, delta, err := s.validate(in, id, now)
	if err != nil {
		return nil, err
	}

	existing, err := s.Repo.GetFinancialTransaction(ctx, item.ClientID, item.TransactionID)
	if err != nil {
		return nil, ErrDatabase(err)
	}
	if existing != nil {
		return s.alreadyProcessed(ctx, id, existing)
	}

	totals, err := s.Repo.RecordFinancialTransaction(ctx, item, delta)
	if errors.Is(err, repository.ErrDuplicateTransaction) {
		// A concurrent request inserted the same key first.
		existing, err := s.Repo.GetFinancialTransaction(ctx, item.ClientID, item.TransactionID)
		if err != nil {
			return nil, ErrDatabase(err)
		}
		if existing == nil {
			return nil, ErrDatabase(errors.New("duplicate transaction vanished"))
		}
		return s.alreadyProcessed(ctx, id, existing)
	}
	if err != nil {
		return nil, ErrDatabase(err)
	}

	s.touch(ctx, id, now)
	if s.Logger != nil {
		s.Logger.Info("ledger entry recorded",
			zap.String("user_id", id.UserID),
			zap.String("client_id", id.ClientID),
			zap.String("action", item.Action),
			zap.Int64("amount", item.Amount),
			zap.String("transaction_id", item.TransactionID),
		)
	}
	return &LedgerResult{
		Success:     true,
		ID:          item.ID,
		Transaction: echo(item),
		Balance:     snapshot(totals),
	}, nil
}

func (s *FinancialLedger) alreadyProcessed(ctx context.Context, id *Identity, existing *models.FinancialTransaction) (*LedgerResult, error) {
	// The key belongs to another user of this client; nothing of theirs is echoed.
	if existing.UserID != id.UserID {
		if s.Logger != nil {
			s.Logger.Warn("ledger transaction_id reused across users",
				zap.String("user_id", id.UserID),
				zap.String("client_id", id.ClientID),
				zap.String("transaction_id", existing.TransactionID),
			)
		}
		return nil, ErrValidationError("invalid ledger entry", []FieldError{{
			Field:   "transaction_id",
			Message: "is already used by another account",
		}})
	}
	totals, err := s.Repo.GetPlatformFinancialData(ctx, id.UserID, id.ClientID)
	if err != nil {
		return nil, ErrDatabase(err)
	}
	s.touch(ctx, id, clock(s.Now))
	return &LedgerResult{
		Success:          true,
		AlreadyProcessed: true,
		ID:               existing.ID,
		Transaction:      echo(existing),
		Balance:          snapshot(totals),
	}, nil
}

func (s *FinancialLedger) touch(ctx context.Context, id *Identity, now time.Time) {
	var err error
	if id.CredentialID != 0 {
		err = s.Repo.TouchCredential(ctx, id.CredentialID, now)
	} else {
		err = s.Repo.TouchCredentialByUserClient(ctx, id.UserID, id.ClientID, now)
	}
	if err != nil && s.Logger != nil {
		s.Logger.Warn("touch credential failed", zap.String("user_id", id.UserID), zap.Error(err))
	}
}

func (s *FinancialLedger) validate(in LedgerInput, id *Identity, now time.Time) (*models.FinancialTransaction, models.FinancialTotals, error) {
	errs := &fieldErrors{max: s.Limits.MaxErrors}

	action := LedgerAction(strings.ToUpper(strings.TrimSpace(in.Action)))
	if action == "" {
		errs.add("action", "is required")
	} else if _, ok := ActionDelta(action, 0); !ok {
		errs.add("action", "is not a supported action")
	}

	var amount int64
	switch {
	case in.Amount == nil:
		errs.add("amount", "is required")
	case !in.Amount.Equal(in.Amount.Truncate(0)):
		errs.add("amount", "must be an integer")
	case in.Amount.IsNegative():
		errs.add("amount", "must not be negative")
	case s.Limits.MaxAbsNumber > 0 && in.Amount.GreaterThan(decimal.NewFromFloat(s.Limits.MaxAbsNumber)):
		errs.add("amount", fmt.Sprintf("must not exceed %g", s.Limits.MaxAbsNumber))
	default:
		amount = in.Amount.IntPart()
	}

	txID := strings.TrimSpace(in.TransactionID)
	if txID == "" {
		errs.add("transaction_id", "is required")
	} else if len(txID) > 255 {
		errs.add("transaction_id", "must be at most 255 characters")
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = s.Config.DefaultCurrency
	}
	if len(currency) > 16 {
		errs.add("currency", "must be at most 16 characters")
	}

	var metadata datatypes.JSON
	if !isJSONNull(in.Metadata) {
		doc, err := DecodeDocument(in.Metadata)
		if err != nil {
			errs.add("metadata", "must be a json object")
		} else if err := s.Limits.Validate("metadata", in.Metadata, doc); err != nil {
			var oe *OAuthError
			if errors.As(err, &oe) && len(oe.Details) > 0 {
				for _, d := range oe.Details {
					errs.add(d.Field, d.Message)
				}
			} else {
				errs.add("metadata", "exceeds size limits")
			}
		} else {
			metadata = datatypes.JSON(in.Metadata)
		}
	}

	if len(errs.items) > 0 {
		return nil, models.FinancialTotals{}, ErrValidationError("invalid ledger entry", errs.items)
	}

	delta, _ := ActionDelta(action, amount)
	return &models.FinancialTransaction{
		UserID:        id.UserID,
		ClientID:      id.ClientID,
		TransactionID: txID,
		Action:        string(action),
		Amount:        amount,
		Currency:      currency,
		Metadata:      metadata,
		CreatedAt:     now,
	}, delta, nil
}

func echo(t *models.FinancialTransaction) TransactionEcho {
	out := TransactionEcho{
		ID:            t.ID,
		Action:        t.Action,
		Amount:        t.Amount,
		Currency:      t.Currency,
		TransactionID: t.TransactionID,
		CreatedAt:     t.CreatedAt,
	}
	if len(t.Metadata) > 0 {
		out.Metadata = json.RawMessage(t.Metadata)
	}
	return out
}
