package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vutonyhue/warm-hug-backend-sub000/internal/config"
	"github.com/vutonyhue/warm-hug-backend-sub000/internal/models"
	"github.com/vutonyhue/warm-hug-backend-sub000/internal/ratelimit"
	"github.com/vutonyhue/warm-hug-backend-sub000/internal/repository"
)

type SyncInput struct {
	SyncMode        string          `json:"sync_mode"`
	Data            json.RawMessage `json:"data"`
	Categories      []string        `json:"categories"`
	ClientTimestamp json.RawMessage `json:"client_timestamp"`
	FinancialData   json.RawMessage `json:"financial_data"`
	FinancialDelta  json.RawMessage `json:"financial_delta"`
}

type FinancialSnapshot struct {
	models.FinancialTotals
	SyncCount  int64      `json:"sync_count"`
	LastSyncAt *time.Time `json:"last_sync_at"`
}

func snapshot(f *models.PlatformFinancialData) FinancialSnapshot {
	if f == nil {
		return FinancialSnapshot{}
	}
	return FinancialSnapshot{FinancialTotals: f.Totals(), SyncCount: f.SyncCount, LastSyncAt: f.LastSyncAt}
}

type SyncResult struct {
	Success           bool               `json:"success"`
	SyncMode          SyncMode           `json:"sync_mode"`
	SyncCount         int64              `json:"sync_count"`
	SyncedAt          time.Time          `json:"synced_at"`
	CategoriesUpdated []string           `json:"categories_updated"`
	DataSize          int                `json:"data_size"`
	Financial         *FinancialSnapshot `json:"financial,omitempty"`
	FinancialSkipped  string             `json:"financial_skipped,omitempty"`
}

// Reasons reported when a legacy financial payload is not applied.
const (
	FinancialSkippedLedger   = "ledger_authoritative"
	FinancialSkippedDisabled = "legacy_financial_disabled"
)

// StateSynchronizer merges per-platform documents into durable storage.
type StateSynchronizer struct {
	Repo            repository.Repository
	Verifier        *TokenVerifier
	Limiter         *ratelimit.Limiter
	RateLimit       config.RateLimitConfig
	Limits          DocumentLimits
	LegacyFinancial bool
	MaxSaveAttempts int
	Logger          *zap.Logger
	Now             func() time.Time
}

type financialUpdate struct {
	delta  bool
	values map[string]int64
}

func (s *StateSynchronizer) Sync(ctx context.Context, bearer string, in SyncInput) (*SyncResult, error) {
	id, err := s.Verifier.Resolve(ctx, bearer)
	if err != nil {
		return nil, asIntrospectionError(err)
	}

	// Both limits must pass before anything is parsed or written.
	now := clock(s.Now)
	if r := s.Limiter.Check(ctx, ratelimit.SyncClientKey(id.ClientID), s.RateLimit.SyncClientLimit, s.RateLimit.Window); !r.Allowed {
		return nil, ErrRateLimited(r.RetryAfter(now))
	}
	if r := s.Limiter.Check(ctx, ratelimit.SyncUserKey(id.UserID), s.RateLimit.SyncUserLimit, s.RateLimit.Window); !r.Allowed {
		return nil, ErrRateLimited(r.RetryAfter(now))
	}

	mode, ok := ParseSyncMode(in.SyncMode)
	if !ok {
		return nil, ErrInvalidRequest("sync_mode must be one of merge, replace, append, delta")
	}
	hasData := !isJSONNull(in.Data)
	if !hasData && isJSONNull(in.FinancialData) && isJSONNull(in.FinancialDelta) {
		return nil, ErrInvalidRequest("data, financial_data or financial_delta is required")
	}
	clientTS, err := parseClientTimestamp(in.ClientTimestamp)
	if err != nil {
		return nil, ErrInvalidRequest(err.Error())
	}

	var incoming map[string]any
	if hasData {
		incoming, err = DecodeDocument(in.Data)
		if err != nil {
			return nil, ErrInvalidRequest("data must be a json object")
		}
		if err := s.Limits.Validate("data", in.Data, incoming); err != nil {
			return nil, err
		}
	}
	fin, err := s.parseFinancial(mode, in)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{Success: true, SyncMode: mode, SyncedAt: now, CategoriesUpdated: []string{}}
	if hasData {
		saved, err := s.saveDocument(ctx, id, mode, incoming, clientTS, now)
		if err != nil {
			return nil, err
		}
		result.SyncCount = saved.SyncCount
		result.DataSize = len(saved.Data)
		result.CategoriesUpdated = categoriesUpdated(in.Categories, incoming)
	}
	if fin != nil {
		snap, skipped, err := s.applyFinancial(ctx, id, fin, now)
		if err != nil {
			return nil, err
		}
		result.Financial = snap
		result.FinancialSkipped = skipped
	}
	if s.Logger != nil {
		s.Logger.Info("state synced",
			zap.String("user_id", id.UserID),
			zap.String("client_id", id.ClientID),
			zap.String("sync_mode", string(mode)),
			zap.Int64("sync_count", result.SyncCount),
		)
	}
	return result, nil
}

// saveDocument merges under a compare-and-swap on sync_count so concurrent
// syncs for the same pair are serialized rather than lost.
func (s *StateSynchronizer) saveDocument(ctx context.Context, id *Identity, mode SyncMode, incoming map[string]any, clientTS *time.Time, now time.Time) (*models.PlatformUserData, error) {
	attempts := s.MaxSaveAttempts
	if attempts <= 0 {
		attempts = 3
	}
	for i := 0; i < attempts; i++ {
		current, err := s.Repo.GetPlatformUserData(ctx, id.UserID, id.ClientID)
		if err != nil {
			return nil, ErrServer(err)
		}
		var stored map[string]any
		var expected int64
		if current != nil {
			expected = current.SyncCount
			if len(current.Data) > 0 {
				stored, err = DecodeDocument(current.Data)
				if err != nil {
					return nil, ErrServer(fmt.Errorf("stored platform data is corrupt: %w", err))
				}
			}
		}
		merged := MergeDocument(mode, stored, incoming)
		raw, err := json.Marshal(merged)
		if err != nil {
			return nil, ErrServer(err)
		}
		// Merges accumulate, so the stored result is held to the same limits.
		if err := s.Limits.Validate("data", raw, merged); err != nil {
			return nil, err
		}
		item := &models.PlatformUserData{
			UserID:          id.UserID,
			ClientID:        id.ClientID,
			Data:            raw,
			SyncCount:       expected + 1,
			LastSyncMode:    string(mode),
			ClientTimestamp: clientTS,
			SyncedAt:        now,
		}
		saved, err := s.Repo.SavePlatformUserData(ctx, item, expected)
		if err != nil {
			return nil, ErrServer(err)
		}
		if saved {
			return item, nil
		}
	}
	return nil, ErrServer(errors.New("platform data changed concurrently, retry"))
}

func categoriesUpdated(explicit []string, incoming map[string]any) []string {
	if len(explicit) > 0 {
		out := make([]string, 0, len(explicit))
		seen := map[string]struct{}{}
		for _, c := range explicit {
			c = strings.TrimSpace(c)
			if c == "" {
				continue
			}
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
		return out
	}
	return sortedKeys(incoming)
}

var financialFieldAliases = map[string]string{
	"deposit":        "total_deposit",
	"withdraw":       "total_withdraw",
	"bet":            "total_bet",
	"win":            "total_win",
	"loss":           "total_loss",
	"profit":         "total_profit",
	"total_deposit":  "total_deposit",
	"total_withdraw": "total_withdraw",
	"total_bet":      "total_bet",
	"total_win":      "total_win",
	"total_loss":     "total_loss",
	"total_profit":   "total_profit",
}

func (s *StateSynchronizer) parseFinancial(mode SyncMode, in SyncInput) (*financialUpdate, error) {
	hasData := !isJSONNull(in.FinancialData)
	hasDelta := !isJSONNull(in.FinancialDelta)
	switch {
	case hasData && hasDelta:
		return nil, ErrInvalidRequest("send either financial_data or financial_delta, not both")
	case hasDelta:
		values, err := s.parseFinancialValues("financial_delta", in.FinancialDelta, true)
		if err != nil {
			return nil, err
		}
		return &financialUpdate{delta: true, values: values}, nil
	case hasData:
		delta := mode == SyncModeDelta
		values, err := s.parseFinancialValues("financial_data", in.FinancialData, delta)
		if err != nil {
			return nil, err
		}
		return &financialUpdate{delta: delta, values: values}, nil
	default:
		return nil, nil
	}
}

// parseFinancialValues reads numbers or numeric strings exactly. Only whole
// token units are accepted.
func (s *StateSynchronizer) parseFinancialValues(prefix string, raw json.RawMessage, allowNegative bool) (map[string]int64, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, ErrInvalidRequest(prefix + " must be a json object")
	}
	limit := decimal.NewFromFloat(s.Limits.MaxAbsNumber)
	errs := &fieldErrors{max: s.Limits.MaxErrors}
	out := make(map[string]int64, len(fields))
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		path := prefix + "." + k
		col, ok := financialFieldAliases[strings.ToLower(k)]
		if !ok {
			errs.add(path, "unknown financial field")
			continue
		}
		var d decimal.Decimal
		if err := d.UnmarshalJSON(fields[k]); err != nil {
			errs.add(path, "must be a number")
			continue
		}
		if s.Limits.MaxAbsNumber > 0 && d.Abs().GreaterThan(limit) {
			errs.add(path, fmt.Sprintf("number must be within ±%g", s.Limits.MaxAbsNumber))
			continue
		}
		if !d.Equal(d.Truncate(0)) {
			errs.add(path, "must be an integer")
			continue
		}
		if !allowNegative && d.IsNegative() {
			errs.add(path, "must not be negative")
			continue
		}
		out[col] = d.IntPart()
	}
	if len(errs.items) > 0 {
		return nil, ErrValidationFailed(errs.items)
	}
	return out, nil
}

// applyFinancial writes the legacy payload unless the ledger already owns
// this pair's aggregates.
func (s *StateSynchronizer) applyFinancial(ctx context.Context, id *Identity, fin *financialUpdate, now time.Time) (*FinancialSnapshot, string, error) {
	if !s.LegacyFinancial {
		return nil, FinancialSkippedDisabled, nil
	}
	owned, err := s.Repo.HasFinancialTransactions(ctx, id.UserID, id.ClientID)
	if err != nil {
		return nil, "", ErrServer(err)
	}
	if owned {
		if s.Logger != nil {
			s.Logger.Warn("legacy financial sync ignored, ledger is authoritative",
				zap.String("user_id", id.UserID),
				zap.String("client_id", id.ClientID),
			)
		}
		current, err := s.Repo.GetPlatformFinancialData(ctx, id.UserID, id.ClientID)
		if err != nil {
			return nil, "", ErrServer(err)
		}
		snap := snapshot(current)
		return &snap, FinancialSkippedLedger, nil
	}

	var row *models.PlatformFinancialData
	if fin.delta {
		row, err = s.Repo.ApplyFinancialDelta(ctx, id.UserID, id.ClientID, totalsFromColumns(fin.values), now)
	} else {
		row, err = s.Repo.SetFinancialTotals(ctx, id.UserID, id.ClientID, fin.values, now)
	}
	if err != nil {
		return nil, "", ErrServer(err)
	}
	snap := snapshot(row)
	return &snap, "", nil
}

func totalsFromColumns(values map[string]int64) models.FinancialTotals {
	return models.FinancialTotals{
		TotalDeposit:  values["total_deposit"],
		TotalWithdraw: values["total_withdraw"],
		TotalBet:      values["total_bet"],
		TotalWin:      values["total_win"],
		TotalLoss:     values["total_loss"],
		TotalProfit:   values["total_profit"],
	}
}

func isJSONNull(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}

// parseClientTimestamp accepts RFC 3339 strings or unix milliseconds.
func parseClientTimestamp(raw json.RawMessage) (*time.Time, error) {
	if isJSONNull(raw) {
		return nil, nil
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(str))
		if err != nil {
			return nil, errors.New("client_timestamp must be RFC 3339 or unix milliseconds")
		}
		t = t.UTC()
		return &t, nil
	}
	ms, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return nil, errors.New("client_timestamp must be RFC 3339 or unix milliseconds")
	}
	t := time.UnixMilli(ms).UTC()
	return &t, nil
}
