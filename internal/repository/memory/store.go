// Package memory is a process-local Store used for local development and
// tests. It mirrors the uniqueness and compare-and-swap behavior of the gorm
// Store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vutonyhue/warm-hug-backend-sub000/internal/models"
	"github.com/vutonyhue/warm-hug-backend-sub000/internal/repository"
)

type Store struct {
	mu sync.Mutex

	nextID uint64

	clients      map[string]models.OAuthClient
	codes        map[uint64]models.AuthorizationCode
	profiles     map[string]models.Profile
	souls        map[string]models.SoulNFT
	rewards      []models.Reward
	credentials  map[uint64]models.Credential
	platformData map[string]models.PlatformUserData
	financial    map[string]models.PlatformFinancialData
	transactions map[string]models.FinancialTransaction
	counters     map[string]models.RateLimitCounter

	// FailRateLimit makes IncrementRateLimit return an error.
	FailRateLimit bool
	// BeforeRecord, when set, runs ahead of the uniqueness check in
	// RecordFinancialTransaction. Tests use it to simulate a racing insert.
	BeforeRecord func(item *models.FinancialTransaction)
}

var _ repository.Repository = (*Store)(nil)

func New() *Store {
	return &Store{
		clients:      map[string]models.OAuthClient{},
		codes:        map[uint64]models.AuthorizationCode{},
		profiles:     map[string]models.Profile{},
		souls:        map[string]models.SoulNFT{},
		credentials:  map[uint64]models.Credential{},
		platformData: map[string]models.PlatformUserData{},
		financial:    map[string]models.PlatformFinancialData{},
		transactions: map[string]models.FinancialTransaction{},
		counters:     map[string]models.RateLimitCounter{},
	}
}

func pairKey(a, b string) string {
	return a + "\x00" + b
}

func (s *Store) id() uint64 {
	s.nextID++
	return s.nextID
}

func (s *Store) Ping(context.Context) error { return nil }

// --- seeding ----------------------------------------------------------------

func (s *Store) PutClient(item models.OAuthClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == 0 {
		item.ID = s.id()
	}
	s.clients[item.ClientID] = item
}

func (s *Store) PutAuthorizationCode(item models.AuthorizationCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == 0 {
		item.ID = s.id()
	}
	s.codes[item.ID] = item
}

func (s *Store) PutProfile(item models.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[item.ID] = item
}

func (s *Store) PutSoulNFT(item models.SoulNFT) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.souls[item.UserID] = item
}

func (s *Store) PutReward(item models.Reward) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item.ID = s.id()
	s.rewards = append(s.rewards, item)
}

func (s *Store) PutPlatformUserData(item models.PlatformUserData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.platformData[pairKey(item.UserID, item.ClientID)] = item
}

// --- inspection ---------------------------------------------------------------

func (s *Store) AuthorizationCode(code string) (models.AuthorizationCode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.codes {
		if c.Code == code {
			return c, true
		}
	}
	return models.AuthorizationCode{}, false
}

func (s *Store) CredentialFor(userID, clientID string) (models.Credential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.credentials {
		if c.UserID == userID && c.ClientID == clientID {
			return c, true
		}
	}
	return models.Credential{}, false
}

func (s *Store) TransactionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.transactions)
}

// --- clients and codes --------------------------------------------------------

func (s *Store) GetActiveClient(_ context.Context, clientID string) (*models.OAuthClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[clientID]
	if !ok || !c.IsActive {
		return nil, nil
	}
	return &c, nil
}

func (s *Store) GetUnusedAuthorizationCode(_ context.Context, code, clientID string) (*models.AuthorizationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.codes {
		if c.Code == code && c.ClientID == clientID && !c.IsUsed {
			return &c, nil
		}
	}
	return nil, nil
}

func (s *Store) ClaimAuthorizationCode(_ context.Context, id uint64, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.codes[id]
	if !ok || c.IsUsed {
		return false, nil
	}
	c.IsUsed = true
	c.UsedAt = &at
	s.codes[id] = c
	return true, nil
}

func (s *Store) DeleteExpiredAuthorizationCodes(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, c := range s.codes {
		if c.ExpiresAt.Before(before) {
			delete(s.codes, id)
			n++
		}
	}
	return n, nil
}

// --- profiles ----------------------------------------------------------------

func (s *Store) GetProfile(_ context.Context, userID string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *Store) FindProfileByContact(_ context.Context, email, phone string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	phone = strings.TrimSpace(phone)
	if email == "" && phone == "" {
		return nil, nil
	}
	var matches []models.Profile
	for _, p := range s.profiles {
		if email != "" && p.Email != nil && *p.Email == email {
			matches = append(matches, p)
			continue
		}
		if phone != "" && p.Phone != nil && *p.Phone == phone {
			matches = append(matches, p)
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].CreatedAt.Before(matches[j].CreatedAt) })
	return &matches[0], nil
}

func (s *Store) CreateProfile(_ context.Context, item *models.Profile) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[item.ID]; ok {
		return fmt.Errorf("profile %s already exists", item.ID)
	}
	for _, p := range s.profiles {
		if item.Email != nil && p.Email != nil && *item.Email == *p.Email {
			return fmt.Errorf("duplicate key value violates unique constraint: email")
		}
		if item.Phone != nil && p.Phone != nil && *item.Phone == *p.Phone {
			return fmt.Errorf("duplicate key value violates unique constraint: phone")
		}
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	item.UpdatedAt = item.CreatedAt
	s.profiles[item.ID] = *item
	return nil
}

func (s *Store) UpdateLastLogin(_ context.Context, userID, platform string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil
	}
	p.LastLoginPlatform = platform
	p.LastLoginAt = &at
	s.profiles[userID] = p
	return nil
}

func (s *Store) SetCustodialWallet(_ context.Context, userID, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil
	}
	p.CustodialWallet = address
	s.profiles[userID] = p
	return nil
}

func (s *Store) GetSoulNFT(_ context.Context, userID string) (*models.SoulNFT, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.souls[userID]
	if !ok {
		return nil, nil
	}
	return &n, nil
}

func (s *Store) SummarizeRewards(_ context.Context, userID string) (*repository.RewardSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out repository.RewardSummary
	found := false
	for _, r := range s.rewards {
		if r.UserID != userID {
			continue
		}
		switch r.Status {
		case models.RewardStatusPending:
			out.PendingCount++
			out.PendingAmount += r.Amount
			found = true
		case models.RewardStatusApproved:
			out.ApprovedCount++
			out.ApprovedAmount += r.Amount
			found = true
		}
	}
	if !found {
		return nil, nil
	}
	return &out, nil
}

// --- credentials -------------------------------------------------------------

func (s *Store) UpsertCredential(_ context.Context, item *models.Credential) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for id, c := range s.credentials {
		if c.UserID == item.UserID && c.ClientID == item.ClientID {
			item.ID = id
			item.CreatedAt = c.CreatedAt
			item.UpdatedAt = now
			s.credentials[id] = *item
			return nil
		}
	}
	item.ID = s.id()
	item.CreatedAt = now
	item.UpdatedAt = now
	s.credentials[item.ID] = *item
	return nil
}

func (s *Store) GetCredentialByRefreshToken(_ context.Context, refreshToken, clientID string) (*models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.credentials {
		if c.RefreshToken == refreshToken && c.ClientID == clientID && !c.IsRevoked {
			return &c, nil
		}
	}
	return nil, nil
}

func (s *Store) GetCredentialByAccessToken(_ context.Context, accessToken string) (*models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.credentials {
		if c.AccessToken == accessToken && !c.IsRevoked {
			return &c, nil
		}
	}
	return nil, nil
}

func (s *Store) RotateCredential(_ context.Context, id uint64, oldRefreshToken string, next *models.Credential) (bool, error) {
	if next == nil {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.credentials[id]
	if !ok || c.IsRevoked || c.RefreshToken != oldRefreshToken {
		return false, nil
	}
	c.AccessToken = next.AccessToken
	c.RefreshToken = next.RefreshToken
	c.Scope = next.Scope
	c.AccessTokenExpiresAt = next.AccessTokenExpiresAt
	c.RefreshTokenExpiresAt = next.RefreshTokenExpiresAt
	c.LastUsedAt = next.LastUsedAt
	c.UpdatedAt = time.Now().UTC()
	s.credentials[id] = c
	return true, nil
}

func (s *Store) RevokeCredential(_ context.Context, id uint64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.credentials[id]
	if !ok {
		return nil
	}
	c.IsRevoked = true
	c.RevokedAt = &at
	s.credentials[id] = c
	return nil
}

func (s *Store) TouchCredential(_ context.Context, id uint64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.credentials[id]
	if !ok {
		return nil
	}
	c.LastUsedAt = &at
	s.credentials[id] = c
	return nil
}

func (s *Store) TouchCredentialByUserClient(_ context.Context, userID, clientID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.credentials {
		if c.UserID == userID && c.ClientID == clientID && !c.IsRevoked {
			c.LastUsedAt = &at
			s.credentials[id] = c
		}
	}
	return nil
}

func (s *Store) DeleteDeadCredentials(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, c := range s.credentials {
		revokedLongAgo := c.IsRevoked && c.RevokedAt != nil && c.RevokedAt.Before(before)
		if revokedLongAgo || c.RefreshTokenExpiresAt.Before(before) {
			delete(s.credentials, id)
			n++
		}
	}
	return n, nil
}

// --- platform data -----------------------------------------------------------

func (s *Store) GetPlatformUserData(_ context.Context, userID, clientID string) (*models.PlatformUserData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.platformData[pairKey(userID, clientID)]
	if !ok {
		return nil, nil
	}
	d.Data = append([]byte(nil), d.Data...)
	return &d, nil
}

func (s *Store) SavePlatformUserData(_ context.Context, item *models.PlatformUserData, expectedSyncCount int64) (bool, error) {
	if item == nil {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey(item.UserID, item.ClientID)
	current, exists := s.platformData[key]
	if expectedSyncCount == 0 {
		if exists {
			return false, nil
		}
		item.ID = s.id()
		item.CreatedAt = item.SyncedAt
	} else {
		if !exists || current.SyncCount != expectedSyncCount {
			return false, nil
		}
		item.ID = current.ID
		item.CreatedAt = current.CreatedAt
	}
	item.UpdatedAt = item.SyncedAt
	stored := *item
	stored.Data = append([]byte(nil), item.Data...)
	s.platformData[key] = stored
	return true, nil
}

// --- financial ---------------------------------------------------------------

func clampAdd(cur, delta int64) int64 {
	v := cur + delta
	if v < 0 {
		return 0
	}
	return v
}

func (s *Store) applyDeltaLocked(userID, clientID string, d models.FinancialTotals, at time.Time) models.PlatformFinancialData {
	key := pairKey(userID, clientID)
	f, ok := s.financial[key]
	if !ok {
		f = models.PlatformFinancialData{ID: s.id(), UserID: userID, ClientID: clientID, CreatedAt: at}
	}
	f.TotalDeposit = clampAdd(f.TotalDeposit, d.TotalDeposit)
	f.TotalWithdraw = clampAdd(f.TotalWithdraw, d.TotalWithdraw)
	f.TotalBet = clampAdd(f.TotalBet, d.TotalBet)
	f.TotalWin = clampAdd(f.TotalWin, d.TotalWin)
	f.TotalLoss = clampAdd(f.TotalLoss, d.TotalLoss)
	f.TotalProfit = clampAdd(f.TotalProfit, d.TotalProfit)
	f.SyncCount++
	f.LastSyncAt = &at
	f.UpdatedAt = at
	s.financial[key] = f
	return f
}

func (s *Store) GetPlatformFinancialData(_ context.Context, userID, clientID string) (*models.PlatformFinancialData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.financial[pairKey(userID, clientID)]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

func (s *Store) ApplyFinancialDelta(_ context.Context, userID, clientID string, delta models.FinancialTotals, at time.Time) (*models.PlatformFinancialData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.applyDeltaLocked(userID, clientID, delta, at)
	return &f, nil
}

func (s *Store) SetFinancialTotals(_ context.Context, userID, clientID string, values map[string]int64, at time.Time) (*models.PlatformFinancialData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey(userID, clientID)
	f, ok := s.financial[key]
	if !ok {
		f = models.PlatformFinancialData{ID: s.id(), UserID: userID, ClientID: clientID, CreatedAt: at}
	}
	for col, v := range values {
		if v < 0 {
			v = 0
		}
		switch col {
		case "total_deposit":
			f.TotalDeposit = v
		case "total_withdraw":
			f.TotalWithdraw = v
		case "total_bet":
			f.TotalBet = v
		case "total_win":
			f.TotalWin = v
		case "total_loss":
			f.TotalLoss = v
		case "total_profit":
			f.TotalProfit = v
		default:
			return nil, fmt.Errorf("unknown financial column %q", col)
		}
	}
	f.SyncCount++
	f.LastSyncAt = &at
	f.UpdatedAt = at
	s.financial[key] = f
	return &f, nil
}

func (s *Store) GetFinancialTransaction(_ context.Context, clientID, transactionID string) (*models.FinancialTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[pairKey(clientID, transactionID)]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *Store) HasFinancialTransactions(_ context.Context, userID, clientID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.transactions {
		if t.UserID == userID && t.ClientID == clientID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) RecordFinancialTransaction(_ context.Context, item *models.FinancialTransaction, delta models.FinancialTotals) (*models.PlatformFinancialData, error) {
	if item == nil {
		return nil, nil
	}
	if s.BeforeRecord != nil {
		s.BeforeRecord(item)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey(item.ClientID, item.TransactionID)
	if _, ok := s.transactions[key]; ok {
		return nil, repository.ErrDuplicateTransaction
	}
	item.ID = s.id()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	s.transactions[key] = *item
	f := s.applyDeltaLocked(item.UserID, item.ClientID, delta, item.CreatedAt)
	return &f, nil
}

// InsertTransactionRaw stores a row without touching aggregates.
func (s *Store) InsertTransactionRaw(item models.FinancialTransaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item.ID = s.id()
	s.transactions[pairKey(item.ClientID, item.TransactionID)] = item
}

// --- rate limits -------------------------------------------------------------

func (s *Store) IncrementRateLimit(_ context.Context, key string, window time.Duration, now time.Time) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailRateLimit {
		return 0, time.Time{}, fmt.Errorf("rate limit store unavailable")
	}
	c, ok := s.counters[key]
	if !ok || !c.WindowResetTime.After(now) {
		c = models.RateLimitCounter{Key: key, Count: 0, WindowResetTime: now.Add(window)}
	}
	c.Count++
	c.UpdatedAt = now
	s.counters[key] = c
	return c.Count, c.WindowResetTime, nil
}

func (s *Store) DeleteExpiredRateLimits(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, c := range s.counters {
		if c.WindowResetTime.Before(before) {
			delete(s.counters, k)
			n++
		}
	}
	return n, nil
}
