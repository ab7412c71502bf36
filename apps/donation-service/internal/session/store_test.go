package session

import (
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/domain"
)

// memRedis is an in-memory stand-in for the Redis commands the store uses
type memRedis struct {
	values map[string]string
	ttls   map[string]time.Duration
	delErr error
}

func newMemRedis() *memRedis {
	return &memRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memRedis) Get(ctx context.Context, key string) *goredis.StringCmd {
	v, ok := m.values[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(v, nil)
}

func (m *memRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		m.values[key] = string(v)
	case string:
		m.values[key] = v
	}
	m.ttls[key] = expiration
	return goredis.NewStatusResult("OK", nil)
}

func (m *memRedis) Del(ctx context.Context, keys ...string) *goredis.IntCmd {
	if m.delErr != nil {
		return goredis.NewIntResult(0, m.delErr)
	}
	var n int64
	for _, k := range keys {
		if _, ok := m.values[k]; ok {
			delete(m.values, k)
			n++
		}
	}
	return goredis.NewIntResult(n, nil)
}

func sampleSession() *domain.Session {
	exp := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)
	return &domain.Session{
		Campaign:   "isabela",
		ExternalID: "isabela_campaign_1_abcd1234",
		Provider:   "rushpay",
		State:      domain.StateActive,
		Transaction: domain.Transaction{
			ID:          "tx_1",
			Status:      domain.TransactionStatusPending,
			Method:      domain.PaymentMethodPix,
			AmountMinor: 6500,
			Currency:    "BRL",
			ExpiresAt:   &exp,
			Artifact:    domain.PaymentArtifact{Pix: &domain.PixArtifact{Code: "000201"}},
		},
		BaseAmountMinor: 5000,
		LineItems:       []domain.LineItem{{BeneficiaryID: "X", AmountMinor: 1500}},
		Split:           []domain.SplitAllocation{{BeneficiaryID: "X", Percentage: 23}},
		ExpiresAt:       &exp,
		Timestamp:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "isabela_current_donation", Key("Isabela", ""))
	assert.Equal(t, "isabela_current_donation:abc", Key("isabela", " abc "))
}

func storesUnderTest() map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  NewRedisStore(newMemRedis(), time.Hour),
	}
}

func TestStore_RoundTrip(t *testing.T) {
	for name, store := range storesUnderTest() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			key := Key("isabela", "client-1")

			_, err := store.Get(ctx, key)
			assert.ErrorIs(t, err, domain.ErrSessionNotFound)

			in := sampleSession()
			require.NoError(t, store.Set(ctx, key, in))

			got, err := store.Get(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, in.Transaction.ID, got.Transaction.ID)
			assert.Equal(t, in.Split, got.Split)
			assert.True(t, in.ExpiresAt.Equal(*got.ExpiresAt))
			assert.Equal(t, "000201", got.Transaction.Artifact.Pix.Code)

			// other scopes are isolated
			_, err = store.Get(ctx, Key("isabela", "client-2"))
			assert.ErrorIs(t, err, domain.ErrSessionNotFound)

			require.NoError(t, store.Clear(ctx, key))
			require.NoError(t, store.Clear(ctx, key))
			_, err = store.Get(ctx, key)
			assert.ErrorIs(t, err, domain.ErrSessionNotFound)
		})
	}
}

func TestMemoryStore_CopyOnRead(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	in := sampleSession()
	require.NoError(t, store.Set(ctx, "k", in))

	in.Split[0].Percentage = 99
	in.Transaction.Artifact.Pix.Code = "mutated"

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 23, got.Split[0].Percentage)
	assert.Equal(t, "000201", got.Transaction.Artifact.Pix.Code)

	got.LineItems[0].AmountMinor = 1
	again, _ := store.Get(ctx, "k")
	assert.Equal(t, int64(1500), again.LineItems[0].AmountMinor)
	assert.Equal(t, 1, store.Len())
}

func TestRedisStore_PrefixAndTTL(t *testing.T) {
	client := newMemRedis()
	store := NewRedisStore(client, 24*time.Hour)
	require.NoError(t, store.Set(context.Background(), "isabela_current_donation", sampleSession()))

	_, ok := client.values["donation:session:isabela_current_donation"]
	assert.True(t, ok)
	assert.Equal(t, 24*time.Hour, client.ttls["donation:session:isabela_current_donation"])
}

func TestRedisStore_ClearError(t *testing.T) {
	client := newMemRedis()
	client.delErr = errors.New("connection reset")
	store := NewRedisStore(client, 0)
	assert.Error(t, store.Clear(context.Background(), "k"))
}
