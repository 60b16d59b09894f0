package cache_test

import (
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/fintrack-go/internal/infra/cache"
	"github.com/boddenberg/fintrack-go/internal/port"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type report struct {
	Score int    `json:"score"`
	Note  string `json:"note"`
}

var _ port.Cache[report] = (*cache.Redis[report])(nil)

func TestRedis_Get(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := cache.NewRedis[report](client, "fraud:", time.Minute, zap.NewNop())

	mock.ExpectGet("fraud:u1").SetVal(`{"score":42,"note":"ok"}`)

	got, ok := c.Get("u1")
	require.True(t, ok)
	assert.Equal(t, report{Score: 42, Note: "ok"}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedis_GetMissAndErrors(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := cache.NewRedis[report](client, "fraud:", time.Minute, zap.NewNop())

	mock.ExpectGet("fraud:missing").RedisNil()
	mock.ExpectGet("fraud:down").SetErr(errors.New("connection refused"))
	mock.ExpectGet("fraud:garbage").SetVal("not json")

	for _, key := range []string{"missing", "down", "garbage"} {
		_, ok := c.Get(key)
		assert.False(t, ok, key)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedis_SetAndDelete(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := cache.NewRedis[report](client, "fraud:", 5*time.Minute, zap.NewNop())

	mock.ExpectSet("fraud:u1", []byte(`{"score":7,"note":"x"}`), 5*time.Minute).SetVal("OK")
	mock.ExpectDel("fraud:u1").SetVal(1)

	c.Set("u1", report{Score: 7, Note: "x"})
	c.Delete("u1")

	assert.NoError(t, mock.ExpectationsWereMet())
}
