package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"CodeDrop/internal/model"
	"CodeDrop/internal/repo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

// newSqliteService собирает сервис поверх настоящего репозитория
// с in-memory SQLite — интеграционные сценарии без моков.
func newSqliteService(t *testing.T) *ExchangeService {
	t.Helper()
	dial := gormsqlite.Dialector{DriverName: "sqlite", DSN: "file::memory:"}
	db, err := gorm.Open(dial, &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&model.Exchange{}, &model.Item{}))

	limits := Limits{MaxFileBytes: 10 << 20, MaxFiles: 50}
	return NewExchangeService(repo.NewExchangeRepository(db), NewCodeGenerator(), limits, zap.NewNop().Sugar())
}

// Тест: значение, положенное при создании, возвращается из Consume
// байт в байт, включая вложенные структуры
func TestExchange_RoundTrip(t *testing.T) {
	s := newSqliteService(t)
	ctx := context.Background()

	original := `{"a":[1,2,{"b":"c"}],"nested":{"x":null,"y":true}}`
	res, err := s.CreateFromData(ctx, []json.RawMessage{json.RawMessage(original)})
	require.NoError(t, err)
	require.Equal(t, 1, res.ItemCount)
	require.Len(t, res.Code, 6)

	p, err := s.Consume(ctx, res.Code, 0)
	require.NoError(t, err)
	require.NotNil(t, p.Envelope)
	assert.Equal(t, res.Code, p.Envelope.Code)
	assert.Equal(t, 0, p.Envelope.ItemIndex)
	assert.JSONEq(t, original, string(p.Envelope.Data))
}

// Тест: повторная верификация идемпотентна — verified=true оба раза,
// метаданные совпадают с точностью до verified_at
func TestExchange_VerifyIdempotent(t *testing.T) {
	s := newSqliteService(t)
	ctx := context.Background()

	res, err := s.CreateFromData(ctx, []json.RawMessage{json.RawMessage(`"hello"`)})
	require.NoError(t, err)

	first, err := s.Verify(ctx, res.Code)
	require.NoError(t, err)
	assert.True(t, first.Verified)
	require.NotNil(t, first.VerifiedAt)

	second, err := s.Verify(ctx, res.Code)
	require.NoError(t, err)
	assert.True(t, second.Verified)
	require.NotNil(t, second.VerifiedAt)

	assert.Equal(t, first.Code, second.Code)
	assert.Equal(t, len(first.Items), len(second.Items))
	assert.Equal(t, first.Items[0].Data, second.Items[0].Data)
}

// Тест: N конкурентных Consume — ровно один получает payload,
// остальные ErrAlreadyConsumed
func TestExchange_ConsumeAtMostOnce_Concurrent(t *testing.T) {
	s := newSqliteService(t)
	ctx := context.Background()

	res, err := s.CreateFromData(ctx, []json.RawMessage{json.RawMessage(`"only once"`)})
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	results := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = s.Consume(ctx, res.Code, 0)
		}(i)
	}
	wg.Wait()

	winners, losers := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			winners++
		case assert.ErrorIs(t, err, ErrAlreadyConsumed):
			losers++
		}
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, n-1, losers)

	// флаг consumed выставлен независимо от исхода гонки
	info, err := s.Get(ctx, res.Code)
	require.NoError(t, err)
	assert.True(t, info.Items[0].Consumed)
}

// Тест: коды одновременно существующих записей различны
func TestExchange_LiveCodesUnique(t *testing.T) {
	s := newSqliteService(t)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 25; i++ {
		res, err := s.CreateFromData(ctx, []json.RawMessage{json.RawMessage(`1`)})
		require.NoError(t, err)
		assert.False(t, seen[res.Code], "code %s issued twice", res.Code)
		seen[res.Code] = true
	}
}

// Тест: файлы создаются с атрибутами, consume отдаёт исходные байты
func TestExchange_FileRoundTrip(t *testing.T) {
	s := newSqliteService(t)
	ctx := context.Background()

	small := []byte("small file content")
	res, err := s.CreateFromFiles(ctx, []FileUpload{
		{Name: "small.txt", MediaType: "text/plain", Size: int64(len(small)), Data: small},
		{Name: "other.bin", MediaType: "application/octet-stream", Size: 3, Data: []byte{1, 2, 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.ItemCount)

	info, err := s.Verify(ctx, res.Code)
	require.NoError(t, err)
	require.Len(t, info.Items, 2)
	assert.Equal(t, "small.txt", info.Items[0].FileName)
	assert.Equal(t, "text/plain", info.Items[0].MediaType)
	assert.Equal(t, int64(len(small)), info.Items[0].ByteSize)
	assert.Empty(t, info.Items[0].Data)

	p, err := s.Consume(ctx, res.Code, 0)
	require.NoError(t, err)
	assert.True(t, p.IsFile)
	assert.Equal(t, small, p.Bytes)
	assert.Equal(t, "small.txt", p.FileName)

	// второй элемент не задет потреблением первого
	info, err = s.Get(ctx, res.Code)
	require.NoError(t, err)
	assert.True(t, info.Items[0].Consumed)
	assert.False(t, info.Items[1].Consumed)
}

// Тест: удаление убирает запись целиком, повторное удаление — NotFound
func TestExchange_Delete(t *testing.T) {
	s := newSqliteService(t)
	ctx := context.Background()

	res, err := s.CreateFromData(ctx, []json.RawMessage{json.RawMessage(`1`), json.RawMessage(`2`)})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, res.Code))

	_, err = s.Get(ctx, res.Code)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.Delete(ctx, res.Code), ErrNotFound)
}
