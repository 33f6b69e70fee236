package customer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Masaki-Miyazawa/erp/internal/core/apperror"
	"github.com/Masaki-Miyazawa/erp/internal/docstore/memory"
	"github.com/Masaki-Miyazawa/erp/internal/sequence"
)

func newTestService() *Service {
	store := memory.New()
	svc := NewService(store, sequence.New(store, 0))
	svc.now = func() time.Time {
		return time.Date(2024, time.March, 10, 9, 30, 0, 0, time.UTC)
	}
	return svc
}

func TestCreateAssignsSequentialIDs(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	first, err := svc.Create(ctx, Fields{Name: "Tanaka Hanako", Email: "tanaka@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "1", first.ID)
	assert.Equal(t, svc.now(), first.CreatedAt)
	assert.Equal(t, first.CreatedAt, first.UpdatedAt)

	second, err := svc.Create(ctx, Fields{Name: "Suzuki Taro"})
	require.NoError(t, err)
	assert.Equal(t, "2", second.ID)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, Fields{Email: "x@example.com"})
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidInput(err), "name is required, got %v", err)

	_, err = svc.Create(ctx, Fields{Name: "Tanaka", Email: "not-an-email"})
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidInput(err), "bad email must be rejected, got %v", err)

	// Failed validation consumes no identifier.
	c, err := svc.Create(ctx, Fields{Name: "Tanaka"})
	require.NoError(t, err)
	assert.Equal(t, "1", c.ID)
}

func TestGetAndExists(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, Fields{Name: "Tanaka", Phone: "03-1234-5678"})
	require.NoError(t, err)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, got.Name)
	assert.Equal(t, created.Phone, got.Phone)

	_, err = svc.Get(ctx, "404")
	assert.True(t, apperror.IsNotFound(err), "expected not found, got %v", err)

	ok, err := svc.Exists(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Exists(ctx, "404")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateAppliesPartialChanges(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, Fields{
		Name:    "Tanaka",
		Email:   "tanaka@example.com",
		Address: "Tokyo",
	})
	require.NoError(t, err)

	later := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return later }

	newAddress := "Osaka"
	updated, err := svc.Update(ctx, created.ID, ProfileUpdate{Address: &newAddress})
	require.NoError(t, err)

	assert.Equal(t, "Osaka", updated.Address)
	assert.Equal(t, "Tanaka", updated.Name, "untouched fields must survive")
	assert.Equal(t, "tanaka@example.com", updated.Email)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, later, updated.UpdatedAt)

	empty := ""
	_, err = svc.Update(ctx, created.ID, ProfileUpdate{Name: &empty})
	assert.True(t, apperror.IsInvalidInput(err), "clearing the name must be rejected, got %v", err)

	_, err = svc.Update(ctx, "404", ProfileUpdate{Address: &newAddress})
	assert.True(t, apperror.IsNotFound(err), "expected not found, got %v", err)
}

func TestSearchByName(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	for _, name := range []string{"Suzuki", "Tanaka", "Takahashi"} {
		_, err := svc.Create(ctx, Fields{Name: name})
		require.NoError(t, err)
	}

	matches, err := svc.SearchByName(ctx, "Ta")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "Takahashi", matches[0].Name)
	assert.Equal(t, "Tanaka", matches[1].Name)

	all, err := svc.SearchByName(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := svc.SearchByName(ctx, "Yamada")
	require.NoError(t, err)
	assert.Empty(t, none)
}
