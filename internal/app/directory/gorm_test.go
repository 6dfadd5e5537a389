package directory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	identityA = "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	identityB = "0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"
)

// setupTestDirectory opens an in-memory SQLite directory.
func setupTestDirectory(t *testing.T) *GormDirectory {
	t.Helper()

	dir, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = dir.Close() })

	return dir
}

func TestUpsertUserIsIdempotent(t *testing.T) {
	ctx := context.Background()
	dir := setupTestDirectory(t)

	first, err := dir.UpsertUser(ctx, identityA)
	require.NoError(t, err)
	assert.Equal(t, identityA, first.Identity)

	for range 5 {
		again, err := dir.UpsertUser(ctx, identityA)
		require.NoError(t, err)
		assert.True(t, first.CreatedAt.Equal(again.CreatedAt), "existing record must be left unchanged")
	}

	count, err := dir.CountUsers(ctx, identityA)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestUpsertUserConcurrent(t *testing.T) {
	ctx := context.Background()
	dir := setupTestDirectory(t)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := dir.UpsertUser(ctx, identityB)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	count, err := dir.CountUsers(ctx, identityB)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestInsertMessage(t *testing.T) {
	ctx := context.Background()
	dir := setupTestDirectory(t)

	msg, err := dir.InsertMessage(ctx, identityA, "Alice", "hello", "General")
	require.NoError(t, err)

	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, identityA, msg.Identity)
	assert.Equal(t, "Alice", msg.DisplayName)
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, "General", msg.Room)
	assert.WithinDuration(t, time.Now(), msg.CreatedAt, 5*time.Second)
}

func TestRecentMessagesOrderingAndLimit(t *testing.T) {
	ctx := context.Background()
	dir := setupTestDirectory(t)

	for i := range 60 {
		_, err := dir.InsertMessage(ctx, identityA, "Alice", fmt.Sprintf("m%02d", i), "General")
		require.NoError(t, err)
	}
	_, err := dir.InsertMessage(ctx, identityB, "Bob", "elsewhere", "Trading")
	require.NoError(t, err)

	messages, err := dir.RecentMessages(ctx, "General", 50)
	require.NoError(t, err)
	require.Len(t, messages, 50)

	assert.Equal(t, "m10", messages[0].Content, "oldest of the newest 50")
	assert.Equal(t, "m59", messages[49].Content)
	for i := 1; i < len(messages); i++ {
		assert.False(t, messages[i].CreatedAt.Before(messages[i-1].CreatedAt))
		assert.True(t, strings.Compare(messages[i-1].Content, messages[i].Content) < 0)
	}

	trading, err := dir.RecentMessages(ctx, "Trading", 50)
	require.NoError(t, err)
	require.Len(t, trading, 1)
	assert.Equal(t, "elsewhere", trading[0].Content)

	empty, err := dir.RecentMessages(ctx, "Support", 50)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRecentMessagesRejectsBadLimit(t *testing.T) {
	dir := setupTestDirectory(t)

	_, err := dir.RecentMessages(context.Background(), "General", 0)
	assert.ErrorIs(t, err, ErrInvalidLimit)
}
