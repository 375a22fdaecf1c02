package archive

import (
	"context"
	"testing"

	"github.com/humanitybadge/cli/pkg/recording"
	"github.com/humanitybadge/cli/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(id string, start int64) recording.Recording {
	return recording.Recording{
		ID: id, StartTime: start, EndTime: start + 6000, Duration: 6000,
		Events:     []recording.Event{{Type: "input", Timestamp: 0, Value: "a"}},
		FinalValue: "a",
	}
}

func TestArchive_SaveGetListDelete(t *testing.T) {
	ctx := context.Background()
	a := New(store.NewMemoryStore())

	require.NoError(t, a.Save(ctx, rec("old", 100)))
	require.NoError(t, a.Save(ctx, rec("new", 200)))
	require.NoError(t, a.Save(ctx, rec("mid", 150)))

	list, err := a.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"new", "mid", "old"}, []string{list[0].ID, list[1].ID, list[2].ID})

	got, err := a.Get(ctx, "mid")
	require.NoError(t, err)
	assert.Equal(t, int64(150), got.StartTime)

	require.NoError(t, a.Delete(ctx, "mid"))
	_, err = a.Get(ctx, "mid")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, a.Delete(ctx, "mid"), ErrNotFound)

	count, size, err := a.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Positive(t, size)
}

func TestArchive_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	a := New(store.NewMemoryStore())

	first := rec("r", 1)
	require.NoError(t, a.Save(ctx, first))
	require.NoError(t, a.Save(ctx, first.WithVerification(recording.Verify(first))))

	list, _ := a.List(ctx)
	require.Len(t, list, 1)
	assert.NotNil(t, list[0].Verification)
}

func TestArchive_QuotaExceeded(t *testing.T) {
	a := New(store.NewMemoryStoreWithQuota(64))
	err := a.Save(context.Background(), rec("too-big-for-quota", 1))
	assert.ErrorIs(t, err, store.ErrQuotaExceeded)
}

func TestArchive_RequiresID(t *testing.T) {
	assert.Error(t, New(store.NewMemoryStore()).Save(context.Background(), recording.Recording{}))
}
