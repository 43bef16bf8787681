package yamlrepo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sedeops/autoassign/pkg/cerr"
	"github.com/sedeops/autoassign/pkg/storage"
)

type record struct {
	ID    string `yaml:"id"`
	Value int    `yaml:"value"`
}

func newCollection(t *testing.T) (*Collection[record], storage.Storage) {
	t.Helper()
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return &Collection[record]{Storage: s, Prefix: "records", Target: "record"}, s
}

func TestCollection_Lifecycle(t *testing.T) {
	ctx := context.Background()
	c, _ := newCollection(t)

	require.NoError(t, c.Create(ctx, "a", &record{ID: "a", Value: 1}))
	err := c.Create(ctx, "a", &record{ID: "a", Value: 2})
	assert.True(t, cerr.IsCode(err, cerr.AlreadyExists))

	err = c.Update(ctx, "b", &record{ID: "b"})
	assert.True(t, cerr.IsCode(err, cerr.NotFound))

	require.NoError(t, c.Update(ctx, "a", &record{ID: "a", Value: 3}))
	got, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Value)

	require.NoError(t, c.Put(ctx, "b", &record{ID: "b", Value: 4}))
	all, err := c.List(ctx, func(r *record) bool { return r.Value > 3 })
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "b", all[0].ID)

	require.NoError(t, c.Delete(ctx, "a"))
	_, err = c.Get(ctx, "a")
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}

func TestCollection_ListAbortsOnCorruptRecord(t *testing.T) {
	ctx := context.Background()
	c, s := newCollection(t)
	require.NoError(t, c.Put(ctx, "a", &record{ID: "a"}))
	require.NoError(t, s.Write(ctx, c.Path("bad"), []byte("value: [unclosed")))

	_, err := c.List(ctx, nil)
	require.Error(t, err)
}

func TestCollection_RejectsPathLikeIDs(t *testing.T) {
	ctx := context.Background()
	c, s := newCollection(t)
	require.NoError(t, s.Write(ctx, "other/a.yaml", []byte("id: a\nvalue: 9\n")))
	require.NoError(t, c.Put(ctx, "a", &record{ID: "a", Value: 1}))

	for _, id := range []string{"../other/a", "x/../a", `x\..\a`, "..", "a/b", ""} {
		assert.False(t, ValidID(id), id)

		_, err := c.Get(ctx, id)
		assert.True(t, cerr.IsCode(err, cerr.NotFound), id)
		assert.True(t, cerr.IsCode(c.Update(ctx, id, &record{}), cerr.NotFound), id)
		assert.True(t, cerr.IsCode(c.Delete(ctx, id), cerr.NotFound), id)
		assert.True(t, cerr.IsCode(c.Put(ctx, id, &record{}), cerr.InvalidArgument), id)
		assert.True(t, cerr.IsCode(c.Create(ctx, id, &record{}), cerr.InvalidArgument), id)
	}

	got, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Value)
	assert.True(t, ValidID("01HZX3"))
}
