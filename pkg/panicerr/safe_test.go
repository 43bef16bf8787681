package panicerr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTry(t *testing.T) {
	v, err := Try(func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	_, err = Try(func() (int, error) { return 0, errors.New("plain") })
	assert.EqualError(t, err, "plain")

	v, err = Try(func() (int, error) { panic("kaboom") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
	assert.Zero(t, v)
}

func TestSafeContext(t *testing.T) {
	fn := SafeContext(func(ctx context.Context) error {
		var m map[string]int
		m["x"] = 1
		return nil
	})
	require.Error(t, fn(context.Background()))
}
