package zerofs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackgroundEraseNoopInWriteMode(t *testing.T) {
	fs, _, _ := newTestFS(t)
	require.NoError(t, fs.EnterWriteMode())
	require.NoError(t, fs.BackgroundErase())
}

func TestBackgroundEraseAdvancesErasedMax(t *testing.T) {
	fs, _, _ := newTestFS(t)
	require.NoError(t, fs.EnterWriteMode())
	writeFile(t, fs, "a.bin", []byte("x"))
	require.NoError(t, fs.Delete("a.bin"))
	require.NoError(t, fs.EnterReadMode())

	before := fs.erasedMax
	require.NoError(t, fs.BackgroundErase())
	require.Greater(t, fs.erasedMax, before)
}

func TestRunBackgroundEraseStopsOnCancel(t *testing.T) {
	fs, _, _ := newTestFS(t)
	require.NoError(t, fs.EnterWriteMode())
	require.NoError(t, fs.EnterReadMode())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- fs.RunBackgroundErase(ctx, time.Millisecond)
	}()
	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("RunBackgroundErase did not stop after cancel")
	}
}
