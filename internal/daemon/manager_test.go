// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vgrab/vgrab/internal/config"
)

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{
		ListenAddr:      "127.0.0.1:0",
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		IdleTimeout:     time.Second,
		ShutdownTimeout: 2 * time.Second,
		MaxHeaderBytes:  1 << 20,
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestNewManager_RequiresAPIHandler(t *testing.T) {
	_, err := NewManager(testServerConfig(), Deps{Logger: zerolog.Nop()})
	require.Error(t, err)
}

func TestManager_ShutdownBeforeStart(t *testing.T) {
	m, err := NewManager(testServerConfig(), Deps{APIHandler: okHandler(), Logger: zerolog.Nop()})
	require.NoError(t, err)

	err = m.Shutdown(context.Background())
	assert.ErrorIs(t, err, ErrManagerNotStarted)
}

func TestManager_StartStopsOnContextCancel(t *testing.T) {
	m, err := NewManager(testServerConfig(), Deps{APIHandler: okHandler(), Logger: zerolog.Nop()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("manager did not stop after cancellation")
	}
}

func TestManager_HooksRunInReverseOrder(t *testing.T) {
	m, err := NewManager(testServerConfig(), Deps{APIHandler: okHandler(), Logger: zerolog.Nop()})
	require.NoError(t, err)

	var mu sync.Mutex
	var order []string
	record := func(name string) ShutdownHook {
		return func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}

	m.RegisterShutdownHook("first", record("first"))
	m.RegisterShutdownHook("second", record("second"))
	m.RegisterShutdownHook("third", record("third"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"third", "second", "first"}, order)
}

func TestManager_SecondStartFails(t *testing.T) {
	m, err := NewManager(testServerConfig(), Deps{APIHandler: okHandler(), Logger: zerolog.Nop()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Start(ctx) }()
	time.Sleep(50 * time.Millisecond)

	err = m.Start(context.Background())
	assert.Error(t, err)

	cancel()
	<-done
}
