package forward

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portwarden/internal/kube"
)

// resetSingleton clears the process-wide holder between tests. Production
// code never does this; the singleton is genuinely write-once for the
// life of the process.
func resetSingleton(t *testing.T) {
	t.Helper()
	singleton.manager = atomic.Pointer[Manager]{}
}

func TestInitializeInstallsManagerOnce(t *testing.T) {
	resetSingleton(t)

	client := newFakeClient("default", "api")
	m, err := Initialize(client)
	require.NoError(t, err)
	assert.True(t, IsInitialized())
	assert.Same(t, m, Get())

	_, err = Initialize(client)
	assert.Error(t, err)
	assert.Same(t, m, Get())
}

func TestGetOrInitSharesSingleWinner(t *testing.T) {
	resetSingleton(t)

	newClient := func(contextName string) (kube.ClusterClient, error) {
		return newFakeClient("default", "api"), nil
	}

	const goroutines = 10
	results := make([]*Manager, goroutines)
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := range results {
		i := i
		go func() {
			defer wg.Done()
			m, err := GetOrInit("dev", newClient)
			require.NoError(t, err)
			results[i] = m
		}()
	}
	wg.Wait()

	for _, m := range results {
		assert.Same(t, results[0], m)
	}
}

func TestIsInitializedFalseBeforeInit(t *testing.T) {
	resetSingleton(t)
	assert.False(t, IsInitialized())
	assert.Nil(t, Get())
}

func TestGetOrInitRetriesAfterFailedConstruction(t *testing.T) {
	resetSingleton(t)

	failing := func(contextName string) (kube.ClusterClient, error) {
		return nil, assert.AnError
	}
	_, err := GetOrInit("dev", failing)
	require.Error(t, err)
	assert.False(t, IsInitialized())
	assert.Nil(t, Get())

	client := newFakeClient("default", "api")
	succeeding := func(contextName string) (kube.ClusterClient, error) {
		return client, nil
	}
	m, err := GetOrInit("dev", succeeding)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.True(t, IsInitialized())
	assert.Same(t, m, Get())
}
