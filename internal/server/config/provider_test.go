package config

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_Reload(t *testing.T) {
	first := validConfig()
	second := validConfig()
	second.MaxLoginAttempts = 9

	calls := 0
	p, err := NewProvider(func() (*Config, error) {
		calls++
		switch calls {
		case 1:
			return first, nil
		case 2:
			return second, nil
		default:
			return nil, errors.New("broken file")
		}
	})
	require.NoError(t, err)
	assert.Same(t, first, p.Current())

	require.NoError(t, p.Reload())
	assert.Same(t, second, p.Current())

	assert.Error(t, p.Reload())
	assert.Same(t, second, p.Current(), "failed reload keeps previous config")
}

func TestProvider_InitialLoadError(t *testing.T) {
	_, err := NewProvider(func() (*Config, error) { return nil, errors.New("nope") })
	assert.Error(t, err)
}

func TestProvider_EncryptionKey(t *testing.T) {
	p := Static(validConfig())

	key, err := p.EncryptionKey()
	require.NoError(t, err)
	assert.Len(t, key, 32)

	bad := validConfig()
	bad.EncryptionKeyHex = "abc"
	_, err = Static(bad).EncryptionKey()
	assert.Error(t, err)
}

func TestProvider_ConcurrentReads(t *testing.T) {
	p := Static(validConfig())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = p.Reload()
		}()
		go func() {
			defer wg.Done()
			assert.NotNil(t, p.Current())
		}()
	}
	wg.Wait()
}
