package connector

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBackend(t *testing.T) {
	t.Run("creates backend with valid inputs", func(t *testing.T) {
		b, err := NewBackend(" Shop ", Version1612, "http://shop.example.com", "KEY")
		require.NoError(t, err)
		assert.Equal(t, "Shop", b.Name)
		assert.Equal(t, Version1612, b.Version)
		assert.True(t, b.Active)
		assert.NotEqual(t, uuid.Nil, b.ID)
	})

	t.Run("defaults version", func(t *testing.T) {
		b, err := NewBackend("Shop", "", "http://shop", "KEY")
		require.NoError(t, err)
		assert.Equal(t, DefaultVersion, b.Version)
	})

	t.Run("rejects invalid inputs", func(t *testing.T) {
		tests := []struct {
			name    string
			bName   string
			version Version
			loc     string
			key     string
			want    error
		}{
			{"empty name", "", Version15, "http://shop", "KEY", ErrInvalidBackendName},
			{"unknown version", "Shop", "1.7", "http://shop", "KEY", ErrInvalidVersion},
			{"empty location", "Shop", Version15, " ", "KEY", ErrInvalidLocation},
			{"empty key", "Shop", Version15, "http://shop", "", ErrInvalidWebserviceKey},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := NewBackend(tt.bName, tt.version, tt.loc, tt.key)
				assert.ErrorIs(t, err, tt.want)
			})
		}
	})
}

func TestBackend_Languages(t *testing.T) {
	newBackend := func() *Backend {
		b, _ := NewBackend("Shop", Version1612, "http://shop", "KEY")
		b.Languages = []BackendLanguage{
			{ExternalID: 3, Code: "de_DE"},
			{ExternalID: 1, Code: "en_US"},
			{ExternalID: 2, Code: "fr_FR"},
		}
		return b
	}

	t.Run("language map", func(t *testing.T) {
		b := newBackend()
		assert.Equal(t, map[int64]string{1: "en_US", 2: "fr_FR", 3: "de_DE"}, b.LanguageMap())
	})

	t.Run("no default language", func(t *testing.T) {
		_, err := newBackend().DefaultLanguage()
		assert.ErrorIs(t, err, ErrNoDefaultLanguage)
	})

	t.Run("set default language", func(t *testing.T) {
		b := newBackend()
		require.NoError(t, b.SetDefaultLanguage(2))
		lang, err := b.DefaultLanguage()
		require.NoError(t, err)
		assert.Equal(t, "fr_FR", lang.Code)

		require.NoError(t, b.SetDefaultLanguage(3))
		lang, _ = b.DefaultLanguage()
		assert.Equal(t, "de_DE", lang.Code)
		for _, l := range b.Languages {
			assert.Equal(t, l.ExternalID == 3, l.Default)
		}
	})

	t.Run("set unknown default language", func(t *testing.T) {
		assert.ErrorIs(t, newBackend().SetDefaultLanguage(9), ErrLanguageNotConfigured)
	})

	t.Run("ensure default picks lowest id", func(t *testing.T) {
		b := newBackend()
		assert.True(t, b.EnsureDefaultLanguage())
		lang, err := b.DefaultLanguage()
		require.NoError(t, err)
		assert.Equal(t, int64(1), lang.ExternalID)
		assert.False(t, b.EnsureDefaultLanguage())
	})

	t.Run("ensure default on empty backend", func(t *testing.T) {
		b, _ := NewBackend("Shop", Version1612, "http://shop", "KEY")
		assert.False(t, b.EnsureDefaultLanguage())
	})
}

func TestBackend_SinceDate(t *testing.T) {
	b, err := NewBackend("Shop", Version1612, "http://shop", "KEY")
	require.NoError(t, err)
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	assert.Nil(t, b.SinceDate(ModelPartner))

	for _, model := range []string{ModelPartner, ModelSaleOrder, ModelProductTemplate} {
		b.TouchSinceDate(model, at)
		require.NotNil(t, b.SinceDate(model), model)
		assert.Equal(t, at, *b.SinceDate(model))
	}

	b.TouchSinceDate(ModelCarrier, at)
	assert.Nil(t, b.SinceDate(ModelCarrier))
}

func TestVersion(t *testing.T) {
	assert.True(t, Version15.IsValid())
	assert.True(t, Version16011.IsValid())
	assert.False(t, Version("1.7.0.0").IsValid())
	assert.Equal(t, "1.6.0.9", Version1609.String())
	assert.Len(t, AllVersions(), 4)
}
