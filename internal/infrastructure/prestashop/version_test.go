package prestashop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/prestashop-connector/internal/domain/connector"
)

func TestVersionKey(t *testing.T) {
	tests := []struct {
		version connector.Version
		plural  string
		want    string
	}{
		{connector.Version1609, "groups", "groups"},
		{connector.Version1612, "groups", "group"},
		{connector.Version1612, "order_rows", "order_row"},
		{connector.Version1612, "categories", "category"},
		{connector.Version1612, "product_option_values", "product_option_value"},
		{connector.Version15, "cart_rows", "cart_row"},
		{connector.Version1609, "combinations", "combinations"},
	}
	for _, tt := range tests {
		t.Run(string(tt.version)+"/"+tt.plural, func(t *testing.T) {
			assert.Equal(t, tt.want, VersionKey(tt.version, tt.plural))
		})
	}
}

func TestAssociations(t *testing.T) {
	_, record, err := Decode([]byte(customerXML))
	require.NoError(t, err)

	t.Run("configured key", func(t *testing.T) {
		assert.Len(t, Associations(record, connector.Version1612, "groups"), 2)
	})

	t.Run("falls back to the other form", func(t *testing.T) {
		assert.Len(t, Associations(record, connector.Version1609, "groups"), 2)
	})

	t.Run("missing association", func(t *testing.T) {
		assert.Empty(t, Associations(record, connector.Version1612, "order_rows"))
	})
}

func TestLocation(t *testing.T) {
	assert.Equal(t, "http://shop.example.com/api", Location("shop.example.com"))
	assert.Equal(t, "https://shop.example.com/api", Location("https://shop.example.com/api"))
	assert.Equal(t, "https://shop.example.com/api", Location("https://shop.example.com/"))
}

func TestConfig_Validate(t *testing.T) {
	cfg := &Config{Location: "shop", WebserviceKey: "KEY"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, connector.DefaultVersion, cfg.Version)
	assert.Positive(t, cfg.Timeout)

	assert.ErrorIs(t, (&Config{WebserviceKey: "KEY"}).Validate(), ErrConfigMissingLocation)
	assert.ErrorIs(t, (&Config{Location: "shop"}).Validate(), ErrConfigMissingKey)
}
