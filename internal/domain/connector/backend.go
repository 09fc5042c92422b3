package connector

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Version is the PrestaShop version range a backend talks to.
// It selects the XML shape of associations (see prestashop.VersionKey).
type Version string

const (
	Version15    Version = "1.5"
	Version1609  Version = "1.6.0.9"
	Version16011 Version = "1.6.0.11"
	Version1612  Version = "1.6.1.2"
)

// DefaultVersion is used when a backend is created without a version
const DefaultVersion = Version1612

// AllVersions returns the supported versions with their labels
func AllVersions() map[Version]string {
	return map[Version]string{
		Version15:    "< 1.6.0.9",
		Version1609:  "1.6.0.9 - 1.6.0.10",
		Version16011: ">= 1.6.0.11 - <1.6.1.2",
		Version1612:  "=1.6.1.2",
	}
}

// IsValid checks if the version is supported
func (v Version) IsValid() bool {
	_, ok := AllVersions()[v]
	return ok
}

// String returns the string representation
func (v Version) String() string {
	return string(v)
}

// BackendLanguage maps a PrestaShop language id to an ERP locale code
type BackendLanguage struct {
	ExternalID int64
	LanguageID uuid.UUID
	Code       string
	Active     bool
	Default    bool
}

// Backend is the configuration of one PrestaShop shop
type Backend struct {
	ID            uuid.UUID
	Name          string
	Version       Version
	Location      string
	WebserviceKey string

	CompanyID       uuid.UUID
	WarehouseID     uuid.UUID
	StockLocationID *uuid.UUID
	PricelistID     uuid.UUID
	SaleTeamID      *uuid.UUID
	RefundJournalID *uuid.UUID
	// TaxesIncluded is set when PrestaShop prices are entered tax included
	TaxesIncluded     bool
	DiscountProductID *uuid.UUID
	ShippingProductID *uuid.UUID
	ProductTaxID      *uuid.UUID

	ImportPartnersSince  *time.Time
	ImportOrdersSince    *time.Time
	ImportProductsSince  *time.Time
	ImportCartsSince     *time.Time
	ImportRefundsSince   *time.Time
	ImportSuppliersSince *time.Time

	Languages []BackendLanguage
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBackend creates a new backend
func NewBackend(name string, version Version, location, webserviceKey string) (*Backend, error) {
	now := time.Now()
	b := &Backend{
		ID:            uuid.New(),
		Name:          strings.TrimSpace(name),
		Version:       version,
		Location:      strings.TrimSpace(location),
		WebserviceKey: strings.TrimSpace(webserviceKey),
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if b.Version == "" {
		b.Version = DefaultVersion
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// Validate validates the backend
func (b *Backend) Validate() error {
	if b.Name == "" {
		return ErrInvalidBackendName
	}
	if !b.Version.IsValid() {
		return ErrInvalidVersion
	}
	if b.Location == "" {
		return ErrInvalidLocation
	}
	if b.WebserviceKey == "" {
		return ErrInvalidWebserviceKey
	}
	return nil
}

// LanguageMap returns the PrestaShop language id -> locale code map
func (b *Backend) LanguageMap() map[int64]string {
	languages := make(map[int64]string, len(b.Languages))
	for _, lang := range b.Languages {
		languages[lang.ExternalID] = lang.Code
	}
	return languages
}

// DefaultLanguage returns the language flagged as default
func (b *Backend) DefaultLanguage() (BackendLanguage, error) {
	for _, lang := range b.Languages {
		if lang.Default {
			return lang, nil
		}
	}
	return BackendLanguage{}, ErrNoDefaultLanguage
}

// SetDefaultLanguage flags the language with the given PrestaShop id as
// default and clears the flag on the others.
func (b *Backend) SetDefaultLanguage(externalID int64) error {
	found := false
	for i := range b.Languages {
		b.Languages[i].Default = b.Languages[i].ExternalID == externalID
		found = found || b.Languages[i].Default
	}
	if !found {
		return ErrLanguageNotConfigured
	}
	b.UpdatedAt = time.Now()
	return nil
}

// EnsureDefaultLanguage flags the language with the lowest PrestaShop id as
// default when none is flagged yet. It reports whether a flag was set.
func (b *Backend) EnsureDefaultLanguage() bool {
	if len(b.Languages) == 0 {
		return false
	}
	if _, err := b.DefaultLanguage(); err == nil {
		return false
	}
	sort.Slice(b.Languages, func(i, j int) bool {
		return b.Languages[i].ExternalID < b.Languages[j].ExternalID
	})
	b.Languages[0].Default = true
	return true
}

// SinceDate returns the "import since" timestamp used by a batch action
func (b *Backend) SinceDate(model string) *time.Time {
	switch model {
	case ModelPartner:
		return b.ImportPartnersSince
	case ModelSaleOrder:
		return b.ImportOrdersSince
	case ModelProductTemplate:
		return b.ImportProductsSince
	case ModelCart:
		return b.ImportCartsSince
	}
	return nil
}

// TouchSinceDate records the start time of a batch action so the next run
// only asks PrestaShop for records updated after it.
func (b *Backend) TouchSinceDate(model string, at time.Time) {
	switch model {
	case ModelPartner:
		b.ImportPartnersSince = &at
	case ModelSaleOrder:
		b.ImportOrdersSince = &at
	case ModelProductTemplate:
		b.ImportProductsSince = &at
	case ModelCart:
		b.ImportCartsSince = &at
	default:
		return
	}
	b.UpdatedAt = time.Now()
}
