package models

import (
	"encoding/json"
	"time"

	"github.com/erp/prestashop-connector/internal/domain/connector"
	"github.com/google/uuid"
)

// BackendModel is the persistence model for the Backend domain entity.
type BackendModel struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primary_key"`
	Name                 string     `gorm:"type:varchar(100);not null"`
	Version              string     `gorm:"type:varchar(20);not null"`
	Location             string     `gorm:"type:varchar(255);not null"`
	WebserviceKey        string     `gorm:"type:varchar(100);not null"`
	CompanyID            uuid.UUID  `gorm:"type:uuid"`
	WarehouseID          uuid.UUID  `gorm:"type:uuid"`
	StockLocationID      *uuid.UUID `gorm:"type:uuid"`
	PricelistID          uuid.UUID  `gorm:"type:uuid"`
	SaleTeamID           *uuid.UUID `gorm:"type:uuid"`
	RefundJournalID      *uuid.UUID `gorm:"type:uuid"`
	TaxesIncluded        bool       `gorm:"not null;default:false"`
	DiscountProductID    *uuid.UUID `gorm:"type:uuid"`
	ShippingProductID    *uuid.UUID `gorm:"type:uuid"`
	ProductTaxID         *uuid.UUID `gorm:"type:uuid"`
	ImportPartnersSince  *time.Time
	ImportOrdersSince    *time.Time
	ImportProductsSince  *time.Time
	ImportCartsSince     *time.Time
	ImportRefundsSince   *time.Time
	ImportSuppliersSince *time.Time
	Active               bool                   `gorm:"not null;index"`
	Languages            []BackendLanguageModel `gorm:"foreignKey:BackendID;constraint:OnDelete:CASCADE"`
	CreatedAt            time.Time              `gorm:"not null"`
	UpdatedAt            time.Time              `gorm:"not null"`
}

// TableName returns the table name for GORM
func (BackendModel) TableName() string {
	return "backends"
}

// ToDomain converts the persistence model to a domain Backend entity.
func (m *BackendModel) ToDomain() *connector.Backend {
	b := &connector.Backend{
		ID:                   m.ID,
		Name:                 m.Name,
		Version:              connector.Version(m.Version),
		Location:             m.Location,
		WebserviceKey:        m.WebserviceKey,
		CompanyID:            m.CompanyID,
		WarehouseID:          m.WarehouseID,
		StockLocationID:      m.StockLocationID,
		PricelistID:          m.PricelistID,
		SaleTeamID:           m.SaleTeamID,
		RefundJournalID:      m.RefundJournalID,
		TaxesIncluded:        m.TaxesIncluded,
		DiscountProductID:    m.DiscountProductID,
		ShippingProductID:    m.ShippingProductID,
		ProductTaxID:         m.ProductTaxID,
		ImportPartnersSince:  m.ImportPartnersSince,
		ImportOrdersSince:    m.ImportOrdersSince,
		ImportProductsSince:  m.ImportProductsSince,
		ImportCartsSince:     m.ImportCartsSince,
		ImportRefundsSince:   m.ImportRefundsSince,
		ImportSuppliersSince: m.ImportSuppliersSince,
		Active:               m.Active,
		Languages:            make([]connector.BackendLanguage, 0, len(m.Languages)),
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
	for _, l := range m.Languages {
		b.Languages = append(b.Languages, connector.BackendLanguage{
			ExternalID: l.ExternalID,
			LanguageID: l.LanguageID,
			Code:       l.Code,
			Active:     l.Active,
			Default:    l.IsDefault,
		})
	}
	return b
}

// FromDomain populates the persistence model from a domain Backend entity.
func (m *BackendModel) FromDomain(b *connector.Backend) {
	m.ID = b.ID
	m.Name = b.Name
	m.Version = b.Version.String()
	m.Location = b.Location
	m.WebserviceKey = b.WebserviceKey
	m.CompanyID = b.CompanyID
	m.WarehouseID = b.WarehouseID
	m.StockLocationID = b.StockLocationID
	m.PricelistID = b.PricelistID
	m.SaleTeamID = b.SaleTeamID
	m.RefundJournalID = b.RefundJournalID
	m.TaxesIncluded = b.TaxesIncluded
	m.DiscountProductID = b.DiscountProductID
	m.ShippingProductID = b.ShippingProductID
	m.ProductTaxID = b.ProductTaxID
	m.ImportPartnersSince = b.ImportPartnersSince
	m.ImportOrdersSince = b.ImportOrdersSince
	m.ImportProductsSince = b.ImportProductsSince
	m.ImportCartsSince = b.ImportCartsSince
	m.ImportRefundsSince = b.ImportRefundsSince
	m.ImportSuppliersSince = b.ImportSuppliersSince
	m.Active = b.Active
	m.CreatedAt = b.CreatedAt
	m.UpdatedAt = b.UpdatedAt
	m.Languages = make([]BackendLanguageModel, 0, len(b.Languages))
	for _, l := range b.Languages {
		m.Languages = append(m.Languages, BackendLanguageModel{
			ID:         uuid.New(),
			BackendID:  b.ID,
			ExternalID: l.ExternalID,
			LanguageID: l.LanguageID,
			Code:       l.Code,
			Active:     l.Active,
			IsDefault:  l.Default,
		})
	}
}

// BackendLanguageModel maps a PrestaShop language id to an ERP locale on one backend
type BackendLanguageModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	BackendID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_backend_language_external,priority:1"`
	ExternalID int64     `gorm:"not null;uniqueIndex:idx_backend_language_external,priority:2"`
	LanguageID uuid.UUID `gorm:"type:uuid"`
	Code       string    `gorm:"type:varchar(10);not null"`
	Active     bool      `gorm:"not null"`
	IsDefault  bool      `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (BackendLanguageModel) TableName() string {
	return "backend_languages"
}

// BindingModel is the persistence model for the Binding domain entity.
// One table holds the bindings of every model. Only the PrestaShop side is
// unique; matched records can be bound from several PrestaShop records.
type BindingModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	BackendID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_binding_external,priority:1;index:idx_binding_internal,priority:1"`
	Model      string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_binding_external,priority:2;index:idx_binding_internal,priority:2"`
	ExternalID int64     `gorm:"not null;uniqueIndex:idx_binding_external,priority:3"`
	InternalID uuid.UUID `gorm:"type:uuid;not null;index:idx_binding_internal,priority:3"`
	SyncDate   time.Time `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (BindingModel) TableName() string {
	return "bindings"
}

// ToDomain converts the persistence model to a domain Binding entity.
func (m *BindingModel) ToDomain() *connector.Binding {
	return &connector.Binding{
		ID:         m.ID,
		BackendID:  m.BackendID,
		Model:      m.Model,
		ExternalID: m.ExternalID,
		InternalID: m.InternalID,
		SyncDate:   m.SyncDate,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain Binding entity.
func (m *BindingModel) FromDomain(b *connector.Binding) {
	m.ID = b.ID
	m.BackendID = b.BackendID
	m.Model = b.Model
	m.ExternalID = b.ExternalID
	m.InternalID = b.InternalID
	m.SyncDate = b.SyncDate
	m.CreatedAt = b.CreatedAt
	m.UpdatedAt = b.UpdatedAt
}

// CheckpointModel is the persistence model for the Checkpoint domain entity.
type CheckpointModel struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key"`
	BackendID  uuid.UUID  `gorm:"type:uuid;not null;index:idx_checkpoint_backend,priority:1"`
	Model      string     `gorm:"type:varchar(64)"`
	RecordID   *uuid.UUID `gorm:"type:uuid"`
	Message    string     `gorm:"type:text;not null"`
	Reviewed   bool       `gorm:"not null;default:false;index:idx_checkpoint_backend,priority:2"`
	ReviewedAt *time.Time
	CreatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CheckpointModel) TableName() string {
	return "checkpoints"
}

// ToDomain converts the persistence model to a domain Checkpoint entity.
func (m *CheckpointModel) ToDomain() *connector.Checkpoint {
	return &connector.Checkpoint{
		ID:         m.ID,
		BackendID:  m.BackendID,
		Model:      m.Model,
		RecordID:   m.RecordID,
		Message:    m.Message,
		Reviewed:   m.Reviewed,
		ReviewedAt: m.ReviewedAt,
		CreatedAt:  m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain Checkpoint entity.
func (m *CheckpointModel) FromDomain(c *connector.Checkpoint) {
	m.ID = c.ID
	m.BackendID = c.BackendID
	m.Model = c.Model
	m.RecordID = c.RecordID
	m.Message = c.Message
	m.Reviewed = c.Reviewed
	m.ReviewedAt = c.ReviewedAt
	m.CreatedAt = c.CreatedAt
}

// JobModel is the persistence model for the Job domain entity.
type JobModel struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key"`
	BackendID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	Model       string     `gorm:"type:varchar(64);not null"`
	Method      string     `gorm:"type:varchar(32);not null"`
	ArgsJSON    string     `gorm:"type:text;column:args"`
	Priority    int        `gorm:"not null;default:10"`
	Status      string     `gorm:"type:varchar(20);not null;index:idx_job_ready,priority:1"`
	Attempts    int        `gorm:"not null;default:0"`
	MaxAttempts int        `gorm:"not null;default:5"`
	ETA         *time.Time `gorm:"column:eta;index:idx_job_ready,priority:2"`
	Result      string     `gorm:"type:text"`
	Error       string     `gorm:"type:text"`
	StartedAt   *time.Time
	DoneAt      *time.Time
	CreatedAt   time.Time  `gorm:"not null"`
	UpdatedAt   time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (JobModel) TableName() string {
	return "jobs"
}

// ToDomain converts the persistence model to a domain Job entity.
func (m *JobModel) ToDomain() *connector.Job {
	job := &connector.Job{
		ID:          m.ID,
		BackendID:   m.BackendID,
		Model:       m.Model,
		Method:      connector.JobMethod(m.Method),
		Priority:    m.Priority,
		Status:      connector.JobStatus(m.Status),
		Attempts:    m.Attempts,
		MaxAttempts: m.MaxAttempts,
		ETA:         m.ETA,
		Result:      m.Result,
		Error:       m.Error,
		StartedAt:   m.StartedAt,
		DoneAt:      m.DoneAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.ArgsJSON != "" {
		var args connector.JobArgs
		if err := json.Unmarshal([]byte(m.ArgsJSON), &args); err == nil {
			job.Args = args
		}
	}
	return job
}

// FromDomain populates the persistence model from a domain Job entity.
func (m *JobModel) FromDomain(j *connector.Job) {
	m.ID = j.ID
	m.BackendID = j.BackendID
	m.Model = j.Model
	m.Method = string(j.Method)
	m.Priority = j.Priority
	m.Status = string(j.Status)
	m.Attempts = j.Attempts
	m.MaxAttempts = j.MaxAttempts
	m.ETA = j.ETA
	m.Result = j.Result
	m.Error = j.Error
	m.StartedAt = j.StartedAt
	m.DoneAt = j.DoneAt
	m.CreatedAt = j.CreatedAt
	m.UpdatedAt = j.UpdatedAt
	if data, err := json.Marshal(j.Args); err == nil {
		m.ArgsJSON = string(data)
	}
}

// TranslationModel holds a translatable column value in a non-default language
type TranslationModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	ResTable  string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_translation,priority:1"`
	ResID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_translation,priority:2"`
	Field     string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_translation,priority:3"`
	Lang      string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_translation,priority:4"`
	Value     string    `gorm:"type:text"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TranslationModel) TableName() string {
	return "translations"
}

// SequenceModel is a named counter used to number records (e.g. carts)
type SequenceModel struct {
	Code       string `gorm:"type:varchar(64);primary_key"`
	Prefix     string `gorm:"type:varchar(20);not null"`
	Padding    int    `gorm:"not null;default:5"`
	NextNumber int64  `gorm:"not null;default:1"`
}

// TableName returns the table name for GORM
func (SequenceModel) TableName() string {
	return "sequences"
}
