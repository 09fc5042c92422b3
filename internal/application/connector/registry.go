package connector

import (
	"errors"
	"fmt"
	"sort"
)

// Errors of the connector application layer
var (
	// ErrNoComponent is returned for a model without import component
	ErrNoComponent             = errors.New("connector: no component registered for model")
	ErrSeveralDefaultLanguages = errors.New("connector: only one language can be the default")
	ErrInvalidJobStatus        = errors.New("connector: unknown job status")
	ErrJobRunning              = errors.New("connector: job is running")
)

// Component describes how one binding model is imported
type Component struct {
	Model    string
	Resource string
	// NewRecord returns an empty GORM model of the ERP table
	NewRecord func() any
	// Translatable are the PrestaShop fields holding one value per language
	Translatable []string
	// TranslatedColumns are the ERP columns filled from Translatable fields
	TranslatedColumns []string
	Mapper            *Mapper
	Hooks             Hooks
	Batch             BatchOptions
}

func (c *Component) hooks() Hooks {
	if c.Hooks == nil {
		return NoopHooks{}
	}
	return c.Hooks
}

// Registry holds the components by model
type Registry struct {
	components map[string]*Component
}

// NewRegistry creates a registry of components
func NewRegistry(components ...*Component) *Registry {
	r := &Registry{components: make(map[string]*Component, len(components))}
	for _, c := range components {
		r.Register(c)
	}
	return r
}

// Register adds or replaces the component of c.Model
func (r *Registry) Register(c *Component) {
	r.components[c.Model] = c
}

// Get returns the component of model
func (r *Registry) Get(model string) (*Component, error) {
	c, ok := r.components[model]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoComponent, model)
	}
	return c, nil
}

// Models returns the registered models, sorted
func (r *Registry) Models() []string {
	models := make([]string, 0, len(r.components))
	for m := range r.components {
		models = append(models, m)
	}
	sort.Strings(models)
	return models
}

// DefaultRegistry returns the components of every PrestaShop resource
// handled by the connector
func DefaultRegistry() *Registry {
	return NewRegistry(
		shopGroupComponent(),
		shopComponent(),
		languageComponent(),
		countryComponent(),
		taxComponent(),
		partnerCategoryComponent(),
		partnerComponent(),
		addressComponent(),
		productCategoryComponent(),
		productTemplateComponent(),
		combinationComponent(),
		optionComponent(),
		optionValueComponent(),
		orderStateComponent(),
		carrierComponent(),
		saleOrderComponent(),
		cartComponent(),
		stockAvailableComponent(),
	)
}
