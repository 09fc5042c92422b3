// Package models contains the GORM models of the connector database. They
// stay out of the domain package, and repositories map them to domain types.
//
// Files:
//   - connector.go: connector state. Backends and their languages,
//     bindings between PrestaShop ids and ERP records, checkpoints,
//     queued jobs, field translations and sale order sequences.
//   - erp.go: the ERP records the imports write. Languages, countries,
//     taxes, shops, partners and their categories, product categories,
//     templates, attributes and variants, carriers, order states,
//     sale orders, carts and stock quantities.
//
// ConnectorModels lists every model for AutoMigrate in tests. Production
// databases are created by the SQL files of the migrations package.
package models
