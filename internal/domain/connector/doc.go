// Package connector contains the PrestaShop connector bounded context.
// It describes how records of a PrestaShop shop are tied to records of the ERP.
//
// Key concepts:
//   - Backend: one PrestaShop shop (web service location, key, default mappings)
//   - Binding: pairs a PrestaShop id with an ERP record id for one binding model
//   - Checkpoint: a message that needs an administrator's review
//   - Job: a queued import or export call, retried on RetryableJobError
//
// The error taxonomy in errors.go drives the job queue: a retryable error
// reschedules the job, NothingToDoJob completes it, anything else fails it.
package connector
