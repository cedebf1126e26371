/*
dto.go - Wire types for API responses

PURPOSE:
  The document types in the ledger package are JSON-tagged and serve as
  their own wire representation; request bodies decode straight into them
  and the derivation engine overwrites anything derived a caller tried to
  supply. This file holds the few envelope types that are API-only.

UPDATE PROTOCOL:
  Update requests carry the document as last read, including its
  "version" field. The engine uses that version for the optimistic
  concurrency check; a stale version yields HTTP 409.
*/
package api

import "github.com/finbooks/ledger-engine/ledger"

// ErrorResponse is the uniform error envelope. Violations is populated for
// validation failures so callers see every problem in one response.
type ErrorResponse struct {
	Error      string                  `json:"error"`
	Violations []ledger.FieldViolation `json:"violations,omitempty"`
}

// BootstrapResponse reports the outcome of the chart-of-accounts seeding.
// Created is zero when the chart already existed (still a success).
type BootstrapResponse struct {
	Created int    `json:"created"`
	Message string `json:"message"`
}
