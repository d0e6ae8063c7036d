/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/friendsincode/bragi_media/internal/importer"
	"github.com/friendsincode/bragi_media/internal/models"
)

type importFilesRequest struct {
	Files     []importer.FileInfo `json:"files"`
	MediaType models.MediaType    `json:"media_type"`
	Decision  importer.Decision   `json:"decision,omitempty"`
}

type importFolderRequest struct {
	URI         string            `json:"uri"`
	DisplayName string            `json:"display_name"`
	Decision    importer.Decision `json:"decision,omitempty"`
}

// needsDecisionError aborts an import whose batch contains duplicates the
// client has not yet decided on. The handler turns it into a 409 carrying
// the duplicate list, and the client re-posts with a decision.
type needsDecisionError struct {
	duplicates []importer.FileInfo
}

func (e *needsDecisionError) Error() string { return "duplicate decision required" }

// decisionFromRequest builds the suspension point of the import workflow.
// A preselected decision resolves immediately; otherwise the batch is
// interrupted so the client can be asked.
func decisionFromRequest(decision importer.Decision) importer.DecisionFunc {
	return func(ctx context.Context, duplicates []importer.FileInfo) (importer.Decision, error) {
		switch decision {
		case importer.DecisionSkip, importer.DecisionReplace, importer.DecisionCancel:
			return decision, nil
		case "":
			return importer.DecisionCancel, &needsDecisionError{duplicates: duplicates}
		default:
			return importer.DecisionCancel, &needsDecisionError{duplicates: duplicates}
		}
	}
}

func (a *API) writeImportResult(w http.ResponseWriter, report importer.Report, err error) {
	var needs *needsDecisionError
	switch {
	case errors.As(err, &needs):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":      "duplicate decision required",
			"duplicates": needs.duplicates,
		})
	case errors.Is(err, importer.ErrCancelled):
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "cancelled",
			"report": report,
		})
	case err != nil:
		a.logger.Error().Err(err).Msg("import failed")
		writeError(w, http.StatusInternalServerError, "import failed")
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "imported",
			"report": report,
		})
	}
}

func (a *API) handleImportFiles(w http.ResponseWriter, r *http.Request) {
	var req importFilesRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Files) == 0 {
		writeError(w, http.StatusBadRequest, "no files supplied")
		return
	}
	fallback := req.MediaType
	if fallback == "" {
		fallback = models.MediaTypeAudio
	}
	if !fallback.IsValid() {
		writeError(w, http.StatusBadRequest, "invalid media type")
		return
	}

	report, err := a.importSvc.ImportFiles(r.Context(), req.Files, fallback, decisionFromRequest(req.Decision))
	a.writeImportResult(w, report, err)
}

func (a *API) handleImportFolder(w http.ResponseWriter, r *http.Request) {
	var req importFolderRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URI == "" {
		writeError(w, http.StatusBadRequest, "no folder uri supplied")
		return
	}

	report, err := a.importSvc.ImportFolder(r.Context(), req.URI, req.DisplayName, a.scanner, decisionFromRequest(req.Decision))
	a.writeImportResult(w, report, err)
}
