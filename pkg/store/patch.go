package store

import (
	"encoding/json"
	"strings"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/wI2L/jsondiff"
)

// PatchInfo is a tracked patch request: the JSON-Patch document plus the
// client provenance recorded with the resulting revision.
type PatchInfo struct {
	// ID is the client-assigned patch id, echoed back in events so the
	// originating client can recognize its own change.
	ID string `json:"id,omitempty"`

	// App and AppVersion identify the client application.
	App        string `json:"app,omitempty"`
	AppVersion string `json:"appVersion,omitempty"`

	// Patch is the RFC 6902 JSON-Patch document.
	Patch json.RawMessage `json:"patch"`
}

// PatchResult reports an applied patch together with its reverse patch.
type PatchResult struct {
	ID         string          `json:"id,omitempty"`
	App        string          `json:"app,omitempty"`
	AppVersion string          `json:"appVersion,omitempty"`

	// Patch is the applied document after protected-path filtering; it may
	// be smaller than what the client sent.
	Patch json.RawMessage `json:"patch"`

	// Revert is the reverse patch: applying it to the new state restores
	// the previous one.
	Revert json.RawMessage `json:"revert"`
}

// protectedPatchPaths are file fields a patch may never touch. Operations
// hitting these paths are silently dropped rather than rejected, so a stale
// client cannot corrupt access state but also does not hard-fail.
var protectedPatchPaths = []string{
	"/permissions",
	"/permissionIds",
	"/deleted",
	"/deletedInfo",
	"/parents",
	"/key",
	"/kind",
	"/owner",
	"/lastModified",
	"/capabilities",
}

func pathProtected(path string) bool {
	for _, protected := range protectedPatchPaths {
		if path == protected || strings.HasPrefix(path, protected+"/") {
			return true
		}
	}
	return false
}

func malformedPatch() error {
	return &StoreError{Code: ErrBadRequest, Message: "Malformed patch information"}
}

// filterProtectedOps validates patch well-formedness and drops operations
// targeting protected paths. Returns the remaining document, which may be
// empty.
func filterProtectedOps(raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 {
		return nil, malformedPatch()
	}
	decoded, err := jsonpatch.DecodePatch(raw)
	if err != nil {
		return nil, malformedPatch()
	}

	filtered := make(jsonpatch.Patch, 0, len(decoded))
	for _, op := range decoded {
		path, err := op.Path()
		if err != nil {
			return nil, malformedPatch()
		}
		if pathProtected(path) {
			continue
		}
		// "move" and "copy" read from a source path which is protected too.
		if from, err := op.From(); err == nil && pathProtected(from) {
			continue
		}
		filtered = append(filtered, op)
	}

	data, err := json.Marshal(filtered)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// applyPatch applies an already-filtered patch document to a JSON document.
func applyPatch(doc []byte, patch json.RawMessage) ([]byte, error) {
	decoded, err := jsonpatch.DecodePatch(patch)
	if err != nil {
		return nil, malformedPatch()
	}
	result, err := decoded.Apply(doc)
	if err != nil {
		return nil, &StoreError{Code: ErrBadRequest, Message: "The patch cannot be applied: " + err.Error()}
	}
	return result, nil
}

// reversePatch computes the patch that transforms after back into before.
func reversePatch(before, after []byte) (json.RawMessage, error) {
	diff, err := jsondiff.CompareJSON(after, before)
	if err != nil {
		return nil, err
	}
	if diff == nil {
		return json.RawMessage("[]"), nil
	}
	return json.Marshal(diff)
}

// structuralDiff computes the forward patch between two document states and
// reports whether anything changed at all.
func structuralDiff(before, after []byte) (json.RawMessage, bool, error) {
	diff, err := jsondiff.CompareJSON(before, after)
	if err != nil {
		return nil, false, err
	}
	if len(diff) == 0 {
		return json.RawMessage("[]"), false, nil
	}
	data, err := json.Marshal(diff)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}
