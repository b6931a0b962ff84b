package chunkstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	rcerrors "github.com/maic-lab/ragcore/internal/errors"
)

// State is the readiness marker value. The marker is a closed enumeration:
// readers reject anything that is not one of the three canonical strings.
type State string

const (
	// StateReady means a structurally valid, queryable generation exists.
	StateReady State = "READY"
	// StateBuilding means a build or restore is in progress.
	StateBuilding State = "BUILDING"
	// StateMissing means no valid chunk store is present.
	StateMissing State = "MISSING"
)

// MarkerFileName is the readiness marker file under the persist root.
const MarkerFileName = ".ready"

// legacyReadySynonyms are marker spellings older deployments wrote in place
// of the canonical READY. They are never accepted at read time; MigrateMarker
// rewrites them once, explicitly.
var legacyReadySynonyms = map[string]struct{}{
	"ready": {},
	"ok":    {},
	"done":  {},
	"true":  {},
}

// ParseState validates a marker string against the closed enumeration.
func ParseState(s string) (State, error) {
	switch State(strings.TrimSpace(s)) {
	case StateReady:
		return StateReady, nil
	case StateBuilding:
		return StateBuilding, nil
	case StateMissing:
		return StateMissing, nil
	default:
		return "", rcerrors.New(rcerrors.ErrCodeMarkerInvalid,
			fmt.Sprintf("unrecognized readiness marker %q", strings.TrimSpace(s)), nil).
			WithSuggestion("run 'ragcore status --migrate-marker' if this store predates canonical markers")
	}
}

// ReadMarker reads and validates the readiness marker. A missing marker
// file reads as MISSING; an invalid value is an error, never coerced.
func ReadMarker(root string) (State, error) {
	data, err := os.ReadFile(filepath.Join(root, MarkerFileName))
	if os.IsNotExist(err) {
		return StateMissing, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read readiness marker: %w", err)
	}
	return ParseState(string(data))
}

// WriteMarker persists a canonical marker value atomically.
func WriteMarker(root string, state State) error {
	if _, err := ParseState(string(state)); err != nil {
		return err
	}

	path := filepath.Join(root, MarkerFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(state), 0o644); err != nil {
		return fmt.Errorf("failed to write readiness marker: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to publish readiness marker: %w", err)
	}
	return nil
}

// MigrateMarker rewrites a known legacy READY synonym to the canonical
// value. Returns true if a migration happened. Unknown garbage is left in
// place and reported as an error so the operator sees it.
func MigrateMarker(root string) (bool, error) {
	data, err := os.ReadFile(filepath.Join(root, MarkerFileName))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read readiness marker: %w", err)
	}

	raw := strings.TrimSpace(string(data))
	if _, err := ParseState(raw); err == nil {
		return false, nil // Already canonical.
	}

	if _, ok := legacyReadySynonyms[strings.ToLower(raw)]; !ok {
		return false, rcerrors.New(rcerrors.ErrCodeMarkerInvalid,
			fmt.Sprintf("marker %q is not a known legacy synonym; refusing to migrate", raw), nil)
	}

	if err := WriteMarker(root, StateReady); err != nil {
		return false, err
	}
	return true, nil
}
