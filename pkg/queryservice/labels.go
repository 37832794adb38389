package queryservice

import (
	"strings"

	"github.com/trustify/trustify/pkg/apperr"
)

// Labels is a label-carrying entity's key/value set (spec.md §4.9).
type Labels map[string]string

// LabelUpdate is a partial label mutation: a present nil value deletes
// the key, any other value sets it (spec.md §4.9's
// "{string: string?} where null deletes the key").
type LabelUpdate map[string]*string

// ValidateLabels trims every key/value and rejects a key containing '='
// or '\' with InvalidLabel (spec.md §4.9), returning the normalized set.
func ValidateLabels(labels Labels) (Labels, error) {
	out := make(Labels, len(labels))
	for k, v := range labels {
		key := strings.TrimSpace(k)
		if key == "" {
			return nil, invalidLabelErr(k)
		}
		if strings.ContainsAny(key, "=\\") {
			return nil, invalidLabelErr(k)
		}
		out[key] = strings.TrimSpace(v)
	}
	return out, nil
}

// ApplyLabelUpdate produces the labels that result from applying update
// to current, validating and trimming every key named in update the
// same way ValidateLabels does; keys carried over from current are not
// re-checked.
func ApplyLabelUpdate(current Labels, update LabelUpdate) (Labels, error) {
	next := make(Labels, len(current))
	for k, v := range current {
		next[k] = v
	}
	for k, v := range update {
		key := strings.TrimSpace(k)
		if key == "" || strings.ContainsAny(key, "=\\") {
			return nil, invalidLabelErr(k)
		}
		if v == nil {
			delete(next, key)
			continue
		}
		next[key] = strings.TrimSpace(*v)
	}
	return next, nil
}

func invalidLabelErr(key string) error {
	return apperr.New(apperr.KindInvalidLabel, "invalid label key %q", key)
}
