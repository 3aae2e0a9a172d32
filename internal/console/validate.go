package console

import (
	"strings"
	"unicode/utf8"

	"github.com/arklim/catalog-access/internal/core/domain"
)

const maxNameLength = 128

// ValidateRole checks a candidate role against the catalog's naming rules and
// returns a field-to-message map; an empty map means the candidate is valid.
//
// Validation only runs when a prior error state exists or force is set. With
// force unset and no recorded errors the function returns an empty map
// unconditionally, even for invalid input. Submission paths therefore always
// pass force=true; the relaxed path exists for as-you-type revalidation,
// which only needs to clear or update errors already on screen.
func ValidateRole(candidate domain.Role, existing []domain.Role, force bool, prior map[string]string) map[string]string {
	errs := map[string]string{}
	if prior == nil && !force {
		return errs
	}

	name := strings.TrimSpace(candidate.Name)
	if name == "" {
		errs["name"] = "name is required"
	} else if utf8.RuneCountInString(name) > maxNameLength {
		errs["name"] = "name must be at most 128 characters"
	} else {
		for _, role := range existing {
			if domain.EqualNameFold(role.Name, name) {
				errs["name"] = "name already exists"
				break
			}
		}
	}

	displayName := strings.TrimSpace(candidate.DisplayName)
	if displayName == "" {
		errs["displayName"] = "display name is required"
	} else if utf8.RuneCountInString(displayName) > maxNameLength {
		errs["displayName"] = "display name must be at most 128 characters"
	}

	return errs
}

// ValidateRule checks a candidate policy rule with the same force/prior-error
// gating as ValidateRole.
func ValidateRule(rule domain.Rule, force bool, prior map[string]string) map[string]string {
	errs := map[string]string{}
	if prior == nil && !force {
		return errs
	}

	if rule.Operation == "" {
		errs["operation"] = "operation is required"
	}

	return errs
}
