package domain

import "fmt"

// ValidateCaseID gates every filesystem and storage access keyed by case. Only
// a conservative character set is accepted so a case ID can never traverse
// outside its own directory.
func ValidateCaseID(caseID string) error {
	if caseID == "" {
		return WrapError(ErrInvalidInput, "validate case id", fmt.Errorf("case id is empty"))
	}
	if len(caseID) > 64 {
		return WrapError(ErrInvalidInput, "validate case id", fmt.Errorf("case id exceeds 64 characters"))
	}
	for _, r := range caseID {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return WrapError(ErrInvalidInput, "validate case id", fmt.Errorf("case id contains %q", r))
		}
	}
	return nil
}
