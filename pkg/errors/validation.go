package errors

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/matzehuels/formulascope/pkg/formula"
)

// maxNameLength bounds formula and entity names accepted from users.
const maxNameLength = 256

// maxExpandNames bounds the number of names in one expansion request.
const maxExpandNames = 64

// ValidateFormulaName validates a calculation name taken from user input.
//
// Names are looked up verbatim, so the rules only reject what can never be
// a stored name:
//   - No empty or whitespace-only names
//   - Maximum length of 256 characters
//   - No control characters or null bytes
func ValidateFormulaName(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeInvalidInput, "formula name cannot be empty")
	}

	if len(name) > maxNameLength {
		return New(ErrCodeInvalidInput, "formula name too long (max %d characters)", maxNameLength)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "formula name contains invalid control characters")
		}
	}

	return nil
}

// objectIDRegex matches the hex form of a MongoDB ObjectID.
var objectIDRegex = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// ValidateObjectID validates a document id in its 24-character hex form.
func ValidateObjectID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidID, "id cannot be empty")
	}

	if !objectIDRegex.MatchString(id) {
		return New(ErrCodeInvalidID, "invalid id format: %q", id)
	}

	return nil
}

// ValidateExpandList validates the names a viewer asks to expand. Every
// entry must be a formula identifier, since only identifier nodes can be
// expanded.
func ValidateExpandList(names []string) error {
	if len(names) > maxExpandNames {
		return New(ErrCodeInvalidInput, "too many expanded names (max %d)", maxExpandNames)
	}

	for _, n := range names {
		if !formula.IsIdentifier(n) {
			return New(ErrCodeInvalidInput, "invalid name to expand: %q", n)
		}
	}

	return nil
}

// ValidateFormula checks formula text and reports problems under
// ErrCodeInvalidFormula, keeping the parse error as the cause.
func ValidateFormula(expr string) error {
	if err := formula.Validate(expr); err != nil {
		return Wrap(ErrCodeInvalidFormula, err, "invalid formula %q", expr)
	}
	return nil
}

// ValidateMongoURI validates a MongoDB connection string.
// It only checks the scheme; the driver reports everything else.
func ValidateMongoURI(uri string) error {
	if uri == "" {
		return New(ErrCodeInvalidConfig, "MongoDB URI cannot be empty")
	}

	if !strings.HasPrefix(uri, "mongodb://") && !strings.HasPrefix(uri, "mongodb+srv://") {
		return New(ErrCodeInvalidConfig, "MongoDB URI must use the mongodb or mongodb+srv scheme")
	}

	return nil
}
