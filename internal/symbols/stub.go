//go:build !cgo

package symbols

import "context"

// Scanner finds declarations in source files using tree-sitter.
// This is a stub implementation for builds without CGO.
type Scanner struct{}

// NewScanner creates a new declaration scanner.
// Returns nil when CGO is not available.
func NewScanner() *Scanner {
	return nil
}

// ScanSource parses source bytes and returns every named declaration.
// Stub implementation returns ErrNoCGO.
func (s *Scanner) ScanSource(ctx context.Context, source []byte, lang Language) ([]Declaration, error) {
	return nil, ErrNoCGO
}

// EnclosingDeclaration returns the innermost declaration containing a line.
// Stub implementation returns ErrNoCGO.
func (s *Scanner) EnclosingDeclaration(ctx context.Context, source []byte, lang Language, line int) (Declaration, bool, error) {
	return Declaration{}, false, ErrNoCGO
}

// IsAvailable returns whether source scanning is available.
// Returns false when CGO is disabled.
func IsAvailable() bool {
	return false
}
