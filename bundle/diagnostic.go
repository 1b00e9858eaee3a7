package bundle

import (
	"fmt"

	"go.uber.org/zap"
)

// Severity grades a diagnostic.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "info"
}

// Diagnostic codes.
const (
	CodeRepaired            = "icu-repaired"
	CodeDegraded            = "icu-degraded"
	CodeDroppedPlaceholders = "plural-placeholders-dropped"
	CodeCollision           = "identifier-collision"
	CodeDuplicateKey        = "duplicate-key"
)

// Diagnostic is a non-fatal finding produced while assembling a bundle.
type Diagnostic struct {
	Severity Severity
	Code     string
	Key      string
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Severity, d.Key, d.Message)
}

func (d Diagnostic) log(l *zap.Logger) {
	fields := []zap.Field{zap.String("key", d.Key), zap.String("code", d.Code)}
	if d.Severity == SeverityWarning {
		l.Warn(d.Message, fields...)
		return
	}
	l.Info(d.Message, fields...)
}

func collisionDiagnostic(key, first, identifier, outcome string) Diagnostic {
	return Diagnostic{
		Severity: SeverityWarning,
		Code:     CodeCollision,
		Key:      key,
		Message:  fmt.Sprintf("identifier %q already used by %q, %s", identifier, first, outcome),
	}
}
