// SPDX-License-Identifier: MPL-2.0

package report

import (
	"errors"
	"fmt"
	"time"
)

const (
	// FaultTransient asks the host to restart or relocate the instance.
	FaultTransient FaultKind = iota + 1
	// FaultPermanent marks the instance as unrecoverable.
	FaultPermanent
)

const (
	// SeverityOK reports a healthy condition.
	SeverityOK Severity = iota + 1
	// SeverityWarning reports a degraded but functioning condition.
	SeverityWarning
	// SeverityError reports a failed condition.
	SeverityError
)

// Well-known health categories emitted by the lifecycle controller.
const (
	CategoryLifecycle = "lifecycle"
	CategoryRun       = "run"
	CategoryListener  = "listener"
	CategoryHeartbeat = "heartbeat"
)

var (
	// ErrInvalidFaultKind is returned when a FaultKind value is not recognized.
	ErrInvalidFaultKind = errors.New("invalid fault kind")
	// ErrInvalidSeverity is returned when a Severity value is not recognized.
	ErrInvalidSeverity = errors.New("invalid severity")
)

type (
	// FaultKind classifies a reported fault.
	FaultKind int

	// Severity is the health state carried by a HealthInfo.
	Severity int

	// HealthInfo is a single health signal.
	HealthInfo struct {
		Severity    Severity  `json:"severity"`
		Category    string    `json:"category"`
		Description string    `json:"description"`
		Time        time.Time `json:"time"`
	}

	// Sink receives fault and health reports.
	Sink interface {
		ReportFault(kind FaultKind) error
		ReportHealth(info HealthInfo) error
	}
)

// String returns the name of the fault kind.
func (k FaultKind) String() string {
	switch k {
	case FaultTransient:
		return "transient"
	case FaultPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Validate returns nil if the FaultKind is one of the defined kinds.
func (k FaultKind) Validate() error {
	switch k {
	case FaultTransient, FaultPermanent:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrInvalidFaultKind, int(k))
	}
}

// MarshalText encodes the fault kind by name.
func (k FaultKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a fault kind name written by MarshalText.
func (k *FaultKind) UnmarshalText(text []byte) error {
	parsed, err := ParseFaultKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseFaultKind returns the FaultKind named name.
func ParseFaultKind(name string) (FaultKind, error) {
	for _, k := range []FaultKind{FaultTransient, FaultPermanent} {
		if k.String() == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidFaultKind, name)
}

// String returns the name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityOK:
		return "ok"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Validate returns nil if the Severity is one of the defined severities.
func (s Severity) Validate() error {
	switch s {
	case SeverityOK, SeverityWarning, SeverityError:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrInvalidSeverity, int(s))
	}
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name written by MarshalText.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity returns the Severity named name.
func ParseSeverity(name string) (Severity, error) {
	for _, s := range []Severity{SeverityOK, SeverityWarning, SeverityError} {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidSeverity, name)
}

// Health builds a HealthInfo stamped with the current time.
func Health(sev Severity, category, description string) HealthInfo {
	return HealthInfo{
		Severity:    sev,
		Category:    category,
		Description: description,
		Time:        time.Now(),
	}
}
