package server

import (
	"errors"

	"github.com/knoguchi/qbridge/internal/binding"
	"github.com/knoguchi/qbridge/internal/monitor"
	"github.com/knoguchi/qbridge/internal/provider"
	"github.com/knoguchi/qbridge/internal/router"
)

// Error kinds reported to tool callers. Every failure maps to exactly
// one kind so the caller can distinguish a bad binding from a flaky
// backend.
const (
	KindConfigurationError   = "configuration_error"
	KindProviderInitError    = "provider_initialization_error"
	KindDimensionMismatch    = "vector_dimension_mismatch"
	KindCollectorUnavailable = "collector_unavailable"
	KindExternalService      = "external_service_error"
)

// errorKind classifies an error chain into one of the reported kinds.
// Anything unrecognized is an external service failure.
func errorKind(err error) string {
	var cfgErr *binding.ConfigurationError
	if errors.As(err, &cfgErr) {
		return KindConfigurationError
	}
	var initErr *provider.InitializationError
	if errors.As(err, &initErr) {
		return KindProviderInitError
	}
	var dimErr *router.DimensionMismatchError
	if errors.As(err, &dimErr) {
		return KindDimensionMismatch
	}
	var colErr *monitor.CollectorError
	if errors.As(err, &colErr) {
		return KindCollectorUnavailable
	}
	return KindExternalService
}
