package server

import (
	"errors"
	"fmt"
	"testing"

	"github.com/knoguchi/qbridge/internal/binding"
	"github.com/knoguchi/qbridge/internal/monitor"
	"github.com/knoguchi/qbridge/internal/provider"
	"github.com/knoguchi/qbridge/internal/router"
)

func TestErrorKind(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{
			"configuration error",
			&binding.ConfigurationError{Collection: "docs", Reason: "bad dimension"},
			KindConfigurationError,
		},
		{
			"provider init error",
			&provider.InitializationError{Kind: "ollama", Model: "nomic-embed-text", Err: errors.New("unreachable")},
			KindProviderInitError,
		},
		{
			"dimension mismatch",
			&router.DimensionMismatchError{Collection: "docs", Declared: 768, Produced: 512},
			KindDimensionMismatch,
		},
		{
			"collector error",
			&monitor.CollectorError{Source: monitor.SourceContainer, Err: errors.New("no runtime")},
			KindCollectorUnavailable,
		},
		{
			"wrapped configuration error",
			fmt.Errorf("registering: %w", &binding.ConfigurationError{Collection: "docs", Reason: "conflict"}),
			KindConfigurationError,
		},
		{
			"unclassified error",
			errors.New("connection reset"),
			KindExternalService,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := errorKind(tc.err); got != tc.want {
				t.Errorf("errorKind(%v) = %s, want %s", tc.err, got, tc.want)
			}
		})
	}
}
