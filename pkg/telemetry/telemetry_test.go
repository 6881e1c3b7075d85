// SPDX-License-Identifier: Apache-2.0
package telemetry

import (
	"context"
	"testing"
)

func TestSetupNoneIsNoOp(t *testing.T) {
	tel, err := Setup(context.Background(), Options{Exporter: "none"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Errorf("unexpected shutdown error: %v", err)
	}
}

func TestSetupRejectsUnknownExporter(t *testing.T) {
	if _, err := Setup(context.Background(), Options{Exporter: "jaeger"}); err == nil {
		t.Fatalf("expected error for unknown exporter")
	}
}

func TestSetupOTLPRequiresEndpoint(t *testing.T) {
	if _, err := Setup(context.Background(), Options{Exporter: "otlp"}); err == nil {
		t.Fatalf("expected error for missing endpoint")
	}
}
