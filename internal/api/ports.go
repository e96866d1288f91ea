// Ports (interfaces) for API server dependencies.
package api

import (
	"context"
	"net/http"

	"github.com/mfitzp/kropbot/internal/direction"
	"github.com/mfitzp/kropbot/internal/history"
	"github.com/mfitzp/kropbot/internal/relay"
	"github.com/mfitzp/kropbot/internal/telemetry"
)

// CoordinatorPort defines the minimal interface the API needs from the
// relay coordinator.
type CoordinatorPort interface {
	RecordIntent(ctx context.Context, operator string, dir direction.Code) error
	ServeReport(ctx context.Context, actor string, report relay.StatusReport) ([]direction.Code, error)
	StoreFrame(ctx context.Context, actor string, data []byte) error
	LatestFrame() (relay.Frame, bool)
	History(ctx context.Context, limit int) ([]history.Record, error)
	Operators() int
}

// TelemetryPort defines the minimal interface the API needs from the
// telemetry hub.
type TelemetryPort interface {
	Subscribe(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// Compile-time assertions for port conformance
var _ CoordinatorPort = (*relay.Coordinator)(nil)
var _ TelemetryPort = (*telemetry.Hub)(nil)
