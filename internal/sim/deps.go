package sim

import (
	"log"

	"github.com/jackandcarter/Adventure-2.0-sub000/internal/telemetry"
	"github.com/jackandcarter/Adventure-2.0-sub000/logging"
)

// Deps carries shared infrastructure dependencies required by the loop and
// its rooms.
type Deps struct {
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Clock     logging.Clock
	Publisher logging.Publisher
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = telemetry.WrapLogger(log.Default())
	}
	if d.Metrics == nil {
		d.Metrics = telemetry.NopMetrics{}
	}
	if d.Clock == nil {
		d.Clock = logging.SystemClock{}
	}
	if d.Publisher == nil {
		d.Publisher = logging.NopPublisher()
	}
	return d
}
