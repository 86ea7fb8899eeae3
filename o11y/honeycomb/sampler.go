package honeycomb

import (
	"fmt"
	"hash/crc32"
	"math"

	"github.com/honeycombio/dynsampler-go"
)

// TraceSampler keeps a share of the traces for each sample key, as given by
// Sampler. Spans that are marked to be kept, or that record an error or a
// warning, are never dropped.
type TraceSampler struct {
	// KeyFunc maps an event's fields to the key Sampler looks its rate up by
	KeyFunc func(map[string]interface{}) string

	Sampler dynsampler.Sampler
}

// Hook implements beeline.Config.SamplerHook
func (s *TraceSampler) Hook(fields map[string]interface{}) (sample bool, rate int) {
	if mustKeep(fields) {
		return true, 1
	}

	rate = s.Sampler.GetSampleRate(s.KeyFunc(fields))
	if !shouldSample(fmt.Sprintf("%v", fields["trace.trace_id"]), rate) {
		return false, 0
	}
	return true, rate
}

func mustKeep(fields map[string]interface{}) bool {
	if keep, _ := fields["meta.keep.span"].(bool); keep {
		return true
	}
	for _, k := range []string{"error", "warning"} {
		if _, ok := fields[k]; ok {
			return true
		}
	}
	return false
}

// shouldSample decides on the trace id, so all the spans of a trace are kept or dropped together.
//
// See https://github.com/honeycombio/beeline-go/blob/master/sample/deterministic_sampler.go
func shouldSample(traceID string, rate int) bool {
	if rate <= 1 {
		return true
	}

	threshold := math.MaxUint32 / uint32(rate) //nolint:gosec
	return crc32.ChecksumIEEE([]byte(traceID)) < threshold
}
