package honeycomb

import (
	"fmt"
	"testing"

	"github.com/honeycombio/dynsampler-go"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
)

var samplerTests = []struct {
	scenario string
	fields   map[string]interface{}
	sample   bool
	rate     int
}{
	{
		"counter query",
		map[string]interface{}{
			"trace.trace_id":   "ede23f67-2048-491b-ba71-749a8a00444f",
			"http.server_name": "api",
			"http.route":       "/counter",
			"http.status_code": 200,
		},
		true, 1,
	},
	{
		"ready-check with no problems",
		map[string]interface{}{
			"trace.trace_id":   "ede23f67-2048-491b-ba71-749a8a00444f",
			"http.server_name": "admin",
			"http.route":       "/ready",
			"http.status_code": 200,
		},
		false, 0,
	},
	{
		"sampled in via meta field",
		map[string]interface{}{
			"trace.trace_id":   "ede23f67-2048-491b-ba71-749a8a00444f",
			"http.server_name": "admin",
			"http.route":       "/ready",
			"http.status_code": 200,
			"meta.keep.span":   true,
		},
		true, 1,
	},
	{
		"rejected counter update is a warning",
		map[string]interface{}{
			"trace.trace_id":   "ede23f67-2048-491b-ba71-749a8a00444f",
			"http.server_name": "api",
			"http.route":       "/counter",
			"http.status_code": 400,
			"warning":          "do not like the number 10",
		},
		true, 1,
	},
	{
		"failing ready-check is an error",
		map[string]interface{}{
			"trace.trace_id":   "ede23f67-2048-491b-ba71-749a8a00444f",
			"http.server_name": "admin",
			"http.route":       "/ready",
			"http.status_code": 200,
			"error":            "boom",
		},
		true, 1,
	},
	{
		"ready-check with no problems but trace hits sample rate",
		map[string]interface{}{
			"trace.trace_id":   "9d45eecd-e447-4418-bd9b-1ac3c32346d5",
			"http.server_name": "admin",
			"http.route":       "/ready",
			"http.status_code": 200,
		},
		true, 1e3,
	},
}

func TestSamplerHook(t *testing.T) {
	sampler := &TraceSampler{
		KeyFunc: func(fields map[string]interface{}) string {
			return fmt.Sprintf("%s %s %d",
				fields["http.server_name"],
				fields["http.route"],
				fields["http.status_code"],
			)
		},
		Sampler: &dynsampler.Static{
			Default: 1,
			Rates: map[string]int{
				"admin /ready 200": 1e3,
			},
		},
	}
	for _, tt := range samplerTests {
		t.Run(tt.scenario, func(t *testing.T) {
			sample, rate := sampler.Hook(tt.fields)
			assert.Check(t, cmp.Equal(sample, tt.sample))
			assert.Check(t, cmp.Equal(rate, tt.rate))
		})
	}
}

func TestShouldSample_SameTraceSameDecision(t *testing.T) {
	for _, id := range []string{"a", "ede23f67-2048-491b-ba71-749a8a00444f", "9d45eecd-e447-4418-bd9b-1ac3c32346d5"} {
		first := shouldSample(id, 10)
		for i := 0; i < 5; i++ {
			assert.Check(t, cmp.Equal(shouldSample(id, 10), first))
		}
	}
	assert.Check(t, shouldSample("anything", 0))
	assert.Check(t, shouldSample("anything", 1))
}
