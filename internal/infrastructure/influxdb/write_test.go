package influxdb

import (
	"testing"
	"time"
)

func TestDecisionPoint(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name     string
		in       Decision
		wantTags map[string]string
		wantSafe int64
	}{
		{
			name:     "safe with roof",
			in:       Decision{Site: "east", IsSafe: true, Reason: "roof_open", RoofName: "North", Changed: true, At: at},
			wantTags: map[string]string{"site": "east", "reason": "roof_open", "roof": "North"},
			wantSafe: 1,
		},
		{
			name:     "unsafe without roof",
			in:       Decision{Site: "east", Reason: "solar_lockout", At: at},
			wantTags: map[string]string{"site": "east", "reason": "solar_lockout"},
			wantSafe: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DecisionPoint(tt.in)

			if p.Name() != MeasurementDecision {
				t.Errorf("Name() = %q", p.Name())
			}
			if !p.Time().Equal(at) {
				t.Errorf("Time() = %v, want %v", p.Time(), at)
			}

			tags := map[string]string{}
			for _, tag := range p.TagList() {
				tags[tag.Key] = tag.Value
			}
			if len(tags) != len(tt.wantTags) {
				t.Errorf("tags = %v, want %v", tags, tt.wantTags)
			}
			for k, v := range tt.wantTags {
				if tags[k] != v {
					t.Errorf("tag %s = %q, want %q", k, tags[k], v)
				}
			}

			fields := map[string]any{}
			for _, f := range p.FieldList() {
				fields[f.Key] = f.Value
			}
			if fields["is_safe"] != tt.wantSafe {
				t.Errorf("is_safe = %v, want %d", fields["is_safe"], tt.wantSafe)
			}
			if fields["changed"] != tt.in.Changed {
				t.Errorf("changed = %v, want %v", fields["changed"], tt.in.Changed)
			}
		})
	}
}

func TestAltitudePoint(t *testing.T) {
	p := AltitudePoint("east", 12.5, time.Unix(0, 0))

	if p.Name() != MeasurementAltitude {
		t.Errorf("Name() = %q", p.Name())
	}
	fields := p.FieldList()
	if len(fields) != 1 || fields[0].Key != "degrees" || fields[0].Value != 12.5 {
		t.Errorf("fields = %+v", fields)
	}
}
