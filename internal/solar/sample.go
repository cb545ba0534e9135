package solar

import "time"

// SampleInterval is the fallback scan resolution.
const SampleInterval = 10 * time.Minute

// sampleScan walks the day at a fixed interval. It cannot fail: ephemeris
// errors read as 0.0 degrees.
type sampleScan struct {
	ephem    Ephemeris
	interval time.Duration
}

// find records the first sample above threshold as the start and the first
// later sample at or below it as the end.
func (s sampleScan) find(d day, lat, lon, threshold float64) LockoutWindow {
	var w LockoutWindow
	for t := d.start; t.Before(d.end); t = t.Add(s.interval) {
		alt, _ := AltitudeOrZero(s.ephem, lat, lon, t) //nolint:errcheck // zero altitude is the documented fallback
		if w.Start == nil {
			if alt > threshold {
				w.Start = timePtr(t)
			}
			continue
		}
		if alt <= threshold {
			w.End = timePtr(t)
			break
		}
	}
	return w
}
