package netscan

import (
	"regexp"
	"strings"
)

// Observation is one (IP, MAC) pair seen on the network during a scan. It
// lives only for the duration of one scan/report cycle and is never
// persisted.
type Observation struct {
	IP  string `json:"ip"`
	MAC string `json:"mac"`
}

// observationLine matches scanner output lines that begin with an IPv4
// dotted quad followed by whitespace and a MAC token. Banner lines,
// warnings, and blank lines don't match and are dropped.
var observationLine = regexp.MustCompile(`^(\d{1,3}(?:\.\d{1,3}){3})\s+(\S+)`)

// Parse converts raw scanner output into observations. It is total:
// malformed lines are silently discarded, never an error. Output order
// follows input order and duplicates by MAC are kept; deduplication is the
// aggregator's job.
func Parse(raw string) []Observation {
	var observations []Observation
	for _, line := range strings.Split(raw, "\n") {
		m := observationLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		observations = append(observations, Observation{
			IP:  m[1],
			MAC: strings.ToLower(m[2]),
		})
	}
	return observations
}
