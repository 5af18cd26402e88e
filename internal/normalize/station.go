package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	walkRegex         = regexp.MustCompile(`徒歩\s*(\d+)\s*分`)
	stationSplitRegex = regexp.MustCompile(`[-－–—]|徒歩`)
	lineRegex         = regexp.MustCompile(`(.+?線)`)
	bracketNameRegex  = regexp.MustCompile(`「([^」]+)」`)
	slashNameRegex    = regexp.MustCompile(`/\s*([^\s－\-–—/]+)`)
)

// StationInfo is the nearest-station access of a listing.
type StationInfo struct {
	Line        *string `json:"line" bson:"line"`
	Name        *string `json:"name" bson:"name"`
	WalkMinutes *int    `json:"walk_minutes" bson:"walk_minutes"`
}

// ParseStationBlock splits "Line/Station-徒歩5分" style text. Walk minutes
// are read regardless of the shape of the rest.
func ParseStationBlock(s string) StationInfo {
	t := Z2H(s)
	if t == "" {
		return StationInfo{}
	}

	var info StationInfo
	if m := walkRegex.FindStringSubmatch(t); m != nil {
		if walk, err := strconv.Atoi(m[1]); err == nil {
			info.WalkMinutes = &walk
		}
	}

	if strings.Contains(t, "/") {
		parts := strings.Split(t, "/")
		info.Line = nonEmpty(parts[0])
		info.Name = nonEmpty(stationSplitRegex.Split(parts[1], 2)[0])
		return info
	}

	if m := lineRegex.FindStringSubmatch(t); m != nil {
		info.Line = nonEmpty(m[1])
	}
	if m := bracketNameRegex.FindStringSubmatch(t); m != nil {
		info.Name = nonEmpty(m[1])
	} else if m := slashNameRegex.FindStringSubmatch(t); m != nil {
		info.Name = nonEmpty(m[1])
	}
	return info
}

func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
