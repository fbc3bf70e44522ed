package mirror

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatLocation encodes the origin channel into a scheduled event's
// location field as a channel mention token.
func FormatLocation(channelID int64) string {
	return fmt.Sprintf("<#%d>", channelID)
}

// ParseLocation extracts the origin channel ID back out of a location
// string. The coordinator depends on the exact `<#id>` shape.
func ParseLocation(location string) (int64, error) {
	_, after, found := strings.Cut(location, "#")
	if !found {
		return 0, fmt.Errorf("location %q has no channel reference", location)
	}
	raw, _, found := strings.Cut(after, ">")
	if !found {
		return 0, fmt.Errorf("location %q has an unterminated channel reference", location)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("location %q holds no numeric channel id: %w", location, err)
	}
	return id, nil
}
