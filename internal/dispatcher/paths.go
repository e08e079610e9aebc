package dispatcher

import (
	"fmt"
	"strings"

	"sysconfd/internal/types"
)

// Leaf paths of the system configuration tree
const (
	SystemPrefix       = "/ietf-system:system"
	HostnamePath       = SystemPrefix + "/hostname"
	ContactPath        = SystemPrefix + "/contact"
	LocationPath       = SystemPrefix + "/location"
	ClockPrefix        = SystemPrefix + "/clock"
	TimezoneNamePath   = ClockPrefix + "/timezone-name"
	TimezoneOffsetPath = ClockPrefix + "/timezone-utc-offset"
	NTPPrefix          = SystemPrefix + "/ntp"
	NTPEnabledPath     = NTPPrefix + "/enabled"
	NTPServerPrefix    = NTPPrefix + "/server"
)

// Leaves of an NTP server list entry
const (
	leafName            = "name"
	leafAddress         = "address"
	leafPort            = "port"
	leafAssociationType = "association-type"
	leafIburst          = "iburst"
	leafPrefer          = "prefer"
)

// serverRef addresses one leaf of an NTP server list entry. Leaf is empty
// when the path names the entry itself.
type serverRef struct {
	Name string
	Leaf string
}

// parseServerPath splits /…/ntp/server[name='k']/[udp/]leaf into its key
// and leaf
func parseServerPath(path string) (serverRef, error) {
	rest, ok := strings.CutPrefix(path, NTPServerPrefix)
	if !ok {
		return serverRef{}, pathError(path, "not an ntp server path")
	}

	rest, ok = strings.CutPrefix(rest, "[name=")
	if !ok || rest == "" {
		return serverRef{}, pathError(path, "missing name predicate")
	}

	quote := rest[0]
	if quote != '\'' && quote != '"' {
		return serverRef{}, pathError(path, "unquoted name predicate")
	}
	end := strings.IndexByte(rest[1:], quote)
	if end < 0 {
		return serverRef{}, pathError(path, "unterminated name predicate")
	}
	name := rest[1 : end+1]
	rest = rest[end+2:]

	rest, ok = strings.CutPrefix(rest, "]")
	if !ok {
		return serverRef{}, pathError(path, "malformed name predicate")
	}
	if name == "" {
		return serverRef{}, pathError(path, "empty server name")
	}

	leaf := strings.TrimPrefix(rest, "/")
	leaf = strings.TrimPrefix(leaf, "udp/")
	return serverRef{Name: name, Leaf: leaf}, nil
}

// serverEntryPath returns the list entry path for name
func serverEntryPath(name string) string {
	return fmt.Sprintf("%s[name='%s']", NTPServerPrefix, name)
}

func pathError(path, msg string) error {
	return types.NewError(types.KindParseError, "parse path", fmt.Errorf("%s: %s", path, msg))
}
