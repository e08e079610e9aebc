package ntp

import (
	"fmt"
	"strings"

	"sysconfd/internal/types"
)

// DefaultPort is the NTP port used until a port leaf is set
const DefaultPort = 123

// AssociationType classifies a time source
type AssociationType string

const (
	AssociationServer AssociationType = "server"
	AssociationPool   AssociationType = "pool"
	AssociationPeer   AssociationType = "peer"
)

// ParseAssociationType converts a leaf value into an AssociationType
func ParseAssociationType(s string) (AssociationType, error) {
	switch a := AssociationType(strings.TrimSpace(s)); a {
	case AssociationServer, AssociationPool, AssociationPeer:
		return a, nil
	default:
		return "", types.NewError(types.KindParseError, "parse association-type",
			fmt.Errorf("unknown association type %q", s))
	}
}

// Server is one time source record
type Server struct {
	Name            string          `json:"name"`
	Address         string          `json:"address"`
	Port            int             `json:"port"`
	AssociationType AssociationType `json:"association_type"`
	Iburst          bool            `json:"iburst"`
	Prefer          bool            `json:"prefer"`
}

func newServer(name string) *Server {
	return &Server{
		Name:            name,
		Port:            DefaultPort,
		AssociationType: AssociationServer,
	}
}

// line renders the server in time-daemon config grammar
func (s *Server) line() string {
	var b strings.Builder
	fmt.Fprintf(&b, "server %s:%d %s", s.Address, s.Port, s.AssociationType)
	if s.Iburst {
		b.WriteString(" iburst")
	}
	if s.Prefer {
		b.WriteString(" prefer")
	}
	return b.String()
}
