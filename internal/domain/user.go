package domain

import (
	"sort"
	"time"
)

// Role is an account role with a fixed capability set.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleAgent  Role = "agent"
	RoleViewer Role = "viewer"
)

// Capability is one explicitly named permission. Authorization checks are
// capability membership, never free-form permission strings.
type Capability string

const (
	CapTicketRead      Capability = "ticket:read"
	CapTicketWrite     Capability = "ticket:write"
	CapTicketAssign    Capability = "ticket:assign"
	CapTicketEscalate  Capability = "ticket:escalate"
	CapResponseSend    Capability = "response:send"
	CapChannelManage   Capability = "channel:manage"
	CapTemplateManage  Capability = "template:manage"
	CapImportTickets   Capability = "ticket:import"
	CapReportsView     Capability = "reports:view"
)

var roleCapabilities = map[Role]map[Capability]struct{}{
	RoleAdmin: capSet(
		CapTicketRead, CapTicketWrite, CapTicketAssign, CapTicketEscalate,
		CapResponseSend, CapChannelManage, CapTemplateManage,
		CapImportTickets, CapReportsView,
	),
	RoleAgent: capSet(
		CapTicketRead, CapTicketWrite, CapTicketAssign, CapTicketEscalate,
		CapResponseSend, CapReportsView,
	),
	RoleViewer: capSet(CapTicketRead, CapReportsView),
}

func capSet(caps ...Capability) map[Capability]struct{} {
	set := make(map[Capability]struct{}, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

// Can reports whether the role grants the capability.
func (r Role) Can(c Capability) bool {
	caps, ok := roleCapabilities[r]
	if !ok {
		return false
	}
	_, granted := caps[c]
	return granted
}

// Capabilities lists the capabilities the role grants, sorted by name.
func (r Role) Capabilities() []Capability {
	caps := make([]Capability, 0, len(roleCapabilities[r]))
	for c := range roleCapabilities[r] {
		caps = append(caps, c)
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i] < caps[j] })
	return caps
}

// User is a back-office account used for assignment and audit identity.
type User struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
