package domain

// RootIdentifier is the identifier Guacamole assigns to the implicit root group.
const RootIdentifier = "ROOT"

// GroupType is the kind of a connection group.
type GroupType string

const (
	GroupTypeOrganizational GroupType = "ORGANIZATIONAL"
	GroupTypeBalancing      GroupType = "BALANCING"
)

// Protocol is the remote desktop protocol of a connection.
type Protocol string

const (
	ProtocolSSH        Protocol = "ssh"
	ProtocolRDP        Protocol = "rdp"
	ProtocolVNC        Protocol = "vnc"
	ProtocolTelnet     Protocol = "telnet"
	ProtocolKubernetes Protocol = "kubernetes"
)

// Protocols lists the protocols accepted in import files.
var Protocols = []Protocol{ProtocolSSH, ProtocolRDP, ProtocolVNC, ProtocolTelnet, ProtocolKubernetes}

// GroupRecord is a connection group as listed by the remote directory.
type GroupRecord struct {
	Name              string            `json:"name"`
	Identifier        string            `json:"identifier"`
	ParentIdentifier  string            `json:"parentIdentifier"`
	Type              GroupType         `json:"type,omitempty"`
	ActiveConnections int               `json:"activeConnections"`
	Attributes        map[string]string `json:"attributes,omitempty"`
}

// ConnectionRecord is a connection as listed by the remote directory.
type ConnectionRecord struct {
	Name              string            `json:"name"`
	Identifier        string            `json:"identifier"`
	ParentIdentifier  string            `json:"parentIdentifier"`
	Protocol          Protocol          `json:"protocol"`
	ActiveConnections int               `json:"activeConnections"`
	Attributes        map[string]string `json:"attributes,omitempty"`
}

// ConnectionSpec is the payload used to create a connection remotely.
type ConnectionSpec struct {
	Name       string            `json:"name"`
	Protocol   Protocol          `json:"protocol"`
	Parameters map[string]string `json:"parameters"`
	Attributes map[string]string `json:"attributes"`
}
