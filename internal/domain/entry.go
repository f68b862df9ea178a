package domain

// EntryFields is the exact column set of an import file.
var EntryFields = []string{"site", "device_name", "hostname", "protocol", "port", "username", "password"}

// Entry is one desired connection read from an import file.
type Entry struct {
	// Line is the 1-based line of the entry in its source file, zero if unknown.
	Line int `json:"line,omitempty"`

	Site       string   `json:"site"`
	DeviceName string   `json:"device_name"`
	Hostname   string   `json:"hostname"`
	Protocol   Protocol `json:"protocol"`
	Port       string   `json:"port"`
	Username   string   `json:"username"`
	Password   string   `json:"password"`
}

// Spec returns the creation payload for the entry.
// Attributes are left to the caller.
func (e Entry) Spec() ConnectionSpec {
	return ConnectionSpec{
		Name:     e.DeviceName,
		Protocol: e.Protocol,
		Parameters: map[string]string{
			"hostname": e.Hostname,
			"port":     e.Port,
			"username": e.Username,
			"password": e.Password,
		},
	}
}
