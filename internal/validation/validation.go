// Package validation checks import entries before they reach the importer.
package validation

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/bcnelson/guacamole-csv-importer/internal/domain"
)

// ValidateHeaders reports whether headers is exactly the entry field set,
// in any order and without duplicates.
func ValidateHeaders(headers []string) bool {
	if len(headers) != len(domain.EntryFields) {
		return false
	}
	seen := make(map[string]bool, len(headers))
	for _, h := range headers {
		if seen[h] || !slices.Contains(domain.EntryFields, h) {
			return false
		}
		seen[h] = true
	}
	return true
}

// ValidateProtocol checks that protocol is one Guacamole supports for import.
func ValidateProtocol(protocol string) error {
	if !slices.Contains(domain.Protocols, domain.Protocol(protocol)) {
		names := make([]string, len(domain.Protocols))
		for i, p := range domain.Protocols {
			names[i] = string(p)
		}
		return fmt.Errorf("unsupported protocol, must be one of: %s", strings.Join(names, ", "))
	}
	return nil
}

// ValidatePort checks that port is a TCP port number.
func ValidatePort(port string) error {
	n, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("port must be a number")
	}
	if n < 1 || n > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}

// ValidateSite rejects path segments with leading or trailing whitespace,
// which would otherwise create look-alike groups.
func ValidateSite(site string) error {
	for _, segment := range strings.Split(site, "/") {
		if strings.TrimSpace(segment) != segment {
			return fmt.Errorf("group names must not start or end with whitespace")
		}
	}
	return nil
}

// ValidateEntry checks every field of an entry and returns all problems found.
func ValidateEntry(e domain.Entry) error {
	var errs ValidationErrors

	required := []struct {
		field, value string
	}{
		{"site", e.Site},
		{"device_name", e.DeviceName},
		{"hostname", e.Hostname},
		{"protocol", string(e.Protocol)},
		{"port", e.Port},
	}
	for _, r := range required {
		if r.value == "" {
			errs.Add(e.Line, r.field, r.value, "is required")
		}
	}
	if errs.HasErrors() {
		return errs
	}

	if err := ValidateSite(e.Site); err != nil {
		errs.Add(e.Line, "site", e.Site, err.Error())
	}
	if err := ValidateProtocol(string(e.Protocol)); err != nil {
		errs.Add(e.Line, "protocol", string(e.Protocol), err.Error())
	}
	if err := ValidatePort(e.Port); err != nil {
		errs.Add(e.Line, "port", e.Port, err.Error())
	}

	return errs.OrNil()
}
