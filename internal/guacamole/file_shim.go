package guacamole

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"

	"github.com/bcnelson/guacamole-csv-importer/internal/domain"
	"github.com/rs/zerolog"
)

// shimState is the on-disk layout of the file shim.
type shimState struct {
	Groups      []domain.GroupRecord      `json:"groups"`
	Connections []domain.ConnectionRecord `json:"connections"`
}

// FileShim is a testing implementation that keeps the directory in a JSON
// file. An empty path keeps the directory in memory only.
type FileShim struct {
	filePath string
	logger   zerolog.Logger

	mu     sync.Mutex
	state  shimState
	loaded bool
	nextID int
}

// Ensure FileShim implements Directory.
var _ Directory = (*FileShim)(nil)

// NewFileShim creates a new file-based shim for testing.
func NewFileShim(filePath string, logger zerolog.Logger) *FileShim {
	return &FileShim{filePath: filePath, logger: logger}
}

// Authenticate always succeeds.
func (f *FileShim) Authenticate(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load()
}

// ListGroups returns the stored groups, ordered by identifier.
func (f *FileShim) ListGroups(ctx context.Context) ([]domain.GroupRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.load(); err != nil {
		return nil, err
	}
	out := make([]domain.GroupRecord, len(f.state.Groups))
	copy(out, f.state.Groups)
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return out, nil
}

// ListConnections returns the stored connections, ordered by identifier.
func (f *FileShim) ListConnections(ctx context.Context) ([]domain.ConnectionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.load(); err != nil {
		return nil, err
	}
	out := make([]domain.ConnectionRecord, len(f.state.Connections))
	copy(out, f.state.Connections)
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return out, nil
}

// CreateGroup stores an organizational group and writes the file.
func (f *FileShim) CreateGroup(ctx context.Context, name, parentID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.load(); err != nil {
		return "", err
	}
	if !f.groupExists(parentID) {
		return "", &domain.RemoteError{Op: "create connection group", StatusCode: http.StatusNotFound, Message: "parent group " + parentID + " not found", Mutation: true}
	}

	id := f.allocate()
	f.state.Groups = append(f.state.Groups, domain.GroupRecord{
		Name:             name,
		Identifier:       id,
		ParentIdentifier: parentID,
		Type:             domain.GroupTypeOrganizational,
	})
	if err := f.save(); err != nil {
		return "", err
	}
	f.logger.Debug().Str("group", name).Str("identifier", id).Msg("shim group created")
	return id, nil
}

// CreateConnection stores a connection and writes the file.
func (f *FileShim) CreateConnection(ctx context.Context, spec domain.ConnectionSpec, parentID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.load(); err != nil {
		return "", err
	}
	if !f.groupExists(parentID) {
		return "", &domain.RemoteError{Op: "create connection", StatusCode: http.StatusNotFound, Message: "parent group " + parentID + " not found", Mutation: true}
	}

	id := f.allocate()
	attrs := make(map[string]string, len(spec.Attributes))
	for k, v := range spec.Attributes {
		attrs[k] = v
	}
	f.state.Connections = append(f.state.Connections, domain.ConnectionRecord{
		Name:             spec.Name,
		Identifier:       id,
		ParentIdentifier: parentID,
		Protocol:         spec.Protocol,
		Attributes:       attrs,
	})
	if err := f.save(); err != nil {
		return "", err
	}
	f.logger.Debug().Str("connection", spec.Name).Str("identifier", id).Msg("shim connection created")
	return id, nil
}

func (f *FileShim) groupExists(id string) bool {
	if id == domain.RootIdentifier {
		return true
	}
	for _, g := range f.state.Groups {
		if g.Identifier == id {
			return true
		}
	}
	return false
}

// allocate returns the next numeric identifier. Groups and connections
// share one counter.
func (f *FileShim) allocate() string {
	f.nextID++
	return strconv.Itoa(f.nextID)
}

// load reads the file once. A missing file is an empty directory.
func (f *FileShim) load() error {
	if f.loaded {
		return nil
	}
	f.loaded = true
	if f.filePath == "" {
		return nil
	}

	data, err := os.ReadFile(f.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		f.loaded = false
		return fmt.Errorf("reading directory file: %w", err)
	}
	if err := json.Unmarshal(data, &f.state); err != nil {
		f.loaded = false
		return fmt.Errorf("parsing directory file: %w", err)
	}

	for _, g := range f.state.Groups {
		f.bump(g.Identifier)
	}
	for _, c := range f.state.Connections {
		f.bump(c.Identifier)
	}
	return nil
}

func (f *FileShim) bump(id string) {
	if n, err := strconv.Atoi(id); err == nil && n > f.nextID {
		f.nextID = n
	}
}

func (f *FileShim) save() error {
	if f.filePath == "" {
		return nil
	}
	// Marshal with indentation for readability
	data, err := json.MarshalIndent(f.state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling directory: %w", err)
	}
	if err := os.WriteFile(f.filePath, data, 0o644); err != nil {
		return fmt.Errorf("writing directory file: %w", err)
	}
	return nil
}
