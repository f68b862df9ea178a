// Package importer reconciles desired connection entries against a
// connection group tree, creating only the groups and connections that are
// missing.
package importer

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/bcnelson/guacamole-csv-importer/internal/domain"
	"github.com/bcnelson/guacamole-csv-importer/internal/tree"
	"github.com/rs/zerolog"
)

// Mutator creates groups and connections on the remote side.
// Each call either fails or returns the identifier of the created object.
type Mutator interface {
	CreateGroup(ctx context.Context, name, parentID string) (string, error)
	CreateConnection(ctx context.Context, spec domain.ConnectionSpec, parentID string) (string, error)
}

// Settings are the guacd options stamped on every created connection.
type Settings struct {
	GuacdHost       string
	GuacdPort       int
	GuacdEncryption string
}

// DefaultSettings returns the guacd defaults.
func DefaultSettings() Settings {
	return Settings{
		GuacdHost:       "localhost",
		GuacdPort:       4822,
		GuacdEncryption: "none",
	}
}

// Attributes returns the attribute set of a newly created connection.
func (s Settings) Attributes() map[string]string {
	return map[string]string{
		"guacd-encryption":         s.GuacdEncryption,
		"guacd-hostname":           s.GuacdHost,
		"guacd-port":               strconv.Itoa(s.GuacdPort),
		"failover-only":            "true",
		"weight":                   "",
		"max-connections":          "15",
		"max-connections-per-user": "1",
	}
}

// Result summarizes a reconciliation pass.
type Result struct {
	// Successful counts created connections.
	Successful int
	// Skipped counts entries whose connection already existed.
	Skipped int
	// Failed counts entries that hit a remote mutation error.
	Failed int
	// Total counts every input entry regardless of outcome.
	Total int
	// GroupsCreated counts groups created along the way.
	GroupsCreated int

	Outcomes []domain.EntryOutcome
}

// Importer walks and extends a tree to match desired entries.
type Importer struct {
	mutator  Mutator
	settings Settings
	logger   zerolog.Logger
}

// New creates a new Importer.
func New(mutator Mutator, settings Settings, logger zerolog.Logger) *Importer {
	return &Importer{
		mutator:  mutator,
		settings: settings,
		logger:   logger,
	}
}

// ImportAll reconciles entries in order against t, mirroring every remote
// creation into t so later entries see earlier side effects.
//
// A remote failure only affects its own entry: the entry is tallied as
// failed and processing continues. The returned error is non-nil only when
// the context is done or the tree itself is inconsistent.
func (im *Importer) ImportAll(ctx context.Context, entries []domain.Entry, t *tree.Tree) (*Result, error) {
	result := &Result{
		Total:    len(entries),
		Outcomes: make([]domain.EntryOutcome, 0, len(entries)),
	}

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		outcome, err := im.importOne(ctx, entry, t, result)
		outcome.Position = i
		result.Outcomes = append(result.Outcomes, outcome)
		if err != nil {
			return result, err
		}

		switch outcome.Status {
		case domain.OutcomeCreated:
			result.Successful++
		case domain.OutcomeSkipped:
			result.Skipped++
		case domain.OutcomeFailed:
			result.Failed++
		}
	}

	im.logger.Info().
		Int("successful", result.Successful).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Int("total", result.Total).
		Int("groups_created", result.GroupsCreated).
		Msg("reconciliation finished")

	return result, nil
}

func (im *Importer) importOne(ctx context.Context, entry domain.Entry, t *tree.Tree, result *Result) (domain.EntryOutcome, error) {
	path := tree.NormalizePath(entry.Site)
	outcome := domain.EntryOutcome{
		Line:       entry.Line,
		Path:       path,
		DeviceName: entry.DeviceName,
	}
	log := im.logger.With().Str("path", path).Str("device", entry.DeviceName).Logger()

	parent, ok := t.GroupByPath(path)
	if !ok {
		var created int
		var err error
		parent, created, err = im.ensurePath(ctx, path, t)
		result.GroupsCreated += created
		if err != nil {
			outcome.Status = domain.OutcomeFailed
			outcome.Error = err.Error()
			var me *mirrorError
			if errors.As(err, &me) {
				return outcome, me.err
			}
			log.Warn().Err(err).Msg("could not create connection group")
			return outcome, nil
		}
	}

	if existing := parent.ChildConnection(entry.DeviceName); existing != nil {
		outcome.Status = domain.OutcomeSkipped
		outcome.ConnectionID = existing.Identifier
		log.Debug().Str("identifier", existing.Identifier).Msg("connection already exists")
		return outcome, nil
	}

	attributes := im.settings.Attributes()
	spec := entry.Spec()
	spec.Attributes = attributes

	id, err := im.mutator.CreateConnection(ctx, spec, parent.Identifier)
	if err != nil {
		outcome.Status = domain.OutcomeFailed
		outcome.Error = err.Error()
		log.Warn().Err(err).Msg("could not create connection")
		return outcome, nil
	}

	if _, err := t.AppendConnection(parent, domain.ConnectionRecord{
		Name:             entry.DeviceName,
		Identifier:       id,
		ParentIdentifier: parent.Identifier,
		Protocol:         entry.Protocol,
		Attributes:       attributes,
	}); err != nil {
		outcome.Status = domain.OutcomeFailed
		outcome.Error = err.Error()
		return outcome, fmt.Errorf("mirroring connection %q: %w", entry.DeviceName, err)
	}

	outcome.Status = domain.OutcomeCreated
	outcome.ConnectionID = id
	log.Debug().Str("identifier", id).Msg("connection created")
	return outcome, nil
}

// ensurePath resolves path from the root, creating each missing group in
// root-to-leaf order. It returns the innermost group and how many groups
// were created.
func (im *Importer) ensurePath(ctx context.Context, path string, t *tree.Tree) (*tree.GroupNode, int, error) {
	node := t.Root()
	created := 0
	for _, name := range tree.SplitPath(path)[1:] {
		child := node.ChildGroup(name)
		if child == nil {
			id, err := im.mutator.CreateGroup(ctx, name, node.Identifier)
			if err != nil {
				return nil, created, fmt.Errorf("creating group %q under %q: %w", name, node.Identifier, err)
			}
			child, err = t.AppendGroup(node, domain.GroupRecord{
				Name:             name,
				Identifier:       id,
				ParentIdentifier: node.Identifier,
				Type:             domain.GroupTypeOrganizational,
			})
			if err != nil {
				return nil, created, &mirrorError{err: fmt.Errorf("mirroring group %q: %w", name, err)}
			}
			created++
			im.logger.Debug().Str("group", name).Str("identifier", id).Str("parent", node.Identifier).Msg("connection group created")
		}
		node = child
	}
	return node, created, nil
}

// mirrorError marks a failure to mirror a remote creation into the tree.
// The tree no longer matches the remote state, so the run stops.
type mirrorError struct {
	err error
}

func (e *mirrorError) Error() string { return e.err.Error() }
func (e *mirrorError) Unwrap() error { return e.err }
