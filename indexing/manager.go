package indexing

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"

	"github.com/reveald/treesearch"
	"github.com/reveald/treesearch/internal/metrics"
)

//go:embed mapping.json
var defaultMapping []byte

// Manager manages the generations of an index behind a stable alias.
//
// Every build writes a new generation named "<alias>-<postfix>" and points
// the alias at it once complete. Old generations stay until Cleanup.
type Manager struct {
	transport esapi.Transport
	alias     string
	mapping   []byte
	logger    *zap.Logger
}

// NewManager returns a manager for the generations of alias.
func NewManager(transport esapi.Transport, alias string, opts ...Option) *Manager {
	s := newSettings(opts)

	return &Manager{
		transport: transport,
		alias:     alias,
		mapping:   s.mapping,
		logger:    s.logger,
	}
}

// Alias returns the stable index name searches are sent to.
func (m *Manager) Alias() string {
	return m.alias
}

// GenerationName returns the index name of the generation with postfix.
func (m *Manager) GenerationName(postfix string) string {
	return m.alias + "-" + postfix
}

// Create creates the index with the configured mapping.
func (m *Manager) Create(ctx context.Context, index string) error {
	return m.do(ctx, "create_index", esapi.IndicesCreateRequest{
		Index: index,
		Body:  bytes.NewReader(m.mapping),
	}, nil)
}

// Delete deletes an index.
func (m *Manager) Delete(ctx context.Context, index string) error {
	return m.do(ctx, "delete_index", esapi.IndicesDeleteRequest{
		Index: []string{index},
	}, nil)
}

// Refresh makes all operations on index visible to searches.
func (m *Manager) Refresh(ctx context.Context, index string) error {
	return m.do(ctx, "refresh", esapi.IndicesRefreshRequest{
		Index: []string{index},
	}, nil)
}

// AliasTargets returns the indices the alias currently points at, sorted.
func (m *Manager) AliasTargets(ctx context.Context) ([]string, error) {
	var targets map[string]json.RawMessage

	err := m.do(ctx, "get_alias", esapi.IndicesGetAliasRequest{
		Name: []string{m.alias},
	}, &targets)
	var be *treesearch.BackendError
	if errors.As(err, &be) && be.Status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	indices := make([]string, 0, len(targets))
	for index := range targets {
		indices = append(indices, index)
	}
	slices.Sort(indices)
	return indices, nil
}

// SwapAlias points the alias at index in a single atomic request, removing
// it from every index it pointed at before.
func (m *Manager) SwapAlias(ctx context.Context, index string) error {
	previous, err := m.AliasTargets(ctx)
	if err != nil {
		return err
	}

	type aliasAction map[string]map[string]string
	actions := make([]aliasAction, 0, len(previous)+1)
	for _, p := range previous {
		if p == index {
			continue
		}
		actions = append(actions, aliasAction{"remove": {"index": p, "alias": m.alias}})
	}
	actions = append(actions, aliasAction{"add": {"index": index, "alias": m.alias}})

	body, err := json.Marshal(map[string]any{"actions": actions})
	if err != nil {
		return fmt.Errorf("failed to encode alias actions: %w", err)
	}

	if err := m.do(ctx, "update_aliases", esapi.IndicesUpdateAliasesRequest{
		Body: bytes.NewReader(body),
	}, nil); err != nil {
		return err
	}

	m.logger.Info("alias swapped",
		zap.String("alias", m.alias),
		zap.String("index", index),
		zap.Strings("previous", previous),
	)
	return nil
}

// Generations returns every index generation of the alias, sorted.
func (m *Manager) Generations(ctx context.Context) ([]string, error) {
	var rows []struct {
		Index string `json:"index"`
	}

	if err := m.do(ctx, "list_indices", esapi.CatIndicesRequest{
		Index:  []string{m.alias + "-*"},
		Format: "json",
		H:      []string{"index"},
	}, &rows); err != nil {
		return nil, err
	}

	indices := make([]string, 0, len(rows))
	for _, r := range rows {
		if strings.HasPrefix(r.Index, m.alias+"-") {
			indices = append(indices, r.Index)
		}
	}
	slices.Sort(indices)
	return indices, nil
}

// CleanupReport lists what a Cleanup did.
type CleanupReport struct {
	Kept    []string
	Deleted []string
	Failed  []string
}

// Cleanup deletes every generation the alias does not point at.
//
// Cleanup is best effort: backend errors are logged with the reported
// status and reason, and the remaining generations are still processed.
func (m *Manager) Cleanup(ctx context.Context) CleanupReport {
	var report CleanupReport

	generations, err := m.Generations(ctx)
	if err != nil {
		m.logError("failed to list index generations", err)
		return report
	}

	targets, err := m.AliasTargets(ctx)
	if err != nil {
		m.logError("failed to read alias targets", err)
		return report
	}
	if len(targets) == 0 {
		// No finished build yet, so no generation is known to be stale.
		m.logger.Warn("alias has no targets, skipping cleanup", zap.String("alias", m.alias))
		return report
	}

	for _, index := range generations {
		if slices.Contains(targets, index) {
			report.Kept = append(report.Kept, index)
			continue
		}

		if err := m.Delete(ctx, index); err != nil {
			m.logError("failed to delete index generation", err, zap.String("index", index))
			report.Failed = append(report.Failed, index)
			continue
		}

		m.logger.Info("index generation deleted", zap.String("index", index))
		report.Deleted = append(report.Deleted, index)
	}

	return report
}

func (m *Manager) logError(msg string, err error, fields ...zap.Field) {
	var be *treesearch.BackendError
	if errors.As(err, &be) {
		fields = append(fields,
			zap.Int("status", be.Status),
			zap.String("type", be.Type),
			zap.String("reason", be.Reason),
		)
	} else {
		fields = append(fields, zap.Error(err))
	}
	m.logger.Error(msg, fields...)
}

// do sends req and decodes a successful response body into out, when set.
func (m *Manager) do(ctx context.Context, op string, req esapi.Request, out any) (err error) {
	start := time.Now()
	defer func() {
		metrics.BackendRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		metrics.BackendRequestsTotal.WithLabelValues(op, metrics.Status(err)).Inc()
	}()

	res, err := req.Do(ctx, m.transport)
	if err != nil {
		return fmt.Errorf("elasticsearch %s request failed: %w", op, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return treesearch.NewBackendError(res)
	}

	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", op, err)
		}
	}
	return nil
}
