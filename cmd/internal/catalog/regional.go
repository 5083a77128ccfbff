package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"muse/cmd/internal/notify"
)

const syncRequestTimeout = 10 * time.Second

// Syncer mirrors the external regionals directory into the local store.
// Entries present upstream are upserted; local entries missing upstream are
// deactivated, never deleted.
type Syncer struct {
	url      string
	client   *http.Client
	store    Store
	notifier Notifier
	log      *slog.Logger
}

// NewSyncer constructs a Syncer against the upstream url. client may be nil.
func NewSyncer(url string, client *http.Client, store Store, notifier Notifier, log *slog.Logger) *Syncer {
	if client == nil {
		client = &http.Client{Timeout: syncRequestTimeout}
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Syncer{url: url, client: client, store: store, notifier: notifier, log: log}
}

// SyncResult summarizes one sync run.
type SyncResult struct {
	Fetched     int   `json:"fetched"`
	Deactivated int64 `json:"deactivated"`
}

// upstreamRegional matches the external service's wire shape.
type upstreamRegional struct {
	ID     int64  `json:"id"`
	Name   string `json:"nome"`
	Active bool   `json:"ativo"`
}

// Sync fetches the upstream directory and reconciles the local mirror.
// An empty upstream response aborts without deactivating anything: a broken
// feed must not wipe the directory.
func (s *Syncer) Sync(ctx context.Context, actor string) (SyncResult, error) {
	rctx, cancel := context.WithTimeout(ctx, syncRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(rctx, http.MethodGet, s.url, nil)
	if err != nil {
		return SyncResult{}, fmt.Errorf("regional sync: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return SyncResult{}, fmt.Errorf("regional sync: fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return SyncResult{}, fmt.Errorf("regional sync: upstream returned %d", resp.StatusCode)
	}

	var upstream []upstreamRegional
	if err := json.NewDecoder(resp.Body).Decode(&upstream); err != nil {
		return SyncResult{}, fmt.Errorf("regional sync: decode: %w", err)
	}
	if len(upstream) == 0 {
		return SyncResult{}, fmt.Errorf("regional sync: upstream returned no entries, refusing to deactivate all")
	}

	rs := make([]Regional, 0, len(upstream))
	for _, u := range upstream {
		if u.Name == "" {
			continue
		}
		rs = append(rs, Regional{ID: u.ID, Name: u.Name, Active: u.Active})
	}

	deactivated, err := s.store.UpsertRegionals(ctx, rs)
	if err != nil {
		return SyncResult{}, err
	}

	result := SyncResult{Fetched: len(rs), Deactivated: deactivated}
	s.log.Info("regional.synced", "fetched", result.Fetched, "deactivated", result.Deactivated, "actor", actor)
	s.notifier.Broadcast(notify.NewEvent(notify.EventRegionalSynced,
		fmt.Sprintf("Regionals synced: %d fetched, %d deactivated", result.Fetched, result.Deactivated),
		result, actor))
	return result, nil
}
