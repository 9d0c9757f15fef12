package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jeevijay-developers/riskmarshal-office/model"
)

// categoryRank fixes the display order of policy type categories.
// Anything not listed sorts after the ranked ones, alphabetically.
var categoryRank = map[string]int{
	"Motor":      0,
	"Health":     1,
	"Life":       2,
	"Travel":     3,
	"Property":   4,
	"Marine":     5,
	"Commercial": 6,
}

// LookupCache holds the selection data the intake screen needs: insurers,
// grouped policy types, subagents and clients. Loaded once at startup;
// client search is debounced against the core API.
type LookupCache struct {
	core     *CoreClient
	debounce time.Duration

	mu          sync.Mutex
	insurers    []model.Insurer
	policyTypes []model.PolicyTypeGroup
	subagents   []model.Subagent
	clients     []model.Client

	searchText    string
	searchResults []model.Client
	searchTimer   *time.Timer
}

func NewLookupCache(core *CoreClient, debounce time.Duration) *LookupCache {
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	return &LookupCache{
		core:     core,
		debounce: debounce,
	}
}

// Load fetches all lookup lists. Individual failures degrade to empty
// lists so the intake screen still renders; they are logged, not fatal.
func (l *LookupCache) Load(ctx context.Context) {
	insurers, err := l.core.ListInsurers(ctx)
	if err != nil {
		slog.Warn("failed to load insurers", "error", err)
	}

	types, err := l.core.ListPolicyTypes(ctx)
	if err != nil {
		slog.Warn("failed to load policy types", "error", err)
	}

	subagents, err := l.core.ListSubagents(ctx)
	if err != nil {
		slog.Warn("failed to load subagents", "error", err)
	}

	clients, err := l.core.ListClients(ctx, "")
	if err != nil {
		slog.Warn("failed to load clients", "error", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.insurers = insurers
	l.policyTypes = groupPolicyTypes(types)
	l.subagents = subagents
	l.clients = clients
}

func (l *LookupCache) Insurers() []model.Insurer {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.insurers
}

func (l *LookupCache) PolicyTypeGroups() []model.PolicyTypeGroup {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.policyTypes
}

func (l *LookupCache) Subagents() []model.Subagent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.subagents
}

// ClientOptions returns the list the operator should see: search results
// while a search is active, otherwise the initial client list.
func (l *LookupCache) ClientOptions() []model.Client {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.searchText != "" {
		return l.searchResults
	}
	return l.clients
}

// Search schedules a debounced client search. Each call cancels the
// previous unfired schedule, so rapid keystrokes collapse into one query
// for the final text. Empty text cancels outright and reverts
// ClientOptions to the initial list.
func (l *LookupCache) Search(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.searchTimer != nil {
		l.searchTimer.Stop()
		l.searchTimer = nil
	}

	l.searchText = text
	if text == "" {
		l.searchResults = nil
		return
	}

	l.searchTimer = time.AfterFunc(l.debounce, func() {
		l.runSearch(text)
	})
}

func (l *LookupCache) runSearch(text string) {
	results, err := l.core.ListClients(context.Background(), text)

	l.mu.Lock()
	defer l.mu.Unlock()

	// The operator kept typing or cleared the box while this query ran
	if l.searchText != text {
		return
	}

	if err != nil {
		slog.Warn("client search failed", "query", text, "error", err)
		l.searchResults = []model.Client{}
		return
	}
	l.searchResults = results
}

// groupPolicyTypes buckets policy types by category and orders the
// buckets by the fixed rank table, then type names alphabetically within
// each bucket.
func groupPolicyTypes(types []model.PolicyType) []model.PolicyTypeGroup {
	buckets := make(map[string][]model.PolicyType)
	for _, pt := range types {
		buckets[pt.Category] = append(buckets[pt.Category], pt)
	}

	groups := make([]model.PolicyTypeGroup, 0, len(buckets))
	for category, bucket := range buckets {
		sort.Slice(bucket, func(i, j int) bool {
			return bucket[i].Name < bucket[j].Name
		})
		groups = append(groups, model.PolicyTypeGroup{Category: category, Types: bucket})
	}

	sort.Slice(groups, func(i, j int) bool {
		ri, iRanked := categoryRank[groups[i].Category]
		rj, jRanked := categoryRank[groups[j].Category]
		switch {
		case iRanked && jRanked:
			return ri < rj
		case iRanked:
			return true
		case jRanked:
			return false
		default:
			return groups[i].Category < groups[j].Category
		}
	})

	return groups
}
