package main

import (
	"encoding/json"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/raktchain/raktchain/ledger"
)

const (
	maxEntriesLimit = 250
	recentEntries   = 5
)

// entryQuery is the parsed query string of GET /api/blockchain/entries.
type entryQuery struct {
	Donor      string
	Recipient  string
	BloodGroup string
	CampaignID string
	Verifier   string
	Location   string
	Search     string
	Ascending  bool
	Limit      int // <= 0 means no explicit limit
	Offset     int
	Download   bool
}

// entryPage is the response body of GET /api/blockchain/entries.
type entryPage struct {
	Entries []ledger.Block `json:"entries"`
	Total   int            `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
	Count   int            `json:"count"`
}

func parseEntryQuery(v url.Values) entryQuery {
	q := entryQuery{
		Donor:      v.Get("donor"),
		Recipient:  v.Get("recipient"),
		BloodGroup: v.Get("bloodGroup"),
		CampaignID: v.Get("campaignId"),
		Verifier:   v.Get("verifier"),
		Location:   v.Get("location"),
		Search:     v.Get("search"),
		Ascending:  v.Get("sort") == "asc",
		Download:   v.Get("format") == "download",
	}
	if n, ok := parseLeadingInt(v.Get("limit")); ok {
		q.Limit = n
	}
	if n, ok := parseLeadingInt(v.Get("offset")); ok && n >= 0 {
		q.Offset = n
	}
	return q
}

// parseLeadingInt reads an optionally signed run of digits at the start of s,
// ignoring anything after it, so "20items" reads as 20.
func parseLeadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}

	n, digits := 0, 0
	for ; digits < len(s) && s[digits] >= '0' && s[digits] <= '9'; digits++ {
		if n > (1<<31)/10 {
			n = 1 << 31
			continue
		}
		n = n*10 + int(s[digits]-'0')
	}
	if digits == 0 {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}

// queryEntries filters, sorts and pages the non-genesis blocks of chain.
func queryEntries(chain []ledger.Block, q entryQuery) entryPage {
	var entries []ledger.Block
	if len(chain) > 1 {
		entries = append(entries, chain[1:]...)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		ti, tj := parseTimestamp(entries[i].Timestamp), parseTimestamp(entries[j].Timestamp)
		if q.Ascending {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	filtered := entries[:0:0]
	for _, b := range entries {
		if q.matches(payloadFields(b.Data)) {
			filtered = append(filtered, b)
		}
	}

	offset := min(q.Offset, len(filtered))
	eligible := filtered[offset:]

	limit := q.Limit
	if limit > 0 {
		limit = min(limit, maxEntriesLimit)
	} else {
		limit = min(len(eligible), maxEntriesLimit)
	}
	page := eligible[:min(limit, len(eligible))]

	return entryPage{
		Entries: append([]ledger.Block{}, page...),
		Total:   len(filtered),
		Limit:   limit,
		Offset:  q.Offset,
		Count:   len(page),
	}
}

func (q entryQuery) matches(p map[string]any) bool {
	searchText := strings.Join([]string{
		stringify(p["donor"]), stringify(p["recipient"]), stringify(p["notes"]), stringify(p["campaignId"]),
	}, " ")

	return containsFold(q.Search, searchText) &&
		containsFold(q.Donor, text(p["donor"])) &&
		containsFold(q.Recipient, text(p["recipient"])) &&
		equalFold(q.BloodGroup, text(p["bloodGroup"])) &&
		containsFold(q.CampaignID, text(p["campaignId"])) &&
		containsFold(q.Verifier, text(p["verifiedBy"])) &&
		containsFold(q.Location, text(p["location"]))
}

// recentBlocks returns up to n non-genesis blocks, newest first.
func recentBlocks(chain []ledger.Block, n int) []ledger.Block {
	out := make([]ledger.Block, 0, n)
	for i := len(chain) - 1; i >= 1 && len(out) < n; i-- {
		out = append(out, chain[i])
	}
	return out
}

func payloadFields(data any) map[string]any {
	if m, ok := data.(map[string]any); ok {
		return m
	}
	return nil
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// containsFold reports whether haystack contains needle, ignoring case and
// surrounding space. An empty needle matches everything.
func containsFold(needle, haystack string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(fold(haystack), fold(needle))
}

func equalFold(needle, haystack string) bool {
	if needle == "" {
		return true
	}
	return fold(haystack) == fold(needle)
}

// text returns v when it is a string. Filters only match string fields.
func text(v any) string {
	s, _ := v.(string)
	return s
}

// stringify renders scalar payload values for free-text search.
func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

func parseTimestamp(ts string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Time{}
	}
	return t
}
