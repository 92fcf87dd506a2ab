package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/soyeahso/mrbooky/internal/domain"
	"github.com/soyeahso/mrbooky/internal/logging"
)

// Pharmacy is one on-duty pharmacy as the backend reports it.
type Pharmacy struct {
	Name      string `json:"name"`
	Address   string `json:"address"`
	TimeRange string `json:"time_range"`
}

// PharmacyTool looks up on-duty pharmacies per area.
type PharmacyTool struct {
	api         *restClient
	defaultArea string
	log         *logging.Logger
}

// NewPharmacyTool creates a pharmacy tool backed by baseURL.
func NewPharmacyTool(baseURL, defaultArea string, hc *http.Client, log *logging.Logger) *PharmacyTool {
	if defaultArea == "" {
		defaultArea = "Πάτρα"
	}
	return &PharmacyTool{api: newRESTClient(baseURL, hc), defaultArea: defaultArea, log: log.Sub("tools.pharmacy")}
}

func (p *PharmacyTool) Name() string { return "pharmacy_lookup" }

// Invoke lists the pharmacies on duty in the area slot. The reply is cached
// in the session slots for that area.
func (p *PharmacyTool) Invoke(ctx context.Context, req Request) (Result, error) {
	area := req.Slot(domain.SlotArea)
	if area == "" {
		area = p.defaultArea
	}
	if req.Slot(domain.SlotPharmacyArea) == area && req.Slot(domain.SlotPharmacyReply) != "" {
		return Result{Reply: req.Slot(domain.SlotPharmacyReply)}, nil
	}

	items, err := p.Lookup(ctx, area)
	if err != nil {
		return Result{}, err
	}
	if len(items) == 0 {
		return Result{Reply: fmt.Sprintf("❌ Δεν βρέθηκαν εφημερεύοντα για %s. Θες να δοκιμάσουμε άλλη περιοχή;", area)}, nil
	}
	reply := RenderPharmacies(area, items)
	return Result{
		Reply: reply,
		Slots: map[string]string{
			domain.SlotPharmacyArea:  area,
			domain.SlotPharmacyReply: reply,
		},
	}, nil
}

// Lookup fetches the raw list. The backend answers either with a bare list
// or with {"pharmacies": [...]}; {"error": "..."} is a failure.
func (p *PharmacyTool) Lookup(ctx context.Context, area string) ([]Pharmacy, error) {
	if !p.api.configured() {
		return nil, errors.New("pharmacy backend not configured")
	}
	var raw json.RawMessage
	if err := p.api.get(ctx, "/pharmacy", url.Values{"area": {area}}, &raw); err != nil {
		return nil, err
	}

	var list []Pharmacy
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Pharmacies []Pharmacy `json:"pharmacies"`
		Error      string     `json:"error"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if wrapped.Error != "" {
		return nil, errors.New(wrapped.Error)
	}
	return wrapped.Pharmacies, nil
}

var rangeStartRe = regexp.MustCompile(`(\d{1,2})[:.](\d{2})`)

// rangeStart returns the start of a "08:00 - 14:00" range in minutes.
// Ranges without a time sort last.
func rangeStart(tr string) int {
	m := rangeStartRe.FindStringSubmatch(tr)
	if m == nil {
		return 10_000
	}
	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	return h*60 + mm
}

// RenderPharmacies groups pharmacies by time range, earliest first.
func RenderPharmacies(area string, items []Pharmacy) string {
	groups := make(map[string][]Pharmacy)
	var ranges []string
	for _, it := range items {
		tr := strings.TrimSpace(it.TimeRange)
		if tr == "" {
			tr = "Ώρες μη διαθέσιμες"
		}
		if _, seen := groups[tr]; !seen {
			ranges = append(ranges, tr)
		}
		groups[tr] = append(groups[tr], it)
	}
	sort.SliceStable(ranges, func(i, j int) bool { return rangeStart(ranges[i]) < rangeStart(ranges[j]) })

	lines := []string{"💊 **Περιοχή: " + area + "**"}
	for _, tr := range ranges {
		lines = append(lines, "", "🕘 "+tr)
		for _, p := range groups[tr] {
			name := strings.TrimSpace(p.Name)
			if name == "" {
				name = "Φαρμακείο"
			}
			line := "• " + name
			if addr := strings.TrimSpace(p.Address); addr != "" {
				line += " — " + addr
			}
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
