package tools

import (
	"context"
	"errors"
	"net/http"

	"github.com/soyeahso/mrbooky/internal/domain"
	"github.com/soyeahso/mrbooky/internal/logging"
)

const noHospitalInfo = "Δεν βρέθηκαν πληροφορίες νοσοκομείων."

// HospitalTool asks the hospital webhook which hospitals are on duty.
type HospitalTool struct {
	api *restClient
	log *logging.Logger
}

// NewHospitalTool creates a hospital tool backed by baseURL.
func NewHospitalTool(baseURL string, hc *http.Client, log *logging.Logger) *HospitalTool {
	return &HospitalTool{api: newRESTClient(baseURL, hc), log: log.Sub("tools.hospital")}
}

func (h *HospitalTool) Name() string { return "hospital_duty" }

// Invoke answers for the which_day slot, today by default.
func (h *HospitalTool) Invoke(ctx context.Context, req Request) (Result, error) {
	day := req.Slot(domain.SlotWhichDay)
	if day == "" {
		day = "σήμερα"
	}
	text, err := h.OnDuty(ctx, day)
	if err != nil {
		return Result{}, err
	}
	return Result{Reply: "🏥 " + text}, nil
}

// OnDuty returns the backend's text for day.
func (h *HospitalTool) OnDuty(ctx context.Context, day string) (string, error) {
	if !h.api.configured() {
		return "", errors.New("hospital backend not configured")
	}
	body := map[string]any{
		"queryResult": map[string]any{
			"parameters": map[string]string{"which_day": day},
		},
	}
	var raw map[string]any
	if err := h.api.post(ctx, "/webhook", body, &raw); err != nil {
		return "", err
	}
	if msg := firstString(raw, "error"); msg != "" {
		return "", errors.New(msg)
	}
	if text := fulfillmentText(raw); text != "" {
		return text, nil
	}
	return noHospitalInfo, nil
}
