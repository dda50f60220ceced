package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/radiusdt/adserver/internal/config"
	"github.com/radiusdt/adserver/internal/models"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer() *Server {
	cfg := &config.Config{}
	cfg.Views.IPHashSalt = "test-salt"
	return NewServer(&Dependencies{
		Config: cfg,
		Logger: zap.NewNop(),
	})
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "203.0.113.7:51234"
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(w.Body).Decode(out))
}

func TestHealth(t *testing.T) {
	require := require.New(t)
	s := newTestServer()

	w := doJSON(t, s, http.MethodGet, "/health", nil)
	require.Equal(http.StatusOK, w.Code)

	var body map[string]string
	decode(t, w, &body)
	require.Equal("ok", body["status"])
}

func TestServeAdRequiresIdentity(t *testing.T) {
	require := require.New(t)
	s := newTestServer()

	w := doJSON(t, s, http.MethodGet, "/serve/ad", nil)
	require.Equal(http.StatusBadRequest, w.Code)

	// Position without page is not a placement.
	w = doJSON(t, s, http.MethodGet, "/serve/ad?position=sidebar", nil)
	require.Equal(http.StatusBadRequest, w.Code)
}

func TestServeAdUnknownSlotIsNoFill(t *testing.T) {
	require := require.New(t)
	s := newTestServer()

	w := doJSON(t, s, http.MethodGet, "/serve/ad?slot_id=ghost", nil)
	require.Equal(http.StatusOK, w.Code)

	var res struct {
		Slot     *models.Slot     `json:"slot"`
		Campaign *models.Campaign `json:"campaign"`
	}
	decode(t, w, &res)
	require.Nil(res.Slot)
	require.Nil(res.Campaign)
}

func TestFullServingFlow(t *testing.T) {
	require := require.New(t)
	s := newTestServer()

	// Provider
	w := doJSON(t, s, http.MethodPost, "/providers", models.Provider{
		Name: "AdSense", Network: "adsense", IsActive: true,
	})
	require.Equal(http.StatusOK, w.Code)
	var provider models.Provider
	decode(t, w, &provider)
	require.NotEmpty(provider.ID)

	// Campaign
	w = doJSON(t, s, http.MethodPost, "/campaigns", models.Campaign{
		ProviderID: provider.ID, Name: "Run of site",
		AdType: models.AdTypeBanner, AdCode: "<div>ad</div>",
		IsActive: true, CPMRate: 500,
	})
	require.Equal(http.StatusOK, w.Code)
	var campaign models.Campaign
	decode(t, w, &campaign)

	// Slot
	w = doJSON(t, s, http.MethodPost, "/slots", models.Slot{
		Position: "sidebar", Page: "tools", IsActive: true,
	})
	require.Equal(http.StatusOK, w.Code)
	var slot models.Slot
	decode(t, w, &slot)

	// Assignment
	w = doJSON(t, s, http.MethodPost, "/assignments", models.SlotAssignment{
		SlotID: slot.ID, CampaignID: campaign.ID, Priority: 10, IsActive: true,
	})
	require.Equal(http.StatusOK, w.Code)

	// Resolve by slot id
	w = doJSON(t, s, http.MethodGet, "/serve/ad?slot_id="+slot.ID, nil)
	require.Equal(http.StatusOK, w.Code)
	var res struct {
		Slot     *models.Slot     `json:"slot"`
		Campaign *models.Campaign `json:"campaign"`
	}
	decode(t, w, &res)
	require.NotNil(res.Slot)
	require.NotNil(res.Campaign)
	require.Equal(campaign.ID, res.Campaign.ID)

	// Resolve by placement
	w = doJSON(t, s, http.MethodGet, "/serve/ad?position=sidebar&page=tools", nil)
	require.Equal(http.StatusOK, w.Code)
	decode(t, w, &res)
	require.NotNil(res.Campaign)

	// Record views
	for i := 0; i < 3; i++ {
		w = doJSON(t, s, http.MethodPost, "/serve/view", map[string]string{
			"slot_id":     slot.ID,
			"campaign_id": campaign.ID,
			"session_id":  fmt.Sprintf("sess-%d", i),
			"page":        "tools",
			"view_type":   "impression",
		})
		require.Equal(http.StatusOK, w.Code)
	}
	w = doJSON(t, s, http.MethodPost, "/serve/view", map[string]string{
		"slot_id":    slot.ID,
		"session_id": "sess-0",
		"page":       "tools",
		"view_type":  "click",
	})
	require.Equal(http.StatusOK, w.Code)

	// Aggregate today's views
	today := time.Now().UTC().Format("2006-01-02")
	w = doJSON(t, s, http.MethodPost, "/rollups/run?date="+today, nil)
	require.Equal(http.StatusOK, w.Code)
	var rollups []*models.Rollup
	decode(t, w, &rollups)
	require.Len(rollups, 2) // campaign bucket + clicked-without-campaign bucket

	// Read the stored rows back
	w = doJSON(t, s, http.MethodGet, "/rollups?start="+today+"&end="+today, nil)
	require.Equal(http.StatusOK, w.Code)
	decode(t, w, &rollups)
	require.Len(rollups, 2)
}

func TestErrorStatusMapping(t *testing.T) {
	require := require.New(t)
	s := newTestServer()

	// Validation: campaign without provider
	w := doJSON(t, s, http.MethodPost, "/campaigns", models.Campaign{
		Name: "x", ProviderID: "ghost", AdType: models.AdTypeBanner,
	})
	require.Equal(http.StatusBadRequest, w.Code)

	// Not found
	w = doJSON(t, s, http.MethodGet, "/providers/ghost", nil)
	require.Equal(http.StatusNotFound, w.Code)

	// Conflict: duplicate provider name
	w = doJSON(t, s, http.MethodPost, "/providers", models.Provider{Name: "Dup", Network: "direct"})
	require.Equal(http.StatusOK, w.Code)
	w = doJSON(t, s, http.MethodPost, "/providers", models.Provider{Name: "Dup", Network: "direct"})
	require.Equal(http.StatusConflict, w.Code)

	// Malformed JSON
	req := httptest.NewRequest(http.MethodPost, "/slots", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(http.StatusBadRequest, rec.Code)

	// Method not allowed
	w = doJSON(t, s, http.MethodDelete, "/serve/ad", nil)
	require.Equal(http.StatusMethodNotAllowed, w.Code)
}

func TestDeactivateStopsServing(t *testing.T) {
	require := require.New(t)
	s := newTestServer()

	var provider models.Provider
	decode(t, doJSON(t, s, http.MethodPost, "/providers", models.Provider{
		Name: "P", Network: "direct", IsActive: true,
	}), &provider)

	var campaign models.Campaign
	decode(t, doJSON(t, s, http.MethodPost, "/campaigns", models.Campaign{
		ProviderID: provider.ID, Name: "C", AdType: models.AdTypeBanner, IsActive: true,
	}), &campaign)

	var slot models.Slot
	decode(t, doJSON(t, s, http.MethodPost, "/slots", models.Slot{
		Position: "header", Page: "home", IsActive: true,
	}), &slot)

	w := doJSON(t, s, http.MethodPost, "/assignments", models.SlotAssignment{
		SlotID: slot.ID, CampaignID: campaign.ID, Priority: 1, IsActive: true,
	})
	require.Equal(http.StatusOK, w.Code)

	// Deactivating the provider pulls every campaign it owns out of rotation.
	w = doJSON(t, s, http.MethodDelete, "/providers/"+provider.ID, nil)
	require.Equal(http.StatusOK, w.Code)

	var res struct {
		Slot     *models.Slot     `json:"slot"`
		Campaign *models.Campaign `json:"campaign"`
	}
	w = doJSON(t, s, http.MethodGet, "/serve/ad?slot_id="+slot.ID, nil)
	require.Equal(http.StatusOK, w.Code)
	decode(t, w, &res)
	require.NotNil(res.Slot)
	require.Nil(res.Campaign)
}

func TestRollupsRangeValidation(t *testing.T) {
	require := require.New(t)
	s := newTestServer()

	w := doJSON(t, s, http.MethodGet, "/rollups", nil)
	require.Equal(http.StatusBadRequest, w.Code)

	w = doJSON(t, s, http.MethodGet, "/rollups?start=2026-08-30&end=2026-08-01", nil)
	require.Equal(http.StatusBadRequest, w.Code)

	w = doJSON(t, s, http.MethodPost, "/rollups/run?date=yesterday", nil)
	require.Equal(http.StatusBadRequest, w.Code)
}
