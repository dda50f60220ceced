package httpserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/radiusdt/adserver/internal/adserver"
	"github.com/radiusdt/adserver/internal/config"
	"github.com/radiusdt/adserver/internal/database"
	"github.com/radiusdt/adserver/internal/geo"
	"github.com/radiusdt/adserver/internal/iphash"
	"github.com/radiusdt/adserver/internal/metrics"
	"github.com/radiusdt/adserver/internal/middleware"
	"github.com/radiusdt/adserver/internal/models"
	"github.com/radiusdt/adserver/internal/storage"
	"go.uber.org/zap"
)

// Dependencies holds all external dependencies for the server.
type Dependencies struct {
	DB         *database.PostgresDB
	Redis      *database.RedisDB
	ClickHouse *database.ClickHouseDB
	Config     *config.Config
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
}

// Server wraps HTTP handlers and ad-serving services.
type Server struct {
	providerService   *adserver.ProviderService
	campaignService   *adserver.CampaignService
	slotService       *adserver.SlotService
	assignmentService *adserver.AssignmentService
	resolverService   *adserver.ResolverService
	recorderService   *adserver.RecorderService
	aggregatorService *adserver.AggregatorService
	logger            *zap.Logger
	config            *config.Config
	metrics           *metrics.Metrics
	mux               *http.ServeMux
}

// NewServer constructs a Server with all routes registered.
func NewServer(deps *Dependencies) *Server {
	// Initialize repositories
	var (
		providerRepo   storage.ProviderRepo
		campaignRepo   storage.CampaignRepo
		slotRepo       storage.SlotRepo
		assignmentRepo storage.AssignmentRepo
		viewStore      storage.ViewStore
		rollupRepo     storage.RollupRepo
	)

	if deps.DB != nil {
		providerRepo = storage.NewPostgresProviderRepo(deps.DB.Pool)
		campaignRepo = storage.NewPostgresCampaignRepo(deps.DB.Pool)
		slotRepo = storage.NewPostgresSlotRepo(deps.DB.Pool)
		assignmentRepo = storage.NewPostgresAssignmentRepo(deps.DB.Pool)
		viewStore = storage.NewPostgresViewStore(deps.DB.Pool)
		rollupRepo = storage.NewPostgresRollupRepo(deps.DB.Pool)
	} else {
		providerRepo = storage.NewInMemoryProviderRepo()
		campaignRepo = storage.NewInMemoryCampaignRepo()
		slotRepo = storage.NewInMemorySlotRepo()
		assignmentRepo = storage.NewInMemoryAssignmentRepo()
		viewStore = storage.NewInMemoryViewStore()
		rollupRepo = storage.NewInMemoryRollupRepo()
	}

	// The raw view stream can be redirected to ClickHouse for high-volume
	// installs; aggregation then reads from the same store.
	if deps.ClickHouse != nil {
		viewStore = storage.NewClickHouseViewStore(deps.ClickHouse.Conn)
	}

	// Initialize geo enrichment
	var geoProvider geo.Provider
	if deps.Config.Geo.Enabled {
		p, err := geo.NewMaxMindProvider(deps.Config.Geo.DatabasePath)
		if err != nil {
			deps.Logger.Warn("failed to initialize geo provider, views will not be enriched", zap.Error(err))
		} else {
			geoProvider = p
		}
	}

	// Initialize optional view dedup
	var deduper adserver.ViewDeduper
	if deps.Config.Views.DedupEnabled && deps.Redis != nil {
		deduper = adserver.NewRedisViewDeduper(deps.Redis.Client, deps.Config.Views.DedupWindow)
	}

	// Initialize rollup locking
	var locker adserver.RollupLocker
	if deps.Redis != nil {
		locker = adserver.NewRedisRollupLocker(deps.Redis.Client, deps.Config.Rollup.LockTTL)
	} else {
		locker = adserver.NewKeyedMutexLocker()
	}

	// Initialize services
	hasher := iphash.New(deps.Config.Views.IPHashSalt)
	providerSvc := adserver.NewProviderService(providerRepo)
	campaignSvc := adserver.NewCampaignService(campaignRepo, providerRepo)
	slotSvc := adserver.NewSlotService(slotRepo)
	assignmentSvc := adserver.NewAssignmentService(assignmentRepo, slotRepo, campaignRepo)
	resolverSvc := adserver.NewResolverService(slotRepo, assignmentRepo, campaignRepo, providerRepo)
	recorderSvc := adserver.NewRecorderService(viewStore, hasher, geoProvider, deduper, deps.Metrics, deps.Logger)
	aggregatorSvc := adserver.NewAggregatorService(viewStore, campaignRepo, rollupRepo, locker, deps.Metrics, deps.Logger)

	s := &Server{
		providerService:   providerSvc,
		campaignService:   campaignSvc,
		slotService:       slotSvc,
		assignmentService: assignmentSvc,
		resolverService:   resolverSvc,
		recorderService:   recorderSvc,
		aggregatorService: aggregatorSvc,
		logger:            deps.Logger,
		config:            deps.Config,
		metrics:           deps.Metrics,
	}

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	// Prometheus metrics
	if deps.Config.Metrics.Enabled {
		mux.Handle(deps.Config.Metrics.Path, metrics.Handler())
	}

	// Serving endpoints
	mux.HandleFunc("/serve/ad", s.handleServeAd)
	mux.HandleFunc("/serve/view", s.handleServeView)

	// Provider management
	mux.HandleFunc("/providers", s.handleProviders)
	mux.HandleFunc("/providers/", s.handleProviderByID)

	// Campaign management
	mux.HandleFunc("/campaigns", s.handleCampaigns)
	mux.HandleFunc("/campaigns/", s.handleCampaignByID)

	// Slot management
	mux.HandleFunc("/slots", s.handleSlots)
	mux.HandleFunc("/slots/", s.handleSlotByID)

	// Assignment management
	mux.HandleFunc("/assignments", s.handleAssignments)
	mux.HandleFunc("/assignments/", s.handleAssignmentByID)

	// Analytics
	mux.HandleFunc("/rollups", s.handleRollups)
	mux.HandleFunc("/rollups/run", s.handleRollupRun)

	s.mux = mux
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Aggregator exposes the aggregation service for background scheduling.
func (s *Server) Aggregator() *adserver.AggregatorService {
	return s.aggregatorService
}

// ---- Health Check ----

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// ---- Serving ----

func (s *Server) handleServeAd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	slotID := q.Get("slot_id")
	position := q.Get("position")
	page := q.Get("page")

	if slotID == "" && (position == "" || page == "") {
		s.errorResponse(w, "slot_id or position and page required", http.StatusBadRequest)
		return
	}

	start := time.Now()
	now := start.UTC()

	var (
		result *adserver.ResolveResult
		err    error
	)
	if slotID != "" {
		result, err = s.resolverService.Resolve(r.Context(), slotID, now)
	} else {
		result, err = s.resolverService.ResolveByPlacement(r.Context(), position, page, now)
	}
	if err != nil {
		s.logger.Error("resolve error", zap.Error(err))
		if s.metrics != nil {
			s.metrics.RecordResolve("error", time.Since(start))
		}
		s.errorResponse(w, "internal error", http.StatusInternalServerError)
		return
	}

	if s.metrics != nil {
		outcome := "no_fill"
		if result.Campaign != nil {
			outcome = "fill"
		}
		s.metrics.RecordResolve(outcome, time.Since(start))
	}

	s.jsonResponse(w, result)
}

func (s *Server) handleServeView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var ev adserver.ViewEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		s.errorResponse(w, "invalid json", http.StatusBadRequest)
		return
	}

	// The connecting address is taken from the request, never from the
	// payload, so clients cannot spoof visitor identity.
	ev.RemoteIP = middleware.ClientIP(r)

	view, err := s.recorderService.RecordView(r.Context(), ev)
	if err != nil {
		s.serviceError(w, err, "failed to record view")
		return
	}

	s.jsonResponse(w, map[string]string{"id": view.ID, "status": "recorded"})
}

// ---- Providers CRUD ----

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.providerService.ListProviders(r.Context())
		if err != nil {
			s.serviceError(w, err, "failed to list providers")
			return
		}
		s.jsonResponse(w, list)

	case http.MethodPost:
		var p models.Provider
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			s.errorResponse(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := s.providerService.UpsertProvider(r.Context(), &p); err != nil {
			s.serviceError(w, err, "failed to save provider")
			return
		}
		s.jsonResponse(w, p)

	default:
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleProviderByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/providers/")
	if id == "" {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		p, err := s.providerService.GetProvider(r.Context(), id)
		if err != nil {
			s.serviceError(w, err, "failed to get provider")
			return
		}
		s.jsonResponse(w, p)

	case http.MethodDelete:
		if err := s.providerService.DeactivateProvider(r.Context(), id); err != nil {
			s.serviceError(w, err, "failed to deactivate provider")
			return
		}
		s.jsonResponse(w, map[string]string{"id": id, "status": "deactivated"})

	default:
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// ---- Campaigns CRUD ----

func (s *Server) handleCampaigns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.campaignService.ListCampaigns(r.Context(), r.URL.Query().Get("provider_id"))
		if err != nil {
			s.serviceError(w, err, "failed to list campaigns")
			return
		}
		s.jsonResponse(w, list)

	case http.MethodPost:
		var c models.Campaign
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			s.errorResponse(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := s.campaignService.UpsertCampaign(r.Context(), &c); err != nil {
			s.serviceError(w, err, "failed to save campaign")
			return
		}
		s.jsonResponse(w, c)

	default:
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleCampaignByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/campaigns/")
	if id == "" {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		c, err := s.campaignService.GetCampaign(r.Context(), id)
		if err != nil {
			s.serviceError(w, err, "failed to get campaign")
			return
		}
		s.jsonResponse(w, c)

	case http.MethodDelete:
		if err := s.campaignService.DeactivateCampaign(r.Context(), id); err != nil {
			s.serviceError(w, err, "failed to deactivate campaign")
			return
		}
		s.jsonResponse(w, map[string]string{"id": id, "status": "deactivated"})

	default:
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// ---- Slots CRUD ----

func (s *Server) handleSlots(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.slotService.ListSlots(r.Context())
		if err != nil {
			s.serviceError(w, err, "failed to list slots")
			return
		}
		s.jsonResponse(w, list)

	case http.MethodPost:
		var sl models.Slot
		if err := json.NewDecoder(r.Body).Decode(&sl); err != nil {
			s.errorResponse(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := s.slotService.UpsertSlot(r.Context(), &sl); err != nil {
			s.serviceError(w, err, "failed to save slot")
			return
		}
		s.jsonResponse(w, sl)

	default:
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleSlotByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/slots/")
	if id == "" {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		sl, err := s.slotService.GetSlot(r.Context(), id)
		if err != nil {
			s.serviceError(w, err, "failed to get slot")
			return
		}
		s.jsonResponse(w, sl)

	case http.MethodDelete:
		if err := s.slotService.DeactivateSlot(r.Context(), id); err != nil {
			s.serviceError(w, err, "failed to deactivate slot")
			return
		}
		s.jsonResponse(w, map[string]string{"id": id, "status": "deactivated"})

	default:
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// ---- Assignments CRUD ----

func (s *Server) handleAssignments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.assignmentService.ListAssignments(r.Context(), r.URL.Query().Get("slot_id"))
		if err != nil {
			s.serviceError(w, err, "failed to list assignments")
			return
		}
		s.jsonResponse(w, list)

	case http.MethodPost:
		var a models.SlotAssignment
		if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
			s.errorResponse(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := s.assignmentService.UpsertAssignment(r.Context(), &a); err != nil {
			s.serviceError(w, err, "failed to save assignment")
			return
		}
		s.jsonResponse(w, a)

	default:
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleAssignmentByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/assignments/")
	if id == "" {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		a, err := s.assignmentService.GetAssignment(r.Context(), id)
		if err != nil {
			s.serviceError(w, err, "failed to get assignment")
			return
		}
		s.jsonResponse(w, a)

	case http.MethodDelete:
		if err := s.assignmentService.DeleteAssignment(r.Context(), id); err != nil {
			s.serviceError(w, err, "failed to delete assignment")
			return
		}
		s.jsonResponse(w, map[string]string{"id": id, "status": "deleted"})

	default:
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// ---- Analytics ----

func (s *Server) handleRollupRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	date := time.Now().UTC()
	if d := q.Get("date"); d != "" {
		parsed, err := time.Parse("2006-01-02", d)
		if err != nil {
			s.errorResponse(w, "invalid date, want YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		date = parsed
	}

	rollups, err := s.aggregatorService.Rollup(r.Context(), date, q.Get("page"))
	if err != nil {
		s.serviceError(w, err, "rollup failed")
		return
	}
	s.jsonResponse(w, rollups)
}

func (s *Server) handleRollups(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	start, err := time.Parse("2006-01-02", q.Get("start"))
	if err != nil {
		s.errorResponse(w, "invalid start, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	end, err := time.Parse("2006-01-02", q.Get("end"))
	if err != nil {
		s.errorResponse(w, "invalid end, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	if end.Before(start) {
		s.errorResponse(w, "end before start", http.StatusBadRequest)
		return
	}

	rollups, err := s.aggregatorService.GetRollups(r.Context(), start, end, q.Get("page"))
	if err != nil {
		s.serviceError(w, err, "failed to get rollups")
		return
	}
	s.jsonResponse(w, rollups)
}

// ---- Helper Methods ----

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) errorResponse(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// serviceError maps service errors onto HTTP status codes.
func (s *Server) serviceError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case adserver.IsValidation(err):
		s.errorResponse(w, err.Error(), http.StatusBadRequest)
	case adserver.IsConflict(err):
		s.errorResponse(w, err.Error(), http.StatusConflict)
	case adserver.IsNotFound(err):
		s.errorResponse(w, "not found", http.StatusNotFound)
	default:
		s.logger.Error(logMsg, zap.Error(err))
		s.errorResponse(w, "internal error", http.StatusInternalServerError)
	}
}
