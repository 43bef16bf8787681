package pushnotification

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/sedeops/autoassign/internal/config"
	"github.com/sedeops/autoassign/internal/pushsubscription"
	"github.com/sedeops/autoassign/internal/worker"
	"github.com/sedeops/autoassign/pkg/cerr"
)

type Server struct {
	vapidEnv   *config.VAPIDEnv
	repo       pushsubscription.Repository
	workerRepo worker.Repository
}

func NewServer(vapidEnv *config.VAPIDEnv, repo pushsubscription.Repository, workerRepo worker.Repository) *Server {
	return &Server{
		vapidEnv:   vapidEnv,
		repo:       repo,
		workerRepo: workerRepo,
	}
}

// Routes mounts the push endpoints; the caller installs the cerr middleware.
func (s *Server) Routes(r chi.Router) {
	r.Get("/push/vapid-public-key", s.GetVapidPublicKey)
	r.Post("/push/subscriptions", s.RegisterPushSubscription)
	r.Delete("/push/subscriptions", s.UnregisterPushSubscription)
}

func (s *Server) GetVapidPublicKey(w http.ResponseWriter, r *http.Request) {
	if s.vapidEnv.VAPIDPublicKey == "" {
		cerr.SetNewJSONError(r.Context(), cerr.FailedPrecondition, "VAPID keys not configured", nil)
		return
	}
	cerr.SetJSONResponse(r.Context(), map[string]string{"publicKey": s.vapidEnv.VAPIDPublicKey})
}

type registerRequest struct {
	WorkerID  string `json:"workerId"`
	Endpoint  string `json:"endpoint"`
	P256dhKey string `json:"p256dhKey"`
	AuthKey   string `json:"authKey"`
}

func (s *Server) RegisterPushSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", fmt.Errorf("decode request: %w", err))
		return
	}
	for _, f := range []struct{ name, value string }{
		{"workerId", req.WorkerID},
		{"endpoint", req.Endpoint},
		{"p256dhKey", req.P256dhKey},
		{"authKey", req.AuthKey},
	} {
		if f.value == "" {
			cerr.SetJSONError(ctx, cerr.NewError(cerr.InvalidArgument, f.name+" is required", nil).
				AddFieldViolation(f.name, "required", f.name+" is required"))
			return
		}
	}
	if _, err := s.workerRepo.Get(ctx, req.WorkerID); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	// Re-registering an endpoint replaces its keys and owner.
	if existing, err := s.repo.FindByEndpoint(ctx, req.Endpoint); err == nil {
		if err := s.repo.Delete(ctx, existing.ID); err != nil {
			cerr.SetJSONError(ctx, err)
			return
		}
	} else if !cerr.IsCode(err, cerr.NotFound) {
		cerr.SetJSONError(ctx, err)
		return
	}

	sub := &pushsubscription.Subscription{
		ID:        ulid.Make().String(),
		WorkerID:  req.WorkerID,
		Endpoint:  req.Endpoint,
		P256dhKey: req.P256dhKey,
		AuthKey:   req.AuthKey,
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, map[string]string{"id": sub.ID})
}

func (s *Server) UnregisterPushSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	endpoint := r.URL.Query().Get("endpoint")
	if endpoint == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "endpoint is required", nil)
		return
	}
	sub, err := s.repo.FindByEndpoint(ctx, endpoint)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if err := s.repo.Delete(ctx, sub.ID); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]string{"id": sub.ID})
}
