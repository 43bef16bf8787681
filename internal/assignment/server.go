package assignment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"connectrpc.com/connect"

	"github.com/sedeops/autoassign/pkg/cerr"
)

const (
	ServiceName                = "autoassign.v1.AssignmentService"
	RunAutoAssignmentProcedure = "/" + ServiceName + "/RunAutoAssignment"
	maxRequestBodyBytes        = 1 << 20
)

type RunAutoAssignmentRequest struct {
	TaskIDs []string `json:"taskIds"`
}

type RunAutoAssignmentResponse struct {
	Success bool     `json:"success"`
	Results []Result `json:"results"`
	Summary Summary  `json:"summary"`
}

type Server struct {
	scheduler *Scheduler
}

func NewServer(scheduler *Scheduler) *Server {
	return &Server{scheduler: scheduler}
}

func (s *Server) run(ctx context.Context, taskIDs []string) (*RunAutoAssignmentResponse, error) {
	batch, err := s.scheduler.RunAutoAssignment(ctx, taskIDs)
	if err != nil {
		return nil, err
	}
	return &RunAutoAssignmentResponse{
		Success: true,
		Results: batch.Results,
		Summary: batch.Summary,
	}, nil
}

// HandleRunAutoAssignment serves POST /api/auto-assign. It must run behind
// cerr.NewConvertConnectErrorChiMiddleware, which writes the response.
func (s *Server) HandleRunAutoAssignment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body struct {
		TaskIDs *[]string `json:"taskIds"`
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err := dec.Decode(&body); err != nil {
		cerr.SetJSONError(ctx, cerr.NewError(cerr.InvalidArgument, ErrInvalidRequest.Error(), fmt.Errorf("decode request: %w", err)).
			AddFieldViolation("taskIds", "type", "taskIds must be an array of strings"))
		return
	}
	var taskIDs []string
	if body.TaskIDs != nil {
		taskIDs = *body.TaskIDs
		if taskIDs == nil {
			taskIDs = []string{}
		}
	}
	resp, err := s.run(ctx, taskIDs)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, resp)
}

// RunAutoAssignment is the connect unary handler for RunAutoAssignmentProcedure.
func (s *Server) RunAutoAssignment(ctx context.Context, req *connect.Request[RunAutoAssignmentRequest]) (*connect.Response[RunAutoAssignmentResponse], error) {
	resp, err := s.run(ctx, req.Msg.TaskIDs)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

// NewConnectHandler mounts the service on a connect handler. Messages are
// plain Go structs, so the JSON codec replaces the protobuf ones.
func NewConnectHandler(s *Server, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)
	return "/" + ServiceName + "/", connect.NewUnaryHandler(RunAutoAssignmentProcedure, s.RunAutoAssignment, opts...)
}

// JSONCodec is a connect codec for non-protobuf messages.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (JSONCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
