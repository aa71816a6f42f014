// Package server exposes the questionnaire operations over gRPC.
package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/questionnaire-tracker/constants"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/async"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/common"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/export"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/questionnaire"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/session"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/utils"
)

type Server struct {
	svc     *questionnaire.Service
	engine  *session.Engine
	exports *export.Service
	queue   async.Queue
	logger  *slog.Logger
	table   map[string]structHandler
}

// NewServer wires the handlers. A nil queue makes every upload synchronous.
func NewServer(svc *questionnaire.Service, engine *session.Engine, exports *export.Service, queue async.Queue, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{svc: svc, engine: engine, exports: exports, queue: queue, logger: logger}
	s.table = map[string]structHandler{
		MethodUploadQuestionnaire: s.UploadQuestionnaire,
		MethodListCountries:       s.ListCountries,
		MethodListQuestions:       s.ListQuestions,
		MethodCurateQuestion:      s.CurateQuestion,
		MethodListJobs:            s.ListJobs,
		MethodStartSession:        s.StartSession,
		MethodSelectCountry:       s.SelectCountry,
		MethodNextQuestion:        s.NextQuestion,
		MethodSubmitAnswer:        s.SubmitAnswer,
		MethodSkipQuestion:        s.SkipQuestion,
		MethodGetProgress:         s.GetProgress,
		MethodEndSession:          s.EndSession,
		MethodExportReport:        s.ExportReport,
	}
	return s
}

var _ QuestionnaireServiceServer = (*Server)(nil)

func (s *Server) handlers() map[string]structHandler { return s.table }

// NewGRPCServer builds a grpc.Server with tracing, request logging, health and
// reflection, and registers srv on it.
func NewGRPCServer(srv *Server, logger *slog.Logger) (*grpc.Server, *health.Server) {
	gs := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(requestLogger(logger)),
	)
	RegisterQuestionnaireServiceServer(gs, srv)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(gs)
	return gs, hs
}

func requestLogger(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		reqID := incomingRequestID(ctx)
		ctx = common.WithRequestID(ctx, reqID)
		_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDHeader, reqID))

		resp, err := handler(ctx, req)
		attrs := []any{"method", info.FullMethod, "req_id", reqID, "elapsed_ms", time.Since(start).Milliseconds()}
		if in, ok := req.(*structpb.Struct); ok {
			if sid := utils.StringField(in, "session_id"); sid != "" {
				attrs = append(attrs, "session_id", sid)
			}
		}
		if err != nil {
			logger.Warn("grpc.request.failed", append(attrs, "code", status.Code(err).String(), "error", err)...)
		} else {
			logger.Debug("grpc.request.ok", attrs...)
		}
		return resp, err
	}
}

const requestIDHeader = "x-request-id"

// incomingRequestID honours a caller supplied x-request-id, else mints one.
func incomingRequestID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(requestIDHeader); len(v) > 0 && strings.TrimSpace(v[0]) != "" {
			return v[0]
		}
	}
	return uuid.NewString()
}

type uploadRequest struct {
	Path  string `json:"path"`
	Async bool   `json:"async"`
}

func (s *Server) UploadQuestionnaire(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req uploadRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	path := strings.TrimSpace(req.Path)
	if path == "" {
		return nil, status.Error(codes.InvalidArgument, "path is required")
	}
	if req.Async && s.queue != nil {
		if err := s.queue.Enqueue(ctx, async.Job{Path: path}); err != nil {
			s.logger.Error("enqueue upload failed", "path", path, "error", err)
			return nil, status.Errorf(codes.Unavailable, "enqueue failed: %v", err)
		}
		return encode(map[string]any{"queued": true, "path": path})
	}
	return encode(s.svc.Upload(ctx, path))
}

func (s *Server) ListCountries(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return encode(map[string]any{
		"countries":      s.svc.Countries(),
		"categories":     constants.CategoryLabels(),
		"question_types": constants.QuestionTypes(),
	})
}

type listQuestionsRequest struct {
	Country  string `json:"country"`
	Category string `json:"category"`
	Filter   string `json:"filter"`
}

func (s *Server) ListQuestions(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req listQuestionsRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	qs, err := s.svc.ListQuestions(ctx, req.Country, req.Category, req.Filter)
	if err != nil {
		return nil, common.GRPCStatus(err)
	}
	return encode(map[string]any{"questions": qs, "total": len(qs)})
}

type curateRequest struct {
	ID      string   `json:"id"`
	Options []string `json:"options"`
}

func (s *Server) CurateQuestion(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req curateRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	q, err := s.svc.CurateQuestion(ctx, req.ID, req.Options)
	if err != nil {
		return nil, common.GRPCStatus(err)
	}
	return encode(q)
}

func (s *Server) ListJobs(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req struct {
		Limit int `json:"limit"`
	}
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	jobs, err := s.svc.Jobs(ctx, req.Limit)
	if err != nil {
		return nil, common.GRPCStatus(err)
	}
	return encode(map[string]any{"jobs": jobs})
}

type sessionRequest struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Country   string `json:"country"`
	Answer    string `json:"answer"`
}

func (s *Server) StartSession(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req sessionRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	res, err := s.engine.StartSession(ctx, req.UserID, req.Country, req.SessionID)
	if err != nil {
		return nil, common.GRPCStatus(err)
	}
	return encode(res)
}

func (s *Server) SelectCountry(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decodeSession(in)
	if err != nil {
		return nil, err
	}
	res, err := s.engine.SelectCountry(ctx, req.SessionID, req.Country)
	if err != nil {
		return nil, common.GRPCStatus(err)
	}
	return encode(res)
}

func (s *Server) NextQuestion(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decodeSession(in)
	if err != nil {
		return nil, err
	}
	res, err := s.engine.NextQuestion(ctx, req.SessionID)
	if err != nil {
		return nil, common.GRPCStatus(err)
	}
	return encode(res)
}

func (s *Server) SubmitAnswer(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decodeSession(in)
	if err != nil {
		return nil, err
	}
	res, err := s.engine.SubmitAnswer(ctx, req.SessionID, req.Answer)
	if err != nil {
		return nil, common.GRPCStatus(err)
	}
	return encode(res)
}

func (s *Server) SkipQuestion(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decodeSession(in)
	if err != nil {
		return nil, err
	}
	res, err := s.engine.SkipQuestion(ctx, req.SessionID)
	if err != nil {
		return nil, common.GRPCStatus(err)
	}
	return encode(res)
}

func (s *Server) GetProgress(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decodeSession(in)
	if err != nil {
		return nil, err
	}
	rep, err := s.engine.Progress(ctx, req.SessionID)
	if err != nil {
		return nil, common.GRPCStatus(err)
	}
	return encode(rep)
}

func (s *Server) EndSession(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decodeSession(in)
	if err != nil {
		return nil, err
	}
	if err := s.engine.EndSession(ctx, req.SessionID); err != nil {
		return nil, common.GRPCStatus(err)
	}
	return encode(map[string]any{"ended": true, "session_id": req.SessionID})
}

// ExportReport returns a base64 workbook: the session report when a user is
// given, else the country's question bank.
func (s *Server) ExportReport(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req sessionRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Country) == "" {
		return nil, status.Error(codes.InvalidArgument, "country is required")
	}

	var (
		xlsx []byte
		err  error
		name string
	)
	if strings.TrimSpace(req.UserID) != "" {
		xlsx, err = s.exports.SessionReportXLSX(ctx, req.UserID, req.SessionID, req.Country)
		name = fmt.Sprintf("report_%s.xlsx", sanitizeName(req.UserID))
	} else {
		xlsx, err = s.exports.QuestionsXLSX(ctx, req.Country)
		name = fmt.Sprintf("questions_%s.xlsx", sanitizeName(req.Country))
	}
	if err != nil {
		s.logger.Error("export.xlsx.failed", "country", req.Country, "user_id", req.UserID, "error", err)
		return nil, common.GRPCStatus(err)
	}
	return encode(map[string]any{
		"filename": name,
		"xlsx":     base64.StdEncoding.EncodeToString(xlsx),
		"bytes":    len(xlsx),
	})
}

func decodeSession(in *structpb.Struct) (sessionRequest, error) {
	var req sessionRequest
	if err := decode(in, &req); err != nil {
		return req, err
	}
	if strings.TrimSpace(req.SessionID) == "" {
		return req, status.Error(codes.InvalidArgument, "session_id is required")
	}
	return req, nil
}

func decode(in *structpb.Struct, v any) error {
	if err := utils.FromStruct(in, v); err != nil {
		return status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}
	return nil
}

func encode(v any) (*structpb.Struct, error) {
	out, err := utils.ToStruct(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func sanitizeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(s))
}
