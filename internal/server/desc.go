package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "questionnaire.v1.QuestionnaireService"

// Method names.
const (
	MethodUploadQuestionnaire = "UploadQuestionnaire"
	MethodListCountries       = "ListCountries"
	MethodListQuestions       = "ListQuestions"
	MethodCurateQuestion      = "CurateQuestion"
	MethodListJobs            = "ListJobs"
	MethodStartSession        = "StartSession"
	MethodSelectCountry       = "SelectCountry"
	MethodNextQuestion        = "NextQuestion"
	MethodSubmitAnswer        = "SubmitAnswer"
	MethodSkipQuestion        = "SkipQuestion"
	MethodGetProgress         = "GetProgress"
	MethodEndSession          = "EndSession"
	MethodExportReport        = "ExportReport"
)

// QuestionnaireServiceServer is implemented by *Server. Every method takes and
// returns a google.protobuf.Struct.
type QuestionnaireServiceServer interface {
	handlers() map[string]structHandler
}

type structHandler func(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

var methodNames = []string{
	MethodUploadQuestionnaire, MethodListCountries, MethodListQuestions, MethodCurateQuestion,
	MethodListJobs, MethodStartSession, MethodSelectCountry, MethodNextQuestion,
	MethodSubmitAnswer, MethodSkipQuestion, MethodGetProgress, MethodEndSession, MethodExportReport,
}

// ServiceDesc describes QuestionnaireService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*QuestionnaireServiceServer)(nil),
	Methods:     methodDescs(),
	Streams:     []grpc.StreamDesc{},
	Metadata:    "questionnaire/v1/questionnaire.proto",
}

func methodDescs() []grpc.MethodDesc {
	out := make([]grpc.MethodDesc, 0, len(methodNames))
	for _, name := range methodNames {
		out = append(out, grpc.MethodDesc{MethodName: name, Handler: dispatch(name)})
	}
	return out
}

func dispatch(name string) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		h := srv.(QuestionnaireServiceServer).handlers()[name]
		if interceptor == nil {
			return h(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return h(ctx, req.(*structpb.Struct))
		})
	}
}

// RegisterQuestionnaireServiceServer registers srv on s.
func RegisterQuestionnaireServiceServer(s grpc.ServiceRegistrar, srv QuestionnaireServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client calls QuestionnaireService over any connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes method with req and returns the decoded response.
func (c *Client) Call(ctx context.Context, method string, req map[string]any, opts ...grpc.CallOption) (map[string]any, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}
