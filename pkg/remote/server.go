package remote

import (
	"context"
	"io"
	"io/fs"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dattu/commitlog_store/pkg/backend"
)

const serviceName = "commitlog.Backend"

// Server exposes one backend.FileSystem over the Backend service. Rename
// atomicity is whatever the wrapped backend provides, so the create-once
// guarantee holds end to end.
type Server struct {
	fs     backend.FileSystem
	logger logrus.FieldLogger
}

// Register registers a Backend service over fs with the given registrar.
func Register(r grpc.ServiceRegistrar, fs backend.FileSystem, logger logrus.FieldLogger) {
	r.RegisterService(&serviceDesc, &Server{fs: fs, logger: logger})
}

// toStatus maps backend errors onto gRPC codes so the client can
// reconstruct fs.ErrNotExist / fs.ErrExist on its side.
func toStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, fs.ErrExist):
		return status.Error(codes.AlreadyExists, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func (s *Server) Exists(ctx context.Context, req *ExistsRequest) (*ExistsResponse, error) {
	ok, err := s.fs.Exists(req.Path)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ExistsResponse{Exists: ok}, nil
}

func (s *Server) Read(ctx context.Context, req *ReadRequest) (*ReadResponse, error) {
	rc, err := s.fs.OpenRead(req.Path)
	if err != nil {
		return nil, toStatus(err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ReadResponse{Data: data}, nil
}

func (s *Server) Write(ctx context.Context, req *WriteRequest) (*WriteResponse, error) {
	w, err := s.fs.OpenWrite(req.Path, req.Truncate)
	if err != nil {
		return nil, toStatus(err)
	}
	if _, err := w.Write(req.Data); err != nil {
		_ = w.Close()
		return nil, toStatus(err)
	}
	if err := w.Close(); err != nil {
		return nil, toStatus(err)
	}
	s.logger.WithField("path", req.Path).Debug("wrote file")
	return &WriteResponse{}, nil
}

func (s *Server) List(ctx context.Context, req *ListRequest) (*ListResponse, error) {
	infos, err := s.fs.List(req.Dir)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := &ListResponse{Entries: make([]*Entry, 0, len(infos))}
	for _, fi := range infos {
		e := &Entry{Name: fi.Name, Size: fi.Size, IsDir: fi.IsDir}
		if !fi.ModTime.IsZero() {
			e.ModTimeNanos = fi.ModTime.UnixNano()
		}
		resp.Entries = append(resp.Entries, e)
	}
	return resp, nil
}

func (s *Server) Rename(ctx context.Context, req *RenameRequest) (*RenameResponse, error) {
	ok, err := s.fs.Rename(req.Src, req.Dst)
	if err != nil {
		return nil, toStatus(err)
	}
	return &RenameResponse{Renamed: ok}, nil
}

func (s *Server) Delete(ctx context.Context, req *DeleteRequest) (*DeleteResponse, error) {
	ok, err := s.fs.Delete(req.Path, req.Recursive)
	if err != nil {
		return nil, toStatus(err)
	}
	return &DeleteResponse{Deleted: ok}, nil
}

func (s *Server) Mkdir(ctx context.Context, req *MkdirRequest) (*MkdirResponse, error) {
	if err := s.fs.Mkdir(req.Dir); err != nil {
		return nil, toStatus(err)
	}
	return &MkdirResponse{}, nil
}

/* service plumbing, shaped like protoc-generated registration */

func unaryHandler[Req any](method string, call func(*Server, context.Context, *Req) (any, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	full := "/" + serviceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(*Server), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(*Server), ctx, req.(*Req))
		})
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Exists", Handler: unaryHandler("Exists", func(s *Server, ctx context.Context, r *ExistsRequest) (any, error) { return s.Exists(ctx, r) })},
		{MethodName: "Read", Handler: unaryHandler("Read", func(s *Server, ctx context.Context, r *ReadRequest) (any, error) { return s.Read(ctx, r) })},
		{MethodName: "Write", Handler: unaryHandler("Write", func(s *Server, ctx context.Context, r *WriteRequest) (any, error) { return s.Write(ctx, r) })},
		{MethodName: "List", Handler: unaryHandler("List", func(s *Server, ctx context.Context, r *ListRequest) (any, error) { return s.List(ctx, r) })},
		{MethodName: "Rename", Handler: unaryHandler("Rename", func(s *Server, ctx context.Context, r *RenameRequest) (any, error) { return s.Rename(ctx, r) })},
		{MethodName: "Delete", Handler: unaryHandler("Delete", func(s *Server, ctx context.Context, r *DeleteRequest) (any, error) { return s.Delete(ctx, r) })},
		{MethodName: "Mkdir", Handler: unaryHandler("Mkdir", func(s *Server, ctx context.Context, r *MkdirRequest) (any, error) { return s.Mkdir(ctx, r) })},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "backend.proto",
}
