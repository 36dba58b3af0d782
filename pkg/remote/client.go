package remote

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"time"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dattu/commitlog_store/pkg/backend"
)

const defaultCallTimeout = 30 * time.Second

// Client implements backend.FileSystem against a Backend server. Files
// transfer whole — commit files are small by construction. The FileSystem
// surface is synchronous and carries no context, so each call runs under
// the client's own timeout.
type Client struct {
	conn    *grpc.ClientConn
	timeout time.Duration
}

// NewClient wraps an established connection.
func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn, timeout: defaultCallTimeout}
}

func (c *Client) invoke(method string, req, resp wireMessage) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	err := c.conn.Invoke(ctx, "/"+serviceName+"/"+method, req, resp,
		grpc.CallContentSubtype(codecName))
	return fromStatus(err)
}

// fromStatus reconstructs the fs sentinels the server encoded as codes.
func fromStatus(err error) error {
	switch status.Code(err) {
	case codes.OK:
		return nil
	case codes.NotFound:
		return errors.Wrap(fs.ErrNotExist, err.Error())
	case codes.AlreadyExists:
		return errors.Wrap(fs.ErrExist, err.Error())
	default:
		return err
	}
}

func (c *Client) Exists(path string) (bool, error) {
	resp := new(ExistsResponse)
	if err := c.invoke("Exists", &ExistsRequest{Path: path}, resp); err != nil {
		return false, err
	}
	return resp.Exists, nil
}

func (c *Client) OpenRead(path string) (io.ReadCloser, error) {
	resp := new(ReadResponse)
	if err := c.invoke("Read", &ReadRequest{Path: path}, resp); err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(resp.Data)), nil
}

// remoteWriter buffers locally; Close ships the content in one Write RPC,
// which also means a remote file never becomes visible half-written.
type remoteWriter struct {
	c        *Client
	path     string
	truncate bool
	buf      bytes.Buffer
	closed   bool
}

func (w *remoteWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *remoteWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.c.invoke("Write", &WriteRequest{
		Path:     w.path,
		Truncate: w.truncate,
		Data:     w.buf.Bytes(),
	}, new(WriteResponse))
}

func (c *Client) OpenWrite(path string, truncate bool) (io.WriteCloser, error) {
	return &remoteWriter{c: c, path: path, truncate: truncate}, nil
}

func (c *Client) List(dir string) ([]backend.Info, error) {
	resp := new(ListResponse)
	if err := c.invoke("List", &ListRequest{Dir: dir}, resp); err != nil {
		return nil, err
	}
	out := make([]backend.Info, 0, len(resp.Entries))
	for _, e := range resp.Entries {
		info := backend.Info{Name: e.Name, Size: e.Size, IsDir: e.IsDir}
		if e.ModTimeNanos != 0 {
			info.ModTime = time.Unix(0, e.ModTimeNanos)
		}
		out = append(out, info)
	}
	return out, nil
}

func (c *Client) Rename(src, dst string) (bool, error) {
	resp := new(RenameResponse)
	if err := c.invoke("Rename", &RenameRequest{Src: src, Dst: dst}, resp); err != nil {
		return false, err
	}
	return resp.Renamed, nil
}

func (c *Client) Delete(path string, recursive bool) (bool, error) {
	resp := new(DeleteResponse)
	if err := c.invoke("Delete", &DeleteRequest{Path: path, Recursive: recursive}, resp); err != nil {
		return false, err
	}
	return resp.Deleted, nil
}

func (c *Client) Mkdir(dir string) error {
	return c.invoke("Mkdir", &MkdirRequest{Dir: dir}, new(MkdirResponse))
}
