package rpc

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/rpc"
	"strconv"
	"time"

	"fusionx/emu"
	"fusionx/hw/bus"
)

// Controller is the control surface served over rpc.
type Controller interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Pause(ctx context.Context) error
	Continue(ctx context.Context) error
	Reset(ctx context.Context) error
	UseHostRam(ctx context.Context) error
	UseVirtualRam(ctx context.Context) error
	SyncToHostRam(ctx context.Context) error
	DumpMemory(ctx context.Context, req emu.DumpRequest) (string, error)
	LoadMemory(ctx context.Context, addr uint32, data []byte, k emu.MemKind) error
	SetCPUFrequency(ctx context.Context, mult int) error
	SetPC(ctx context.Context, pc uint16) error
	AddDevice(ctx context.Context, name string) error
	RemoveDevice(ctx context.Context, name string) error
	SendRawCommand(ctx context.Context, cmd uint32) ([2]uint32, error)
	TakeHotKey() bus.HotKey
	Status() emu.Status
}

type ctlProxy struct {
	ctl Controller
	ctx context.Context
}

type none = struct{}

func (p *ctlProxy) Start(_, _ *none) error         { return p.ctl.Start(p.ctx) }
func (p *ctlProxy) Stop(_, _ *none) error          { return p.ctl.Stop(p.ctx) }
func (p *ctlProxy) Pause(_, _ *none) error         { return p.ctl.Pause(p.ctx) }
func (p *ctlProxy) Continue(_, _ *none) error      { return p.ctl.Continue(p.ctx) }
func (p *ctlProxy) Reset(_, _ *none) error         { return p.ctl.Reset(p.ctx) }
func (p *ctlProxy) UseHostRam(_, _ *none) error    { return p.ctl.UseHostRam(p.ctx) }
func (p *ctlProxy) UseVirtualRam(_, _ *none) error { return p.ctl.UseVirtualRam(p.ctx) }
func (p *ctlProxy) SyncToHostRam(_, _ *none) error { return p.ctl.SyncToHostRam(p.ctx) }

func (p *ctlProxy) DumpMemory(req emu.DumpRequest, reply *string) error {
	out, err := p.ctl.DumpMemory(p.ctx, req)
	*reply = out
	return err
}

func (p *ctlProxy) LoadMemory(args LoadArgs, _ *none) error {
	k, err := emu.ParseMemKind(args.Kind)
	if err != nil {
		return err
	}
	return p.ctl.LoadMemory(p.ctx, args.Addr, args.Data, k)
}

func (p *ctlProxy) SetCPUFrequency(mult int, _ *none) error { return p.ctl.SetCPUFrequency(p.ctx, mult) }
func (p *ctlProxy) SetPC(pc uint16, _ *none) error          { return p.ctl.SetPC(p.ctx, pc) }
func (p *ctlProxy) AddDevice(name string, _ *none) error    { return p.ctl.AddDevice(p.ctx, name) }
func (p *ctlProxy) RemoveDevice(name string, _ *none) error { return p.ctl.RemoveDevice(p.ctx, name) }

func (p *ctlProxy) SendRawCommand(cmd uint32, reply *[2]uint32) error {
	resp, err := p.ctl.SendRawCommand(p.ctx, cmd)
	*reply = resp
	return err
}

func (p *ctlProxy) TakeHotKey(_ *none, reply *uint8) error {
	*reply = uint8(p.ctl.TakeHotKey())
	return nil
}

// Status replies with the JSON form of the controller status.
func (p *ctlProxy) Status(_ *none, reply *[]byte) error {
	buf, err := p.ctl.Status().MarshalJSON()
	*reply = buf
	return err
}

func (p *ctlProxy) IsReady(_ *none, reply *bool) error {
	*reply = true
	return nil
}

type Server struct {
	l    net.Listener
	http *http.Server
	ctl  *ctlProxy
}

// NewServer listens on port and registers ctl. Calls are not served until
// Serve is called.
func NewServer(port int, ctl Controller) (*Server, error) {
	proxy := &ctlProxy{ctl: ctl, ctx: context.Background()}
	srv := rpc.NewServer()
	if err := srv.RegisterName(service, proxy); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle(rpc.DefaultRPCPath, srv)

	l, err := net.Listen("tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return nil, err
	}
	return &Server{
		l:    l,
		http: &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		ctl:  proxy,
	}, nil
}

// Addr returns the listening address.
func (s *Server) Addr() net.Addr { return s.l.Addr() }

// Serve serves rpc calls until ctx is done. Controller commands issued
// through the server are canceled with ctx.
func (s *Server) Serve(ctx context.Context) error {
	s.ctl.ctx = ctx
	modRPC.InfoZ("rpc server listening").String("addr", s.l.Addr().String()).End()

	errc := make(chan error, 1)
	go func() { errc <- s.http.Serve(s.l) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdown, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdown); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	modRPC.InfoZ("rpc server closed").End()
	return nil
}
