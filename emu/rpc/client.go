package rpc

import (
	"fmt"
	"net/rpc"
	"strconv"
	"time"

	"fusionx/emu"
	"fusionx/hw/bus"
)

type Client struct {
	client *rpc.Client
}

// NewClient dials the rpc server on localhost:port, retrying a few times
// while the server starts.
func NewClient(port int) (*Client, error) {
	var (
		client *rpc.Client
		err    error
	)
	const maxretries = 5
	for i := range maxretries {
		if client, err = rpc.DialHTTP("tcp", "localhost:"+strconv.Itoa(port)); err == nil {
			break
		}
		modRPC.WarnZ("dial tcp failed").Error("err", err).Int("retry", i).End()
		time.Sleep(250 * time.Millisecond)
	}

	if err != nil {
		return nil, fmt.Errorf("dial failed max retries: %v", err)
	}

	return &Client{client: client}, nil
}

func (c *Client) Close() error {
	modRPC.DebugZ("closing rpc client").End()
	return c.client.Close()
}

func (c *Client) Start() error         { return call(c.client, "Start", nil) }
func (c *Client) Stop() error          { return call(c.client, "Stop", nil) }
func (c *Client) Pause() error         { return call(c.client, "Pause", nil) }
func (c *Client) Continue() error      { return call(c.client, "Continue", nil) }
func (c *Client) Reset() error         { return call(c.client, "Reset", nil) }
func (c *Client) UseHostRam() error    { return call(c.client, "UseHostRam", nil) }
func (c *Client) UseVirtualRam() error { return call(c.client, "UseVirtualRam", nil) }
func (c *Client) SyncToHostRam() error { return call(c.client, "SyncToHostRam", nil) }

func (c *Client) DumpMemory(req emu.DumpRequest) (string, error) {
	return request[string](c.client, "DumpMemory", req)
}

func (c *Client) LoadMemory(addr uint32, data []byte, k emu.MemKind) error {
	return call(c.client, "LoadMemory", LoadArgs{Addr: addr, Data: data, Kind: k.String()})
}

func (c *Client) SetCPUFrequency(mult int) error { return call(c.client, "SetCPUFrequency", mult) }
func (c *Client) SetPC(pc uint16) error          { return call(c.client, "SetPC", pc) }
func (c *Client) AddDevice(name string) error    { return call(c.client, "AddDevice", name) }
func (c *Client) RemoveDevice(name string) error { return call(c.client, "RemoveDevice", name) }

func (c *Client) SendRawCommand(cmd uint32) ([2]uint32, error) {
	return request[[2]uint32](c.client, "SendRawCommand", cmd)
}

func (c *Client) TakeHotKey() (bus.HotKey, error) {
	k, err := request[uint8](c.client, "TakeHotKey", nil)
	return bus.HotKey(k), err
}

func (c *Client) Status() (emu.Status, error) {
	var st emu.Status
	buf, err := request[[]byte](c.client, "Status", nil)
	if err != nil {
		return st, err
	}
	err = st.UnmarshalJSON(buf)
	return st, err
}

func call(client *rpc.Client, funcname string, args any) error {
	_, err := request[struct{}](client, funcname, args)
	return err
}

func request[T any](client *rpc.Client, funcname string, args any) (T, error) {
	if args == nil {
		args = &struct{}{}
	}
	var reply T
	if err := client.Call(service+"."+funcname, args, &reply); err != nil {
		modRPC.DebugZ("rpc call failed").String("func", funcname).Error("err", err).End()
		return reply, fmt.Errorf("%s: %w", funcname, err)
	}
	return reply, nil
}
