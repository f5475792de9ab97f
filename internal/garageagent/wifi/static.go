package wifi

import (
	"context"
)

// Static is an Associator for links brought up outside the agent, such as
// wired ethernet. Associate does nothing; status follows the interface.
type Static struct {
	iface string
}

func NewStatic(iface string) *Static {
	return &Static{iface: iface}
}

func (s *Static) Associate(ctx context.Context) error {
	return nil
}

func (s *Static) Status() bool {
	up, _ := interfaceState(s.iface)
	return up
}

func (s *Static) LocalAddress() string {
	_, addr := interfaceState(s.iface)
	return addr
}
