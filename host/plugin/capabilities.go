package plugin

import (
	"strings"

	"github.com/cwbudde/algo-hotmic/host/analysis"
)

// Capability is a flag set of the optional interfaces a plugin implements.
type Capability uint16

const (
	CapContext Capability = 1 << iota
	CapProducer
	CapConsumer
	CapBlocker
	CapInput
	CapStatus
	CapBusSender
	CapLatency
	CapMeters
)

var capabilityNames = []struct {
	flag Capability
	name string
}{
	{CapContext, "context"},
	{CapProducer, "producer"},
	{CapConsumer, "consumer"},
	{CapBlocker, "blocker"},
	{CapInput, "input"},
	{CapStatus, "status"},
	{CapBusSender, "bus-sender"},
	{CapLatency, "latency"},
	{CapMeters, "meters"},
}

func (c Capability) String() string {
	if c == 0 {
		return "none"
	}

	var names []string

	for _, n := range capabilityNames {
		if c&n.flag != 0 {
			names = append(names, n.name)
		}
	}

	return strings.Join(names, ",")
}

// Capabilities is the capability set of one plugin instance, resolved once
// at registration. Masks are fixed for the lifetime of the instance.
type Capabilities struct {
	Flags Capability

	Produced analysis.Mask
	Required analysis.Mask
	Blocked  analysis.Mask

	Input      InputKind
	SendTarget int

	Context  ContextProcessor
	Consumer SignalConsumer
	Status   StatusProvider
	Latency  LatencyReporter
	Meters   Meters
}

// Has reports whether all flags in f are set.
func (c Capabilities) Has(f Capability) bool {
	return c.Flags&f == f
}

// Inspect resolves the optional interfaces of p.
func Inspect(p Plugin) Capabilities {
	caps := Capabilities{SendTarget: -1}

	if cp, ok := p.(ContextProcessor); ok {
		caps.Flags |= CapContext
		caps.Context = cp
	}

	if sp, ok := p.(SignalProducer); ok {
		caps.Flags |= CapProducer
		caps.Produced = sp.ProducedSignals() & analysis.All
	}

	if sc, ok := p.(SignalConsumer); ok {
		caps.Flags |= CapConsumer
		caps.Consumer = sc
		caps.Required = sc.RequiredSignals() & analysis.All
	}

	if sb, ok := p.(SignalBlocker); ok {
		caps.Flags |= CapBlocker
		caps.Blocked = sb.BlockedSignals() & analysis.All
	}

	if in, ok := p.(InputSource); ok {
		caps.Flags |= CapInput
		caps.Input = in.InputKind()
	}

	if st, ok := p.(StatusProvider); ok {
		caps.Flags |= CapStatus
		caps.Status = st
	}

	if bs, ok := p.(BusSender); ok {
		caps.Flags |= CapBusSender
		caps.SendTarget = bs.SendTarget()
	}

	if lr, ok := p.(LatencyReporter); ok {
		caps.Flags |= CapLatency
		caps.Latency = lr
	}

	if m, ok := p.(Metered); ok {
		caps.Flags |= CapMeters
		caps.Meters = m.Meters()
	}

	return caps
}
