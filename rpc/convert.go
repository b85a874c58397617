package rpc

import (
	"fmt"
	"net/netip"
	"time"

	"github.com/minizivpn/tunneld/probe"
	"github.com/minizivpn/tunneld/route"
	"github.com/minizivpn/tunneld/signal"
	"github.com/minizivpn/tunneld/transport"
	"google.golang.org/protobuf/types/known/structpb"
)

// Routes travel as a list of "a.b.c.d/n" strings.
func setToList(set route.Set) *structpb.ListValue {
	values := make([]*structpb.Value, len(set))
	for i, b := range set {
		values[i] = structpb.NewStringValue(b.String())
	}

	return &structpb.ListValue{Values: values}
}

func listToSet(l *structpb.ListValue) (route.Set, error) {
	set := make(route.Set, len(l.GetValues()))

	for i, v := range l.GetValues() {
		p, err := netip.ParsePrefix(v.GetStringValue())
		if err != nil {
			return nil, fmt.Errorf("route %d: %w", i, err)
		}

		b, ok := route.BlockFromPrefix(p)
		if !ok {
			return nil, fmt.Errorf("route %d: not an IPv4 prefix: %s", i, p)
		}

		set[i] = b
	}

	return set, nil
}

func reportToStruct(r probe.Report) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"technology":      r.Sample.Technology.String(),
		"rsrp":            r.Sample.RSRP,
		"sinr":            r.Sample.SINR,
		"registered":      r.Sample.Registered,
		"score":           int(r.Score),
		"mode":            r.Transport.Mode.String(),
		"receive_window":  r.Transport.ReceiveWindow,
		"max_connections": r.Transport.MaxConnections,
		"at":              r.At.UTC().Format(time.RFC3339Nano),
	})
}

func structToReport(s *structpb.Struct) (probe.Report, error) {
	fields := s.GetFields()

	get := func(name string) (*structpb.Value, error) {
		v, ok := fields[name]
		if !ok {
			return nil, fmt.Errorf("report: missing field %s", name)
		}
		return v, nil
	}

	var r probe.Report
	var err error

	num := func(name string) int {
		if err != nil {
			return 0
		}

		var v *structpb.Value
		v, err = get(name)
		return int(v.GetNumberValue())
	}

	str := func(name string) string {
		if err != nil {
			return ""
		}

		var v *structpb.Value
		v, err = get(name)
		return v.GetStringValue()
	}

	r.Sample.Technology = signal.ParseTechnology(str("technology"))
	r.Sample.RSRP = num("rsrp")
	r.Sample.SINR = num("sinr")
	r.Score = signal.Score(num("score"))
	r.Transport.ReceiveWindow = num("receive_window")
	r.Transport.MaxConnections = num("max_connections")
	mode := str("mode")
	at := str("at")

	if err != nil {
		return probe.Report{}, err
	}

	if v, ok := fields["registered"]; ok {
		r.Sample.Registered = v.GetBoolValue()
	}

	r.Transport.Mode, err = transport.ParseMode(mode)
	if err != nil {
		return probe.Report{}, err
	}

	r.At, err = time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return probe.Report{}, fmt.Errorf("report: invalid time: %w", err)
	}

	return r, nil
}
