/*
Copyright 2025-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

// Package jmxtrans renders the configuration of the jmxtrans sidecar that
// ships the JMX metrics of one ensemble member to graphite.
package jmxtrans

import (
	"encoding/json"

	"github.com/couchbase/zkensemble/common/ensemble"
	"github.com/pkg/errors"
)

const (
	DefaultRole         = "Follower"
	DefaultQueryThreads = 2

	graphiteWriterClass = "com.googlecode.jmxtrans.model.output.GraphiteWriter"
)

var ErrInvalidCollector = errors.New("invalid collector")

var dataTreeAttrs = []string{
	"NodeCount",
}

var serverAttrs = []string{
	"PacketsReceived",
	"PacketsSent",
	"NumAliveConnections",
	"MaxRequestLatency",
	"OutstandingRequests",
	"PendingRevalidationCount",
	"MaxClientCnxnsPerHost",
	"MaxSessionTimeout",
	"MinSessionTimeout",
	"AvgRequestLatency",
}

// Collector is a graphite endpoint that receives the query results.
type Collector struct {
	Host string `json:"host" yaml:"host" mapstructure:"host"`
	Port int    `json:"port" yaml:"port" mapstructure:"port"`
}

func (c Collector) Validate() error {
	if c.Host == "" || c.Port <= 0 || c.Port > 65535 {
		return errors.Wrapf(ErrInvalidCollector, "%s:%d", c.Host, c.Port)
	}
	return nil
}

type Options struct {
	// Role is the replicated server role whose bean is queried.
	Role string

	QueryThreads int
}

type WriterSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type OutputWriter struct {
	Class    string         `json:"@class"`
	Settings WriterSettings `json:"settings"`
}

type Operation struct {
	Method     string        `json:"method"`
	Parameters []interface{} `json:"parameters"`
}

type Query struct {
	OutputWriters []OutputWriter `json:"outputWriters"`
	Obj           string         `json:"obj"`
	Attr          []string       `json:"attr"`
	Oper          []Operation    `json:"oper,omitempty"`
}

type Server struct {
	Host            string  `json:"host"`
	Port            int     `json:"port"`
	Alias           string  `json:"alias"`
	NumQueryThreads int     `json:"numQueryThreads"`
	Queries         []Query `json:"queries"`
}

// Descriptor is the jmxtrans configuration document of one member.
type Descriptor struct {
	Servers []Server `json:"servers"`

	memberID int
}

// MemberID returns the id of the member the descriptor was rendered for.
func (d *Descriptor) MemberID() int {
	return d.memberID
}

// Validate checks that every query targets the member the descriptor
// belongs to.
func (d *Descriptor) Validate() error {
	for _, server := range d.Servers {
		for _, query := range server.Queries {
			memberID, err := MemberIDFromObjectName(query.Obj)
			if err != nil {
				return err
			}
			if memberID != d.memberID {
				return errors.Errorf("query %q belongs to member %d, not %d", query.Obj, memberID, d.memberID)
			}
		}
	}
	return nil
}

// MarshalIndent renders the descriptor as indented JSON.
func (d *Descriptor) MarshalIndent() ([]byte, error) {
	out, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// RenderMonitoring builds the jmxtrans descriptor for member.  Results are
// sent to every collector, an empty collector list yields queries without
// output writers.
func RenderMonitoring(member *ensemble.Member, collectors []Collector, opts Options) (*Descriptor, error) {
	if opts.Role == "" {
		opts.Role = DefaultRole
	}
	if opts.QueryThreads <= 0 {
		opts.QueryThreads = DefaultQueryThreads
	}

	mgmt, ok := member.Endpoint(ensemble.EndpointManagement)
	if !ok {
		return nil, errors.Errorf("member %d has no management endpoint", member.ID)
	}

	writers := make([]OutputWriter, 0, len(collectors))
	for collectorIdx, collector := range collectors {
		if err := collector.Validate(); err != nil {
			return nil, errors.Wrapf(err, "collector %d", collectorIdx)
		}

		writers = append(writers, OutputWriter{
			Class: graphiteWriterClass,
			Settings: WriterSettings{
				Host: collector.Host,
				Port: collector.Port,
			},
		})
	}

	// each query gets its own copy so the document can be edited safely
	queryWriters := func() []OutputWriter {
		out := make([]OutputWriter, len(writers))
		copy(out, writers)
		return out
	}

	desc := &Descriptor{
		Servers: []Server{{
			Host:            mgmt.Host,
			Port:            mgmt.Port,
			Alias:           member.Host.DisplayName(),
			NumQueryThreads: opts.QueryThreads,
			Queries: []Query{{
				OutputWriters: queryWriters(),
				Obj:           ObjectName(member.ID, opts.Role, dataTreeBean),
				Attr:          append([]string(nil), dataTreeAttrs...),
				Oper: []Operation{{
					Method:     "countEphemerals",
					Parameters: []interface{}{},
				}},
			}, {
				OutputWriters: queryWriters(),
				Obj:           ObjectName(member.ID, opts.Role),
				Attr:          append([]string(nil), serverAttrs...),
			}},
		}},
		memberID: member.ID,
	}

	err := desc.Validate()
	if err != nil {
		return nil, err
	}

	return desc, nil
}
