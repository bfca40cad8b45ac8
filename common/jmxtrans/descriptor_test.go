package jmxtrans

import (
	"encoding/json"
	"testing"

	"github.com/couchbase/zkensemble/common/ensemble"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMembers(t *testing.T) []*ensemble.Member {
	members, err := ensemble.BuildEnsemble([]ensemble.Host{
		{Address: "zk1.example.com", Domain: "dc1", Name: "zk1"},
		{Address: "zk2.example.com", Domain: "dc2", Name: "zk2"},
	}, ensemble.DefaultTuning())
	require.NoError(t, err)
	return members
}

func TestRenderMonitoringNoCollectors(t *testing.T) {
	member := testMembers(t)[1]

	desc, err := RenderMonitoring(member, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, desc.MemberID())

	require.Len(t, desc.Servers, 1)
	server := desc.Servers[0]
	assert.Equal(t, "zk2.example.com", server.Host)
	assert.Equal(t, 4888, server.Port)
	assert.Equal(t, "zk2", server.Alias)
	assert.Equal(t, 2, server.NumQueryThreads)

	require.Len(t, server.Queries, 2)
	for _, query := range server.Queries {
		assert.NotNil(t, query.OutputWriters)
		assert.Empty(t, query.OutputWriters)
	}

	out, err := desc.MarshalIndent()
	require.NoError(t, err)
	assert.Contains(t, string(out), `"outputWriters": []`)
	assert.NotContains(t, string(out), "null")
}

func TestRenderMonitoringQueries(t *testing.T) {
	member := testMembers(t)[1]

	desc, err := RenderMonitoring(member, nil, Options{})
	require.NoError(t, err)

	dataTree := desc.Servers[0].Queries[0]
	assert.Equal(t,
		"org.apache.ZooKeeperService:name0=ReplicatedServer_id2,name1=replica.2,name2=Follower,name3=InMemoryDataTree",
		dataTree.Obj)
	assert.Equal(t, []string{"NodeCount"}, dataTree.Attr)
	require.Len(t, dataTree.Oper, 1)
	assert.Equal(t, "countEphemerals", dataTree.Oper[0].Method)
	assert.Empty(t, dataTree.Oper[0].Parameters)

	server := desc.Servers[0].Queries[1]
	assert.Equal(t,
		"org.apache.ZooKeeperService:name0=ReplicatedServer_id2,name1=replica.2,name2=Follower",
		server.Obj)
	assert.Contains(t, server.Attr, "NumAliveConnections")
	assert.Contains(t, server.Attr, "MaxSessionTimeout")
	assert.Contains(t, server.Attr, "MinSessionTimeout")
	assert.Contains(t, server.Attr, "AvgRequestLatency")
	assert.Len(t, server.Attr, 10)
	assert.Nil(t, server.Oper)
}

func TestRenderMonitoringCollectors(t *testing.T) {
	member := testMembers(t)[0]
	collectors := []Collector{
		{Host: "graphite1.example.com", Port: 2003},
		{Host: "graphite2.example.com", Port: 2004},
	}

	desc, err := RenderMonitoring(member, collectors, Options{Role: "Leader", QueryThreads: 4})
	require.NoError(t, err)

	server := desc.Servers[0]
	assert.Equal(t, 4, server.NumQueryThreads)
	for _, query := range server.Queries {
		require.Len(t, query.OutputWriters, 2)
		for idx, writer := range query.OutputWriters {
			assert.Equal(t, "com.googlecode.jmxtrans.model.output.GraphiteWriter", writer.Class)
			assert.Equal(t, collectors[idx].Host, writer.Settings.Host)
			assert.Equal(t, collectors[idx].Port, writer.Settings.Port)
		}
		assert.Contains(t, query.Obj, "name2=Leader")
	}

	// writers are not shared between queries
	server.Queries[0].OutputWriters[0].Settings.Port = 1
	assert.Equal(t, 2003, server.Queries[1].OutputWriters[0].Settings.Port)
}

func TestRenderMonitoringInvalidCollector(t *testing.T) {
	member := testMembers(t)[0]

	_, err := RenderMonitoring(member, []Collector{{Host: "graphite.example.com", Port: 2003}, {Host: "", Port: 2003}}, Options{})
	assert.ErrorIs(t, err, ErrInvalidCollector)

	_, err = RenderMonitoring(member, []Collector{{Host: "graphite.example.com"}}, Options{})
	assert.ErrorIs(t, err, ErrInvalidCollector)
}

func TestRenderMonitoringJSONShape(t *testing.T) {
	member := testMembers(t)[0]

	desc, err := RenderMonitoring(member, []Collector{{Host: "graphite.example.com", Port: 2003}}, Options{})
	require.NoError(t, err)

	out, err := desc.MarshalIndent()
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &doc))

	servers := doc["servers"].([]interface{})
	require.Len(t, servers, 1)
	server := servers[0].(map[string]interface{})
	assert.Equal(t, "zk1", server["alias"])
	assert.EqualValues(t, 2, server["numQueryThreads"])

	queries := server["queries"].([]interface{})
	first := queries[0].(map[string]interface{})
	writer := first["outputWriters"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "com.googlecode.jmxtrans.model.output.GraphiteWriter", writer["@class"])
	assert.Equal(t, map[string]interface{}{"host": "graphite.example.com", "port": float64(2003)}, writer["settings"])

	_, hasOper := queries[1].(map[string]interface{})["oper"]
	assert.False(t, hasOper)
}

func TestRenderMonitoringDeterministic(t *testing.T) {
	collectors := []Collector{{Host: "graphite.example.com", Port: 2003}}

	first, err := RenderMonitoring(testMembers(t)[1], collectors, Options{})
	require.NoError(t, err)
	second, err := RenderMonitoring(testMembers(t)[1], collectors, Options{})
	require.NoError(t, err)

	firstOut, err := first.MarshalIndent()
	require.NoError(t, err)
	secondOut, err := second.MarshalIndent()
	require.NoError(t, err)
	assert.Equal(t, firstOut, secondOut)
}

func TestObjectNameRoundTrip(t *testing.T) {
	for _, id := range []int{1, 2, 9, 10, 255} {
		memberID, err := MemberIDFromObjectName(ObjectName(id, DefaultRole, dataTreeBean))
		require.NoError(t, err)
		assert.Equal(t, id, memberID)
	}
}

func TestMemberIDFromObjectNameMismatch(t *testing.T) {
	_, err := MemberIDFromObjectName("org.apache.ZooKeeperService:name0=ReplicatedServer_id1,name1=replica.2,name2=Follower")
	assert.Error(t, err)

	_, err = MemberIDFromObjectName("org.apache.ZooKeeperService:name0=ReplicatedServer_id1,name2=Follower")
	assert.Error(t, err)

	_, err = MemberIDFromObjectName("java.lang:type=Memory")
	assert.Error(t, err)

	_, err = MemberIDFromObjectName("org.apache.ZooKeeperService:name0=ReplicatedServer_idx,name1=replica.x")
	assert.Error(t, err)
}

func TestDescriptorValidateDetectsForeignQuery(t *testing.T) {
	desc, err := RenderMonitoring(testMembers(t)[0], nil, Options{})
	require.NoError(t, err)

	desc.Servers[0].Queries[1].Obj = ObjectName(2, DefaultRole)
	assert.Error(t, desc.Validate())
}
