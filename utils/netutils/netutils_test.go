package netutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsInAddrAny(t *testing.T) {
	assert.True(t, IsInAddrAny(""))
	assert.True(t, IsInAddrAny("0.0.0.0"))
	assert.True(t, IsInAddrAny("::"))
	assert.True(t, IsInAddrAny("::/0"))
	assert.False(t, IsInAddrAny("127.0.0.1"))
	assert.False(t, IsInAddrAny("zk1.example.com"))
}

func TestJoinHostPort(t *testing.T) {
	assert.Equal(t, "zk1.example.com:2181", JoinHostPort("zk1.example.com", 2181))
	assert.Equal(t, "[fd00::1]:2888", JoinHostPort("fd00::1", 2888))
}
