package quorum

import (
	"fmt"
	"testing"

	"github.com/couchbase/zkensemble/common/ensemble"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func host(name, domain string) ensemble.Host {
	return ensemble.Host{
		Address: name + ".example.com",
		Domain:  domain,
		Name:    name,
	}
}

func TestSelectQuorumTwoDomainsDropsOne(t *testing.T) {
	hosts := []ensemble.Host{
		host("a", "dc1"),
		host("b", "dc2"),
		host("c", "dc1"),
	}

	selected, err := SelectQuorum(hosts)
	require.NoError(t, err)

	// dc1 and dc2 each get a representative, then dc2 is dropped to keep
	// the count odd.
	require.Len(t, selected, 1)
	assert.Equal(t, "a", selected[0].Name)
	assert.Equal(t, "dc1", selected[0].Domain)
}

func TestSelectQuorumOddDomainsKeepsAll(t *testing.T) {
	hosts := []ensemble.Host{
		host("d", "dc3"),
		host("a", "dc1"),
		host("b", "dc2"),
		host("c", "dc1"),
	}

	selected, err := SelectQuorum(hosts)
	require.NoError(t, err)
	require.Len(t, selected, 3)

	assert.Equal(t, "a", selected[0].Name)
	assert.Equal(t, "b", selected[1].Name)
	assert.Equal(t, "d", selected[2].Name)
}

func TestSelectQuorumIgnoresInputOrder(t *testing.T) {
	hosts := []ensemble.Host{
		host("z", "dc1"),
		host("m", "dc1"),
		host("a", "dc2"),
		host("q", "dc3"),
		host("b", "dc3"),
	}
	reversed := make([]ensemble.Host, len(hosts))
	for i := range hosts {
		reversed[len(hosts)-1-i] = hosts[i]
	}

	first, err := SelectQuorum(hosts)
	require.NoError(t, err)
	second, err := SelectQuorum(reversed)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "m", first[0].Name)
	assert.Equal(t, "b", first[2].Name)
}

func TestSelectQuorumTiesBrokenByName(t *testing.T) {
	hosts := []ensemble.Host{
		{Address: "10.0.0.1", Domain: "dc1", Name: "second"},
		{Address: "10.0.0.1", Domain: "dc1", Name: "first"},
	}

	selected, err := SelectQuorum(hosts)
	require.NoError(t, err)
	require.Len(t, selected, 1)
	assert.Equal(t, "first", selected[0].Name)
}

func TestSelectQuorumNoDomains(t *testing.T) {
	_, err := SelectQuorum(nil)
	assert.ErrorIs(t, err, ensemble.ErrInsufficientDomains)
}

func TestSelectQuorumProperties(t *testing.T) {
	for domainCount := 1; domainCount <= 8; domainCount++ {
		var hosts []ensemble.Host
		for d := 0; d < domainCount; d++ {
			for h := 0; h < 3; h++ {
				hosts = append(hosts, host(fmt.Sprintf("h%d-%d", d, h), fmt.Sprintf("dc%d", d)))
			}
		}

		selected, err := SelectQuorum(hosts)
		require.NoError(t, err)

		assert.Equal(t, 1, len(selected)%2, "even quorum for %d domains", domainCount)

		seen := make(map[string]bool)
		for _, h := range selected {
			assert.False(t, seen[h.Domain], "domain %s selected twice", h.Domain)
			seen[h.Domain] = true
		}
	}
}

func TestDomains(t *testing.T) {
	hosts := []ensemble.Host{
		host("a", "dc2"),
		host("b", "dc1"),
		host("c", "dc2"),
	}
	assert.Equal(t, []string{"dc1", "dc2"}, Domains(hosts))
	assert.Empty(t, Domains(nil))
}
