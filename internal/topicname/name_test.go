package topicname

import (
	"errors"
	"testing"

	"github.com/kylelemons/godebug/pretty"

	"github.com/dray-io/dray-lookup/internal/adminerr"
)

// parsed flattens a Name for diffing.
type parsed struct {
	Domain     Domain
	Tenant     string
	Cluster    string
	Namespace  string
	Local      string
	Scheme     string
	Prefix     string
	LookupName string
	String     string
	Partition  int
}

func flatten(n Name) parsed {
	return parsed{
		Domain:     n.Domain(),
		Tenant:     n.Tenant(),
		Cluster:    n.Cluster(),
		Namespace:  n.Namespace(),
		Local:      n.LocalName(),
		Scheme:     n.Scheme().String(),
		Prefix:     n.SchemePrefix(),
		LookupName: n.LookupName(),
		String:     n.String(),
		Partition:  n.PartitionIndex(),
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want parsed
	}{
		{
			name: "bare local name",
			raw:  "my-topic",
			want: parsed{
				Domain:     Persistent,
				Tenant:     "public",
				Namespace:  "public/default",
				Local:      "my-topic",
				Scheme:     "current",
				Prefix:     "topic",
				LookupName: "persistent/public/default/my-topic",
				String:     "persistent://public/default/my-topic",
				Partition:  -1,
			},
		},
		{
			name: "short tenant/namespace/topic",
			raw:  "acme/orders/events",
			want: parsed{
				Domain:     Persistent,
				Tenant:     "acme",
				Namespace:  "acme/orders",
				Local:      "events",
				Scheme:     "current",
				Prefix:     "topic",
				LookupName: "persistent/acme/orders/events",
				String:     "persistent://acme/orders/events",
				Partition:  -1,
			},
		},
		{
			name: "fully qualified non-persistent",
			raw:  "non-persistent://acme/orders/events",
			want: parsed{
				Domain:     NonPersistent,
				Tenant:     "acme",
				Namespace:  "acme/orders",
				Local:      "events",
				Scheme:     "current",
				Prefix:     "topic",
				LookupName: "non-persistent/acme/orders/events",
				String:     "non-persistent://acme/orders/events",
				Partition:  -1,
			},
		},
		{
			name: "legacy cluster qualified",
			raw:  "persistent://prop/us-west/ns/t1",
			want: parsed{
				Domain:     Persistent,
				Tenant:     "prop",
				Cluster:    "us-west",
				Namespace:  "prop/us-west/ns",
				Local:      "t1",
				Scheme:     "legacy",
				Prefix:     "destination",
				LookupName: "persistent/prop/us-west/ns/t1",
				String:     "persistent://prop/us-west/ns/t1",
				Partition:  -1,
			},
		},
		{
			name: "legacy local name keeps slashes",
			raw:  "persistent://prop/c1/ns/a/b",
			want: parsed{
				Domain:     Persistent,
				Tenant:     "prop",
				Cluster:    "c1",
				Namespace:  "prop/c1/ns",
				Local:      "a/b",
				Scheme:     "legacy",
				Prefix:     "destination",
				LookupName: "persistent/prop/c1/ns/a%2Fb",
				String:     "persistent://prop/c1/ns/a/b",
				Partition:  -1,
			},
		},
		{
			name: "local name is escaped",
			raw:  "persistent://acme/orders/a b?c",
			want: parsed{
				Domain:     Persistent,
				Tenant:     "acme",
				Namespace:  "acme/orders",
				Local:      "a b?c",
				Scheme:     "current",
				Prefix:     "topic",
				LookupName: "persistent/acme/orders/a+b%3Fc",
				String:     "persistent://acme/orders/a b?c",
				Partition:  -1,
			},
		},
		{
			name: "partition",
			raw:  "persistent://acme/orders/events-partition-3",
			want: parsed{
				Domain:     Persistent,
				Tenant:     "acme",
				Namespace:  "acme/orders",
				Local:      "events-partition-3",
				Scheme:     "current",
				Prefix:     "topic",
				LookupName: "persistent/acme/orders/events-partition-3",
				String:     "persistent://acme/orders/events-partition-3",
				Partition:  3,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := Parse(tt.raw)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.raw, err)
			}
			if diff := pretty.Compare(tt.want, flatten(n)); diff != "" {
				t.Errorf("Parse(%q) -want/+got:\n%s", tt.raw, diff)
			}
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []string{
		"",
		"a/b",
		"a/b/c/d",
		"kafka://acme/orders/events",
		"persistent://acme/orders",
		"persistent://acme/orders/",
		"persistent://ac me/orders/events",
		"persistent://acme/ord*ers/events",
		"persistent://acme/c l/ns/events",
		"persistent://",
	}

	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			_, err := Parse(raw)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want error", raw)
			}
			if !errors.Is(err, adminerr.ErrMalformedTopicName) {
				t.Errorf("Parse(%q) error %v is not ErrMalformedTopicName", raw, err)
			}
			var e *adminerr.Error
			if !errors.As(err, &e) || e.Topic != raw {
				t.Errorf("Parse(%q) error should carry the raw topic, got %#v", raw, e)
			}
		})
	}
}

func TestParse_SchemeIsDeterministic(t *testing.T) {
	current := []string{"t", "x/y/t", "persistent://x/y/t", "non-persistent://x/y/t"}
	legacy := []string{"persistent://x/c/y/t", "non-persistent://x/c/y/t"}

	for _, raw := range current {
		for i := 0; i < 3; i++ {
			if got := MustParse(raw).Scheme(); got != SchemeCurrent {
				t.Errorf("%q: scheme = %v, want current", raw, got)
			}
		}
	}
	for _, raw := range legacy {
		if got := MustParse(raw).SchemePrefix(); got != "destination" {
			t.Errorf("%q: prefix = %q, want destination", raw, got)
		}
	}
}

func TestPartitionHelpers(t *testing.T) {
	n := MustParse("acme/orders/events")
	if n.IsPartitioned() {
		t.Fatal("base topic should not be partitioned")
	}

	p := n.Partition(7)
	if p.String() != "persistent://acme/orders/events-partition-7" {
		t.Errorf("Partition(7) = %s", p)
	}
	if p.PartitionIndex() != 7 {
		t.Errorf("PartitionIndex = %d, want 7", p.PartitionIndex())
	}
	if got := p.PartitionedTopicName().String(); got != n.String() {
		t.Errorf("PartitionedTopicName = %s, want %s", got, n)
	}
	if got := p.Partition(2).String(); got != "persistent://acme/orders/events-partition-2" {
		t.Errorf("re-partition = %s", got)
	}

	odd := MustParse("acme/orders/events-partition-x")
	if odd.IsPartitioned() {
		t.Error("non-numeric suffix should not count as a partition")
	}
}
