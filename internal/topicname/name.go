// Package topicname parses topic identifiers and derives the path segments used
// by the lookup endpoints.
//
// Two addressing schemes exist. Current names are tenant/namespace qualified:
//
//	persistent://tenant/namespace/local
//
// Legacy names carry an extra cluster segment:
//
//	persistent://property/cluster/namespace/local
//
// Short forms ("local" and "tenant/namespace/local") expand to current names
// in the persistent domain, with "public/default" as the default namespace.
package topicname

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/dray-io/dray-lookup/internal/adminerr"
)

// Domain is the persistence qualifier of a topic.
type Domain string

const (
	Persistent    Domain = "persistent"
	NonPersistent Domain = "non-persistent"
)

// Scheme is the addressing scheme a name was expressed in.
type Scheme int

const (
	// SchemeCurrent is tenant/namespace/local addressing.
	SchemeCurrent Scheme = iota
	// SchemeLegacy is property/cluster/namespace/local addressing.
	SchemeLegacy
)

func (s Scheme) String() string {
	if s == SchemeLegacy {
		return "legacy"
	}
	return "current"
}

// Prefix returns the lookup path segment for the scheme. The two endpoint
// families are not interchangeable.
func (s Scheme) Prefix() string {
	if s == SchemeLegacy {
		return "destination"
	}
	return "topic"
}

const (
	// DefaultTenant and DefaultNamespace qualify bare local names.
	DefaultTenant    = "public"
	DefaultNamespace = "default"

	// PartitionSuffix separates a partitioned topic's base name from its index.
	PartitionSuffix = "-partition-"

	domainSeparator = "://"
)

var segmentPattern = regexp.MustCompile(`^[-=:.\w]+$`)

// Name is a parsed topic identifier. The zero value is not a valid name.
type Name struct {
	domain    Domain
	tenant    string
	cluster   string
	namespace string
	local     string
	partition int
	scheme    Scheme
}

// Parse normalizes raw into a Name. Failures are *adminerr.Error values of kind
// KindMalformedTopicName.
func Parse(raw string) (Name, error) {
	if raw == "" {
		return Name{}, adminerr.MalformedTopicName(raw, "topic name is empty")
	}

	full := raw
	if !strings.Contains(raw, domainSeparator) {
		switch parts := strings.Split(raw, "/"); len(parts) {
		case 1:
			full = string(Persistent) + domainSeparator + DefaultTenant + "/" + DefaultNamespace + "/" + raw
		case 3:
			full = string(Persistent) + domainSeparator + raw
		default:
			return Name{}, adminerr.MalformedTopicName(raw,
				"invalid short topic name, expected <tenant>/<namespace>/<topic> or <topic>")
		}
	}

	idx := strings.Index(full, domainSeparator)
	n := Name{domain: Domain(full[:idx])}
	if n.domain != Persistent && n.domain != NonPersistent {
		return Name{}, adminerr.MalformedTopicName(raw, "invalid topic domain "+strconv.Quote(string(n.domain)))
	}

	rest := full[idx+len(domainSeparator):]
	parts := strings.SplitN(rest, "/", 4)
	switch len(parts) {
	case 3:
		n.tenant, n.namespace, n.local = parts[0], parts[1], parts[2]
		n.scheme = SchemeCurrent
	case 4:
		n.tenant, n.cluster, n.namespace, n.local = parts[0], parts[1], parts[2], parts[3]
		n.scheme = SchemeLegacy
	default:
		return Name{}, adminerr.MalformedTopicName(raw, "invalid topic name, expected <domain>://<tenant>/<namespace>/<topic>")
	}

	if n.local == "" {
		return Name{}, adminerr.MalformedTopicName(raw, "local topic name is empty")
	}
	if !segmentPattern.MatchString(n.tenant) {
		return Name{}, adminerr.MalformedTopicName(raw, "invalid tenant "+strconv.Quote(n.tenant))
	}
	if n.scheme == SchemeLegacy && !segmentPattern.MatchString(n.cluster) {
		return Name{}, adminerr.MalformedTopicName(raw, "invalid cluster "+strconv.Quote(n.cluster))
	}
	if !segmentPattern.MatchString(n.namespace) {
		return Name{}, adminerr.MalformedTopicName(raw, "invalid namespace "+strconv.Quote(n.namespace))
	}

	n.partition = partitionIndex(n.local)
	return n, nil
}

// MustParse is Parse for names known to be valid. It panics on error.
func MustParse(raw string) Name {
	n, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return n
}

func partitionIndex(local string) int {
	if !strings.Contains(local, PartitionSuffix) {
		return -1
	}
	i, err := strconv.Atoi(local[strings.LastIndex(local, "-")+1:])
	if err != nil || i < 0 {
		return -1
	}
	return i
}

func (n Name) Domain() Domain    { return n.domain }
func (n Name) Tenant() string    { return n.tenant }
func (n Name) Cluster() string   { return n.cluster }
func (n Name) LocalName() string { return n.local }
func (n Name) Scheme() Scheme    { return n.scheme }

// SchemePrefix is shorthand for n.Scheme().Prefix().
func (n Name) SchemePrefix() string { return n.scheme.Prefix() }

// Namespace returns "tenant/namespace", or "property/cluster/namespace" for
// legacy names.
func (n Name) Namespace() string {
	if n.scheme == SchemeLegacy {
		return n.tenant + "/" + n.cluster + "/" + n.namespace
	}
	return n.tenant + "/" + n.namespace
}

// NamespacePortion returns just the namespace segment.
func (n Name) NamespacePortion() string { return n.namespace }

// String returns the fully qualified name.
func (n Name) String() string {
	return string(n.domain) + domainSeparator + n.Namespace() + "/" + n.local
}

// EncodedLocalName is the local name escaped for use as a single path segment.
func (n Name) EncodedLocalName() string {
	return url.QueryEscape(n.local)
}

// LookupName is the path under the lookup root that identifies the topic:
// domain/namespace/encoded-local.
func (n Name) LookupName() string {
	return string(n.domain) + "/" + n.Namespace() + "/" + n.EncodedLocalName()
}

// PartitionIndex returns the partition number or -1 for a non-partition name.
func (n Name) PartitionIndex() int { return n.partition }

// IsPartitioned reports whether n names one partition of a partitioned topic.
func (n Name) IsPartitioned() bool { return n.partition >= 0 }

// Partition returns the name of partition i of n.
func (n Name) Partition(i int) Name {
	p := n
	p.local = n.PartitionedTopicName().local + PartitionSuffix + strconv.Itoa(i)
	p.partition = i
	return p
}

// PartitionedTopicName strips the partition suffix, returning the parent topic.
func (n Name) PartitionedTopicName() Name {
	if !n.IsPartitioned() {
		return n
	}
	p := n
	p.local = n.local[:strings.LastIndex(n.local, PartitionSuffix)]
	p.partition = -1
	return p
}
