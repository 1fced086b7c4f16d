package entropy

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/miekg/dns"
)

const (
	// defaultUpstream is the recursive resolver used when none is configured.
	defaultUpstream = "8.8.8.8:53"

	// dnssecTimeout bounds a single beacon query.
	dnssecTimeout = 10 * time.Second

	// edns0BufSize is the EDNS0 UDP buffer size.
	edns0BufSize = 4096

	// beaconPrefix marks the TXT string that carries the beacon value.
	beaconPrefix = "raffle-beacon="

	// minBeaconBytes rejects values too short to spread over any realistic
	// participant count.
	minBeaconBytes = 16
)

// Beacon reads entropy published as a hex value in a DNS TXT record of the
// form "raffle-beacon=<hex>". The upstream resolver must validate DNSSEC and
// set the AD flag; unauthenticated answers are rejected.
//
// Whoever controls the zone chooses the value.
type Beacon struct {
	// Name is the record owner, e.g. "_beacon.example.com".
	Name string

	// Upstream is the recursive resolver address (e.g. "8.8.8.8:53").
	Upstream string

	// Net is "udp" (default) or "tcp".
	Net string
}

// NewBeacon creates a beacon source for name. An empty upstream defaults to
// "8.8.8.8:53".
func NewBeacon(name, upstream string) *Beacon {
	if upstream == "" {
		upstream = defaultUpstream
	}
	return &Beacon{Name: name, Upstream: upstream}
}

// Entropy fetches the beacon record and returns its value.
func (b *Beacon) Entropy(ctx context.Context) (*big.Int, error) {
	txts, err := b.lookupTXT(ctx)
	if err != nil {
		return nil, err
	}

	var value []byte
	for _, txt := range txts {
		if !strings.HasPrefix(txt, beaconPrefix) {
			continue
		}
		if value != nil {
			return nil, fmt.Errorf("%w: %s publishes more than one value", ErrInvalidBeaconValue, b.Name)
		}
		raw := strings.TrimPrefix(strings.TrimPrefix(txt, beaconPrefix), "0x")
		v, err := hex.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidBeaconValue, b.Name, err)
		}
		if len(v) < minBeaconBytes {
			return nil, fmt.Errorf("%w: %s: %d bytes, need at least %d", ErrInvalidBeaconValue, b.Name, len(v), minBeaconBytes)
		}
		value = v
	}
	if value == nil {
		return nil, fmt.Errorf("%w: no %q record at %s", ErrInvalidBeaconValue, beaconPrefix, b.Name)
	}
	return new(big.Int).SetBytes(value), nil
}

// lookupTXT sends a TXT query with the DNSSEC OK flag set and requires the
// AD (Authenticated Data) flag on the answer.
func (b *Beacon) lookupTXT(ctx context.Context) ([]string, error) {
	if b.Name == "" {
		return nil, fmt.Errorf("%w: beacon name", ErrNilParam)
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(b.Name), dns.TypeTXT)
	msg.RecursionDesired = true
	msg.SetEdns0(edns0BufSize, true)

	client := &dns.Client{Net: b.Net, Timeout: dnssecTimeout}
	resp, _, err := client.ExchangeContext(ctx, msg, b.Upstream)
	if err != nil {
		return nil, fmt.Errorf("%w: query %s TXT: %w", ErrBeaconUnavailable, b.Name, err)
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("%w: query %s TXT: rcode %s",
			ErrBeaconUnavailable, b.Name, dns.RcodeToString[resp.Rcode])
	}
	if !resp.AuthenticatedData {
		return nil, fmt.Errorf("%w: AD flag not set for %s TXT", ErrDNSSECValidationFailed, b.Name)
	}

	var txts []string
	for _, rr := range resp.Answer {
		if txt, ok := rr.(*dns.TXT); ok {
			// Long TXT records arrive split into 255-byte strings.
			txts = append(txts, strings.Join(txt.Txt, ""))
		}
	}
	if len(txts) == 0 {
		return nil, fmt.Errorf("%w: no TXT records for %s", ErrBeaconUnavailable, b.Name)
	}
	return txts, nil
}
