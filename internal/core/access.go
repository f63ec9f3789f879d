package core

import (
	"github.com/cockroachdb/errors"
)

// Networks returns the network names in lexicographic order.
func (d *Dataset) Networks() []string {
	return sortedKeys(d.networks)
}

// Messages returns the message names of a network in lexicographic order.
func (d *Dataset) Messages(network string) ([]string, error) {
	net, err := d.Network(network)
	if err != nil {
		return nil, err
	}
	return sortedKeys(net), nil
}

// Payloads returns the payload column names of a message in file order.
func (d *Dataset) Payloads(network, message string) ([]string, error) {
	t, err := d.Table(network, message)
	if err != nil {
		return nil, err
	}
	return t.Payloads(), nil
}

// Network returns every table of a network. The map must not be modified.
func (d *Dataset) Network(network string) (Network, error) {
	net, ok := d.networks[network]
	if !ok {
		reason := ReasonNeverExisted
		if d.filtered[network] {
			reason = ReasonFiltered
		}
		return nil, &NotFoundError{Log: d.Name, Network: network, Reason: reason}
	}
	return net, nil
}

// Table returns one message table. The table must not be modified.
func (d *Dataset) Table(network, message string) (*Table, error) {
	net, err := d.Network(network)
	if err != nil {
		return nil, err
	}
	t, ok := net[message]
	if !ok {
		return nil, d.missingMessage(network, message)
	}
	return t, nil
}

// Column returns one payload column of a message with its timestamps.
func (d *Dataset) Column(network, message, payload string) (Series, error) {
	t, err := d.Table(network, message)
	if err != nil {
		return Series{}, err
	}
	c, ok := t.Column(payload)
	if !ok {
		return Series{}, &NotFoundError{Log: d.Name, Network: network, Message: message, Payload: payload}
	}
	return Series{Name: c.Name, Kind: c.Kind, Time: t.Time, Floats: c.Floats, Texts: c.Texts}, nil
}

// Get narrows progressively: no key returns the *Dataset, one key a Network,
// two keys a *Table and three keys a Series.
func (d *Dataset) Get(keys ...string) (any, error) {
	switch len(keys) {
	case 0:
		return d, nil
	case 1:
		return d.Network(keys[0])
	case 2:
		return d.Table(keys[0], keys[1])
	case 3:
		return d.Column(keys[0], keys[1], keys[2])
	default:
		return nil, errors.Mark(
			errors.Newf("get takes at most network, message and payload, got %d keys", len(keys)),
			ErrInvalidQuery)
	}
}

// missingMessage explains an absent message, consulting the anomaly log:
// dropped by alignment, then empty at ingestion, then failed to load.
func (d *Dataset) missingMessage(network, message string) error {
	nf := &NotFoundError{Log: d.Name, Network: network, Message: message}
	a, ok := d.anomalies.lookup(network, message)
	if !ok {
		return nf
	}
	switch a.Kind {
	case AnomalyOutOfSync:
		nf.Reason = ReasonDroppedByAlignment
	case AnomalyEmpty:
		nf.Reason = ReasonEmptyAtIngest
	case AnomalyLoadError:
		nf.Reason = ReasonLoadFailed
		nf.Cause = a.Cause
	}
	return nf
}
