package evmclient

import "fmt"

// Registry resolves a state-machine identifier ("EVM-97") to the dialed
// Client for that chain. Passed by value into ContractInteractionService,
// SwapRouter and IntentGateway instead of those services holding
// back-references to each other or to a shared manager object (Design
// Note §9: break cyclic ChainClientManager/service references with a
// minimal capability, not mutual pointers).
type Registry struct {
	clients map[string]*Client
}

// NewRegistry builds a Registry from a fixed map of dialed clients.
func NewRegistry(clients map[string]*Client) Registry {
	m := make(map[string]*Client, len(clients))
	for id, c := range clients {
		m[id] = c
	}
	return Registry{clients: m}
}

// Client returns the dialed Client for stateMachineID.
func (r Registry) Client(stateMachineID string) (*Client, error) {
	c, ok := r.clients[stateMachineID]
	if !ok {
		return nil, fmt.Errorf("evmclient: no client configured for chain %s", stateMachineID)
	}
	return c, nil
}
