// Package slotstore resolves which slot.Store a process should use. Inside a
// Ratio1 edge node the CStore REST API is reachable and the HTTP store is
// used; elsewhere an in-memory store stands in, optionally seeded from a
// fixture file.
//
// Settings come from environment variables (NewFromEnv) or a YAML file
// (LoadConfig):
//
//	R1_RUNTIME_MODE         auto | http | mock (default auto)
//	EE_CHAINSTORE_API_URL   CStore base URL; auto selects http when set
//	R1_SLOTSTORE_HASH_KEY   keep every slot under this CStore hash key
//	R1_MOCK_SLOT_SEED       seed file applied in mock mode
package slotstore
