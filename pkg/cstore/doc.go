// Package cstore stores slots in the Ratio1 Chainstore (CStore) through its
// REST API, as served by the cstore_manager_api plugin of an edge node or by
// cmd/slot-sandbox locally.
//
// Client maps one slot to one key (/get, /set, /get_status). HashStore maps
// one slot to one field of a single hash key (/hget, /hset, /hgetall), which
// keeps every record of an application under one listing. Both implement
// slot.Store and slot.Lister.
//
// The upstream API has no delete endpoint. That matches the slot contract,
// where blank slots are written instead of removed.
package cstore
