// Package artledger contains the atelier art marketplace ledger.
//
// Artists list digital-art assets by content hash, buyers settle a listing in a
// single atomic call, and the marketplace owner withdraws the commission that
// purchases accrue. Value transfers are requested through ports and executed by
// the runtime; the module never moves funds itself.
package artledger
