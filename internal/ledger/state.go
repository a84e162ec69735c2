package ledger

import "errors"

// State is the lifecycle shared by forms, lists and the report engine.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

var (
	// ErrBusy is returned when a form already has a submit in flight.
	ErrBusy = errors.New("ledger: operation already in flight")
	// ErrSuperseded is returned by a fetch whose result was discarded for a newer one.
	ErrSuperseded = errors.New("ledger: fetch superseded")
)

// User-facing prefixes for store failures.
const (
	msgFetchFailed  = "Gagal mengambil data: "
	msgInsertFailed = "Gagal tambah data: "
	msgUpdateFailed = "Gagal update data: "
	msgDeleteFailed = "Gagal hapus data: "
)
