// Package database provides SQLite-based storage for deepscan.
//
// HistoryDB stores every completed analysis as JSON together with one row
// per provider result. The provider rows double as a result cache: an image
// whose fingerprint was analyzed by a provider recently does not need another
// vendor call.
//
// SQLite is used through modernc.org/sqlite, which is CGO-free and keeps the
// whole history in a single file under the XDG data directory.
package database
