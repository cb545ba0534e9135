// Package settings implements the configuration store behind safety.Service.
//
// Two backends share one contract: FileStore keeps settings.json next to the
// roofs.json registry, SQLiteStore keeps a single settings row and mirrors
// the registry into the database. Reads never fail (missing or corrupt data
// reads as defaults) while Save failures are returned wrapped in ErrPersist.
//
// Both backends fill unset observatory coordinates from the registry
// location on read and persist them best-effort.
package settings
