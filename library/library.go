/*
Package library maintains collections of icons in the Kompakt Icon Format,
either as .kif files written alongside their source images or stored in a
SQLite icon database.
*/
package library

import "log"

// DefaultWorkers is the number of files processed concurrently unless
// overridden.
const DefaultWorkers = 10

type Library struct {
	db     *IconDB
	logger *log.Logger

	// Workers is the number of files processed concurrently
	Workers int
}

func New(db *IconDB, logger *log.Logger) *Library {
	return &Library{
		db:      db,
		logger:  logger,
		Workers: DefaultWorkers,
	}
}
