/*
Package retropal reduces full-color images to curated palettes matching
historical display hardware and remaps every pixel onto them.
*/
package retropal

import "log"

type RetroPal struct {
	db     *PaletteDB
	engine *Engine
	logger *log.Logger
}

func New(db *PaletteDB, logger *log.Logger) *RetroPal {
	return &RetroPal{
		db:     db,
		engine: NewEngine(logger),
		logger: logger,
	}
}

// Engine returns the palette engine the scanner drives; callers can use it
// directly for one-off conversions.
func (r *RetroPal) Engine() *Engine {
	return r.engine
}

func (r *RetroPal) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
